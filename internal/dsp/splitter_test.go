// splitter_test.go

package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBandSplitter_BandsSumToAllPassedInput(t *testing.T) {
	const sampleRate = 48000
	s := NewBandSplitter(400.0 / sampleRate)

	n := 2000
	input := make([]float32, n)
	for i := range input {
		input[i] = float32(math.Sin(2*math.Pi*300*float64(i)/sampleRate) +
			0.5*math.Sin(2*math.Pi*3000*float64(i)/sampleRate))
	}

	lp := make([]float32, n)
	hp := make([]float32, n)
	s.Process(hp, lp, input)

	// The split is phase-matched (allpass high band vs two-pole low
	// band), so lp+hp should equal the input run through the companion
	// AllPass at the same crossover.
	ap := NewAllPass(400.0 / sampleRate)
	want := make([]float32, n)
	ap.Process(want, input)

	var maxErr float32
	for i := n / 4; i < n; i++ {
		err := (lp[i] + hp[i]) - want[i]
		if err < 0 {
			err = -err
		}
		if err > maxErr {
			maxErr = err
		}
	}
	assert.Less(t, maxErr, float32(0.2))
}

func TestBandSplitter_ClearResetsState(t *testing.T) {
	s := NewBandSplitter(400.0 / 48000)
	buf := make([]float32, 100)
	for i := range buf {
		buf[i] = 1
	}
	lp := make([]float32, 100)
	hp := make([]float32, 100)
	s.Process(hp, lp, buf)
	assert.NotZero(t, s.lpZ1)

	s.Clear()
	assert.Zero(t, s.lpZ1)
	assert.Zero(t, s.lpZ2)
	assert.Zero(t, s.apZ1)
}

func TestAllPass_PreservesEnergy(t *testing.T) {
	ap := NewAllPass(1000.0 / 48000)
	n := 4000
	input := make([]float32, n)
	for i := range input {
		input[i] = float32(math.Sin(2 * math.Pi * 500 * float64(i) / 48000))
	}
	out := make([]float32, n)
	ap.Process(out, input)

	var inEnergy, outEnergy float64
	for i := n / 2; i < n; i++ {
		inEnergy += float64(input[i]) * float64(input[i])
		outEnergy += float64(out[i]) * float64(out[i])
	}
	ratio := outEnergy / inEnergy
	assert.InDelta(t, 1.0, ratio, 0.1)
}
