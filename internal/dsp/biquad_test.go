// biquad_test.go

package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBiquad_LowPassAttenuatesHighFrequency(t *testing.T) {
	const sampleRate = 48000
	var lp Biquad
	lp.SetParams(BiquadLowPass, 1, 200.0/sampleRate, 0.707)

	n := sampleRate
	low := make([]float32, n)
	high := make([]float32, n)
	for i := range low {
		low[i] = float32(math.Sin(2 * math.Pi * 50 * float64(i) / sampleRate))
		high[i] = float32(math.Sin(2 * math.Pi * 8000 * float64(i) / sampleRate))
	}

	outLow := make([]float32, n)
	outHigh := make([]float32, n)
	lp.Process(outLow, low)
	lp.Clear()
	lp.Process(outHigh, high)

	assert.Greater(t, rmsTail(outLow), rmsTail(outHigh)*5, "low-pass should pass 50Hz much more than 8kHz")
}

func TestBiquad_HighPassAttenuatesLowFrequency(t *testing.T) {
	const sampleRate = 48000
	var hp Biquad
	hp.SetParams(BiquadHighPass, 1, 2000.0/sampleRate, 0.707)

	n := sampleRate
	low := make([]float32, n)
	high := make([]float32, n)
	for i := range low {
		low[i] = float32(math.Sin(2 * math.Pi * 50 * float64(i) / sampleRate))
		high[i] = float32(math.Sin(2 * math.Pi * 10000 * float64(i) / sampleRate))
	}

	outLow := make([]float32, n)
	outHigh := make([]float32, n)
	hp.Process(outLow, low)
	hp.Clear()
	hp.Process(outHigh, high)

	assert.Greater(t, rmsTail(outHigh), rmsTail(outLow)*5, "high-pass should pass 10kHz much more than 50Hz")
}

func TestBiquad_ClearResetsDelayMemory(t *testing.T) {
	var lp Biquad
	lp.SetParams(BiquadLowPass, 1, 0.1, 0.707)
	buf := []float32{1, 1, 1, 1}
	lp.Process(buf, buf)
	assert.NotZero(t, lp.z1)

	lp.Clear()
	assert.Zero(t, lp.z1)
	assert.Zero(t, lp.z2)
}

// rmsTail computes RMS over the back half of samples, skipping the
// filter's settling transient.
func rmsTail(samples []float32) float64 {
	start := len(samples) / 2
	var sum float64
	for _, v := range samples[start:] {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(samples)-start))
}
