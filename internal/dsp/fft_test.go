// fft_test.go

package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextFastLen_ReturnsSmallestSmoothLength(t *testing.T) {
	cases := map[int]int{
		1:    1,
		2:    2,
		7:    8,
		11:   12,
		31:   32,
		97:   100,
		1025: 1080,
	}
	for in, want := range cases {
		assert.Equal(t, want, NextFastLen(in), "NextFastLen(%d)", in)
	}
}

func TestFFT_RoundTripRecoversInput(t *testing.T) {
	for _, n := range []int{2, 8, 12, 30, 60, 120, 240} {
		p := NewFFT(n)
		data := make([]complex128, n)
		orig := make([]complex128, n)
		for i := range data {
			// Deterministic mixed-tone fill, nothing special about it.
			v := complex(math.Sin(float64(i)*0.7)+0.25*math.Cos(float64(i)*2.3), math.Cos(float64(i)*1.1))
			data[i] = v
			orig[i] = v
		}

		p.Forward(data)
		p.Inverse(data)

		for i := range data {
			require.InDelta(t, real(orig[i]), real(data[i]), 1e-9, "n=%d re[%d]", n, i)
			require.InDelta(t, imag(orig[i]), imag(data[i]), 1e-9, "n=%d im[%d]", n, i)
		}
	}
}

func TestFFT_ForwardMatchesDirectDFT(t *testing.T) {
	const n = 30
	p := NewFFT(n)
	data := make([]complex128, n)
	for i := range data {
		data[i] = complex(float64(i%7)-3, float64(i%5)-2)
	}
	want := make([]complex128, n)
	for k := 0; k < n; k++ {
		var sum complex128
		for j := 0; j < n; j++ {
			angle := -2 * math.Pi * float64(j*k) / float64(n)
			sum += data[j] * complex(math.Cos(angle), math.Sin(angle))
		}
		want[k] = sum
	}

	p.Forward(data)
	for k := range data {
		require.InDelta(t, real(want[k]), real(data[k]), 1e-8, "re[%d]", k)
		require.InDelta(t, imag(want[k]), imag(data[k]), 1e-8, "im[%d]", k)
	}
}
