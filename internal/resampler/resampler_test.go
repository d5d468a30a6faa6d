// resampler_test.go

package resampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestKernel_PointReturnsNearestSample(t *testing.T) {
	k := NewKernel(Point)
	h := SliceHistory{Buf: []float32{1, 2, 3, 4}, Center: 1}
	assert.Equal(t, float32(2), k.Sample(h, FracOne/2))
}

func TestKernel_LinearInterpolatesBetweenSamples(t *testing.T) {
	k := NewKernel(Linear)
	h := SliceHistory{Buf: []float32{0, 10}, Center: 0}
	assert.InDelta(t, 5.0, k.Sample(h, FracOne/2), 0.001)
	assert.InDelta(t, 0.0, k.Sample(h, 0), 0.001)
}

func TestKernel_CubicPassesThroughKnownSamples(t *testing.T) {
	k := NewKernel(Cubic)
	h := SliceHistory{Buf: []float32{1, 2, 3, 4, 5}, Center: 2}
	// At frac=0 the Hermite spline must reproduce h.At(0) exactly.
	assert.InDelta(t, 3.0, k.Sample(h, 0), 0.001)
}

func TestKernel_FourPointPassesThroughKnownSamples(t *testing.T) {
	k := NewKernel(FourPoint)
	h := SliceHistory{Buf: []float32{1, 2, 3, 4, 5}, Center: 2}
	assert.InDelta(t, 3.0, k.Sample(h, 0), 0.001)
}

func TestSliceHistory_OutOfBoundsReadsZero(t *testing.T) {
	h := SliceHistory{Buf: []float32{1, 2, 3}, Center: 0}
	assert.Equal(t, float32(0), h.At(-5))
	assert.Equal(t, float32(0), h.At(5))
}

func TestKernel_InterpolatingKernelsPassThroughNodes(t *testing.T) {
	// Every interpolating kernel must reproduce the centre sample
	// exactly at zero fractional phase, whatever the surrounding
	// history holds.
	kinds := []Kind{Point, Linear, Cubic, FourPoint}
	rapid.Check(t, func(t *rapid.T) {
		buf := rapid.SliceOfN(rapid.Float32Range(-1, 1), 8, 8).Draw(t, "history")
		center := rapid.IntRange(2, 5).Draw(t, "center")
		h := SliceHistory{Buf: buf, Center: center}
		for _, kind := range kinds {
			got := NewKernel(kind).Sample(h, 0)
			if diff := got - buf[center]; diff > 1e-4 || diff < -1e-4 {
				t.Fatalf("kind %d: got %v at node, want %v", kind, got, buf[center])
			}
		}
	})
}

func TestKernel_SincPassesThroughKnownSampleAtZeroFrac(t *testing.T) {
	k := NewKernel(Sinc)
	buf := make([]float32, 64)
	buf[32] = 1
	h := SliceHistory{Buf: buf, Center: 32}
	// A unit impulse at the exact tap position should dominate the
	// windowed-sinc sum once normalised, staying close to 1.
	assert.InDelta(t, 1.0, k.Sample(h, 0), 0.05)
}
