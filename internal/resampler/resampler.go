// resampler.go - per-voice sample rate conversion kernels
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

// Package resampler implements the interpolation kernels a voice uses to
// convert its buffer's native sample rate to the mixer's output rate as
// pitch changes: point (no interpolation), linear, cubic (Hermite),
// 4-point (Lagrange) and a shared windowed-sinc kernel standing in for
// openal-soft's bsinc12/bsinc24/fastbsinc variants (spec.md §4.1/§4.7).
package resampler

import "math"

// Kind selects the interpolation kernel.
type Kind int

const (
	Point Kind = iota
	Linear
	Cubic
	FourPoint
	Sinc
)

// FracBits is the number of fractional bits in a voice's playback
// position, matching openal-soft's FRACTIONBITS convention: positions
// are tracked as a whole-sample index plus a FracBits-wide fraction so
// the mixer can accumulate fractional pitch without drifting.
const FracBits = 12
const FracOne = 1 << FracBits
const FracMask = FracOne - 1

// Kernel resamples one voice's history into the mixer's working buffer.
// History must supply enough samples before and after the requested
// span for the kernel's taps (Point needs 0 lookahead, Linear needs 1,
// Cubic/FourPoint need up to 2, Sinc needs sincHalfWidth); callers
// arrange the voice's circular buffer accordingly.
type Kernel struct {
	kind    Kind
	sincTbl *sincTable
}

// NewKernel builds a kernel of the given kind. Sinc kernels lazily build
// their windowed-sinc coefficient table on first use.
func NewKernel(kind Kind) *Kernel {
	k := &Kernel{kind: kind}
	if kind == Sinc {
		k.sincTbl = newSincTable(sincHalfWidth, sincPhases)
	}
	return k
}

// history indexes samples at integer offsets around the current
// fractional position; idx is usually 0 (current sample); negative and
// positive offsets reach back/forward for wider kernels.
type history interface {
	At(offset int) float32
}

// SliceHistory adapts a plain slice plus a center index to the history
// interface, for callers that keep a flat circular buffer.
type SliceHistory struct {
	Buf    []float32
	Center int
}

func (s SliceHistory) At(offset int) float32 {
	i := s.Center + offset
	if i < 0 || i >= len(s.Buf) {
		return 0
	}
	return s.Buf[i]
}

// Sample evaluates the kernel at fractional position frac (0..FracOne-1,
// i.e. frac/FracOne is the position between h.At(0) and h.At(1)).
func (k *Kernel) Sample(h history, frac uint32) float32 {
	t := float32(frac) / float32(FracOne)
	switch k.kind {
	case Point:
		return h.At(0)
	case Linear:
		return h.At(0) + t*(h.At(1)-h.At(0))
	case Cubic:
		return hermite4(h.At(-1), h.At(0), h.At(1), h.At(2), t)
	case FourPoint:
		return lagrange4(h.At(-1), h.At(0), h.At(1), h.At(2), t)
	case Sinc:
		return k.sincTbl.sample(h, t)
	}
	return h.At(0)
}

// hermite4 is a Catmull-Rom-style cubic Hermite interpolation across
// four consecutive samples, matching openal-soft's cubic resampler.
func hermite4(p0, p1, p2, p3, t float32) float32 {
	c0 := p1
	c1 := 0.5 * (p2 - p0)
	c2 := p0 - 2.5*p1 + 2*p2 - 0.5*p3
	c3 := 0.5*(p3-p0) + 1.5*(p1-p2)
	return ((c3*t+c2)*t+c1)*t + c0
}

// lagrange4 is the 4-point (3rd-order) Lagrange interpolation matching
// openal-soft's "4-point" resampler.
func lagrange4(p0, p1, p2, p3, t float32) float32 {
	tm1 := t - 1
	tm2 := t - 2
	tp1 := t + 1
	l0 := -t * tm1 * tm2 / 6
	l1 := tp1 * tm1 * tm2 / 2
	l2 := -tp1 * t * tm2 / 2
	l3 := tp1 * t * tm1 / 6
	return p0*l0 + p1*l1 + p2*l2 + p3*l3
}

const (
	sincHalfWidth = 12
	sincPhases    = 256
)

// sincTable holds a precomputed windowed-sinc kernel over sincPhases
// fractional positions and 2*sincHalfWidth taps each, standing in for
// bsinc's precomputed table-driven approach (without the reference's
// additional band-limited rolloff scaling per resample ratio - alcore
// applies a single fixed-bandwidth table regardless of pitch ratio,
// trading some aliasing resistance at extreme pitch-up for a much
// smaller implementation).
type sincTable struct {
	halfWidth int
	phases    int
	taps      [][]float32 // [phase][tap]
}

func newSincTable(halfWidth, phases int) *sincTable {
	t := &sincTable{halfWidth: halfWidth, phases: phases}
	t.taps = make([][]float32, phases)
	width := 2 * halfWidth
	for ph := 0; ph < phases; ph++ {
		frac := float64(ph) / float64(phases)
		row := make([]float32, width)
		var sum float64
		for j := 0; j < width; j++ {
			x := float64(j-halfWidth+1) - frac
			row[j] = float32(sinc(x) * blackman(x, float64(halfWidth)))
			sum += float64(row[j])
		}
		if sum != 0 {
			for j := range row {
				row[j] = float32(float64(row[j]) / sum)
			}
		}
		t.taps[ph] = row
	}
	return t
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func blackman(x, halfWidth float64) float64 {
	if x < -halfWidth || x > halfWidth {
		return 0
	}
	n := (x + halfWidth) / (2 * halfWidth)
	return 0.42 - 0.5*math.Cos(2*math.Pi*n) + 0.08*math.Cos(4*math.Pi*n)
}

func (t *sincTable) sample(h history, frac float32) float32 {
	ph := int(frac * float32(t.phases))
	if ph >= t.phases {
		ph = t.phases - 1
	}
	row := t.taps[ph]
	var sum float32
	for j, c := range row {
		sum += c * h.At(j-t.halfWidth+1)
	}
	return sum
}
