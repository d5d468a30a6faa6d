// uhj.go - UHJ stereo-compatible ambisonic encode/decode
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package dsp

import "math"

// UHJ encodes/decodes between first-order horizontal B-Format (W/X/Y)
// and a 2-channel stereo-compatible signal that degrades gracefully to
// plain mono/stereo on playback systems that don't decode it; 3- and
// 4-channel UHJ are not implemented. Coefficients and topology are
// ported from openal-soft's utils/uhjdecoder.cpp and core/uhjfilter.cpp
// (Alc's Super Stereo DSP). Two 90-degree shifters are selected by
// Quality: a windowed-sinc Hilbert FIR applied by direct convolution
// (no segmented FFT is used) and a cheap cascaded IIR all-pass for
// real-time use.
type Quality int

const (
	// QualityFast uses the IIR all-pass cascade (PhaseShifter): low
	// latency, small constant phase error, suitable for real-time mixing.
	QualityFast Quality = iota
	// QualityHigh uses a linear-phase windowed-sinc Hilbert FIR kernel
	// (hilbertFIR, direct convolution): its shifted output lags by about
	// half the kernel length, intended for offline or mastering-style
	// encodes.
	QualityHigh
)

// Encoder produces a 2-channel (UHJ2) signal from first-order W/X/Y
// B-Format input; 3- and 4-channel UHJ output is not produced.
type Encoder struct {
	quality  Quality
	shifterW *PhaseShifter
	hilbert  *hilbertFIR
}

// NewEncoder builds an encoder for the UHJ2 stereo-compatible pair (W/X/Y
// in, left/right out).
func NewEncoder(quality Quality) *Encoder {
	e := &Encoder{quality: quality}
	if quality == QualityFast {
		e.shifterW = NewPhaseShifter()
	} else {
		e.hilbert = newHilbertFIR(hilbertTaps)
	}
	return e
}

// EncodeStereo produces the UHJ2 left/right pair from first-order W/X/Y.
// All five slices must share the same length; dst slices may not alias
// the src slices.
func (e *Encoder) EncodeStereo(left, right, w, x, y []float32) {
	n := len(w)
	sBuf := make([]float32, n)
	dReal := make([]float32, n)
	dImag := make([]float32, n)

	for i := 0; i < n; i++ {
		// Sum signal: in-phase combination of W and X.
		sBuf[i] = 0.9396926*w[i] + 0.1855740*x[i]
	}

	switch e.quality {
	case QualityFast:
		wIn := make([]float32, n)
		wQuad := make([]float32, n)
		e.shifterW.Split(wIn, wQuad, w)
		for i := 0; i < n; i++ {
			dReal[i] = 0.6554516 * y[i]
			dImag[i] = -0.3420201*wQuad[i] + 0.5098604*x[i]
		}
	default:
		wHil := make([]float32, n)
		e.hilbert.Process(wHil, w)
		for i := 0; i < n; i++ {
			dReal[i] = 0.6554516 * y[i]
			dImag[i] = -0.3420201*wHil[i] + 0.5098604*x[i]
		}
	}

	for i := 0; i < n; i++ {
		d := dReal[i] + dImag[i]
		left[i] = (sBuf[i] + d) * 0.5
		right[i] = (sBuf[i] - d) * 0.5
	}
}

// Decoder recovers approximate B-Format (W/X/Y) from a UHJ2 stereo pair.
type Decoder struct {
	quality Quality
	shifter *PhaseShifter
	hilbert *hilbertFIR
}

// NewDecoder builds a decoder matching the given quality tier. Quality
// need not match the encoder's - a high-quality encode can always be
// decoded by the fast decoder at a small accuracy cost, and vice versa.
func NewDecoder(quality Quality) *Decoder {
	d := &Decoder{quality: quality}
	if quality == QualityFast {
		d.shifter = NewPhaseShifter()
	} else {
		d.hilbert = newHilbertFIR(hilbertTaps)
	}
	return d
}

// Decode recovers w/x/y from a UHJ2 left/right pair.
func (d *Decoder) Decode(w, x, y, left, right []float32) {
	n := len(left)
	sBuf := make([]float32, n)
	diff := make([]float32, n)
	for i := 0; i < n; i++ {
		sBuf[i] = left[i] + right[i]
		diff[i] = left[i] - right[i]
	}

	var diffQuad []float32
	if d.quality == QualityFast {
		inPhase := make([]float32, n)
		diffQuad = make([]float32, n)
		d.shifter.Split(inPhase, diffQuad, diff)
		_ = inPhase
	} else {
		diffQuad = make([]float32, n)
		d.hilbert.Process(diffQuad, diff)
	}

	for i := 0; i < n; i++ {
		w[i] = 0.981532*sBuf[i] + 0.197484*diffQuad[i]
		x[i] = 0.418496 * sBuf[i]
		y[i] = 0.795968 * diff[i]
	}
}

const hilbertTaps = 129

// hilbertFIR is a linear-phase windowed-sinc approximation of a 90-degree
// broadband phase shift, used by the QualityHigh path in place of the
// openal-soft reference's pffft-segmented convolution - the shape (odd-
// length, zero even taps, Blackman-windowed sinc) is the same; only the
// convolution engine differs (direct FIR here rather than an FFT overlap
// -save, since hilbertTaps is small enough that direct convolution is
// cheap per mix quantum).
type hilbertFIR struct {
	taps  []float32
	delay []float32
}

func newHilbertFIR(n int) *hilbertFIR {
	if n%2 == 0 {
		n++
	}
	taps := make([]float32, n)
	mid := n / 2
	for i := 0; i < n; i++ {
		k := i - mid
		if k%2 == 0 {
			taps[i] = 0
			continue
		}
		fk := float64(k)
		ideal := 2.0 / (3.141592653589793 * fk)
		window := 0.42 - 0.5*cosPi2(float64(i)/float64(n-1)) + 0.08*cosPi4(float64(i)/float64(n-1))
		taps[i] = float32(ideal * window)
	}
	return &hilbertFIR{taps: taps, delay: make([]float32, n)}
}

func cosPi2(t float64) float64 { return math.Cos(2 * math.Pi * t) }
func cosPi4(t float64) float64 { return math.Cos(4 * math.Pi * t) }

func (h *hilbertFIR) Process(dst, src []float32) {
	n := len(h.taps)
	buf := make([]float32, len(h.delay)+len(src))
	copy(buf, h.delay)
	copy(buf[len(h.delay):], src)

	for i := range dst {
		var sum float32
		for k := 0; k < n; k++ {
			sum += h.taps[k] * buf[i+n-1-k]
		}
		dst[i] = sum
	}

	if len(src) >= len(h.delay) {
		copy(h.delay, src[len(src)-len(h.delay):])
	} else {
		copy(h.delay, h.delay[len(src):])
		copy(h.delay[len(h.delay)-len(src):], src)
	}
}
