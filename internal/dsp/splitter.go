// splitter.go - phase-matched band splitter
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package dsp

import "math"

// BandSplitter splits a signal into two phase-matching frequency bands
// (low/high) around a normalised crossover f0norm = crossoverHz/sampleRate.
// Ported from openal-soft's BandSplitterR (alc/filters/splitter.h): a
// one-pole lowpass run twice (for a -12dB/oct slope) plus an allpass
// stage so the high band stays phase-coherent with the low band.
type BandSplitter struct {
	coeff      float32
	lpZ1, lpZ2 float32
	apZ1       float32
}

// NewBandSplitter builds a splitter for the given normalised crossover.
func NewBandSplitter(f0norm float32) BandSplitter {
	var s BandSplitter
	s.Init(f0norm)
	return s
}

// Init (re)configures the crossover frequency and clears delay memory.
func (s *BandSplitter) Init(f0norm float32) {
	w := float32(math.Tan(float64(math.Pi * float64(f0norm))))
	s.coeff = (w - 1.0) / (w + 1.0)
	s.Clear()
}

// Clear resets delay memory without changing the crossover.
func (s *BandSplitter) Clear() {
	s.lpZ1, s.lpZ2, s.apZ1 = 0, 0, 0
}

// Process splits input into hpout (high band) and lpout (low band).
// Either output slice may be nil if the caller doesn't need that band.
func (s *BandSplitter) Process(hpout, lpout, input []float32) {
	coeff := s.coeff
	lpCoeff := coeff*0.5 + 0.5
	lpZ1, lpZ2 := s.lpZ1, s.lpZ2
	apZ1 := s.apZ1

	for i, in := range input {
		// Two-stage one-pole lowpass for a 2nd-order (-12dB/oct) slope.
		d := (in - lpZ1) * lpCoeff
		lp := lpZ1 + d
		lpZ1 = lp + d
		d = (lp - lpZ2) * lpCoeff
		lp = lpZ2 + d
		lpZ2 = lp + d

		// First-order allpass on the same coefficient as AllPass.
		ap := coeff*in + apZ1
		apZ1 = in - coeff*ap

		if lpout != nil {
			lpout[i] = lp
		}
		if hpout != nil {
			hpout[i] = ap - lp
		}
	}

	s.lpZ1, s.lpZ2, s.apZ1 = lpZ1, lpZ2, apZ1
}

// ApplyHFScale scales samples by hfscale in place; used after decoding an
// ambisonic order to apply the per-order energy-compensation table
// (AmbiScale.DecoderHFScaleNO) to the already-split high band.
func ApplyHFScale(samples []float32, hfscale float32) {
	for i := range samples {
		samples[i] *= hfscale
	}
}

// AllPass applies the splitter's phase shift without splitting the
// signal, for channels that must stay phase-coherent with a sibling
// channel that *was* split: a BandSplitter's low and high bands sum to
// AllPass's output at the same crossover.
type AllPass struct {
	coeff float32
	z1    float32
}

func NewAllPass(f0norm float32) AllPass {
	w := float32(math.Tan(float64(math.Pi * float64(f0norm))))
	return AllPass{coeff: (w - 1.0) / (w + 1.0)}
}

func (a *AllPass) Process(dst, src []float32) {
	coeff := a.coeff
	z1 := a.z1
	for i, in := range src {
		ap := coeff*in + z1
		z1 = in - coeff*ap
		dst[i] = ap
	}
	a.z1 = z1
}
