// phaseshifter.go - IIR all-pass cascade 90-degree phase shifter
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package dsp

// PhaseShifter approximates a 90-degree (Hilbert transform) phase shift
// across the audio band using a cascade of first-order all-pass sections,
// two chains in parallel tuned so that chain A lags chain B by ~90
// degrees at all frequencies in range. Ported in shape from openal-soft's
// common/phase_shifter.h; used as the low-latency alternative to the
// windowed-sinc FIR shifter in the UHJ codec, selected by quality flag.
type PhaseShifter struct {
	coeffsA []float32
	coeffsB []float32
	stateA  []float32
	stateB  []float32
}

// Standard 4-stage all-pass coefficient sets approximating a wideband
// 90-degree split across the audible spectrum (coefficients normalised
// for a 44.1-48kHz class sample rate, matching the reference design).
var defaultPhaseCoeffsA = []float32{0.6923877, 0.9360654, 0.9882295, 0.9987488}
var defaultPhaseCoeffsB = []float32{0.4021921, 0.8561710, 0.9722910, 0.9952340}

// NewPhaseShifter builds a shifter using the default coefficient sets.
func NewPhaseShifter() *PhaseShifter {
	return &PhaseShifter{
		coeffsA: defaultPhaseCoeffsA,
		coeffsB: defaultPhaseCoeffsB,
		stateA:  make([]float32, len(defaultPhaseCoeffsA)*2),
		stateB:  make([]float32, len(defaultPhaseCoeffsB)*2),
	}
}

func processChain(coeffs, state []float32, dst, src []float32) {
	for i, in := range src {
		x := in
		for s := range coeffs {
			c := coeffs[s]
			z1 := state[s*2]
			y := c*(x-state[s*2+1]) + z1
			state[s*2] = x
			state[s*2+1] = y
			x = y
		}
		dst[i] = x
	}
}

// Split fills inPhase with the 0-degree chain output and quadrature with
// the 90-degree-lagged chain output, for the same input.
func (p *PhaseShifter) Split(inPhase, quadrature, src []float32) {
	processChain(p.coeffsA, p.stateA, inPhase, src)
	processChain(p.coeffsB, p.stateB, quadrature, src)
}

// Clear resets delay memory.
func (p *PhaseShifter) Clear() {
	for i := range p.stateA {
		p.stateA[i] = 0
	}
	for i := range p.stateB {
		p.stateB[i] = 0
	}
}
