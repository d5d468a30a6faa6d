// render.go - bilinear HRTF lookup and dual-band binaural rendering
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package hrtf

import (
	"math"

	"github.com/IntuitionAmiga/alcore/internal/dsp"
)

// Coeffs is the bilinearly-interpolated pair of FIR coefficient sets and
// fractional delays for an arbitrary (non-measured) direction.
type Coeffs struct {
	CoeffsL []float32
	CoeffsR []float32
	DelayL  float64
	DelayR  float64
}

// Lookup bilinearly interpolates the four nearest measured directions
// (two elevation rings x two azimuths each) to synthesise coefficients
// for an arbitrary elevation/azimuth pair. Ported in shape from
// openal-soft's GetHrtfCoeffs (alc/hrtf.cpp): weight the four corners by
// their elevation/azimuth fractional distance and sum.
func (s *Store) Lookup(elevDeg, azimuthDeg float64) Coeffs {
	eLo, eHi, eFrac := s.nearestElevations(elevDeg)
	if len(s.Elevations) == 0 {
		return Coeffs{}
	}

	ringLo := s.Elevations[eLo]
	ringHi := s.Elevations[eHi]

	aLo0, aLo1, aLoFrac := nearestAzimuths(ringLo, azimuthDeg)
	aHi0, aHi1, aHiFrac := nearestAzimuths(ringHi, azimuthDeg)

	d00 := ringLo.Azimuths[aLo0]
	d01 := ringLo.Azimuths[aLo1]
	d10 := ringHi.Azimuths[aHi0]
	d11 := ringHi.Azimuths[aHi1]

	n := s.IRLength
	out := Coeffs{CoeffsL: make([]float32, n), CoeffsR: make([]float32, n)}

	wLo0 := (1 - aLoFrac) * (1 - eFrac)
	wLo1 := aLoFrac * (1 - eFrac)
	wHi0 := (1 - aHiFrac) * eFrac
	wHi1 := aHiFrac * eFrac

	for i := 0; i < n; i++ {
		out.CoeffsL[i] = float32(float64(d00.CoeffsL[i])*wLo0 + float64(d01.CoeffsL[i])*wLo1 +
			float64(d10.CoeffsL[i])*wHi0 + float64(d11.CoeffsL[i])*wHi1)
		out.CoeffsR[i] = float32(float64(d00.CoeffsR[i])*wLo0 + float64(d01.CoeffsR[i])*wLo1 +
			float64(d10.CoeffsR[i])*wHi0 + float64(d11.CoeffsR[i])*wHi1)
	}
	out.DelayL = float64(d00.DelayL)*wLo0 + float64(d01.DelayL)*wLo1 + float64(d10.DelayL)*wHi0 + float64(d11.DelayL)*wHi1
	out.DelayR = float64(d00.DelayR)*wLo0 + float64(d01.DelayR)*wLo1 + float64(d10.DelayR)*wHi0 + float64(d11.DelayR)*wHi1

	return out
}

// crossoverHz is the low/high band split point for the dual-band
// direct-path renderer, matching openal-soft's fixed 400Hz HRTF
// crossover (alc/hrtf.cpp's MinFdCount/ER/LF split).
const crossoverHz = 400.0

// groupDelaySamples is the high band's extra processing delay folded
// into the low band so both stay time-aligned, matching the reference's
// 16-sample HRTF group delay compensation.
const groupDelaySamples = 16

// maxITDSamples bounds the inter-aural time delay line; head-width ITDs
// at typical sample rates stay well under a millisecond, but a generous
// margin avoids clipping a directly-supplied (e.g. synthetic-test) delay.
const maxITDSamples = 64

// Renderer applies one voice's HRTF coefficients to a mono input,
// producing a stereo binaural output. It keeps per-voice delay-line and
// convolution-history state, so each voice needs its own Renderer.
type Renderer struct {
	Store      *Store
	sampleRate int
	splitter   dsp.BandSplitter
	fir        firState

	lowBuf, highBuf []float32
	lowDelay        []float32
	lowDelayPos     int
}

type firState struct {
	preDelayL, preDelayR []float32
	predelayPos          int
	historyL, historyR   []float32
}

// NewRenderer builds a renderer for the given store's sample rate and
// impulse response length.
func NewRenderer(store *Store) *Renderer {
	r := &Renderer{
		Store:      store,
		sampleRate: store.SampleRate,
		splitter:   dsp.NewBandSplitter(float32(crossoverHz) / float32(store.SampleRate)),
		lowDelay:   make([]float32, groupDelaySamples),
	}
	r.fir.preDelayL = make([]float32, maxITDSamples)
	r.fir.preDelayR = make([]float32, maxITDSamples)
	r.fir.historyL = make([]float32, store.IRLength)
	r.fir.historyR = make([]float32, store.IRLength)
	return r
}

// lowBandEarGain spreads the unfiltered low band equally across both
// ears without doubling its power.
const lowBandEarGain = 0.70710678

// Render convolves mono input against c's coefficients, applying the
// per-ear inter-aural delay (linearly interpolated between adjacent
// integer-sample taps of a small pre-delay ring) ahead of the FIR, and
// writes the resulting stereo pair into outL/outR. Processing is
// dual-band: only the band above crossoverHz passes through the HRIR;
// the low band bypasses HRTF colouration, delayed by the filter's group
// delay so the two bands stay time-aligned.
func (r *Renderer) Render(outL, outR, input []float32, c Coeffs) {
	if len(r.lowBuf) < len(input) {
		r.lowBuf = make([]float32, len(input))
		r.highBuf = make([]float32, len(input))
	}
	low := r.lowBuf[:len(input)]
	high := r.highBuf[:len(input)]
	r.splitter.Process(high, low, input)

	n := len(c.CoeffsL)
	f := &r.fir
	for i, in := range high {
		f.preDelayL[f.predelayPos] = in
		f.preDelayR[f.predelayPos] = in
		delayedL := readDelayed(f.preDelayL, f.predelayPos, c.DelayL)
		delayedR := readDelayed(f.preDelayR, f.predelayPos, c.DelayR)
		f.predelayPos = (f.predelayPos + 1) % len(f.preDelayL)

		copy(f.historyL, f.historyL[1:])
		copy(f.historyR, f.historyR[1:])
		f.historyL[n-1] = delayedL
		f.historyR[n-1] = delayedR

		var sumL, sumR float32
		for k := 0; k < n; k++ {
			sumL += f.historyL[k] * c.CoeffsL[n-1-k]
			sumR += f.historyR[k] * c.CoeffsR[n-1-k]
		}

		delayedLow := r.lowDelay[r.lowDelayPos]
		r.lowDelay[r.lowDelayPos] = low[i]
		r.lowDelayPos = (r.lowDelayPos + 1) % len(r.lowDelay)

		outL[i] = sumL + delayedLow*lowBandEarGain
		outR[i] = sumR + delayedLow*lowBandEarGain
	}
}

// readDelayed reads a linearly-interpolated sample delaySamples behind
// writePos in a circular buffer.
func readDelayed(ring []float32, writePos int, delaySamples float64) float32 {
	size := len(ring)
	d := math.Max(0, math.Min(delaySamples, float64(size-2)))
	whole := int(d)
	frac := float32(d - float64(whole))

	idx0 := ((writePos-whole)%size + size) % size
	idx1 := ((idx0-1)%size + size) % size
	return ring[idx0] + frac*(ring[idx1]-ring[idx0])
}
