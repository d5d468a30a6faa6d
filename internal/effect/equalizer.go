// equalizer.go - three-band parametric equaliser kernel
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package effect

import "github.com/IntuitionAmiga/alcore/internal/dsp"

// Equalizer is a three-band EQ (low shelf, mid peak, high shelf) built
// directly on dsp.Biquad, one set of three bands per channel.
type Equalizer struct {
	LowGain, LowFreqHz       float32
	MidGain, MidFreqHz, MidQ float32
	HighGain, HighFreqHz     float32

	bands      []eqBands
	sampleRate int
	scratch    []float32
}

type eqBands struct {
	low, mid, high dsp.Biquad
}

func NewEqualizer() *Equalizer {
	return &Equalizer{
		LowGain: 1, LowFreqHz: 200,
		MidGain: 1, MidFreqHz: 1000, MidQ: 1,
		HighGain: 1, HighFreqHz: 6000,
	}
}

func (e *Equalizer) DeviceUpdate(info DeviceInfo) {
	e.sampleRate = info.SampleRate
	e.bands = make([]eqBands, info.ChannelCount)
	for i := range e.bands {
		e.reconfigure(&e.bands[i])
	}
}

func (e *Equalizer) reconfigure(b *eqBands) {
	sr := float32(e.sampleRate)
	b.low.SetParams(dsp.BiquadLowShelf, e.LowGain, e.LowFreqHz/sr, 0.707)
	b.mid.SetParams(dsp.BiquadPeaking, e.MidGain, e.MidFreqHz/sr, e.MidQ)
	b.high.SetParams(dsp.BiquadHighShelf, e.HighGain, e.HighFreqHz/sr, 0.707)
}

// Update applies low/mid/high band parameter changes ahead of the
// next Process call, reconfiguring every channel's biquads.
func (e *Equalizer) Update(params map[string]float32) {
	if v, ok := params["low_gain"]; ok {
		e.LowGain = v
	}
	if v, ok := params["low_freq_hz"]; ok {
		e.LowFreqHz = v
	}
	if v, ok := params["mid_gain"]; ok {
		e.MidGain = v
	}
	if v, ok := params["mid_freq_hz"]; ok {
		e.MidFreqHz = v
	}
	if v, ok := params["mid_q"]; ok {
		e.MidQ = v
	}
	if v, ok := params["high_gain"]; ok {
		e.HighGain = v
	}
	if v, ok := params["high_freq_hz"]; ok {
		e.HighFreqHz = v
	}
	for i := range e.bands {
		e.reconfigure(&e.bands[i])
	}
}

func (e *Equalizer) Process(frames int, input [][]float32, output [][]float32) {
	if len(e.scratch) < frames {
		e.scratch = make([]float32, frames)
	}
	tmp := e.scratch[:frames]
	for ch := 0; ch < len(input) && ch < len(output) && ch < len(e.bands); ch++ {
		b := &e.bands[ch]
		in, out := input[ch], output[ch]
		n := frames
		if n > len(in) {
			n = len(in)
		}
		if n > len(out) {
			n = len(out)
		}
		b.low.Process(tmp[:n], in[:n])
		b.mid.Process(tmp[:n], tmp[:n])
		b.high.Process(out[:n], tmp[:n])
	}
}
