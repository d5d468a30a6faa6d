// ringmod.go - ring modulator and frequency shifter kernels
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package effect

import "github.com/IntuitionAmiga/alcore/internal/dsp"

// RingModulator multiplies the input by a sine carrier, reusing the
// teacher's ringModSource multiply idiom from Channel.generateSample
// (there applied channel-to-channel; here the carrier is a dedicated
// oscillator rather than another voice).
type RingModulator struct {
	FrequencyHz float32
	Mix         float32

	phase      []float32
	sampleRate int
}

func NewRingModulator() *RingModulator {
	return &RingModulator{FrequencyHz: 45, Mix: 1}
}

func (r *RingModulator) DeviceUpdate(info DeviceInfo) {
	r.sampleRate = info.SampleRate
	r.phase = make([]float32, info.ChannelCount)
}

// Update applies "frequency_hz" and "mix" parameter changes ahead of
// the next Process call.
func (r *RingModulator) Update(params map[string]float32) {
	if v, ok := params["frequency_hz"]; ok {
		r.FrequencyHz = v
	}
	if v, ok := params["mix"]; ok {
		r.Mix = v
	}
}

func (r *RingModulator) Process(frames int, input [][]float32, output [][]float32) {
	step := r.FrequencyHz * dsp.TwoPi / float32(r.sampleRate)
	for ch := 0; ch < len(input) && ch < len(output) && ch < len(r.phase); ch++ {
		in, out := input[ch], output[ch]
		phase := r.phase[ch]
		for i := 0; i < frames && i < len(in) && i < len(out); i++ {
			carrier := dsp.FastSin(phase)
			phase += step
			if phase >= dsp.TwoPi {
				phase -= dsp.TwoPi
			}
			out[i] = in[i]*(1-r.Mix) + in[i]*carrier*r.Mix
		}
		r.phase[ch] = phase
	}
}

// FrequencyShifter shifts the input spectrum by a fixed Hz offset using
// a single-sideband modulator built from the dsp phase shifter's
// quadrature split (same 90-degree-pair technique the UHJ codec uses).
type FrequencyShifter struct {
	ShiftHz float32

	shifters   []*dsp.PhaseShifter
	phase      []float32
	sampleRate int
	inPhaseBuf [][]float32
	quadBuf    [][]float32
}

func NewFrequencyShifter() *FrequencyShifter {
	return &FrequencyShifter{ShiftHz: 20}
}

func (f *FrequencyShifter) DeviceUpdate(info DeviceInfo) {
	f.sampleRate = info.SampleRate
	f.shifters = make([]*dsp.PhaseShifter, info.ChannelCount)
	f.phase = make([]float32, info.ChannelCount)
	f.inPhaseBuf = make([][]float32, info.ChannelCount)
	f.quadBuf = make([][]float32, info.ChannelCount)
	for i := range f.shifters {
		f.shifters[i] = dsp.NewPhaseShifter()
	}
}

// Update applies a "shift_hz" parameter change ahead of the next
// Process call.
func (f *FrequencyShifter) Update(params map[string]float32) {
	if v, ok := params["shift_hz"]; ok {
		f.ShiftHz = v
	}
}

func (f *FrequencyShifter) Process(frames int, input [][]float32, output [][]float32) {
	step := f.ShiftHz * dsp.TwoPi / float32(f.sampleRate)
	for ch := 0; ch < len(input) && ch < len(output) && ch < len(f.shifters); ch++ {
		in, out := input[ch], output[ch]
		n := frames
		if n > len(in) {
			n = len(in)
		}
		if n > len(out) {
			n = len(out)
		}
		if len(f.inPhaseBuf[ch]) < n {
			f.inPhaseBuf[ch] = make([]float32, n)
			f.quadBuf[ch] = make([]float32, n)
		}
		inPhase := f.inPhaseBuf[ch][:n]
		quad := f.quadBuf[ch][:n]
		f.shifters[ch].Split(inPhase, quad, in[:n])

		phase := f.phase[ch]
		for i := 0; i < n; i++ {
			c := dsp.FastSin(phase + dsp.TwoPi/4)
			s := dsp.FastSin(phase)
			phase += step
			if phase >= dsp.TwoPi {
				phase -= dsp.TwoPi
			}
			out[i] = inPhase[i]*c - quad[i]*s
		}
		f.phase[ch] = phase
	}
}
