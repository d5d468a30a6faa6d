// reverb.go - Schroeder comb/allpass reverb kernel
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package effect

// Reverb is a classic Schroeder reverb: four parallel feedback comb
// filters summed together, then two series allpass filters, preceded by
// a short pre-delay line. Ported in shape from audio_chip.go's
// SoundChip.applyReverb, generalised from "stereo chip output" to
// "N-channel ambisonic bus, one reverb tank per channel".
type Reverb struct {
	sampleRate int
	channels   int
	tanks      []reverbTank

	PreDelayMs float32
	RoomSize   float32 // 0..1, scales comb feedback
	Damping    float32 // 0..1, high-frequency damping per comb
	Gain       float32
}

type reverbTank struct {
	preDelay    []float32
	preDelayPos int

	combs   [4]combFilter
	allpass [2]allpassFilter
}

// combDelaysMs and allpassDelaysMs are the classic Schroeder/Moorer tank
// tunings (prime-ish, mutually non-harmonic delay lengths), the same
// shape of constants audio_chip.go's applyReverb uses for its four comb
// and two allpass stages.
var combDelaysMs = [4]float32{29.7, 37.1, 41.1, 43.7}
var allpassDelaysMs = [2]float32{5.0, 1.7}

// NewReverb builds a reverb kernel; DeviceUpdate sizes it for the bus's
// ambisonic channel count.
func NewReverb() *Reverb {
	return &Reverb{
		PreDelayMs: 20,
		RoomSize:   0.5,
		Damping:    0.5,
		Gain:       1,
	}
}

func (r *Reverb) DeviceUpdate(info DeviceInfo) {
	r.sampleRate = info.SampleRate
	r.channels = info.ChannelCount
	r.tanks = make([]reverbTank, r.channels)
	for i := range r.tanks {
		t := &r.tanks[i]
		t.preDelay = make([]float32, msToSamples(r.PreDelayMs, r.sampleRate)+1)
		for c := range t.combs {
			t.combs[c] = newCombFilter(msToSamples(combDelaysMs[c], r.sampleRate))
		}
		for a := range t.allpass {
			t.allpass[a] = newAllpassFilter(msToSamples(allpassDelaysMs[a], r.sampleRate))
		}
	}
}

func msToSamples(ms float32, sampleRate int) int {
	n := int(ms * float32(sampleRate) / 1000.0)
	if n < 1 {
		n = 1
	}
	return n
}

// Update applies "room_size", "damping" and "gain" parameter changes
// ahead of the next Process call. "pre_delay_ms" is also stored but
// only takes effect on the next DeviceUpdate, since it resizes the
// pre-delay buffer allocated there.
func (r *Reverb) Update(params map[string]float32) {
	if v, ok := params["room_size"]; ok {
		r.RoomSize = v
	}
	if v, ok := params["damping"]; ok {
		r.Damping = v
	}
	if v, ok := params["gain"]; ok {
		r.Gain = v
	}
	if v, ok := params["pre_delay_ms"]; ok {
		r.PreDelayMs = v
	}
}

func (r *Reverb) Process(frames int, input [][]float32, output [][]float32) {
	feedback := 0.28 + 0.7*clamp01(r.RoomSize)
	damp := clamp01(r.Damping)

	for ch := 0; ch < len(input) && ch < len(r.tanks); ch++ {
		t := &r.tanks[ch]
		in := input[ch]
		var out []float32
		if ch < len(output) {
			out = output[ch]
		}
		for i := 0; i < frames; i++ {
			var x float32
			if i < len(in) {
				x = in[i]
			}

			t.preDelay[t.preDelayPos] = x
			delayed := t.preDelay[(t.preDelayPos+1)%len(t.preDelay)]
			t.preDelayPos = (t.preDelayPos + 1) % len(t.preDelay)

			var sum float32
			for c := range t.combs {
				sum += t.combs[c].process(delayed, feedback, damp)
			}
			sum *= 0.25

			for a := range t.allpass {
				sum = t.allpass[a].process(sum, 0.5)
			}

			if out != nil && i < len(out) {
				out[i] = sum * r.Gain
			}
		}
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type combFilter struct {
	buf     []float32
	pos     int
	lowpass float32
}

func newCombFilter(delaySamples int) combFilter {
	return combFilter{buf: make([]float32, delaySamples)}
}

func (c *combFilter) process(in, feedback, damp float32) float32 {
	out := c.buf[c.pos]
	c.lowpass = out*(1-damp) + c.lowpass*damp
	c.buf[c.pos] = in + c.lowpass*feedback
	c.pos = (c.pos + 1) % len(c.buf)
	return out
}

type allpassFilter struct {
	buf []float32
	pos int
}

func newAllpassFilter(delaySamples int) allpassFilter {
	return allpassFilter{buf: make([]float32, delaySamples)}
}

func (a *allpassFilter) process(in, gain float32) float32 {
	bufOut := a.buf[a.pos]
	out := -gain*in + bufOut
	a.buf[a.pos] = in + bufOut*gain
	a.pos = (a.pos + 1) % len(a.buf)
	return out
}
