// chorus.go - modulated delay-line chorus/flanger kernel
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package effect

// Chorus mixes a dry signal with one or more LFO-modulated delay taps,
// producing a chorus (long base delay, shallow depth) or flanger (short
// base delay, feedback) depending on parameters. Reuses delayLine/lfo.
type Chorus struct {
	BaseDelayMs float32
	DepthMs     float32
	RateHz      float32
	Feedback    float32 // >0 turns chorus into flanger
	Mix         float32

	lines      []*delayLine
	lfos       []*lfo
	sampleRate int
}

func NewChorus() *Chorus {
	return &Chorus{BaseDelayMs: 15, DepthMs: 3, RateHz: 0.8, Mix: 0.5}
}

func NewFlanger() *Chorus {
	return &Chorus{BaseDelayMs: 2, DepthMs: 1, RateHz: 0.25, Feedback: 0.4, Mix: 0.5}
}

func (c *Chorus) DeviceUpdate(info DeviceInfo) {
	c.sampleRate = info.SampleRate
	maxDelay := msToSamples(c.BaseDelayMs+c.DepthMs+2, info.SampleRate)
	c.lines = make([]*delayLine, info.ChannelCount)
	c.lfos = make([]*lfo, info.ChannelCount)
	for i := range c.lines {
		c.lines[i] = newDelayLine(maxDelay)
		c.lfos[i] = newLFO(c.RateHz, info.SampleRate)
	}
}

// Update applies "base_delay_ms", "depth_ms", "rate_hz", "feedback"
// and "mix" parameter changes ahead of the next Process call.
func (c *Chorus) Update(params map[string]float32) {
	if v, ok := params["base_delay_ms"]; ok {
		c.BaseDelayMs = v
	}
	if v, ok := params["depth_ms"]; ok {
		c.DepthMs = v
	}
	if v, ok := params["feedback"]; ok {
		c.Feedback = v
	}
	if v, ok := params["mix"]; ok {
		c.Mix = v
	}
	if v, ok := params["rate_hz"]; ok {
		c.RateHz = v
		for _, osc := range c.lfos {
			osc.setRate(v, c.sampleRate)
		}
	}
}

func (c *Chorus) Process(frames int, input [][]float32, output [][]float32) {
	baseSamples := c.BaseDelayMs * float32(c.sampleRate) / 1000.0
	depthSamples := c.DepthMs * float32(c.sampleRate) / 1000.0

	for ch := 0; ch < len(input) && ch < len(output) && ch < len(c.lines); ch++ {
		in, out := input[ch], output[ch]
		line, osc := c.lines[ch], c.lfos[ch]
		for i := 0; i < frames && i < len(in) && i < len(out); i++ {
			mod := osc.next()
			delay := baseSamples + depthSamples*mod
			tapped := line.read(delay)
			line.write(in[i] + tapped*c.Feedback)
			out[i] = in[i]*(1-c.Mix) + tapped*c.Mix
		}
	}
}
