// echo.go - feedback delay echo kernel
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package effect

// Echo is a single feedback delay tap per channel, reusing delayLine.
type Echo struct {
	DelayMs  float32
	Feedback float32
	Mix      float32

	lines      []*delayLine
	sampleRate int
}

func NewEcho() *Echo {
	return &Echo{DelayMs: 250, Feedback: 0.4, Mix: 0.4}
}

func (e *Echo) DeviceUpdate(info DeviceInfo) {
	e.sampleRate = info.SampleRate
	maxDelay := msToSamples(e.DelayMs+1, info.SampleRate)
	e.lines = make([]*delayLine, info.ChannelCount)
	for i := range e.lines {
		e.lines[i] = newDelayLine(maxDelay)
	}
}

// Update applies "delay_ms", "feedback" and "mix" parameter changes
// ahead of the next Process call. DelayMs beyond the buffer sized in
// DeviceUpdate is clamped by delayLine.read rather than rejected.
func (e *Echo) Update(params map[string]float32) {
	if v, ok := params["delay_ms"]; ok {
		e.DelayMs = v
	}
	if v, ok := params["feedback"]; ok {
		e.Feedback = v
	}
	if v, ok := params["mix"]; ok {
		e.Mix = v
	}
}

func (e *Echo) Process(frames int, input [][]float32, output [][]float32) {
	delaySamples := e.DelayMs * float32(e.sampleRate) / 1000.0
	for ch := 0; ch < len(input) && ch < len(output) && ch < len(e.lines); ch++ {
		in, out := input[ch], output[ch]
		line := e.lines[ch]
		for i := 0; i < frames && i < len(in) && i < len(out); i++ {
			tapped := line.read(delaySamples)
			line.write(in[i] + tapped*e.Feedback)
			out[i] = in[i]*(1-e.Mix) + tapped*e.Mix
		}
	}
}
