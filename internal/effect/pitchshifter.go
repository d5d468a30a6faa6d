// pitchshifter.go - simple granular pitch shifter kernel
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package effect

import "math"

// PitchShifter is a small overlap-add granular shifter: two read heads
// into a circular buffer, 180 degrees out of phase, crossfaded, each
// advancing at semitoneRatio instead of 1 sample per output sample.
type PitchShifter struct {
	SemitoneShift float32
	grainMs       float32

	bufs       []*delayLine
	readPos    []float32
	grainLen   int
	sampleRate int
}

func NewPitchShifter() *PitchShifter {
	return &PitchShifter{SemitoneShift: 0, grainMs: 40}
}

func (p *PitchShifter) DeviceUpdate(info DeviceInfo) {
	p.sampleRate = info.SampleRate
	p.grainLen = msToSamples(p.grainMs, info.SampleRate)
	p.bufs = make([]*delayLine, info.ChannelCount)
	p.readPos = make([]float32, info.ChannelCount)
	for i := range p.bufs {
		p.bufs[i] = newDelayLine(p.grainLen * 4)
	}
}

// Update applies a "semitone_shift" parameter change ahead of the
// next Process call.
func (p *PitchShifter) Update(params map[string]float32) {
	if v, ok := params["semitone_shift"]; ok {
		p.SemitoneShift = v
	}
}

func (p *PitchShifter) Process(frames int, input [][]float32, output [][]float32) {
	ratio := float32(math.Pow(2, float64(p.SemitoneShift)/12.0))
	half := float32(p.grainLen) / 2

	for ch := 0; ch < len(input) && ch < len(output) && ch < len(p.bufs); ch++ {
		in, out := input[ch], output[ch]
		buf := p.bufs[ch]
		pos := p.readPos[ch]
		for i := 0; i < frames && i < len(in) && i < len(out); i++ {
			buf.write(in[i])

			posB := pos + half
			for posB >= float32(p.grainLen) {
				posB -= float32(p.grainLen)
			}
			a := buf.read(pos)
			b := buf.read(posB)

			envA := grainEnvelope(pos, float32(p.grainLen))
			envB := grainEnvelope(posB, float32(p.grainLen))

			out[i] = a*envA + b*envB

			pos += ratio
			for pos >= float32(p.grainLen) {
				pos -= float32(p.grainLen)
			}
		}
		p.readPos[ch] = pos
	}
}

// grainEnvelope is a triangular window peaking at the grain's midpoint,
// used to crossfade the two overlapping read heads.
func grainEnvelope(pos, length float32) float32 {
	t := pos / length
	if t < 0.5 {
		return t * 2
	}
	return (1 - t) * 2
}
