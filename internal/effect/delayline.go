// delayline.go - shared modulated delay-line machinery
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package effect

import "math"

// delayLine is a circular sample buffer read with linear interpolation
// at a (possibly fractional, possibly time-varying) delay, the shared
// building block behind Chorus, Flanger and Echo - the same delay-line
// idiom audio_chip.go's reverb comb/allpass filters use, generalised to
// support a fractional, modulated read position.
type delayLine struct {
	buf []float32
	pos int
}

func newDelayLine(maxDelaySamples int) *delayLine {
	return &delayLine{buf: make([]float32, maxDelaySamples)}
}

func (d *delayLine) write(sample float32) {
	d.buf[d.pos] = sample
	d.pos = (d.pos + 1) % len(d.buf)
}

func (d *delayLine) read(delaySamples float32) float32 {
	size := len(d.buf)
	delaySamples = float32(math.Max(0, math.Min(float64(delaySamples), float64(size-2))))
	whole := int(delaySamples)
	frac := delaySamples - float32(whole)

	i0 := ((d.pos-whole)%size + size) % size
	i1 := ((i0-1)%size + size) % size
	return d.buf[i0] + frac*(d.buf[i1]-d.buf[i0])
}

// lfo is a simple sine low-frequency oscillator used to modulate delay
// lines (chorus/flanger depth) and ring-mod-style kernels.
type lfo struct {
	phase float32
	step  float32
}

func newLFO(rateHz float32, sampleRate int) *lfo {
	return &lfo{step: rateHz / float32(sampleRate)}
}

func (l *lfo) setRate(rateHz float32, sampleRate int) {
	l.step = rateHz / float32(sampleRate)
}

func (l *lfo) next() float32 {
	v := float32(math.Sin(2 * math.Pi * float64(l.phase)))
	l.phase += l.step
	if l.phase >= 1 {
		l.phase -= 1
	}
	return v
}
