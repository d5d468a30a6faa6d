// autowah.go - envelope-following bandpass wah kernel
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package effect

import "github.com/IntuitionAmiga/alcore/internal/dsp"

// AutoWah sweeps a resonant bandpass filter's centre frequency with the
// input's amplitude envelope, the classic envelope-follower wah.
type AutoWah struct {
	LowFreqHz, HighFreqHz float32
	AttackMs, ReleaseMs   float32
	Resonance             float32

	filters     []dsp.Biquad
	envelope    []float32
	attackCoef  float32
	releaseCoef float32
	sampleRate  int
}

func NewAutoWah() *AutoWah {
	return &AutoWah{LowFreqHz: 300, HighFreqHz: 3000, AttackMs: 3, ReleaseMs: 100, Resonance: 6}
}

func (a *AutoWah) DeviceUpdate(info DeviceInfo) {
	a.sampleRate = info.SampleRate
	a.filters = make([]dsp.Biquad, info.ChannelCount)
	a.envelope = make([]float32, info.ChannelCount)
	a.attackCoef = timeConstant(a.AttackMs, info.SampleRate)
	a.releaseCoef = timeConstant(a.ReleaseMs, info.SampleRate)
}

// Update applies "low_freq_hz", "high_freq_hz", "attack_ms",
// "release_ms" and "resonance" parameter changes ahead of the next
// Process call, recomputing the envelope follower's time constants
// when the attack/release times change.
func (a *AutoWah) Update(params map[string]float32) {
	if v, ok := params["low_freq_hz"]; ok {
		a.LowFreqHz = v
	}
	if v, ok := params["high_freq_hz"]; ok {
		a.HighFreqHz = v
	}
	if v, ok := params["resonance"]; ok {
		a.Resonance = v
	}
	if v, ok := params["attack_ms"]; ok {
		a.AttackMs = v
		a.attackCoef = timeConstant(a.AttackMs, a.sampleRate)
	}
	if v, ok := params["release_ms"]; ok {
		a.ReleaseMs = v
		a.releaseCoef = timeConstant(a.ReleaseMs, a.sampleRate)
	}
}

func (a *AutoWah) Process(frames int, input [][]float32, output [][]float32) {
	sr := float32(a.sampleRate)
	for ch := 0; ch < len(input) && ch < len(output) && ch < len(a.filters); ch++ {
		in, out := input[ch], output[ch]
		f := &a.filters[ch]
		env := a.envelope[ch]
		n := frames
		if n > len(in) {
			n = len(in)
		}
		if n > len(out) {
			n = len(out)
		}
		for i := 0; i < n; i++ {
			rect := in[i]
			if rect < 0 {
				rect = -rect
			}
			coef := a.releaseCoef
			if rect > env {
				coef = a.attackCoef
			}
			env = rect + coef*(env-rect)

			freq := a.LowFreqHz + clamp01(env)*(a.HighFreqHz-a.LowFreqHz)
			f.SetParams(dsp.BiquadBandPass, 1, freq/sr, a.Resonance)
			one := [1]float32{in[i]}
			var stage [1]float32
			f.Process(stage[:], one[:])
			out[i] = stage[0]
		}
		a.envelope[ch] = env
	}
}
