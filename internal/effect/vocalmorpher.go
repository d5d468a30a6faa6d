// vocalmorpher.go - formant-shift vocal morpher kernel
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package effect

import "github.com/IntuitionAmiga/alcore/internal/dsp"

// VocalMorpher approximates a formant shift by cascading two resonant
// bandpass biquads whose centre frequencies track a slow LFO, giving a
// cheap vowel-morphing effect without a full channel-vocoder.
type VocalMorpher struct {
	RateHz     float32
	LowFreqHz  float32
	HighFreqHz float32

	bands      []morpherBand
	lfos       []*lfo
	sampleRate int
}

type morpherBand struct {
	bp1, bp2 dsp.Biquad
}

func NewVocalMorpher() *VocalMorpher {
	return &VocalMorpher{RateHz: 1.5, LowFreqHz: 500, HighFreqHz: 2500}
}

func (m *VocalMorpher) DeviceUpdate(info DeviceInfo) {
	m.sampleRate = info.SampleRate
	m.bands = make([]morpherBand, info.ChannelCount)
	m.lfos = make([]*lfo, info.ChannelCount)
	for i := range m.lfos {
		m.lfos[i] = newLFO(m.RateHz, info.SampleRate)
	}
}

// Update applies "rate_hz", "low_freq_hz" and "high_freq_hz"
// parameter changes ahead of the next Process call.
func (m *VocalMorpher) Update(params map[string]float32) {
	if v, ok := params["low_freq_hz"]; ok {
		m.LowFreqHz = v
	}
	if v, ok := params["high_freq_hz"]; ok {
		m.HighFreqHz = v
	}
	if v, ok := params["rate_hz"]; ok {
		m.RateHz = v
		for _, osc := range m.lfos {
			osc.setRate(v, m.sampleRate)
		}
	}
}

func (m *VocalMorpher) Process(frames int, input [][]float32, output [][]float32) {
	sr := float32(m.sampleRate)
	for ch := 0; ch < len(input) && ch < len(output) && ch < len(m.bands); ch++ {
		in, out := input[ch], output[ch]
		b := &m.bands[ch]
		osc := m.lfos[ch]
		n := frames
		if n > len(in) {
			n = len(in)
		}
		if n > len(out) {
			n = len(out)
		}
		for i := 0; i < n; i++ {
			t := (osc.next() + 1) * 0.5
			freq := m.LowFreqHz + t*(m.HighFreqHz-m.LowFreqHz)
			b.bp1.SetParams(dsp.BiquadBandPass, 1, freq/sr, 4)
			b.bp2.SetParams(dsp.BiquadBandPass, 1, freq*1.8/sr, 4)

			one := [1]float32{in[i]}
			var stage [1]float32
			b.bp1.Process(stage[:], one[:])
			var stage2 [1]float32
			b.bp2.Process(stage2[:], stage[:])
			out[i] = stage2[0]
		}
	}
}
