// distortion.go - tanh-LUT overdrive kernel
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package effect

import "github.com/IntuitionAmiga/alcore/internal/dsp"

// Distortion is a soft-clip overdrive using dsp.FastTanh, the same
// lookup-table saturation stage audio_chip.go's GenerateSample applies
// after its filter, generalised here to an N-channel effect kernel.
type Distortion struct {
	Drive float32 // pre-gain applied before saturation
	Mix   float32 // 0 = dry, 1 = fully wet
}

func NewDistortion() *Distortion {
	return &Distortion{Drive: 2, Mix: 1}
}

func (d *Distortion) DeviceUpdate(info DeviceInfo) {}

// Update applies "drive" and "mix" parameter changes ahead of the
// next Process call.
func (d *Distortion) Update(params map[string]float32) {
	if v, ok := params["drive"]; ok {
		d.Drive = v
	}
	if v, ok := params["mix"]; ok {
		d.Mix = v
	}
}

func (d *Distortion) Process(frames int, input [][]float32, output [][]float32) {
	for ch := 0; ch < len(input) && ch < len(output); ch++ {
		in, out := input[ch], output[ch]
		for i := 0; i < frames && i < len(in) && i < len(out); i++ {
			wet := dsp.FastTanh(in[i] * d.Drive)
			out[i] = in[i]*(1-d.Mix) + wet*d.Mix
		}
	}
}
