// nullfx.go - passthrough kernel
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package effect

// NullEffect copies input straight to output, used for slots created
// without a kernel assigned yet and for the "none" effect type.
type NullEffect struct{}

func (NullEffect) DeviceUpdate(info DeviceInfo) {}

func (NullEffect) Update(params map[string]float32) {}

func (NullEffect) Process(frames int, input [][]float32, output [][]float32) {
	for ch := 0; ch < len(input) && ch < len(output); ch++ {
		in, out := input[ch], output[ch]
		n := frames
		if n > len(in) {
			n = len(in)
		}
		if n > len(out) {
			n = len(out)
		}
		copy(out[:n], in[:n])
	}
}
