// convolution.go - FFT-backed convolution reverb kernel
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package effect

import "github.com/IntuitionAmiga/alcore/internal/dsp"

// Convolution applies an impulse response via segmented overlap-add
// using dsp.FFT, standing in for the reference's PFFFT-backed
// convolution reverb.
type Convolution struct {
	IR [][]float32 // one impulse response per channel

	blockLen int
	fft      *dsp.FFT
	tails    [][]float32 // per-channel overlap carry
	irSpec   [][]complex128
	block    []complex128 // scratch reused across Process calls
	nextTail []float32
}

func NewConvolution(ir [][]float32) *Convolution {
	return &Convolution{IR: ir}
}

func (c *Convolution) DeviceUpdate(info DeviceInfo) {
	maxLen := 0
	for _, ir := range c.IR {
		if len(ir) > maxLen {
			maxLen = len(ir)
		}
	}
	if maxLen == 0 {
		maxLen = 1
	}
	blockLen := dsp.NextFastLen(maxLen * 2)
	c.blockLen = blockLen
	c.fft = dsp.NewFFT(blockLen)

	c.irSpec = make([][]complex128, len(c.IR))
	for ch, ir := range c.IR {
		spec := make([]complex128, blockLen)
		for i, s := range ir {
			spec[i] = complex(float64(s), 0)
		}
		c.fft.Forward(spec)
		c.irSpec[ch] = spec
	}
	c.tails = make([][]float32, len(c.IR))
	for i := range c.tails {
		c.tails[i] = make([]float32, blockLen)
	}
	c.block = make([]complex128, blockLen)
	c.nextTail = make([]float32, blockLen)
}

// Update is a no-op: Convolution's only parameter is the impulse
// response itself (IR), set at construction and applied via
// DeviceUpdate, not a scalar DSP parameter.
func (c *Convolution) Update(params map[string]float32) {}

func (c *Convolution) Process(frames int, input [][]float32, output [][]float32) {
	for ch := 0; ch < len(input) && ch < len(output) && ch < len(c.irSpec); ch++ {
		in, out := input[ch], output[ch]
		n := frames
		if n > len(in) {
			n = len(in)
		}
		if n > len(out) {
			n = len(out)
		}
		if n == 0 || c.blockLen == 0 {
			continue
		}

		block := c.block
		for i := range block {
			block[i] = 0
		}
		for i := 0; i < n; i++ {
			block[i] = complex(float64(in[i]), 0)
		}
		c.fft.Forward(block)
		for i := range block {
			block[i] *= c.irSpec[ch][i]
		}
		c.fft.Inverse(block)

		tail := c.tails[ch]
		for i := 0; i < n; i++ {
			sum := float32(real(block[i])) + tail[i]
			out[i] = sum
		}
		newTail := c.nextTail
		for i := 0; i < c.blockLen-n; i++ {
			newTail[i] = float32(real(block[i+n])) + tail[i+n]
		}
		for i := c.blockLen - n; i < c.blockLen; i++ {
			newTail[i] = 0
		}
		c.tails[ch], c.nextTail = newTail, tail
	}
}
