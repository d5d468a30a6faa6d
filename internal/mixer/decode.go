// decode.go - dry bus to device output decode
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

// Package mixer implements the per-period mixer driver of spec.md §4.4:
// the seven-step loop (seqlock acquire, voice processing, effect slot
// processing, listener-scope post-processing, output decode, sample
// format conversion, seqlock release). Grounded on audio_chip.go's
// GenerateSample top-level orchestration (snapshot under lock, process,
// update state) generalised from one chip's fixed pipeline to a
// data-driven multi-stage driver.
package mixer

import (
	"github.com/IntuitionAmiga/alcore/internal/ambi"
	"github.com/IntuitionAmiga/alcore/internal/dsp"
)

// DecodeMode selects how the dry ambisonic bus becomes the device's real
// output channels, per spec.md §4.4 step 5.
type DecodeMode int

const (
	DecodeHRTF DecodeMode = iota
	DecodeMatrix
	DecodeUHJ
	DecodeStraight
)

// Decoder turns the dry bus into the device's output channel buffers.
type Decoder struct {
	Mode       DecodeMode
	MatrixDec  ambi.Matrix
	UHJEncoder *dsp.Encoder
}

// NewMatrixDecoder builds a decoder that renders the bus via a
// precomputed speaker-layout decode matrix (spec.md's "matrix ambisonic
// decoder; per speaker layout").
func NewMatrixDecoder(m ambi.Matrix) *Decoder {
	return &Decoder{Mode: DecodeMatrix, MatrixDec: m}
}

// NewUHJDecoder builds a decoder that encodes the first-order W/X/Y bus
// channels to a UHJ2 stereo pair.
func NewUHJDecoder(quality dsp.Quality) *Decoder {
	return &Decoder{Mode: DecodeUHJ, UHJEncoder: dsp.NewEncoder(quality)}
}

// NewStraightDecoder builds a decoder that copies bus channels straight
// to output, for native ambisonic output or loopback capture.
func NewStraightDecoder() *Decoder {
	return &Decoder{Mode: DecodeStraight}
}

// NewHRTFDecoder builds a decoder for binaural devices: HRTF voices have
// already accumulated ear signals into the first two bus lines (spec.md
// §4.1's HRTF direct mode), so the decode step is a straight copy of
// those two lines to the left/right outputs.
func NewHRTFDecoder() *Decoder {
	return &Decoder{Mode: DecodeHRTF}
}

// Decode renders busLines (one slice per ambisonic channel) into out
// (one slice per device output channel). The per-voice HRTF convolution
// itself happens during voice processing (it needs per-voice history the
// decode stage doesn't have); DecodeHRTF only lifts the two accumulated
// ear lines to the device outputs.
func (d *Decoder) Decode(out [][]float32, busLines [][]float32, frames int) {
	switch d.Mode {
	case DecodeHRTF:
		if len(out) < 2 || len(busLines) < 2 {
			return
		}
		for ear := 0; ear < 2; ear++ {
			n := frames
			if n > len(out[ear]) {
				n = len(out[ear])
			}
			if n > len(busLines[ear]) {
				n = len(busLines[ear])
			}
			copy(out[ear][:n], busLines[ear][:n])
		}
	case DecodeMatrix:
		for outCh := range out {
			if outCh >= len(d.MatrixDec) {
				continue
			}
			row := d.MatrixDec[outCh]
			for i := 0; i < frames && i < len(out[outCh]); i++ {
				var sum float32
				for busCh, coeff := range row {
					if busCh < len(busLines) && i < len(busLines[busCh]) {
						sum += busLines[busCh][i] * float32(coeff)
					}
				}
				out[outCh][i] = sum
			}
		}
	case DecodeUHJ:
		if len(out) < 2 || len(busLines) < 3 {
			return
		}
		d.UHJEncoder.EncodeStereo(out[0][:frames], out[1][:frames], busLines[0][:frames], busLines[3][:frames], busLines[1][:frames])
	case DecodeStraight:
		for ch := range out {
			if ch >= len(busLines) {
				continue
			}
			n := frames
			if n > len(out[ch]) {
				n = len(out[ch])
			}
			if n > len(busLines[ch]) {
				n = len(busLines[ch])
			}
			copy(out[ch][:n], busLines[ch][:n])
		}
	}
}
