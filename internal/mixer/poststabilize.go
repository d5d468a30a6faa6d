// poststabilize.go - front stabiliser and HF compensation shelf
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package mixer

import (
	"github.com/IntuitionAmiga/alcore/internal/ambi"
	"github.com/IntuitionAmiga/alcore/internal/dsp"
)

// FrontStabilizer widens the phantom centre image to reduce off-axis
// comb-filtering between the front-left/front-right channels, ported in
// shape from original_source/alc/front_stablizer.h: split the centre
// content out of left/right via an allpass-derived band split and
// re-inject it with a small spread.
type FrontStabilizer struct {
	splitL, splitR dsp.BandSplitter

	lowL, lowR, highL, highR []float32
}

// NewFrontStabilizer builds a stabiliser crossing over at 5kHz, matching
// the reference's fixed split point.
func NewFrontStabilizer(sampleRate int) *FrontStabilizer {
	f0 := float32(5000) / float32(sampleRate)
	return &FrontStabilizer{
		splitL: dsp.NewBandSplitter(f0),
		splitR: dsp.NewBandSplitter(f0),
		lowL:   make([]float32, BufferLineSize),
		lowR:   make([]float32, BufferLineSize),
		highL:  make([]float32, BufferLineSize),
		highR:  make([]float32, BufferLineSize),
	}
}

// Process widens the stereo image in place; left/right must be the two
// decoded front output channels, so the driver runs this after the
// matrix decode stage.
func (f *FrontStabilizer) Process(left, right []float32, frames int) {
	lowL := f.lowL[:frames]
	lowR := f.lowR[:frames]
	highL := f.highL[:frames]
	highR := f.highR[:frames]
	f.splitL.Process(highL, lowL, left[:frames])
	f.splitR.Process(highR, lowR, right[:frames])

	for i := 0; i < frames; i++ {
		centre := (lowL[i] + lowR[i]) * 0.5
		side := (lowL[i] - lowR[i]) * 0.5
		widened := side * 1.15
		left[i] = centre + widened + highL[i]
		right[i] = centre - widened + highR[i]
	}
}

// HFCompensation applies the per-order DecoderHFScale shelf to a decoded
// ambisonic bus ahead of matrix decode, so higher ambisonic orders don't
// lose energy relative to lower ones once decoded to a fixed speaker
// layout (spec.md §4.4 step 4's "HF compensation shelf").
func HFCompensation(busLines [][]float32, order int, frames int) {
	var scales []float64
	switch order {
	case 1:
		scales = ambi.DecoderHFScale1O[:]
	case 2:
		scales = ambi.DecoderHFScale2O[:]
	default:
		scales = ambi.DecoderHFScale3O[:]
	}
	for ch := range busLines {
		// ACN channel ch belongs to order floor(sqrt(ch)); every channel
		// of a band shares its order's scale.
		scaleIdx := ambiChannelOrder(ch)
		if scaleIdx >= len(scales) {
			scaleIdx = len(scales) - 1
		}
		dsp.ApplyHFScale(busLines[ch][:frames], float32(scales[scaleIdx]))
	}
}

func ambiChannelOrder(ch int) int {
	o := 0
	for (o+1)*(o+1) <= ch {
		o++
	}
	return o
}
