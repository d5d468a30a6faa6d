// driver.go - the per-period mixer driver (spec.md §4.4)
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package mixer

import (
	"sync/atomic"

	"github.com/IntuitionAmiga/alcore/internal/effect"
	"github.com/IntuitionAmiga/alcore/internal/voice"
)

// BufferLineSize is the fixed per-iteration frame count of one ambisonic
// bus line, matching spec.md's FloatBufferLine definition.
const BufferLineSize = 1024

// MaxAmbiChannels is the largest ambisonic channel count the bus
// supports (third order, 16 ACN channels).
const MaxAmbiChannels = 16

// VoiceSource pairs a voice with the per-send slot targets it feeds, so
// the driver can route its Process outputs without the voice package
// needing to know about effect.Host.
type VoiceSource struct {
	Voice          *voice.Voice
	SendSlots      [4]*effect.Slot // index matches props.MaxSends
	EffectivePitch float32
}

// Context is one mixing scene: its active voices and its effect slot
// host, matching spec.md §3 Context.
type Context struct {
	Voices []*VoiceSource
	Slots  *effect.Host
}

// Driver runs the per-period mixer loop of spec.md §4.4 across every
// context of a device.
type Driver struct {
	// MixCount is the seqlock counter: odd means "mix in progress", even
	// means a consistent snapshot is available for readers (e.g. the
	// backend's latency query), matching spec.md step 1/7.
	MixCount atomic.Uint64

	Contexts []*Context

	BusLines [MaxAmbiChannels][]float32

	Decoder         *Decoder
	Limiter         *Limiter
	NFC             *NFCFilter
	FrontStabilizer *FrontStabilizer
	DistComp        *DistanceCompensator
	AmbiOrder       int

	Output [][]float32
	Format SampleFormat

	// busView and outView are reslice-only scratch backing BusLines and
	// Output at the current period's frameCount; RunPeriod never
	// allocates them, per spec.md §7's mid-mix allocation ban.
	busView [MaxAmbiChannels][]float32
	outView [][]float32
}

// NewDriver builds a driver with freshly-zeroed bus lines sized to
// BufferLineSize, matching spec.md's per-iteration bus clear.
func NewDriver(outputChannels int) *Driver {
	d := &Driver{}
	for i := range d.BusLines {
		d.BusLines[i] = make([]float32, BufferLineSize)
	}
	d.Output = make([][]float32, outputChannels)
	for i := range d.Output {
		d.Output[i] = make([]float32, BufferLineSize)
	}
	d.outView = make([][]float32, outputChannels)
	return d
}

// RunPeriod executes one full mix period for frameCount frames
// (frameCount <= BufferLineSize), implementing spec.md §4.4 steps 1-7.
func (d *Driver) RunPeriod(frameCount int) {
	// Step 1: acquire, mark mix-in-progress (odd).
	d.MixCount.Add(1)

	// Clear the dry bus.
	activeLines := (d.AmbiOrder + 1) * (d.AmbiOrder + 1)
	bus := d.BusLines[:activeLines]
	for _, line := range bus {
		for i := range line {
			line[i] = 0
		}
	}

	busSlice := d.busView[:activeLines]
	for i := range busSlice {
		busSlice[i] = d.BusLines[i][:frameCount]
	}

	// Step 2: iterate contexts -> sources, invoking each active voice.
	for _, ctx := range d.Contexts {
		for _, vs := range ctx.Voices {
			var sendOut [4][][]float32
			for s, slot := range vs.SendSlots {
				if slot != nil {
					sendOut[s] = slot.Input()
				}
			}
			vs.Voice.Process(busSlice, sendOut, vs.EffectivePitch, frameCount)
		}

		// Step 3: effect slots in DAG order; clear slot inputs after.
		if ctx.Slots != nil {
			ctx.Slots.Run(frameCount, busSlice)
			order, err := ctx.Slots.Order()
			if err == nil {
				for _, s := range order {
					s.ClearInput()
				}
			}
		}
	}

	// Step 4: listener-scope post-processing, fixed order. In HRTF
	// decode mode the first two bus lines carry ear signals rather than
	// spherical harmonics, so the ambisonic-decoder equalisation stages
	// (NFC, HF compensation) must leave the bus alone.
	ambiBus := d.Decoder == nil || d.Decoder.Mode != DecodeHRTF
	if d.DistComp != nil {
		d.DistComp.Process(busSlice, frameCount)
	}
	if ambiBus && d.NFC != nil && d.AmbiOrder >= 1 {
		d.NFC.Process(busSlice, frameCount)
	}
	if ambiBus && d.AmbiOrder >= 1 {
		HFCompensation(busSlice, d.AmbiOrder, frameCount)
	}
	if d.Limiter != nil {
		d.Limiter.Process(busSlice, frameCount)
	}

	// Step 5: decode dry bus to device output channels.
	outSlice := d.outView
	for i := range outSlice {
		outSlice[i] = d.Output[i][:frameCount]
	}
	if d.Decoder != nil {
		d.Decoder.Decode(outSlice, busSlice, frameCount)
	}

	// The front stabiliser widens the decoded front left/right speaker
	// feeds, so it runs on the output side of the matrix decode.
	if d.FrontStabilizer != nil && d.Decoder != nil && d.Decoder.Mode == DecodeMatrix && len(outSlice) >= 2 {
		d.FrontStabilizer.Process(outSlice[0], outSlice[1], frameCount)
	}

	// Step 6 (sample format conversion) is left to the caller via
	// WriteInterleaved, since the destination buffer's ownership and
	// sizing belongs to the backend, not the driver.

	// Step 7: close the seqlock (even).
	d.MixCount.Add(1)
}
