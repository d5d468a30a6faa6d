// voice.go - per-source mix-thread state machine
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

// Package voice implements the mix-thread-only per-source state machine
// of spec.md §4.1: property application, pitch/resampling, filtering,
// panning/virtualisation, gain ramping and lifecycle transitions.
// Grounded on audio_chip.go's Channel (oscillator/envelope state
// machine, generalised here from "one fixed waveform" to "resample a
// queued PCM buffer"), with the resample/filter/pan stages delegated to
// internal/resampler, internal/dsp and internal/ambi.
package voice

import (
	"math"

	"github.com/IntuitionAmiga/alcore/internal/ambi"
	"github.com/IntuitionAmiga/alcore/internal/dsp"
	"github.com/IntuitionAmiga/alcore/internal/hrtf"
	"github.com/IntuitionAmiga/alcore/internal/props"
	"github.com/IntuitionAmiga/alcore/internal/resampler"
)

// MaxHRIRDelay is the fixed history depth the HRTF direct path keeps per
// ear, matching spec.md §4.1's MAX_HRIR_DELAY.
const MaxHRIRDelay = 63

// PanMode selects how a voice's resampled-and-filtered mono/multichannel
// signal is projected onto the device's dry bus.
type PanMode int

const (
	PanPoint PanMode = iota
	PanMultichannel
	PanAmbisonic
	PanHRTF
)

// SendOutput is one per-output (direct or one auxiliary send) filter and
// gain-ramp state, used for both the dry-bus path and each aux send.
type SendOutput struct {
	// Filter is the high-shelf half of the gainHF/gainLF pair; FilterLF
	// is the low-shelf half. Both run in series over the voice's signal,
	// so unity gains leave it untouched.
	Filter      dsp.Biquad
	FilterLF    dsp.Biquad
	PrevGains   []float32
	TargetGains []float32
}

// NewSendOutput allocates a send output sized for channelCount dry-bus
// (or send-slot) channels.
func NewSendOutput(channelCount int) *SendOutput {
	return &SendOutput{
		PrevGains:   make([]float32, channelCount),
		TargetGains: make([]float32, channelCount),
	}
}

// BufferSource supplies PCM samples to a voice: an ordered queue of
// buffer references is owned by the source object outside this package
// (spec.md §3 Source); Voice only needs read access to "the next N
// samples starting at position p", with automatic advance/loop/stop
// handled by the caller's queue cursor.
type BufferSource interface {
	// Read fills dst with up to len(dst) samples starting at the
	// buffer's current cursor, advancing the cursor by the number of
	// samples actually produced. It returns false once the queue is
	// exhausted and non-looping.
	Read(dst []float32) (n int, more bool)
	SampleRate() int
	Channels() int
}

// Voice is the mix-thread state for one playing source: resample
// position, per-output filter/gain state, and (if applicable) HRTF
// history. Every field here is mutated only on the mix thread, per
// spec.md §3's Source invariant.
type Voice struct {
	Buffer  BufferSource
	Kernel  *resampler.Kernel
	PanMode PanMode
	State   props.SourceState

	// ChannelIndex is this voice's position among its source's input
	// channels, used by SpatializeOff's direct-routing mode to pick the
	// one bus channel this voice feeds.
	ChannelIndex int
	// StaticGains is the fixed per-bus-channel gain vector a PanAmbisonic
	// voice applies (scaled by distance/listener attenuation), set once
	// at voice build time from ambi.UpsampleGains.
	StaticGains []float64

	position uint64 // whole-sample read cursor into the logical buffer stream
	phase    uint32 // resampler.FracBits-wide fractional position

	history        []float32 // resample history window, enough for the widest kernel
	historyHead    int
	historyScratch [1]float32
	primed         bool

	Direct SendOutput
	Sends  [props.MaxSends]SendOutput

	hrtfRenderer *hrtf.Renderer
	hrtfCoeffs   hrtf.Coeffs
	hrtfValid    bool
	hrtfElev     float64
	hrtfAz       float64
	fadeOut      bool

	scratchMono     []float32
	scratchDirect   []float32
	scratchScaled   []float32
	scratchOutL     []float32
	scratchOutR     []float32
	scratchFiltered []float32
}

// sharedKernels holds one instance of each selectable resampler kernel,
// indexed by resampler.Kind. Kernels are stateless once built (the
// voice owns the history), so every voice on the device shares them; a
// voice switches kernels on the mix thread when its snapshot's
// Resampler index changes.
var sharedKernels = []*resampler.Kernel{
	resampler.NewKernel(resampler.Point),
	resampler.NewKernel(resampler.Linear),
	resampler.NewKernel(resampler.Cubic),
	resampler.NewKernel(resampler.FourPoint),
	resampler.NewKernel(resampler.Sinc),
}

// historyWidth is the widest lookback/lookahead any resampler kernel
// needs (sinc's half-width on each side), sized so Voice.history always
// has enough context regardless of which Kernel is selected.
const historyWidth = 24

// maxFrameCount is the widest frame count a single Process call ever
// receives (mixer.BufferLineSize), used to size Voice's preallocated
// scratch buffers once at build time so Process never allocates.
const maxFrameCount = 1024

// NewVoice builds a voice over buf using the given resample kernel and
// panning mode, with output slots sized for the dry bus's channel count.
// channelIndex is this voice's position among its source's input
// channels (spec.md §4.1 point 4's per-channel virtual source).
func NewVoice(buf BufferSource, kernel *resampler.Kernel, pan PanMode, busChannels, channelIndex int) *Voice {
	v := &Voice{
		Buffer:       buf,
		Kernel:       kernel,
		PanMode:      pan,
		State:        props.StateInitial,
		ChannelIndex: channelIndex,
		history:      make([]float32, historyWidth),

		scratchMono:     make([]float32, maxFrameCount),
		scratchDirect:   make([]float32, maxFrameCount),
		scratchScaled:   make([]float32, maxFrameCount),
		scratchOutL:     make([]float32, maxFrameCount),
		scratchOutR:     make([]float32, maxFrameCount),
		scratchFiltered: make([]float32, maxFrameCount),
	}
	// Center splits the window into lookback (the widest kernel's taps
	// behind the cursor) and lookahead (its taps ahead of it); fresh
	// samples enter at the lookahead end and migrate past the center.
	v.historyHead = historyWidth/2 - 1
	v.Direct = *NewSendOutput(busChannels)
	for i := range v.Sends {
		v.Sends[i] = *NewSendOutput(busChannels)
	}
	return v
}

// ApplyProperties consumes a pending property snapshot: recomputes
// panning gains for the current spatial attributes and updates the
// per-output filters. Called once per mix iteration before Process, per
// spec.md §4.1 step 1.
func (v *Voice) ApplyProperties(p *props.Source, listenerGain float32, dist ambi.DistanceParams, model ambi.DistanceModel, sourceToListener [3]float64, distance float64) {
	if p.Resampler >= 0 && p.Resampler < len(sharedKernels) && sharedKernels[p.Resampler] != v.Kernel {
		v.Kernel = sharedKernels[p.Resampler]
	}

	switch v.State {
	case props.StateInitial:
		if p.State == props.StatePlaying {
			v.State = props.StatePlaying
		}
	case props.StatePlaying:
		if p.State == props.StatePaused {
			v.State = props.StatePaused
		} else if p.State == props.StateStopped {
			v.State = props.StateStopped
			v.fadeOut = true
		}
	case props.StatePaused:
		if p.State == props.StatePlaying {
			v.State = props.StatePlaying
		} else if p.State == props.StateStopped {
			v.State = props.StateStopped
			v.fadeOut = true
		}
	}
	if p.State == props.StateInitial {
		v.State = props.StateInitial
		v.position = 0
		v.phase = 0
		v.primed = false
		for i := range v.history {
			v.history[i] = 0
		}
	}

	coneG, coneHF := coneGains(p, sourceToListener)
	atten := float32(ambi.Attenuate(model, distance, dist)) * listenerGain * p.Gain * coneG
	if atten < p.MinGain {
		atten = p.MinGain
	}
	if atten > p.MaxGain {
		atten = p.MaxGain
	}
	// The direct filter's flat gain scales the direct path only; each
	// send's own filter gain scales that send.
	directAtten := atten * p.Direct.Gain

	copy(v.Direct.PrevGains, v.Direct.TargetGains)

	switch {
	case p.Spatialize == props.SpatializeOff:
		// AL_SOURCE_SPATIALIZE_SOFT off: route this channel straight to
		// its matching bus channel, unspatialised, silent elsewhere.
		for i := range v.Direct.TargetGains {
			if i == v.ChannelIndex {
				v.Direct.TargetGains[i] = directAtten
			} else {
				v.Direct.TargetGains[i] = 0
			}
		}
	case v.PanMode == PanAmbisonic:
		n := len(v.Direct.TargetGains)
		for i := 0; i < n && i < len(v.StaticGains); i++ {
			v.Direct.TargetGains[i] = float32(v.StaticGains[i]) * directAtten
		}
	case v.PanMode == PanPoint, v.PanMode == PanMultichannel:
		coeffs := ambi.CalcCoeffs(sourceToListener[0], sourceToListener[1], sourceToListener[2], 0)
		n := len(v.Direct.TargetGains)
		for i := 0; i < n && i < len(coeffs); i++ {
			v.Direct.TargetGains[i] = float32(coeffs[i]) * directAtten
		}
	case v.PanMode == PanHRTF:
		// The HRTF direct path doesn't ramp per-bus-channel gains; it
		// scales the mono signal by atten before convolving against the
		// direction's coefficients (spec.md §4.1 point 4's HRTF direct
		// mode). Target/PrevGains[0] carries that scalar so Process can
		// still ramp it like every other path.
		for i := range v.Direct.TargetGains {
			v.Direct.TargetGains[i] = 0
		}
		if len(v.Direct.TargetGains) > 0 {
			v.Direct.TargetGains[0] = directAtten
		}
		if v.hrtfRenderer != nil && v.hrtfRenderer.Store != nil {
			elevDeg, azimuthDeg := dirToElevAzimuth(sourceToListener)
			// Lookup interpolates four measured IRs and is the one
			// allocation this path can make; reuse the previous
			// coefficients while the direction is effectively unchanged.
			if !v.hrtfValid || math.Abs(elevDeg-v.hrtfElev) > 0.5 || math.Abs(azimuthDeg-v.hrtfAz) > 0.5 {
				v.hrtfCoeffs = v.hrtfRenderer.Store.Lookup(elevDeg, azimuthDeg)
				v.hrtfElev, v.hrtfAz = elevDeg, azimuthDeg
				v.hrtfValid = true
			}
		}
	default:
		for i := range v.Direct.TargetGains {
			v.Direct.TargetGains[i] = directAtten
		}
	}

	v.Direct.Filter.SetParams(dsp.BiquadHighShelf, maxf(p.Direct.GainHF*coneHF, 0.00001), hfShelfF0Norm, 0.707)
	v.Direct.FilterLF.SetParams(dsp.BiquadLowShelf, maxf(p.Direct.GainLF, 0.00001), lfShelfF0Norm, 0.707)

	for s := range p.Sends {
		send := &p.Sends[s]
		copy(v.Sends[s].PrevGains, v.Sends[s].TargetGains)
		if !send.Active {
			for i := range v.Sends[s].TargetGains {
				v.Sends[s].TargetGains[i] = 0
			}
			continue
		}
		for i := range v.Sends[s].TargetGains {
			v.Sends[s].TargetGains[i] = atten * send.Filter.Gain
		}
		v.Sends[s].Filter.SetParams(dsp.BiquadHighShelf, maxf(send.Filter.GainHF, 0.00001), hfShelfF0Norm, 0.707)
		v.Sends[s].FilterLF.SetParams(dsp.BiquadLowShelf, maxf(send.Filter.GainLF, 0.00001), lfShelfF0Norm, 0.707)
	}
}

// hfShelfF0Norm and lfShelfF0Norm are the normalised reference corners
// of the gainHF/gainLF shelving pair.
const (
	hfShelfF0Norm = 0.25
	lfShelfF0Norm = 0.005
)

// coneGains returns the flat and high-frequency attenuation the source's
// directional cone applies at the listener's angle off the source's
// facing direction (spec.md §4.1 step 1's cone gains). A zero Direction
// or a full-circle inner cone leaves the source omnidirectional.
func coneGains(p *props.Source, sourceToListener [3]float64) (gain, gainHF float32) {
	d := p.Direction
	if (d == [3]float32{}) || p.ConeInner >= 360 {
		return 1, 1
	}
	dn := normalize64(float64(d[0]), float64(d[1]), float64(d[2]))
	// sourceToListener points listener->source; the cone opens along the
	// source's facing direction toward the listener, so flip it.
	toListener := [3]float64{-sourceToListener[0], -sourceToListener[1], -sourceToListener[2]}
	cosA := dn[0]*toListener[0] + dn[1]*toListener[1] + dn[2]*toListener[2]
	angleDeg := math.Acos(clamp(cosA, -1, 1)) * 180 / math.Pi

	innerHalf := float64(p.ConeInner) * 0.5
	outerHalf := float64(p.ConeOuter) * 0.5
	switch {
	case angleDeg <= innerHalf:
		return 1, 1
	case angleDeg >= outerHalf || outerHalf <= innerHalf:
		return p.ConeOuterGain, p.ConeOuterGainHF
	}
	frac := float32((angleDeg - innerHalf) / (outerHalf - innerHalf))
	return 1 + frac*(p.ConeOuterGain-1), 1 + frac*(p.ConeOuterGainHF-1)
}

func normalize64(x, y, z float64) [3]float64 {
	n := math.Sqrt(x*x + y*y + z*z)
	if n < 1e-9 {
		return [3]float64{0, 0, -1}
	}
	return [3]float64{x / n, y / n, z / n}
}

// dirToElevAzimuth converts a unit direction in alcore's x=right,
// y=up, z=back axes into elevation/azimuth degrees as internal/hrtf's
// Store.Lookup expects: elevation 0 at the horizon, azimuth 0 directly
// ahead, increasing clockwise.
func dirToElevAzimuth(dir [3]float64) (elevDeg, azimuthDeg float64) {
	x, y, z := dir[0], dir[1], dir[2]
	elevDeg = math.Asin(clamp(y, -1, 1)) * 180 / math.Pi
	azimuthDeg = math.Atan2(x, -z) * 180 / math.Pi
	return elevDeg, azimuthDeg
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// SetHRTF attaches (or detaches, with nil) the HRTF renderer used when
// PanMode is PanHRTF.
func (v *Voice) SetHRTF(r *hrtf.Renderer) {
	v.hrtfRenderer = r
}

// Process renders frameCount frames of this voice's contribution,
// resampling+filtering the source signal and mixing the result into
// busOut (one slice per dry-bus channel) with the aux send outputs
// written to sendOut (indexed the same way). Gains are ramped linearly
// across the frame count to avoid zipper noise (spec.md §4.1 step 5).
func (v *Voice) Process(busOut [][]float32, sendOut [props.MaxSends][][]float32, effectivePitch float32, frameCount int) {
	if v.State != props.StatePlaying && !v.fadeOut {
		return
	}

	mono := v.scratchMono[:frameCount]
	v.fillResampled(mono, effectivePitch)

	direct := v.scratchDirect[:frameCount]
	v.Direct.Filter.Process(direct, mono)
	v.Direct.FilterLF.Process(direct, direct)

	if v.PanMode == PanHRTF && v.hrtfRenderer != nil && len(busOut) >= 2 {
		scaled := v.scratchScaled[:frameCount]
		rampScale(scaled, direct, v.Direct.PrevGains[0], v.Direct.TargetGains[0])
		outL := v.scratchOutL[:frameCount]
		outR := v.scratchOutR[:frameCount]
		v.hrtfRenderer.Render(outL, outR, scaled, v.hrtfCoeffs)
		for i := 0; i < frameCount; i++ {
			busOut[0][i] += outL[i]
			busOut[1][i] += outR[i]
		}
	} else {
		rampMixInto(busOut, direct, v.Direct.PrevGains, v.Direct.TargetGains)
	}

	for s := range sendOut {
		if sendOut[s] == nil {
			continue
		}
		filtered := v.scratchFiltered[:frameCount]
		v.Sends[s].Filter.Process(filtered, mono)
		v.Sends[s].FilterLF.Process(filtered, filtered)
		rampMixInto(sendOut[s], filtered, v.Sends[s].PrevGains, v.Sends[s].TargetGains)
	}

	if v.fadeOut {
		v.State = props.StateStopped
		v.fadeOut = false
	}
}

// rampScale writes src into dst scaled by a gain linearly interpolated
// from prevGain to targetGain, for the single-scalar HRTF direct path.
func rampScale(dst, src []float32, prevGain, targetGain float32) {
	n := len(src)
	if n <= 1 {
		for i, s := range src {
			dst[i] = s * targetGain
		}
		return
	}
	step := (targetGain - prevGain) / float32(n-1)
	g := prevGain
	for i, s := range src {
		dst[i] = s * g
		g += step
	}
}

// rampMixInto accumulates src into each channel of dst, scaling sample i
// by a gain linearly interpolated from prevGain[ch] to targetGain[ch]
// across len(src) samples.
func rampMixInto(dst [][]float32, src []float32, prevGain, targetGain []float32) {
	n := len(src)
	for ch := range dst {
		if dst[ch] == nil || ch >= len(prevGain) {
			continue
		}
		p, t := prevGain[ch], targetGain[ch]
		if n <= 1 {
			for i, s := range src {
				dst[ch][i] += s * t
			}
			continue
		}
		step := (t - p) / float32(n-1)
		g := p
		for i, s := range src {
			dst[ch][i] += s * g
			g += step
		}
	}
}

// fillResampled draws frameCount resampled samples from the buffer
// source into dst, advancing position/phase by effectivePitch per
// output frame (spec.md §4.1 step 2). When the queue exhausts
// non-looping content mid-frame, the remainder of dst is left at zero
// and the voice is marked for a fade-out stop.
func (v *Voice) fillResampled(dst []float32, effectivePitch float32) {
	if !v.primed {
		// Pull the lookahead span plus the first sample into the window
		// so At(0) lands on the stream's first sample before any output
		// is produced.
		for i := v.historyHead; i < len(v.history); i++ {
			v.advanceHistory()
		}
		v.primed = true
	}

	step := uint64(effectivePitch * float32(resampler.FracOne))
	if step == 0 {
		// Pitch == 0: voice must not advance but must not busy-loop
		// (spec.md §8 boundary scenario); hold the current sample.
		h := resampler.SliceHistory{Buf: v.history, Center: v.historyHead}
		sample := v.Kernel.Sample(h, v.phase)
		for i := range dst {
			dst[i] = sample
		}
		return
	}

	for i := range dst {
		if v.fadeOut {
			for j := i; j < len(dst); j++ {
				dst[j] = 0
			}
			break
		}
		h := resampler.SliceHistory{Buf: v.history, Center: v.historyHead}
		dst[i] = v.Kernel.Sample(h, v.phase)

		// Accumulate phase and step together so a fractional carry
		// (phase + step crossing a whole sample) advances the cursor.
		sum := uint64(v.phase) + step
		whole := sum >> resampler.FracBits
		v.phase = uint32(sum & resampler.FracMask)
		v.position += whole
		for w := uint64(0); w < whole; w++ {
			v.advanceHistory()
		}
	}
}

// advanceHistory pulls one fresh sample into the sliding history window,
// shifting the existing window down by one in place; it never allocates,
// since both the single-sample read buffer and the history window itself
// are preallocated on the Voice.
func (v *Voice) advanceHistory() {
	n, more := v.Buffer.Read(v.historyScratch[:])
	if n == 0 && !more {
		v.fadeOut = true
		return
	}
	copy(v.history, v.history[1:])
	v.history[len(v.history)-1] = v.historyScratch[0]
}
