// device.go - per-device mixing pipeline driver and connection state
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

// Package alcore is the public API of the audio rendering core: Device,
// Listener, Context, Source, Buffer and AuxEffectSlot are the shapes an
// OpenAL ABI translation layer would bind to (spec.md §1's "NON-CORE
// collaborators"). Grounded on audio_chip.go's SoundChip (mutex-guarded
// hot struct, NewSoundChip constructor, Start/Stop/Close lifecycle),
// generalised from "one fixed 4-channel chip" to "N contexts of N
// sources feeding an ambisonic bus".
package alcore

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/IntuitionAmiga/alcore/internal/alog"
	"github.com/IntuitionAmiga/alcore/internal/ambi"
	"github.com/IntuitionAmiga/alcore/internal/backend"
	"github.com/IntuitionAmiga/alcore/internal/dsp"
	"github.com/IntuitionAmiga/alcore/internal/hrtf"
	"github.com/IntuitionAmiga/alcore/internal/mixer"
	"github.com/IntuitionAmiga/alcore/internal/props"
	"github.com/IntuitionAmiga/alcore/internal/voice"
)

// FmtChans names a device's output channel layout, per spec.md §3
// Device.
type FmtChans int

const (
	FmtMono FmtChans = iota
	FmtStereo
	FmtQuad
	Fmt5Dot1
	Fmt5Dot1Rear
	Fmt6Dot1
	Fmt7Dot1
	FmtAmbi
)

func (f FmtChans) channelCount() int {
	switch f {
	case FmtMono:
		return 1
	case FmtStereo:
		return 2
	case FmtQuad:
		return 4
	case Fmt5Dot1, Fmt5Dot1Rear:
		return 6
	case Fmt6Dot1:
		return 7
	case Fmt7Dot1:
		return 8
	}
	return 2
}

// FmtType names a device's real-output sample representation, per
// spec.md §3 Device.
type FmtType = mixer.SampleFormat

const (
	TypeU8  = mixer.FormatU8
	TypeI16 = mixer.FormatI16
	TypeI32 = mixer.FormatI32
	TypeF32 = mixer.FormatF32
)

// DeviceOptions configures a newly opened Device.
type DeviceOptions struct {
	Frequency    int
	UpdateSize   int
	NumUpdates   int
	FmtChans     FmtChans
	FmtType      FmtType
	AmbiOrder    int
	IsHeadphones bool
	HRTFStore    *hrtf.Store // required when IsHeadphones is true

	// StereoMode selects how a stereo (non-headphone) device's output is
	// produced from the ambisonic bus: a plain first-order panning
	// decode, or a 2-channel UHJ encode for systems that can further
	// decode it (spec.md §4.4 step 5's UHJ output mode).
	StereoMode ambi.StereoMode

	// EnableFrontStabilizer widens the phantom centre for non-headphone
	// layouts with a centre-ish channel, per spec.md §4.4 step 4.
	EnableFrontStabilizer bool
	// ChannelDistancesM gives each output channel's physical distance
	// from the listening position, for asymmetric speaker layouts; nil
	// disables distance compensation.
	ChannelDistancesM []float32
}

// Device holds the configuration the mix thread treats as read-only for
// a device period, plus the dry ambisonic bus, the connection flag and
// the MixCount seqlock, per spec.md §3 Device.
type Device struct {
	Frequency    int
	UpdateSize   int
	NumUpdates   int
	FmtChans     FmtChans
	FmtType      FmtType
	AmbiOrder    int
	IsHeadphones bool

	connected atomic.Bool

	backend   backend.Backend
	driver    *mixer.Driver
	hrtfStore *hrtf.Store

	mu       sync.Mutex
	contexts []*Context

	log *alog.Logger
}

// OpenDevice opens be with opts and builds the mixer driver that will
// render it, per spec.md §4.6's open/reset contract.
func OpenDevice(be backend.Backend, opts DeviceOptions) (*Device, error) {
	if opts.UpdateSize <= 0 || opts.UpdateSize > mixer.BufferLineSize {
		return nil, fmt.Errorf("alcore: UpdateSize must be in (0, %d]", mixer.BufferLineSize)
	}
	if opts.IsHeadphones && opts.HRTFStore == nil {
		return nil, fmt.Errorf("alcore: IsHeadphones requires an HRTFStore")
	}

	d := &Device{
		Frequency:    opts.Frequency,
		UpdateSize:   opts.UpdateSize,
		NumUpdates:   opts.NumUpdates,
		FmtChans:     opts.FmtChans,
		FmtType:      opts.FmtType,
		AmbiOrder:    opts.AmbiOrder,
		IsHeadphones: opts.IsHeadphones,
		hrtfStore:    opts.HRTFStore,
		backend:      be,
		log:          alog.New("device"),
	}

	if err := be.Open(""); err != nil {
		return nil, fmt.Errorf("alcore: opening backend: %w", err)
	}
	chans := opts.FmtChans.channelCount()
	if opts.FmtChans == FmtAmbi {
		chans = (opts.AmbiOrder + 1) * (opts.AmbiOrder + 1)
	}
	if err := be.Reset(opts.Frequency, chans, opts.UpdateSize, opts.NumUpdates); err != nil {
		return nil, fmt.Errorf("alcore: resetting backend: %w", err)
	}

	d.driver = mixer.NewDriver(chans)
	d.driver.AmbiOrder = opts.AmbiOrder
	if opts.IsHeadphones && d.driver.AmbiOrder < 1 {
		// HRTF voices need at least two active bus lines to accumulate
		// their left/right ear signals into.
		d.driver.AmbiOrder = 1
	}
	if opts.FmtChans == FmtStereo && !opts.IsHeadphones && opts.StereoMode == ambi.StereoSuperStereo && d.driver.AmbiOrder < 1 {
		// The UHJ encoder reads the first-order W/X/Y bus lines.
		d.driver.AmbiOrder = 1
	}
	d.driver.Format = opts.FmtType
	d.driver.Decoder = buildDecoder(opts)
	busChannels := (opts.AmbiOrder + 1) * (opts.AmbiOrder + 1)
	if busChannels < 1 {
		busChannels = 1
	}
	d.driver.Limiter = mixer.NewLimiter(busChannels, opts.Frequency)
	if opts.AmbiOrder >= 1 {
		const nearFieldRadiusM = 1.5
		d.driver.NFC = mixer.NewNFCFilter(busChannels, nearFieldRadiusM, opts.Frequency)
	}
	if opts.EnableFrontStabilizer {
		d.driver.FrontStabilizer = mixer.NewFrontStabilizer(opts.Frequency)
	}
	if len(opts.ChannelDistancesM) > 0 {
		d.driver.DistComp = mixer.NewDistanceCompensator(opts.ChannelDistancesM, opts.Frequency)
	}

	d.connected.Store(true)

	if err := be.Start(context.Background(), d); err != nil {
		return nil, fmt.Errorf("alcore: starting backend: %w", err)
	}
	return d, nil
}

func buildDecoder(opts DeviceOptions) *mixer.Decoder {
	switch opts.FmtChans {
	case FmtAmbi:
		return mixer.NewStraightDecoder()
	case FmtStereo:
		if opts.IsHeadphones {
			// Binaural: HRTF voices accumulate ear signals into the
			// first two bus lines; the decode step just lifts them out.
			return mixer.NewHRTFDecoder()
		}
		if opts.StereoMode == ambi.StereoSuperStereo {
			return mixer.NewUHJDecoder(dsp.QualityFast)
		}
		return mixer.NewMatrixDecoder(ambi.FirstOrderDecoder(ambi.Directions(ambi.LayoutStereo)))
	case FmtQuad:
		return mixer.NewMatrixDecoder(ambi.FirstOrderDecoder(ambi.Directions(ambi.LayoutQuad)))
	case Fmt5Dot1, Fmt5Dot1Rear:
		return mixer.NewMatrixDecoder(ambi.FirstOrderDecoder(ambi.Directions(ambi.Layout5Dot1)))
	case Fmt6Dot1:
		return mixer.NewMatrixDecoder(ambi.FirstOrderDecoder(ambi.Directions(ambi.Layout6Dot1)))
	case Fmt7Dot1:
		return mixer.NewMatrixDecoder(ambi.FirstOrderDecoder(ambi.Directions(ambi.Layout7Dot1)))
	default:
		return mixer.NewMatrixDecoder(ambi.FirstOrderDecoder(ambi.Directions(ambi.LayoutMono)))
	}
}

func (d *Device) addContext(c *Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contexts = append(d.contexts, c)
}

// IsConnected reports whether the device is still attached, per
// spec.md §7's "Device lost" error kind: once false, the mixer produces
// silence until the application explicitly reopens the device.
func (d *Device) IsConnected() bool { return d.connected.Load() }

// MarkDisconnected clears the connection flag, called by a backend that
// detects the underlying hardware is gone.
func (d *Device) MarkDisconnected() {
	d.connected.Store(false)
	d.log.Warn("device disconnected")
}

// MixCount returns the current seqlock counter; an odd value means a
// mix iteration is in progress, per spec.md §4.4 step 1/7.
func (d *Device) MixCount() uint64 { return d.driver.MixCount.Load() }

// ReadFrames implements backend.Source: it is the pull callback every
// backend in internal/backend calls once per period. If the device has
// been disconnected it writes silence without touching any voice state,
// per spec.md §7.
func (d *Device) ReadFrames(dst []float32) int {
	chans := len(d.driver.Output)
	frames := len(dst) / chans
	if frames > d.UpdateSize {
		frames = d.UpdateSize
	}
	if !d.connected.Load() {
		for i := range dst {
			dst[i] = 0
		}
		return frames
	}

	d.renderPeriod(frames)
	planarToInterleavedFloat(dst, d.driver.Output, frames)
	return frames
}

func planarToInterleavedFloat(dst []float32, planar [][]float32, frames int) {
	chans := len(planar)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < chans; ch++ {
			dst[i*chans+ch] = planar[ch][i]
		}
	}
}

// renderPeriod builds this period's mixer.Context list from every
// Context's sources and effect slots, then runs the driver, per
// spec.md §4.4 steps 1-7.
func (d *Device) renderPeriod(frames int) {
	d.mu.Lock()
	contexts := make([]*Context, len(d.contexts))
	copy(contexts, d.contexts)
	d.mu.Unlock()

	mixCtxs := make([]*mixer.Context, 0, len(contexts))
	for i, ctx := range contexts {
		ctxSnap := ctx.snapshot()
		if i == 0 && d.driver.Limiter != nil && ctxSnap.LimiterGain > 0 {
			d.driver.Limiter.ThresholdDB = float32(20 * math.Log10(float64(ctxSnap.LimiterGain)))
		}
		mixCtxs = append(mixCtxs, d.buildMixContext(ctx, frames))
	}
	d.driver.Contexts = mixCtxs
	d.driver.RunPeriod(frames)
}

func (d *Device) buildMixContext(ctx *Context, frames int) *mixer.Context {
	listener := ctx.Listener.snapshot()
	ctxSnap := ctx.snapshot()
	model := ambi.DistanceModel(ctxSnap.DistanceModel)

	ctx.mu.Lock()
	sources := make([]*Source, len(ctx.sources))
	copy(sources, ctx.sources)
	ctx.mu.Unlock()

	var voices []*mixer.VoiceSource
	for _, src := range sources {
		srcSnap := src.snapshot()
		if srcSnap.State != props.StatePlaying {
			continue
		}
		pos := srcSnap.Position
		if srcSnap.RelativeToListener {
			// Position is already listener-relative; leave as-is.
		} else {
			pos = [3]float32{pos[0] - listener.Position[0], pos[1] - listener.Position[1], pos[2] - listener.Position[2]}
		}
		distance := math.Sqrt(float64(pos[0])*float64(pos[0])+float64(pos[1])*float64(pos[1])+float64(pos[2])*float64(pos[2])) * float64(listener.MetersPerUnit)

		dir := normalizeDir(pos)
		if !srcSnap.RelativeToListener {
			// Panning directions are listener-local: rotate the world
			// -space direction into the listener's forward/up frame.
			// Relative sources are already expressed in that frame.
			dir = listenerLocalDir(dir, listener.Forward, listener.Up)
		}
		distParams := ambi.DistanceParams{
			RefDistance: float64(srcSnap.RefDistance),
			MaxDistance: float64(srcSnap.MaxDistance),
			Rolloff:     float64(srcSnap.RolloffFactor),
		}

		// rs is the source's voices/send routing snapshot, loaded once
		// (lock-free) for this whole period; the mix thread never reads
		// src.voices/src.channels/src.sampleRate directly (spec.md
		// §4.5/§5's "the mixer never blocks").
		rs := src.renderState()

		effectivePitch := float32(srcSnap.Pitch) * dopplerPitchShift(pos, listener.Velocity, srcSnap.Velocity, ctxSnap.DopplerFactor, ctxSnap.SpeedOfSound)
		if rs.sampleRate > 0 {
			effectivePitch *= float32(rs.sampleRate) / float32(d.Frequency)
		}

		layoutDirs := canonicalDirections(rs.channels)
		if rs.channels == 2 && srcSnap.StereoMode == int(ambi.StereoSuperStereo) {
			layoutDirs = ambi.SuperStereoDirections(srcSnap.SuperStereoWidth)
		}
		for i, v := range rs.voices {
			chDir := dir
			if i < len(layoutDirs) && rs.channels > 1 {
				chDir = layoutDirs[i]
			}
			v.ApplyProperties(srcSnap, listener.Gain, distParams, model, chDir, distance)
		}
		voices = append(voices, src.voiceSources(effectivePitch, srcSnap)...)
	}

	_ = frames
	return &mixer.Context{Voices: voices, Slots: ctx.host}
}

// listenerLocalDir expresses a world-space unit direction in the
// listener's own frame: x along the listener's right, y along its up,
// z along its back, so a source dead ahead of any listener pose always
// pans to (0, 0, -1).
func listenerLocalDir(dir [3]float64, forward, up [3]float32) [3]float64 {
	f := normalizeDir(forward)
	u := normalizeDir(up)
	// right = forward x up in the right-handed OpenAL convention.
	r := [3]float64{
		f[1]*u[2] - f[2]*u[1],
		f[2]*u[0] - f[0]*u[2],
		f[0]*u[1] - f[1]*u[0],
	}
	dot := func(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
	return [3]float64{dot(dir, r), dot(dir, u), -dot(dir, f)}
}

func normalizeDir(v [3]float32) [3]float64 {
	x, y, z := float64(v[0]), float64(v[1]), float64(v[2])
	n := math.Sqrt(x*x + y*y + z*z)
	if n < 1e-9 {
		return [3]float64{0, 0, -1}
	}
	return [3]float64{x / n, y / n, z / n}
}

func canonicalDirections(channels int) [][3]float64 {
	switch channels {
	case 2:
		return ambi.Directions(ambi.LayoutStereo)
	case 4:
		return ambi.Directions(ambi.LayoutQuad)
	case 6:
		return ambi.Directions(ambi.Layout5Dot1)
	case 7:
		return ambi.Directions(ambi.Layout6Dot1)
	case 8:
		return ambi.Directions(ambi.Layout7Dot1)
	default:
		return ambi.Directions(ambi.LayoutMono)
	}
}

// dopplerPitchShift returns the Doppler ratio for a source at relative
// position pos (source minus listener, un-normalised) given both
// parties' velocities, per the OpenAL 1.1 Doppler appendix.
func dopplerPitchShift(pos [3]float32, listenerVel, sourceVel [3]float32, dopplerFactor, speedOfSound float32) float32 {
	if dopplerFactor == 0 || speedOfSound <= 0 {
		return 1
	}
	dir := normalizeDir(pos)
	proj := func(v [3]float32) float64 {
		return float64(v[0])*dir[0] + float64(v[1])*dir[1] + float64(v[2])*dir[2]
	}
	vls := proj(listenerVel) * float64(dopplerFactor)
	vss := proj(sourceVel) * float64(dopplerFactor)
	ss := float64(speedOfSound)
	if vss > ss {
		vss = ss
	}
	if vls > ss {
		vls = ss
	}
	denom := ss - vss
	if denom <= 0 {
		return 1
	}
	return float32((ss - vls) / denom)
}

// Close stops and releases the backend, per spec.md §4.6's stop/close
// contract.
func (d *Device) Close() {
	d.backend.Stop()
	d.backend.Close()
}

// hrtfRenderer returns a fresh per-voice HRTF renderer over the device's
// HRTF store, or nil when the device has no store. Source.buildVoices
// calls it once for each PanHRTF voice it creates.
func (d *Device) hrtfRenderer() *hrtf.Renderer {
	if d.hrtfStore == nil {
		return nil
	}
	return hrtf.NewRenderer(d.hrtfStore)
}

var _ voice.BufferSource = (*channelReader)(nil)
