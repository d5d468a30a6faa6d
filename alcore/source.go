// source.go - positional sound emitter and its buffer queue
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package alcore

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/IntuitionAmiga/alcore/internal/ambi"
	"github.com/IntuitionAmiga/alcore/internal/mixer"
	"github.com/IntuitionAmiga/alcore/internal/props"
	"github.com/IntuitionAmiga/alcore/internal/resampler"
	"github.com/IntuitionAmiga/alcore/internal/voice"
)

// SourceState is the source playback state machine position of spec.md
// §3 Source.
type SourceState = props.SourceState

const (
	Initial = props.StateInitial
	Playing = props.StatePlaying
	Paused  = props.StatePaused
	Stopped = props.StateStopped
)

// SpatializeMode selects whether a source is spatialised, per spec.md §3.
type SpatializeMode = props.SpatializeMode

const (
	SpatializeAuto = props.SpatializeAuto
	SpatializeOn   = props.SpatializeOn
	SpatializeOff  = props.SpatializeOff
)

// queueSnapshot is the mix-thread-readable view of a source's buffer
// queue: an immutable copy of the queue contents published by every API
// call that mutates it, so channelReader.Read never touches the source
// mutex (spec.md §4.5/§5's "the mixer never blocks").
type queueSnapshot struct {
	buffers   []*Buffer
	headIndex int64 // absolute index of buffers[0]
	looping   bool
}

// sourceRenderState is the mix-thread-readable view of a source's voices
// and send routing, published whenever buildVoices or SetSend runs, for
// the same reason queueSnapshot exists.
type sourceRenderState struct {
	voices     []*voice.Voice
	sendSlots  [props.MaxSends]*AuxEffectSlot
	channels   int
	sampleRate int
}

// Source is a positional sound emitter, per spec.md §3 Source. All
// property setters are safe from any API-calling goroutine; the voice
// state they eventually drive is mix-thread-only per spec.md's Source
// invariant.
type Source struct {
	ctx *Context

	mu sync.Mutex

	cur     props.Source
	slot    *props.Container[props.Source]
	pending *props.Source

	queue      []*Buffer
	channels   int
	sampleRate int
	headIndex  int64 // absolute index of queue[0]

	queueSlot  *props.Container[queueSnapshot]
	renderSlot *props.Container[sourceRenderState]
	rewindSeq  atomic.Int64

	voices    []*voice.Voice
	readers   []*channelReader
	sendSlots [props.MaxSends]*AuxEffectSlot
	kernel    *resampler.Kernel

	lastSeenProps *props.Source
}

func newSource(ctx *Context) *Source {
	s := &Source{
		ctx: ctx,
		cur: props.Source{
			Gain:          1,
			MaxGain:       1,
			RefDistance:   1,
			MaxDistance:   math.MaxFloat32,
			RolloffFactor: 1,
			ConeInner:     360,
			ConeOuter:     360,
			ConeOuterGain: 1,
			Pitch:         1,
			Direct:        props.FilterPair{Gain: 1, GainHF: 1, GainLF: 1},
			Resampler:     int(resampler.Cubic),
		},
		kernel: resampler.NewKernel(resampler.Cubic),
	}
	s.slot = props.NewContainer(ctx.sourceFree, s.cur)
	s.queueSlot = props.NewContainer(ctx.sourceQueueFree, queueSnapshot{})
	s.renderSlot = props.NewContainer(ctx.sourceRenderFree, sourceRenderState{})
	return s
}

func (s *Source) publish() {
	if s.ctx.deferring.Load() {
		p := s.cur
		s.pending = &p
		return
	}
	s.slot.Publish(s.cur)
}

func (s *Source) processPendingUpdate() {
	if s.pending != nil {
		s.slot.Publish(*s.pending)
		s.pending = nil
	}
}

// publishQueue republishes the current queue contents for the mix
// thread; must be called with s.mu held whenever s.queue, s.headIndex or
// the looping flag changes.
func (s *Source) publishQueue() {
	s.queueSlot.Publish(queueSnapshot{
		buffers:   append([]*Buffer(nil), s.queue...),
		headIndex: s.headIndex,
		looping:   s.cur.Looping,
	})
}

// publishRenderState republishes the source's voices and send routing
// for the mix thread; must be called with s.mu held whenever s.voices or
// s.sendSlots changes.
func (s *Source) publishRenderState() {
	s.renderSlot.Publish(sourceRenderState{
		voices:     s.voices,
		sendSlots:  s.sendSlots,
		channels:   s.channels,
		sampleRate: s.sampleRate,
	})
}

func (s *Source) renderState() *sourceRenderState { return s.renderSlot.Load() }

// QueueBuffer appends buf to the source's playback queue, incrementing
// its reference count. All buffers in a queue must share the same
// channel count and sample rate (spec.md §4.1's "a buffer whose sample
// rate or channel count is unsupported is rejected at attach time").
func (s *Source) QueueBuffer(buf *Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := buf.Channels()
	if len(s.queue) == 0 && len(s.voices) == 0 {
		s.channels = ch
		s.sampleRate = buf.SampleRate
		s.buildVoices(buf)
	} else if ch != s.channels {
		return fmt.Errorf("alcore: queued buffer has %d channels, source expects %d", ch, s.channels)
	} else if buf.SampleRate != s.sampleRate {
		return fmt.Errorf("alcore: queued buffer has sample rate %d, source expects %d", buf.SampleRate, s.sampleRate)
	}

	buf.AddRef()
	s.queue = append(s.queue, buf)
	s.publishQueue()
	return nil
}

// UnqueueBuffers removes and releases every fully-consumed buffer at
// the head of the queue, up to (but not including) the buffer currently
// playing. Safe to call at any time; a no-op if nothing has finished.
// "Currently playing" is determined from each channel reader's absolute
// read cursor, which only the mix thread advances.
func (s *Source) UnqueueBuffers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.readers) == 0 || len(s.queue) == 0 {
		return
	}
	minAbs := s.readers[0].absBufIdx.Load()
	for _, r := range s.readers[1:] {
		if a := r.absBufIdx.Load(); a < minAbs {
			minAbs = a
		}
	}
	done := int(minAbs - s.headIndex)
	for done > 0 && len(s.queue) > 0 {
		s.queue[0].Release()
		s.queue = s.queue[1:]
		s.headIndex++
		done--
	}
	s.publishQueue()
}

func (s *Source) clearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.queue {
		b.Release()
	}
	s.headIndex += int64(len(s.queue))
	s.queue = nil
	s.publishQueue()
}

// buildVoices allocates one voice per input channel once the source's
// channel count is known, per spec.md §4.1 point 4's "render each input
// channel as a virtual source" multichannel treatment. A mono or
// ambisonic-order-1 buffer still produces exactly one or four voices
// respectively; voices advance in lockstep because they share an
// identical deterministic pitch/phase trajectory. A B-format buffer
// selects PanAmbisonic and gives each channel's voice the static gain
// vector that routes it onto the dry bus, per spec.md §4.1's ambisonic
// buffer operation.
func (s *Source) buildVoices(buf *Buffer) {
	busChannels := (s.ctx.Device.AmbiOrder + 1) * (s.ctx.Device.AmbiOrder + 1)
	if busChannels < 1 {
		busChannels = 1
	}
	pan := voice.PanMultichannel
	if s.channels == 1 {
		pan = voice.PanPoint
	}
	if s.ctx.Device.IsHeadphones && buf.Layout != LayoutBFormat {
		// Binaural devices render every non-ambisonic input channel
		// through the HRTF direct path, each channel virtualised at its
		// canonical direction.
		pan = voice.PanHRTF
	}
	ambiOrder := -1
	if buf.Layout == LayoutBFormat {
		pan = voice.PanAmbisonic
		ambiOrder = buf.AmbiOrder
	}
	s.voices = make([]*voice.Voice, s.channels)
	s.readers = make([]*channelReader, s.channels)
	for i := 0; i < s.channels; i++ {
		r := &channelReader{src: s, channelIdx: i}
		s.readers[i] = r
		v := voice.NewVoice(r, s.kernel, pan, busChannels, i)
		if pan == voice.PanHRTF {
			// Renderer state (delay ring, convolution history) is
			// per-voice; each channel needs its own.
			v.SetHRTF(s.ctx.Device.hrtfRenderer())
		}
		if ambiOrder >= 0 {
			v.StaticGains = ambi.UpsampleGains(ambiOrder, i, busChannels)
		}
		s.voices[i] = v
	}
	s.publishRenderState()
}

// Play transitions the source to the playing state, per spec.md §3's
// state machine (initial|paused -> playing).
func (s *Source) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.State = props.StatePlaying
	s.publish()
}

// Pause transitions a playing source to paused.
func (s *Source) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.State = props.StatePaused
	s.publish()
}

// Stop transitions the source to stopped. From the next mix period its
// voices are no longer mixed; no fade-out is applied.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.State = props.StateStopped
	s.publish()
}

// Rewind returns the source to its initial state and resets every
// channel reader's cursor to the start of the queue. The actual cursor
// reset happens on the mix thread the next time each reader is read,
// triggered by the bumped rewind sequence, so Rewind itself never
// touches mix-thread-only reader state.
func (s *Source) Rewind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.State = props.StateInitial
	s.publish()
	s.rewindSeq.Add(1)
}

// SetPosition sets the source's position in device-space.
func (s *Source) SetPosition(x, y, z float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Position = [3]float32{x, y, z}
	s.publish()
}

// SetVelocity sets the source's velocity, used by the Doppler model.
func (s *Source) SetVelocity(x, y, z float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Velocity = [3]float32{x, y, z}
	s.publish()
}

// SetDirection sets the source's facing direction, used by the cone
// attenuation model.
func (s *Source) SetDirection(x, y, z float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Direction = [3]float32{x, y, z}
	s.publish()
}

// SetGain sets the source's linear gain.
func (s *Source) SetGain(gain float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Gain = gain
	s.publish()
}

// SetGainRange sets the minimum and maximum clamp applied to the
// distance-attenuated gain.
func (s *Source) SetGainRange(min, max float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.MinGain, s.cur.MaxGain = min, max
	s.publish()
}

// SetPitch sets the source's user pitch multiplier (combined with
// Doppler and the buffer/device sample-rate ratio to form the voice's
// effective pitch, per spec.md §4.1 point 2).
func (s *Source) SetPitch(pitch float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Pitch = pitch
	s.publish()
}

// SetDistanceParams sets the reference distance, max distance and
// rolloff factor used by the context's distance model.
func (s *Source) SetDistanceParams(ref, max, rolloff float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.RefDistance, s.cur.MaxDistance, s.cur.RolloffFactor = ref, max, rolloff
	s.publish()
}

// SetCone sets the inner/outer cone angles (degrees) and the outer cone
// gain and high-frequency gain applied off-axis.
func (s *Source) SetCone(innerDeg, outerDeg, outerGain, outerGainHF float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.ConeInner, s.cur.ConeOuter = innerDeg, outerDeg
	s.cur.ConeOuterGain, s.cur.ConeOuterGainHF = outerGain, outerGainHF
	s.publish()
}

// SetDirectFilter sets the direct-path gain/lowpass/highpass filter
// triple.
func (s *Source) SetDirectFilter(gain, gainHF, gainLF float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Direct = props.FilterPair{Gain: gain, GainHF: gainHF, GainLF: gainLF}
	s.publish()
}

// SetSend routes auxiliary send index to slot with the given filter
// triple, or clears it if slot is nil.
func (s *Source) SetSend(index int, slot *AuxEffectSlot, gain, gainHF, gainLF float32) error {
	if index < 0 || index >= props.MaxSends {
		return fmt.Errorf("alcore: send index %d out of range [0,%d)", index, props.MaxSends)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendSlots[index] = slot
	s.cur.Sends[index] = props.SendParams{
		Filter: props.FilterPair{Gain: gain, GainHF: gainHF, GainLF: gainLF},
		Active: slot != nil,
	}
	s.publish()
	if len(s.voices) > 0 {
		s.publishRenderState()
	}
	return nil
}

// SetSpatialize selects whether this source is spatialised
// (auto/on/off), per the AL_SOURCE_SPATIALIZE_SOFT extension named in
// spec.md §6.
func (s *Source) SetSpatialize(mode SpatializeMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Spatialize = mode
	s.publish()
}

// SetResampler selects the interpolation kernel this source's voices
// use for sample-rate conversion; voices pick the change up on the mix
// thread with their next property snapshot.
func (s *Source) SetResampler(kind resampler.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Resampler = int(kind)
	s.publish()
}

// SetStereoMode selects how a stereo buffer is rendered: plain panned
// stereo, or super-stereo (widened virtual speakers), per spec.md §4.1
// point 4's two-channel treatment.
func (s *Source) SetStereoMode(mode ambi.StereoMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.StereoMode = int(mode)
	s.publish()
}

// SetSuperStereoWidth sets the super-stereo widening amount in [0, 1].
// A source that never calls this renders at the default width.
func (s *Source) SetSuperStereoWidth(width float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := width
	s.cur.SuperStereoWidth = &w
	s.publish()
}

// SetLooping sets whether the source loops its buffer queue on
// exhaustion instead of stopping.
func (s *Source) SetLooping(looping bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Looping = looping
	s.publish()
	s.publishQueue()
}

// SetRelativeToListener sets whether the source's position is
// interpreted relative to the listener instead of in world space.
func (s *Source) SetRelativeToListener(relative bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.RelativeToListener = relative
	s.publish()
}

// State returns the source's last-published playback state.
func (s *Source) State() SourceState {
	return s.slot.Load().State
}

// channelReader adapts one channel of a Source's buffer queue to the
// voice.BufferSource interface expected by internal/voice. It is driven
// exclusively from the mix thread (via Voice.Process); absBufIdx is the
// only field an API-thread goroutine (UnqueueBuffers) ever reads, and it
// only ever reads it, never writes it, so no lock is needed on either
// side (spec.md §4.5/§5's "the mixer never blocks").
type channelReader struct {
	src        *Source
	channelIdx int

	absBufIdx  atomic.Int64 // next buffer to consume, absolute queue index
	framePos   int          // mix-thread-only: frame offset within that buffer
	seenRewind int64        // mix-thread-only: last observed rewindSeq
}

func (r *channelReader) SampleRate() int { return r.src.sampleRate }
func (r *channelReader) Channels() int   { return 1 }

// Read fills dst with up to len(dst) samples of this reader's channel,
// advancing through a single consistent snapshot of the source's buffer
// queue and honouring its looping flag, per spec.md §4.1 point 2's
// buffer-exhaustion handling. It never touches the source mutex: it only
// ever loads the lock-free queue snapshot and its own atomic cursor.
func (r *channelReader) Read(dst []float32) (int, bool) {
	snap := r.src.queueSlot.Load()
	if seq := r.src.rewindSeq.Load(); seq != r.seenRewind {
		r.seenRewind = seq
		r.absBufIdx.Store(snap.headIndex)
		r.framePos = 0
	}

	n := 0
	for n < len(dst) {
		idx := r.absBufIdx.Load() - snap.headIndex
		if idx < 0 || int(idx) >= len(snap.buffers) {
			if snap.looping && len(snap.buffers) > 0 {
				r.absBufIdx.Store(snap.headIndex)
				r.framePos = 0
				continue
			}
			return n, false
		}
		buf := snap.buffers[idx]
		frames := buf.Frames()
		if frames == 0 || r.framePos >= frames {
			r.absBufIdx.Add(1)
			r.framePos = 0
			continue
		}
		ch := buf.Channels()
		fidx := r.framePos*ch + r.channelIdx
		if r.channelIdx < ch && fidx < len(buf.Data) {
			dst[n] = buf.Data[fidx]
		} else {
			dst[n] = 0
		}
		r.framePos++
		n++
	}
	return n, true
}

// voiceSources returns this source's per-channel voices paired with
// their auxiliary send targets, for the mixer driver to run this
// period, along with the computed effective pitch. srcSnap is the
// already-loaded property snapshot for this period, reused here instead
// of a fresh mutex-guarded read. Reads only lock-free snapshots, so this
// is safe to call from the mix thread.
func (s *Source) voiceSources(effectivePitch float32, srcSnap *props.Source) []*mixer.VoiceSource {
	rs := s.renderState()
	out := make([]*mixer.VoiceSource, len(rs.voices))
	for i, v := range rs.voices {
		vs := &mixer.VoiceSource{Voice: v, EffectivePitch: effectivePitch}
		for send := 0; send < props.MaxSends && send < len(vs.SendSlots); send++ {
			if slot := rs.sendSlots[send]; slot != nil {
				vs.SendSlots[send] = slot.kernel
			}
		}
		if vs.SendSlots[0] == nil && s.ctx.defaultSlot != nil && !srcSnap.Sends[0].Active {
			vs.SendSlots[0] = s.ctx.defaultSlot.kernel
		}
		out[i] = vs
	}
	return out
}

func (s *Source) snapshot() *props.Source { return s.slot.Load() }
