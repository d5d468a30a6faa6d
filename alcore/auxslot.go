// auxslot.go - named auxiliary effect-send destination
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package alcore

import (
	"github.com/IntuitionAmiga/alcore/internal/effect"
	"github.com/IntuitionAmiga/alcore/internal/props"
)

// AuxEffectSlot is a named post-source destination holding one effect
// kernel, per spec.md §3 Effect Slot.
type AuxEffectSlot struct {
	ctx     *Context
	Name    string
	kernel  *effect.Slot
	cur     props.EffectSlot
	slot    *props.Container[props.EffectSlot]
	pending *props.EffectSlot
}

func newAuxEffectSlot(ctx *Context, name string, kernel *effect.Slot) *AuxEffectSlot {
	s := &AuxEffectSlot{
		ctx:    ctx,
		Name:   name,
		kernel: kernel,
		cur:    props.EffectSlot{Gain: 1},
	}
	s.slot = props.NewContainer(ctx.slotFree, s.cur)
	return s
}

func (s *AuxEffectSlot) publish() {
	if s.ctx.deferring.Load() {
		p := s.cur
		s.pending = &p
		return
	}
	s.apply()
}

// apply pushes the staged property values into both the lock-free
// container (for any reader that wants the snapshot) and directly onto
// the underlying effect.Slot fields the mixer reads, since gain/target
// are read every period rather than recomputed from a derived state.
func (s *AuxEffectSlot) apply() {
	s.slot.Publish(s.cur)
	s.kernel.Gain = s.cur.Gain
	s.kernel.AuxSendAuto = s.cur.AuxSendAuto
}

// SetGain sets the slot's output gain.
func (s *AuxEffectSlot) SetGain(gain float32) {
	s.cur.Gain = gain
	s.publish()
}

// SetAuxSendAuto enables or disables this slot as an implicit default
// send target (spec.md §4.3's "Default send").
func (s *AuxEffectSlot) SetAuxSendAuto(auto bool) {
	s.cur.AuxSendAuto = auto
	s.publish()
}

// SetParams stages a batch of named DSP parameter changes (e.g.
// Reverb's "room_size", RingModulator's "frequency_hz") for delivery
// to the slot's kernel ahead of its next mix period, per spec.md
// §4.5's "effect parameters" crossing the API/mix-thread boundary.
// Unlike Gain/AuxSendAuto this never touches s.cur or the lock-free
// props.Container: the kernel itself owns the handoff via
// effect.Slot.SetParams, so this call never blocks on the mixer.
func (s *AuxEffectSlot) SetParams(params map[string]float32) {
	s.kernel.SetParams(params)
}

func (s *AuxEffectSlot) processPendingUpdate() {
	if s.pending != nil {
		s.cur = *s.pending
		s.pending = nil
		s.apply()
	}
}

// Input returns the slot's auxiliary ambisonic input bus, for advanced
// callers that want to inspect or pre-seed it.
func (s *AuxEffectSlot) Input() [][]float32 { return s.kernel.Input() }
