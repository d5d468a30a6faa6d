// effect.go - effect slot host, four-operation kernel contract, DAG routing
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

// Package effect implements the auxiliary effect-slot chain of spec.md
// §4.3: a narrow four-operation contract every effect kernel satisfies
// (DeviceUpdate/Update/Process/lifecycle), a slot host that topologically
// sorts slot targets into a DAG and refuses cycles, and the built-in
// kernel set. Per spec.md, kernel interiors are explicitly non-core; each
// kernel here is a small, real implementation rather than a reference
// -quality port, in keeping with that scope boundary.
package effect

import (
	"errors"
	"sync/atomic"
)

// DeviceInfo carries the device parameters an effect needs at reset
// time (sample rate and ambisonic channel count of the bus it reads).
type DeviceInfo struct {
	SampleRate   int
	ChannelCount int
}

// Kernel is the four-operation contract spec.md §4.3 requires of every
// effect: DeviceUpdate is called once per device reset (may allocate;
// never concurrent with Process); Update applies a batch of named DSP
// parameter changes (e.g. Reverb's "room_size") ahead of the next
// Process call, the operation spec.md §4.5 lists effect parameters as
// crossing the API/mix-thread boundary through; Process is the real-time
// hot path and must not allocate once warmed up. A kernel that has
// nothing to update may embed NullEffect's Update or implement a no-op.
type Kernel interface {
	DeviceUpdate(info DeviceInfo)
	Update(params map[string]float32)
	Process(frames int, input [][]float32, output [][]float32)
}

// Slot is a named post-source destination holding one effect kernel, per
// spec.md §3 Effect Slot.
type Slot struct {
	Name        string
	Kernel      Kernel
	Gain        float32
	Target      *Slot // nil => dry bus
	AuxSendAuto bool

	input   [][]float32
	scratch [][]float32

	pendingParams atomic.Pointer[map[string]float32]
}

// NewSlot builds a slot around kernel with an auxiliary input bus sized
// for channelCount ambisonic channels of frameCount samples each.
func NewSlot(name string, kernel Kernel, channelCount, frameCount int) *Slot {
	in := make([][]float32, channelCount)
	scratch := make([][]float32, channelCount)
	for i := range in {
		in[i] = make([]float32, frameCount)
		scratch[i] = make([]float32, frameCount)
	}
	return &Slot{Name: name, Kernel: kernel, Gain: 1, input: in, scratch: scratch}
}

// SetParams stages a batch of named DSP parameter changes (e.g.
// Reverb's "room_size") to be delivered to the kernel via Update just
// before the slot's next Process call, without the mix thread ever
// blocking on the API thread that called this.
func (s *Slot) SetParams(params map[string]float32) {
	p := params
	s.pendingParams.Store(&p)
}

// Input returns the slot's auxiliary input bus for accumulation by the
// mixer before Process runs.
func (s *Slot) Input() [][]float32 { return s.input }

// ClearInput zeroes the slot's input bus at the start of a mix
// iteration.
func (s *Slot) ClearInput() {
	for _, ch := range s.input {
		for i := range ch {
			ch[i] = 0
		}
	}
}

// Host owns the set of effect slots for one context and produces a
// processing order safe to run sequentially: every slot's input is fully
// accumulated (by voices and by any feeder slot) before its Process runs.
type Host struct {
	slots []*Slot
}

// NewHost builds an empty slot host.
func NewHost() *Host { return &Host{} }

// Add registers a slot with the host.
func (h *Host) Add(s *Slot) { h.slots = append(h.slots, s) }

// ErrCycle is returned by Order when the slot target graph contains a
// cycle, per spec.md §4.3's "the core refuses to create a cycle".
var ErrCycle = errors.New("effect: slot target graph contains a cycle")

// Order returns the host's slots topologically sorted so each slot
// appears after every slot that feeds into it (its own Target chain is
// resolved before the slot runs), detecting cycles along the way.
func (h *Host) Order() ([]*Slot, error) {
	const (
		white = iota
		grey
		black
	)
	color := make(map[*Slot]int, len(h.slots))
	var order []*Slot

	var visit func(s *Slot) error
	visit = func(s *Slot) error {
		switch color[s] {
		case black:
			return nil
		case grey:
			return ErrCycle
		}
		color[s] = grey
		if s.Target != nil {
			if err := visit(s.Target); err != nil {
				return err
			}
		}
		color[s] = black
		// A slot must run before the thing it feeds, so it is appended
		// here, before returning up to the target's own visit - but
		// since we recurse into Target first, we'd otherwise end up
		// with targets before feeders. Reverse at the end instead.
		order = append(order, s)
		return nil
	}

	for _, s := range h.slots {
		if err := visit(s); err != nil {
			return nil, err
		}
	}

	// visit() appends targets before feeders (it recurses into Target
	// first); reverse so feeders precede their targets, matching
	// spec.md's required processing order.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// Run processes every slot in dependency order, routing each slot's
// output into its target's input bus (or, if Target is nil, the caller
// -supplied dry bus).
func (h *Host) Run(frames int, dryBus [][]float32) error {
	order, err := h.Order()
	if err != nil {
		return err
	}
	for _, s := range order {
		var out [][]float32
		if s.Target != nil {
			out = s.Target.input
		} else {
			out = dryBus
		}
		if p := s.pendingParams.Swap(nil); p != nil {
			s.Kernel.Update(*p)
		}
		scaled := s.scratch
		for i := range scaled {
			line := scaled[i][:frames]
			for j := range line {
				line[j] = 0
			}
			scaled[i] = line
		}
		s.Kernel.Process(frames, s.input, scaled)
		for ch := range out {
			if ch >= len(scaled) {
				continue
			}
			for i := 0; i < frames; i++ {
				out[ch][i] += scaled[ch][i] * s.Gain
			}
		}
	}
	return nil
}
