// context.go - a logical mixing scene
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package alcore

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/IntuitionAmiga/alcore/internal/ambi"
	"github.com/IntuitionAmiga/alcore/internal/effect"
	"github.com/IntuitionAmiga/alcore/internal/props"
)

// Context is a logical mixing scene bound to a device: it owns a list
// of sources and effect slots and carries per-context mix parameters
// (Doppler factor, speed of sound, distance model, output limiter
// gain) plus the defer-update flag of spec.md §4.5, per spec.md §3
// Context.
type Context struct {
	Device *Device

	mu       sync.Mutex
	Listener *Listener
	sources  []*Source
	slots    []*AuxEffectSlot
	hostIdx  map[*AuxEffectSlot]*effect.Slot
	host     *effect.Host

	defaultSlot *AuxEffectSlot

	cur       props.Context
	slot      *props.Container[props.Context]
	pending   *props.Context
	deferring atomic.Bool

	listenerFree     *props.FreeList[props.Listener]
	sourceFree       *props.FreeList[props.Source]
	slotFree         *props.FreeList[props.EffectSlot]
	sourceQueueFree  *props.FreeList[queueSnapshot]
	sourceRenderFree *props.FreeList[sourceRenderState]
}

// NewContext creates a context bound to dev with default mix
// parameters (Doppler factor 1, speed of sound 343.3 m/s, inverse-clamped
// distance model, unity limiter gain).
func NewContext(dev *Device) *Context {
	c := &Context{
		Device:           dev,
		host:             effect.NewHost(),
		hostIdx:          map[*AuxEffectSlot]*effect.Slot{},
		listenerFree:     props.NewFreeList[props.Listener](4),
		sourceFree:       props.NewFreeList[props.Source](64),
		slotFree:         props.NewFreeList[props.EffectSlot](16),
		sourceQueueFree:  props.NewFreeList[queueSnapshot](64),
		sourceRenderFree: props.NewFreeList[sourceRenderState](64),
		cur: props.Context{
			DopplerFactor: 1,
			SpeedOfSound:  343.3,
			DistanceModel: int(ambi.DistanceInverseClamped),
			LimiterGain:   1,
		},
	}
	c.slot = props.NewContainer(props.NewFreeList[props.Context](2), c.cur)
	c.Listener = newListener(c)
	dev.addContext(c)
	return c
}

func (c *Context) publish() {
	if c.deferring.Load() {
		p := c.cur
		c.pending = &p
		return
	}
	c.slot.Publish(c.cur)
}

// SetDopplerFactor scales the Doppler pitch shift applied to moving
// sources.
func (c *Context) SetDopplerFactor(f float32) {
	c.cur.DopplerFactor = f
	c.publish()
}

// SetSpeedOfSound sets the propagation speed used by the Doppler model,
// in metres/second.
func (c *Context) SetSpeedOfSound(v float32) {
	c.cur.SpeedOfSound = v
	c.publish()
}

// SetDistanceModel selects the attenuation curve new and existing
// sources use.
func (c *Context) SetDistanceModel(m ambi.DistanceModel) {
	c.cur.DistanceModel = int(m)
	c.publish()
}

// SetLimiterGain sets the output limiter's target ceiling.
func (c *Context) SetLimiterGain(g float32) {
	c.cur.LimiterGain = g
	c.publish()
}

// DeferUpdates begins a batch of property writes that are staged rather
// than published immediately, per spec.md §4.5.
func (c *Context) DeferUpdates() { c.deferring.Store(true) }

// ProcessUpdates atomically publishes every property container staged
// since the matching DeferUpdates, so the mixer observes either every
// object's pre-defer state or every object's post-defer state, never a
// mix (spec.md §5's ordering guarantee).
func (c *Context) ProcessUpdates() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferring.Store(false)
	if c.pending != nil {
		c.slot.Publish(*c.pending)
		c.pending = nil
	}
	c.Listener.processPendingUpdate()
	for _, s := range c.sources {
		s.processPendingUpdate()
	}
	for _, s := range c.slots {
		s.processPendingUpdate()
	}
}

// CreateSource allocates a new source bound to this context, per
// spec.md §3's "a source may be attached to at most one context."
func (c *Context) CreateSource() *Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := newSource(c)
	c.sources = append(c.sources, s)
	return s
}

// DestroySource removes a source from the context, releasing any
// buffers it still references.
func (c *Context) DestroySource(s *Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.sources {
		if existing == s {
			c.sources = append(c.sources[:i], c.sources[i+1:]...)
			break
		}
	}
	s.clearQueue()
}

// CreateAuxEffectSlot allocates a new named effect slot on this
// context, per spec.md §3 Effect Slot.
func (c *Context) CreateAuxEffectSlot(name string, kernel effect.Kernel) *AuxEffectSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	busChannels := (c.Device.AmbiOrder + 1) * (c.Device.AmbiOrder + 1)
	if busChannels < 1 {
		busChannels = 1
	}
	internalSlot := effect.NewSlot(name, kernel, busChannels, c.Device.UpdateSize)
	kernel.DeviceUpdate(effect.DeviceInfo{
		SampleRate:   c.Device.Frequency,
		ChannelCount: busChannels,
	})
	c.host.Add(internalSlot)
	slot := newAuxEffectSlot(c, name, internalSlot)
	c.slots = append(c.slots, slot)
	c.hostIdx[slot] = internalSlot
	return slot
}

// SetSlotTarget routes slot's output into target's input (forming a
// DAG), or to the dry bus if target is nil. Returns effect.ErrCycle if
// the new edge would create a cycle, per spec.md §4.3.
func (c *Context) SetSlotTarget(slot, target *AuxEffectSlot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	internalSlot := c.hostIdx[slot]
	prev := internalSlot.Target
	if target == nil {
		internalSlot.Target = nil
	} else {
		internalSlot.Target = c.hostIdx[target]
	}
	if _, err := c.host.Order(); err != nil {
		internalSlot.Target = prev
		return fmt.Errorf("alcore: %w", err)
	}
	return nil
}

// EnableDefaultSend designates slot as the implicit destination for
// sources with no explicit auxiliary send, per spec.md §4.3's "Default
// send".
func (c *Context) EnableDefaultSend(slot *AuxEffectSlot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultSlot = slot
}

func (c *Context) snapshot() *props.Context { return c.slot.Load() }
