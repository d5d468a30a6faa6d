// listener.go - listener pose and master gain
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package alcore

import "github.com/IntuitionAmiga/alcore/internal/props"

// Listener is the single listening point of a device, per spec.md §3
// Listener: position, velocity, orientation, master gain and a
// metres-per-unit scalar, published to the mix thread through a
// lock-free property container (§4.5).
type Listener struct {
	ctx     *Context
	cur     props.Listener
	slot    *props.Container[props.Listener]
	pending *props.Listener
}

func newListener(ctx *Context) *Listener {
	l := &Listener{
		ctx: ctx,
		cur: props.Listener{
			Forward:       [3]float32{0, 0, -1},
			Up:            [3]float32{0, 1, 0},
			Gain:          1,
			MetersPerUnit: 1,
		},
	}
	l.slot = props.NewContainer(ctx.listenerFree, l.cur)
	return l
}

// publish stages or immediately publishes the listener's current field
// values, respecting the owning context's defer-updates flag (spec.md
// §4.5).
func (l *Listener) publish() {
	if l.ctx.deferring.Load() {
		p := l.cur
		l.pending = &p
		return
	}
	l.slot.Publish(l.cur)
}

// SetPosition sets the listener's position in device-space metres
// (scaled by MetersPerUnit).
func (l *Listener) SetPosition(x, y, z float32) {
	l.cur.Position = [3]float32{x, y, z}
	l.publish()
}

// SetVelocity sets the listener's velocity, used by the Doppler model.
func (l *Listener) SetVelocity(x, y, z float32) {
	l.cur.Velocity = [3]float32{x, y, z}
	l.publish()
}

// SetOrientation sets the listener's forward and up vectors.
func (l *Listener) SetOrientation(forward, up [3]float32) {
	l.cur.Forward = forward
	l.cur.Up = up
	l.publish()
}

// SetGain sets the listener's master gain.
func (l *Listener) SetGain(gain float32) {
	l.cur.Gain = gain
	l.publish()
}

// SetMetersPerUnit sets the distance-model scale factor.
func (l *Listener) SetMetersPerUnit(m float32) {
	l.cur.MetersPerUnit = m
	l.publish()
}

// snapshot returns the most recently mix-thread-visible listener
// properties.
func (l *Listener) snapshot() *props.Listener { return l.slot.Load() }

// processPendingUpdate publishes a staged snapshot taken under
// DeferUpdates, called by Context.ProcessUpdates.
func (l *Listener) processPendingUpdate() {
	if l.pending != nil {
		l.slot.Publish(*l.pending)
		l.pending = nil
	}
}
