// listener_test.go

package alcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListener_DefaultsMatchOpenALConventions(t *testing.T) {
	ctx := newTestContext(t)
	snap := ctx.Listener.snapshot()
	assert.Equal(t, [3]float32{0, 0, -1}, snap.Forward)
	assert.Equal(t, [3]float32{0, 1, 0}, snap.Up)
	assert.Equal(t, float32(1), snap.Gain)
	assert.Equal(t, float32(1), snap.MetersPerUnit)
}

func TestListener_SetPositionPublishesImmediatelyOutsideDefer(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Listener.SetPosition(1, 2, 3)
	snap := ctx.Listener.snapshot()
	assert.Equal(t, [3]float32{1, 2, 3}, snap.Position)
}

func TestListener_SetGain(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Listener.SetGain(0.5)
	assert.Equal(t, float32(0.5), ctx.Listener.snapshot().Gain)
}
