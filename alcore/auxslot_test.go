// auxslot_test.go

package alcore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/IntuitionAmiga/alcore/internal/effect"
)

func TestAuxEffectSlot_SetGainPropagatesToKernel(t *testing.T) {
	ctx := newTestContext(t)
	slot := ctx.CreateAuxEffectSlot("verb", effect.NewReverb())

	slot.SetGain(0.3)
	assert.Equal(t, float32(0.3), slot.kernel.Gain)
}

func TestAuxEffectSlot_SetAuxSendAutoPropagatesToKernel(t *testing.T) {
	ctx := newTestContext(t)
	slot := ctx.CreateAuxEffectSlot("verb", effect.NewReverb())

	slot.SetAuxSendAuto(true)
	assert.True(t, slot.kernel.AuxSendAuto)
}

func TestAuxEffectSlot_DeferredGainAppliesOnProcessUpdates(t *testing.T) {
	ctx := newTestContext(t)
	slot := ctx.CreateAuxEffectSlot("verb", effect.NewReverb())

	ctx.DeferUpdates()
	slot.SetGain(0.7)
	assert.Equal(t, float32(1), slot.kernel.Gain)

	ctx.ProcessUpdates()
	assert.Equal(t, float32(0.7), slot.kernel.Gain)
}
