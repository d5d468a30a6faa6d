// context_test.go

package alcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IntuitionAmiga/alcore/internal/effect"
)

func TestContext_DeferUpdatesStagesUntilProcessUpdates(t *testing.T) {
	ctx := newTestContext(t)
	src := ctx.CreateSource()

	ctx.DeferUpdates()
	src.SetGain(0.25)
	ctx.Listener.SetGain(0.5)

	// Nothing published yet: both objects should still read their
	// pre-defer defaults.
	assert.Equal(t, float32(1), src.snapshot().Gain)
	assert.Equal(t, float32(1), ctx.Listener.snapshot().Gain)

	ctx.ProcessUpdates()

	assert.Equal(t, float32(0.25), src.snapshot().Gain)
	assert.Equal(t, float32(0.5), ctx.Listener.snapshot().Gain)
}

func TestContext_SetSlotTargetRejectsCycle(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.CreateAuxEffectSlot("a", effect.NewReverb())
	b := ctx.CreateAuxEffectSlot("b", effect.NewDistortion())

	require.NoError(t, ctx.SetSlotTarget(a, b))
	err := ctx.SetSlotTarget(b, a)
	assert.ErrorIs(t, err, effect.ErrCycle)
}

func TestContext_EnableDefaultSendRoutesUnsentSources(t *testing.T) {
	ctx := newTestContext(t)
	slot := ctx.CreateAuxEffectSlot("verb", effect.NewReverb())
	ctx.EnableDefaultSend(slot)

	src := ctx.CreateSource()
	require.NoError(t, src.QueueBuffer(NewBuffer(make([]float32, 100), 48000, LayoutMono)))
	src.Play()

	voiceSources := src.voiceSources(1, src.snapshot())
	require.Len(t, voiceSources, 1)
	assert.Same(t, slot.kernel, voiceSources[0].SendSlots[0])
}

func TestContext_CreateAuxEffectSlotSizesInputToBus(t *testing.T) {
	ctx := newTestContext(t)
	// openTestDevice leaves AmbiOrder at its zero value, so the dry bus
	// (and every effect slot's input) is a single channel.
	slot := ctx.CreateAuxEffectSlot("verb", effect.NewReverb())
	assert.Len(t, slot.Input(), 1)
}
