// null_backend_test.go

package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constSource struct{ val float32 }

func (s constSource) ReadFrames(dst []float32) int {
	for i := range dst {
		dst[i] = s.val
	}
	return len(dst) / 1
}

func TestNullBackend_PumpWithoutStartIsNoop(t *testing.T) {
	b := NewNullBackend()
	require.NoError(t, b.Reset(48000, 1, 64, 2))
	assert.Equal(t, 0, b.Pump())
	assert.Equal(t, int64(0), b.FramesRead())
}

func TestNullBackend_PumpPullsFromSource(t *testing.T) {
	b := NewNullBackend()
	require.NoError(t, b.Reset(48000, 1, 64, 2))
	require.NoError(t, b.Start(context.Background(), constSource{val: 1}))

	n := b.Pump()
	assert.Equal(t, 64, n)
	assert.Equal(t, int64(64), b.FramesRead())

	b.Pump()
	assert.Equal(t, int64(128), b.FramesRead())
}

func TestNullBackend_StopClearsSource(t *testing.T) {
	b := NewNullBackend()
	require.NoError(t, b.Reset(48000, 1, 64, 2))
	require.NoError(t, b.Start(context.Background(), constSource{val: 1}))
	b.Stop()
	assert.Equal(t, 0, b.Pump())
}
