// source_test.go

package alcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IntuitionAmiga/alcore/internal/backend"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	dev := openTestDevice(t)
	return NewContext(dev)
}

func TestSource_QueueBufferRejectsChannelMismatch(t *testing.T) {
	ctx := newTestContext(t)
	src := ctx.CreateSource()

	require.NoError(t, src.QueueBuffer(NewBuffer(make([]float32, 100), 48000, LayoutMono)))
	err := src.QueueBuffer(NewBuffer(make([]float32, 200), 48000, LayoutStereo))
	assert.Error(t, err)
}

func TestSource_QueueBufferAddsReference(t *testing.T) {
	ctx := newTestContext(t)
	src := ctx.CreateSource()
	buf := NewBuffer(make([]float32, 100), 48000, LayoutMono)

	require.NoError(t, src.QueueBuffer(buf))
	assert.Equal(t, int32(1), buf.RefCount())
}

func TestSource_PlayPauseStopStateMachine(t *testing.T) {
	ctx := newTestContext(t)
	src := ctx.CreateSource()
	require.NoError(t, src.QueueBuffer(NewBuffer(make([]float32, 100), 48000, LayoutMono)))

	assert.Equal(t, Initial, src.State())
	src.Play()
	assert.Equal(t, Playing, src.State())
	src.Pause()
	assert.Equal(t, Paused, src.State())
	src.Play()
	assert.Equal(t, Playing, src.State())
	src.Stop()
	assert.Equal(t, Stopped, src.State())
}

func TestSource_RewindReplaysQueueFromTheStart(t *testing.T) {
	ctx := newTestContext(t)
	src := ctx.CreateSource()
	data := make([]float32, 64)
	for i := range data {
		data[i] = float32(i + 1)
	}
	require.NoError(t, src.QueueBuffer(NewBuffer(data, 48000, LayoutMono)))
	src.Play()
	require.Len(t, src.readers, 1)
	reader := src.readers[0]

	first := make([]float32, 4)
	n, more := reader.Read(first)
	require.Equal(t, 4, n)
	require.True(t, more)
	assert.Equal(t, []float32{1, 2, 3, 4}, first)

	rest := make([]float32, 16)
	reader.Read(rest)

	src.Rewind()
	assert.Equal(t, Initial, src.State())
	src.Play()

	// The reset is applied lazily, the next time the mix thread reads
	// this reader's channel, so this call must observe the buffer from
	// its start again rather than wherever rest's Read left off.
	again := make([]float32, 4)
	n, more = reader.Read(again)
	require.Equal(t, 4, n)
	require.True(t, more)
	assert.Equal(t, []float32{1, 2, 3, 4}, again)
}

func TestSource_SetSendRejectsOutOfRangeIndex(t *testing.T) {
	ctx := newTestContext(t)
	src := ctx.CreateSource()
	err := src.SetSend(props4Sends(), nil, 1, 1, 1)
	assert.Error(t, err)
}

// props4Sends returns 4, which is one past the last valid send slot
// while internal/props.MaxSends is 4.
func props4Sends() int { return 4 }

func TestSource_DestroyReleasesQueuedBuffers(t *testing.T) {
	ctx := newTestContext(t)
	src := ctx.CreateSource()
	buf := NewBuffer(make([]float32, 100), 48000, LayoutMono)
	require.NoError(t, src.QueueBuffer(buf))

	ctx.DestroySource(src)
	assert.Equal(t, int32(0), buf.RefCount())
}

func TestMultiChannelSource_BuildsOneVoicePerChannel(t *testing.T) {
	ctx := newTestContext(t)
	src := ctx.CreateSource()
	require.NoError(t, src.QueueBuffer(NewBuffer(make([]float32, 400), 48000, LayoutQuad)))
	assert.Len(t, src.voices, 4)
	assert.Len(t, src.readers, 4)
}

func TestDevice_NullBackendLifecycle(t *testing.T) {
	be := backend.NewNullBackend()
	dev, err := OpenDevice(be, DeviceOptions{
		Frequency:  48000,
		UpdateSize: 128,
		FmtChans:   FmtStereo,
		FmtType:    TypeF32,
	})
	require.NoError(t, err)
	defer dev.Close()

	assert.True(t, dev.IsConnected())
}
