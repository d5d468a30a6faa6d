// buffer_test.go

package alcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_ChannelsAndFrames(t *testing.T) {
	data := make([]float32, 200)
	buf := NewBuffer(data, 48000, LayoutStereo)
	assert.Equal(t, 2, buf.Channels())
	assert.Equal(t, 100, buf.Frames())
}

func TestBuffer_AmbisonicChannelsDependOnOrder(t *testing.T) {
	data := make([]float32, 400)
	buf := NewAmbisonicBuffer(data, 48000, 1, NormSN3D)
	assert.Equal(t, 4, buf.Channels())
	assert.Equal(t, 100, buf.Frames())
}

func TestBuffer_RefCounting(t *testing.T) {
	buf := NewBuffer(make([]float32, 10), 48000, LayoutMono)
	assert.Equal(t, int32(0), buf.RefCount())

	buf.AddRef()
	buf.AddRef()
	assert.Equal(t, int32(2), buf.RefCount())

	require.NoError(t, buf.Release())
	assert.Equal(t, int32(1), buf.RefCount())

	require.NoError(t, buf.Release())
	assert.Equal(t, int32(0), buf.RefCount())
}

func TestBuffer_ReleaseWithoutReferenceErrors(t *testing.T) {
	buf := NewBuffer(make([]float32, 10), 48000, LayoutMono)
	err := buf.Release()
	require.Error(t, err)
	assert.Equal(t, int32(0), buf.RefCount())
}
