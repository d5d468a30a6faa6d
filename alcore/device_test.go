// device_test.go

package alcore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IntuitionAmiga/alcore/internal/backend"
)

func sineBuffer(rate int, freq float64, frames int) *Buffer {
	data := make([]float32, frames)
	for i := range data {
		data[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(rate)))
	}
	return NewBuffer(data, rate, LayoutMono)
}

func openTestDevice(t *testing.T) *Device {
	t.Helper()
	dev, err := OpenDevice(backend.NewNullBackend(), DeviceOptions{
		Frequency:  48000,
		UpdateSize: 256,
		NumUpdates: 2,
		FmtChans:   FmtStereo,
		FmtType:    TypeF32,
	})
	require.NoError(t, err)
	t.Cleanup(dev.Close)
	return dev
}

func TestOpenDevice_RejectsOversizedUpdateSize(t *testing.T) {
	_, err := OpenDevice(backend.NewNullBackend(), DeviceOptions{
		Frequency:  48000,
		UpdateSize: 1 << 20,
		FmtChans:   FmtStereo,
		FmtType:    TypeF32,
	})
	assert.Error(t, err)
}

func TestOpenDevice_RejectsHeadphonesWithoutHRTFStore(t *testing.T) {
	_, err := OpenDevice(backend.NewNullBackend(), DeviceOptions{
		Frequency:    48000,
		UpdateSize:   256,
		FmtChans:     FmtStereo,
		FmtType:      TypeF32,
		IsHeadphones: true,
	})
	assert.Error(t, err)
}

func TestDevice_PlayingSourceProducesNonSilentOutput(t *testing.T) {
	dev := openTestDevice(t)
	ctx := NewContext(dev)
	src := ctx.CreateSource()
	require.NoError(t, src.QueueBuffer(sineBuffer(48000, 440, 48000)))
	src.SetPosition(0, 0, -1)
	src.Play()

	dst := make([]float32, 256*2)
	frames := dev.ReadFrames(dst)
	assert.Equal(t, 256, frames)

	var sumAbs float64
	for _, v := range dst {
		sumAbs += math.Abs(float64(v))
	}
	assert.Greater(t, sumAbs, 0.0, "expected non-silent output from a playing source")
}

func TestDevice_StoppedSourceProducesSilence(t *testing.T) {
	dev := openTestDevice(t)
	ctx := NewContext(dev)
	src := ctx.CreateSource()
	require.NoError(t, src.QueueBuffer(sineBuffer(48000, 440, 48000)))
	// Source starts in the Initial state; never calling Play leaves it silent.

	dst := make([]float32, 256*2)
	dev.ReadFrames(dst)
	for _, v := range dst {
		assert.Zero(t, v)
	}
}

func TestDevice_DisconnectProducesSilenceWithoutTouchingVoices(t *testing.T) {
	dev := openTestDevice(t)
	ctx := NewContext(dev)
	src := ctx.CreateSource()
	require.NoError(t, src.QueueBuffer(sineBuffer(48000, 440, 48000)))
	src.Play()

	dev.MarkDisconnected()
	assert.False(t, dev.IsConnected())

	dst := make([]float32, 256*2)
	frames := dev.ReadFrames(dst)
	assert.Equal(t, 256, frames)
	for _, v := range dst {
		assert.Zero(t, v)
	}
}

func TestDevice_MixCountAdvancesEachPeriod(t *testing.T) {
	dev := openTestDevice(t)
	ctx := NewContext(dev)
	src := ctx.CreateSource()
	require.NoError(t, src.QueueBuffer(sineBuffer(48000, 440, 48000)))
	src.Play()

	before := dev.MixCount()
	dst := make([]float32, 256*2)
	dev.ReadFrames(dst)
	after := dev.MixCount()
	assert.Greater(t, after, before)
}
