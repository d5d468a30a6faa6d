// wave_backend_test.go

package backend

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IntuitionAmiga/alcore/internal/mixer"
)

type stereoRampSource struct{ frames int }

func (s *stereoRampSource) ReadFrames(dst []float32) int {
	channels := 2
	n := len(dst) / channels
	if n > s.frames {
		n = s.frames
	}
	for i := 0; i < n; i++ {
		dst[i*channels] = 0.5
		dst[i*channels+1] = -0.5
	}
	s.frames -= n
	return n
}

func TestWaveBackend_WritesValidHeaderAndDataSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	wb, err := NewWaveBackend(path, mixer.FormatI16)
	require.NoError(t, err)

	require.NoError(t, wb.Reset(48000, 2, 256, 4))
	require.NoError(t, wb.Start(context.Background(), &stereoRampSource{frames: 512}))

	total := 0
	for {
		n, err := wb.Pump(256)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		total += n
	}
	assert.Equal(t, 512, total)
	wb.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 44)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "fmt ", string(data[12:16]))
	assert.Equal(t, "data", string(data[36:40]))

	channels := binary.LittleEndian.Uint16(data[22:24])
	rate := binary.LittleEndian.Uint32(data[24:28])
	bits := binary.LittleEndian.Uint16(data[34:36])
	dataSize := binary.LittleEndian.Uint32(data[40:44])

	assert.Equal(t, uint16(2), channels)
	assert.Equal(t, uint32(48000), rate)
	assert.Equal(t, uint16(16), bits)
	assert.Equal(t, uint32(512*2*2), dataSize) // frames * channels * bytesPerSample
	assert.Len(t, data, 44+int(dataSize))

	riffSize := binary.LittleEndian.Uint32(data[4:8])
	assert.Equal(t, uint32(36+dataSize), riffSize)
}

func TestWaveBackend_PumpWithoutStartIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	wb, err := NewWaveBackend(path, mixer.FormatF32)
	require.NoError(t, err)
	require.NoError(t, wb.Reset(48000, 2, 256, 4))

	n, err := wb.Pump(256)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	wb.Close()
}
