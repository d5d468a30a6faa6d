// wave_backend.go - RIFF/WAVE file writer backend
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package backend

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/IntuitionAmiga/alcore/internal/mixer"
)

// WaveBackend is a polled backend (spec.md §4.6, §6 "persisted state")
// that pulls frames on demand and appends them to a RIFF/WAVE file,
// converting planar float32 to the configured SampleFormat via the
// same mixer.WriteInterleaved path a real device backend's final
// conversion step uses. The RIFF and data chunk sizes are placeholders
// until Close back-patches them, since the frame count isn't known
// until rendering finishes.
type WaveBackend struct {
	mutex sync.Mutex

	file     *os.File
	format   mixer.SampleFormat
	channels int
	rate     int

	planar    [][]float32
	interbuf  []byte
	dataBytes int64
	srcSource Source
}

// NewWaveBackend opens path for writing and reserves the WAVE header,
// to be patched in on Close once the total byte count is known.
func NewWaveBackend(path string, format mixer.SampleFormat) (*WaveBackend, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wave backend: %w", err)
	}
	return &WaveBackend{file: f, format: format}, nil
}

func (b *WaveBackend) Open(deviceName string) error { return nil }

func (b *WaveBackend) Reset(frequency int, channels, updateSize, numUpdates int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.rate = frequency
	b.channels = channels
	b.planar = make([][]float32, channels)
	for ch := range b.planar {
		b.planar[ch] = make([]float32, updateSize)
	}
	b.interbuf = make([]byte, updateSize*channels*bytesPerSample(b.format))

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return writeWaveHeader(b.file, frequency, channels, b.format, 0)
}

func bytesPerSample(f mixer.SampleFormat) int {
	switch f {
	case mixer.FormatU8:
		return 1
	case mixer.FormatI16:
		return 2
	default:
		return 4
	}
}

// Start records the source; WaveBackend is driven by repeated calls to
// Pump rather than owning a device thread, matching its polled shape.
func (b *WaveBackend) Start(ctx context.Context, src Source) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.srcSource = src
	return nil
}

// Pump pulls one period, converts it through mixer.WriteInterleaved and
// appends the resulting bytes to the file. frames is how many frames to
// request; the returned count is how many the wired source actually
// produced (0 once it's drained).
func (b *WaveBackend) Pump(frames int) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.srcSource == nil {
		return 0, nil
	}
	for ch := range b.planar {
		if len(b.planar[ch]) < frames {
			b.planar[ch] = make([]float32, frames)
		}
	}
	n := b.readInterleavedSplit(frames)
	if n == 0 {
		return 0, nil
	}
	need := n * b.channels * bytesPerSample(b.format)
	if len(b.interbuf) < need {
		b.interbuf = make([]byte, need)
	}
	written := mixer.WriteInterleaved(b.interbuf, b.planar, n, b.format)
	if _, err := b.file.Write(b.interbuf[:written]); err != nil {
		return n, err
	}
	b.dataBytes += int64(written)
	return n, nil
}

// readInterleavedSplit pulls frames from the backend.Source (which
// speaks one interleaved []float32 buffer, per the Source interface)
// and de-interleaves into the backend's planar scratch space.
func (b *WaveBackend) readInterleavedSplit(frames int) int {
	flat := make([]float32, frames*b.channels)
	n := b.srcSource.ReadFrames(flat)
	for i := 0; i < n; i++ {
		for ch := 0; ch < b.channels; ch++ {
			b.planar[ch][i] = flat[i*b.channels+ch]
		}
	}
	return n
}

func (b *WaveBackend) Stop() {}

// Close back-patches the RIFF and data chunk sizes now that the total
// frame count is known, then closes the file.
func (b *WaveBackend) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.file == nil {
		return
	}
	if _, err := b.file.Seek(0, io.SeekStart); err == nil {
		writeWaveHeader(b.file, b.rate, b.channels, b.format, b.dataBytes)
	}
	b.file.Close()
	b.file = nil
}

func (b *WaveBackend) GetClockLatency() int64 { return 0 }

func (b *WaveBackend) Lock()   { b.mutex.Lock() }
func (b *WaveBackend) Unlock() { b.mutex.Unlock() }

// writeWaveHeader writes a 44-byte canonical RIFF/WAVE header. dataSize
// of 0 is a valid placeholder written before the frame count is known.
func writeWaveHeader(w io.WriteSeeker, rate, channels int, format mixer.SampleFormat, dataSize int64) error {
	bits := bytesPerSample(format) * 8
	audioFormat := uint16(1) // PCM
	if format == mixer.FormatF32 {
		audioFormat = 3 // IEEE float
	}
	blockAlign := channels * bytesPerSample(format)
	byteRate := rate * blockAlign

	buf := make([]byte, 44)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], audioFormat)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(rate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bits))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	_, err := w.Write(buf)
	return err
}
