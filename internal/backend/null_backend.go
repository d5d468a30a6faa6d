// null_backend.go - externally-clocked silence sink
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package backend

import (
	"context"
	"sync"
)

// NullBackend is the polled shape's minimal member: it owns no device
// thread at all. Start just records the source; a caller drives output
// by calling Pump on whatever cadence it likes (a test's manual loop, a
// time.Ticker, or a batch render), matching spec.md §4.6's "polled"
// backends which must be driven externally rather than calling back
// into the mixer on their own schedule.
type NullBackend struct {
	mutex      sync.Mutex
	src        Source
	channels   int
	frameBuf   []float32
	framesRead int64
}

func NewNullBackend() *NullBackend { return &NullBackend{channels: 1} }

func (b *NullBackend) Open(deviceName string) error { return nil }

func (b *NullBackend) Reset(frequency int, channels, updateSize, numUpdates int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.channels = channels
	b.frameBuf = make([]float32, updateSize*channels)
	return nil
}

func (b *NullBackend) Start(ctx context.Context, src Source) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.src = src
	return nil
}

// Pump pulls one period's worth of frames (sized per the last Reset
// call) from the wired source and discards them, tracking the running
// frame count so tests can assert on throughput. It is a no-op if Start
// hasn't been called yet.
func (b *NullBackend) Pump() (frames int) {
	b.mutex.Lock()
	src := b.src
	buf := b.frameBuf
	b.mutex.Unlock()
	if src == nil || len(buf) == 0 {
		return 0
	}
	frames = src.ReadFrames(buf)
	b.mutex.Lock()
	b.framesRead += int64(frames)
	b.mutex.Unlock()
	return frames
}

// FramesRead reports the cumulative frame count consumed via Pump.
func (b *NullBackend) FramesRead() int64 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.framesRead
}

func (b *NullBackend) Stop() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.src = nil
}

func (b *NullBackend) Close() { b.Stop() }

func (b *NullBackend) GetClockLatency() int64 { return 0 }

func (b *NullBackend) Lock()   { b.mutex.Lock() }
func (b *NullBackend) Unlock() { b.mutex.Unlock() }
