//go:build headless

// headless_backend.go - no-op backend for headless/CI builds
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package backend

import (
	"context"
	"sync"
)

// HeadlessBackend discards every frame it pulls. It exists so the
// module builds and the mixer pipeline can be exercised under the
// "headless" tag (tests, CI, containers without a sound device) the
// same way the teacher's headless OtoPlayer stood in for real output,
// generalised here to satisfy the full Backend contract rather than
// just the oto Read/Start/Stop shape.
type HeadlessBackend struct {
	mutex   sync.Mutex
	started bool
}

func NewHeadlessBackend() *HeadlessBackend { return &HeadlessBackend{} }

func (b *HeadlessBackend) Open(deviceName string) error { return nil }

func (b *HeadlessBackend) Reset(frequency int, channels, updateSize, numUpdates int) error {
	return nil
}

func (b *HeadlessBackend) Start(ctx context.Context, src Source) error {
	b.mutex.Lock()
	b.started = true
	b.mutex.Unlock()
	return nil
}

func (b *HeadlessBackend) Stop() {
	b.mutex.Lock()
	b.started = false
	b.mutex.Unlock()
}

func (b *HeadlessBackend) Close() { b.Stop() }

func (b *HeadlessBackend) GetClockLatency() int64 { return 0 }

func (b *HeadlessBackend) Lock()   { b.mutex.Lock() }
func (b *HeadlessBackend) Unlock() { b.mutex.Unlock() }
