//go:build !headless

// oto_backend.go - cross-platform output via ebitengine/oto v3
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package backend

import (
	"context"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

// OtoBackend is a callback-driven backend built on oto: oto owns the
// platform device thread and calls Read whenever it needs more samples.
// Adapted from the teacher's OtoPlayer, generalised from "read one
// SoundChip's ring" to "pull frames from whatever Source was passed to
// Start", with the same atomic.Pointer-based lock-free handoff for the
// hot Read path.
type OtoBackend struct {
	ctx       *oto.Context
	player    *oto.Player
	src       atomic.Pointer[Source]
	sampleBuf []float32
	started   bool
	mutex     sync.Mutex

	channels int
}

// NewOtoBackend builds (but does not open) an oto backend.
func NewOtoBackend() *OtoBackend {
	return &OtoBackend{channels: 1}
}

func (b *OtoBackend) Open(deviceName string) error { return nil }

func (b *OtoBackend) Reset(frequency int, channels, updateSize, numUpdates int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.channels = channels
	op := &oto.NewContextOptions{
		SampleRate:   frequency,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return err
	}
	<-ready
	b.ctx = ctx
	b.sampleBuf = make([]float32, updateSize*channels)
	return nil
}

func (b *OtoBackend) Start(ctx context.Context, src Source) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.src.Store(&src)
	if b.player == nil {
		b.player = b.ctx.NewPlayer(b)
	}
	if !b.started {
		b.player.Play()
		b.started = true
	}
	return nil
}

// Read implements io.Reader for oto.Player, pulling frames from the
// currently-stored Source without locking the hot path (same
// atomic-pointer technique the teacher used for chip handoff).
func (b *OtoBackend) Read(p []byte) (n int, err error) {
	srcPtr := b.src.Load()
	if srcPtr == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	src := *srcPtr

	numSamples := len(p) / 4
	if len(b.sampleBuf) < numSamples {
		b.sampleBuf = make([]float32, numSamples)
	}
	samples := b.sampleBuf[:numSamples]

	frames := src.ReadFrames(samples)
	for i := frames * b.channels; i < numSamples; i++ {
		samples[i] = 0
	}

	copy(p, (*[1 << 30]byte)(unsafe.Pointer(&samples[0]))[:len(p)])
	return len(p), nil
}

func (b *OtoBackend) Stop() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.started && b.player != nil {
		b.player.Close()
		b.started = false
	}
}

func (b *OtoBackend) Close() {
	b.Stop()
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.player != nil {
		b.player.Close()
		b.player = nil
	}
}

func (b *OtoBackend) GetClockLatency() int64 { return 0 }

func (b *OtoBackend) Lock()   { b.mutex.Lock() }
func (b *OtoBackend) Unlock() { b.mutex.Unlock() }
