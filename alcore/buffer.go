// buffer.go - ref-counted PCM sample storage
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package alcore

import (
	"fmt"
	"sync/atomic"
)

// ChannelLayout names a buffer's channel arrangement, per spec.md §3
// Buffer.
type ChannelLayout int

const (
	LayoutMono ChannelLayout = iota
	LayoutStereo
	LayoutQuad
	Layout51
	Layout51Rear
	Layout61
	Layout71
	LayoutBFormat
	LayoutUHJ
)

// ChannelCount returns the number of interleaved channels a layout
// carries; ambisonic layouts (LayoutBFormat) depend on AmbiOrder and
// are not covered here.
func (l ChannelLayout) ChannelCount() int {
	switch l {
	case LayoutMono:
		return 1
	case LayoutStereo, LayoutUHJ:
		return 2
	case LayoutQuad:
		return 4
	case Layout51, Layout51Rear:
		return 6
	case Layout61:
		return 7
	case Layout71:
		return 8
	}
	return 1
}

// AmbiNorm selects the normalisation convention of an ambisonic buffer
// or device bus, per the GLOSSARY's ACN/SN3D/N3D entry.
type AmbiNorm int

const (
	NormSN3D AmbiNorm = iota
	NormN3D
	NormFuMa
)

// Buffer is an immutable, ref-counted block of PCM samples, per spec.md
// §3 Buffer. Data is interleaved across Channels channels. PCM data
// never changes while ref > 0 (spec.md §5 "copy-on-never").
type Buffer struct {
	Data       []float32
	SampleRate int
	Layout     ChannelLayout
	AmbiOrder  int
	AmbiNorm   AmbiNorm

	refs atomic.Int32
}

// NewBuffer wraps data (interleaved PCM) with its format. data is not
// copied; callers must not mutate it while the buffer has outstanding
// refs.
func NewBuffer(data []float32, sampleRate int, layout ChannelLayout) *Buffer {
	return &Buffer{Data: data, SampleRate: sampleRate, Layout: layout}
}

// NewAmbisonicBuffer wraps an order-order B-format buffer (order 1..3,
// (order+1)^2 interleaved channels), per spec.md §3's ambisonic buffer
// variant.
func NewAmbisonicBuffer(data []float32, sampleRate, order int, norm AmbiNorm) *Buffer {
	return &Buffer{Data: data, SampleRate: sampleRate, Layout: LayoutBFormat, AmbiOrder: order, AmbiNorm: norm}
}

// Channels returns the buffer's channel count, resolving the ambisonic
// case via AmbiOrder.
func (b *Buffer) Channels() int {
	if b.Layout == LayoutBFormat {
		return (b.AmbiOrder + 1) * (b.AmbiOrder + 1)
	}
	return b.Layout.ChannelCount()
}

// Frames returns the number of sample frames the buffer holds.
func (b *Buffer) Frames() int {
	ch := b.Channels()
	if ch == 0 {
		return 0
	}
	return len(b.Data) / ch
}

// AddRef increments the buffer's reference count, called when a source
// attaches the buffer to its queue.
func (b *Buffer) AddRef() { b.refs.Add(1) }

// Release decrements the reference count, called when a source detaches
// the buffer or is destroyed. Returns an error if the buffer has no
// outstanding references to release, which would indicate a double
// release in the caller.
func (b *Buffer) Release() error {
	if b.refs.Add(-1) < 0 {
		b.refs.Add(1)
		return fmt.Errorf("alcore: buffer released with no outstanding reference")
	}
	return nil
}

// RefCount returns the buffer's current outstanding reference count.
func (b *Buffer) RefCount() int32 { return b.refs.Load() }
