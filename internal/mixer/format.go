// format.go - f32 to device sample format conversion with clipping
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package mixer

import "math"

// SampleFormat names the device's real output sample representation,
// per spec.md §4.4 step 6.
type SampleFormat int

const (
	FormatU8 SampleFormat = iota
	FormatI16
	FormatI32
	FormatF32
)

// clampf32 saturates a float sample to [-1, 1] before quantisation,
// matching the reference's clamping ahead of integer conversion.
func clampf32(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// WriteInterleaved converts planar per-channel f32 buffers into an
// interleaved device buffer of the given format, writing into dst and
// returning the number of bytes written.
func WriteInterleaved(dst []byte, planar [][]float32, frames int, format SampleFormat) int {
	channels := len(planar)
	switch format {
	case FormatU8:
		for i := 0; i < frames; i++ {
			for ch := 0; ch < channels; ch++ {
				v := clampf32(planar[ch][i])
				dst[(i*channels + ch)] = byte(int16(v*127) + 128)
			}
		}
		return frames * channels
	case FormatI16:
		for i := 0; i < frames; i++ {
			for ch := 0; ch < channels; ch++ {
				v := clampf32(planar[ch][i])
				s := int16(v * 32767)
				idx := (i*channels + ch) * 2
				dst[idx] = byte(s)
				dst[idx+1] = byte(s >> 8)
			}
		}
		return frames * channels * 2
	case FormatI32:
		for i := 0; i < frames; i++ {
			for ch := 0; ch < channels; ch++ {
				v := clampf32(planar[ch][i])
				s := int32(float64(v) * math.MaxInt32)
				idx := (i*channels + ch) * 4
				dst[idx] = byte(s)
				dst[idx+1] = byte(s >> 8)
				dst[idx+2] = byte(s >> 16)
				dst[idx+3] = byte(s >> 24)
			}
		}
		return frames * channels * 4
	case FormatF32:
		for i := 0; i < frames; i++ {
			for ch := 0; ch < channels; ch++ {
				v := clampf32(planar[ch][i])
				bits := math.Float32bits(v)
				idx := (i*channels + ch) * 4
				dst[idx] = byte(bits)
				dst[idx+1] = byte(bits >> 8)
				dst[idx+2] = byte(bits >> 16)
				dst[idx+3] = byte(bits >> 24)
			}
		}
		return frames * channels * 4
	}
	return 0
}
