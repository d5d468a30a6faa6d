// lut.go - fast-math lookup tables shared by the mixer's hot path
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

// Package dsp holds the ancillary signal-processing building blocks used
// throughout the mixer: biquads, band splitters, phase shifters, the UHJ
// codec and a small FFT. None of it is mixer-state; everything here is a
// pure function or a small value type the caller owns.
package dsp

import "math"

const (
	sinLUTSize  = 8192
	sinLUTMask  = sinLUTSize - 1
	tanhLUTSize = 4096
	tanhLUTMin  = float32(-4.0)
	tanhLUTMax  = float32(4.0)
)

const (
	sinLUTScale  = float32(sinLUTSize) / (2 * math.Pi)
	tanhLUTScale = float32(tanhLUTSize-1) / (tanhLUTMax - tanhLUTMin)
)

const TwoPi = 2 * math.Pi

var sinLUT [sinLUTSize]float32
var tanhLUT [tanhLUTSize]float32

func init() {
	for i := 0; i < sinLUTSize; i++ {
		phase := float64(i) * 2 * math.Pi / float64(sinLUTSize)
		sinLUT[i] = float32(math.Sin(phase))
	}
	for i := 0; i < tanhLUTSize; i++ {
		x := float64(tanhLUTMin) + float64(i)*float64(tanhLUTMax-tanhLUTMin)/float64(tanhLUTSize-1)
		tanhLUT[i] = float32(math.Tanh(x))
	}
}

// FastSin returns sin(phase) via lookup table with linear interpolation.
// phase wraps to [0, 2*pi) automatically.
//
//go:nosplit
func FastSin(phase float32) float32 {
	if phase < 0 {
		phase += TwoPi
		if phase < 0 {
			phase = phase - TwoPi*float32(int(phase/TwoPi)-1)
		}
	} else if phase >= TwoPi {
		phase = phase - TwoPi*float32(int(phase/TwoPi))
	}

	indexF := phase * sinLUTScale
	index := int(indexF)
	frac := indexF - float32(index)

	index &= sinLUTMask
	nextIndex := (index + 1) & sinLUTMask
	return sinLUT[index] + frac*(sinLUT[nextIndex]-sinLUT[index])
}

// FastTanh returns tanh(x) via lookup table with linear interpolation.
// Input outside [-4, 4] saturates to +-1, matching tanh's own behaviour.
//
//go:nosplit
func FastTanh(x float32) float32 {
	if x <= tanhLUTMin {
		return -1.0
	}
	if x >= tanhLUTMax {
		return 1.0
	}

	indexF := (x - tanhLUTMin) * tanhLUTScale
	index := int(indexF)
	frac := indexF - float32(index)

	if index < 0 {
		return tanhLUT[0]
	}
	if index >= tanhLUTSize-1 {
		return tanhLUT[tanhLUTSize-1]
	}
	return tanhLUT[index] + frac*(tanhLUT[index+1]-tanhLUT[index])
}

// PolyBLEP applies polynomial band-limited step correction. t is the
// normalised phase position (0..1), dt is the phase increment per sample.
//
//go:nosplit
func PolyBLEP(t, dt float32) float32 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1.0
	} else if t > 1.0-dt {
		t = (t - 1.0) / dt
		return t*t + t + t + 1.0
	}
	return 0.0
}

// Clamp restricts value to [lo, hi].
func Clamp(value, lo, hi float32) float32 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
