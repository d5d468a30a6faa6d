// store.go - in-memory HRTF coefficient store
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

// Package hrtf implements binaural rendering: a fielded HRTF data set
// (elevations, azimuths, per-direction impulse response plus inter-aural
// time delay) and a renderer that looks up and interpolates the nearest
// measured directions for an arbitrary source angle. HRTF *file* parsing
// is explicitly out of scope per spec.md's non-goals; Store is built
// from already-decoded field data, leaving format parsing to a caller.
package hrtf

import "math"

// Elevation describes one elevation ring of measured directions: its
// angle and the azimuth-ordered list of per-direction entries.
type Elevation struct {
	AngleDeg float64
	Azimuths []Direction
}

// Direction is one measured HRTF impulse response: a stereo pair of FIR
// coefficients plus the inter-aural time delay (in samples) to apply
// before the earlier-arriving ear's filter, matching openal-soft's
// split coefficient+delay representation (alc/hrtf.cpp).
type Direction struct {
	AzimuthDeg float64
	CoeffsL    []float32
	CoeffsR    []float32
	DelayL     int
	DelayR     int
}

// Store holds a complete HRTF field for one sample rate.
type Store struct {
	SampleRate int
	IRLength   int
	Elevations []Elevation
}

// NewStore builds an empty store for the given sample rate and impulse
// response length; callers populate Elevations directly (e.g. from a
// parsed HRTF file, or synthetically for testing).
func NewStore(sampleRate, irLength int) *Store {
	return &Store{SampleRate: sampleRate, IRLength: irLength}
}

// nearestElevations returns the index of the elevation ring at or below
// elevDeg and the one at or above it, plus the interpolation fraction
// between them (0 at lo, 1 at hi).
func (s *Store) nearestElevations(elevDeg float64) (lo, hi int, frac float64) {
	n := len(s.Elevations)
	if n == 0 {
		return 0, 0, 0
	}
	if n == 1 {
		return 0, 0, 0
	}
	for i := 0; i < n-1; i++ {
		a, b := s.Elevations[i].AngleDeg, s.Elevations[i+1].AngleDeg
		if elevDeg >= a && elevDeg <= b {
			if b == a {
				return i, i, 0
			}
			return i, i + 1, (elevDeg - a) / (b - a)
		}
	}
	if elevDeg < s.Elevations[0].AngleDeg {
		return 0, 0, 0
	}
	return n - 1, n - 1, 0
}

// nearestAzimuths returns the bracketing azimuth indices within an
// elevation ring and the interpolation fraction between them, wrapping
// around 360 degrees.
func nearestAzimuths(ring Elevation, azimuthDeg float64) (lo, hi int, frac float64) {
	n := len(ring.Azimuths)
	if n == 0 {
		return 0, 0, 0
	}
	if n == 1 {
		return 0, 0, 0
	}
	az := math.Mod(azimuthDeg, 360)
	if az < 0 {
		az += 360
	}
	for i := 0; i < n; i++ {
		a := ring.Azimuths[i].AzimuthDeg
		var b float64
		var j int
		if i == n-1 {
			b = ring.Azimuths[0].AzimuthDeg + 360
			j = 0
		} else {
			b = ring.Azimuths[i+1].AzimuthDeg
			j = i + 1
		}
		if az >= a && az <= b {
			if b == a {
				return i, i, 0
			}
			return i, j, (az - a) / (b - a)
		}
	}
	return 0, 0, 0
}
