// pan.go - distance attenuation models and built-in speaker layouts
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package ambi

import "math"

// DistanceModel selects the attenuation curve applied to a source's gain
// as a function of listener distance, matching the OpenAL distance-model
// family named in spec.md §3/§4.1.
type DistanceModel int

const (
	DistanceNone DistanceModel = iota
	DistanceInverse
	DistanceInverseClamped
	DistanceLinear
	DistanceLinearClamped
	DistanceExponent
	DistanceExponentClamped
)

// DistanceParams are the per-context/per-source distance-model inputs:
// reference distance, max distance (used only by the clamped variants)
// and rolloff factor.
type DistanceParams struct {
	RefDistance float64
	MaxDistance float64
	Rolloff     float64
}

// Attenuate returns the linear gain multiplier for a given listener
// distance under the model and parameters given. Formulas match the
// OpenAL 1.1 specification's distance model appendix.
func Attenuate(model DistanceModel, distance float64, p DistanceParams) float64 {
	switch model {
	case DistanceNone:
		return 1.0
	case DistanceInverse:
		d := math.Max(distance, p.RefDistance)
		return p.RefDistance / (p.RefDistance + p.Rolloff*(d-p.RefDistance))
	case DistanceInverseClamped:
		d := clampf(distance, p.RefDistance, p.MaxDistance)
		return p.RefDistance / (p.RefDistance + p.Rolloff*(d-p.RefDistance))
	case DistanceLinear:
		d := math.Max(distance, p.RefDistance)
		denom := p.MaxDistance - p.RefDistance
		if denom <= 0 {
			return 1.0
		}
		g := 1.0 - p.Rolloff*(d-p.RefDistance)/denom
		return math.Max(g, 0)
	case DistanceLinearClamped:
		d := clampf(distance, p.RefDistance, p.MaxDistance)
		denom := p.MaxDistance - p.RefDistance
		if denom <= 0 {
			return 1.0
		}
		g := 1.0 - p.Rolloff*(d-p.RefDistance)/denom
		return math.Max(g, 0)
	case DistanceExponent:
		d := math.Max(distance, p.RefDistance)
		if p.RefDistance <= 0 {
			return 1.0
		}
		return math.Pow(d/p.RefDistance, -p.Rolloff)
	case DistanceExponentClamped:
		d := clampf(distance, p.RefDistance, p.MaxDistance)
		if p.RefDistance <= 0 {
			return 1.0
		}
		return math.Pow(d/p.RefDistance, -p.Rolloff)
	}
	return 1.0
}

func clampf(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Layout names a built-in virtual speaker arrangement a context can
// decode its ambisonic bus to, in lieu of HRTF binaural rendering.
type Layout int

const (
	LayoutMono Layout = iota
	LayoutStereo
	LayoutQuad
	Layout5Dot1
	Layout6Dot1
	Layout7Dot1
)

// horizDir returns the unit vector at a horizontal azimuth (degrees,
// 0 = front, positive clockwise) in alcore's x=right/y=up/z=back axes.
func horizDir(azimuthDeg float64) [3]float64 {
	a := azimuthDeg * math.Pi / 180.0
	return [3]float64{math.Sin(a), 0, -math.Cos(a)}
}

// Directions returns the unit-vector direction of each output channel
// for a layout, in alcore's right-handed x=right/y=up/z=back axes, used
// to build that layout's decode matrix via FirstOrderDecoder.
func Directions(l Layout) [][3]float64 {
	horiz := horizDir
	switch l {
	case LayoutMono:
		return [][3]float64{{0, 0, -1}}
	case LayoutStereo:
		return [][3]float64{horiz(-30), horiz(30)}
	case LayoutQuad:
		return [][3]float64{horiz(-45), horiz(45), horiz(-135), horiz(135)}
	case Layout5Dot1:
		return [][3]float64{horiz(-30), horiz(30), horiz(0), {0, 0, 0}, horiz(-110), horiz(110)}
	case Layout6Dot1:
		return [][3]float64{horiz(-30), horiz(30), horiz(0), {0, 0, 0}, horiz(180), horiz(-90), horiz(90)}
	case Layout7Dot1:
		return [][3]float64{horiz(-30), horiz(30), horiz(0), {0, 0, 0}, horiz(-110), horiz(110), horiz(-150), horiz(150)}
	}
	return [][3]float64{{0, 0, -1}}
}

// StereoMode selects how alcore's stereo output is produced from the
// ambisonic bus: a plain first-order panning decode, or a UHJ
// super-stereo encode (dsp.Encoder) for systems that can further decode
// it, per spec.md's stereo-mode Open Question.
type StereoMode int

const (
	StereoPanned StereoMode = iota
	StereoSuperStereo
)

// SuperStereoDirections returns the widened virtual-speaker pair used
// for super-stereo rendering of a stereo input buffer. width is an
// explicit option: nil means "never set" and renders at the default
// widening (replacing the reference's -1.0f sentinel); otherwise width
// in [0, 1] sweeps the pair from the plain ±30° stereo stage out to
// ±90° hard-side placement.
func SuperStereoDirections(width *float32) [][3]float64 {
	w := 0.5
	if width != nil {
		w = clampf(float64(*width), 0, 1)
	}
	az := 30 + 60*w
	return [][3]float64{horizDir(-az), horizDir(az)}
}
