// limiter.go - look-ahead peak limiter
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package mixer

import "math"

// Limiter is a look-ahead peak limiter: it delays the signal by
// lookaheadSamples while a peak detector scans ahead, so gain reduction
// can begin before a transient actually reaches the output, avoiding the
// overshoot a zero-lookahead limiter would let through.
type Limiter struct {
	ThresholdDB float32
	AttackMs    float32
	ReleaseMs   float32

	lookahead               int
	delay                   [][]float32
	writePos                int
	gain                    float32
	attackCoef, releaseCoef float32
	sampleRate              int
}

// NewLimiter builds a limiter for channelCount channels at sampleRate,
// with a fixed 5ms look-ahead window.
func NewLimiter(channelCount, sampleRate int) *Limiter {
	l := &Limiter{
		ThresholdDB: -0.3,
		AttackMs:    1,
		ReleaseMs:   50,
		sampleRate:  sampleRate,
		gain:        1,
	}
	l.lookahead = msToSamples(5, sampleRate)
	l.delay = make([][]float32, channelCount)
	for i := range l.delay {
		l.delay[i] = make([]float32, l.lookahead)
	}
	l.attackCoef = timeConstant(l.AttackMs, sampleRate)
	l.releaseCoef = timeConstant(l.ReleaseMs, sampleRate)
	return l
}

func msToSamples(ms float32, sampleRate int) int {
	n := int(ms * float32(sampleRate) / 1000.0)
	if n < 1 {
		n = 1
	}
	return n
}

func timeConstant(ms float32, sampleRate int) float32 {
	if ms <= 0 {
		return 0
	}
	return float32(math.Exp(-1.0 / (float64(ms) * 0.001 * float64(sampleRate))))
}

// Process applies look-ahead limiting in place to busLines.
func (l *Limiter) Process(busLines [][]float32, frames int) {
	threshold := float32(math.Pow(10, float64(l.ThresholdDB)/20))

	for i := 0; i < frames; i++ {
		var peak float32
		for ch := range busLines {
			if ch >= len(l.delay) {
				continue
			}
			incoming := float32(0)
			if i < len(busLines[ch]) {
				incoming = busLines[ch][i]
			}
			rect := incoming
			if rect < 0 {
				rect = -rect
			}
			if rect > peak {
				peak = rect
			}
		}

		targetGain := float32(1)
		if peak > threshold && peak > 0 {
			targetGain = threshold / peak
		}
		coef := l.releaseCoef
		if targetGain < l.gain {
			coef = l.attackCoef
		}
		l.gain = targetGain + coef*(l.gain-targetGain)

		for ch := range busLines {
			if ch >= len(l.delay) || i >= len(busLines[ch]) {
				continue
			}
			delayed := l.delay[ch][l.writePos]
			l.delay[ch][l.writePos] = busLines[ch][i]
			busLines[ch][i] = delayed * l.gain
		}
		l.writePos = (l.writePos + 1) % l.lookahead
	}
}
