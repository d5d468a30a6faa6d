// compressor.go - feed-forward peak compressor kernel
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package effect

import "math"

// Compressor is a simple feed-forward peak compressor with an
// exponential attack/release envelope follower, applied independently
// per channel.
type Compressor struct {
	ThresholdDB float32
	Ratio       float32
	AttackMs    float32
	ReleaseMs   float32

	envelope    []float32
	attackCoef  float32
	releaseCoef float32
	sampleRate  int
}

func NewCompressor() *Compressor {
	return &Compressor{ThresholdDB: -18, Ratio: 4, AttackMs: 5, ReleaseMs: 80}
}

func (c *Compressor) DeviceUpdate(info DeviceInfo) {
	c.sampleRate = info.SampleRate
	c.envelope = make([]float32, info.ChannelCount)
	c.attackCoef = timeConstant(c.AttackMs, info.SampleRate)
	c.releaseCoef = timeConstant(c.ReleaseMs, info.SampleRate)
}

// Update applies "threshold_db", "ratio", "attack_ms" and
// "release_ms" parameter changes ahead of the next Process call,
// recomputing the envelope follower's time constants when the
// attack/release times change.
func (c *Compressor) Update(params map[string]float32) {
	if v, ok := params["threshold_db"]; ok {
		c.ThresholdDB = v
	}
	if v, ok := params["ratio"]; ok {
		c.Ratio = v
	}
	if v, ok := params["attack_ms"]; ok {
		c.AttackMs = v
		c.attackCoef = timeConstant(c.AttackMs, c.sampleRate)
	}
	if v, ok := params["release_ms"]; ok {
		c.ReleaseMs = v
		c.releaseCoef = timeConstant(c.ReleaseMs, c.sampleRate)
	}
}

func timeConstant(ms float32, sampleRate int) float32 {
	if ms <= 0 {
		return 0
	}
	return float32(math.Exp(-1.0 / (float64(ms) * 0.001 * float64(sampleRate))))
}

func (c *Compressor) Process(frames int, input [][]float32, output [][]float32) {
	threshLinear := float32(math.Pow(10, float64(c.ThresholdDB)/20))
	for ch := 0; ch < len(input) && ch < len(output) && ch < len(c.envelope); ch++ {
		in, out := input[ch], output[ch]
		env := c.envelope[ch]
		for i := 0; i < frames && i < len(in) && i < len(out); i++ {
			rect := in[i]
			if rect < 0 {
				rect = -rect
			}
			coef := c.releaseCoef
			if rect > env {
				coef = c.attackCoef
			}
			env = rect + coef*(env-rect)

			gain := float32(1.0)
			if env > threshLinear && threshLinear > 0 {
				excessDB := 20 * float32(math.Log10(float64(env/threshLinear)))
				reducedDB := excessDB * (1 - 1/c.Ratio)
				gain = float32(math.Pow(10, -float64(reducedDB)/20))
			}
			out[i] = in[i] * gain
		}
		c.envelope[ch] = env
	}
}
