// main.go - render a single positioned tone to a WAVE file
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

// Command alcore-wavegen drives the full alcore pipeline (Device,
// Context, Listener, Source, AuxEffectSlot) headlessly and writes the
// result to a WAVE file via internal/backend's polled WaveBackend,
// standing in for a real soundcard the way the teacher's own
// "headless" build tag stands in for oto. Useful for smoke-testing a
// scene description without any audio hardware.
package main

import (
	"fmt"
	"math"

	flag "github.com/spf13/pflag"

	"github.com/IntuitionAmiga/alcore/alcore"
	"github.com/IntuitionAmiga/alcore/internal/alog"
	"github.com/IntuitionAmiga/alcore/internal/backend"
	"github.com/IntuitionAmiga/alcore/internal/config"
	"github.com/IntuitionAmiga/alcore/internal/effect"
)

func main() {
	var (
		out        = flag.StringP("out", "o", "out.wav", "output WAVE file path")
		configPath = flag.StringP("config", "c", "", "optional alsoft-style config file overriding defaults")
		rate       = flag.Int("rate", 48000, "sample rate in Hz")
		duration   = flag.Float64("duration", 2, "render duration in seconds")
		toneHz     = flag.Float64("tone", 440, "source tone frequency in Hz")
		azimuth    = flag.Float64("azimuth", 45, "source azimuth in degrees, 0 = front")
		elevation  = flag.Float64("elevation", 0, "source elevation in degrees")
		distance   = flag.Float64("distance", 3, "source distance in metres")
		reverbSend = flag.Float64("reverb", 0, "gain on an auxiliary reverb send, 0 disables it")
		updateSize = flag.Int("update-size", 512, "frames rendered per mixer period")
	)
	flag.Parse()

	log := alog.New("wavegen")

	if *configPath == "" {
		if p, ok := config.EnvConfigPath(); ok {
			*configPath = p
		}
	}
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal("loading config", "path", *configPath, "err", err)
		}
		if v, ok := cfg.Int("general", "frequency"); ok {
			*rate = v
		}
		if v, ok := cfg.Int("general", "period_size"); ok {
			*updateSize = v
		}
	}

	if err := run(*out, *rate, *updateSize, *duration, *toneHz, *azimuth, *elevation, *distance, *reverbSend); err != nil {
		log.Fatal("render failed", "err", err)
	}
	log.Info("wrote scene", "out", *out, "duration_s", *duration)
}

func run(out string, rate, updateSize int, durationS, toneHz, azimuthDeg, elevationDeg, distanceM, reverbGain float64) error {
	wb, err := backend.NewWaveBackend(out, formatForOutput())
	if err != nil {
		return fmt.Errorf("wavegen: %w", err)
	}
	defer wb.Close()

	dev, err := alcore.OpenDevice(wb, alcore.DeviceOptions{
		Frequency:  rate,
		UpdateSize: updateSize,
		NumUpdates: 4,
		FmtChans:   alcore.FmtStereo,
		FmtType:    alcore.TypeF32,
	})
	if err != nil {
		return fmt.Errorf("wavegen: opening device: %w", err)
	}
	defer dev.Close()

	ctx := alcore.NewContext(dev)

	var reverbSlot *alcore.AuxEffectSlot
	if reverbGain > 0 {
		reverbSlot = ctx.CreateAuxEffectSlot("reverb", effect.NewReverb())
		reverbSlot.SetGain(float32(reverbGain))
	}

	src := ctx.CreateSource()
	azRad := azimuthDeg * math.Pi / 180
	elRad := elevationDeg * math.Pi / 180
	x := distanceM * math.Cos(elRad) * math.Sin(azRad)
	y := distanceM * math.Sin(elRad)
	z := -distanceM * math.Cos(elRad) * math.Cos(azRad)
	src.SetPosition(float32(x), float32(y), float32(z))

	buf := alcore.NewBuffer(sineWave(rate, toneHz, durationS), rate, alcore.LayoutMono)
	if err := src.QueueBuffer(buf); err != nil {
		return fmt.Errorf("wavegen: %w", err)
	}
	if reverbSlot != nil {
		if err := src.SetSend(0, reverbSlot, 1, 1, 1); err != nil {
			return fmt.Errorf("wavegen: %w", err)
		}
	}
	src.Play()

	totalFrames := int(durationS * float64(rate))
	for rendered := 0; rendered < totalFrames; {
		chunk := updateSize
		if remaining := totalFrames - rendered; chunk > remaining {
			chunk = remaining
		}
		n, err := wb.Pump(chunk)
		if err != nil {
			return fmt.Errorf("wavegen: writing frames: %w", err)
		}
		if n == 0 {
			break
		}
		rendered += n
	}
	return nil
}

func formatForOutput() alcore.FmtType {
	return alcore.TypeF32
}

// sineWave synthesises durationS seconds of a toneHz sine at rate,
// gently faded at both ends to avoid a click, for a CLI that otherwise
// has no real sample source to play.
func sineWave(rate int, toneHz, durationS float64) []float32 {
	n := int(durationS * float64(rate))
	out := make([]float32, n)
	fadeSamples := rate / 50
	for i := 0; i < n; i++ {
		v := math.Sin(2 * math.Pi * toneHz * float64(i) / float64(rate))
		fade := 1.0
		if i < fadeSamples {
			fade = float64(i) / float64(fadeSamples)
		} else if i > n-fadeSamples {
			fade = float64(n-i) / float64(fadeSamples)
		}
		out[i] = float32(v * fade)
	}
	return out
}
