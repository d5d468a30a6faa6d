// alog.go - structured diagnostic logging
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

// Package alog wraps github.com/charmbracelet/log for alcore's API- and
// backend-setup-thread diagnostics (spec.md §6's ALSOFT_LOGLEVEL /
// ALSOFT_LOGFILE environment variables). Mix-thread code never logs: no
// allocation, no syscalls belong on the per-period hot path, matching
// the teacher's own comment in audio_chip.go's HandleRegisterWrite
// ("log, don't panic, on a bad register") confined to the non-real-time
// paths.
package alog

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the handle every alcore package outside the mix loop logs
// through.
type Logger = log.Logger

var std = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "alcore",
})

// FromEnv builds a logger configured from ALSOFT_LOGLEVEL
// (none|error|warn|info|debug, default "warn") and ALSOFT_LOGFILE (a
// path, default stderr), per spec.md §6.
func FromEnv() *Logger {
	var out io.Writer = os.Stderr
	if path := os.Getenv("ALSOFT_LOGFILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		}
	}
	l := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Prefix:          "alcore",
	})
	l.SetLevel(levelFromEnv(os.Getenv("ALSOFT_LOGLEVEL")))
	return l
}

func levelFromEnv(v string) log.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none", "off":
		return log.FatalLevel + 1
	case "error":
		return log.ErrorLevel
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	default:
		return log.WarnLevel
	}
}

// Default returns the package-level logger used when a component isn't
// handed one explicitly (e.g. during construction before a Device's own
// logger exists).
func Default() *Logger { return std }

// New returns a fresh logger sharing std's output with the given
// named prefix, for sub-components that want to tag their lines (e.g.
// "alcore.backend", "alcore.hrtf").
func New(name string) *Logger {
	l := std.WithPrefix("alcore." + name)
	return l
}
