// backend.go - platform output driver contract
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

License: GPLv3 or later
*/

// Package backend defines the narrow contract every platform output
// driver satisfies (spec.md §4.6), plus a lock-free SPSC ring buffer
// backends can use to decouple their device callback from the mixer,
// and three concrete backends adapted from the teacher's oto/ALSA/
// headless players: generalised from "read one SoundChip's samples"
// to "pull frames from whatever Source the device is wired to".
package backend

import "context"

// Source is what a backend pulls frames from: normally the mixer
// driver's output stage.
type Source interface {
	// ReadFrames fills dst (interleaved, backend's configured channel
	// count) with up to len(dst) samples, returning how many frames
	// (not samples) were produced.
	ReadFrames(dst []float32) (frames int)
}

// Backend is the contract of spec.md §4.6: open/reset/start/stop plus
// the lock/unlock pair a pull-mode backend uses to serialise property
// changes against the mixer.
type Backend interface {
	Open(deviceName string) error
	Reset(frequency int, channels, updateSize, numUpdates int) error
	Start(ctx context.Context, src Source) error
	Stop()
	Close()
	GetClockLatency() int64
	Lock()
	Unlock()
}

// Shape reports whether a backend drives itself (callback-driven: it
// owns a thread that calls the mixer when the device is ready) or must
// be driven externally on a timer (polled: null backend, wave writer,
// loopback), per spec.md §4.6.
type Shape int

const (
	ShapeCallbackDriven Shape = iota
	ShapePolled
)
