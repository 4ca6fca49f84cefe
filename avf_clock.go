// avf_clock.go - Audio-driven playback clock for AVF Engine

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

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/AVFEngine
License: GPLv3 or later
*/

/*
avf_clock.go - Playback Clock

Derives the frame index to present from an injected time source. The
preferred source is the audio device's played-sample counter
("hardware-adaptive sync"): the device callback observes real output
latency and jitter that a wall-clock timer cannot, so re-deriving the
target index from it every tick keeps video locked to what is actually
audible. A monotonic wall-clock source is the degraded-mode fallback
when no audio track or device is available.

The clock never interpolates and never renders out of order: each tick
recomputes target = floor(elapsed / frameDuration) fresh, so frames
between two consecutive targets are implicitly skipped and a late video
thread naturally catches up.
*/

package main

import (
	"sync"
	"sync/atomic"
	"time"
)

// ClockState models the Loading -> Running -> Ended lifecycle. Ended is
// terminal unless looping is enabled, in which case the next tick
// re-anchors and returns to Running.
type ClockState int

const (
	ClockLoading ClockState = iota
	ClockRunning
	ClockEnded
)

func (s ClockState) String() string {
	switch s {
	case ClockRunning:
		return "Running"
	case ClockEnded:
		return "Ended"
	default:
		return "Loading"
	}
}

// TimeSource supplies the authoritative playback position. Position
// must be monotonically non-decreasing.
type TimeSource interface {
	Position() time.Duration
}

// AudioTimeSource derives the position from a monotonic played-sample
// counter written by the audio device callback. Single writer (the
// device goroutine), single reader (the render loop); an atomic load is
// all the synchronization required.
type AudioTimeSource struct {
	samples *atomic.Uint64
	rate    int
}

// NewAudioTimeSource builds a time source over a played-sample counter
// running at the given device rate.
func NewAudioTimeSource(samples *atomic.Uint64, rate int) *AudioTimeSource {
	return &AudioTimeSource{samples: samples, rate: rate}
}

func (a *AudioTimeSource) Position() time.Duration {
	n := a.samples.Load()
	return time.Duration(n) * time.Second / time.Duration(a.rate)
}

// WallTimeSource is the degraded-mode fallback: a monotonic wall clock
// with pause/resume re-anchoring so suspended ticks do not advance the
// position.
type WallTimeSource struct {
	mu       sync.Mutex
	start    time.Time
	paused   bool
	pausedAt time.Time
}

// NewWallTimeSource starts a wall-clock source anchored at now.
func NewWallTimeSource() *WallTimeSource {
	return &WallTimeSource{start: time.Now()}
}

func (w *WallTimeSource) Position() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paused {
		return w.pausedAt.Sub(w.start)
	}
	return time.Since(w.start)
}

// Pause freezes the position until Resume.
func (w *WallTimeSource) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.paused {
		w.paused = true
		w.pausedAt = time.Now()
	}
}

// Resume shifts the anchor forward by the paused interval so the
// position continues from where it froze.
func (w *WallTimeSource) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paused {
		w.start = w.start.Add(time.Since(w.pausedAt))
		w.paused = false
	}
}

// PlaybackClock computes which frame should be on screen for a given
// position. Owned by the player and ticked from the render loop only;
// it is not safe for concurrent use.
type PlaybackClock struct {
	frameDuration time.Duration
	frameCount    int
	loop          bool

	origin    time.Duration
	state     ClockState
	lastIndex int
}

// FrameDuration returns the presentation time of one frame for the
// standard: 1/50 s PAL, 1/60 s NTSC.
func FrameDuration(standard VideoStandard) time.Duration {
	return time.Second / time.Duration(standard.FrameRate())
}

// NewPlaybackClock creates a clock for frameCount frames at the
// standard's rate.
func NewPlaybackClock(standard VideoStandard, frameCount int, loop bool) *PlaybackClock {
	clock := &PlaybackClock{
		frameDuration: FrameDuration(standard),
		frameCount:    frameCount,
		loop:          loop,
		state:         ClockLoading,
		lastIndex:     -1,
	}
	if frameCount <= 0 {
		clock.state = ClockEnded
		clock.lastIndex = 0
	}
	return clock
}

// SetLoop enables or disables looping. Applied between ticks.
func (c *PlaybackClock) SetLoop(loop bool) {
	c.loop = loop
}

// Loop reports whether looping is enabled.
func (c *PlaybackClock) Loop() bool {
	return c.loop
}

// State returns the current lifecycle state.
func (c *PlaybackClock) State() ClockState {
	return c.state
}

// Ended reports whether playback ran past the last frame without loop.
func (c *PlaybackClock) Ended() bool {
	return c.state == ClockEnded
}

// Tick computes the frame index to present for the given position.
//
// target = floor((pos - origin) / frameDuration). Past the end: with
// looping, the target wraps modulo frameCount and the origin advances
// by the wrapped whole cycles so elapsed values stay bounded over long
// loops; without looping, the clock latches Ended and keeps returning
// the last valid index - the final frame is held, not blanked.
func (c *PlaybackClock) Tick(pos time.Duration) int {
	if c.frameCount <= 0 {
		return 0
	}

	if c.state == ClockEnded {
		if !c.loop {
			return c.lastIndex
		}
		// Loop was enabled after the end: restart from frame 0 with
		// the reference re-anchored at the current position.
		c.origin = pos
		c.state = ClockRunning
		c.lastIndex = 0
		return 0
	}

	elapsed := pos - c.origin
	if elapsed < 0 {
		elapsed = 0
	}
	target := int(elapsed / c.frameDuration)

	if target >= c.frameCount {
		if !c.loop {
			c.state = ClockEnded
			c.lastIndex = c.frameCount - 1
			return c.lastIndex
		}
		cycles := target / c.frameCount
		c.origin += time.Duration(cycles) * time.Duration(c.frameCount) * c.frameDuration
		target %= c.frameCount
	}

	c.state = ClockRunning
	c.lastIndex = target
	return target
}

// LastIndex returns the most recently computed target index (-1 before
// the first tick).
func (c *PlaybackClock) LastIndex() int {
	return c.lastIndex
}
