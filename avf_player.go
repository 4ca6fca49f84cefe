// avf_player.go - Playback orchestrator for AVF Engine

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
avf_player.go - Playback Orchestrator

Owns the wiring: parsed container, palette table, renderer, playback
clock, audio device and display backend. The render loop is the only
goroutine that mutates playback state; backends deliver user input as
PlayerCommand values on a channel that the loop drains between ticks,
so every filter or palette change takes effect at a frame boundary and
a frame is never rendered from a half-applied configuration.

The palette is republished as a whole via atomic pointer swap on every
phase or saturation change, mirroring how the audio backend picks up
its track.
*/

package main

import (
	"fmt"
	"sync/atomic"
	"time"
)

// commandQueueDepth bounds buffered input between ticks. Keystrokes
// beyond this in a single tick are dropped rather than blocking the
// input goroutine.
const commandQueueDepth = 32

// AVFPlayer drives playback of one parsed container to a video output
// and optional audio device.
type AVFPlayer struct {
	file  *AVFFile
	video VideoOutput
	audio *OtoPlayer
	track *AVFAudioTrack

	clock      *PlaybackClock
	timeSource TimeSource
	wallSource *WallTimeSource // Non-nil only in degraded mode

	palette    atomic.Pointer[PaletteTable]
	phase      float64
	saturation float64

	filters   FilterState
	paused    bool
	lastIndex int
	lastShown FilterState // Filter state the current on-screen frame was rendered with

	commands chan PlayerCommand
	stopped  atomic.Bool
	done     chan struct{}
}

// NewAVFPlayer wires a player for the given container and backend. The
// audio device may be nil, in which case playback runs off the wall
// clock.
func NewAVFPlayer(file *AVFFile, video VideoOutput, audio *OtoPlayer, fs FilterState) (*AVFPlayer, error) {
	if file == nil || len(file.Frames) == 0 {
		return nil, &FormatError{Details: "no frames to play"}
	}

	p := &AVFPlayer{
		file:       file,
		video:      video,
		audio:      audio,
		phase:      AVF_DEFAULT_PHASE,
		saturation: AVF_DEFAULT_SATURATION,
		filters:    fs,
		lastIndex:  -1,
		commands:   make(chan PlayerCommand, commandQueueDepth),
		done:       make(chan struct{}),
	}
	p.filters.Scale = ClampScale(p.filters.Scale)
	p.palette.Store(BuildPaletteTable(file.Header.Standard, p.phase, p.saturation))

	p.clock = NewPlaybackClock(file.Header.Standard, file.Header.FrameCount, fs.Loop)

	if audio != nil {
		if track := BuildAVFAudioTrack(file, AVF_OUTPUT_SAMPLE_RATE); track != nil {
			track.SetLoop(fs.Loop)
			p.track = track
			p.timeSource = NewAudioTimeSource(track.PlayedCounter(), track.Rate())
			audio.SetupPlayer(track)
		}
	}
	if p.timeSource == nil {
		p.wallSource = NewWallTimeSource()
		p.timeSource = p.wallSource
	}

	if ic, ok := video.(InputCapable); ok {
		ic.SetCommandHandler(p.EnqueueCommand)
	}

	if err := video.SetDisplayConfig(p.displayConfig()); err != nil {
		return nil, err
	}
	return p, nil
}

// displayConfig mirrors the renderer's output geometry so the buffer
// handed to UpdateFrame always fills the configured surface. The 2:1
// Atari pixel aspect is a presentation concern the backend applies
// through window sizing, never baked into the buffer.
func (p *AVFPlayer) displayConfig() DisplayConfig {
	w := p.file.Header.Width * p.filters.Scale
	h := p.file.Header.Height * p.filters.Scale
	return DisplayConfig{
		Width:       w,
		Height:      h,
		Scale:       p.filters.Scale,
		RefreshRate: p.file.Header.Standard.FrameRate(),
		PixelFormat: PixelFormatRGBA,
		VSync:       true,
	}
}

// EnqueueCommand queues a control request for the next tick. Safe to
// call from any goroutine; drops the command if the queue is full.
func (p *AVFPlayer) EnqueueCommand(cmd PlayerCommand) {
	select {
	case p.commands <- cmd:
	default:
	}
}

// Stop requests loop termination. Idempotent.
func (p *AVFPlayer) Stop() {
	if p.stopped.CompareAndSwap(false, true) {
		close(p.done)
	}
}

// Ended reports whether the clock ran past the final frame without
// looping.
func (p *AVFPlayer) Ended() bool {
	return p.clock.Ended()
}

// Filters returns the filter state in effect for the next tick.
func (p *AVFPlayer) Filters() FilterState {
	return p.filters
}

// Palette returns the currently published palette table.
func (p *AVFPlayer) Palette() *PaletteTable {
	return p.palette.Load()
}

// PlayerSnapshot is a read-only view of the playback state, taken
// between ticks for status display.
type PlayerSnapshot struct {
	Standard   VideoStandard
	Phase      float64
	Saturation float64
	Filters    FilterState
	Paused     bool
	FrameIndex int
	FrameCount int
	Ended      bool
}

// Snapshot captures the current playback state. Call from the render
// loop goroutine only.
func (p *AVFPlayer) Snapshot() PlayerSnapshot {
	return PlayerSnapshot{
		Standard:   p.file.Header.Standard,
		Phase:      p.phase,
		Saturation: p.saturation,
		Filters:    p.filters,
		Paused:     p.paused,
		FrameIndex: p.clock.LastIndex(),
		FrameCount: p.file.Header.FrameCount,
		Ended:      p.clock.Ended(),
	}
}

// Run executes the playback loop until Stop is called or playback ends
// without looping. Returns the first render or display error.
func (p *AVFPlayer) Run() error {
	if p.audio != nil && p.track != nil {
		p.audio.Start()
		defer p.audio.Stop()
	}

	interval := time.Second / time.Duration(p.video.GetRefreshRate())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return nil
		case <-ticker.C:
			p.drainCommands()
			if p.stopped.Load() {
				return nil
			}
			if err := p.Tick(); err != nil {
				return err
			}
			if p.clock.Ended() && !p.filters.Loop {
				return nil
			}
		}
	}
}

// Tick advances playback by one display refresh: derive the target
// frame from the time source, render it if anything changed, publish
// it to the backend.
func (p *AVFPlayer) Tick() error {
	idx := p.clock.Tick(p.timeSource.Position())
	if idx < 0 || idx >= len(p.file.Frames) {
		return nil
	}

	// Skip the render when the same frame would be drawn with the same
	// filters and palette as last tick.
	if idx == p.lastIndex && p.filters == p.lastShown {
		return nil
	}

	rendered, err := RenderAVFFrame(&p.file.Frames[idx], p.palette.Load(), p.filters)
	if err != nil {
		return err
	}
	if err := p.video.UpdateFrame(rendered.Pix); err != nil {
		return err
	}
	p.lastIndex = idx
	p.lastShown = p.filters
	p.publishStatus(idx)
	return nil
}

func (p *AVFPlayer) drainCommands() {
	for {
		select {
		case cmd := <-p.commands:
			p.applyCommand(cmd)
		default:
			return
		}
	}
}

func (p *AVFPlayer) applyCommand(cmd PlayerCommand) {
	switch cmd {
	case CmdToggleScanlines:
		p.filters.Scanlines = !p.filters.Scanlines
	case CmdToggleBlending:
		p.filters.Blending = !p.filters.Blending
	case CmdToggleLoop:
		p.filters.Loop = !p.filters.Loop
		p.clock.SetLoop(p.filters.Loop)
		if p.track != nil {
			p.track.SetLoop(p.filters.Loop)
		}
	case CmdTogglePause:
		p.paused = !p.paused
		if p.track != nil {
			p.track.SetPaused(p.paused)
		}
		if p.wallSource != nil {
			if p.paused {
				p.wallSource.Pause()
			} else {
				p.wallSource.Resume()
			}
		}
	case CmdPhaseUp:
		p.setPalette(p.phase+AVF_PHASE_STEP, p.saturation)
	case CmdPhaseDown:
		p.setPalette(p.phase-AVF_PHASE_STEP, p.saturation)
	case CmdSaturationUp:
		p.setPalette(p.phase, p.saturation+AVF_SATURATION_STEP)
	case CmdSaturationDown:
		p.setPalette(p.phase, p.saturation-AVF_SATURATION_STEP)
	case CmdScaleUp:
		p.setScale(p.filters.Scale + 1)
	case CmdScaleDown:
		p.setScale(p.filters.Scale - 1)
	case CmdDumpState:
		p.dumpState()
	case CmdStop:
		p.Stop()
	}
}

// setPalette rebuilds and republishes the palette table, then forces a
// re-render of the current frame by invalidating the last shown index.
func (p *AVFPlayer) setPalette(phaseDeg, saturation float64) {
	p.phase = NormalizePhase(phaseDeg)
	p.saturation = ClampSaturation(saturation)
	p.palette.Store(BuildPaletteTable(p.file.Header.Standard, p.phase, p.saturation))
	p.lastIndex = -1
}

func (p *AVFPlayer) setScale(scale int) {
	scale = ClampScale(scale)
	if scale == p.filters.Scale {
		return
	}
	p.filters.Scale = scale
	if err := p.video.SetDisplayConfig(p.displayConfig()); err != nil {
		fmt.Printf("display reconfigure failed: %v\n", err)
	}
	p.lastIndex = -1
}

func (p *AVFPlayer) publishStatus(idx int) {
	sc, ok := p.video.(StatusCapable)
	if !ok {
		return
	}
	s := p.Snapshot()
	status := fmt.Sprintf("%s  Ph %.1f  Sat %.2f  Frame %d/%d",
		s.Standard, s.Phase, s.Saturation, idx+1, s.FrameCount)
	tokens := []statusToken{
		{name: "SCAN", enabled: s.Filters.Scanlines},
		{name: "BLEND", enabled: s.Filters.Blending},
		{name: "LOOP", enabled: s.Filters.Loop},
		{name: "PAUSE", enabled: s.Paused},
	}
	sc.SetStatus(status, tokens)
}

func (p *AVFPlayer) dumpState() {
	s := p.Snapshot()
	fmt.Printf("%s %dx%d frames=%d frame=%d state=%s ph=%.1f sat=%.2f scan=%v blend=%v loop=%v scale=%d\n",
		s.Standard,
		p.file.Header.Width, p.file.Header.Height,
		s.FrameCount,
		s.FrameIndex, p.clock.State(),
		s.Phase, s.Saturation,
		s.Filters.Scanlines, s.Filters.Blending, s.Filters.Loop, s.Filters.Scale)
}
