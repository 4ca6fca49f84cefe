package main

import (
	"testing"
	"time"
)

// fakeVideoOutput records display calls for orchestrator tests.
type fakeVideoOutput struct {
	started       bool
	config        DisplayConfig
	configCalls   int
	frames        int
	lastFrameSize int
	handler       func(PlayerCommand)
	statusText    string
	statusTokens  []statusToken
}

func (f *fakeVideoOutput) Start() error    { f.started = true; return nil }
func (f *fakeVideoOutput) Stop() error     { f.started = false; return nil }
func (f *fakeVideoOutput) Close() error    { f.started = false; return nil }
func (f *fakeVideoOutput) IsStarted() bool { return f.started }

func (f *fakeVideoOutput) SetDisplayConfig(config DisplayConfig) error {
	f.config = config
	f.configCalls++
	return nil
}

func (f *fakeVideoOutput) GetDisplayConfig() DisplayConfig { return f.config }

func (f *fakeVideoOutput) UpdateFrame(buffer []byte) error {
	f.frames++
	f.lastFrameSize = len(buffer)
	return nil
}

func (f *fakeVideoOutput) GetFrameCount() uint64 { return uint64(f.frames) }
func (f *fakeVideoOutput) GetRefreshRate() int   { return 60 }

func (f *fakeVideoOutput) SetCommandHandler(handler func(PlayerCommand)) {
	f.handler = handler
}

func (f *fakeVideoOutput) SetStatus(text string, tokens []statusToken) {
	f.statusText = text
	f.statusTokens = tokens
}

// fixedTimeSource drives the clock from test code.
type fixedTimeSource struct {
	pos time.Duration
}

func (s *fixedTimeSource) Position() time.Duration { return s.pos }

func newTestPlayer(t *testing.T, frames int, fs FilterState) (*AVFPlayer, *fakeVideoOutput) {
	t.Helper()
	file := buildAudioTestFile(STD_PAL, frames, AVF_AUDIO_SILENCE)
	for i := range file.Frames {
		file.Frames[i].Video = make([]byte, AVF_FRAME_HEIGHT*AVF_ROW_BYTES)
	}
	video := &fakeVideoOutput{}
	player, err := NewAVFPlayer(file, video, nil, fs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return player, video
}

// Test 1: A container without frames cannot be played
func TestNewAVFPlayer_EmptyContainer(t *testing.T) {
	video := &fakeVideoOutput{}
	if _, err := NewAVFPlayer(&AVFFile{}, video, nil, DefaultFilterState()); err == nil {
		t.Error("expected error for empty container")
	}
}

// Test 2: Construction wires the display and input handler
func TestNewAVFPlayer_Wiring(t *testing.T) {
	player, video := newTestPlayer(t, 3, DefaultFilterState())

	if video.configCalls != 1 {
		t.Errorf("expected one display configuration, got %d", video.configCalls)
	}
	wantW := AVF_FRAME_WIDTH * AVF_DEFAULT_SCALE
	wantH := AVF_FRAME_HEIGHT * AVF_DEFAULT_SCALE
	if video.config.Width != wantW || video.config.Height != wantH {
		t.Errorf("expected %dx%d display, got %dx%d", wantW, wantH, video.config.Width, video.config.Height)
	}
	if video.handler == nil {
		t.Error("expected command handler to be installed")
	}
	if player.wallSource == nil {
		t.Error("expected wall-clock fallback without an audio device")
	}
	pal := player.Palette()
	if pal.Phase != AVF_DEFAULT_PHASE || pal.Saturation != AVF_DEFAULT_SATURATION {
		t.Errorf("expected default palette tuning, got ph=%f sat=%f", pal.Phase, pal.Saturation)
	}
}

// Test 3: A tick renders the clock's target frame to the backend
func TestAVFPlayer_TickRenders(t *testing.T) {
	player, video := newTestPlayer(t, 3, DefaultFilterState())
	src := &fixedTimeSource{}
	player.timeSource = src

	if err := player.Tick(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if video.frames != 1 {
		t.Fatalf("expected one rendered frame, got %d", video.frames)
	}
	wantSize := video.config.Width * video.config.Height * 4
	if video.lastFrameSize != wantSize {
		t.Errorf("expected %d frame bytes, got %d", wantSize, video.lastFrameSize)
	}

	// Same frame, same filters: no redundant render.
	if err := player.Tick(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if video.frames != 1 {
		t.Errorf("expected render skip for unchanged frame, got %d renders", video.frames)
	}

	// Advancing the position renders the next frame.
	src.pos = 25 * time.Millisecond
	if err := player.Tick(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if video.frames != 2 {
		t.Errorf("expected second render, got %d", video.frames)
	}
}

// Test 4: Filter toggles apply between ticks
func TestAVFPlayer_FilterCommands(t *testing.T) {
	player, _ := newTestPlayer(t, 2, DefaultFilterState())

	player.EnqueueCommand(CmdToggleScanlines)
	player.EnqueueCommand(CmdToggleBlending)
	player.EnqueueCommand(CmdToggleLoop)
	player.drainCommands()

	fs := player.Filters()
	if fs.Scanlines {
		t.Error("expected scanlines toggled off")
	}
	if fs.Blending {
		t.Error("expected blending toggled off")
	}
	if !fs.Loop {
		t.Error("expected loop toggled on")
	}
	if !player.clock.Loop() {
		t.Error("expected loop to propagate to the clock")
	}
}

// Test 5: Phase and saturation commands republish the palette
func TestAVFPlayer_PaletteCommands(t *testing.T) {
	player, _ := newTestPlayer(t, 2, DefaultFilterState())
	before := player.Palette()

	player.EnqueueCommand(CmdPhaseUp)
	player.drainCommands()
	after := player.Palette()
	if after == before {
		t.Fatal("expected a fresh palette table")
	}
	if after.Phase != AVF_DEFAULT_PHASE+AVF_PHASE_STEP {
		t.Errorf("expected phase %f, got %f", AVF_DEFAULT_PHASE+AVF_PHASE_STEP, after.Phase)
	}

	player.EnqueueCommand(CmdSaturationUp)
	player.drainCommands()
	if got := player.Palette().Saturation; got != AVF_DEFAULT_SATURATION+AVF_SATURATION_STEP {
		t.Errorf("expected saturation %f, got %f", AVF_DEFAULT_SATURATION+AVF_SATURATION_STEP, got)
	}
}

// Test 6: Saturation cannot go below zero
func TestAVFPlayer_SaturationClampsAtZero(t *testing.T) {
	player, _ := newTestPlayer(t, 2, DefaultFilterState())
	for i := 0; i < 10; i++ {
		player.EnqueueCommand(CmdSaturationDown)
		player.drainCommands()
	}
	if got := player.Palette().Saturation; got != 0 {
		t.Errorf("expected saturation clamped to 0, got %f", got)
	}
}

// Test 7: Phase wraps around the colour wheel
func TestAVFPlayer_PhaseWraps(t *testing.T) {
	player, _ := newTestPlayer(t, 2, DefaultFilterState())
	steps := int(360.0/AVF_PHASE_STEP) + 1
	for i := 0; i < steps; i++ {
		player.applyCommand(CmdPhaseUp)
	}
	got := player.Palette().Phase
	if got < 0 || got >= 360 {
		t.Errorf("expected phase in [0,360), got %f", got)
	}
}

// Test 8: Scale changes reconfigure the display and clamp to the range
func TestAVFPlayer_ScaleCommands(t *testing.T) {
	player, video := newTestPlayer(t, 2, DefaultFilterState())
	calls := video.configCalls

	player.applyCommand(CmdScaleUp)
	if player.Filters().Scale != AVF_DEFAULT_SCALE+1 {
		t.Errorf("expected scale %d, got %d", AVF_DEFAULT_SCALE+1, player.Filters().Scale)
	}
	if video.configCalls != calls+1 {
		t.Error("expected display reconfiguration on scale change")
	}

	for i := 0; i < 20; i++ {
		player.applyCommand(CmdScaleUp)
	}
	if player.Filters().Scale != AVF_MAX_SCALE {
		t.Errorf("expected scale clamped to %d, got %d", AVF_MAX_SCALE, player.Filters().Scale)
	}
	for i := 0; i < 20; i++ {
		player.applyCommand(CmdScaleDown)
	}
	if player.Filters().Scale != AVF_MIN_SCALE {
		t.Errorf("expected scale clamped to %d, got %d", AVF_MIN_SCALE, player.Filters().Scale)
	}
}

// Test 9: Pause freezes the wall clock in degraded mode
func TestAVFPlayer_PauseWallClock(t *testing.T) {
	player, _ := newTestPlayer(t, 2, DefaultFilterState())

	player.applyCommand(CmdTogglePause)
	if !player.paused {
		t.Fatal("expected paused state")
	}
	frozen := player.wallSource.Position()
	time.Sleep(15 * time.Millisecond)
	if got := player.wallSource.Position(); got != frozen {
		t.Errorf("expected frozen wall clock, got %v after %v", got, frozen)
	}

	player.applyCommand(CmdTogglePause)
	if player.paused {
		t.Error("expected unpaused state")
	}
}

// Test 10: Stop is idempotent and ends Run
func TestAVFPlayer_StopIdempotent(t *testing.T) {
	player, _ := newTestPlayer(t, 2, DefaultFilterState())
	player.Stop()
	player.Stop()

	done := make(chan error, 1)
	go func() { done <- player.Run() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("expected Run to return after Stop")
	}
}

// Test 11: Run returns once a non-looping stream has ended
func TestAVFPlayer_RunEndsAfterLastFrame(t *testing.T) {
	player, video := newTestPlayer(t, 2, DefaultFilterState())
	src := &fixedTimeSource{pos: time.Second}
	player.timeSource = src

	done := make(chan error, 1)
	go func() { done <- player.Run() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to return at end of stream")
	}
	if !player.Ended() {
		t.Error("expected Ended state")
	}
	if video.frames == 0 {
		t.Error("expected the final frame to be presented")
	}
}

// Test 12: Snapshots expose the live playback state
func TestAVFPlayer_Snapshot(t *testing.T) {
	player, _ := newTestPlayer(t, 2, DefaultFilterState())
	player.timeSource = &fixedTimeSource{}

	if err := player.Tick(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := player.Snapshot()
	if s.Standard != STD_PAL {
		t.Errorf("expected PAL, got %s", s.Standard)
	}
	if s.Phase != AVF_DEFAULT_PHASE || s.Saturation != AVF_DEFAULT_SATURATION {
		t.Errorf("expected default tuning, got ph=%f sat=%f", s.Phase, s.Saturation)
	}
	if s.FrameIndex != 0 || s.FrameCount != 2 {
		t.Errorf("expected frame 0 of 2, got %d of %d", s.FrameIndex, s.FrameCount)
	}
	if s.Paused || s.Ended {
		t.Errorf("expected running playback, got paused=%v ended=%v", s.Paused, s.Ended)
	}

	player.applyCommand(CmdTogglePause)
	player.applyCommand(CmdPhaseUp)
	s = player.Snapshot()
	if !s.Paused {
		t.Error("expected paused snapshot")
	}
	if s.Phase != AVF_DEFAULT_PHASE+AVF_PHASE_STEP {
		t.Errorf("expected phase %f, got %f", AVF_DEFAULT_PHASE+AVF_PHASE_STEP, s.Phase)
	}
}

// Test 13: The configured display surface equals the renderer's output
// geometry at every scale, so a rendered buffer always fills it
func TestAVFPlayer_DisplayMatchesRenderer(t *testing.T) {
	for _, scale := range []int{1, 3, AVF_MAX_SCALE} {
		fs := DefaultFilterState()
		fs.Scale = scale
		player, video := newTestPlayer(t, 1, fs)

		rendered, err := RenderAVFFrame(&player.file.Frames[0], player.Palette(), player.Filters())
		if err != nil {
			t.Fatalf("scale %d: unexpected error: %v", scale, err)
		}
		if rendered.Width != video.config.Width || rendered.Height != video.config.Height {
			t.Errorf("scale %d: renderer emits %dx%d but display configured %dx%d",
				scale, rendered.Width, rendered.Height, video.config.Width, video.config.Height)
		}
		if len(rendered.Pix) != video.config.Width*video.config.Height*4 {
			t.Errorf("scale %d: %d buffer bytes for a %d byte surface",
				scale, len(rendered.Pix), video.config.Width*video.config.Height*4)
		}
	}
}

// Test 14: The status line reflects playback state
func TestAVFPlayer_StatusPublication(t *testing.T) {
	player, video := newTestPlayer(t, 2, DefaultFilterState())
	player.timeSource = &fixedTimeSource{}

	if err := player.Tick(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if video.statusText == "" {
		t.Fatal("expected status text after a tick")
	}
	if len(video.statusTokens) != 4 {
		t.Fatalf("expected 4 status tokens, got %d", len(video.statusTokens))
	}
	if !video.statusTokens[0].enabled || !video.statusTokens[1].enabled {
		t.Error("expected scanline and blend tokens enabled by default")
	}
	if video.statusTokens[2].enabled || video.statusTokens[3].enabled {
		t.Error("expected loop and pause tokens disabled by default")
	}
}
