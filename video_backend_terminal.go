//go:build !headless

// video_backend_terminal.go - ANSI terminal video backend for AVF Engine

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
Renders frames into the controlling terminal with 24-bit colour and
Unicode half blocks: one character cell carries two vertically stacked
pixels (foreground paints the upper half, background the lower). The
output buffer is point-sampled down to the terminal grid, so any
terminal size works. Raw-mode stdin supplies the same playback keys as
the windowed backend.
*/

package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/term"
)

type TerminalOutput struct {
	started     bool
	config      DisplayConfig
	frameCount  atomic.Uint64
	refreshRate int

	mu             sync.Mutex
	commandHandler func(PlayerCommand)
	statusText     string

	cols int
	rows int

	fd           int
	nonblockSet  bool
	oldTermState *term.State
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once

	out strings.Builder
}

func NewTerminalOutput() (VideoOutput, error) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return nil, &VideoError{
			Operation: "terminal setup",
			Details:   "stdout is not a terminal",
		}
	}
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		return nil, &VideoError{
			Operation: "terminal setup",
			Details:   "cannot determine terminal size",
			Err:       err,
		}
	}

	return &TerminalOutput{
		refreshRate: 60,
		cols:        cols,
		rows:        rows,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}, nil
}

func (to *TerminalOutput) Start() error {
	if to.started {
		return nil
	}
	to.started = true

	// Alternate screen, hidden cursor.
	fmt.Print("\x1b[?1049h\x1b[?25l\x1b[2J")

	to.fd = int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(to.fd)
	if err != nil {
		return &VideoError{
			Operation: "terminal setup",
			Details:   "failed to set raw mode",
			Err:       err,
		}
	}
	to.oldTermState = oldState

	if err := syscall.SetNonblock(to.fd, true); err != nil {
		_ = term.Restore(to.fd, to.oldTermState)
		to.oldTermState = nil
		return &VideoError{
			Operation: "terminal setup",
			Details:   "failed to set nonblocking stdin",
			Err:       err,
		}
	}
	to.nonblockSet = true

	go to.readInput()
	return nil
}

func (to *TerminalOutput) Stop() error {
	if !to.started {
		return nil
	}
	to.started = false
	to.stopped.Do(func() {
		close(to.stopCh)
	})
	<-to.done
	if to.nonblockSet {
		_ = syscall.SetNonblock(to.fd, false)
		to.nonblockSet = false
	}
	if to.oldTermState != nil {
		_ = term.Restore(to.fd, to.oldTermState)
		to.oldTermState = nil
	}
	// Leave alternate screen, restore cursor.
	fmt.Print("\x1b[?25h\x1b[?1049l")
	return nil
}

func (to *TerminalOutput) Close() error {
	return to.Stop()
}

func (to *TerminalOutput) IsStarted() bool {
	return to.started
}

func (to *TerminalOutput) SetDisplayConfig(config DisplayConfig) error {
	to.mu.Lock()
	to.config = config
	to.mu.Unlock()
	return nil
}

func (to *TerminalOutput) GetDisplayConfig() DisplayConfig {
	to.mu.Lock()
	defer to.mu.Unlock()
	return to.config
}

func (to *TerminalOutput) GetFrameCount() uint64 {
	return to.frameCount.Load()
}

func (to *TerminalOutput) GetRefreshRate() int {
	return to.refreshRate
}

func (to *TerminalOutput) SetCommandHandler(fn func(PlayerCommand)) {
	to.mu.Lock()
	to.commandHandler = fn
	to.mu.Unlock()
}

func (to *TerminalOutput) SetStatus(text string, tokens []statusToken) {
	var b strings.Builder
	b.WriteString(text)
	for _, tok := range tokens {
		if tok.enabled {
			b.WriteString("  ")
			b.WriteString(tok.name)
		}
	}
	to.mu.Lock()
	to.statusText = b.String()
	to.mu.Unlock()
}

// UpdateFrame point-samples the RGBA buffer onto the character grid,
// two pixel rows per cell, and writes the whole frame in one syscall.
func (to *TerminalOutput) UpdateFrame(buffer []byte) error {
	to.mu.Lock()
	defer to.mu.Unlock()

	w := to.config.Width
	h := to.config.Height
	if w <= 0 || h <= 0 || len(buffer) < w*h*4 {
		return nil
	}

	// Keep one row free for the status line.
	cellRows := to.rows - 1
	if cellRows < 1 {
		cellRows = 1
	}
	cellCols := to.cols
	if cellCols < 1 {
		cellCols = 1
	}

	to.out.Reset()
	to.out.WriteString("\x1b[H")

	for cy := 0; cy < cellRows; cy++ {
		topY := cy * 2 * h / (cellRows * 2)
		botY := (cy*2 + 1) * h / (cellRows * 2)
		for cx := 0; cx < cellCols; cx++ {
			x := cx * w / cellCols
			ti := (topY*w + x) * 4
			bi := (botY*w + x) * 4
			fmt.Fprintf(&to.out, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				buffer[ti], buffer[ti+1], buffer[ti+2],
				buffer[bi], buffer[bi+1], buffer[bi+2])
		}
		to.out.WriteString("\x1b[0m\r\n")
	}

	status := to.statusText
	if len(status) > cellCols {
		status = status[:cellCols]
	}
	to.out.WriteString("\x1b[7m")
	to.out.WriteString(status)
	to.out.WriteString("\x1b[0m\x1b[K")

	fmt.Print(to.out.String())
	to.frameCount.Add(1)
	return nil
}

func (to *TerminalOutput) emitCommand(cmd PlayerCommand) {
	to.mu.Lock()
	handler := to.commandHandler
	to.mu.Unlock()
	if handler != nil {
		handler(cmd)
	}
}

func (to *TerminalOutput) readInput() {
	defer close(to.done)
	buf := make([]byte, 1)

	for {
		select {
		case <-to.stopCh:
			return
		default:
		}

		n, err := syscall.Read(to.fd, buf)
		if n > 0 {
			if cmd, ok := keyToCommand(buf[0]); ok {
				to.emitCommand(cmd)
			}
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func keyToCommand(b byte) (PlayerCommand, bool) {
	switch b {
	case 's', 'S':
		return CmdToggleScanlines, true
	case 'b', 'B':
		return CmdToggleBlending, true
	case 'l', 'L':
		return CmdToggleLoop, true
	case ' ':
		return CmdTogglePause, true
	case 'd', 'D':
		return CmdDumpState, true
	case '[':
		return CmdPhaseDown, true
	case ']':
		return CmdPhaseUp, true
	case '{':
		return CmdSaturationDown, true
	case '}':
		return CmdSaturationUp, true
	case '-':
		return CmdScaleDown, true
	case '=':
		return CmdScaleUp, true
	case 'q', 'Q', 0x1B, 0x03:
		return CmdStop, true
	default:
		return CmdNone, false
	}
}
