// avf_audio.go - Audio track reconstruction and playback position for AVF Engine

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
avf_audio.go - Audio Track

Builds the playable audio track from a parsed container and owns the
playback position counter that drives hardware-adaptive sync.

The native stream is one byte per scanline, range 0-100 with silence at
50. Track construction centres it at zero, linearly resamples it so the
audio duration matches the video duration exactly (frame_count x frame
duration), and scales it to float32 full range.

ReadSamples runs on the audio device's own goroutine; everything it
shares with the render thread (played-sample counter, loop and pause
flags) is atomic. The counter is monotonically non-decreasing except
for an explicit Rewind, which only the orchestrator invokes while
restarting playback as a whole.
*/

package main

import (
	"sync/atomic"
	"time"
)

// AVFAudioTrack is the resampled mono track plus playback position
// state shared between the device callback and the render loop.
type AVFAudioTrack struct {
	samples []float32 // Immutable after construction
	rate    int       // Output device rate

	played atomic.Uint64 // Samples delivered to the device
	loop   atomic.Bool
	paused atomic.Bool
}

// BuildAVFAudioTrack reconstructs the container's audio as float32 PCM
// at the given output rate. Returns nil when the container carries no
// audio; the caller falls back to the wall clock.
func BuildAVFAudioTrack(file *AVFFile, outputRate int) *AVFAudioTrack {
	native := file.AudioSamples()
	if len(native) == 0 {
		return nil
	}

	// Centre the 0-100 stream at zero before resampling.
	centred := make([]float64, len(native))
	for i, s := range native {
		v := float64(s)
		if v > 100 {
			v = 100
		}
		centred[i] = v - AVF_AUDIO_SILENCE
	}

	// Resample so audio duration equals video duration exactly.
	videoDuration := time.Duration(file.Header.FrameCount) * FrameDuration(file.Header.Standard)
	target := int(videoDuration.Seconds() * float64(outputRate))
	if target < 1 {
		target = 1
	}

	samples := make([]float32, target)
	if len(centred) == 1 {
		for i := range samples {
			samples[i] = float32(centred[0] * AVF_AUDIO_GAIN)
		}
	} else {
		step := float64(len(centred)-1) / float64(target-1)
		if target == 1 {
			step = 0
		}
		for i := range samples {
			pos := float64(i) * step
			j := int(pos)
			if j >= len(centred)-1 {
				samples[i] = float32(centred[len(centred)-1] * AVF_AUDIO_GAIN)
				continue
			}
			frac := pos - float64(j)
			v := centred[j] + (centred[j+1]-centred[j])*frac
			samples[i] = float32(v * AVF_AUDIO_GAIN)
		}
	}

	return &AVFAudioTrack{samples: samples, rate: outputRate}
}

// ReadSamples fills dst with the next track samples and advances the
// played counter. Past the end it emits silence (still advancing, so
// the clock can observe the overrun) unless looping, in which case the
// track wraps. While paused it emits silence without advancing, which
// freezes the video clock for free.
func (t *AVFAudioTrack) ReadSamples(dst []float32) {
	if t.paused.Load() {
		for i := range dst {
			dst[i] = 0
		}
		return
	}

	pos := t.played.Load()
	n := uint64(len(t.samples))
	loop := t.loop.Load()

	for i := range dst {
		p := pos + uint64(i)
		if loop {
			dst[i] = t.samples[p%n]
		} else if p < n {
			dst[i] = t.samples[p]
		} else {
			dst[i] = 0
		}
	}
	t.played.Store(pos + uint64(len(dst)))
}

// SamplesPlayed returns the monotonic played-sample counter.
func (t *AVFAudioTrack) SamplesPlayed() uint64 {
	return t.played.Load()
}

// PlayedCounter exposes the counter for the audio time source.
func (t *AVFAudioTrack) PlayedCounter() *atomic.Uint64 {
	return &t.played
}

// Rate returns the output device rate the track was built for.
func (t *AVFAudioTrack) Rate() int {
	return t.rate
}

// Duration returns the track length at the output rate.
func (t *AVFAudioTrack) Duration() time.Duration {
	return time.Duration(len(t.samples)) * time.Second / time.Duration(t.rate)
}

// SetLoop switches end-of-track behaviour between wrapping and silence.
func (t *AVFAudioTrack) SetLoop(loop bool) {
	t.loop.Store(loop)
}

// SetPaused freezes or resumes output and the position counter.
func (t *AVFAudioTrack) SetPaused(paused bool) {
	t.paused.Store(paused)
}

// Rewind restarts the track from the beginning. Only called by the
// orchestrator as part of a whole-playback restart.
func (t *AVFAudioTrack) Rewind() {
	t.played.Store(0)
}
