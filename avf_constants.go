// avf_constants.go - AVF container layout, GTIA palette geometry and CRT filter tuning

package main

// AVF container layout.
// An AVF capture is an 8192-byte header block followed by frame_count
// fixed-size frame blocks. Each frame block carries an 8192-byte video
// region (nibble-packed GTIA colour indices) and a 512-byte audio region
// (scattered POKEY sample bytes).
const (
	AVF_MAGIC       = "AVF1"
	AVF_HEADER_SIZE = 8192
	AVF_FRAME_SIZE  = 8704

	AVF_VIDEO_REGION_SIZE = 8192
	AVF_AUDIO_REGION_SIZE = 512

	AVF_FRAME_WIDTH  = 160 // Native pixels per display row
	AVF_FRAME_HEIGHT = 192 // Display rows per frame

	AVF_ROW_BYTES = 40 // Packed bytes per display row (2 nibble pixels/byte, rows paired)

	// Video region block structure: 64 chunks of 128 bytes, each chunk
	// carrying three display rows at fixed offsets within the chunk.
	AVF_CHUNKS_PER_FRAME = 64
	AVF_CHUNK_SIZE       = 128
	AVF_ROWS_PER_CHUNK   = 3
	AVF_CHUNK_ROW0_OFF   = 1
	AVF_CHUNK_ROW1_OFF   = 45
	AVF_CHUNK_ROW2_OFF   = 88
)

// Header field offsets within the 8192-byte header block. Bytes from
// AVF_HDR_TAIL onward are reserved and must survive a parse/serialize
// round trip untouched.
const (
	AVF_HDR_MAGIC    = 0
	AVF_HDR_FLAGS    = 4
	AVF_HDR_RESERVED = 5
	AVF_HDR_WIDTH    = 6
	AVF_HDR_HEIGHT   = 8
	AVF_HDR_FRAMES   = 10
	AVF_HDR_RATE     = 14
	AVF_HDR_TAIL     = 18
)

// Header flag bits
const (
	AVF_FLAG_NTSC  = 0x01 // Set: NTSC capture; clear: PAL
	AVF_FLAG_AUDIO = 0x02 // Set: audio region carries samples
)

// Audio region scatter layout. The Atari-side encoder spreads one
// scanline-rate sample stream across the 512-byte region; slots never
// written hold the DC silence level.
const (
	AVF_AUDIO_SILENCE   = 50 // Sample stream is 0-100 with silence at 50
	AVF_SAMPLES_PAL     = 312
	AVF_SAMPLES_NTSC    = 262
	AVF_AUDIO_OFF1_PAL  = 120
	AVF_AUDIO_OFF1_NTSC = 70
	AVF_AUDIO_OFF2      = 52
)

// VideoStandard selects the broadcast timing and colour convention of a
// capture. It decides frame duration, audio scatter geometry, the
// chroma/luma row interleave order and the palette colour matrix.
type VideoStandard int

const (
	STD_PAL VideoStandard = iota
	STD_NTSC
)

func (s VideoStandard) String() string {
	if s == STD_NTSC {
		return "NTSC"
	}
	return "PAL"
}

// Broadcast timing
const (
	AVF_FRAME_RATE_PAL  = 50 // Frames per second, PAL
	AVF_FRAME_RATE_NTSC = 60 // Frames per second, NTSC
)

// Native audio sample rates (one sample per scanline)
const (
	AVF_AUDIO_RATE_PAL  = AVF_SAMPLES_PAL * AVF_FRAME_RATE_PAL   // 15600 Hz
	AVF_AUDIO_RATE_NTSC = AVF_SAMPLES_NTSC * AVF_FRAME_RATE_NTSC // 15720 Hz
)

// GTIA palette geometry: colour index = hue<<4 | luma, 16 levels each.
// Hue 0 is the grey column; hues 1-15 sit on the colour wheel at 24
// degree spacing.
const (
	GTIA_LUMA_LEVELS  = 16
	GTIA_HUE_LEVELS   = 16
	GTIA_PALETTE_SIZE = GTIA_LUMA_LEVELS * GTIA_HUE_LEVELS

	GTIA_HUE_SPACING = 360.0 / 15.0 // Degrees between adjacent hues
)

// Subcarrier geometry per standard. PAL winds the colour wheel in the
// positive sense from a zero reference; NTSC winds the opposite way
// from the burst reference angle.
const (
	GTIA_REF_ANGLE_PAL  = 0.0
	GTIA_REF_ANGLE_NTSC = 33.0
	GTIA_WINDING_PAL    = 1.0
	GTIA_WINDING_NTSC   = -1.0
)

// Luma/chroma to RGB matrix coefficients. PAL uses the BT.470 YUV
// primaries, NTSC the YIQ set with its different reference white.
const (
	PAL_RV = 1.140
	PAL_GU = -0.395
	PAL_GV = -0.581
	PAL_BU = 2.032

	NTSC_RI = 0.956
	NTSC_RQ = 0.621
	NTSC_GI = -0.272
	NTSC_GQ = -0.647
	NTSC_BI = -1.106
	NTSC_BQ = 1.703
)

// Palette tuning defaults and steps. Phase is in degrees and wraps mod
// 360; saturation is clamped at zero. These are calibrated viewing
// defaults, not hardware-accurate values.
const (
	AVF_CHROMA_SCALE       = 0.5 // Per-level chroma magnitude scale
	AVF_DEFAULT_PHASE      = 103.0
	AVF_DEFAULT_SATURATION = 0.15
	AVF_PHASE_STEP         = 2.5
	AVF_SATURATION_STEP    = 0.05
)

// CRT filter tuning. Scanline level multiplies odd output rows;
// blending is a symmetric three-tap kernel applied in the luma/chroma
// domain with replicated borders.
const (
	AVF_SCANLINE_LEVEL = 0.6
	AVF_BLEND_CENTER   = 0.5
	AVF_BLEND_SIDE     = 0.25
)

// Display scaling
const (
	AVF_MIN_SCALE     = 1
	AVF_MAX_SCALE     = 8
	AVF_DEFAULT_SCALE = 3
	AVF_PIXEL_ASPECT  = 2 // Atari pixels are twice as wide as tall
)

// Audio output
const (
	AVF_OUTPUT_SAMPLE_RATE = 44100
	AVF_AUDIO_GAIN         = 500.0 / 32768.0 // Native 0-100 stream to float32 full scale
)

// Version is the engine version string reported by the CLI.
const Version = "1.0.0"

// FrameRate returns the frame rate in Hz for the standard.
func (s VideoStandard) FrameRate() int {
	if s == STD_NTSC {
		return AVF_FRAME_RATE_NTSC
	}
	return AVF_FRAME_RATE_PAL
}

// SamplesPerFrame returns the native audio samples carried per frame.
func (s VideoStandard) SamplesPerFrame() int {
	if s == STD_NTSC {
		return AVF_SAMPLES_NTSC
	}
	return AVF_SAMPLES_PAL
}

// NativeAudioRate returns the native audio sample rate in Hz.
func (s VideoStandard) NativeAudioRate() int {
	if s == STD_NTSC {
		return AVF_AUDIO_RATE_NTSC
	}
	return AVF_AUDIO_RATE_PAL
}
