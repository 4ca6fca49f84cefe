// avf_parser.go - AVF container parser for AVF Engine

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
avf_parser.go - AVF Container Parser

Decodes the AVF captured-video container in a single pass: a fixed-size
header block followed by frame_count fixed-size frame blocks. Each frame
block interleaves a nibble-packed GTIA colour-index video region with a
scattered scanline-rate audio region.

The parser deinterleaves both regions up front; the resulting frame
store is immutable and re-iterable. It never allocates render buffers
and has no side effects beyond the returned structures.

Failure modes (both fatal to the load attempt, no partial result):
- FormatError: missing/invalid signature, unsupported geometry,
  inconsistent header flags.
- TruncatedStreamError: declared frame count exceeds the available
  payload bytes.
*/

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// FormatError reports a malformed or unrecognised container header.
type FormatError struct {
	Details string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid AVF container: %s", e.Details)
}

// TruncatedStreamError reports a container whose header declares more
// frames than the payload actually carries.
type TruncatedStreamError struct {
	Declared  int // Frames declared by the header
	Available int // Whole frames present in the payload
}

func (e *TruncatedStreamError) Error() string {
	return fmt.Sprintf("truncated AVF stream: header declares %d frames, payload holds %d", e.Declared, e.Available)
}

// AVFHeader is the decoded container header. Immutable once parsed; the
// reserved bytes are retained so Serialize reproduces the original
// header block bit for bit.
type AVFHeader struct {
	Standard        VideoStandard
	FrameCount      int
	Width           int
	Height          int
	HasAudio        bool
	AudioSampleRate int

	reserved byte
	tail     []byte // Reserved header bytes after the structured prefix
}

// RawFrame is one deinterleaved frame payload. Owned by the parser's
// frame store and read-only once produced.
type RawFrame struct {
	Index  int
	Width  int
	Height int
	Video  []byte // Height rows of Width/4 packed index bytes
	Audio  []byte // Native scanline-rate samples (nil when no audio)
}

// AVFFile is a fully parsed AVF container.
type AVFFile struct {
	Header AVFHeader
	Frames []RawFrame
}

// isAVFData checks if data starts with the AVF container signature.
func isAVFData(data []byte) bool {
	return len(data) >= len(AVF_MAGIC) && bytes.HasPrefix(data, []byte(AVF_MAGIC))
}

// ParseAVFFile loads and parses an AVF container from disk.
func ParseAVFFile(path string) (*AVFFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isAVFData(data) {
		return ParseAVFData(data)
	}
	// Legacy captures carry no header block; the standard must come
	// from the caller, so the CLI resolves it before reaching here.
	return nil, &FormatError{Details: "missing AVF signature (use ParseRawAVFData for headerless captures)"}
}

// ParseAVFData parses a headered AVF container from a byte slice.
func ParseAVFData(data []byte) (*AVFFile, error) {
	if len(data) < AVF_HEADER_SIZE {
		return nil, &FormatError{Details: fmt.Sprintf("container shorter than %d-byte header", AVF_HEADER_SIZE)}
	}
	if !isAVFData(data) {
		return nil, &FormatError{Details: "missing AVF signature"}
	}

	header, err := parseAVFHeader(data[:AVF_HEADER_SIZE])
	if err != nil {
		return nil, err
	}

	payload := data[AVF_HEADER_SIZE:]
	available := len(payload) / AVF_FRAME_SIZE
	if available < header.FrameCount {
		return nil, &TruncatedStreamError{Declared: header.FrameCount, Available: available}
	}

	frames := make([]RawFrame, header.FrameCount)
	for i := 0; i < header.FrameCount; i++ {
		block := payload[i*AVF_FRAME_SIZE : (i+1)*AVF_FRAME_SIZE]
		frames[i] = demuxFrame(i, block, header)
	}

	return &AVFFile{Header: *header, Frames: frames}, nil
}

// ParseRawAVFData parses a legacy headerless capture: a bare sequence
// of frame blocks with the standard supplied by the caller. Audio is
// assumed present (the frame layout always reserves the region).
func ParseRawAVFData(data []byte, standard VideoStandard) (*AVFFile, error) {
	if len(data) == 0 || len(data)%AVF_FRAME_SIZE != 0 {
		return nil, &FormatError{Details: fmt.Sprintf("headerless capture length %d is not a positive multiple of %d", len(data), AVF_FRAME_SIZE)}
	}

	header := &AVFHeader{
		Standard:        standard,
		FrameCount:      len(data) / AVF_FRAME_SIZE,
		Width:           AVF_FRAME_WIDTH,
		Height:          AVF_FRAME_HEIGHT,
		HasAudio:        true,
		AudioSampleRate: standard.NativeAudioRate(),
		tail:            make([]byte, AVF_HEADER_SIZE-AVF_HDR_TAIL),
	}

	frames := make([]RawFrame, header.FrameCount)
	for i := 0; i < header.FrameCount; i++ {
		block := data[i*AVF_FRAME_SIZE : (i+1)*AVF_FRAME_SIZE]
		frames[i] = demuxFrame(i, block, header)
	}

	return &AVFFile{Header: *header, Frames: frames}, nil
}

// parseAVFHeader decodes the structured prefix of the header block and
// retains the reserved tail for bit-exact re-serialization.
func parseAVFHeader(block []byte) (*AVFHeader, error) {
	flags := block[AVF_HDR_FLAGS]
	if flags&^(AVF_FLAG_NTSC|AVF_FLAG_AUDIO) != 0 {
		return nil, &FormatError{Details: fmt.Sprintf("unknown header flags 0x%02X", flags)}
	}

	width := int(binary.LittleEndian.Uint16(block[AVF_HDR_WIDTH:]))
	height := int(binary.LittleEndian.Uint16(block[AVF_HDR_HEIGHT:]))
	if width != AVF_FRAME_WIDTH || height != AVF_FRAME_HEIGHT {
		return nil, &FormatError{Details: fmt.Sprintf("unsupported geometry %dx%d (AVF frames are %dx%d)", width, height, AVF_FRAME_WIDTH, AVF_FRAME_HEIGHT)}
	}

	frameCount := int(binary.LittleEndian.Uint32(block[AVF_HDR_FRAMES:]))
	rate := int(binary.LittleEndian.Uint32(block[AVF_HDR_RATE:]))

	hasAudio := flags&AVF_FLAG_AUDIO != 0
	if hasAudio && rate == 0 {
		return nil, &FormatError{Details: "audio flag set but sample rate is zero"}
	}
	if !hasAudio && rate != 0 {
		return nil, &FormatError{Details: "sample rate declared without audio flag"}
	}

	standard := STD_PAL
	if flags&AVF_FLAG_NTSC != 0 {
		standard = STD_NTSC
	}

	tail := make([]byte, AVF_HEADER_SIZE-AVF_HDR_TAIL)
	copy(tail, block[AVF_HDR_TAIL:])

	return &AVFHeader{
		Standard:        standard,
		FrameCount:      frameCount,
		Width:           width,
		Height:          height,
		HasAudio:        hasAudio,
		AudioSampleRate: rate,
		reserved:        block[AVF_HDR_RESERVED],
		tail:            tail,
	}, nil
}

// Serialize encodes the header back into its 8192-byte block. For a
// header produced by ParseAVFData the output matches the input bytes
// exactly, reserved tail included.
func (h *AVFHeader) Serialize() []byte {
	block := make([]byte, AVF_HEADER_SIZE)
	copy(block[AVF_HDR_MAGIC:], AVF_MAGIC)

	var flags byte
	if h.Standard == STD_NTSC {
		flags |= AVF_FLAG_NTSC
	}
	if h.HasAudio {
		flags |= AVF_FLAG_AUDIO
	}
	block[AVF_HDR_FLAGS] = flags
	block[AVF_HDR_RESERVED] = h.reserved

	binary.LittleEndian.PutUint16(block[AVF_HDR_WIDTH:], uint16(h.Width))
	binary.LittleEndian.PutUint16(block[AVF_HDR_HEIGHT:], uint16(h.Height))
	binary.LittleEndian.PutUint32(block[AVF_HDR_FRAMES:], uint32(h.FrameCount))

	rate := h.AudioSampleRate
	if !h.HasAudio {
		rate = 0
	}
	binary.LittleEndian.PutUint32(block[AVF_HDR_RATE:], uint32(rate))

	copy(block[AVF_HDR_TAIL:], h.tail)
	return block
}

// FrameRate returns the frames-per-second the container plays at,
// derived from its standard.
func (h *AVFHeader) FrameRate() int {
	return h.Standard.FrameRate()
}

// demuxFrame deinterleaves one frame block into its video matrix and
// native audio samples.
func demuxFrame(index int, block []byte, header *AVFHeader) RawFrame {
	frame := RawFrame{
		Index:  index,
		Width:  header.Width,
		Height: header.Height,
		Video:  demuxVideo(block),
	}
	if header.HasAudio {
		frame.Audio = demuxAudio(block, header.Standard)
	}
	return frame
}

// demuxVideo rebuilds the display-ordered video matrix from the chunked
// video region: chunk b carries rows 3b..3b+2 at fixed chunk offsets.
func demuxVideo(block []byte) []byte {
	video := make([]byte, AVF_FRAME_HEIGHT*AVF_ROW_BYTES)
	for b := 0; b < AVF_CHUNKS_PER_FRAME; b++ {
		chunk := block[b*AVF_CHUNK_SIZE : (b+1)*AVF_CHUNK_SIZE]
		row := b * AVF_ROWS_PER_CHUNK
		copy(video[row*AVF_ROW_BYTES:], chunk[AVF_CHUNK_ROW0_OFF:AVF_CHUNK_ROW0_OFF+AVF_ROW_BYTES])
		copy(video[(row+1)*AVF_ROW_BYTES:], chunk[AVF_CHUNK_ROW1_OFF:AVF_CHUNK_ROW1_OFF+AVF_ROW_BYTES])
		copy(video[(row+2)*AVF_ROW_BYTES:], chunk[AVF_CHUNK_ROW2_OFF:AVF_CHUNK_ROW2_OFF+AVF_ROW_BYTES])
	}
	return video
}

// demuxAudio reassembles the scattered audio bytes of one frame into
// scanline order. Slots the encoder never writes stay at the silence
// level. The scatter table differs between standards because the
// scanline count per frame differs.
func demuxAudio(block []byte, standard VideoStandard) []byte {
	off1 := AVF_AUDIO_OFF1_PAL
	if standard == STD_NTSC {
		off1 = AVF_AUDIO_OFF1_NTSC
	}
	off2 := AVF_AUDIO_OFF2

	buf := make([]byte, AVF_AUDIO_REGION_SIZE)
	for i := range buf {
		buf[i] = AVF_AUDIO_SILENCE
	}

	ptr := AVF_VIDEO_REGION_SIZE
	for y := 0; y < 32; y++ {
		if ptr+9 >= len(block) {
			break
		}
		buf[y] = block[ptr]
		buf[y+off1] = block[ptr+1]
		buf[y+32+off1] = block[ptr+2]
		buf[y+64+off1] = block[ptr+3]
		buf[y+96+off1] = block[ptr+4]
		buf[y+128+off1] = block[ptr+5]
		buf[y+160+off1] = block[ptr+6]
		buf[y+off2] = block[ptr+7]
		buf[y+32+off2] = block[ptr+8]
		ptr += 10
	}
	for y := 0; y < 19; y++ {
		if ptr >= len(block) {
			break
		}
		buf[y+32] = block[ptr]
		ptr++
		if standard == STD_PAL {
			if ptr < len(block) {
				buf[y+64+off2] = block[ptr]
				ptr++
			}
			ptr += 8
		} else {
			ptr += 9
		}
	}
	if ptr < len(block) {
		buf[51] = block[ptr]
	}

	return buf[:standard.SamplesPerFrame()]
}

// AudioSamples returns the container's native audio stream: every
// frame's samples concatenated in order. Nil when the container carries
// no audio.
func (f *AVFFile) AudioSamples() []byte {
	if !f.Header.HasAudio || len(f.Frames) == 0 {
		return nil
	}
	perFrame := f.Header.Standard.SamplesPerFrame()
	out := make([]byte, 0, len(f.Frames)*perFrame)
	for i := range f.Frames {
		out = append(out, f.Frames[i].Audio...)
	}
	return out
}
