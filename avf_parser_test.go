package main

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildTestHeader(standard VideoStandard, frames int, hasAudio bool, rate int) []byte {
	block := make([]byte, AVF_HEADER_SIZE)
	copy(block[AVF_HDR_MAGIC:], AVF_MAGIC)
	var flags byte
	if standard == STD_NTSC {
		flags |= AVF_FLAG_NTSC
	}
	if hasAudio {
		flags |= AVF_FLAG_AUDIO
	}
	block[AVF_HDR_FLAGS] = flags
	binary.LittleEndian.PutUint16(block[AVF_HDR_WIDTH:], AVF_FRAME_WIDTH)
	binary.LittleEndian.PutUint16(block[AVF_HDR_HEIGHT:], AVF_FRAME_HEIGHT)
	binary.LittleEndian.PutUint32(block[AVF_HDR_FRAMES:], uint32(frames))
	binary.LittleEndian.PutUint32(block[AVF_HDR_RATE:], uint32(rate))
	return block
}

func buildTestContainer(standard VideoStandard, frames int, hasAudio bool) []byte {
	rate := 0
	if hasAudio {
		rate = standard.NativeAudioRate()
	}
	data := buildTestHeader(standard, frames, hasAudio, rate)
	for i := 0; i < frames; i++ {
		data = append(data, make([]byte, AVF_FRAME_SIZE)...)
	}
	return data
}

// Test 1: Detect AVF container signature
func TestIsAVFData_ValidSignature(t *testing.T) {
	if !isAVFData([]byte("AVF1....")) {
		t.Error("expected valid AVF signature to be detected")
	}
}

func TestIsAVFData_InvalidSignature(t *testing.T) {
	if isAVFData([]byte("SAP\r\nTYPE B")) {
		t.Error("expected SAP signature to not be detected as AVF")
	}
}

func TestIsAVFData_TooShort(t *testing.T) {
	if isAVFData([]byte("AV")) {
		t.Error("expected short data to not be detected as AVF")
	}
}

// Test 2: Parse minimal headered container
func TestParseAVFData_MinimalHeader(t *testing.T) {
	data := buildTestContainer(STD_PAL, 2, true)
	file, err := ParseAVFData(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.Header.Standard != STD_PAL {
		t.Errorf("expected PAL, got %s", file.Header.Standard)
	}
	if file.Header.FrameCount != 2 {
		t.Errorf("expected 2 frames, got %d", file.Header.FrameCount)
	}
	if file.Header.Width != AVF_FRAME_WIDTH || file.Header.Height != AVF_FRAME_HEIGHT {
		t.Errorf("expected %dx%d, got %dx%d", AVF_FRAME_WIDTH, AVF_FRAME_HEIGHT, file.Header.Width, file.Header.Height)
	}
	if !file.Header.HasAudio {
		t.Error("expected audio flag to be set")
	}
	if file.Header.AudioSampleRate != AVF_AUDIO_RATE_PAL {
		t.Errorf("expected rate %d, got %d", AVF_AUDIO_RATE_PAL, file.Header.AudioSampleRate)
	}
	if len(file.Frames) != 2 {
		t.Fatalf("expected 2 parsed frames, got %d", len(file.Frames))
	}
	if file.Frames[1].Index != 1 {
		t.Errorf("expected frame index 1, got %d", file.Frames[1].Index)
	}
}

// Test 3: NTSC flag selects NTSC standard
func TestParseAVFData_NTSCFlag(t *testing.T) {
	data := buildTestContainer(STD_NTSC, 1, false)
	file, err := ParseAVFData(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.Header.Standard != STD_NTSC {
		t.Errorf("expected NTSC, got %s", file.Header.Standard)
	}
	if file.Frames[0].Audio != nil {
		t.Error("expected no audio samples without audio flag")
	}
}

// Test 4: Header survives a parse/serialize round trip bit for bit
func TestAVFHeader_SerializeRoundTrip(t *testing.T) {
	raw := buildTestHeader(STD_NTSC, 123, true, AVF_AUDIO_RATE_NTSC)
	raw[AVF_HDR_RESERVED] = 0x5A
	raw[AVF_HDR_TAIL] = 0xDE
	raw[AVF_HEADER_SIZE-1] = 0xAD

	header, err := parseAVFHeader(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := header.Serialize()
	if !bytes.Equal(out, raw) {
		t.Error("serialized header does not match original bytes")
	}
}

// Test 5: Unknown flag bits are rejected
func TestParseAVFData_UnknownFlags(t *testing.T) {
	data := buildTestContainer(STD_PAL, 1, false)
	data[AVF_HDR_FLAGS] |= 0x80
	_, err := ParseAVFData(data)
	if _, ok := err.(*FormatError); !ok {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

// Test 6: Unsupported geometry is rejected
func TestParseAVFData_BadGeometry(t *testing.T) {
	data := buildTestContainer(STD_PAL, 1, false)
	binary.LittleEndian.PutUint16(data[AVF_HDR_WIDTH:], 320)
	_, err := ParseAVFData(data)
	if _, ok := err.(*FormatError); !ok {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

// Test 7: Audio flag and sample rate must agree
func TestParseAVFData_AudioFlagRateMismatch(t *testing.T) {
	noRate := buildTestHeader(STD_PAL, 1, true, 0)
	if _, err := parseAVFHeader(noRate); err == nil {
		t.Error("expected error for audio flag without sample rate")
	}

	noFlag := buildTestHeader(STD_PAL, 1, false, AVF_AUDIO_RATE_PAL)
	if _, err := parseAVFHeader(noFlag); err == nil {
		t.Error("expected error for sample rate without audio flag")
	}
}

// Test 8: Truncated payloads are rejected with frame counts
func TestParseAVFData_Truncated(t *testing.T) {
	data := buildTestContainer(STD_PAL, 3, false)
	data = data[:AVF_HEADER_SIZE+2*AVF_FRAME_SIZE+100]
	_, err := ParseAVFData(data)
	te, ok := err.(*TruncatedStreamError)
	if !ok {
		t.Fatalf("expected TruncatedStreamError, got %v", err)
	}
	if te.Declared != 3 || te.Available != 2 {
		t.Errorf("expected declared=3 available=2, got declared=%d available=%d", te.Declared, te.Available)
	}
}

// Test 9: Video chunk deinterleave places rows at 3b, 3b+1, 3b+2
func TestDemuxVideo_ChunkRowPlacement(t *testing.T) {
	block := make([]byte, AVF_FRAME_SIZE)
	chunk := 10
	base := chunk * AVF_CHUNK_SIZE
	block[base+AVF_CHUNK_ROW0_OFF] = 0xA0
	block[base+AVF_CHUNK_ROW1_OFF] = 0xA1
	block[base+AVF_CHUNK_ROW2_OFF+AVF_ROW_BYTES-1] = 0xA2

	video := demuxVideo(block)
	if len(video) != AVF_FRAME_HEIGHT*AVF_ROW_BYTES {
		t.Fatalf("expected %d video bytes, got %d", AVF_FRAME_HEIGHT*AVF_ROW_BYTES, len(video))
	}
	row := chunk * AVF_ROWS_PER_CHUNK
	if video[row*AVF_ROW_BYTES] != 0xA0 {
		t.Errorf("row %d first byte: expected 0xA0, got 0x%02X", row, video[row*AVF_ROW_BYTES])
	}
	if video[(row+1)*AVF_ROW_BYTES] != 0xA1 {
		t.Errorf("row %d first byte: expected 0xA1, got 0x%02X", row+1, video[(row+1)*AVF_ROW_BYTES])
	}
	if video[(row+3)*AVF_ROW_BYTES-1] != 0xA2 {
		t.Errorf("row %d last byte: expected 0xA2, got 0x%02X", row+2, video[(row+3)*AVF_ROW_BYTES-1])
	}
}

// Test 10: PAL audio scatter reassembly. The scatter tables overlap on
// a few slots; where they do, the later write wins, matching the
// encoder's layout.
func TestDemuxAudio_PALScatter(t *testing.T) {
	block := make([]byte, AVF_FRAME_SIZE)
	base := AVF_VIDEO_REGION_SIZE
	block[base] = 1      // group 0 slot 0 -> sample 0
	block[base+10] = 2   // group 1 slot 0 -> sample 1
	block[base+7] = 3    // group 0 slot 7 -> sample off2
	block[base+151] = 4  // group 15 slot 1 -> sample 15+off1, past the tail overlap
	block[base+320] = 5  // tail 0 byte 0 -> sample 32
	block[base+321] = 6  // tail 0 byte 1 -> sample 64+off2
	block[base+1] = 7    // group 0 slot 1 -> sample off1 (120)
	block[base+361] = 8  // tail 4 byte 1 -> sample 120, overwrites the group write

	samples := demuxAudio(block, STD_PAL)
	if len(samples) != AVF_SAMPLES_PAL {
		t.Fatalf("expected %d samples, got %d", AVF_SAMPLES_PAL, len(samples))
	}
	if samples[0] != 1 {
		t.Errorf("sample 0: expected 1, got %d", samples[0])
	}
	if samples[1] != 2 {
		t.Errorf("sample 1: expected 2, got %d", samples[1])
	}
	if samples[AVF_AUDIO_OFF2] != 3 {
		t.Errorf("sample %d: expected 3, got %d", AVF_AUDIO_OFF2, samples[AVF_AUDIO_OFF2])
	}
	if samples[15+AVF_AUDIO_OFF1_PAL] != 4 {
		t.Errorf("sample %d: expected 4, got %d", 15+AVF_AUDIO_OFF1_PAL, samples[15+AVF_AUDIO_OFF1_PAL])
	}
	if samples[32] != 5 {
		t.Errorf("sample 32: expected 5, got %d", samples[32])
	}
	if samples[64+AVF_AUDIO_OFF2] != 6 {
		t.Errorf("sample %d: expected 6, got %d", 64+AVF_AUDIO_OFF2, samples[64+AVF_AUDIO_OFF2])
	}
	// Slot 120 is written twice: by group 0 and then by tail entry 4.
	if samples[AVF_AUDIO_OFF1_PAL] != 8 {
		t.Errorf("sample %d: expected the tail write (8), got %d", AVF_AUDIO_OFF1_PAL, samples[AVF_AUDIO_OFF1_PAL])
	}
}

// Test 11: NTSC audio scatter uses the NTSC offsets and sample count
func TestDemuxAudio_NTSCScatter(t *testing.T) {
	block := make([]byte, AVF_FRAME_SIZE)
	base := AVF_VIDEO_REGION_SIZE
	block[base+6] = 9   // group 0 slot 6 -> sample 160+off1, collision-free
	block[base+1] = 4   // group 0 slot 1 -> sample off1 (70)
	block[base+187] = 5 // group 18 slot 7 -> sample 70, overwrites the slot 1 write

	samples := demuxAudio(block, STD_NTSC)
	if len(samples) != AVF_SAMPLES_NTSC {
		t.Fatalf("expected %d samples, got %d", AVF_SAMPLES_NTSC, len(samples))
	}
	if samples[160+AVF_AUDIO_OFF1_NTSC] != 9 {
		t.Errorf("sample %d: expected 9, got %d", 160+AVF_AUDIO_OFF1_NTSC, samples[160+AVF_AUDIO_OFF1_NTSC])
	}
	// Slot 70 sits under both the off1 and off2 scatter lines; the
	// later group's off2 write wins.
	if samples[AVF_AUDIO_OFF1_NTSC] != 5 {
		t.Errorf("sample %d: expected the off2 write (5), got %d", AVF_AUDIO_OFF1_NTSC, samples[AVF_AUDIO_OFF1_NTSC])
	}
}

// Test 12: Unwritten audio slots hold the silence level
func TestDemuxAudio_ZeroBlockStillMapsWrittenSlots(t *testing.T) {
	block := make([]byte, AVF_FRAME_SIZE)
	samples := demuxAudio(block, STD_PAL)
	for i, s := range samples {
		if s != 0 && s != AVF_AUDIO_SILENCE {
			t.Fatalf("sample %d: expected 0 or silence, got %d", i, s)
		}
	}
}

// Test 13: Headerless legacy capture parsing
func TestParseRawAVFData_FrameCount(t *testing.T) {
	data := make([]byte, 4*AVF_FRAME_SIZE)
	file, err := ParseRawAVFData(data, STD_NTSC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.Header.FrameCount != 4 {
		t.Errorf("expected 4 frames, got %d", file.Header.FrameCount)
	}
	if file.Header.Standard != STD_NTSC {
		t.Errorf("expected NTSC, got %s", file.Header.Standard)
	}
	if !file.Header.HasAudio {
		t.Error("expected legacy captures to assume audio")
	}
}

func TestParseRawAVFData_BadLength(t *testing.T) {
	if _, err := ParseRawAVFData(make([]byte, AVF_FRAME_SIZE+1), STD_PAL); err == nil {
		t.Error("expected error for non-multiple length")
	}
	if _, err := ParseRawAVFData(nil, STD_PAL); err == nil {
		t.Error("expected error for empty capture")
	}
}

// Test 14: AudioSamples concatenates all frames in order
func TestAudioSamples_Concatenation(t *testing.T) {
	data := buildTestContainer(STD_PAL, 3, true)
	file, err := ParseAVFData(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	samples := file.AudioSamples()
	if len(samples) != 3*AVF_SAMPLES_PAL {
		t.Errorf("expected %d samples, got %d", 3*AVF_SAMPLES_PAL, len(samples))
	}
}

func TestAudioSamples_NoAudio(t *testing.T) {
	data := buildTestContainer(STD_PAL, 1, false)
	file, err := ParseAVFData(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.AudioSamples() != nil {
		t.Error("expected nil samples for silent container")
	}
}
