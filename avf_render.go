// avf_render.go - CRT-emulating frame renderer for AVF Engine

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
avf_render.go - Frame Renderer

Turns one raw AVF frame into an RGBA pixel buffer at output resolution:

1. Split the interleaved chroma/luma display rows (PAL carries chroma
   on even rows, NTSC on odd), unpack the nibble-packed levels and
   combine them into GTIA palette indices.
2. Map indices through the active palette and double horizontally to
   native width.
3. Optionally blend each pixel with its horizontal neighbours in the
   luma/chroma domain - subcarrier bleed, not an RGB blur. Borders
   replicate; there is no wraparound.
4. Double vertically to native height and upscale by the integer scale
   factor with nearest-neighbour replication.
5. Optionally attenuate every odd output row to emulate interlace
   darkening.

Rendering is pure: equal inputs produce byte-identical output, and the
renderer touches nothing outside the buffer it returns.
*/

package main

import "fmt"

// FilterState is the display filter configuration read by the renderer.
// Owned by the player; mutated only between ticks.
type FilterState struct {
	Scanlines bool // Darken odd output rows
	Blending  bool // Horizontal luma/chroma blend
	Loop      bool // Wrap playback at end of stream
	Scale     int  // Integer output scale
}

// DefaultFilterState returns the power-on filter configuration:
// scanlines and blending enabled, loop off.
func DefaultFilterState() FilterState {
	return FilterState{
		Scanlines: true,
		Blending:  true,
		Loop:      false,
		Scale:     AVF_DEFAULT_SCALE,
	}
}

// RenderedFrame is one tick's output pixel buffer. Created per render
// call, consumed by the display sink, then discarded.
type RenderedFrame struct {
	Width  int
	Height int
	Pix    []byte // RGBA, Width*Height*4 bytes
}

// GeometryMismatchError reports a frame payload that does not match the
// geometry its container declared. This is a programming-contract
// violation between parser and renderer, treated as fatal.
type GeometryMismatchError struct {
	Expected int
	Actual   int
}

func (e *GeometryMismatchError) Error() string {
	return fmt.Sprintf("frame payload geometry mismatch: expected %d video bytes, got %d", e.Expected, e.Actual)
}

// scanlineLUT pre-computes the odd-row attenuation for every channel
// value.
var scanlineLUT = buildScanlineLUT()

func buildScanlineLUT() [256]uint8 {
	var lut [256]uint8
	for v := 0; v < 256; v++ {
		lut[v] = uint8(float64(v) * AVF_SCANLINE_LEVEL)
	}
	return lut
}

// RenderAVFFrame renders one raw frame through the palette and filter
// state into an RGBA buffer at frame geometry x scale.
func RenderAVFFrame(frame *RawFrame, pal *PaletteTable, fs FilterState) (*RenderedFrame, error) {
	w, h := frame.Width, frame.Height
	rowBytes := w / 4
	expected := h * rowBytes
	if len(frame.Video) != expected {
		return nil, &GeometryMismatchError{Expected: expected, Actual: len(frame.Video)}
	}

	scale := ClampScale(fs.Scale)
	native := renderNative(frame, pal, fs, w, h, rowBytes)

	out := &RenderedFrame{
		Width:  w * scale,
		Height: h * scale,
		Pix:    make([]byte, w*scale*h*scale*4),
	}
	upscaleInto(out, native, w, h, scale, fs.Scanlines)
	return out, nil
}

// renderNative produces the unscaled RGBA image: palette mapping,
// horizontal doubling, optional blending, vertical doubling.
func renderNative(frame *RawFrame, pal *PaletteTable, fs FilterState, w, h, rowBytes int) []byte {
	encLines := h / 2
	native := make([]byte, w*h*4)

	indices := make([]uint8, w)     // Palette index per native-width pixel
	ycLine := make([][3]float64, w) // Blend workspace
	blended := make([][3]float64, w)
	rowRGBA := make([]byte, w*4)

	for line := 0; line < encLines; line++ {
		// PAL interlaces chroma rows first, NTSC luma rows first.
		chromaRow := 2 * line
		lumaRow := 2*line + 1
		if pal.Standard == STD_NTSC {
			chromaRow, lumaRow = lumaRow, chromaRow
		}
		cBytes := frame.Video[chromaRow*rowBytes : chromaRow*rowBytes+rowBytes]
		lBytes := frame.Video[lumaRow*rowBytes : lumaRow*rowBytes+rowBytes]

		// Unpack nibbles and double horizontally in one pass.
		for j := 0; j < rowBytes; j++ {
			i0 := cBytes[j]&0xF0 | lBytes[j]>>4
			i1 := cBytes[j]<<4 | lBytes[j]&0x0F
			x := j * 4
			indices[x] = i0
			indices[x+1] = i0
			indices[x+2] = i1
			indices[x+3] = i1
		}

		if fs.Blending {
			for x := 0; x < w; x++ {
				ycLine[x] = pal.YC[indices[x]]
			}
			blendLine(blended, ycLine, w)
			for x := 0; x < w; x++ {
				r, g, b := pal.Standard.YCToRGB(blended[x][0], blended[x][1], blended[x][2])
				o := x * 4
				rowRGBA[o] = r
				rowRGBA[o+1] = g
				rowRGBA[o+2] = b
				rowRGBA[o+3] = 0xFF
			}
		} else {
			for x := 0; x < w; x++ {
				px := pal.RGBA[indices[x]]
				copy(rowRGBA[x*4:], px[:])
			}
		}

		// Each encoded line covers two native rows.
		copy(native[(2*line)*w*4:], rowRGBA)
		copy(native[(2*line+1)*w*4:], rowRGBA)
	}

	return native
}

// blendLine applies the three-tap luma/chroma kernel with replicated
// borders.
func blendLine(dst, src [][3]float64, w int) {
	for x := 0; x < w; x++ {
		left, right := x-1, x+1
		if left < 0 {
			left = 0
		}
		if right >= w {
			right = w - 1
		}
		for c := 0; c < 3; c++ {
			dst[x][c] = AVF_BLEND_SIDE*src[left][c] + AVF_BLEND_CENTER*src[x][c] + AVF_BLEND_SIDE*src[right][c]
		}
	}
}

// upscaleInto replicates each native pixel into a scale x scale block
// and darkens odd output rows when scanlines are enabled.
func upscaleInto(out *RenderedFrame, native []byte, w, h, scale int, scanlines bool) {
	outStride := out.Width * 4

	scaledRow := make([]byte, outStride)
	darkRow := make([]byte, outStride)

	for y := 0; y < h; y++ {
		src := native[y*w*4 : (y+1)*w*4]

		// Pixel-replicate one native row to output width.
		for x := 0; x < w; x++ {
			px := src[x*4 : x*4+4]
			base := x * scale * 4
			for k := 0; k < scale; k++ {
				copy(scaledRow[base+k*4:], px)
			}
		}
		if scanlines {
			for i := 0; i < outStride; i += 4 {
				darkRow[i] = scanlineLUT[scaledRow[i]]
				darkRow[i+1] = scanlineLUT[scaledRow[i+1]]
				darkRow[i+2] = scanlineLUT[scaledRow[i+2]]
				darkRow[i+3] = scaledRow[i+3]
			}
		}

		for k := 0; k < scale; k++ {
			oy := y*scale + k
			row := scaledRow
			if scanlines && oy%2 == 1 {
				row = darkRow
			}
			copy(out.Pix[oy*outStride:], row)
		}
	}
}
