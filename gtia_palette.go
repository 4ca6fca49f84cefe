// gtia_palette.go - GTIA palette synthesizer for AVF Engine

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
gtia_palette.go - GTIA Palette Synthesizer

Synthesizes the 256-entry GTIA palette (16 hues x 16 luminances) from
signal-processing first principles rather than a baked-in table, so the
phase and saturation controls behave like the tuning pots on a real
display.

Each colour index splits into a hue nibble and a luma nibble. Hue 0 is
the grey column. For hues 1-15 the chroma angle walks the colour wheel
at 24 degree spacing; the winding direction and reference angle depend
on the broadcast standard, as does the luma/chroma-to-RGB matrix (PAL
YUV vs NTSC YIQ). Channels outside 0-255 are hard-clipped, which is the
intended lossy approximation.

Tables are immutable after construction; the player republishes a fresh
table via atomic pointer swap whenever phase or saturation changes.
*/

package main

import "math"

// PaletteTable maps every GTIA colour index to its RGBA pixel and its
// luma/chroma triple. The triples feed the renderer's blending path so
// neighbour averaging happens in the analog signal domain, not RGB.
type PaletteTable struct {
	Standard   VideoStandard
	Phase      float64 // Normalized degrees, [0,360)
	Saturation float64 // Clamped, >= 0

	RGBA [GTIA_PALETTE_SIZE][4]uint8
	YC   [GTIA_PALETTE_SIZE][3]float64 // luma, chroma-x, chroma-y
}

// NormalizePhase wraps a phase offset in degrees into [0,360).
func NormalizePhase(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// ClampSaturation clamps saturation to the valid range. Negative input
// is silently treated as zero; there is no upper clamp here because
// oversaturation just clips harder, which is allowed.
func ClampSaturation(sat float64) float64 {
	if sat < 0 {
		return 0
	}
	return sat
}

// BuildPaletteTable synthesizes a palette for the given standard, phase
// offset (degrees) and saturation. Pure and deterministic; never fails.
func BuildPaletteTable(standard VideoStandard, phaseDeg, saturation float64) *PaletteTable {
	phase := NormalizePhase(phaseDeg)
	sat := ClampSaturation(saturation)

	table := &PaletteTable{
		Standard:   standard,
		Phase:      phase,
		Saturation: sat,
	}

	refAngle := GTIA_REF_ANGLE_PAL
	winding := GTIA_WINDING_PAL
	if standard == STD_NTSC {
		refAngle = GTIA_REF_ANGLE_NTSC
		winding = GTIA_WINDING_NTSC
	}

	for hue := 0; hue < GTIA_HUE_LEVELS; hue++ {
		for luma := 0; luma < GTIA_LUMA_LEVELS; luma++ {
			idx := hue<<4 | luma
			y := float64(luma) / float64(GTIA_LUMA_LEVELS-1)

			// Hue 0 has no subcarrier; luma 0 forces the chroma
			// magnitude to zero so every hue converges on black-level
			// grey.
			mag := 0.0
			var cx, cy float64
			if hue != 0 && luma != 0 {
				mag = sat * AVF_CHROMA_SCALE
				angle := refAngle + winding*float64(hue-1)*GTIA_HUE_SPACING + phase
				rad := angle * math.Pi / 180.0
				cx = mag * math.Cos(rad)
				cy = mag * math.Sin(rad)
			}

			table.YC[idx] = [3]float64{y, cx, cy}
			r, g, b := standard.YCToRGB(y, cx, cy)
			table.RGBA[idx] = [4]uint8{r, g, b, 0xFF}
		}
	}

	return table
}

// YCToRGB converts a luma/chroma triple to clipped 8-bit RGB using the
// standard's matrix.
func (s VideoStandard) YCToRGB(y, cx, cy float64) (uint8, uint8, uint8) {
	var r, g, b float64
	if s == STD_NTSC {
		r = y + NTSC_RI*cx + NTSC_RQ*cy
		g = y + NTSC_GI*cx + NTSC_GQ*cy
		b = y + NTSC_BI*cx + NTSC_BQ*cy
	} else {
		r = y + PAL_RV*cy
		g = y + PAL_GU*cx + PAL_GV*cy
		b = y + PAL_BU*cx
	}
	return clampChannel(r), clampChannel(g), clampChannel(b)
}

// clampChannel maps a 0..1 channel value to 0..255, hard-clipping
// out-of-gamut values rather than rescaling.
func clampChannel(v float64) uint8 {
	n := int(v * 255.0)
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}
