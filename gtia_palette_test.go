package main

import (
	"math"
	"testing"
)

// Test 1: Hue 0 is a pure grey column
func TestBuildPaletteTable_GreyColumn(t *testing.T) {
	pal := BuildPaletteTable(STD_PAL, AVF_DEFAULT_PHASE, AVF_DEFAULT_SATURATION)
	for luma := 0; luma < GTIA_LUMA_LEVELS; luma++ {
		px := pal.RGBA[luma]
		if px[0] != px[1] || px[1] != px[2] {
			t.Errorf("luma %d: expected grey, got %v", luma, px)
		}
	}
}

// Test 2: Luma 0 converges to the same black level for every hue
func TestBuildPaletteTable_Luma0Convergence(t *testing.T) {
	for _, standard := range []VideoStandard{STD_PAL, STD_NTSC} {
		pal := BuildPaletteTable(standard, AVF_DEFAULT_PHASE, 1.0)
		black := pal.RGBA[0]
		for hue := 1; hue < GTIA_HUE_LEVELS; hue++ {
			idx := hue << 4
			if pal.RGBA[idx] != black {
				t.Errorf("%s hue %d luma 0: expected %v, got %v", standard, hue, black, pal.RGBA[idx])
			}
		}
	}
}

// Test 3: Phase is periodic with 360 degrees
func TestBuildPaletteTable_PhasePeriodicity(t *testing.T) {
	a := BuildPaletteTable(STD_NTSC, 47.0, 0.3)
	b := BuildPaletteTable(STD_NTSC, 47.0+360.0, 0.3)
	if a.RGBA != b.RGBA {
		t.Error("expected identical palettes for phase and phase+360")
	}
	if a.Phase != b.Phase {
		t.Errorf("expected equal normalized phase, got %f and %f", a.Phase, b.Phase)
	}
}

// Test 4: Phase normalization wraps into [0,360)
func TestNormalizePhase(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{360, 0},
		{365, 5},
		{-5, 355},
		{-725, 355},
		{103, 103},
	}
	for _, c := range cases {
		if got := NormalizePhase(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("NormalizePhase(%f): expected %f, got %f", c.in, c.want, got)
		}
	}
}

// Test 5: Negative saturation clamps to zero
func TestClampSaturation(t *testing.T) {
	if got := ClampSaturation(-0.1); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
	if got := ClampSaturation(0.4); got != 0.4 {
		t.Errorf("expected 0.4, got %f", got)
	}
}

// Test 6: Zero saturation collapses the whole palette to greys
func TestBuildPaletteTable_ZeroSaturation(t *testing.T) {
	pal := BuildPaletteTable(STD_PAL, AVF_DEFAULT_PHASE, 0)
	for idx := 0; idx < GTIA_PALETTE_SIZE; idx++ {
		px := pal.RGBA[idx]
		if px[0] != px[1] || px[1] != px[2] {
			t.Errorf("index 0x%02X: expected grey, got %v", idx, px)
		}
	}
}

// Test 7: Grey column luminance is non-decreasing
func TestBuildPaletteTable_LumaMonotonic(t *testing.T) {
	pal := BuildPaletteTable(STD_PAL, AVF_DEFAULT_PHASE, AVF_DEFAULT_SATURATION)
	for luma := 1; luma < GTIA_LUMA_LEVELS; luma++ {
		if pal.RGBA[luma][0] < pal.RGBA[luma-1][0] {
			t.Errorf("luma %d darker than luma %d", luma, luma-1)
		}
	}
	if pal.RGBA[15][0] != 255 {
		t.Errorf("expected full white at luma 15, got %d", pal.RGBA[15][0])
	}
}

// Test 8: PAL and NTSC produce different chroma for the same index
func TestBuildPaletteTable_StandardsDiffer(t *testing.T) {
	pal := BuildPaletteTable(STD_PAL, AVF_DEFAULT_PHASE, 0.3)
	ntsc := BuildPaletteTable(STD_NTSC, AVF_DEFAULT_PHASE, 0.3)
	idx := 3<<4 | 8 // Arbitrary chroma index
	if pal.RGBA[idx] == ntsc.RGBA[idx] {
		t.Error("expected PAL and NTSC palettes to differ for a chroma index")
	}
}

// Test 9: Out-of-gamut channels hard-clip instead of rescaling
func TestYCToRGB_Clipping(t *testing.T) {
	r, g, b := STD_PAL.YCToRGB(2.0, 0, 0)
	if r != 255 || g != 255 || b != 255 {
		t.Errorf("expected white clip, got %d %d %d", r, g, b)
	}
	r, g, b = STD_PAL.YCToRGB(-1.0, 0, 0)
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("expected black clip, got %d %d %d", r, g, b)
	}
}

// Test 10: Palette synthesis is deterministic
func TestBuildPaletteTable_Deterministic(t *testing.T) {
	a := BuildPaletteTable(STD_NTSC, 211.7, 0.45)
	b := BuildPaletteTable(STD_NTSC, 211.7, 0.45)
	if a.RGBA != b.RGBA || a.YC != b.YC {
		t.Error("expected identical palettes from identical inputs")
	}
}

// Test 11: YC triples agree with the RGBA entries
func TestBuildPaletteTable_YCMatchesRGBA(t *testing.T) {
	pal := BuildPaletteTable(STD_PAL, AVF_DEFAULT_PHASE, AVF_DEFAULT_SATURATION)
	for idx := 0; idx < GTIA_PALETTE_SIZE; idx++ {
		yc := pal.YC[idx]
		r, g, b := STD_PAL.YCToRGB(yc[0], yc[1], yc[2])
		if px := pal.RGBA[idx]; px[0] != r || px[1] != g || px[2] != b {
			t.Errorf("index 0x%02X: YC round trip %d %d %d does not match RGBA %v", idx, r, g, b, px)
		}
	}
}
