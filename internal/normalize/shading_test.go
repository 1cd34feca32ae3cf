package normalize

import "testing"

func flatGray(w, h int, v float64) [][]float64 {
	gray := make([][]float64, w)
	for x := range gray {
		gray[x] = make([]float64, h)
		for y := range gray[x] {
			gray[x][y] = v
		}
	}
	return gray
}

func TestEstimateShadow_NoneOnFlatImage(t *testing.T) {
	gray := flatGray(100, 100, 200)
	shadow := estimateShadow(gray)
	if shadow.Present {
		t.Fatalf("expected no shadow on flat image, got %+v", shadow)
	}
	if shadow.Side != "none" {
		t.Fatalf("expected side none, got %v", shadow.Side)
	}
}

func TestEstimateShadow_DetectsDarkLeftStrip(t *testing.T) {
	gray := flatGray(200, 100, 220)
	stripW := int(0.04 * 200)
	for x := 0; x < stripW; x++ {
		for y := range gray[x] {
			gray[x][y] = 120
		}
	}
	shadow := estimateShadow(gray)
	if !shadow.Present {
		t.Fatalf("expected shadow to be detected, got %+v", shadow)
	}
	if shadow.Side != "left" {
		t.Fatalf("expected left side shadow, got %v", shadow.Side)
	}
}

func TestBackgroundField_MatchesFlatInput(t *testing.T) {
	gray := flatGray(50, 50, 180)
	bg := backgroundField(gray)
	if len(bg) == 0 {
		t.Fatal("expected non-empty background field")
	}
	for _, col := range bg {
		for _, v := range col {
			if v != 180 {
				t.Fatalf("expected flat background field value 180, got %v", v)
			}
		}
	}
}

func TestShadingConfidence_HigherWithNoisierBorder(t *testing.T) {
	low := shadingConfidence(0, 0, 2)
	high := shadingConfidence(0, 0, 30)
	if high <= low {
		t.Fatalf("expected higher border noise to raise shading confidence: low=%v high=%v", low, high)
	}
}

func TestApplyShadingGain_BrightensDarkerRegionTowardBorderMean(t *testing.T) {
	gray := flatGray(40, 40, 200)
	for x := 0; x < 20; x++ {
		for y := 0; y < 40; y++ {
			gray[x][y] = 100
		}
	}
	bg := backgroundField(gray)
	corrected := applyShadingGain(gray, bg, 200, 0.3)
	if corrected[5][5] <= gray[5][5] {
		t.Fatalf("expected darker region to brighten, before=%v after=%v", gray[5][5], corrected[5][5])
	}
}
