package normalize

import "testing"

func TestInferPhysicalSize_MetadataDpiWins(t *testing.T) {
	mm, dpi, source := inferPhysicalSize(2480, 3508, 300, [2]float64{}, 0, 300)
	if source != DpiMetadata {
		t.Fatalf("expected DpiMetadata source, got %v", source)
	}
	if dpi != 300 {
		t.Fatalf("expected dpi 300, got %v", dpi)
	}
	if mm[0] <= 0 || mm[1] <= 0 {
		t.Fatalf("expected positive mm, got %v", mm)
	}
}

func TestInferPhysicalSize_TargetDimensionsUsedWhenAspectMatches(t *testing.T) {
	targetMm := [2]float64{210, 297}
	targetDpi := 2480.0 / 210.0 * 25.4
	mm, dpi, source := inferPhysicalSize(2480, 3508, 0, targetMm, targetDpi, 300)
	if source != DpiInferred {
		t.Fatalf("expected DpiInferred, got %v", source)
	}
	if mm != targetMm {
		t.Fatalf("expected target mm %v, got %v", targetMm, mm)
	}
	if dpi <= 0 {
		t.Fatalf("expected positive dpi, got %v", dpi)
	}
}

func TestInferPhysicalSize_FallsBackToCommonPaperSize(t *testing.T) {
	// A4 aspect ratio (210x297), no metadata, no target.
	mm, _, source := inferPhysicalSize(2100, 2970, 0, [2]float64{}, 0, 0)
	if source != DpiInferred {
		t.Fatalf("expected DpiInferred from paper size match, got %v", source)
	}
	if mm[0] != 210 || mm[1] != 297 {
		t.Fatalf("expected A4 mm 210x297, got %v", mm)
	}
}

func TestInferPhysicalSize_UsesFallbackDpiWhenNoMatch(t *testing.T) {
	// An unusual aspect ratio that matches no common paper size.
	_, dpi, source := inferPhysicalSize(1000, 7000, 0, [2]float64{}, 0, 150)
	if source != DpiFallback {
		t.Fatalf("expected DpiFallback, got %v", source)
	}
	if dpi != 150 {
		t.Fatalf("expected fallback dpi 150, got %v", dpi)
	}
}
