package analyzer

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/asteria-studio/normalize-core/internal/page"
	"github.com/asteria-studio/normalize-core/internal/scanner"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Gray{Y: 200})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
}

func TestAnalyze_ProbesPNGDimensions(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 600, 800)

	cfg := &scanner.PipelineRunConfig{
		Pages: []page.Page{{ID: "a", OriginalPath: filepath.Join(dir, "a.png")}},
	}
	summary, err := Analyze(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.Estimates) != 1 {
		t.Fatalf("expected 1 estimate, got %d", len(summary.Estimates))
	}
	est := summary.Estimates[0]
	if !est.Probed {
		t.Error("expected probed=true for decodable PNG")
	}
	if est.WidthPx != 600 || est.HeightPx != 800 {
		t.Errorf("expected 600x800, got %dx%d", est.WidthPx, est.HeightPx)
	}
	if !est.Valid() {
		t.Error("expected contentBounds <= pageBounds <= extent invariant to hold")
	}
}

func TestAnalyze_ProbesJPEGDimensionsViaSOFMarker(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, filepath.Join(dir, "b.jpg"), 400, 300)

	cfg := &scanner.PipelineRunConfig{
		Pages: []page.Page{{ID: "b", OriginalPath: filepath.Join(dir, "b.jpg")}},
	}
	summary, err := Analyze(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	est := summary.Estimates[0]
	if !est.Probed {
		t.Error("expected probed=true for decodable JPEG")
	}
	if est.WidthPx != 400 || est.HeightPx != 300 {
		t.Errorf("expected 400x300, got %dx%d", est.WidthPx, est.HeightPx)
	}
}

func TestAnalyze_FallsBackOnUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(badPath, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &scanner.PipelineRunConfig{
		Pages:              []page.Page{{ID: "broken", OriginalPath: badPath}},
		TargetDimensionsMm: [2]float64{210, 297},
		TargetDpi:          300,
	}
	summary, err := Analyze(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	est := summary.Estimates[0]
	if est.Probed {
		t.Error("expected probed=false for unreadable file")
	}
	if est.WidthPx != summary.TargetDimensionsPx[0] || est.HeightPx != summary.TargetDimensionsPx[1] {
		t.Errorf("expected fallback to target px dims, got %dx%d", est.WidthPx, est.HeightPx)
	}
}

func TestAnalyze_EmptyConfigErrors(t *testing.T) {
	if _, err := Analyze(&scanner.PipelineRunConfig{}); err == nil {
		t.Fatal("expected error for empty run config")
	}
}

func TestAnalyze_DimensionConfidenceFromStableCorpus(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 2550, 3300)
	writePNG(t, filepath.Join(dir, "b.png"), 2550, 3300)
	writePNG(t, filepath.Join(dir, "c.png"), 2550, 3300)

	cfg := &scanner.PipelineRunConfig{
		TargetDpi: 300,
		Pages: []page.Page{
			{ID: "a", OriginalPath: filepath.Join(dir, "a.png")},
			{ID: "b", OriginalPath: filepath.Join(dir, "b.png")},
			{ID: "c", OriginalPath: filepath.Join(dir, "c.png")},
		},
	}
	summary, err := Analyze(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.DimensionConfidence < 0.95 {
		t.Errorf("expected high confidence for identical dims, got %f", summary.DimensionConfidence)
	}
}
