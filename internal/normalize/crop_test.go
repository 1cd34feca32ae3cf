package normalize

import (
	"testing"

	"github.com/asteria-studio/normalize-core/internal/page"
)

func pageWithBorder(w, h, borderPx int, fg, bg float64) [][]float64 {
	gray := make([][]float64, w)
	for x := range gray {
		gray[x] = make([]float64, h)
		for y := range gray[x] {
			if x < borderPx || x >= w-borderPx || y < borderPx || y >= h-borderPx {
				gray[x][y] = bg
			} else {
				gray[x][y] = fg
			}
		}
	}
	return gray
}

func TestIntensityMask_FindsInnerContentBox(t *testing.T) {
	gray := pageWithBorder(100, 100, 10, 40, 250)
	box, coverage := intensityMask(gray, 250, 2, 0)
	if box[0] < 5 || box[0] > 15 {
		t.Fatalf("expected left edge near border width, got %v", box[0])
	}
	if coverage <= 0 || coverage > 1 {
		t.Fatalf("expected coverage in (0,1], got %v", coverage)
	}
}

func TestUnionMaskAndEdge_FlatImageKeepsFullCoverageWithoutEscalating(t *testing.T) {
	gray := flatGray(100, 100, 250)
	contentBounds := page.Box{10, 10, 89, 89}
	result := unionMaskAndEdge(gray, 250, 1, 0, 1.15, contentBounds)
	if result.EdgeFallbackApplied || result.EdgeAnchorApplied {
		t.Fatalf("expected no escalation on a fully flat page, got %+v", result)
	}
	if result.CombinedCoverage < 0.99 {
		t.Fatalf("expected near-full coverage when no axis reduction found content, got %v", result.CombinedCoverage)
	}
}

func TestUnionMaskAndEdge_SmallContentRegionEscalatesToContentBounds(t *testing.T) {
	w, h := 200, 200
	gray := flatGray(w, h, 250)
	// A tiny dark patch far too small to anchor a confident crop on its own.
	for x := 95; x < 105; x++ {
		for y := 95; y < 105; y++ {
			gray[x][y] = 230
		}
	}
	contentBounds := page.Box{10, 10, 189, 189}
	result := unionMaskAndEdge(gray, 250, 1, 0, 1.15, contentBounds)
	if !result.EdgeAnchorApplied {
		t.Fatalf("expected escalation to reach the anchor-fallback stage, got %+v", result)
	}
	if result.Box != contentBounds {
		t.Fatalf("expected fallback to content bounds %v, got %v", contentBounds, result.Box)
	}
}

func TestShadowSideTrim_TrimsLeftSide(t *testing.T) {
	box := page.Box{0, 0, 99, 99}
	shadow := ShadowDescriptor{Present: true, Side: "left", WidthPx: 10, Confidence: 0.9}
	trimmed := shadowSideTrim(box, shadow, 1.0, 100, 100)
	if trimmed[0] <= box[0] {
		t.Fatalf("expected left edge to move inward, got %v", trimmed[0])
	}
}

func TestShadowSideTrim_NoOpWhenAbsent(t *testing.T) {
	box := page.Box{0, 0, 99, 99}
	shadow := ShadowDescriptor{Present: false}
	trimmed := shadowSideTrim(box, shadow, 1.0, 100, 100)
	if trimmed != box {
		t.Fatalf("expected no-op when shadow absent, got %v", trimmed)
	}
}

func TestPadAndAlignAspect_FlagsExcessiveDrift(t *testing.T) {
	box := page.Box{10, 10, 90, 89}
	_, tooHigh := padAndAlignAspect(box, 100, 100, 0, 0, 0, 5.0, 0.05)
	if !tooHigh {
		t.Fatal("expected aspect drift to be flagged as too high")
	}
}

func TestPadAndAlignAspect_AlignsWithinTolerance(t *testing.T) {
	box := page.Box{10, 10, 89, 88}
	targetAspect := 80.0 / 80.0
	result, tooHigh := padAndAlignAspect(box, 100, 100, 0, 0, 0, targetAspect, 0.5)
	if tooHigh {
		t.Fatal("expected drift within tolerance")
	}
	bw := float64(result[2] - result[0] + 1)
	bh := float64(result[3] - result[1] + 1)
	if bw <= 0 || bh <= 0 {
		t.Fatalf("expected positive box dims, got %v", result)
	}
}

func TestBookPriorSnap_SkipsWhenConfidenceTooLow(t *testing.T) {
	box := page.Box{10, 10, 90, 90}
	maskBox := page.Box{15, 15, 85, 85}
	model := &BookModel{TrimBoxPx: page.Box{8, 8, 92, 92}, Confidence: 0.1}
	result, applied := bookPriorSnap(box, maskBox, model, 20, 0.6)
	if applied {
		t.Fatal("expected snap to be skipped for low-confidence model")
	}
	if result != box {
		t.Fatalf("expected box unchanged, got %v", result)
	}
}

func TestBookPriorSnap_SnapsWhenContained(t *testing.T) {
	box := page.Box{10, 10, 90, 90}
	maskBox := page.Box{15, 15, 85, 85}
	model := &BookModel{TrimBoxPx: page.Box{8, 8, 92, 92}, Confidence: 0.9}
	result, applied := bookPriorSnap(box, maskBox, model, 20, 0.6)
	if !applied {
		t.Fatal("expected snap to apply")
	}
	if result != model.TrimBoxPx {
		t.Fatalf("expected snapped box to equal prior trim box, got %v", result)
	}
}
