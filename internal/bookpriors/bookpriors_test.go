package bookpriors

import (
	"image"
	"image/color"
	"testing"

	"github.com/asteria-studio/normalize-core/internal/normalize"
	"github.com/asteria-studio/normalize-core/internal/page"
)

func headerPage(w, h int, headerDark bool) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			v := uint8(250)
			inHeaderBand := float64(y) >= 0.02*float64(h) && float64(y) < 0.14*float64(h)
			if inHeaderBand && headerDark {
				v = 40
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestBuild_ErrorsOnEmptySamples(t *testing.T) {
	_, err := Build(nil, func(string) (image.Image, error) { return nil, nil }, 10)
	if err == nil {
		t.Fatal("expected error for empty sample set")
	}
}

func TestBuild_ComputesMedianTrimAndContentBoxes(t *testing.T) {
	boxes := []page.Box{{10, 10, 90, 90}, {12, 8, 92, 88}, {11, 9, 91, 89}}
	samples := make([]Sample, len(boxes))
	images := map[string]image.Image{}
	for i, b := range boxes {
		path := "page" + string(rune('0'+i)) + ".png"
		images[path] = headerPage(200, 300, true)
		samples[i] = Sample{Result: &normalize.Result{
			PageID:     path,
			OutputPath: path,
			CropBox:    b,
			MaskBox:    b,
		}}
	}
	loader := func(p string) (image.Image, error) { return images[p], nil }

	model, err := Build(samples, loader, 3)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if model.TrimBoxPx[0] != 11 {
		t.Fatalf("expected median left edge 11, got %v", model.TrimBoxPx[0])
	}
	if model.SampleCount != 3 {
		t.Fatalf("expected sample count 3, got %d", model.SampleCount)
	}
}

func TestBuild_DetectsRecurringRunningHead(t *testing.T) {
	var samples []Sample
	images := map[string]image.Image{}
	for i := 0; i < 5; i++ {
		path := "head" + string(rune('a'+i)) + ".png"
		images[path] = headerPage(180, 260, true)
		samples = append(samples, Sample{Result: &normalize.Result{
			PageID:     path,
			OutputPath: path,
			CropBox:    page.Box{0, 0, 179, 259},
			MaskBox:    page.Box{5, 5, 174, 254},
		}})
	}
	loader := func(p string) (image.Image, error) { return images[p], nil }

	model, err := Build(samples, loader, 5)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(model.RunningHeads) == 0 {
		t.Fatal("expected at least one recurring running-head template")
	}
}

func TestBuild_MixedHeaderBandsBuildsWithoutError(t *testing.T) {
	var samples []Sample
	images := map[string]image.Image{}
	for i := 0; i < 5; i++ {
		path := "varied" + string(rune('a'+i)) + ".png"
		images[path] = headerPage(180, 260, i%2 == 0)
		samples = append(samples, Sample{Result: &normalize.Result{
			PageID:     path,
			OutputPath: path,
			CropBox:    page.Box{0, 0, 179, 259},
			MaskBox:    page.Box{5, 5, 174, 254},
		}})
	}
	loader := func(p string) (image.Image, error) { return images[p], nil }

	model, err := Build(samples, loader, 5)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	// 3 "dark" and 2 "light" header bands. Each band is uniform across its
	// width, and the difference hash only compares horizontal neighbours, so
	// both kinds hash alike; this only asserts that Build succeeds on the
	// mixed sample.
	_ = model
}

func TestAsNormalizeModel_NilModelReturnsNil(t *testing.T) {
	var m *Model
	if got := m.AsNormalizeModel(0.9); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestAsNormalizeModel_NarrowsToTrimAndContentBoxes(t *testing.T) {
	m := &Model{TrimBoxPx: page.Box{1, 2, 3, 4}, ContentBoxPx: page.Box{5, 6, 7, 8}}
	got := m.AsNormalizeModel(0.8)
	if got.TrimBoxPx != m.TrimBoxPx || got.ContentBoxPx != m.ContentBoxPx {
		t.Fatalf("expected boxes to carry through unchanged, got %+v", got)
	}
	if got.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %v", got.Confidence)
	}
}
