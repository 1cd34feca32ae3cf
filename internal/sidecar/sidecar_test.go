package sidecar

import (
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/asteria-studio/normalize-core/internal/bookpriors"
	"github.com/asteria-studio/normalize-core/internal/layout"
	"github.com/asteria-studio/normalize-core/internal/normalize"
	"github.com/asteria-studio/normalize-core/internal/page"
)

func TestWriteJSON_WritesReadableAtomicFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.json")

	type payload struct {
		A int `json:"a"`
	}
	if err := WriteJSON(path, payload{A: 7}); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
	var got payload
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("expected valid JSON, got error: %v", err)
	}
	if got.A != 7 {
		t.Fatalf("expected A=7, got %d", got.A)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("expected temp file to be removed after rename")
	}
}

func TestFromResult_AssemblesExpectedFields(t *testing.T) {
	p := page.Page{ID: "page001", OriginalPath: "/in/page001.jpg", Checksum: "abc"}
	r := &normalize.Result{
		PageID:         "page001",
		CropBox:        page.Box{1, 2, 3, 4},
		MaskBox:        page.Box{5, 6, 7, 8},
		PhysicalSizeMm: [2]float64{210, 297},
		Dpi:            300,
		DpiSource:      normalize.DpiMetadata,
		SkewAngleDeg:   0.4,
	}
	cls := layout.Classification{Profile: layout.ProfileBody, Confidence: 0.9}

	sc := FromResult(BuildInput{Page: p, Result: r, Classification: cls, ProcessingMs: 120})

	if sc.PageID != "page001" {
		t.Fatalf("expected pageId page001, got %s", sc.PageID)
	}
	if sc.Dimensions.Width != 210 || sc.Dimensions.Height != 297 {
		t.Fatalf("unexpected dimensions: %+v", sc.Dimensions)
	}
	if sc.Normalization.CropBox != r.CropBox {
		t.Fatalf("expected crop box to carry through, got %v", sc.Normalization.CropBox)
	}
	if sc.Normalization.Shading != nil {
		t.Fatalf("expected nil shading block when Shading.Method is empty, got %+v", sc.Normalization.Shading)
	}
	if sc.Metrics.LayoutScore != 0.9 {
		t.Fatalf("expected layout score 0.9, got %v", sc.Metrics.LayoutScore)
	}
}

func TestFromResult_IncludesShadingWhenApplied(t *testing.T) {
	r := &normalize.Result{
		Shading: normalize.ShadingModel{Method: "linear-gain", Confidence: 0.8, Applied: true},
	}
	sc := FromResult(BuildInput{Page: page.Page{ID: "p"}, Result: r})
	if sc.Normalization.Shading == nil {
		t.Fatal("expected shading block to be present")
	}
	if sc.Normalization.Shading.Method != "linear-gain" {
		t.Fatalf("unexpected shading method: %s", sc.Normalization.Shading.Method)
	}
}

func TestFromResult_OmitsBookModelWhenNotSupplied(t *testing.T) {
	sc := FromResult(BuildInput{Page: page.Page{ID: "p"}, Result: &normalize.Result{}})
	if sc.BookModel != nil {
		t.Fatalf("expected nil BookModel, got %s", sc.BookModel)
	}
}

func TestFromResult_EmbedsBookModelWhenSupplied(t *testing.T) {
	model := &bookpriors.Model{SampleCount: 12, TrimBoxPx: page.Box{1, 2, 3, 4}}
	sc := FromResult(BuildInput{Page: page.Page{ID: "p"}, Result: &normalize.Result{}, BookModel: model})
	if sc.BookModel == nil {
		t.Fatal("expected BookModel to be embedded")
	}
	var decoded bookpriors.Model
	if err := json.Unmarshal(sc.BookModel, &decoded); err != nil {
		t.Fatalf("expected BookModel to decode back, got error: %v", err)
	}
	if decoded.SampleCount != 12 {
		t.Fatalf("expected sample count 12, got %d", decoded.SampleCount)
	}
}

func TestManifest_SortPagesOrdersByID(t *testing.T) {
	m := &Manifest{Pages: []ManifestPage{{PageID: "c"}, {PageID: "a"}, {PageID: "b"}}}
	m.SortPages()
	if m.Pages[0].PageID != "a" || m.Pages[1].PageID != "b" || m.Pages[2].PageID != "c" {
		t.Fatalf("expected sorted order, got %+v", m.Pages)
	}
}

func TestUpsertRunRecord_AppendsThenReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run-index.json")

	if err := UpsertRunRecord(path, RunRecord{RunID: "run-1", Status: "running"}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := UpsertRunRecord(path, RunRecord{RunID: "run-1", Status: "completed"}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected run-index file: %v", err)
	}
	var idx RunIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		t.Fatalf("expected valid JSON: %v", err)
	}
	if len(idx.Runs) != 1 {
		t.Fatalf("expected single run entry after replace, got %d", len(idx.Runs))
	}
	if idx.Runs[0].Status != "completed" {
		t.Fatalf("expected status completed, got %s", idx.Runs[0].Status)
	}
}

func TestRenderOverlay_StrokesElementAndGutterBand(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	for x := 0; x < 40; x++ {
		for y := 0; y < 40; y++ {
			base.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	elements := []Element{{Type: "text_block", Bbox: page.Box{5, 5, 20, 20}}}
	gutter := page.Box{25, 0, 30, 39}

	data, err := RenderOverlay(base, elements, &gutter)
	if err != nil {
		t.Fatalf("RenderOverlay returned error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty PNG bytes")
	}
}
