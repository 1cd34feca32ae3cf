// Package sidecar serializes per-page sidecars, the run manifest, report,
// and review queue to JSON, and renders overlay PNGs. Writes are atomic
// (temp file + rename) and use deterministic key order so two runs over
// identical inputs produce byte-identical files modulo timestamps.
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/asteria-studio/normalize-core/internal/bookpriors"
	"github.com/asteria-studio/normalize-core/internal/layout"
	"github.com/asteria-studio/normalize-core/internal/normalize"
	"github.com/asteria-studio/normalize-core/internal/page"
)

const SchemaVersion = 1

// Source records the original file this sidecar was derived from.
type Source struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum,omitempty"`
}

// Dimensions is a physical page size.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
}

// Warp records the deskew method and residual angle.
type Warp struct {
	Method   string  `json:"method"`
	Residual float64 `json:"residual"`
}

// Shadow mirrors normalize.ShadowDescriptor for sidecar serialization.
type Shadow struct {
	Present    bool    `json:"present"`
	Side       string  `json:"side"`
	WidthPx    int     `json:"widthPx"`
	Confidence float64 `json:"confidence"`
	Darkness   float64 `json:"darkness"`
}

// Shading mirrors normalize.ShadingModel.
type Shading struct {
	Method     string  `json:"method"`
	Confidence float64 `json:"confidence"`
	Residual   float64 `json:"residual"`
	Applied    bool    `json:"applied"`
}

// BaselineGrid is the optional guides.baselineGrid block.
type BaselineGrid struct {
	SpacingPx  float64 `json:"spacingPx,omitempty"`
	OffsetPx   float64 `json:"offsetPx,omitempty"`
	AngleDeg   float64 `json:"angleDeg,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Guides is the sidecar's optional geometric guides block.
type Guides struct {
	BaselineGrid *BaselineGrid `json:"baselineGrid,omitempty"`
}

// Normalization is the sidecar's normalization block.
type Normalization struct {
	CropBox   page.Box `json:"cropBox"`
	PageMask  page.Box `json:"pageMask"`
	DpiSource string   `json:"dpiSource"`
	SkewAngle float64  `json:"skewAngle"`
	Warp      Warp     `json:"warp"`
	Shadow    Shadow   `json:"shadow"`
	Shading   *Shading `json:"shading,omitempty"`
	Guides    *Guides  `json:"guides,omitempty"`
}

// Element mirrors a LayoutElement for serialization.
type Element struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Bbox       page.Box `json:"bbox"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
	Flags      []string `json:"flags,omitempty"`
	Text       string   `json:"text,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// BaselineStats is the sidecar metrics.baseline block.
type BaselineStats struct {
	MedianSpacingPx float64 `json:"medianSpacingPx,omitempty"`
	SpacingMAD      float64 `json:"spacingMAD,omitempty"`
	Straightness    float64 `json:"lineStraightnessResidual"`
	Confidence      float64 `json:"confidence"`
}

// Metrics is the sidecar metrics block.
type Metrics struct {
	ProcessingMs         int64         `json:"processingMs"`
	DeskewConfidence     float64       `json:"deskewConfidence"`
	ShadowScore          float64       `json:"shadowScore"`
	MaskCoverage         float64       `json:"maskCoverage"`
	BackgroundMean       float64       `json:"backgroundMean"`
	BackgroundStd        float64       `json:"backgroundStd"`
	IlluminationResidual float64       `json:"illuminationResidual,omitempty"`
	SpineShadowScore     float64       `json:"spineShadowScore,omitempty"`
	LayoutScore          float64       `json:"layoutScore"`
	Baseline             BaselineStats `json:"baseline"`
}

// Sidecar is the persisted per-page record.
type Sidecar struct {
	Version       int             `json:"version"`
	PageID        string          `json:"pageId"`
	Source        Source          `json:"source"`
	Dimensions    Dimensions      `json:"dimensions"`
	Dpi           float64         `json:"dpi"`
	Normalization Normalization   `json:"normalization"`
	Elements      []Element       `json:"elements"`
	Metrics       Metrics         `json:"metrics"`
	BookModel     json.RawMessage `json:"bookModel,omitempty"`
}

// BuildInput bundles the data FromResult needs to assemble a Sidecar.
type BuildInput struct {
	Page          page.Page
	Result        *normalize.Result
	Classification layout.Classification
	ProcessingMs  int64
	Elements      []Element
	BookModel     *bookpriors.Model // embedded only when book-priors is enabled for the run
}

// FromResult assembles a Sidecar from one page's normalization result.
func FromResult(in BuildInput) Sidecar {
	r := in.Result
	sc := Sidecar{
		Version: SchemaVersion,
		PageID:  in.Page.ID,
		Source: Source{
			Path:     in.Page.OriginalPath,
			Checksum: in.Page.Checksum,
		},
		Dimensions: Dimensions{
			Width:  r.PhysicalSizeMm[0],
			Height: r.PhysicalSizeMm[1],
			Unit:   "mm",
		},
		Dpi: r.Dpi,
		Normalization: Normalization{
			CropBox:   r.CropBox,
			PageMask:  r.MaskBox,
			DpiSource: string(r.DpiSource),
			SkewAngle: r.SkewAngleDeg,
			Warp: Warp{
				Method:   r.Warp.Method,
				Residual: r.Warp.ResidualAngle,
			},
			Shadow: Shadow{
				Present:    r.Shadow.Present,
				Side:       r.Shadow.Side,
				WidthPx:    r.Shadow.WidthPx,
				Confidence: r.Shadow.Confidence,
				Darkness:   r.Shadow.Darkness,
			},
			Shading: shadingBlock(r),
		},
		Elements: in.Elements,
		Metrics: Metrics{
			ProcessingMs:         in.ProcessingMs,
			DeskewConfidence:     r.Stats.SkewConfidence,
			ShadowScore:          r.Stats.ShadowScore,
			MaskCoverage:         r.Stats.MaskCoverage,
			BackgroundMean:       r.Stats.BorderMean,
			BackgroundStd:        r.Stats.BorderStd,
			IlluminationResidual: r.Stats.IlluminationResidual,
			LayoutScore:          in.Classification.Confidence,
			Baseline: BaselineStats{
				MedianSpacingPx: r.Corrections.Baseline.MedianSpacing,
				SpacingMAD:      r.Corrections.Baseline.MADSpacing,
				Straightness:    r.SkewAngleDeg,
				Confidence:      r.Corrections.Baseline.Confidence,
			},
		},
	}
	if in.BookModel != nil {
		if raw, err := json.Marshal(in.BookModel); err == nil {
			sc.BookModel = raw
		}
	}
	return sc
}

func shadingBlock(r *normalize.Result) *Shading {
	if r.Shading.Method == "" {
		return nil
	}
	return &Shading{
		Method:     r.Shading.Method,
		Confidence: r.Shading.Confidence,
		Residual:   r.Shading.Residual,
		Applied:    r.Shading.Applied,
	}
}

// WriteJSON marshals v with deterministic 2-space indentation and writes it
// atomically (temp file + rename) with LF line endings.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("sidecar: marshal %s: %w", path, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sidecar: mkdir for %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("sidecar: write temp for %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("sidecar: rename into place %s: %w", path, err)
	}
	return nil
}
