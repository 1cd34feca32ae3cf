// Package normalize implements the per-page normalization engine: physical
// size inference, skew correction, shading correction, mask/edge cropping,
// padding and book-prior alignment, morphology, and final raster write.
// Raster operations are grounded on the teacher's use of
// disintegration/imaging and golang.org/x/image/draw for resize/rotate/
// encode.
package normalize

import (
	"github.com/asteria-studio/normalize-core/internal/page"
)

// DpiSource tags where a page's physical size/DPI came from.
type DpiSource string

const (
	DpiMetadata DpiSource = "metadata"
	DpiInferred DpiSource = "inferred"
	DpiFallback DpiSource = "fallback"
)

// SkewRefinementMode controls whether the engine re-measures and re-rotates
// after an initial deskew pass.
type SkewRefinementMode string

const (
	RefinementOff    SkewRefinementMode = "off"
	RefinementOn     SkewRefinementMode = "on"
	RefinementForced SkewRefinementMode = "forced"
)

// ShadingOptions controls the optional shading-correction stage.
type ShadingOptions struct {
	Enabled              bool
	MaxResidualIncrease  float64
	MaxHighlightShift    float64
	ConfidenceFloor      float64
}

// ConfidenceGate optionally withholds deskew/shading when their measured
// confidence is too low to trust.
type ConfidenceGate struct {
	DeskewMin  *float64
	ShadingMin *float64
}

// BookPriorsOptions configures the book-prior snap stage of padding/aspect
// alignment.
type BookPriorsOptions struct {
	Model             *BookModel
	MaxTrimDriftPx    float64
	MaxContentDriftPx float64
	MinConfidence     float64
}

// BookModel is the subset of book-priors state the normalizer consults: the
// median trim box used for the book-prior snap. The full model (running
// heads, folio bands, ornaments) lives in package bookpriors; normalize only
// needs the aggregate box.
type BookModel struct {
	TrimBoxPx    page.Box
	ContentBoxPx page.Box
	Confidence   float64
}

// Options configures one call to Normalize.
type Options struct {
	Priors              *BookModel
	SkewRefinement      SkewRefinementMode
	Shading             ShadingOptions
	ConfidenceGate      ConfidenceGate
	BookPriors          BookPriorsOptions
	GeneratePreviews    bool
	TargetDimensionsMm  [2]float64
	TargetDimensionsPx  [2]int
	FallbackDpi         float64
	AdaptivePaddingPx   float64
	MaxAspectRatioDrift float64
	IntensityBias       float64
	EdgeScale           float64
	ShadowTrimScale     float64
	OutputDir           string
	PreviewDir          string // used only when GeneratePreviews is set
}

// ShadowDescriptor summarizes a detected spine/gutter shadow.
type ShadowDescriptor struct {
	Present    bool
	Side       string // left|right|top|bottom|none
	WidthPx    int
	Confidence float64
	Darkness   float64
}

// ShadingModel records the shading-correction stage's inputs and outcome.
type ShadingModel struct {
	Method          string
	Confidence      float64
	Residual        float64
	Applied         bool
}

// WarpDescriptor records how (if at all) skew was corrected.
type WarpDescriptor struct {
	Method        string
	ResidualAngle float64
}

// Corrections bundles the flags and secondary results the sidecar records
// for a normalized page.
type Corrections struct {
	DeskewApplied        bool
	DeskewSkippedReason  string
	EdgeFallbackApplied  bool
	EdgeAnchorApplied    bool
	AspectDriftTooHigh   bool
	BookSnapApplied      bool
	MorphologyPlan       MorphologyPlan
	Baseline             BaselineMetrics
	Columns              ColumnMetrics
}

// Stats bundles the scalar measurements the sidecar records for a
// normalized page.
type Stats struct {
	BorderMean         float64
	BorderStd          float64
	MaskCoverage       float64
	SkewConfidence     float64
	ShadowScore        float64
	BaselineConsistency float64
	ColumnCount        int
	IlluminationResidual float64
}

// Result is the normalizer's per-page output.
type Result struct {
	PageID             string
	OutputPath         string
	CropBox            page.Box
	MaskBox            page.Box
	PhysicalSizeMm     [2]float64
	Dpi                float64
	DpiSource          DpiSource
	SkewAngleDeg       float64
	Shadow             ShadowDescriptor
	Shading            ShadingModel
	Warp               WarpDescriptor
	Corrections        Corrections
	Stats              Stats
	QualityGateReasons []string
	Previews           []Preview
}

// Preview describes one rendered preview image produced alongside a
// normalized page, written under runs/<runId>/previews/.
type Preview struct {
	Kind   string // "source" | "normalized"
	Path   string
	Width  int
	Height int
}
