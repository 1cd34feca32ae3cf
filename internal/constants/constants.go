// Package constants provides shared default values used across the
// normalization pipeline. Centralizing these values ensures consistency and
// makes them easier to tune from one place.
package constants

// Concurrency and scheduling
const (
	// DefaultConcurrency is the default worker pool size for the first and
	// second normalization passes.
	DefaultConcurrency = 6

	// BookPriorsMaxPool caps the book-priors sample pass pool at
	// min(4, concurrency).
	BookPriorsMaxPool = 4

	// DefaultRemoteLayoutTimeoutMs is the per-request timeout for the
	// optional remote layout collaborator.
	DefaultRemoteLayoutTimeoutMs = 5000
)

// Scanner / analyzer
const (
	// DefaultBleedMm is the default bleed margin absorbed beyond the trim box.
	DefaultBleedMm = 3.0

	// DefaultFallbackDpi is used when no physical size can be inferred.
	DefaultFallbackDpi = 300.0

	// MillimetersPerInch converts inches to millimeters.
	MillimetersPerInch = 25.4
)

// Spread splitter
const (
	SpreadMinAspectRatio      = 1.25
	SpreadPreviewMaxWidth     = 320
	SpreadBandLo              = 0.40
	SpreadBandHi              = 0.60
	SpreadMinDarkness         = 10.0
	SpreadDefaultConfidence   = 0.7
	SpreadMinMarginPx         = 8
	SpreadMarginGutterFactor  = 0.3
)

// Normalizer
const (
	PreviewMaxDimension = 1600

	SkewBuckets          = 181 // -90..90 degrees inclusive
	SkewMaxAbsDeg        = 8.0
	SkewSmoothingRadius  = 3
	SkewResidualAngleMax = 0.3 // max residual angle tolerated after forced refinement

	BorderStatsMinFraction = 0.05 // 5% of min(W,H)

	EdgeScaleDefault = 1.15

	DefaultAdaptivePaddingMinPx = 12
	DefaultAdaptivePaddingFrac  = 0.004 // 0.4% of min(W,H)
)

// Quality gate thresholds
const (
	QGLowMaskCoverage       = 0.65
	QGMaskDropRatio         = 0.7
	QGLowSkewConfidence     = 0.35
	QGShadowHeavyScore      = 28.0
	QGNoisyBackgroundStd    = 32.0
	QGShadingResidualWorse  = 1.12
	QGLowShadingConfidence  = 0.45
	QGBookIntersectionRatio = 0.6
	QGResidualSkewDeg       = 0.15
	QGBaselineLowSkewConf   = 0.5
	QGBaselineHighStd       = 20.0
	QGLowBaselineConsist    = 0.55
	QGSpreadLowConfidence   = 0.7
)

// Book priors
const (
	BookPriorsDefaultSampleCount = 40
	BookPriorsMinRecurrence      = 2
	BookPriorsRecurrenceFraction = 0.2
	BookPriorsOrnamentMinVar     = 120.0
)

// Orchestrator / second pass
const (
	// SecondPassAdaptivePaddingBonusPx is added to the first pass's adaptive
	// padding before the second, more permissive pass.
	SecondPassAdaptivePaddingBonusPx = 6.0

	SecondPassEdgeScaleFactor = 0.85
	SecondPassEdgeScaleFloor  = 0.7

	SecondPassIntensityBiasDelta = -0.15
	SecondPassIntensityBiasFloor = -0.1

	SecondPassAspectDriftBonus = 0.05
	SecondPassAspectDriftCap   = 0.20

	SecondPassBookPriorsMaxTrimDriftPx    = 18.0
	SecondPassBookPriorsMaxContentDriftPx = 24.0
	SecondPassBookPriorsMinConfidence     = 0.6

	AppVersion = "1.0.0"
)

// Layout elements
const (
	// TextBlockMarginFraction insets the local text_block estimate from the
	// page_bounds box by this fraction of the shorter side on every edge,
	// approximating the type area within the trimmed page.
	TextBlockMarginFraction = 0.06
)

// Overlay colors (hex, #rrggbb) per layout element type, plus the spread
// gutter band.
const (
	OverlayColorPageBounds   = "#3b82f6"
	OverlayColorTextBlock    = "#22c55e"
	OverlayColorTitle        = "#ec4899"
	OverlayColorRunningHead  = "#f97316"
	OverlayColorFolio        = "#a855f7"
	OverlayColorOrnament     = "#14b8a6"
	OverlayColorDropCap      = "#facc15"
	OverlayColorFootnote     = "#0ea5e9"
	OverlayColorMarginalia   = "#94a3b8"
	OverlayColorGutterBand   = "#eab308"
)
