package normalize

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/asteria-studio/normalize-core/internal/constants"
	"github.com/asteria-studio/normalize-core/internal/numeric"
	"github.com/asteria-studio/normalize-core/internal/page"
	"github.com/asteria-studio/normalize-core/internal/pageimg"
)

// Normalize runs the full normalization pipeline for one page and writes its
// final raster to opts.OutputDir. It returns one Result per call: callers
// (the orchestrator) isolate any error into a per-page failure rather than
// aborting the run.
func Normalize(p page.Page, bounds page.BoundsEstimate, opts Options) (*Result, error) {
	src, err := loadImage(p.OriginalPath)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: load source: %w", p.ID, err)
	}

	metadataDpi := 0.0
	targetDpi := 0.0
	if opts.TargetDimensionsMm[0] > 0 && opts.TargetDimensionsPx[0] > 0 {
		targetDpi = float64(opts.TargetDimensionsPx[0]) / opts.TargetDimensionsMm[0] * constants.MillimetersPerInch
	}
	physicalMm, dpi, dpiSource := inferPhysicalSize(bounds.WidthPx, bounds.HeightPx, metadataDpi, opts.TargetDimensionsMm, targetDpi, fallback(opts.FallbackDpi))

	_, gray := buildPreview(src)

	initial := estimateSkew(gray)
	current := src
	appliedAngle := 0.0
	deskewApplied := false
	deskewSkipReason := ""

	if gate := opts.ConfidenceGate.DeskewMin; gate != nil && initial.Confidence < *gate {
		deskewSkipReason = "deskew-low-confidence"
	} else {
		rotated, residual := rotateAndReestimate(current, initial.AngleDeg)
		finalAngle := initial.AngleDeg
		finalEstimate := residual
		if shouldRefine(opts.SkewRefinement, initial, residual) {
			refinedAngle := initial.AngleDeg + residual.AngleDeg
			rotated, residual = rotateAndReestimate(src, refinedAngle)
			finalAngle = refinedAngle
			finalEstimate = residual
		}
		current = rotated
		appliedAngle = finalAngle
		deskewApplied = true
		initial = finalEstimate
	}

	_, gray = buildPreview(current)
	w, h := len(gray), len(gray[0])

	borderMean, borderStd := borderStats(gray)

	bg := backgroundField(gray)
	shadow := estimateShadow(gray)
	edgeMag := pageimg.SobelMagnitude(gray)
	spineShadow := spineShadowScore(shadow, edgeMag)
	shadingConf := shadingConfidence(shadow.Confidence, spineShadow, borderStd)

	shadingModel := ShadingModel{Method: "background-field-gain", Confidence: shadingConf}
	correctedGray := gray
	shadingGateOK := opts.ConfidenceGate.ShadingMin == nil || shadingConf >= *opts.ConfidenceGate.ShadingMin
	if opts.Shading.Enabled && shadingConf >= opts.Shading.ConfidenceFloor && shadingGateOK {
		candidate := applyShadingGain(gray, bg, borderMean, opts.Shading.MaxHighlightShift)
		_, correctedStd := borderStats(candidate)
		residual := 1.0
		if borderStd > 0 {
			residual = correctedStd / borderStd
		}
		shadingModel.Residual = residual
		if residual <= 1+opts.Shading.MaxResidualIncrease {
			shadingModel.Applied = true
			correctedGray = candidate
		}
	}

	bias := opts.IntensityBias
	edgeScale := opts.EdgeScale
	if edgeScale <= 0 {
		edgeScale = constants.EdgeScaleDefault
	}
	crop := unionMaskAndEdge(correctedGray, borderMean, borderStd, bias, edgeScale, bounds.ContentBounds)

	maskBox := crop.Box
	trimmedBox := shadowSideTrim(maskBox, shadow, fallbackScale(opts.ShadowTrimScale), w, h)

	targetAspect := 0.0
	if opts.TargetDimensionsMm[0] > 0 && opts.TargetDimensionsMm[1] > 0 {
		targetAspect = opts.TargetDimensionsMm[0] / opts.TargetDimensionsMm[1]
	}
	maxDrift := opts.MaxAspectRatioDrift
	if maxDrift <= 0 {
		maxDrift = 0.08
	}
	paddedBox, aspectTooHigh := padAndAlignAspect(trimmedBox, w, h, bounds.BleedPx, bounds.TrimPx, opts.AdaptivePaddingPx, targetAspect, maxDrift)

	finalBox := paddedBox
	bookSnapApplied := false
	if opts.BookPriors.Model != nil {
		finalBox, bookSnapApplied = bookPriorSnap(paddedBox, maskBox, opts.BookPriors.Model, opts.BookPriors.MaxTrimDriftPx, opts.BookPriors.MinConfidence)
	}

	maskCoverage := boxCoverage(maskBox, w, h)
	plan := planMorphology(borderStd, shadow.Present, maskCoverage)

	baseline := computeBaseline(correctedGray)
	columns := computeColumns(correctedGray)

	targetPx := opts.TargetDimensionsPx
	if targetPx[0] <= 0 || targetPx[1] <= 0 {
		targetPx = [2]int{finalBox[2] - finalBox[0] + 1, finalBox[3] - finalBox[1] + 1}
	}

	finalImg := cropAndResize(current, w, h, finalBox, targetPx[0], targetPx[1])
	finalImg = applyMorphology(finalImg, plan).(*image.NRGBA)

	outputPath, err := writeFinalRaster(finalImg, opts.OutputDir, p.ID, dpi)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: write raster: %w", p.ID, err)
	}

	result := &Result{
		PageID:         p.ID,
		OutputPath:     outputPath,
		CropBox:        finalBox,
		MaskBox:        maskBox,
		PhysicalSizeMm: physicalMm,
		Dpi:            dpi,
		DpiSource:      dpiSource,
		SkewAngleDeg:   appliedAngle,
		Shadow:         shadow,
		Shading:        shadingModel,
		Warp:           WarpDescriptor{Method: "rotate", ResidualAngle: initial.AngleDeg},
		Corrections: Corrections{
			DeskewApplied:       deskewApplied,
			DeskewSkippedReason: deskewSkipReason,
			EdgeFallbackApplied: crop.EdgeFallbackApplied,
			EdgeAnchorApplied:   crop.EdgeAnchorApplied,
			AspectDriftTooHigh:  aspectTooHigh,
			BookSnapApplied:     bookSnapApplied,
			MorphologyPlan:      plan,
			Baseline:            baseline,
			Columns:             columns,
		},
		Stats: Stats{
			BorderMean:           borderMean,
			BorderStd:            borderStd,
			MaskCoverage:         maskCoverage,
			SkewConfidence:       initial.Confidence,
			ShadowScore:          spineShadow * 100,
			BaselineConsistency:  baseline.Consistency,
			ColumnCount:          columns.Count,
			IlluminationResidual: shadingModel.Residual,
		},
	}

	if opts.GeneratePreviews {
		previewDir := opts.PreviewDir
		if previewDir == "" {
			previewDir = filepath.Join(opts.OutputDir, "..", "previews")
		}
		if prev, err := writePreviewImage(src, previewDir, p.ID, "source"); err == nil {
			result.Previews = append(result.Previews, prev)
		}
		if prev, err := writePreviewImage(finalImg, previewDir, p.ID, "normalized"); err == nil {
			result.Previews = append(result.Previews, prev)
		}
	}

	return result, nil
}

// writePreviewImage downscales img to at most constants.PreviewMaxDimension
// on its longest side and writes it as runs/<runId>/previews/<pageId>-<kind>.png.
func writePreviewImage(img image.Image, dir, pageID, kind string) (Preview, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Preview{}, err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	maxDim := constants.PreviewMaxDimension
	if w > maxDim || h > maxDim {
		scale := float64(maxDim) / float64(maxInt(w, h))
		nw, nh := int(float64(w)*scale), int(float64(h)*scale)
		if nw < 1 {
			nw = 1
		}
		if nh < 1 {
			nh = 1
		}
		img = pageimg.Resize(img, nw, nh)
		w, h = nw, nh
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(pngCompressionLevel6)); err != nil {
		return Preview{}, err
	}

	path := filepath.Join(dir, pageID+"-"+kind+".png")
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return Preview{}, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return Preview{}, err
	}
	return Preview{Kind: kind, Path: path, Width: w, Height: h}, nil
}

func fallback(v float64) float64 {
	if v <= 0 {
		return constants.DefaultFallbackDpi
	}
	return v
}

func fallbackScale(v float64) float64 {
	if v <= 0 {
		return 1.0
	}
	return v
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// borderStats computes the mean and standard deviation over the outermost
// max(1, 5% of min(W,H)) pixel ring.
func borderStats(gray [][]float64) (mean, std float64) {
	w := len(gray)
	if w == 0 {
		return 0, 0
	}
	h := len(gray[0])
	ring := maxInt(1, int(constants.BorderStatsMinFraction*float64(minInt(w, h))))

	var samples []float64
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			if x < ring || x >= w-ring || y < ring || y >= h-ring {
				samples = append(samples, gray[x][y])
			}
		}
	}
	return numeric.Mean(samples), numeric.StdDev(samples)
}

// cropAndResize extracts box from an image whose preview dimensions were
// (previewW, previewH), scaling box coordinates back to src's native
// resolution before cropping, then resizes (non-uniformly, if needed) to
// (targetW, targetH).
func cropAndResize(src image.Image, previewW, previewH int, box page.Box, targetW, targetH int) *image.NRGBA {
	b := src.Bounds()
	scaleX := float64(b.Dx()) / float64(previewW)
	scaleY := float64(b.Dy()) / float64(previewH)

	rect := image.Rect(
		int(float64(box[0])*scaleX),
		int(float64(box[1])*scaleY),
		int(float64(box[2]+1)*scaleX),
		int(float64(box[3]+1)*scaleY),
	).Intersect(b)

	cropped := imaging.Crop(src, rect)
	if targetW <= 0 || targetH <= 0 {
		return imaging.Clone(cropped)
	}
	return imaging.Resize(cropped, targetW, targetH, imaging.Lanczos)
}

func writeFinalRaster(img image.Image, outputDir, pageID string, dpi float64) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(pngCompressionLevel6)); err != nil {
		return "", err
	}
	finalBytes := embedDpi(buf.Bytes(), dpi)

	finalPath := filepath.Join(outputDir, pageID+".png")
	tmpPath := finalPath + ".tmp"
	if err := os.WriteFile(tmpPath, finalBytes, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", err
	}
	return finalPath, nil
}

const pngCompressionLevel6 = 6
