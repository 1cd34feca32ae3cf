// Package spreadsplit detects a two-page spread captured as a single raster
// and splits it into left/right child pages along the gutter shadow. The
// grayscale/column-mean approach is grounded on pageimg's grayscale and
// resize helpers, themselves bilinear-scaled the way the book-priors sample
// pass downscales previews.
package spreadsplit

import (
	"image"

	"github.com/asteria-studio/normalize-core/internal/constants"
	"github.com/asteria-studio/normalize-core/internal/page"
	"github.com/asteria-studio/normalize-core/internal/pageimg"
)

// Result is the outcome of attempting to split one source page.
type Result struct {
	Split        bool
	Left         page.Page
	Right        page.Page
	Confidence   float64
	GutterStartX float64 // ratio of preview width, [0,1]
	GutterEndX   float64
}

// Detect evaluates whether src is a two-page spread and, if its confidence
// clears the threshold, returns the left/right crop boxes (in full-resolution
// pixel space) to cut the source raster along.
func Detect(src page.Page, full image.Image, threshold float64) (Result, image.Rectangle, image.Rectangle) {
	b := full.Bounds()
	w, h := b.Dx(), b.Dy()
	if threshold <= 0 {
		threshold = constants.SpreadDefaultConfidence
	}

	aspect := float64(w) / float64(h)
	if aspect < constants.SpreadMinAspectRatio {
		return Result{Split: false}, image.Rectangle{}, image.Rectangle{}
	}

	previewW := constants.SpreadPreviewMaxWidth
	if previewW > w {
		previewW = w
	}
	previewH := int(float64(h) * float64(previewW) / float64(w))
	if previewH < 1 {
		previewH = 1
	}
	preview := pageimg.Resize(full, previewW, previewH)
	gray := pageimg.ToGrayscale(preview)

	colMeans := make([]float64, previewW)
	var globalSum float64
	for x := 0; x < previewW; x++ {
		var sum float64
		for y := 0; y < previewH; y++ {
			sum += gray[x][y]
		}
		colMeans[x] = sum / float64(previewH)
		globalSum += colMeans[x]
	}
	globalMean := globalSum / float64(previewW)

	bandLo := int(constants.SpreadBandLo * float64(previewW))
	bandHi := int(constants.SpreadBandHi * float64(previewW))
	if bandHi <= bandLo {
		bandHi = bandLo + 1
	}
	minX, minMean := bandLo, colMeans[bandLo]
	for x := bandLo; x < bandHi && x < previewW; x++ {
		if colMeans[x] < minMean {
			minMean = colMeans[x]
			minX = x
		}
	}

	darkness := globalMean - minMean
	if darkness < constants.SpreadMinDarkness {
		return Result{Split: false}, image.Rectangle{}, image.Rectangle{}
	}

	threshMean := minMean + 0.5*darkness
	left := minX
	for left > 0 && colMeans[left-1] < threshMean {
		left--
	}
	right := minX
	for right < previewW-1 && colMeans[right+1] < threshMean {
		right++
	}

	var leftSum, rightSum float64
	var leftN, rightN int
	for x := 0; x < left; x++ {
		leftSum += colMeans[x]
		leftN++
	}
	for x := right + 1; x < previewW; x++ {
		rightSum += colMeans[x]
		rightN++
	}
	leftDensity := safeAvg(leftSum, leftN)
	rightDensity := safeAvg(rightSum, rightN)

	symmetry := 1.0
	if globalMean != 0 {
		symmetry = 1 - absf(leftDensity-rightDensity)/globalMean
	}
	bandCenter := (left + right) / 2
	centerDistance := absf(float64(bandCenter)-float64(previewW)/2) / (float64(previewW) / 2)

	confidence := clamp01(0.6*(darkness/35) + 0.3*symmetry + 0.1*(1-centerDistance))

	gutterWidth := right - left + 1
	margin := 8.0
	if m := constants.SpreadMarginGutterFactor * float64(gutterWidth); m > margin {
		margin = m
	}

	result := Result{
		Split:        confidence >= threshold,
		Confidence:   confidence,
		GutterStartX: float64(left) / float64(previewW),
		GutterEndX:   float64(right) / float64(previewW),
	}
	if !result.Split {
		return result, image.Rectangle{}, image.Rectangle{}
	}

	scaleX := float64(w) / float64(previewW)
	splitLeftEdge := int(float64(left)*scaleX - margin*scaleX)
	splitRightEdge := int(float64(right)*scaleX + margin*scaleX)
	if splitLeftEdge < 0 {
		splitLeftEdge = 0
	}
	if splitRightEdge > w {
		splitRightEdge = w
	}

	leftRect := image.Rect(0, 0, splitLeftEdge, h)
	rightRect := image.Rect(splitRightEdge, 0, w, h)

	result.Left = page.Page{
		ID:           src.ID + "_L",
		Filename:     src.Filename,
		OriginalPath: src.OriginalPath,
		Checksum:     src.Checksum + ":L",
	}
	result.Right = page.Page{
		ID:           src.ID + "_R",
		Filename:     src.Filename,
		OriginalPath: src.OriginalPath,
		Checksum:     src.Checksum + ":R",
	}
	return result, leftRect, rightRect
}

func safeAvg(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
