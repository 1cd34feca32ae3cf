package normalize

import (
	"math"

	"github.com/asteria-studio/normalize-core/internal/geom"
	"github.com/asteria-studio/normalize-core/internal/page"
	"github.com/asteria-studio/normalize-core/internal/pageimg"
)

// axisReduction tightens a coverage profile (column or row below-threshold
// counts) inward to the first index whose count exceeds limit from each
// side.
func axisReduction(counts []int, limit int) (lo, hi int) {
	n := len(counts)
	lo, hi = 0, n-1
	for lo < n && counts[lo] <= limit {
		lo++
	}
	for hi >= 0 && counts[hi] <= limit {
		hi--
	}
	if lo > hi {
		lo, hi = 0, n-1
	}
	return lo, hi
}

// intensityMask computes the below-threshold column/row coverage box and
// its coverage fraction.
func intensityMask(gray [][]float64, borderMean, borderStd, bias float64) (page.Box, float64) {
	w := len(gray)
	h := len(gray[0])
	threshold := math.Min(borderMean-borderStd*(0.25+bias), borderMean-3)

	colCounts := make([]int, w)
	rowCounts := make([]int, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			if gray[x][y] < threshold {
				colCounts[x]++
				rowCounts[y]++
			}
		}
	}

	colLimit := maxInt(2, int(0.008*float64(w)))
	rowLimit := maxInt(2, int(0.008*float64(h)))
	x0, x1 := axisReduction(colCounts, colLimit)
	y0, y1 := axisReduction(rowCounts, rowLimit)

	box := page.Box{x0, y0, x1, y1}
	coverage := boxCoverage(box, w, h)
	return box, coverage
}

// edgeBox computes the Sobel-magnitude-derived coverage box.
func edgeBox(gray [][]float64, edgeScale float64) (page.Box, float64) {
	w := len(gray)
	h := len(gray[0])
	mag := pageimg.SobelMagnitude(gray)

	var sum, sumSq float64
	var n int
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			sum += mag[x][y]
			sumSq += mag[x][y] * mag[x][y]
			n++
		}
	}
	mean := sum / float64(n)
	std := math.Sqrt(sumSq/float64(n) - mean*mean)
	threshold := math.Max(8, mean+std*edgeScale)

	colCounts := make([]int, w)
	rowCounts := make([]int, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			if mag[x][y] > threshold {
				colCounts[x]++
				rowCounts[y]++
			}
		}
	}

	colLimit := maxInt(2, int(0.004*float64(w)))
	rowLimit := maxInt(2, int(0.004*float64(h)))
	x0, x1 := axisReduction(colCounts, colLimit)
	y0, y1 := axisReduction(rowCounts, rowLimit)

	box := page.Box{x0, y0, x1, y1}
	coverage := boxCoverage(box, w, h)
	return box, coverage
}

func boxCoverage(b page.Box, w, h int) float64 {
	area := float64((b[2] - b[0] + 1) * (b[3] - b[1] + 1))
	total := float64(w * h)
	if total == 0 {
		return 0
	}
	return area / total
}

// cropResult bundles the outcome of the mask+edge union stage.
type cropResult struct {
	Box                  page.Box
	IntensityCoverage    float64
	CombinedCoverage     float64
	EdgeFallbackApplied  bool
	EdgeAnchorApplied    bool
}

// unionMaskAndEdge implements the mask/edge crop stage, including the
// relaxation and anchor-fallback escalation ladder.
func unionMaskAndEdge(gray [][]float64, borderMean, borderStd, bias, edgeScale float64, contentBounds page.Box) cropResult {
	w, h := len(gray), len(gray[0])

	intBox, intCoverage := intensityMask(gray, borderMean, borderStd, bias)
	edgeB, _ := edgeBox(gray, edgeScale)
	union := geom.Union(intBox, edgeB)
	combinedCoverage := boxCoverage(union, w, h)

	result := cropResult{Box: union, IntensityCoverage: intCoverage, CombinedCoverage: combinedCoverage}

	if intCoverage < 0.6 || combinedCoverage < 0.45 {
		relaxedInt, _ := intensityMask(gray, borderMean, borderStd, bias-0.2)
		relaxedEdge, _ := edgeBox(gray, edgeScale*0.85)
		union = geom.Union(relaxedInt, relaxedEdge)
		combinedCoverage = boxCoverage(union, w, h)
		result.Box = union
		result.CombinedCoverage = combinedCoverage
		result.EdgeFallbackApplied = true
	}

	if combinedCoverage < 0.5 {
		anchorEdge, _ := edgeBox(gray, edgeScale*0.6)
		union = geom.Union(result.Box, anchorEdge)
		combinedCoverage = boxCoverage(union, w, h)
		result.Box = union
		result.CombinedCoverage = combinedCoverage
		result.EdgeAnchorApplied = true
	}

	if combinedCoverage < 0.35 {
		result.Box = contentBounds
		result.CombinedCoverage = boxCoverage(contentBounds, w, h)
	}

	return result
}

// shadowSideTrim trims shadow.WidthPx-derived pixels inward from the shadow
// side, when present and confident enough.
func shadowSideTrim(box page.Box, shadow ShadowDescriptor, shadowTrimScale float64, w, h int) page.Box {
	if !shadow.Present || shadow.Confidence <= 0.25 {
		return box
	}
	trim := int(math.Round(0.75 * float64(shadow.WidthPx) * shadowTrimScale))
	switch shadow.Side {
	case "left":
		box[0] += trim
	case "right":
		box[2] -= trim
	}
	return geom.Clamp(box, bounds(w, h))
}

func bounds(w, h int) page.Box {
	return page.Box{0, 0, w - 1, h - 1}
}

// padAndAlignAspect expands box by the adaptive padding margin, then pads
// the shorter side to approach targetAspect if drift is within tolerance.
func padAndAlignAspect(box page.Box, w, h int, bleedPx, trimPx int, adaptivePaddingPx, targetAspect, maxAspectDrift float64) (page.Box, bool) {
	minWH := float64(minInt(w, h))
	margin := math.Max(12, 0.004*minWH+adaptivePaddingPx+0.6*float64(maxInt(bleedPx, trimPx)))
	expanded := geom.Expand(box, int(math.Round(margin)), bounds(w, h))

	bw := float64(expanded[2] - expanded[0] + 1)
	bh := float64(expanded[3] - expanded[1] + 1)
	currentAspect := bw / bh
	if targetAspect <= 0 {
		return expanded, false
	}
	drift := math.Abs(currentAspect-targetAspect) / targetAspect
	if drift > maxAspectDrift {
		return expanded, true
	}

	if currentAspect < targetAspect {
		wantW := bh * targetAspect
		extra := int(math.Round((wantW - bw) / 2))
		expanded[0] -= extra
		expanded[2] += extra
	} else if currentAspect > targetAspect {
		wantH := bw / targetAspect
		extra := int(math.Round((wantH - bh) / 2))
		expanded[1] -= extra
		expanded[3] += extra
	}
	return geom.Clamp(expanded, bounds(w, h)), false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// bookPriorSnap snaps box to the book model's median trim box when it is
// within driftPx of it and either already contains, or can be translated to
// contain, the combined mask.
func bookPriorSnap(box page.Box, maskBox page.Box, prior *BookModel, maxTrimDriftPx, minConfidence float64) (page.Box, bool) {
	if prior == nil || prior.Confidence < minConfidence {
		return box, false
	}
	if float64(geom.ChebyshevDistance(box, prior.TrimBoxPx)) > maxTrimDriftPx {
		return box, false
	}

	if geom.Contains(prior.TrimBoxPx, maskBox) {
		return prior.TrimBoxPx, true
	}

	cx0, cy0 := centerOf(box)
	cx1, cy1 := centerOf(prior.TrimBoxPx)
	dx, dy := cx1-cx0, cy1-cy0
	translated := geom.Translate(box, dx, dy)
	if geom.Contains(translated, maskBox) {
		return translated, true
	}
	return box, false
}

func centerOf(b page.Box) (int, int) {
	return (b[0] + b[2]) / 2, (b[1] + b[3]) / 2
}
