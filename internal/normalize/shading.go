package normalize

import (
	"math"

	"github.com/asteria-studio/normalize-core/internal/numeric"
)

// backgroundField builds a low-frequency luminance field over at most 96x96
// cells by block-averaging gray.
func backgroundField(gray [][]float64) [][]float64 {
	w := len(gray)
	if w == 0 {
		return nil
	}
	h := len(gray[0])
	cellsX, cellsY := w, h
	if cellsX > 96 {
		cellsX = 96
	}
	if cellsY > 96 {
		cellsY = 96
	}
	field := make([][]float64, cellsX)
	for cx := 0; cx < cellsX; cx++ {
		field[cx] = make([]float64, cellsY)
		x0, x1 := w*cx/cellsX, w*(cx+1)/cellsX
		if x1 <= x0 {
			x1 = x0 + 1
		}
		for cy := 0; cy < cellsY; cy++ {
			y0, y1 := h*cy/cellsY, h*(cy+1)/cellsY
			if y1 <= y0 {
				y1 = y0 + 1
			}
			var sum float64
			var n int
			for x := x0; x < x1 && x < w; x++ {
				for y := y0; y < y1 && y < h; y++ {
					sum += gray[x][y]
					n++
				}
			}
			if n > 0 {
				field[cx][cy] = sum / float64(n)
			}
		}
	}
	return field
}

// estimateShadow inspects the 4%-wide left/right edge strips for a darker
// gutter/spine shadow.
func estimateShadow(gray [][]float64) ShadowDescriptor {
	w := len(gray)
	if w == 0 {
		return ShadowDescriptor{Present: false, Side: "none"}
	}
	h := len(gray[0])
	stripW := int(0.04 * float64(w))
	if stripW < 1 {
		stripW = 1
	}

	leftMean := bandColumnMean(gray, 0, stripW, h)
	rightMean := bandColumnMean(gray, w-stripW, w, h)
	globalMean := bandColumnMean(gray, 0, w, h)

	leftDarkness := globalMean - leftMean
	rightDarkness := globalMean - rightMean

	side := "none"
	darkness := 0.0
	if leftDarkness > rightDarkness {
		side = "left"
		darkness = leftDarkness
	} else {
		side = "right"
		darkness = rightDarkness
	}
	if darkness <= 0 {
		return ShadowDescriptor{Present: false, Side: "none"}
	}

	confidence := numeric.Clamp01(darkness / 40)
	return ShadowDescriptor{
		Present:    confidence > 0.1,
		Side:       side,
		WidthPx:    stripW,
		Confidence: confidence,
		Darkness:   darkness,
	}
}

func bandColumnMean(gray [][]float64, x0, x1, h int) float64 {
	var sum float64
	var n int
	for x := x0; x < x1 && x < len(gray); x++ {
		for y := 0; y < h; y++ {
			sum += gray[x][y]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// spineShadowScore combines shadow darkness, inner-vs-outer edge density,
// and edge continuity into a single [0,1] score.
func spineShadowScore(shadow ShadowDescriptor, edgeMag [][]float64) float64 {
	if !shadow.Present {
		return 0
	}
	w := len(edgeMag)
	if w == 0 {
		return numeric.Clamp01(shadow.Darkness / 40)
	}
	h := len(edgeMag[0])

	innerStart, innerEnd := 0, 0
	if shadow.Side == "left" {
		innerStart, innerEnd = shadow.WidthPx, 2*shadow.WidthPx
	} else {
		innerStart, innerEnd = w-2*shadow.WidthPx, w-shadow.WidthPx
	}
	innerDensity := bandColumnMean(edgeMag, clampIdx(innerStart, w), clampIdx(innerEnd, w), h)
	outerDensity := bandColumnMean(edgeMag, 0, shadow.WidthPx, h)
	if shadow.Side == "right" {
		outerDensity = bandColumnMean(edgeMag, w-shadow.WidthPx, w, h)
	}

	continuity := 0.0
	if innerDensity+outerDensity > 0 {
		continuity = numeric.Clamp01(outerDensity / (innerDensity + outerDensity))
	}

	return numeric.Clamp01(0.5*numeric.Clamp01(shadow.Darkness/40) + 0.3*continuity + 0.2*numeric.Clamp01(innerDensity/64))
}

func clampIdx(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// shadingConfidence combines shadow, spine-shadow, and border-noise signals
// into the overall confidence that a shading correction is warranted.
func shadingConfidence(shadowConf, spineShadow, borderStd float64) float64 {
	conf := 0.35*shadowConf + 0.3*spineShadow + 0.35*numeric.Clamp01((borderStd-6)/18)
	if borderStd < 10 {
		conf += 0.05
	}
	return numeric.Clamp01(conf)
}

// applyShadingGain applies a multiplicative gain derived from borderMean and
// the background field, worked in linear light (square then square-root
// around [0,1]) and clamped to 1±maxHighlightShift.
func applyShadingGain(gray [][]float64, bg [][]float64, borderMean, maxHighlightShift float64) [][]float64 {
	w := len(gray)
	if w == 0 {
		return gray
	}
	h := len(gray[0])
	cellsX, cellsY := len(bg), 0
	if cellsX > 0 {
		cellsY = len(bg[0])
	}
	corrected := make([][]float64, w)
	for x := 0; x < w; x++ {
		corrected[x] = make([]float64, h)
		cx := 0
		if cellsX > 0 {
			cx = x * cellsX / w
			if cx >= cellsX {
				cx = cellsX - 1
			}
		}
		for y := 0; y < h; y++ {
			cy := 0
			if cellsY > 0 {
				cy = y * cellsY / h
				if cy >= cellsY {
					cy = cellsY - 1
				}
			}
			bgVal := borderMean
			if cellsX > 0 && cellsY > 0 {
				bgVal = bg[cx][cy]
			}
			if bgVal <= 0 {
				bgVal = borderMean
			}
			gain := borderMean / bgVal
			gain = numeric.Clamp(gain, 1-maxHighlightShift, 1+maxHighlightShift)

			lin := math.Pow(gray[x][y]/255, 2)
			lin *= gain
			lin = numeric.Clamp01(lin)
			corrected[x][y] = math.Sqrt(lin) * 255
		}
	}
	return corrected
}
