package normalize

import (
	"math"

	"github.com/asteria-studio/normalize-core/internal/constants"
)

// paperSize is a common paper size in millimeters, portrait orientation.
type paperSize struct {
	name    string
	w, h    float64
}

var commonPaperSizes = []paperSize{
	{"A3", 297, 420},
	{"A4", 210, 297},
	{"A5", 148, 210},
	{"B5", 176, 250},
	{"Letter", 215.9, 279.4},
}

// inferPhysicalSize resolves a page's physical dimensions in mm, following
// the engine's four-step resolution order: metadata density, target
// dimensions + DPI, closest common paper size, then fallback DPI.
func inferPhysicalSize(widthPx, heightPx int, metadataDpi float64, targetMm [2]float64, targetDpi, fallbackDpi float64) ([2]float64, float64, DpiSource) {
	aspect := float64(widthPx) / float64(heightPx)

	if metadataDpi >= 1 {
		mm := pxToMm(widthPx, heightPx, metadataDpi)
		if targetMm[0] > 0 && aspectDrift(mm, targetMm) < 0.05 {
			return mm, metadataDpi, DpiMetadata
		}
		if targetMm[0] == 0 {
			return mm, metadataDpi, DpiMetadata
		}
	}

	if targetMm[0] > 0 && targetDpi > 0 {
		mm := pxToMm(widthPx, heightPx, targetDpi)
		if aspectDrift(mm, targetMm) < 0.05 {
			return targetMm, targetDpi, DpiInferred
		}
	}

	if best, ok := closestPaperSize(aspect); ok {
		mm := [2]float64{best.w, best.h}
		if aspect >= 1 {
			mm = [2]float64{best.h, best.w}
		}
		dpi := float64(widthPx) / mm[0] * constants.MillimetersPerInch
		return mm, dpi, DpiInferred
	}

	dpi := fallbackDpi
	if dpi <= 0 {
		dpi = constants.DefaultFallbackDpi
	}
	return pxToMm(widthPx, heightPx, dpi), dpi, DpiFallback
}

func pxToMm(w, h int, dpi float64) [2]float64 {
	return [2]float64{
		float64(w) / dpi * constants.MillimetersPerInch,
		float64(h) / dpi * constants.MillimetersPerInch,
	}
}

func aspectDrift(a, b [2]float64) float64 {
	aspectA := a[0] / a[1]
	aspectB := b[0] / b[1]
	return math.Abs(aspectA-aspectB) / aspectB
}

// closestPaperSize returns the common paper size (portrait or landscape)
// whose aspect ratio is closest to aspect, when within 0.02 distance.
func closestPaperSize(aspect float64) (paperSize, bool) {
	best := paperSize{}
	bestDist := math.MaxFloat64
	for _, p := range commonPaperSizes {
		for _, candidate := range []float64{p.w / p.h, p.h / p.w} {
			dist := math.Abs(aspect - candidate)
			if dist < bestDist {
				bestDist = dist
				best = p
			}
		}
	}
	if bestDist < 0.02 {
		return best, true
	}
	return paperSize{}, false
}
