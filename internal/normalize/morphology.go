package normalize

import (
	"image"

	"github.com/disintegration/imaging"
)

// MorphologyPlan records which corrective raster operations the final pass
// applies, decided from border noise, shadow presence, and mask coverage.
type MorphologyPlan struct {
	Denoise       bool
	ContrastBoost bool
	Sharpen       bool
}

// planMorphology decides the morphology plan from the engine's measured
// signals.
func planMorphology(borderStd float64, shadowPresent bool, maskCoverage float64) MorphologyPlan {
	return MorphologyPlan{
		Denoise:       borderStd > 18 || shadowPresent,
		ContrastBoost: maskCoverage < 0.6,
		Sharpen:       maskCoverage > 0.7 && borderStd < 25,
	}
}

// applyMorphology runs the planned operations in denoise -> contrast ->
// sharpen order, using disintegration/imaging's filters the way the teacher
// module already relies on that library for raster post-processing.
func applyMorphology(img image.Image, plan MorphologyPlan) image.Image {
	out := image.Image(img)
	if plan.Denoise {
		out = imaging.Blur(out, 0.5)
	}
	if plan.ContrastBoost {
		out = imaging.AdjustContrast(out, 5)
		out = imaging.AdjustBrightness(out, -2)
	}
	if plan.Sharpen {
		out = imaging.Sharpen(out, 0.6)
	}
	return out
}
