package orchestrator

import (
	"github.com/asteria-studio/normalize-core/internal/constants"
	"github.com/asteria-studio/normalize-core/internal/normalize"
)

// relaxSecondPassOptions loosens a few crop/alignment parameters and forces
// skew refinement, the standard retry applied to any page whose first-pass
// quality gate failed.
func relaxSecondPassOptions(base normalize.Options) normalize.Options {
	out := base
	out.AdaptivePaddingPx = base.AdaptivePaddingPx + constants.SecondPassAdaptivePaddingBonusPx

	edgeScale := base.EdgeScale
	if edgeScale <= 0 {
		edgeScale = constants.EdgeScaleDefault
	}
	out.EdgeScale = maxf(edgeScale*constants.SecondPassEdgeScaleFactor, constants.SecondPassEdgeScaleFloor)

	out.IntensityBias = maxf(base.IntensityBias+constants.SecondPassIntensityBiasDelta, constants.SecondPassIntensityBiasFloor)

	drift := base.MaxAspectRatioDrift
	if drift <= 0 {
		drift = 0.08
	}
	out.MaxAspectRatioDrift = minf(drift+constants.SecondPassAspectDriftBonus, constants.SecondPassAspectDriftCap)

	out.SkewRefinement = normalize.RefinementForced

	if out.BookPriors.Model != nil {
		out.BookPriors.MaxTrimDriftPx = constants.SecondPassBookPriorsMaxTrimDriftPx
		out.BookPriors.MaxContentDriftPx = constants.SecondPassBookPriorsMaxContentDriftPx
		out.BookPriors.MinConfidence = constants.SecondPassBookPriorsMinConfidence
	}
	return out
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
