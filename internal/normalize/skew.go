package normalize

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/asteria-studio/normalize-core/internal/constants"
	"github.com/asteria-studio/normalize-core/internal/pageimg"
)

// skewEstimate is one pass of the Sobel-gradient skew histogram.
type skewEstimate struct {
	AngleDeg   float64
	Confidence float64
}

// estimateSkew builds a 181-bucket (-90..90°) histogram of Sobel gradient
// orientation mass, returning the smoothed peak angle and its confidence.
func estimateSkew(gray [][]float64) skewEstimate {
	w := len(gray)
	if w == 0 {
		return skewEstimate{}
	}
	h := len(gray[0])
	mag := pageimg.SobelMagnitude(gray)

	buckets := make([]float64, constants.SkewBuckets)
	for x := 1; x < w-1; x++ {
		for y := 1; y < h-1; y++ {
			gx := gray[x+1][y] - gray[x-1][y]
			gy := gray[x][y+1] - gray[x][y-1]
			angle := math.Atan2(gy, gx) * 180 / math.Pi
			// Fold to [-90,90): gradient orientation is line-direction
			// agnostic up to 180°.
			for angle < -90 {
				angle += 180
			}
			for angle >= 90 {
				angle -= 180
			}
			idx := int(math.Round(angle)) + 90
			if idx < 0 {
				idx = 0
			}
			if idx >= constants.SkewBuckets {
				idx = constants.SkewBuckets - 1
			}
			buckets[idx] += mag[x][y]
		}
	}

	peakIdx := 0
	peakMass := buckets[0]
	for i, v := range buckets {
		if v > peakMass {
			peakMass = v
			peakIdx = i
		}
	}

	radius := constants.SkewSmoothingRadius
	var weightedSum, weightTotal float64
	for d := -radius; d <= radius; d++ {
		idx := peakIdx + d
		if idx < 0 || idx >= constants.SkewBuckets {
			continue
		}
		weightedSum += float64(idx) * buckets[idx]
		weightTotal += buckets[idx]
	}
	smoothedIdx := float64(peakIdx)
	if weightTotal > 0 {
		smoothedIdx = weightedSum / weightTotal
	}
	angle := smoothedIdx - 90
	if angle > constants.SkewMaxAbsDeg {
		angle = constants.SkewMaxAbsDeg
	}
	if angle < -constants.SkewMaxAbsDeg {
		angle = -constants.SkewMaxAbsDeg
	}

	confidence := peakMass / (float64(w) * float64(h) * 4)
	if confidence > 1 {
		confidence = 1
	}

	return skewEstimate{AngleDeg: angle, Confidence: confidence}
}

// rotateAndReestimate rotates img by angleDeg, rebuilds its preview, and
// re-estimates skew on the rotated preview — used for the residual-angle
// refinement pass.
func rotateAndReestimate(img image.Image, angleDeg float64) (*image.NRGBA, skewEstimate) {
	rotated := imaging.Rotate(img, angleDeg, color.White)
	_, gray := buildPreview(rotated)
	return rotated, estimateSkew(gray)
}

// shouldRefine implements the refinement policy: always under forced mode;
// under "on" mode, only when the residual after the first rotation is both
// confident and non-trivial, or the initial estimate itself was weak.
func shouldRefine(mode SkewRefinementMode, initial, residual skewEstimate) bool {
	switch mode {
	case RefinementForced:
		return true
	case RefinementOn:
		if residual.Confidence > 0.2 && math.Abs(residual.AngleDeg) > 0.1 {
			return true
		}
		if initial.Confidence < 0.25 {
			return true
		}
		return false
	default:
		return false
	}
}
