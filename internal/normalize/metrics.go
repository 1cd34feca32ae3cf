package normalize

import (
	"math"

	"github.com/asteria-studio/normalize-core/internal/numeric"
)

// BaselineMetrics summarizes the row-projection baseline grid detected on a
// normalized text page.
type BaselineMetrics struct {
	MedianSpacing   float64
	MADSpacing      float64
	Offset          float64
	PeakSharpness   float64
	Consistency     float64
	Confidence      float64
	PeakCount       int
}

// ColumnMetrics summarizes the column-projection band count.
type ColumnMetrics struct {
	Count int
}

// computeBaseline locates row-projection peaks of dark-pixel density above
// mean + 0.6*std and derives spacing/consistency/confidence from them.
func computeBaseline(gray [][]float64) BaselineMetrics {
	w := len(gray)
	if w == 0 {
		return BaselineMetrics{}
	}
	h := len(gray[0])

	darkCounts := make([]float64, h)
	for y := 0; y < h; y++ {
		var count float64
		for x := 0; x < w; x++ {
			if gray[x][y] < 128 {
				count++
			}
		}
		darkCounts[y] = count
	}

	mean := numeric.Mean(darkCounts)
	std := numeric.StdDev(darkCounts)
	threshold := mean + 0.6*std

	var peaks []int
	for y := 1; y < h-1; y++ {
		if darkCounts[y] > threshold && darkCounts[y] >= darkCounts[y-1] && darkCounts[y] >= darkCounts[y+1] {
			peaks = append(peaks, y)
		}
	}

	if len(peaks) < 2 {
		return BaselineMetrics{PeakCount: len(peaks)}
	}

	spacings := make([]float64, 0, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		spacings = append(spacings, float64(peaks[i]-peaks[i-1]))
	}
	medianSpacing := numeric.Median(spacings)
	madSpacing := numeric.MAD(spacings)

	var sharpnessSum float64
	for _, y := range peaks {
		sharpnessSum += (darkCounts[y] - mean) / (std + 1)
	}
	sharpness := sharpnessSum / float64(len(peaks))

	consistency := 1.0
	if medianSpacing > 0 {
		consistency = numeric.Clamp01(1 - madSpacing/medianSpacing)
	}

	spacingScore := numeric.Clamp01(1 - madSpacing/math.Max(medianSpacing, 1))
	sharpnessScore := numeric.Clamp01(sharpness / 4)
	peakCountScore := numeric.Clamp01(float64(len(peaks)) / 40)

	confidence := 0.4*spacingScore + 0.35*sharpnessScore + 0.25*peakCountScore

	offset := 0.0
	if len(peaks) > 0 {
		offset = math.Mod(float64(peaks[0]), math.Max(medianSpacing, 1))
	}

	return BaselineMetrics{
		MedianSpacing: medianSpacing,
		MADSpacing:    madSpacing,
		Offset:        offset,
		PeakSharpness: sharpness,
		Consistency:   consistency,
		Confidence:    numeric.Clamp01(confidence),
		PeakCount:     len(peaks),
	}
}

// computeColumns locates column-projection peaks above mean + 0.7*std and
// counts them as column bands.
func computeColumns(gray [][]float64) ColumnMetrics {
	w := len(gray)
	if w == 0 {
		return ColumnMetrics{}
	}
	h := len(gray[0])

	darkCounts := make([]float64, w)
	for x := 0; x < w; x++ {
		var count float64
		for y := 0; y < h; y++ {
			if gray[x][y] < 128 {
				count++
			}
		}
		darkCounts[x] = count
	}

	mean := numeric.Mean(darkCounts)
	std := numeric.StdDev(darkCounts)
	threshold := mean + 0.7*std

	inBand := false
	count := 0
	for x := 0; x < w; x++ {
		above := darkCounts[x] > threshold
		if above && !inBand {
			count++
			inBand = true
		} else if !above {
			inBand = false
		}
	}

	return ColumnMetrics{Count: count}
}
