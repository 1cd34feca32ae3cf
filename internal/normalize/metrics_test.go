package normalize

import "testing"

// rowBandedGray builds a gray grid with dark horizontal bands every period
// rows, used to exercise the baseline row-projection peak detector.
func rowBandedGray(w, h, period, bandHeight int) [][]float64 {
	gray := make([][]float64, w)
	for x := range gray {
		gray[x] = make([]float64, h)
		for y := range gray[x] {
			gray[x][y] = 250
			if y%period < bandHeight {
				gray[x][y] = 10
			}
		}
	}
	return gray
}

func colBandedGray(w, h, period, bandWidth int) [][]float64 {
	gray := make([][]float64, w)
	for x := range gray {
		gray[x] = make([]float64, h)
	}
	for x := 0; x < w; x++ {
		v := 250.0
		if x%period < bandWidth {
			v = 10
		}
		for y := 0; y < h; y++ {
			gray[x][y] = v
		}
	}
	return gray
}

func TestComputeBaseline_DetectsPeriodicBands(t *testing.T) {
	gray := rowBandedGray(100, 200, 20, 4)
	baseline := computeBaseline(gray)
	if baseline.PeakCount < 2 {
		t.Fatalf("expected multiple baseline peaks, got %d", baseline.PeakCount)
	}
	if baseline.MedianSpacing <= 0 {
		t.Fatalf("expected positive median spacing, got %v", baseline.MedianSpacing)
	}
}

func TestComputeBaseline_FlatImageHasNoPeaks(t *testing.T) {
	gray := flatGray(50, 50, 250)
	baseline := computeBaseline(gray)
	if baseline.PeakCount != 0 {
		t.Fatalf("expected zero peaks on flat image, got %d", baseline.PeakCount)
	}
}

func TestComputeColumns_DetectsPeriodicColumns(t *testing.T) {
	gray := colBandedGray(200, 100, 25, 5)
	columns := computeColumns(gray)
	if columns.Count < 2 {
		t.Fatalf("expected multiple column bands, got %d", columns.Count)
	}
}

func TestComputeColumns_FlatImageHasNoColumns(t *testing.T) {
	gray := flatGray(50, 50, 250)
	columns := computeColumns(gray)
	if columns.Count != 0 {
		t.Fatalf("expected zero columns on flat image, got %d", columns.Count)
	}
}
