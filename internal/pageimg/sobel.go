package pageimg

import "math"

// SobelMagnitude computes the Sobel gradient magnitude field over a
// grayscale array indexed [x][y], used both for skew-angle histograms and
// edge-based crop boxes in the normalizer.
func SobelMagnitude(gray [][]float64) [][]float64 {
	w := len(gray)
	if w == 0 {
		return nil
	}
	h := len(gray[0])
	mag := make([][]float64, w)
	for x := range mag {
		mag[x] = make([]float64, h)
	}

	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		}
		if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= h {
			y = h - 1
		}
		return gray[x][y]
	}

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			mag[x][y] = math.Sqrt(gx*gx + gy*gy)
		}
	}
	return mag
}
