package normalize

import (
	"image"

	"github.com/asteria-studio/normalize-core/internal/constants"
	"github.com/asteria-studio/normalize-core/internal/pageimg"
)

// buildPreview downscales img to at most constants.PreviewMaxDimension on
// its longest side and returns its grayscale samples.
func buildPreview(img image.Image) (*image.RGBA, [][]float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	maxDim := constants.PreviewMaxDimension
	if w <= maxDim && h <= maxDim {
		gray := pageimg.Resize(img, w, h)
		return gray, pageimg.ToGrayscale(gray)
	}
	scale := float64(maxDim) / float64(maxInt(w, h))
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	resized := pageimg.Resize(img, nw, nh)
	return resized, pageimg.ToGrayscale(resized)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
