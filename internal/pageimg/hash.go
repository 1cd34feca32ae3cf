// Package pageimg holds raster helpers shared by the normalizer and the
// book-priors builder: grayscale conversion, bilinear resizing to a fixed
// tile, and the 64-bit difference perceptual hash used to fingerprint
// running heads, folios, and ornaments.
package pageimg

import (
	"image"

	"golang.org/x/image/draw"
)

// ToGrayscale converts img to a width x height array of luma values (0-255),
// indexed [x][y], using the ITU-R BT.601 luma formula.
func ToGrayscale(img image.Image) [][]float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	gray := make([][]float64, w)
	for x := 0; x < w; x++ {
		gray[x] = make([]float64, h)
		for y := 0; y < h; y++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			gray[x][y] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
		}
	}
	return gray
}

// Resize scales img to exactly width x height using bilinear interpolation.
func Resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// CropBand returns the sub-image of img covering the rows [y0,y1) across the
// full width, used to isolate running-head/folio/ornament bands before
// hashing.
func CropBand(img image.Image, y0, y1 int) image.Image {
	b := img.Bounds()
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	rect := image.Rect(b.Min.X, y0, b.Max.X, y1)
	if si, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return si.SubImage(rect)
	}
	cropped := image.NewRGBA(rect)
	draw.Draw(cropped, rect, img, rect.Min, draw.Src)
	return cropped
}

// DHash64 computes a 64-bit difference hash: the image is resized to 9x8,
// converted to grayscale, and each row's 8 horizontal neighbor comparisons
// become one bit (spec's "difference perceptual hash").
func DHash64(img image.Image) uint64 {
	resized := Resize(img, 9, 8)
	gray := ToGrayscale(resized)

	var hash uint64
	bit := 63
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if gray[x][y] > gray[x+1][y] {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

// HammingDistance returns the number of differing bits between two hashes.
func HammingDistance(a, b uint64) int {
	xor := a ^ b
	count := 0
	for xor != 0 {
		count++
		xor &= xor - 1
	}
	return count
}

// BandVariance returns the variance of luma values across a grayscale band,
// used by the book-priors builder to reject ornament bands that are really
// plain body text.
func BandVariance(gray [][]float64) float64 {
	var n int
	var sum, sumSq float64
	for _, col := range gray {
		for _, v := range col {
			sum += v
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}
