package normalize

import (
	"image"
	"image/color"
	"testing"

	"github.com/asteria-studio/normalize-core/internal/constants"
)

func TestBuildPreview_KeepsSmallImageUnscaled(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 50))
	for x := 0; x < 100; x++ {
		for y := 0; y < 50; y++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	_, gray := buildPreview(img)
	if len(gray) != 100 || len(gray[0]) != 50 {
		t.Fatalf("expected unscaled 100x50 preview, got %dx%d", len(gray), len(gray[0]))
	}
}

func TestBuildPreview_DownscalesOversizedImage(t *testing.T) {
	dim := constants.PreviewMaxDimension + 400
	img := image.NewGray(image.Rect(0, 0, dim, dim/2))
	_, gray := buildPreview(img)
	if len(gray) > constants.PreviewMaxDimension {
		t.Fatalf("expected longest side clamped to %d, got %d", constants.PreviewMaxDimension, len(gray))
	}
}
