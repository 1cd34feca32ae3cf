package pageimg

import (
	"image"
	"image/color"
	"testing"
)

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name     string
		hash1    uint64
		hash2    uint64
		expected int
	}{
		{"identical", 0x0, 0x0, 0},
		{"completely different", 0xFFFFFFFFFFFFFFFF, 0x0, 64},
		{"one bit different", 0x1, 0x0, 1},
		{"four bits different", 0xF, 0x0, 4},
		{"half different", 0xFFFFFFFF00000000, 0x0, 32},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := HammingDistance(tc.hash1, tc.hash2)
			if result != tc.expected {
				t.Errorf("HammingDistance(%x, %x) = %d; want %d", tc.hash1, tc.hash2, result, tc.expected)
			}
		})
	}
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDHash64_SolidImagesMatch(t *testing.T) {
	a := solidImage(100, 100, color.White)
	b := solidImage(100, 100, color.White)
	if d := HammingDistance(DHash64(a), DHash64(b)); d != 0 {
		t.Fatalf("expected identical solid images to hash identically, got distance %d", d)
	}
}

func TestDHash64_DistinctImagesDiffer(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 64, 64))
	b := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if x < 32 {
				a.Set(x, y, color.White)
				b.Set(x, y, color.Black)
			} else {
				a.Set(x, y, color.Black)
				b.Set(x, y, color.White)
			}
		}
	}
	if d := HammingDistance(DHash64(a), DHash64(b)); d == 0 {
		t.Fatal("expected inverted gradient images to hash differently")
	}
}

func TestToGrayscale(t *testing.T) {
	img := solidImage(4, 4, color.White)
	gray := ToGrayscale(img)
	if len(gray) != 4 || len(gray[0]) != 4 {
		t.Fatalf("unexpected grayscale dims: %dx%d", len(gray), len(gray[0]))
	}
	if gray[0][0] < 250 {
		t.Fatalf("expected near-white luma, got %v", gray[0][0])
	}
}

func TestBandVariance(t *testing.T) {
	flat := [][]float64{{10, 10}, {10, 10}}
	if v := BandVariance(flat); v != 0 {
		t.Fatalf("expected zero variance for flat band, got %v", v)
	}
	varied := [][]float64{{0, 255}, {0, 255}}
	if v := BandVariance(varied); v <= 0 {
		t.Fatalf("expected positive variance, got %v", v)
	}
}
