package normalize

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodeTestPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestEmbedDpi_InsertsPHYsChunkAfterIHDR(t *testing.T) {
	original := encodeTestPNG(t)
	out := embedDpi(original, 300)

	if len(out) <= len(original) {
		t.Fatalf("expected embedded PNG to be larger, got %d vs %d", len(out), len(original))
	}

	ihdrLen := binary.BigEndian.Uint32(original[8:12])
	ihdrEnd := 8 + 8 + int(ihdrLen) + 4
	chunkType := out[ihdrEnd+4 : ihdrEnd+8]
	if string(chunkType) != "pHYs" {
		t.Fatalf("expected pHYs chunk immediately after IHDR, got %q", chunkType)
	}
}

func TestEmbedDpi_EncodesExpectedPixelsPerMeter(t *testing.T) {
	original := encodeTestPNG(t)
	out := embedDpi(original, 300)

	ihdrLen := binary.BigEndian.Uint32(original[8:12])
	ihdrEnd := 8 + 8 + int(ihdrLen) + 4
	data := out[ihdrEnd+8 : ihdrEnd+8+9]
	ppuX := binary.BigEndian.Uint32(data[0:4])
	unit := data[8]

	wantPpu := uint32(300 / 0.0254)
	if ppuX != wantPpu {
		t.Fatalf("expected %d pixels/meter, got %d", wantPpu, ppuX)
	}
	if unit != 1 {
		t.Fatalf("expected unit specifier 1 (meters), got %d", unit)
	}
}

func TestEmbedDpi_DecodableByStandardLibrary(t *testing.T) {
	original := encodeTestPNG(t)
	out := embedDpi(original, 300)
	if _, err := png.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("expected output to remain a valid PNG: %v", err)
	}
}
