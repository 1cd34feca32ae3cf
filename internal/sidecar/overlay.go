package sidecar

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/asteria-studio/normalize-core/internal/constants"
	"github.com/asteria-studio/normalize-core/internal/page"
)

// elementColors maps a layout element type to its fixed overlay stroke
// color. There is no vector-drawing dependency in this module's stack, so
// rectangles are stroked directly onto the raster with image/draw.
var elementColors = map[string]string{
	"page_bounds":  constants.OverlayColorPageBounds,
	"text_block":   constants.OverlayColorTextBlock,
	"title":        constants.OverlayColorTitle,
	"running_head": constants.OverlayColorRunningHead,
	"folio":        constants.OverlayColorFolio,
	"ornament":     constants.OverlayColorOrnament,
	"drop_cap":     constants.OverlayColorDropCap,
	"footnote":     constants.OverlayColorFootnote,
	"marginalia":   constants.OverlayColorMarginalia,
}

const strokeWidthPx = 3

// RenderOverlay draws each element's bbox outline (in its fixed per-type
// color) and, when gutterBand is non-nil, a filled gutter band, over a copy
// of base, and returns the resulting PNG bytes.
func RenderOverlay(base image.Image, elements []Element, gutterBand *page.Box) ([]byte, error) {
	b := base.Bounds()
	canvas := image.NewNRGBA(b)
	draw.Draw(canvas, b, base, b.Min, draw.Src)

	for _, el := range elements {
		hex := elementColors[el.Type]
		if hex == "" {
			continue
		}
		strokeRect(canvas, el.Bbox, mustParseHex(hex), strokeWidthPx)
	}
	if gutterBand != nil {
		fillRect(canvas, *gutterBand, mustParseHex(constants.OverlayColorGutterBand), 0x40)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("sidecar: encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteOverlay renders and atomically writes the overlay PNG to path.
func WriteOverlay(path string, base image.Image, elements []Element, gutterBand *page.Box) error {
	data, err := RenderOverlay(base, elements, gutterBand)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sidecar: mkdir for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("sidecar: write temp overlay %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func strokeRect(img *image.NRGBA, box page.Box, c color.NRGBA, width int) {
	x0, y0, x1, y1 := box[0], box[1], box[2], box[3]
	for w := 0; w < width; w++ {
		hLine(img, x0, x1, y0+w, c)
		hLine(img, x0, x1, y1-w, c)
		vLine(img, y0, y1, x0+w, c)
		vLine(img, y0, y1, x1-w, c)
	}
}

func fillRect(img *image.NRGBA, box page.Box, c color.NRGBA, alpha uint8) {
	c.A = alpha
	b := img.Bounds()
	for x := box[0]; x <= box[2]; x++ {
		for y := box[1]; y <= box[3]; y++ {
			if image.Pt(x, y).In(b) {
				blendSet(img, x, y, c)
			}
		}
	}
}

func hLine(img *image.NRGBA, x0, x1 int, y int, c color.NRGBA) {
	b := img.Bounds()
	for x := x0; x <= x1; x++ {
		if image.Pt(x, y).In(b) {
			img.SetNRGBA(x, y, c)
		}
	}
}

func vLine(img *image.NRGBA, y0, y1 int, x int, c color.NRGBA) {
	b := img.Bounds()
	for y := y0; y <= y1; y++ {
		if image.Pt(x, y).In(b) {
			img.SetNRGBA(x, y, c)
		}
	}
}

func blendSet(img *image.NRGBA, x, y int, c color.NRGBA) {
	existing := img.NRGBAAt(x, y)
	a := float64(c.A) / 255
	blend := func(fg, bg uint8) uint8 {
		return uint8(float64(fg)*a + float64(bg)*(1-a))
	}
	img.SetNRGBA(x, y, color.NRGBA{
		R: blend(c.R, existing.R),
		G: blend(c.G, existing.G),
		B: blend(c.B, existing.B),
		A: 255,
	})
}

func mustParseHex(hex string) color.NRGBA {
	var r, g, b int
	fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	return color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
}
