package orchestrator

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/asteria-studio/normalize-core/internal/page"
	"github.com/asteria-studio/normalize-core/internal/spreadsplit"
)

// splitPageIfSpread decodes p's source raster, and if spreadsplit judges it a
// two-page spread above threshold, crops and writes the left/right halves
// under splitDir and returns the two child pages in place of p. Otherwise it
// returns []page.Page{p} unchanged.
func splitPageIfSpread(p page.Page, threshold float64, splitDir string) ([]page.Page, error) {
	f, err := os.Open(p.OriginalPath)
	if err != nil {
		return nil, fmt.Errorf("spread-split %s: open source: %w", p.ID, err)
	}
	full, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("spread-split %s: decode source: %w", p.ID, err)
	}

	result, leftRect, rightRect := spreadsplit.Detect(p, full, threshold)
	if !result.Split {
		return []page.Page{p}, nil
	}

	if err := os.MkdirAll(splitDir, 0o755); err != nil {
		return nil, fmt.Errorf("spread-split %s: mkdir: %w", p.ID, err)
	}

	leftPath := filepath.Join(splitDir, result.Left.ID+".png")
	rightPath := filepath.Join(splitDir, result.Right.ID+".png")
	if err := writeCrop(full, leftRect, leftPath); err != nil {
		return nil, fmt.Errorf("spread-split %s: write left half: %w", p.ID, err)
	}
	if err := writeCrop(full, rightRect, rightPath); err != nil {
		return nil, fmt.Errorf("spread-split %s: write right half: %w", p.ID, err)
	}

	left := result.Left
	left.OriginalPath = leftPath
	right := result.Right
	right.OriginalPath = rightPath
	return []page.Page{left, right}, nil
}

func writeCrop(full image.Image, rect image.Rectangle, outPath string) error {
	cropped := imaging.Crop(full, rect)
	return imaging.Save(cropped, outPath)
}
