// Package bookpriors builds an aggregate BookModel from a prefix sample of
// normalized pages: a median trim/content box and recurring running-head,
// folio, and ornament templates, used to stabilize the second normalization
// pass across an entire book.
package bookpriors

import (
	"fmt"
	"image"

	"github.com/asteria-studio/normalize-core/internal/constants"
	"github.com/asteria-studio/normalize-core/internal/normalize"
	"github.com/asteria-studio/normalize-core/internal/numeric"
	"github.com/asteria-studio/normalize-core/internal/page"
	"github.com/asteria-studio/normalize-core/internal/pageimg"
)

// RunningHeadTemplate is a recurring hashed band recognized across a sample
// of pages.
type RunningHeadTemplate struct {
	ID         string
	Bbox       page.Box
	Hash       uint64
	Confidence float64
}

// FolioModel records the page-number band location(s) observed in the
// sample.
type FolioModel struct {
	PositionBands []FolioBand
}

// FolioBand is one side's recurring folio band.
type FolioBand struct {
	Side       string
	Band       [2]int
	Confidence float64
}

// OrnamentAnchor is a recurring decorative band distinct from body text.
type OrnamentAnchor struct {
	Hash       uint64
	Bbox       page.Box
	Confidence float64
}

// Model is the aggregate book-priors output consumed by the normalizer's
// second pass and the layout classifier's quality gate.
type Model struct {
	TrimBoxPx     page.Box
	TrimBoxMADPx  [4]float64
	ContentBoxPx  page.Box
	ContentMADPx  [4]float64
	RunningHeads  []RunningHeadTemplate
	Folio         *FolioModel
	Ornaments     []OrnamentAnchor
	SampleCount   int
}

// AsNormalizeModel narrows Model to the subset the normalizer's second pass
// consults for the book-prior snap stage.
func (m *Model) AsNormalizeModel(confidence float64) *normalize.BookModel {
	if m == nil {
		return nil
	}
	return &normalize.BookModel{
		TrimBoxPx:    m.TrimBoxPx,
		ContentBoxPx: m.ContentBoxPx,
		Confidence:   confidence,
	}
}

// ImageLoader opens the raster for a normalized page, used by the template
// hashing stage. Production callers pass image.Decode over the normalized
// PNG path; tests can substitute an in-memory loader.
type ImageLoader func(path string) (image.Image, error)

// Sample carries one page's normalization result from the caller's sample
// pass; Build loads the page's raster itself from Result.OutputPath.
type Sample struct {
	Result *normalize.Result
}

// Build aggregates box statistics and recurring template hashes from a
// sample of normalization results whose OutputPath rasters are loaded via
// loader. sampleCount informs the recurrence thresholds even if len(samples)
// is smaller (e.g. some pages failed normalization).
func Build(samples []Sample, loader ImageLoader, sampleCount int) (*Model, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("bookpriors: no samples to build from")
	}

	n := sampleCount
	if n <= 0 {
		n = len(samples)
	}
	minRecurrence := maxInt(constants.BookPriorsMinRecurrence, int(constants.BookPriorsRecurrenceFraction*float64(n)))

	var trimBoxes, contentBoxes [][4]int
	headHashes := map[uint64]*hashAccum{}
	folioHashes := map[uint64]*hashAccum{}
	ornamentHashes := map[uint64]*hashAccum{}

	for _, s := range samples {
		if s.Result == nil {
			continue
		}
		trimBoxes = append(trimBoxes, [4]int(s.Result.CropBox))
		contentBoxes = append(contentBoxes, [4]int(s.Result.MaskBox))

		img, err := loader(s.Result.OutputPath)
		if err != nil {
			continue
		}
		b := img.Bounds()
		h := b.Dy()

		accumulateBand(headHashes, img, bandRange(h, 0.02, 0.14), nil)
		accumulateBand(folioHashes, img, bandRange(h, 0.86, 0.98), nil)
		accumulateBand(ornamentHashes, img, bandRange(h, 0.14, 0.24), varianceGate)
	}

	model := &Model{
		TrimBoxPx:    boxFromMedian(trimBoxes),
		TrimBoxMADPx: madFromBoxes(trimBoxes),
		ContentBoxPx: boxFromMedian(contentBoxes),
		ContentMADPx: madFromBoxes(contentBoxes),
		SampleCount:  len(samples),
	}

	model.RunningHeads = templatesFromHashes(headHashes, minRecurrence, n, "head")
	if folio := strongestFolio(folioHashes, minRecurrence, n); folio != nil {
		model.Folio = folio
	}
	model.Ornaments = ornamentsFromHashes(ornamentHashes, minRecurrence, n)

	return model, nil
}

type hashAccum struct {
	count  int
	bounds page.Box
}

func bandRange(h int, loFrac, hiFrac float64) [2]int {
	y0 := int(loFrac * float64(h))
	y1 := int(hiFrac * float64(h))
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return [2]int{y0, y1}
}

func varianceGate(gray [][]float64) bool {
	return pageimg.BandVariance(gray) > constants.BookPriorsOrnamentMinVar
}

func accumulateBand(hashes map[uint64]*hashAccum, img image.Image, yRange [2]int, gate func([][]float64) bool) {
	band := pageimg.CropBand(img, yRange[0], yRange[1])
	if gate != nil {
		gray := pageimg.ToGrayscale(band)
		if !gate(gray) {
			return
		}
	}
	h := pageimg.DHash64(band)
	b := img.Bounds()
	bbox := page.Box{b.Min.X, yRange[0], b.Max.X - 1, yRange[1] - 1}

	acc, ok := hashes[h]
	if !ok {
		acc = &hashAccum{bounds: bbox}
		hashes[h] = acc
	}
	acc.count++
}

func templatesFromHashes(hashes map[uint64]*hashAccum, minRecurrence, n int, prefix string) []RunningHeadTemplate {
	var out []RunningHeadTemplate
	i := 0
	for h, acc := range hashes {
		if acc.count < minRecurrence {
			continue
		}
		out = append(out, RunningHeadTemplate{
			ID:         fmt.Sprintf("%s-%d", prefix, i),
			Bbox:       acc.bounds,
			Hash:       h,
			Confidence: confidenceFromCount(acc.count, minRecurrence, n),
		})
		i++
	}
	return out
}

func ornamentsFromHashes(hashes map[uint64]*hashAccum, minRecurrence, n int) []OrnamentAnchor {
	var out []OrnamentAnchor
	for h, acc := range hashes {
		if acc.count < minRecurrence {
			continue
		}
		out = append(out, OrnamentAnchor{
			Hash:       h,
			Bbox:       acc.bounds,
			Confidence: confidenceFromCount(acc.count, minRecurrence, n),
		})
	}
	return out
}

func strongestFolio(hashes map[uint64]*hashAccum, minRecurrence, n int) *FolioModel {
	var best *hashAccum
	for _, acc := range hashes {
		if acc.count < minRecurrence {
			continue
		}
		if best == nil || acc.count > best.count {
			best = acc
		}
	}
	if best == nil {
		return nil
	}
	return &FolioModel{PositionBands: []FolioBand{{
		Side:       "bottom",
		Band:       [2]int{best.bounds[1], best.bounds[3]},
		Confidence: confidenceFromCount(best.count, minRecurrence, n),
	}}}
}

func confidenceFromCount(count, minRecurrence, n int) float64 {
	denom := n
	if minRecurrence > denom {
		denom = minRecurrence
	}
	if denom == 0 {
		return 0
	}
	c := float64(count) / float64(denom)
	if c > 1 {
		c = 1
	}
	return c
}

func boxFromMedian(boxes [][4]int) page.Box {
	return page.Box(numeric.MedianBox(boxes))
}

func madFromBoxes(boxes [][4]int) [4]float64 {
	return numeric.MADBox(boxes)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
