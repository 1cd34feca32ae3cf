// Package analyzer builds a CorpusSummary from a scanned run: per-page pixel
// dimensions (probed where possible), and mm/DPI inference with a stability
// and coverage derived confidence, grounded on the quick-scan pattern of the
// comics-compressor analyzer's use of image.DecodeConfig.
package analyzer

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/asteria-studio/normalize-core/internal/constants"
	"github.com/asteria-studio/normalize-core/internal/numeric"
	"github.com/asteria-studio/normalize-core/internal/page"
	"github.com/asteria-studio/normalize-core/internal/scanner"
)

// DimensionSource distinguishes JPEG SOF-marker probing from the generic
// image-metadata reader used for every other supported format.
type DimensionSource string

const (
	SourceJPEGMarker DimensionSource = "jpeg-sof-marker"
	SourceMetadata   DimensionSource = "metadata"
	SourceFallback   DimensionSource = "fallback"
)

// CorpusSummary is the analyzer's aggregate output.
type CorpusSummary struct {
	ProjectID            string
	TargetDimensionsMm   [2]float64
	TargetDimensionsPx   [2]int
	Estimates            []page.BoundsEstimate
	InferredDimensionsMm [2]float64
	InferredDpi          float64
	DimensionConfidence  float64
	DpiConfidence        float64
}

// Analyze probes pixel dimensions for every page in cfg and infers the
// corpus's physical size and DPI from the successful probes.
func Analyze(cfg *scanner.PipelineRunConfig) (*CorpusSummary, error) {
	if cfg == nil || len(cfg.Pages) == 0 {
		return nil, errors.New("analyzer: empty run config")
	}

	targetDpi := cfg.TargetDpi
	if targetDpi <= 0 {
		targetDpi = constants.DefaultFallbackDpi
	}
	targetPx := [2]int{0, 0}
	if cfg.TargetDimensionsMm[0] > 0 && cfg.TargetDimensionsMm[1] > 0 {
		targetPx[0] = int(cfg.TargetDimensionsMm[0] / constants.MillimetersPerInch * targetDpi)
		targetPx[1] = int(cfg.TargetDimensionsMm[1] / constants.MillimetersPerInch * targetDpi)
	}

	estimates := make([]page.BoundsEstimate, 0, len(cfg.Pages))
	var widthSamples, heightSamples []float64
	var probedCount int

	for _, p := range cfg.Pages {
		w, h, probed := probeDimensions(p.OriginalPath)
		if !probed {
			w, h = targetPx[0], targetPx[1]
		} else {
			probedCount++
			widthSamples = append(widthSamples, float64(w))
			heightSamples = append(heightSamples, float64(h))
		}

		bleedPx := int(constants.DefaultBleedMm / constants.MillimetersPerInch * targetDpi)
		trimPx := 0
		inset := bleedPx + trimPx

		pageBounds := page.Box{inset, inset, w - 1 - inset, h - 1 - inset}
		pageBounds = clampBox(pageBounds, w, h)
		contentBounds := pageBounds

		estimates = append(estimates, page.BoundsEstimate{
			PageID:        p.ID,
			WidthPx:       w,
			HeightPx:      h,
			BleedPx:       bleedPx,
			TrimPx:        trimPx,
			PageBounds:    pageBounds,
			ContentBounds: contentBounds,
			Probed:        probed,
		})
	}

	coverage := float64(probedCount) / float64(len(cfg.Pages))
	dimConfidence, inferredMm := inferDimensions(widthSamples, heightSamples, targetDpi, coverage)
	dpiConfidence, inferredDpi := inferDpi(widthSamples, heightSamples, cfg.TargetDimensionsMm, coverage)

	return &CorpusSummary{
		ProjectID:            cfg.ProjectID,
		TargetDimensionsMm:   cfg.TargetDimensionsMm,
		TargetDimensionsPx:   targetPx,
		Estimates:            estimates,
		InferredDimensionsMm: inferredMm,
		InferredDpi:          inferredDpi,
		DimensionConfidence:  dimConfidence,
		DpiConfidence:        dpiConfidence,
	}, nil
}

func clampBox(b page.Box, w, h int) page.Box {
	if b[0] < 0 {
		b[0] = 0
	}
	if b[1] < 0 {
		b[1] = 0
	}
	if b[2] >= w {
		b[2] = w - 1
	}
	if b[3] >= h {
		b[3] = h - 1
	}
	if b[2] < b[0] {
		b[2] = b[0]
	}
	if b[3] < b[1] {
		b[3] = b[1]
	}
	return b
}

// probeDimensions returns a page's pixel dimensions: JPEGs are probed by
// scanning for a Start-Of-Frame marker directly, every other supported
// format goes through the standard image-metadata reader.
func probeDimensions(path string) (w, h int, ok bool) {
	if strings.EqualFold(filepath.Ext(path), ".jpg") || strings.EqualFold(filepath.Ext(path), ".jpeg") {
		if w, h, err := probeJPEGDimensions(path); err == nil {
			return w, h, true
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// probeJPEGDimensions scans a JPEG's marker segments for a Start-Of-Frame
// marker (any of SOF0-SOF15 except DHT, JPG and DAC), reading the height/width fields directly from the
// segment rather than decoding the whole image.
func probeJPEGDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var marker [2]byte
	if _, err := readFull(r, marker[:]); err != nil {
		return 0, 0, err
	}
	if marker[0] != 0xFF || marker[1] != 0xD8 {
		return 0, 0, fmt.Errorf("not a JPEG: bad SOI marker")
	}

	for {
		if _, err := readFull(r, marker[:]); err != nil {
			return 0, 0, err
		}
		if marker[0] != 0xFF {
			return 0, 0, fmt.Errorf("malformed marker segment")
		}
		m := marker[1]
		if m == 0xD8 || m == 0x01 || (m >= 0xD0 && m <= 0xD7) {
			continue
		}
		if m == 0xD9 {
			return 0, 0, fmt.Errorf("end of image before SOF marker")
		}

		var lenBuf [2]byte
		if _, err := readFull(r, lenBuf[:]); err != nil {
			return 0, 0, err
		}
		segLen := int(lenBuf[0])<<8 | int(lenBuf[1])
		if segLen < 2 {
			return 0, 0, fmt.Errorf("invalid segment length")
		}
		payload := make([]byte, segLen-2)
		if _, err := readFull(r, payload); err != nil {
			return 0, 0, err
		}

		isSOF := (m >= 0xC0 && m <= 0xCF) && m != 0xC4 && m != 0xC8 && m != 0xCC
		if isSOF && len(payload) >= 5 {
			height := int(payload[1])<<8 | int(payload[2])
			width := int(payload[3])<<8 | int(payload[4])
			return width, height, nil
		}
	}
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func inferDimensions(widthSamples, heightSamples []float64, dpi, coverage float64) (float64, [2]float64) {
	if len(widthSamples) == 0 {
		return 0, [2]float64{}
	}
	mmW := make([]float64, len(widthSamples))
	mmH := make([]float64, len(heightSamples))
	for i := range widthSamples {
		mmW[i] = widthSamples[i] / dpi * constants.MillimetersPerInch
		mmH[i] = heightSamples[i] / dpi * constants.MillimetersPerInch
	}
	medianW, medianH := numeric.Median(mmW), numeric.Median(mmH)
	avgCV := (numeric.CV(mmW) + numeric.CV(mmH)) / 2
	stability := numeric.Clamp01(1 - avgCV)
	confidence := coverage * stability
	return confidence, [2]float64{medianW, medianH}
}

func inferDpi(widthSamples, heightSamples []float64, targetMm [2]float64, coverage float64) (float64, float64) {
	if len(widthSamples) == 0 || targetMm[0] <= 0 || targetMm[1] <= 0 {
		return 0, 0
	}
	dpiW := make([]float64, len(widthSamples))
	dpiH := make([]float64, len(heightSamples))
	for i := range widthSamples {
		dpiW[i] = widthSamples[i] / targetMm[0] * constants.MillimetersPerInch
		dpiH[i] = heightSamples[i] / targetMm[1] * constants.MillimetersPerInch
	}
	all := append(append([]float64{}, dpiW...), dpiH...)
	medianDpi := numeric.Median(all)
	avgCV := (numeric.CV(dpiW) + numeric.CV(dpiH)) / 2
	stability := numeric.Clamp01(1 - avgCV)
	confidence := coverage * stability
	return confidence, medianDpi
}
