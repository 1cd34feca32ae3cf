package orchestrator

import (
	"context"
	"image"
	"os"
	"strconv"

	"github.com/asteria-studio/normalize-core/internal/constants"
	"github.com/asteria-studio/normalize-core/internal/normalize"
	"github.com/asteria-studio/normalize-core/internal/page"
	"github.com/asteria-studio/normalize-core/internal/pipelineerr"
	"github.com/asteria-studio/normalize-core/internal/remotelayout"
	"github.com/asteria-studio/normalize-core/internal/sidecar"
)

// buildElements assembles a page's layout elements: page_bounds and
// text_block are always synthesized locally from the crop box, plus
// whatever the optional remote collaborator returns on top.
func buildElements(ctx context.Context, r *normalize.Result, collaborator remotelayout.Collaborator, errs *pipelineerr.Collector) []sidecar.Element {
	w, h := r.CropBox[2]-r.CropBox[0]+1, r.CropBox[3]-r.CropBox[1]+1
	elements := []sidecar.Element{
		{
			ID:         r.PageID + "-page-bounds",
			Type:       "page_bounds",
			Bbox:       page.Box{0, 0, w - 1, h - 1},
			Confidence: 1.0,
			Source:     "local",
		},
		{
			ID:         r.PageID + "-text-block",
			Type:       "text_block",
			Bbox:       textBlockBox(w, h),
			Confidence: 0.5,
			Source:     "local",
		},
	}

	if collaborator == nil {
		return elements
	}

	img, err := openOutput(r.OutputPath)
	if err != nil {
		errs.Add(pipelineerr.PhaseSidecar, r.PageID, err)
		return elements
	}

	remoteEls, err := collaborator.DetectLayout(ctx, r.PageID, img)
	if err != nil {
		errs.Add(pipelineerr.PhaseSidecar, r.PageID, err)
		return elements
	}

	for i, e := range remoteEls {
		elements = append(elements, sidecar.Element{
			ID:         r.PageID + "-remote-" + strconv.Itoa(i),
			Type:       e.Type,
			Bbox:       page.Box(e.Bbox),
			Confidence: e.Confidence,
			Source:     "remote",
		})
	}
	return elements
}

// textBlockBox approximates the type area as the page_bounds box inset by
// TextBlockMarginFraction of the shorter side on every edge.
func textBlockBox(w, h int) page.Box {
	shorter := w
	if h < shorter {
		shorter = h
	}
	inset := int(float64(shorter) * constants.TextBlockMarginFraction)
	left, top := inset, inset
	right, bottom := w-1-inset, h-1-inset
	if right <= left {
		left, right = 0, w-1
	}
	if bottom <= top {
		top, bottom = 0, h-1
	}
	return page.Box{left, top, right, bottom}
}

// reviewPreviews converts a normalizer's preview set into the sidecar
// review-queue shape.
func reviewPreviews(previews []normalize.Preview) []sidecar.PreviewRef {
	if len(previews) == 0 {
		return nil
	}
	refs := make([]sidecar.PreviewRef, len(previews))
	for i, p := range previews {
		refs[i] = sidecar.PreviewRef{Kind: p.Kind, Path: p.Path, Width: p.Width, Height: p.Height}
	}
	return refs
}

func openOutput(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
