// Package geom provides bounding-box arithmetic shared by the normalizer,
// layout classifier, and overlay renderer: union, containment, IoU-style
// overlap ratios, and the per-axis scaling used to map element boxes from
// crop-box space into final-raster space.
package geom

import "github.com/asteria-studio/normalize-core/internal/page"

// Box is re-exported for callers that only need geometry, not the page model.
type Box = page.Box

// Area returns the pixel area of an inclusive box, 0 if degenerate.
func Area(b Box) float64 {
	w := float64(b[2] - b[0] + 1)
	h := float64(b[3] - b[1] + 1)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Intersect returns the intersection box of a and b, and whether it is non-empty.
func Intersect(a, b Box) (Box, bool) {
	x0 := max(a[0], b[0])
	y0 := max(a[1], b[1])
	x1 := min(a[2], b[2])
	y1 := min(a[3], b[3])
	if x1 < x0 || y1 < y0 {
		return Box{}, false
	}
	return Box{x0, y0, x1, y1}, true
}

// Union returns the smallest box containing both a and b.
func Union(a, b Box) Box {
	return Box{
		min(a[0], b[0]),
		min(a[1], b[1]),
		max(a[2], b[2]),
		max(a[3], b[3]),
	}
}

// Contains reports whether outer fully contains inner.
func Contains(outer, inner Box) bool {
	return inner[0] >= outer[0] && inner[1] >= outer[1] && inner[2] <= outer[2] && inner[3] <= outer[3]
}

// Clamp restricts b to lie within bounds.
func Clamp(b, bounds Box) Box {
	return Box{
		clampInt(b[0], bounds[0], bounds[2]),
		clampInt(b[1], bounds[1], bounds[3]),
		clampInt(b[2], bounds[0], bounds[2]),
		clampInt(b[3], bounds[1], bounds[3]),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IoU computes Intersection over Union between two boxes.
func IoU(a, b Box) float64 {
	inter, ok := Intersect(a, b)
	if !ok {
		return 0
	}
	interArea := Area(inter)
	union := Area(a) + Area(b) - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}

// IntersectionRatio returns intersection(a,b) / area(a), used by the quality
// gate to decide whether a normalized mask still covers an expected
// running-head/folio/ornament region.
func IntersectionRatio(a, b Box) float64 {
	inter, ok := Intersect(a, b)
	if !ok {
		return 0
	}
	areaA := Area(a)
	if areaA <= 0 {
		return 0
	}
	return Area(inter) / areaA
}

// ScaleAxes scales a box by independent per-axis ratios, rounding to the
// nearest pixel. Used to map element bboxes from crop-box space to
// final-raster space when the resize was non-uniform (spec's overlay
// alignment open question (c)): the mapping is intentionally per-axis and
// does not attempt an isotropic correction.
func ScaleAxes(b Box, rx, ry float64) Box {
	return Box{
		int(float64(b[0])*rx + 0.5),
		int(float64(b[1])*ry + 0.5),
		int(float64(b[2])*rx + 0.5),
		int(float64(b[3])*ry + 0.5),
	}
}

// Translate shifts a box by (dx, dy).
func Translate(b Box, dx, dy int) Box {
	return Box{b[0] + dx, b[1] + dy, b[2] + dx, b[3] + dy}
}

// Expand grows a box outward by n pixels on every side, then clamps to bounds.
func Expand(b Box, n int, bounds Box) Box {
	return Clamp(Box{b[0] - n, b[1] - n, b[2] + n, b[3] + n}, bounds)
}

// CenterAt translates b so that its center matches the center of target,
// keeping b's width/height.
func CenterAt(b, target Box) Box {
	bw, bh := b[2]-b[0], b[3]-b[1]
	cx, cy := (target[0]+target[2])/2, (target[1]+target[3])/2
	return Box{cx - bw/2, cy - bh/2, cx - bw/2 + bw, cy - bh/2 + bh}
}

// ChebyshevDistance returns the max absolute per-coordinate distance between
// two boxes, used for the book-prior trim-box drift check.
func ChebyshevDistance(a, b Box) int {
	d := 0
	for i := 0; i < 4; i++ {
		v := a[i] - b[i]
		if v < 0 {
			v = -v
		}
		if v > d {
			d = v
		}
	}
	return d
}
