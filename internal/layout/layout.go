// Package layout classifies a normalized page into a layout profile,
// combines that with the normalizer's quality signals into a layout
// confidence score, and decides whether the page needs human review.
package layout

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/asteria-studio/normalize-core/internal/bookpriors"
	"github.com/asteria-studio/normalize-core/internal/constants"
	"github.com/asteria-studio/normalize-core/internal/geom"
	"github.com/asteria-studio/normalize-core/internal/normalize"
	"github.com/asteria-studio/normalize-core/internal/page"
)

// Profile is one of the recognized layout categories.
type Profile string

const (
	ProfileCover           Profile = "cover"
	ProfileTitle           Profile = "title"
	ProfileFrontMatter     Profile = "front-matter"
	ProfileBackMatter      Profile = "back-matter"
	ProfileAppendix        Profile = "appendix"
	ProfileIndex           Profile = "index"
	ProfileIllustration    Profile = "illustration"
	ProfileTable           Profile = "table"
	ProfileChapterOpening  Profile = "chapter-opening"
	ProfileBody            Profile = "body"
	ProfileBlank           Profile = "blank"
	ProfileUnknown         Profile = "unknown"
)

// Classification is the layout classifier's output for one page.
type Classification struct {
	Profile          Profile
	ProfileConfidence float64
	Confidence       float64
	GateReasons      []string
	Accepted         bool
	SuggestedAction  string // "confirm" | "adjust"
	ReviewReason     string // "quality-gate" | "semantic-layout"
}

// Input bundles everything the classifier needs about one normalized page.
type Input struct {
	Filename           string
	PageIndexInCorpus   int
	CorpusSize          int
	Result              *normalize.Result
	CorpusMedianMask    float64
	SpreadSplitConfidence *float64
	Book                *bookpriors.Model
	OutputDimensionsPx  [2]int
}

var filenameCues = []struct {
	needle     string
	profile    Profile
	confidence float64
}{
	{"cover", ProfileCover, 0.95},
	{"title", ProfileTitle, 0.90},
	{"toc", ProfileFrontMatter, 0.85},
	{"contents", ProfileFrontMatter, 0.85},
	{"preface", ProfileFrontMatter, 0.80},
	{"foreword", ProfileFrontMatter, 0.80},
	{"introduction", ProfileFrontMatter, 0.75},
	{"appendix", ProfileAppendix, 0.85},
	{"index", ProfileIndex, 0.85},
	{"glossary", ProfileBackMatter, 0.80},
	{"plate", ProfileIllustration, 0.80},
	{"illustration", ProfileIllustration, 0.85},
	{"fig", ProfileIllustration, 0.75},
	{"table", ProfileTable, 0.80},
	{"chapter", ProfileChapterOpening, 0.80},
	{"chap", ProfileChapterOpening, 0.75},
}

// weights gives the {mask, skew, shadow^-1, noise^-1} weights used
// to combine profile confidence with the quality score.
type weights struct{ mask, skew, shadowInv, noiseInv float64 }

func weightsFor(p Profile) weights {
	switch p {
	case ProfileBody, ProfileChapterOpening:
		return weights{0.40, 0.50, 0.05, 0.05}
	case ProfileIllustration, ProfileBlank:
		return weights{0.30, 0.20, 0.25, 0.25}
	case ProfileTable:
		return weights{0.50, 0.45, 0.025, 0.025}
	case ProfileFrontMatter, ProfileBackMatter:
		return weights{0.35, 0.30, 0.20, 0.15}
	case ProfileCover, ProfileTitle:
		return weights{0.25, 0.25, 0.25, 0.25}
	default:
		return weights{0.45, 0.35, 0.10, 0.10}
	}
}

func profileWeight(p Profile) float64 {
	switch p {
	case ProfileBody, ProfileChapterOpening, ProfileFrontMatter, ProfileBackMatter, ProfileAppendix, ProfileIndex, ProfileTable:
		return 0.55
	case ProfileIllustration, ProfileCover, ProfileTitle, ProfileBlank:
		return 0.35
	default:
		return 0.5
	}
}

var semanticConfirmationThreshold = map[Profile]float64{
	ProfileBody:           0.88,
	ProfileChapterOpening: 0.85,
	ProfileCover:          0.75,
	ProfileTitle:          0.75,
	ProfileFrontMatter:    0.82,
	ProfileBackMatter:     0.82,
	ProfileAppendix:       0.80,
	ProfileIndex:          0.80,
	ProfileTable:          0.80,
	ProfileIllustration:   0.70,
	ProfileBlank:          0.65,
	ProfileUnknown:        0.95,
}

// Classify decides a page's layout profile, combined confidence, gate
// reasons, and review routing.
func Classify(in Input) (Classification, error) {
	if in.Result == nil {
		return Classification{}, fmt.Errorf("layout: classify: nil normalization result")
	}

	profile, profileConf := classifyProfile(in)
	reasons := gateReasons(in)
	accepted := len(reasons) == 0

	w := weightsFor(profile)
	r := in.Result
	quality := w.mask*clamp01(r.Stats.MaskCoverage) +
		w.skew*clamp01(r.Stats.SkewConfidence) +
		w.shadowInv*clamp01(1-r.Stats.ShadowScore/100) +
		w.noiseInv*clamp01(1-r.Stats.BorderStd/64)

	pw := profileWeight(profile)
	combined := pw*profileConf + (1-pw)*quality

	threshold, ok := semanticConfirmationThreshold[profile]
	if !ok {
		threshold = 0.95
	}

	cls := Classification{
		Profile:           profile,
		ProfileConfidence: profileConf,
		Confidence:        clamp01(combined),
		GateReasons:       reasons,
		Accepted:          accepted,
	}

	if accepted && cls.Confidence < threshold {
		cls.SuggestedAction = ""
		cls.ReviewReason = ""
		return cls, nil
	}

	cls.SuggestedAction = "confirm"
	cls.ReviewReason = "semantic-layout"
	if !accepted {
		cls.SuggestedAction = "adjust"
		cls.ReviewReason = "quality-gate"
	}
	return cls, nil
}

func classifyProfile(in Input) (Profile, float64) {
	lower := strings.ToLower(filepath.Base(in.Filename))
	for _, cue := range filenameCues {
		if strings.Contains(lower, cue.needle) {
			return cue.profile, cue.confidence
		}
	}

	r := in.Result
	mask := r.Stats.MaskCoverage
	std := r.Stats.BorderStd

	if mask < 0.12 && std < 8 {
		return ProfileBlank, 0.9
	}
	if mask < 0.35 && std < 18 {
		return ProfileIllustration, 0.75
	}

	if in.CorpusSize > 0 {
		frac := float64(in.PageIndexInCorpus) / float64(in.CorpusSize)
		if frac < 0.10 && mask < 0.55 {
			return ProfileFrontMatter, 0.65
		}
		if frac > 0.90 && mask < 0.55 {
			return ProfileBackMatter, 0.65
		}
	}

	if mask > 0.6 && r.Stats.SkewConfidence > 0.5 {
		return ProfileBody, 0.6
	}

	if mask > 0.6 && r.Corrections.Columns.Count >= 2 {
		return ProfileTable, 0.55
	}

	return ProfileBody, 0.4
}

func gateReasons(in Input) []string {
	r := in.Result
	var reasons []string

	if r.Stats.MaskCoverage < constants.QGLowMaskCoverage {
		reasons = append(reasons, fmt.Sprintf("low-mask-coverage(%.3f)", r.Stats.MaskCoverage))
	}
	if in.CorpusMedianMask > 0 && r.Stats.MaskCoverage < constants.QGMaskDropRatio*in.CorpusMedianMask {
		reasons = append(reasons, "mask-coverage-drop")
	}
	if r.Stats.SkewConfidence < constants.QGLowSkewConfidence {
		reasons = append(reasons, "low-skew-confidence")
	}
	if r.Stats.ShadowScore > constants.QGShadowHeavyScore {
		reasons = append(reasons, "shadow-heavy")
	}
	if r.Stats.BorderStd > constants.QGNoisyBackgroundStd {
		reasons = append(reasons, "noisy-background")
	}
	if r.Shading.Applied && r.Shading.Residual > constants.QGShadingResidualWorse {
		reasons = append(reasons, "shading-residual-worse")
	}
	if r.Shading.Confidence > 0 && r.Shading.Confidence < constants.QGLowShadingConfidence {
		reasons = append(reasons, "low-shading-confidence")
	}

	if in.Book != nil && in.OutputDimensionsPx[0] > 0 {
		reasons = append(reasons, bookModelReasons(in, r)...)
	}

	if isTextProfileLike(r) {
		if absf(r.Warp.ResidualAngle) > constants.QGResidualSkewDeg {
			reasons = append(reasons, fmt.Sprintf("residual-skew-%.2fdeg", r.Warp.ResidualAngle))
		}
		if r.Stats.SkewConfidence < constants.QGBaselineLowSkewConf && r.Stats.BorderStd > constants.QGBaselineHighStd {
			reasons = append(reasons, "potential-baseline-misalignment")
		}
		if r.Stats.BaselineConsistency > 0 && r.Stats.BaselineConsistency < constants.QGLowBaselineConsist {
			reasons = append(reasons, "low-baseline-consistency")
		}
	}

	if in.SpreadSplitConfidence != nil && *in.SpreadSplitConfidence < constants.QGSpreadLowConfidence {
		reasons = append(reasons, "spread-split-low-confidence")
	}

	return reasons
}

func bookModelReasons(in Input, r *normalize.Result) []string {
	var reasons []string
	outW, outH := in.OutputDimensionsPx[0], in.OutputDimensionsPx[1]
	maskBox := r.MaskBox

	for _, head := range in.Book.RunningHeads {
		if head.Confidence < 0.6 {
			continue
		}
		if geom.IntersectionRatio(maskBox, head.Bbox) < constants.QGBookIntersectionRatio {
			reasons = append(reasons, "book-head-missing")
			break
		}
	}
	if in.Book.Folio != nil {
		for _, band := range in.Book.Folio.PositionBands {
			if band.Confidence < 0.6 {
				continue
			}
			bbox := boxFromBand(band.Band, outW, outH)
			if geom.IntersectionRatio(maskBox, bbox) < constants.QGBookIntersectionRatio {
				reasons = append(reasons, "book-folio-missing")
				break
			}
		}
	}
	for _, orn := range in.Book.Ornaments {
		if orn.Confidence < 0.6 {
			continue
		}
		if geom.IntersectionRatio(maskBox, orn.Bbox) < constants.QGBookIntersectionRatio {
			reasons = append(reasons, "book-ornament-missing")
			break
		}
	}
	return reasons
}

func boxFromBand(band [2]int, w, h int) page.Box {
	return page.Box{0, band[0], maxInt(w-1, 0), band[1]}
}

func isTextProfileLike(r *normalize.Result) bool {
	return r.Corrections.Baseline.PeakCount > 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
