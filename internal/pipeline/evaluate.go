package pipeline

import (
	"fmt"
	"sort"

	"github.com/asteria-studio/normalize-core/internal/sidecar"
)

// Evaluation summarizes a Result for a caller that already has it in hand —
// observations as prose, metrics as scalars, and recommendations as
// actionable follow-ups — without re-running the pipeline.
type Evaluation struct {
	Observations    []string
	Metrics         map[string]float64
	Recommendations []string
}

// Evaluate derives an Evaluation from a completed Result.
func Evaluate(result *Result) Evaluation {
	if result == nil {
		return Evaluation{Observations: []string{"no result to evaluate"}}
	}

	total := result.Report.TotalPages
	eval := Evaluation{
		Metrics: map[string]float64{
			"reviewRate":     rate(result.Report.ReviewPages, total),
			"secondPassRate": rate(result.Report.SecondPassPages, total),
			"skippedRate":    rate(result.Report.SkippedPages, total),
			"errorRate":      rate(len(result.Errors), total),
		},
	}

	eval.Observations = append(eval.Observations,
		fmt.Sprintf("%d of %d pages normalized (%s)", result.Report.NormalizedPages, total, result.Status))

	if result.Report.ReviewPages > 0 {
		eval.Observations = append(eval.Observations,
			fmt.Sprintf("%d pages routed to review", result.Report.ReviewPages))
		for reason, count := range reasonCounts(result.ReviewQueue.Items) {
			eval.Observations = append(eval.Observations,
				fmt.Sprintf("  %d page(s) flagged %q", count, reason))
		}
	}
	if result.Report.SecondPassPages > 0 {
		eval.Observations = append(eval.Observations,
			fmt.Sprintf("%d pages required a second normalization pass", result.Report.SecondPassPages))
	}
	if result.Report.SkippedPages > 0 {
		eval.Observations = append(eval.Observations,
			fmt.Sprintf("%d pages were skipped after a per-page failure", result.Report.SkippedPages))
	}
	if avg, ok := averageConfidence(result.ReviewQueue.Items); ok {
		eval.Metrics["averageReviewConfidence"] = avg
	}

	eval.Recommendations = recommendations(eval.Metrics, result)
	sort.Strings(eval.Observations[1:]) // keep the lead line first, rest sorted for stable output
	return eval
}

func rate(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total)
}

func reasonCounts(items []sidecar.ReviewItem) map[string]int {
	counts := make(map[string]int)
	for _, it := range items {
		counts[it.Reason]++
	}
	return counts
}

func averageConfidence(items []sidecar.ReviewItem) (float64, bool) {
	if len(items) == 0 {
		return 0, false
	}
	var sum float64
	for _, it := range items {
		sum += it.Confidence
	}
	return sum / float64(len(items)), true
}

func recommendations(metrics map[string]float64, result *Result) []string {
	var recs []string
	if metrics["reviewRate"] > 0.2 {
		recs = append(recs, "review rate exceeds 20%: consider relaxing quality-gate thresholds or widening book priors confidence")
	}
	if metrics["secondPassRate"] > 0.3 {
		recs = append(recs, "more than 30% of pages needed a second pass: inspect scan lighting and skew consistency across the corpus")
	}
	if metrics["errorRate"] > 0 {
		recs = append(recs, fmt.Sprintf("%d page-level error(s) recorded: inspect result.Errors for phase and page detail", len(result.Errors)))
	}
	if metrics["skippedRate"] > 0.05 {
		recs = append(recs, "more than 5% of pages were skipped: verify source files are readable and in a supported format")
	}
	if len(recs) == 0 {
		recs = append(recs, "no action needed: the run is within expected thresholds")
	}
	return recs
}
