// Package orchestrator sequences one run's phases (spread-split, analysis,
// book-priors sampling, first and second normalization passes, artifact
// writing, cleanup), manages its worker pools, and applies cooperative
// pause/cancellation. Concurrency follows the teacher's semaphore-plus-
// WaitGroup embedding pool, sized per page exactly as a headless batch job
// would be.
package orchestrator

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/asteria-studio/normalize-core/internal/analyzer"
	"github.com/asteria-studio/normalize-core/internal/bookpriors"
	"github.com/asteria-studio/normalize-core/internal/constants"
	"github.com/asteria-studio/normalize-core/internal/layout"
	"github.com/asteria-studio/normalize-core/internal/normalize"
	"github.com/asteria-studio/normalize-core/internal/page"
	"github.com/asteria-studio/normalize-core/internal/pipelineerr"
	"github.com/asteria-studio/normalize-core/internal/remotelayout"
	"github.com/asteria-studio/normalize-core/internal/runctl"
	"github.com/asteria-studio/normalize-core/internal/scanner"
	"github.com/asteria-studio/normalize-core/internal/sidecar"
)

// ProgressEvent reports coarse progress to the caller's onProgress hook.
type ProgressEvent struct {
	Phase     string
	Completed int
	Total     int
}

// Config bundles everything one run needs beyond the scanned page list.
type Config struct {
	RunID                 string
	ProjectID             string
	OutputDir             string
	Concurrency           int
	BaseOptions           normalize.Options
	TargetDpi             float64
	TargetDimensionsMm    [2]float64
	EnableSpreadSplit     bool
	SpreadSplitConfidence float64
	EnableBookPriors      bool
	BookPriorsSampleCount int
	RemoteLayout          remotelayout.Collaborator
	Control               *runctl.Control
	OnProgress            func(ProgressEvent)
}

// Result is everything a run produced: the artifacts written to disk, plus
// an in-memory summary a caller can inspect without re-reading them.
type Result struct {
	Manifest    sidecar.Manifest
	Report      sidecar.Report
	ReviewQueue sidecar.ReviewQueue
	Errors      []pipelineerr.PageError
	Cancelled   bool
}

type pageOutcome struct {
	page           page.Page
	result         *normalize.Result
	classification layout.Classification
	secondPass     bool
}

func (c *Config) report(phase string, completed, total int) {
	if c.OnProgress != nil {
		c.OnProgress(ProgressEvent{Phase: phase, Completed: completed, Total: total})
	}
}

// Run executes one full pipeline run over pages and writes every artifact
// under cfg.OutputDir.
func Run(pages []page.Page, cfg Config) (*Result, error) {
	if cfg.Control == nil {
		cfg.Control = runctl.New(context.Background())
	}
	control := cfg.Control
	errs := &pipelineerr.Collector{}

	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	checksums := make([]checksumEntry, 0, len(pages))
	for _, p := range pages {
		checksums = append(checksums, checksumEntry{PageID: p.ID, Checksum: p.Checksum})
	}
	if err := cleanupStaleOutputs(manifestPath, checksums); err != nil {
		errs.Add(pipelineerr.PhaseScan, "", err)
	}

	pages, err := runSpreadSplit(pages, cfg, control, errs)
	if err != nil {
		return nil, err
	}
	if cancelled := control.Cancelled(); cancelled {
		return finalizeCancelled(cfg, nil, nil, errs)
	}

	runConfig := &scanner.PipelineRunConfig{
		ProjectID:          cfg.ProjectID,
		Pages:              pages,
		TargetDpi:          cfg.TargetDpi,
		TargetDimensionsMm: cfg.TargetDimensionsMm,
	}
	summary, err := analyzer.Analyze(runConfig)
	if err != nil {
		errs.Add(pipelineerr.PhaseAnalysis, "", err)
		summary = fallbackSummary(runConfig)
	}
	boundsByID := make(map[string]page.BoundsEstimate, len(summary.Estimates))
	for _, e := range summary.Estimates {
		boundsByID[e.PageID] = e
	}

	if control.Cancelled() {
		return finalizeCancelled(cfg, nil, nil, errs)
	}

	var bookModel *bookpriors.Model
	if cfg.EnableBookPriors {
		bookModel = runBookPriorsSample(pages, boundsByID, cfg, control, errs)
	}

	if control.Cancelled() {
		return finalizeCancelled(cfg, nil, bookModel, errs)
	}

	outcomes := runFirstPass(pages, boundsByID, bookModel, cfg, control, errs)

	if control.Cancelled() {
		return finalizeCancelled(cfg, outcomes, bookModel, errs)
	}

	outcomes = runSecondPass(outcomes, boundsByID, bookModel, cfg, control, errs)

	return finalizeRun(cfg, outcomes, bookModel, errs, false)
}

func runSpreadSplit(pages []page.Page, cfg Config, control *runctl.Control, errs *pipelineerr.Collector) ([]page.Page, error) {
	if !cfg.EnableSpreadSplit {
		return pages, nil
	}
	splitDir := filepath.Join(cfg.OutputDir, "spreads")
	out := make([]page.Page, 0, len(pages))
	for i, p := range pages {
		if err := control.Wait(); err != nil {
			return out, nil
		}
		children, err := splitPageIfSpread(p, cfg.SpreadSplitConfidence, splitDir)
		if err != nil {
			errs.Add(pipelineerr.PhaseSpreadSplit, p.ID, err)
			children = []page.Page{p}
		}
		out = append(out, children...)
		cfg.report("spread-split", i+1, len(pages))
	}
	return out, nil
}

func fallbackSummary(cfg *scanner.PipelineRunConfig) *analyzer.CorpusSummary {
	estimates := make([]page.BoundsEstimate, 0, len(cfg.Pages))
	for _, p := range cfg.Pages {
		estimates = append(estimates, page.BoundsEstimate{PageID: p.ID})
	}
	return &analyzer.CorpusSummary{ProjectID: cfg.ProjectID, Estimates: estimates}
}

func runBookPriorsSample(pages []page.Page, boundsByID map[string]page.BoundsEstimate, cfg Config, control *runctl.Control, errs *pipelineerr.Collector) *bookpriors.Model {
	sampleCount := cfg.BookPriorsSampleCount
	if sampleCount <= 0 {
		sampleCount = constants.BookPriorsDefaultSampleCount
	}
	if sampleCount > len(pages) {
		sampleCount = len(pages)
	}
	sample := pages[:sampleCount]

	pool := poolSize(constants.BookPriorsMaxPool, len(sample))
	if pool > cfg.Concurrency && cfg.Concurrency > 0 {
		pool = cfg.Concurrency
	}

	var mu sync.Mutex
	var samples []bookpriors.Sample
	var sampleErr error

	g, _ := errgroup.WithContext(control.Context())
	g.SetLimit(pool)
	for _, p := range sample {
		p := p
		g.Go(func() error {
			if err := control.Wait(); err != nil {
				return nil
			}
			opts := cfg.BaseOptions
			opts.OutputDir = filepath.Join(cfg.OutputDir, "normalized")
			opts.PreviewDir = filepath.Join(cfg.OutputDir, "previews")
			r, err := normalize.Normalize(p, boundsByID[p.ID], opts)
			if err != nil {
				mu.Lock()
				if sampleErr == nil {
					sampleErr = err
				}
				mu.Unlock()
				return nil
			}
			mu.Lock()
			samples = append(samples, bookpriors.Sample{Result: r})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if sampleErr != nil {
		errs.Add(pipelineerr.PhaseBookPriors, "", sampleErr)
	}
	if len(samples) == 0 {
		return nil
	}

	model, err := bookpriors.Build(samples, loadNormalizedImage, sampleCount)
	if err != nil {
		errs.Add(pipelineerr.PhaseBookPriors, "", err)
		return nil
	}
	return model
}

type indexedPage struct {
	index int
	page  page.Page
}

func runFirstPass(pages []page.Page, boundsByID map[string]page.BoundsEstimate, bookModel *bookpriors.Model, cfg Config, control *runctl.Control, errs *pipelineerr.Collector) []pageOutcome {
	pool := poolSize(cfg.Concurrency, len(pages))
	var mu sync.Mutex
	var completed int

	items := make([]indexedPage, len(pages))
	for i, p := range pages {
		items[i] = indexedPage{index: i, page: p}
	}

	results := runPool(items, pool, func(it indexedPage) pageOutcome {
		p := it.page
		if err := control.Wait(); err != nil {
			return pageOutcome{page: p}
		}
		opts := cfg.BaseOptions
		opts.OutputDir = filepath.Join(cfg.OutputDir, "normalized")
		opts.PreviewDir = filepath.Join(cfg.OutputDir, "previews")
		if bookModel != nil {
			opts.BookPriors.Model = bookModel.AsNormalizeModel(bookPriorsConfidence(bookModel))
		}

		r, err := normalize.Normalize(p, boundsByID[p.ID], opts)
		mu.Lock()
		completed++
		cfg.report("first-pass", completed, len(pages))
		mu.Unlock()
		if err != nil {
			errs.Add(pipelineerr.PhaseNormalize, p.ID, err)
			return pageOutcome{page: p}
		}
		cls, err := layout.Classify(layout.Input{
			Filename:          p.Filename,
			Result:            r,
			Book:              bookModel,
			CorpusSize:        len(pages),
			PageIndexInCorpus: it.index,
		})
		if err != nil {
			errs.Add(pipelineerr.PhaseNormalize, p.ID, err)
		}
		return pageOutcome{page: p, result: r, classification: cls}
	})
	return results
}

func runSecondPass(outcomes []pageOutcome, boundsByID map[string]page.BoundsEstimate, bookModel *bookpriors.Model, cfg Config, control *runctl.Control, errs *pipelineerr.Collector) []pageOutcome {
	var needsRetry []int
	for i, o := range outcomes {
		if o.result != nil && !o.classification.Accepted {
			needsRetry = append(needsRetry, i)
		}
	}
	if len(needsRetry) == 0 {
		return outcomes
	}

	pool := poolSize(cfg.Concurrency, len(needsRetry))
	var mu sync.Mutex
	var completed int

	retried := runPool(needsRetry, pool, func(i int) pageOutcome {
		if err := control.Wait(); err != nil {
			return outcomes[i]
		}
		o := outcomes[i]
		opts := relaxSecondPassOptions(cfg.BaseOptions)
		opts.OutputDir = filepath.Join(cfg.OutputDir, "normalized")
		opts.PreviewDir = filepath.Join(cfg.OutputDir, "previews")
		if bookModel != nil {
			opts.BookPriors.Model = bookModel.AsNormalizeModel(bookPriorsConfidence(bookModel))
		}

		r, err := normalize.Normalize(o.page, boundsByID[o.page.ID], opts)
		mu.Lock()
		completed++
		cfg.report("second-pass", completed, len(needsRetry))
		mu.Unlock()
		if err != nil {
			errs.Add(pipelineerr.PhaseNormalize, o.page.ID, err)
			return o
		}
		cls, err := layout.Classify(layout.Input{Filename: o.page.Filename, Result: r, Book: bookModel})
		if err != nil {
			errs.Add(pipelineerr.PhaseNormalize, o.page.ID, err)
		}
		return pageOutcome{page: o.page, result: r, classification: cls, secondPass: true}
	})

	for j, i := range needsRetry {
		outcomes[i] = retried[j]
	}
	return outcomes
}

func bookPriorsConfidence(m *bookpriors.Model) float64 {
	if m == nil {
		return 0
	}
	if m.SampleCount <= 0 {
		return 0.5
	}
	return numericClamp01(float64(m.SampleCount) / float64(constants.BookPriorsDefaultSampleCount))
}

func numericClamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func loadNormalizedImage(path string) (image.Image, error) {
	return openOutput(path)
}

func finalizeCancelled(cfg Config, outcomes []pageOutcome, bookModel *bookpriors.Model, errs *pipelineerr.Collector) (*Result, error) {
	res, err := finalizeRun(cfg, outcomes, bookModel, errs, true)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func finalizeRun(cfg Config, outcomes []pageOutcome, bookModel *bookpriors.Model, errs *pipelineerr.Collector, cancelled bool) (*Result, error) {
	manifest := sidecar.Manifest{RunID: cfg.RunID, ProjectID: cfg.ProjectID}
	review := sidecar.ReviewQueue{RunID: cfg.RunID}

	var normalizedCount, skippedCount, reviewCount, secondPassCount int

	sidecarDir := filepath.Join(cfg.OutputDir, "sidecars")
	overlayDir := filepath.Join(cfg.OutputDir, "overlays")

	for _, o := range outcomes {
		mp := sidecar.ManifestPage{PageID: o.page.ID, SourcePath: o.page.OriginalPath, Checksum: o.page.Checksum}
		if o.result == nil {
			mp.Status = "failed"
			skippedCount++
			manifest.Pages = append(manifest.Pages, mp)
			continue
		}

		normalizedCount++
		if o.secondPass {
			secondPassCount++
		}
		mp.Status = "normalized"
		mp.NormalizedFile = o.result.OutputPath
		mp.Profile = string(o.classification.Profile)
		for _, prev := range o.result.Previews {
			mp.PreviewFiles = append(mp.PreviewFiles, prev.Path)
		}

		elements := buildElements(cfg.Control.Context(), o.result, cfg.RemoteLayout, errs)

		sc := sidecar.FromResult(sidecar.BuildInput{
			Page:           o.page,
			Result:         o.result,
			Classification: o.classification,
			Elements:       elements,
			BookModel:      bookModel,
		})
		sidecarPath := filepath.Join(sidecarDir, o.page.ID+".json")
		if err := sidecar.WriteJSON(sidecarPath, sc); err != nil {
			errs.Add(pipelineerr.PhaseSidecar, o.page.ID, err)
		} else {
			mp.SidecarFile = sidecarPath
		}

		var overlayRef *sidecar.PreviewRef
		if img, err := openOutput(o.result.OutputPath); err == nil {
			overlayPath := filepath.Join(overlayDir, o.page.ID+"-overlay.png")
			if err := sidecar.WriteOverlay(overlayPath, img, elements, nil); err != nil {
				errs.Add(pipelineerr.PhaseOverlay, o.page.ID, err)
			} else {
				mp.OverlayFile = overlayPath
				b := img.Bounds()
				overlayRef = &sidecar.PreviewRef{Kind: "overlay", Path: overlayPath, Width: b.Dx(), Height: b.Dy()}
			}
		}

		if o.classification.ReviewReason != "" {
			reviewCount++
			previews := reviewPreviews(o.result.Previews)
			if overlayRef != nil {
				previews = append(previews, *overlayRef)
			}
			review.Items = append(review.Items, sidecar.ReviewItem{
				PageID:          o.page.ID,
				Filename:        o.page.Filename,
				Profile:         string(o.classification.Profile),
				Confidence:      o.classification.Confidence,
				Reason:          o.classification.ReviewReason,
				SuggestedAction: o.classification.SuggestedAction,
				GateReasons:     o.classification.GateReasons,
				QualityGate: sidecar.QualityGateStatus{
					Accepted: o.classification.Accepted,
					Reasons:  o.classification.GateReasons,
				},
				Previews: previews,
			})
		}

		manifest.Pages = append(manifest.Pages, mp)
	}
	manifest.SortPages()

	det, err := determinism(cfg.BaseOptions)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: compute determinism: %w", err)
	}

	status := "completed"
	if cancelled {
		status = "cancelled"
	}
	report := sidecar.Report{
		RunID:           cfg.RunID,
		ProjectID:       cfg.ProjectID,
		Status:          status,
		TotalPages:      len(manifest.Pages),
		NormalizedPages: normalizedCount,
		SkippedPages:    skippedCount,
		ReviewPages:     reviewCount,
		SecondPassPages: secondPassCount,
		Errors:          errs.All(),
		Determinism:     det,
	}

	if err := sidecar.WriteJSON(filepath.Join(cfg.OutputDir, "manifest.json"), manifest); err != nil {
		return nil, fmt.Errorf("orchestrator: write manifest: %w", err)
	}
	if err := sidecar.WriteJSON(filepath.Join(cfg.OutputDir, "report.json"), report); err != nil {
		return nil, fmt.Errorf("orchestrator: write report: %w", err)
	}
	if err := sidecar.WriteJSON(filepath.Join(cfg.OutputDir, "review-queue.json"), review); err != nil {
		return nil, fmt.Errorf("orchestrator: write review queue: %w", err)
	}

	runIndexPath := filepath.Join(filepath.Dir(cfg.OutputDir), "run-index.json")
	if err := sidecar.UpsertRunRecord(runIndexPath, sidecar.RunRecord{RunID: cfg.RunID, ProjectID: cfg.ProjectID, Status: status}); err != nil {
		errs.Add(pipelineerr.PhaseScan, "", err)
	}

	if cfg.Control != nil {
		cfg.Control.Complete()
	}

	return &Result{
		Manifest:    manifest,
		Report:      report,
		ReviewQueue: review,
		Errors:      errs.All(),
		Cancelled:   cancelled,
	}, nil
}
