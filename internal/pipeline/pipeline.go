// Package pipeline wires the scanner, orchestrator, config and logging stack
// together behind the two external entry points a caller needs: Run drives
// one full execution end to end, Evaluate turns an already-produced result
// into a human-readable summary. This mirrors how the teacher's root command
// composes its independent packages into one CLI-facing operation.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asteria-studio/normalize-core/internal/config"
	"github.com/asteria-studio/normalize-core/internal/constants"
	"github.com/asteria-studio/normalize-core/internal/normalize"
	"github.com/asteria-studio/normalize-core/internal/obslog"
	"github.com/asteria-studio/normalize-core/internal/orchestrator"
	"github.com/asteria-studio/normalize-core/internal/pipelineerr"
	"github.com/asteria-studio/normalize-core/internal/remotelayout"
	"github.com/asteria-studio/normalize-core/internal/runctl"
	"github.com/asteria-studio/normalize-core/internal/scanner"
	"github.com/asteria-studio/normalize-core/internal/sidecar"
)

// projectConfigPath is the conventional project-level config override
// location; read automatically when the caller doesn't supply overrides
// directly.
const projectConfigPath = "spec/pipeline_config.yaml"

// Options mirrors the parameter object a caller builds one run from.
type Options struct {
	TargetDpi             float64
	TargetDimensionsMm    [2]float64
	SampleCount           int
	RunID                 string
	OutputDir             string
	EnableSpreadSplit     bool
	SpreadSplitConfidence float64
	EnableBookPriors      bool
	BookPriorsSampleCount int
	ConfigOverrides       []byte // raw YAML, same fixed schema as pipeline_config.yaml
	Context               context.Context
	Control               *runctl.Control // caller-owned pause/cancel handle; created if nil
	OnProgress            func(orchestrator.ProgressEvent)
}

// Result is the PipelineRunnerResult returned to callers.
type Result struct {
	RunID       string
	ProjectID   string
	Status      string
	Manifest    sidecar.Manifest
	Report      sidecar.Report
	ReviewQueue sidecar.ReviewQueue
	Errors      []pipelineerr.PageError
}

// Run scans projectRoot, executes one full orchestrator pass over the
// resulting pages, and returns the run's manifest, report and review queue.
// Only a scan-phase failure (empty or unreadable corpus) aborts the run; any
// other failure surfaces inside Result.Errors.
func Run(projectRoot, projectID string, opts Options) (*Result, error) {
	overrides := opts.ConfigOverrides
	if overrides == nil {
		if data, err := os.ReadFile(projectConfigPath); err == nil {
			overrides = data
		}
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load config: %w", err)
	}

	logger, err := obslog.Prepare(obslog.Config{Level: obslog.LevelInfo, FileDir: cfg.ObsDir})
	if err != nil {
		return nil, fmt.Errorf("pipeline: prepare logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	log := obslog.Phase(logger, "pipeline")

	runID := firstNonEmpty(opts.RunID, cfg.RunID, uuid.New().String())
	outputRoot := firstNonEmpty(opts.OutputDir, cfg.OutputDir, ".")
	runOutputDir := filepath.Join(outputRoot, "runs", runID)

	log.Info("scanning corpus", zap.String("root", projectRoot), zap.String("runId", runID))
	runConfig, err := scanner.Scan(projectRoot, scanner.Options{
		ProjectID:          projectID,
		IncludeChecksums:   true,
		TargetDpi:          opts.TargetDpi,
		TargetDimensionsMm: opts.TargetDimensionsMm,
	})
	if err != nil {
		log.Error("scan failed", zap.Error(err))
		return nil, err
	}
	log.Info("scan complete", zap.Int("pages", len(runConfig.Pages)))

	control := opts.Control
	if control == nil {
		parent := opts.Context
		if parent == nil {
			parent = context.Background()
		}
		control = runctl.New(parent)
	}

	collaborator := buildCollaborator(cfg.RemoteLayout, log)

	sampleCount := opts.BookPriorsSampleCount
	if sampleCount <= 0 {
		sampleCount = opts.SampleCount
	}

	orchCfg := orchestrator.Config{
		RunID:                 runID,
		ProjectID:             projectID,
		OutputDir:             runOutputDir,
		Concurrency:           cfg.Concurrency,
		BaseOptions:           baseNormalizeOptions(runConfig, opts),
		TargetDpi:             runConfig.TargetDpi,
		TargetDimensionsMm:    runConfig.TargetDimensionsMm,
		EnableSpreadSplit:     opts.EnableSpreadSplit,
		SpreadSplitConfidence: firstPositive(opts.SpreadSplitConfidence, constants.SpreadDefaultConfidence),
		EnableBookPriors:      opts.EnableBookPriors,
		BookPriorsSampleCount: sampleCount,
		RemoteLayout:          collaborator,
		Control:               control,
		OnProgress:            opts.OnProgress,
	}

	result, err := orchestrator.Run(runConfig.Pages, orchCfg)
	if err != nil {
		log.Error("run failed", zap.Error(err))
		return nil, err
	}
	log.Info("run complete",
		zap.String("status", result.Report.Status),
		zap.Int("normalized", result.Report.NormalizedPages),
		zap.Int("review", result.Report.ReviewPages),
		zap.Int("errors", len(result.Errors)),
	)

	return &Result{
		RunID:       runID,
		ProjectID:   projectID,
		Status:      result.Report.Status,
		Manifest:    result.Manifest,
		Report:      result.Report,
		ReviewQueue: result.ReviewQueue,
		Errors:      result.Errors,
	}, nil
}

func buildCollaborator(rl config.RemoteLayoutConfig, log *zap.Logger) remotelayout.Collaborator {
	if !rl.Enabled {
		return nil
	}
	client, err := remotelayout.NewHTTPClient(remotelayout.Config{
		Endpoint:        rl.Endpoint,
		Token:           rl.Token,
		TimeoutMs:       rl.TimeoutMs,
		MaxPayloadBytes: rl.MaxPayloadBytes,
		MaxDimension:    rl.MaxDimension,
	})
	if err != nil {
		log.Warn("remote layout collaborator disabled: invalid configuration", zap.Error(err))
		return nil
	}
	return client
}

func baseNormalizeOptions(runConfig *scanner.PipelineRunConfig, opts Options) normalize.Options {
	fallbackDpi := runConfig.TargetDpi
	if fallbackDpi <= 0 {
		fallbackDpi = constants.DefaultFallbackDpi
	}
	return normalize.Options{
		SkewRefinement:     normalize.RefinementOn,
		GeneratePreviews:   true,
		TargetDimensionsMm: runConfig.TargetDimensionsMm,
		FallbackDpi:        fallbackDpi,
		Shading: normalize.ShadingOptions{
			Enabled:             true,
			MaxResidualIncrease: constants.QGShadingResidualWorse - 1,
			MaxHighlightShift:   10,
			ConfidenceFloor:     constants.QGLowShadingConfidence,
		},
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
