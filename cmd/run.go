package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/asteria-studio/normalize-core/internal/orchestrator"
	"github.com/asteria-studio/normalize-core/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run <projectRoot>",
	Short: "Normalize every page under projectRoot into a new run",
	Long: `Scans projectRoot for supported page images, runs the full
normalization pipeline, and writes manifest.json, report.json and
review-queue.json under --output/runs/<run-id>.

Examples:
  # Normalize a corpus with the default settings
  normalize-core run ./scans/volume-3

  # Target a known trim size and enable spread splitting
  normalize-core run ./scans/volume-3 --target-width-mm 184.15 --target-height-mm 260.35 --spread-split

  # Sample the corpus to build book priors before the main pass
  normalize-core run ./scans/volume-3 --book-priors --sample-count 40`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("project-id", "", "Identifier recorded in the run's manifest and report (defaults to the root directory name)")
	runCmd.Flags().String("run-id", "", "Explicit run id (defaults to a generated one)")
	runCmd.Flags().String("output", "./output", "Output root; artifacts are written under <output>/runs/<run-id>")
	runCmd.Flags().Float64("target-dpi", 0, "Expected scan DPI; inferred per page when unset")
	runCmd.Flags().Float64("target-width-mm", 0, "Target trimmed page width in millimeters")
	runCmd.Flags().Float64("target-height-mm", 0, "Target trimmed page height in millimeters")
	runCmd.Flags().Bool("spread-split", false, "Detect and split two-page spreads before normalization")
	runCmd.Flags().Float64("spread-split-confidence", 0, "Confidence threshold for spread detection (0 uses the pipeline default)")
	runCmd.Flags().Bool("book-priors", false, "Sample the corpus first to build book-wide alignment priors")
	runCmd.Flags().Int("sample-count", 0, "Number of pages to sample for book priors (0 uses the pipeline default)")
	runCmd.Flags().String("config", "", "Path to a pipeline_config.yaml override file")
}

func runRun(cmd *cobra.Command, args []string) error {
	root := args[0]
	projectID := mustGetString(cmd, "project-id")
	if projectID == "" {
		projectID = defaultProjectID(root)
	}

	var overrides []byte
	if path := mustGetString(cmd, "config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config override %s: %w", path, err)
		}
		overrides = data
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bars := newPhaseBars()
	opts := pipeline.Options{
		TargetDpi:             mustGetFloat64(cmd, "target-dpi"),
		TargetDimensionsMm:    [2]float64{mustGetFloat64(cmd, "target-width-mm"), mustGetFloat64(cmd, "target-height-mm")},
		SampleCount:           mustGetInt(cmd, "sample-count"),
		RunID:                 mustGetString(cmd, "run-id"),
		OutputDir:             mustGetString(cmd, "output"),
		EnableSpreadSplit:     mustGetBool(cmd, "spread-split"),
		SpreadSplitConfidence: mustGetFloat64(cmd, "spread-split-confidence"),
		EnableBookPriors:      mustGetBool(cmd, "book-priors"),
		BookPriorsSampleCount: mustGetInt(cmd, "sample-count"),
		ConfigOverrides:       overrides,
		Context:               ctx,
		OnProgress:            bars.report,
	}

	result, err := pipeline.Run(root, projectID, opts)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	bars.finish()

	fmt.Printf("\nrun %s: %s\n", result.RunID, result.Status)
	fmt.Printf("  normalized: %d  review: %d  second-pass: %d  skipped: %d  errors: %d\n",
		result.Report.NormalizedPages, result.Report.ReviewPages, result.Report.SecondPassPages,
		result.Report.SkippedPages, len(result.Errors))

	eval := pipeline.Evaluate(result)
	for _, obs := range eval.Observations {
		fmt.Println("  " + obs)
	}
	for _, rec := range eval.Recommendations {
		fmt.Println("  recommendation: " + rec)
	}

	if result.Status == "cancelled" {
		return fmt.Errorf("run %s was cancelled", result.RunID)
	}
	return nil
}

func defaultProjectID(root string) string {
	return filepath.Base(filepath.Clean(root))
}

// phaseBars renders one progressbar.ProgressBar per orchestrator phase,
// created lazily the first time that phase reports progress.
type phaseBars struct {
	mu   sync.Mutex
	bars map[string]*progressbar.ProgressBar
}

func newPhaseBars() *phaseBars {
	return &phaseBars{bars: make(map[string]*progressbar.ProgressBar)}
}

func (p *phaseBars) report(ev orchestrator.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bar, ok := p.bars[ev.Phase]
	if !ok {
		bar = progressbar.NewOptions(ev.Total,
			progressbar.OptionSetDescription(ev.Phase),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("pages"),
			progressbar.OptionShowElapsedTimeOnFinish(),
		)
		p.bars[ev.Phase] = bar
	}
	_ = bar.Set(ev.Completed)
}

func (p *phaseBars) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, bar := range p.bars {
		_ = bar.Finish()
	}
	fmt.Println()
}
