package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/continuum/internal/model"
	"github.com/ppiankov/continuum/internal/pipeline"
	"github.com/ppiankov/continuum/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Check every story in a directory in parallel",
	Long: `Batch discovers story_<id>.txt (or .html) files with a matching
backstory_<id>.txt in a directory, checks the stories concurrently and
writes one results.csv row per story.

Stories without a backstory are skipped with a warning. A story that fails
produces no row; the failure is reported and the batch continues.

Example:
  continuum batch ./data
  continuum batch ./data --concurrency 4 --output-dir ./out
  continuum batch ./data --submission --timeout 2h`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "stories processed in parallel (default: concurrency.stories)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 6*time.Hour, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	dir := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := checkCredentials(cfg); err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Stories = concurrency
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Continuum Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input dir:    %s\n", dir)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Stories)
	fmt.Fprintf(os.Stderr, "  Provider:     %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.NewPipeline(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Stories)

	fmt.Fprintf(os.Stderr, "⚙️  Discovering stories...\n")
	results, skipped, err := processor.ProcessDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("process dir: %w", err)
	}
	for _, id := range skipped {
		fmt.Fprintf(os.Stderr, "⚠️  story %s: no backstory_%s.txt, skipped\n", id, id)
	}

	summary := writeBatchOutputs(cfg, results)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:        %d stories\n", len(results))
	fmt.Fprintf(os.Stderr, "  Consistent:   %d\n", summary.consistent)
	fmt.Fprintf(os.Stderr, "  Contradicted: %d\n", summary.contradicted)
	fmt.Fprintf(os.Stderr, "  Failures:     %d\n", summary.failed)
	fmt.Fprintf(os.Stderr, "  Skipped:      %d\n", len(skipped))
	fmt.Fprintf(os.Stderr, "  Results:      %s\n", summary.csvPath)
	fmt.Fprintf(os.Stderr, "\n")

	return summary.err
}

type batchSummary struct {
	consistent   int
	contradicted int
	failed       int
	csvPath      string
	err          error
}

// writeBatchOutputs writes debug reports and the results CSV. Failed stories
// are reported but get no CSV row.
func writeBatchOutputs(cfg *model.Config, results []*worker.StoryResult) batchSummary {
	renderer := pipeline.NewRenderer(cfg.Output.Submission)
	var s batchSummary
	var rows []model.StoryResult

	for _, result := range results {
		if result.Error != nil {
			s.failed++
			fmt.Fprintf(os.Stderr, "✗ story %s: %v\n", result.StoryID, result.Error)
			continue
		}

		res := result.Report.Result
		rows = append(rows, res)
		if res.Prediction == 0 {
			s.contradicted++
		} else {
			s.consistent++
		}

		if cfg.Output.DebugReports {
			path := pipeline.ReportPath(cfg.Output.Dir, result.StoryID)
			if err := renderer.RenderJSON(result.Report, path); err != nil {
				fmt.Fprintf(os.Stderr, "✗ story %s: failed to write report: %v\n", result.StoryID, err)
			}
		}

		fmt.Fprintf(os.Stderr, "✓ story %s: %d (%s)\n", result.StoryID, res.Prediction, res.CitedClaim)
	}

	s.csvPath = cfg.Output.CSVPath
	if !filepath.IsAbs(s.csvPath) {
		s.csvPath = filepath.Join(cfg.Output.Dir, s.csvPath)
	}
	if err := renderer.RenderCSV(rows, s.csvPath); err != nil {
		s.err = fmt.Errorf("write results: %w", err)
	}
	return s
}
