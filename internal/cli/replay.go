package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/continuum/internal/pipeline"
)

var replayOut string

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay <report.json>",
	Short: "Recompute a story verdict from a saved debug report",
	Long: `Replay reloads the claims, dependency edges and evidence ledger stored
in a debug report and recomputes every claim score and the story verdict.
No model or network call is made, so scoring constants can be tuned
against recorded evidence.

Example:
  continuum replay continuum-reports/story_12.report.json
  continuum replay report.json --out rescored.json`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayOut, "out", "", "write the recomputed report to this path")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	report, err := pipeline.LoadReport(args[0])
	if err != nil {
		return err
	}

	replayed, err := pipeline.Replay(report, cfg.Scoring)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.Submission)
	renderer.RenderSummary(cmd.OutOrStdout(), replayed)

	if report.Result.Prediction != replayed.Result.Prediction {
		fmt.Fprintf(os.Stderr, "⚠️  prediction changed: %d -> %d\n", report.Result.Prediction, replayed.Result.Prediction)
	}

	if replayOut != "" {
		if err := renderer.RenderJSON(replayed, replayOut); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Report written: %s\n", replayOut)
	}
	return nil
}
