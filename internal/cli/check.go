package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/continuum/internal/model"
	"github.com/ppiankov/continuum/internal/pipeline"
)

var (
	checkID      string
	checkJSON    string
	checkTimeout time.Duration
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <narrative> <backstory>",
	Short: "Check one backstory against one narrative",
	Long: `Check decomposes a backstory into claims, gathers evidence for each
claim from the early, mid and late phases of the narrative, and prints the
prediction with its rationale.

The narrative may be a .txt or .html file or an http(s) URL (robots.txt is
honoured). The backstory is a text file.

Example:
  continuum check story_12.txt backstory_12.txt
  continuum check https://example.com/novel.html backstory.txt --json report.json
  continuum check story.txt backstory.txt --provider ollama --model llama3.1`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkID, "id", "", "story id (default: derived from the narrative file name)")
	checkCmd.Flags().StringVar(&checkJSON, "json", "", "write the debug report to this path")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 15*time.Minute, "overall timeout for the check")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := checkCredentials(cfg); err != nil {
		return err
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	src := model.StorySource{
		ID:        checkID,
		Narrative: args[0],
		Backstory: args[1],
	}
	if src.ID == "" {
		src.ID = storyIDFromPath(src.Narrative)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Checking story %s\n", src.ID)
		fmt.Fprintf(os.Stderr, "Provider: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Retrieval: %s\n", cfg.Retrieval.Backend)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewPipeline(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	report, err := p.Process(ctx, src)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.Submission)
	renderer.RenderSummary(cmd.OutOrStdout(), report)

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %d claims\n", len(report.Claims))
		fmt.Fprintf(os.Stderr, "✓ Recorded %d verdicts from %d passages\n", len(report.Verdicts), report.Stats.Passages)
	}

	if checkJSON != "" {
		if err := renderer.RenderJSON(report, checkJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Report written: %s\n", checkJSON)
	}

	logger.Debug("check complete", zap.String("run_id", report.RunID))
	return nil
}

// storyIDFromPath derives "12" from story_12.txt or a URL ending in story_12.html
func storyIDFromPath(p string) string {
	if u, err := url.Parse(p); err == nil && u.Scheme != "" && u.Host != "" {
		p = u.Path
	}
	name := path.Base(filepath.ToSlash(p))
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.TrimPrefix(name, "story_")
	if name == "" || name == "/" || name == "." {
		return "story"
	}
	return name
}
