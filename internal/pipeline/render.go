package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ppiankov/continuum/internal/model"
)

// Renderer writes results and debug reports
type Renderer struct {
	submission bool
}

// NewRenderer creates a renderer. Submission mode drops the confidence column.
func NewRenderer(submission bool) *Renderer {
	return &Renderer{submission: submission}
}

// WriteCSV writes one row per story result
func (r *Renderer) WriteCSV(w io.Writer, results []model.StoryResult) error {
	cw := csv.NewWriter(w)

	header := []string{"story_id", "prediction", "rationale"}
	if !r.submission {
		header = []string{"story_id", "prediction", "confidence_score", "rationale"}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, res := range results {
		row := []string{res.StoryID, strconv.Itoa(res.Prediction), res.Rationale}
		if !r.submission {
			row = []string{res.StoryID, strconv.Itoa(res.Prediction), strconv.FormatFloat(res.Confidence, 'f', 3, 64), res.Rationale}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// RenderCSV writes the results file at path, creating parent directories
func (r *Renderer) RenderCSV(results []model.StoryResult, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := r.WriteCSV(f, results); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}

// RenderJSON writes the debug report to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// ReportPath is where the debug report for a story lives under dir
func ReportPath(dir, storyID string) string {
	return filepath.Join(dir, "story_"+storyID+".report.json")
}

// LoadReport reads a debug report written by RenderJSON
func LoadReport(path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// RenderSummary prints a short human-readable verdict for one story
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	res := report.Result
	verdict := "CONSISTENT"
	if res.Prediction == 0 {
		verdict = "CONTRADICTED"
	}

	fmt.Fprintf(w, "\n📖 Story %s: %s (confidence %.2f)\n", res.StoryID, verdict, res.Confidence)
	fmt.Fprintf(w, "   %s\n", res.Rationale)
	fmt.Fprintf(w, "   Claims: %d | Verdicts: %d | Underdetermined: %d\n",
		len(report.Claims), len(report.Verdicts), report.Stats.UnderdeterminedIDs)

	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "   ⚠️  %s\n", warn.Error())
	}
}
