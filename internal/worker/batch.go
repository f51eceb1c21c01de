package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/continuum/internal/model"
)

// Processor checks one story end to end
type Processor interface {
	Process(ctx context.Context, src model.StorySource) (*model.Report, error)
}

// StoryJob checks a single story
type StoryJob struct {
	Source    model.StorySource
	Processor Processor
}

// Execute executes the story job
func (j *StoryJob) Execute(ctx context.Context) Result {
	report, err := j.Processor.Process(ctx, j.Source)
	return &StoryResult{
		StoryID: j.Source.ID,
		Report:  report,
		Error:   err,
	}
}

// StoryResult is the outcome of one story job. Report is nil when Error is set.
type StoryResult struct {
	StoryID string
	Report  *model.Report
	Error   error
}

// GetError returns the error from the story result
func (r *StoryResult) GetError() error {
	return r.Error
}

// BatchProcessor checks many stories concurrently. Stories share no mutable state.
type BatchProcessor struct {
	processor   Processor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// ProcessStories checks the given stories and returns results in input order
func (b *BatchProcessor) ProcessStories(ctx context.Context, sources []model.StorySource) []*StoryResult {
	if len(sources) == 0 {
		return []*StoryResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, src := range sources {
		pool.Submit(&StoryJob{
			Source:    src,
			Processor: b.processor,
		})
	}

	results := pool.Wait()

	out := make([]*StoryResult, len(sources))
	for i := range sources {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*StoryResult)
			continue
		}
		out[i] = &StoryResult{StoryID: sources[i].ID, Error: fmt.Errorf("story %s: not processed: %w", sources[i].ID, context.Cause(ctx))}
	}
	return out
}

// ProcessDir discovers stories in dir and checks them
func (b *BatchProcessor) ProcessDir(ctx context.Context, dir string) ([]*StoryResult, []string, error) {
	sources, skipped, err := DiscoverStories(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("discover stories: %w", err)
	}
	return b.ProcessStories(ctx, sources), skipped, nil
}

var narrativeExts = []string{".txt", ".html", ".htm"}

// DiscoverStories finds story_<id>.{txt,html,htm} files that have a matching
// backstory_<id>.txt. Story ids without a backstory are returned as skipped.
func DiscoverStories(dir string) ([]model.StorySource, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read dir: %w", err)
	}

	var sources []model.StorySource
	var skipped []string
	seen := make(map[string]bool)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if !strings.HasPrefix(name, "story_") {
			continue
		}
		ext := filepath.Ext(name)
		if !contains(narrativeExts, strings.ToLower(ext)) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, "story_"), ext)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		backstory := filepath.Join(dir, "backstory_"+id+".txt")
		if _, err := os.Stat(backstory); err != nil {
			skipped = append(skipped, id)
			continue
		}

		sources = append(sources, model.StorySource{
			ID:        id,
			Narrative: filepath.Join(dir, name),
			Backstory: backstory,
		})
	}

	return sources, skipped, nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
