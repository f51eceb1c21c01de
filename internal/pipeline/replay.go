package pipeline

import (
	"fmt"

	"github.com/ppiankov/continuum/internal/decide"
	"github.com/ppiankov/continuum/internal/graph"
	"github.com/ppiankov/continuum/internal/ledger"
	"github.com/ppiankov/continuum/internal/model"
	"github.com/ppiankov/continuum/internal/propagate"
	"github.com/ppiankov/continuum/internal/score"
)

// Replay rebuilds the claim store and evidence ledger recorded in a report
// and recomputes scores and the story result without any external call.
// Run metadata and stats are carried over unchanged.
func Replay(report *model.Report, scoring model.ScoringConfig) (*model.Report, error) {
	store, err := graph.FromSnapshot(report.Claims, report.Edges)
	if err != nil {
		return nil, storyErr(report.StoryID, StageClaims, err)
	}
	warnings := store.BreakCycles()

	l := ledger.FromVerdicts(report.Verdicts)
	for _, v := range report.Verdicts {
		if _, ok := store.Claim(v.ClaimID); !ok {
			return nil, storyErr(report.StoryID, StageClaims, fmt.Errorf("verdict for %w", &graph.UnknownClaimError{ID: v.ClaimID}))
		}
	}

	scores := score.NewScorerFromConfig(scoring).ScoreAll(store, l)
	scores = propagate.New(store).Propagate(scores)

	result, err := decide.NewAggregator().Decide(report.StoryID, store, scores)
	if err != nil {
		return nil, storyErr(report.StoryID, StageDecide, err)
	}
	result.Warnings = warnings

	out := *report
	out.Result = result
	out.Claims = store.Claims()
	out.Edges = store.SuppliedEdges()
	out.Scores = scores
	out.Verdicts = l.All()
	return &out, nil
}
