// Package decide reduces scored claims to a single story verdict.
package decide

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/continuum/internal/graph"
	"github.com/ppiankov/continuum/internal/model"
)

// ErrNoClaims is returned when there is nothing to decide on
var ErrNoClaims = errors.New("no scored claims")

const (
	PredictionContradicts = 0
	PredictionConsistent  = 1
)

const maxQuoteRunes = 120

// Aggregator produces the story verdict and its rationale
type Aggregator struct{}

// NewAggregator creates a new aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Decide returns prediction 0 iff some MAJOR claim is effectively fatal
// (directly or through infection). The rationale cites exactly one claim:
// the highest-confidence fatal MAJOR claim, or the highest-confidence claim
// overall when the story is consistent. Ties go to the earliest extracted claim.
func (a *Aggregator) Decide(storyID string, store *graph.Store, scores []model.ClaimScore) (model.StoryResult, error) {
	if len(scores) == 0 {
		return model.StoryResult{}, ErrNoClaims
	}

	var fatal []model.ClaimScore
	for _, s := range scores {
		if s.Importance == model.ImportanceMajor && s.EffectiveSeverity() == model.SeverityFatalContradiction {
			fatal = append(fatal, s)
		}
	}

	result := model.StoryResult{
		StoryID:    storyID,
		Prediction: PredictionConsistent,
	}

	candidates := scores
	if len(fatal) > 0 {
		result.Prediction = PredictionContradicts
		candidates = fatal
	}

	cited := pick(store, candidates)
	result.CitedClaim = cited.ClaimID
	result.Confidence = cited.Confidence
	result.Rationale = rationale(store, cited, result.Prediction)
	return result, nil
}

// pick chooses the highest-confidence score, breaking ties by extraction order
func pick(store *graph.Store, candidates []model.ClaimScore) model.ClaimScore {
	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.Confidence > best.Confidence:
			best = c
		case c.Confidence == best.Confidence && earlier(store, c.ClaimID, best.ClaimID):
			best = c
		}
	}
	return best
}

func earlier(store *graph.Store, a, b string) bool {
	pa, pb := store.Position(a), store.Position(b)
	if pa < 0 || pb < 0 {
		return a < b
	}
	return pa < pb
}

func rationale(store *graph.Store, s model.ClaimScore, prediction int) string {
	text := s.ClaimID
	if c, ok := store.Claim(s.ClaimID); ok {
		text = fmt.Sprintf("%s %q", s.ClaimID, shorten(c.Text))
	}

	if prediction == PredictionContradicts {
		if s.Severity == model.SeverityFatalContradiction {
			return fmt.Sprintf("Major claim %s is contradicted in early, mid and late phases (confidence %.2f)", text, s.Confidence)
		}
		return fmt.Sprintf("Major claim %s presupposes claim %s, which the narrative contradicts throughout (confidence %.2f)", text, s.InfectedBy, s.Confidence)
	}

	switch s.Severity {
	case model.SeveritySoftContradiction:
		return fmt.Sprintf("No major claim is fatally contradicted; strongest signal is a partial contradiction of %s (confidence %.2f)", text, s.Confidence)
	default:
		if s.Confidence == 0 {
			return fmt.Sprintf("No major claim is fatally contradicted; evidence for %s is underdetermined", text)
		}
		return fmt.Sprintf("No major claim is fatally contradicted; strongest evidence is consistent with %s (confidence %.2f)", text, s.Confidence)
	}
}

func shorten(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxQuoteRunes {
		return s
	}
	return string(r[:maxQuoteRunes-1]) + "…"
}
