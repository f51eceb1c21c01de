package score

import (
	"fmt"

	"github.com/ppiankov/continuum/internal/graph"
	"github.com/ppiankov/continuum/internal/ledger"
	"github.com/ppiankov/continuum/internal/model"
)

// Default tuning constants
const (
	DefaultContradictionThreshold = 0.75
	DefaultComparableMargin       = 0.05
	DefaultOverrideWeight         = 0.3
)

// Scorer converts a claim's ledger entries into a severity and confidence
type Scorer struct {
	threshold      float64 // CONTRADICTS confidence needed to contradict a phase
	margin         float64 // SUPPORTS within this distance of the strongest CONTRADICTS blocks it
	overrideWeight float64 // weight of verdicts that lost their phase
}

// NewScorer creates a scorer with the default constants
func NewScorer() *Scorer {
	return &Scorer{
		threshold:      DefaultContradictionThreshold,
		margin:         DefaultComparableMargin,
		overrideWeight: DefaultOverrideWeight,
	}
}

// NewScorerFromConfig creates a scorer from configuration, falling back to
// defaults for unset values. A zero threshold counts as unset; margin and
// override weight may be set to zero explicitly.
func NewScorerFromConfig(cfg model.ScoringConfig) *Scorer {
	s := NewScorer()
	if cfg.ContradictionThreshold > 0 {
		s.threshold = cfg.ContradictionThreshold
	}
	if cfg.ComparableMargin != nil {
		s.margin = max(*cfg.ComparableMargin, 0)
	}
	if cfg.OverrideWeight != nil {
		s.overrideWeight = max(*cfg.OverrideWeight, 0)
	}
	return s
}

// ScoreAll scores every claim in the store, in store order
func (s *Scorer) ScoreAll(store *graph.Store, l *ledger.Ledger) []model.ClaimScore {
	claims := store.Claims()
	scores := make([]model.ClaimScore, 0, len(claims))
	for _, c := range claims {
		scores = append(scores, s.Score(c, l.ClaimVerdicts(c.ID)))
	}
	return scores
}

// Score classifies one claim from its verdicts grouped by phase
func (s *Scorer) Score(claim model.Claim, verdicts map[model.Phase][]model.EvidenceVerdict) model.ClaimScore {
	result := model.ClaimScore{
		ClaimID:    claim.ID,
		Importance: claim.Importance,
		Phases:     make(map[model.Phase]model.PhaseOutcome, len(model.Phases)),
	}

	var weightedSum, weightTotal float64
	contradicted := 0

	for _, phase := range model.Phases {
		outcome, contributions, signal := s.evaluatePhase(phase, verdicts[phase])
		result.Phases[phase] = outcome
		result.Signals = append(result.Signals, signal)

		if outcome == model.OutcomeContradicted {
			contradicted++
		}
		for _, c := range contributions {
			weightedSum += c.weight * c.confidence
			weightTotal += c.weight
		}
	}

	result.Severity, result.Signals = s.classify(claim.Importance, contradicted, result.Signals)

	if weightTotal > 0 {
		result.Confidence = weightedSum / weightTotal
	}
	result.Signals = append(result.Signals, model.Signal{
		Type:        model.SignalConfidence,
		Description: fmt.Sprintf("Weighted confidence: %.2f", result.Confidence),
		Data: map[string]interface{}{
			"weighted_sum":    weightedSum,
			"weight_total":    weightTotal,
			"override_weight": s.overrideWeight,
			"formula":         "sum(w_i * c_i) / sum(w_i), w=override for verdicts overridden by the opposing side, else 1.0",
		},
	})

	return result
}

// contribution is one verdict's share of the confidence mean
type contribution struct {
	confidence float64
	weight     float64
}

// evaluatePhase reduces one phase's verdicts to an outcome
func (s *Scorer) evaluatePhase(phase model.Phase, verdicts []model.EvidenceVerdict) (model.PhaseOutcome, []contribution, model.Signal) {
	var maxContra, maxSupport float64
	hasSupport := false
	counted := 0

	for _, v := range verdicts {
		switch v.Relation {
		case model.RelationContradicts:
			maxContra = max(maxContra, v.Confidence)
		case model.RelationSupports:
			hasSupport = true
			maxSupport = max(maxSupport, v.Confidence)
		case model.RelationConstrains:
		default:
			continue
		}
		counted++
	}

	data := map[string]interface{}{
		"verdicts":        len(verdicts),
		"counted":         counted,
		"max_contradicts": maxContra,
		"max_supports":    maxSupport,
		"threshold":       s.threshold,
		"margin":          s.margin,
	}

	if counted == 0 {
		return model.OutcomeUnderdetermined, nil, model.Signal{
			Type:        model.SignalPhaseOutcome,
			Phase:       phase,
			Description: fmt.Sprintf("%s: no usable evidence", phase),
			Data:        data,
		}
	}

	blocked := hasSupport && maxSupport >= maxContra-s.margin
	contradicted := maxContra >= s.threshold && !blocked
	// Support only overrides a contradiction strong enough to have won the phase
	supportWon := blocked && maxContra >= s.threshold

	contributions := make([]contribution, 0, counted)
	for _, v := range verdicts {
		if v.Relation == model.RelationNeutral {
			continue
		}
		w := 1.0
		if overridden(v.Relation, contradicted, supportWon) {
			w = s.overrideWeight
		}
		contributions = append(contributions, contribution{confidence: v.Confidence, weight: w})
	}

	if contradicted {
		return model.OutcomeContradicted, contributions, model.Signal{
			Type:        model.SignalPhaseOutcome,
			Phase:       phase,
			Description: fmt.Sprintf("%s: contradicted (%.2f >= %.2f)", phase, maxContra, s.threshold),
			Data:        data,
		}
	}

	desc := fmt.Sprintf("%s: consistent", phase)
	if blocked && maxContra >= s.threshold {
		desc = fmt.Sprintf("%s: contradiction %.2f offset by support %.2f", phase, maxContra, maxSupport)
	}
	return model.OutcomeConsistent, contributions, model.Signal{
		Type:        model.SignalPhaseOutcome,
		Phase:       phase,
		Description: desc,
		Data:        data,
	}
}

// overridden reports whether a stronger verdict on the opposing side decided
// the phase against rel
func overridden(rel model.Relation, contradicted, supportWon bool) bool {
	if rel == model.RelationContradicts {
		return supportWon
	}
	return contradicted
}

// classify applies the severity rules in order
func (s *Scorer) classify(imp model.Importance, contradicted int, signals []model.Signal) (model.Severity, []model.Signal) {
	severity := model.SeverityConsistent
	rule := "no phase contradicted"

	switch {
	case imp == model.ImportanceMajor && contradicted == len(model.Phases):
		severity = model.SeverityFatalContradiction
		rule = "major claim contradicted in every phase"
	case contradicted > 0:
		severity = model.SeveritySoftContradiction
		rule = fmt.Sprintf("contradicted in %d of %d phases", contradicted, len(model.Phases))
	}

	return severity, append(signals, model.Signal{
		Type:        model.SignalSeverityRule,
		Description: rule,
		Data: map[string]interface{}{
			"importance":   string(imp),
			"contradicted": contradicted,
			"severity":     string(severity),
		},
	})
}
