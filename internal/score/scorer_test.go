package score

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/continuum/internal/graph"
	"github.com/ppiankov/continuum/internal/ledger"
	"github.com/ppiankov/continuum/internal/model"
)

var (
	majorClaim = model.Claim{ID: "A", Text: "grew up at sea", Importance: model.ImportanceMajor}
	minorClaim = model.Claim{ID: "B", Text: "liked apples", Importance: model.ImportanceMinor}
)

func v(phase model.Phase, rel model.Relation, conf float64) model.EvidenceVerdict {
	return model.EvidenceVerdict{ClaimID: "A", Phase: phase, Relation: rel, Confidence: conf}
}

func byPhase(verdicts ...model.EvidenceVerdict) map[model.Phase][]model.EvidenceVerdict {
	out := make(map[model.Phase][]model.EvidenceVerdict)
	for _, x := range verdicts {
		out[x.Phase] = append(out[x.Phase], x)
	}
	return out
}

func TestScore_FatalRequiresMajorAndEveryPhase(t *testing.T) {
	s := NewScorer()
	all := byPhase(
		v(model.PhaseEarly, model.RelationContradicts, 0.9),
		v(model.PhaseMid, model.RelationContradicts, 0.8),
		v(model.PhaseLate, model.RelationContradicts, 0.85),
	)

	got := s.Score(majorClaim, all)
	assert.Equal(t, model.SeverityFatalContradiction, got.Severity)
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)
	for _, p := range model.Phases {
		assert.Equal(t, model.OutcomeContradicted, got.Phases[p])
	}

	assert.Equal(t, model.SeveritySoftContradiction, s.Score(minorClaim, all).Severity,
		"minor claims are never fatal")
}

func TestScore_TwoOfThreePhasesIsSoft(t *testing.T) {
	got := NewScorer().Score(majorClaim, byPhase(
		v(model.PhaseEarly, model.RelationContradicts, 0.9),
		v(model.PhaseMid, model.RelationContradicts, 0.9),
		v(model.PhaseLate, model.RelationSupports, 0.6),
	))
	assert.Equal(t, model.SeveritySoftContradiction, got.Severity)
	assert.Equal(t, model.OutcomeConsistent, got.Phases[model.PhaseLate])
}

func TestScore_ComparableSupportBlocksContradiction(t *testing.T) {
	s := NewScorer()

	blocked := s.Score(majorClaim, byPhase(
		v(model.PhaseEarly, model.RelationContradicts, 0.8),
		v(model.PhaseEarly, model.RelationSupports, 0.76),
	))
	assert.Equal(t, model.OutcomeConsistent, blocked.Phases[model.PhaseEarly])
	assert.Equal(t, model.SeverityConsistent, blocked.Severity)

	weak := s.Score(majorClaim, byPhase(
		v(model.PhaseEarly, model.RelationContradicts, 0.8),
		v(model.PhaseEarly, model.RelationSupports, 0.5),
	))
	assert.Equal(t, model.OutcomeContradicted, weak.Phases[model.PhaseEarly])
	assert.Equal(t, model.SeveritySoftContradiction, weak.Severity)
	// Decisive contradiction at weight 1, overridden support at 0.3
	assert.InDelta(t, (0.8+0.3*0.5)/1.3, weak.Confidence, 1e-9)
}

func TestScore_BelowThresholdIsNotContradicted(t *testing.T) {
	got := NewScorer().Score(majorClaim, byPhase(v(model.PhaseMid, model.RelationContradicts, 0.74)))
	assert.Equal(t, model.OutcomeConsistent, got.Phases[model.PhaseMid])
	assert.Equal(t, model.SeverityConsistent, got.Severity)
}

func TestScore_NoEvidence(t *testing.T) {
	got := NewScorer().Score(majorClaim, nil)
	assert.Equal(t, model.SeverityConsistent, got.Severity)
	assert.Zero(t, got.Confidence)
	for _, p := range model.Phases {
		assert.Equal(t, model.OutcomeUnderdetermined, got.Phases[p])
	}
}

func TestScore_NeutralVerdictsNeverContribute(t *testing.T) {
	got := NewScorer().Score(majorClaim, byPhase(
		model.NeutralVerdict("A", model.PhaseEarly, "chunk:0"),
		v(model.PhaseMid, model.RelationSupports, 0.6),
	))
	assert.Equal(t, model.OutcomeUnderdetermined, got.Phases[model.PhaseEarly])
	assert.InDelta(t, 0.6, got.Confidence, 1e-9)
}

func TestScore_UnopposedWeakContradictionKeepsFullWeight(t *testing.T) {
	got := NewScorer().Score(majorClaim, byPhase(
		v(model.PhaseEarly, model.RelationContradicts, 0.6),
		v(model.PhaseMid, model.RelationSupports, 0.9),
	))
	assert.Equal(t, model.OutcomeConsistent, got.Phases[model.PhaseEarly])
	// Nothing on the opposing side beat the 0.6 contradiction, so both weigh 1.0
	assert.InDelta(t, 0.75, got.Confidence, 1e-9)
}

func TestScore_WeakContradictionBesideSupportKeepsFullWeight(t *testing.T) {
	got := NewScorer().Score(majorClaim, byPhase(
		v(model.PhaseEarly, model.RelationContradicts, 0.6),
		v(model.PhaseEarly, model.RelationSupports, 0.7),
	))
	assert.Equal(t, model.OutcomeConsistent, got.Phases[model.PhaseEarly])
	assert.InDelta(t, 0.65, got.Confidence, 1e-9)
}

func TestScore_ConstrainsInContradictedPhaseIsOverridden(t *testing.T) {
	got := NewScorer().Score(majorClaim, byPhase(
		v(model.PhaseLate, model.RelationContradicts, 0.9),
		v(model.PhaseLate, model.RelationConstrains, 0.4),
	))
	assert.Equal(t, model.OutcomeContradicted, got.Phases[model.PhaseLate])
	assert.InDelta(t, (0.9+0.3*0.4)/1.3, got.Confidence, 1e-9)
}

func TestNewScorerFromConfig(t *testing.T) {
	s := NewScorerFromConfig(model.ScoringConfig{ContradictionThreshold: 0.5})
	assert.Equal(t, 0.5, s.threshold)
	assert.Equal(t, DefaultComparableMargin, s.margin)
	assert.Equal(t, DefaultOverrideWeight, s.overrideWeight)

	zero := NewScorerFromConfig(model.ScoringConfig{
		ComparableMargin: model.Float64(0),
		OverrideWeight:   model.Float64(0),
	})
	assert.Equal(t, DefaultContradictionThreshold, zero.threshold)
	assert.Zero(t, zero.margin)
	assert.Zero(t, zero.overrideWeight)
}

func TestScore_ZeroMarginAndOverrideWeight(t *testing.T) {
	s := NewScorerFromConfig(model.ScoringConfig{
		ComparableMargin: model.Float64(0),
		OverrideWeight:   model.Float64(0),
	})

	// 0.78 support sits within the default margin of 0.8 but not within zero
	got := s.Score(majorClaim, byPhase(
		v(model.PhaseEarly, model.RelationContradicts, 0.8),
		v(model.PhaseEarly, model.RelationSupports, 0.78),
	))
	assert.Equal(t, model.OutcomeContradicted, got.Phases[model.PhaseEarly])
	// The overridden support carries no weight at all
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
}

func TestScoreAll_FollowsStoreOrder(t *testing.T) {
	store := graph.NewStore()
	require.NoError(t, store.AddClaim(minorClaim))
	require.NoError(t, store.AddClaim(majorClaim))

	l := ledger.New()
	l.RecordVerdict(v(model.PhaseEarly, model.RelationSupports, 0.7))

	scores := NewScorer().ScoreAll(store, l)
	require.Len(t, scores, 2)
	assert.Equal(t, "B", scores[0].ClaimID)
	assert.Equal(t, "A", scores[1].ClaimID)
	assert.InDelta(t, 0.7, scores[1].Confidence, 1e-9)
}

var relations = []model.Relation{
	model.RelationSupports, model.RelationContradicts, model.RelationConstrains, model.RelationNeutral,
}

func TestScore_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)
	s := NewScorer()

	build := func(rels []int, confs []float64) map[model.Phase][]model.EvidenceVerdict {
		n := min(len(rels), len(confs))
		out := make(map[model.Phase][]model.EvidenceVerdict)
		for i := 0; i < n; i++ {
			phase := model.Phases[i%len(model.Phases)]
			out[phase] = append(out[phase], v(phase, relations[rels[i]], confs[i]))
		}
		return out
	}

	properties.Property("fatal implies major and contradicted in every phase", prop.ForAll(
		func(rels []int, confs []float64, isMajor bool) bool {
			claim := minorClaim
			if isMajor {
				claim = majorClaim
			}
			got := s.Score(claim, build(rels, confs))
			if got.Severity != model.SeverityFatalContradiction {
				return true
			}
			if claim.Importance != model.ImportanceMajor {
				return false
			}
			for _, p := range model.Phases {
				if got.Phases[p] != model.OutcomeContradicted {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(relations)-1)),
		gen.SliceOf(gen.Float64Range(0, 1)),
		gen.Bool(),
	))

	properties.Property("confidence stays in [0,1]", prop.ForAll(
		func(rels []int, confs []float64) bool {
			c := s.Score(majorClaim, build(rels, confs)).Confidence
			return c >= 0 && c <= 1
		},
		gen.SliceOf(gen.IntRange(0, len(relations)-1)),
		gen.SliceOf(gen.Float64Range(0, 1)),
	))

	properties.Property("scoring is order independent within a phase", prop.ForAll(
		func(rels []int, confs []float64) bool {
			forward := build(rels, confs)
			reversed := make(map[model.Phase][]model.EvidenceVerdict, len(forward))
			for p, vs := range forward {
				r := make([]model.EvidenceVerdict, len(vs))
				for i := range vs {
					r[len(vs)-1-i] = vs[i]
				}
				reversed[p] = r
			}
			a, b := s.Score(majorClaim, forward), s.Score(majorClaim, reversed)
			return a.Severity == b.Severity && abs(a.Confidence-b.Confidence) < 1e-9
		},
		gen.SliceOf(gen.IntRange(0, len(relations)-1)),
		gen.SliceOf(gen.Float64Range(0, 1)),
	))

	properties.TestingRun(t)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
