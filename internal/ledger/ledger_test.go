package ledger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/continuum/internal/model"
)

func verdict(claim string, phase model.Phase, rel model.Relation, conf float64) model.EvidenceVerdict {
	return model.EvidenceVerdict{ClaimID: claim, Phase: phase, Relation: rel, Confidence: conf}
}

func TestRecordVerdict_KeepsContradictoryEntries(t *testing.T) {
	l := New()
	l.RecordVerdict(verdict("A", model.PhaseEarly, model.RelationSupports, 0.9))
	l.RecordVerdict(verdict("A", model.PhaseEarly, model.RelationContradicts, 0.8))
	l.RecordVerdict(verdict("A", model.PhaseEarly, model.RelationSupports, 0.9))

	got := l.VerdictsFor("A", model.PhaseEarly)
	require.Len(t, got, 3)
	assert.Equal(t, model.RelationContradicts, got[1].Relation)
	assert.Empty(t, l.VerdictsFor("A", model.PhaseLate))
}

func TestRecordVerdict_ClampsConfidence(t *testing.T) {
	l := New()
	l.RecordVerdict(verdict("A", model.PhaseMid, model.RelationSupports, 1.7))
	l.RecordVerdict(verdict("A", model.PhaseMid, model.RelationSupports, -0.2))

	got := l.VerdictsFor("A", model.PhaseMid)
	assert.Equal(t, 1.0, got[0].Confidence)
	assert.Equal(t, 0.0, got[1].Confidence)
}

func TestVerdictsFor_ReturnsSnapshot(t *testing.T) {
	l := New()
	l.RecordVerdict(verdict("A", model.PhaseEarly, model.RelationSupports, 0.5))

	snap := l.VerdictsFor("A", model.PhaseEarly)
	snap[0].Relation = model.RelationContradicts

	assert.Equal(t, model.RelationSupports, l.VerdictsFor("A", model.PhaseEarly)[0].Relation)
}

func TestIsUnderdetermined(t *testing.T) {
	l := New()
	assert.True(t, l.IsUnderdetermined("A"))

	l.RecordVerdict(model.NeutralVerdict("A", model.PhaseEarly, "chunk:1"))
	assert.True(t, l.IsUnderdetermined("A"), "neutral verdicts do not count")

	l.RecordVerdict(verdict("A", model.PhaseLate, model.RelationConstrains, 0.4))
	assert.False(t, l.IsUnderdetermined("A"))
}

func TestConcurrentAppends(t *testing.T) {
	l := New()
	const writers, perWriter = 20, 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			claim := fmt.Sprintf("C%d", w%4)
			for i := 0; i < perWriter; i++ {
				l.RecordVerdict(verdict(claim, model.Phases[i%3], model.RelationSupports, 0.5))
				_ = l.VerdictsFor(claim, model.PhaseEarly)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, l.Len())
	assert.Len(t, l.All(), writers*perWriter)
}

func TestAll_OrderedByClaimThenPhase(t *testing.T) {
	l := New()
	l.RecordVerdict(verdict("B", model.PhaseLate, model.RelationSupports, 0.1))
	l.RecordVerdict(verdict("A", model.PhaseLate, model.RelationSupports, 0.2))
	l.RecordVerdict(verdict("A", model.PhaseEarly, model.RelationSupports, 0.3))
	l.RecordVerdict(verdict("A", model.PhaseEarly, model.RelationContradicts, 0.4))

	var got []string
	for _, v := range l.All() {
		got = append(got, fmt.Sprintf("%s/%s/%.1f", v.ClaimID, v.Phase, v.Confidence))
	}
	assert.Equal(t, []string{"A/EARLY/0.3", "A/EARLY/0.4", "A/LATE/0.2", "B/LATE/0.1"}, got)
}

func TestFromVerdicts_RoundTrip(t *testing.T) {
	l := New()
	l.RecordVerdict(verdict("A", model.PhaseMid, model.RelationContradicts, 0.9))
	l.RecordVerdict(verdict("A", model.PhaseMid, model.RelationSupports, 0.7))
	l.RecordVerdict(verdict("B", model.PhaseEarly, model.RelationNeutral, 0))

	restored := FromVerdicts(l.All())
	assert.Equal(t, l.All(), restored.All())
	assert.Equal(t, l.ClaimVerdicts("A"), restored.ClaimVerdicts("A"))
}
