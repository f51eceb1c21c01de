package propagate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/continuum/internal/graph"
	"github.com/ppiankov/continuum/internal/model"
)

func chainStore(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.NewStore()
	for _, id := range []string{"A", "B", "C", "D"} {
		require.NoError(t, s.AddClaim(model.Claim{ID: id, Text: id, Importance: model.ImportanceMajor}))
	}
	// C presupposes B presupposes A; D stands alone
	require.NoError(t, s.AddDependency("B", "A"))
	require.NoError(t, s.AddDependency("C", "B"))
	return s
}

func scoresWithFatal(fatal string) []model.ClaimScore {
	var out []model.ClaimScore
	for _, id := range []string{"A", "B", "C", "D"} {
		sev := model.SeverityConsistent
		if id == fatal {
			sev = model.SeverityFatalContradiction
		}
		out = append(out, model.ClaimScore{ClaimID: id, Importance: model.ImportanceMajor, Severity: sev})
	}
	return out
}

func TestPropagate_TransitiveInfection(t *testing.T) {
	in := scoresWithFatal("A")
	out := New(chainStore(t)).Propagate(in)

	assert.False(t, out[0].Infected, "the fatal claim itself is not infected")
	assert.True(t, out[1].Infected)
	assert.Equal(t, "A", out[1].InfectedBy)
	assert.True(t, out[2].Infected)
	assert.Equal(t, "A", out[2].InfectedBy)
	assert.False(t, out[3].Infected)

	// Severity is never rewritten by propagation
	assert.Equal(t, model.SeverityConsistent, out[2].Severity)
	assert.Equal(t, model.SeverityFatalContradiction, out[2].EffectiveSeverity())

	for _, s := range in {
		assert.False(t, s.Infected, "input scores are not modified")
	}
}

func TestPropagate_DoesNotFlowUpstream(t *testing.T) {
	out := New(chainStore(t)).Propagate(scoresWithFatal("C"))
	for _, s := range out {
		assert.False(t, s.Infected, "claim %s", s.ClaimID)
	}
}

func TestPropagate_Idempotent(t *testing.T) {
	p := New(chainStore(t))
	once := p.Propagate(scoresWithFatal("A"))
	twice := p.Propagate(once)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second propagation changed scores (-once +twice):\n%s", diff)
	}
}

func TestPropagate_ClearsStaleInfection(t *testing.T) {
	scores := scoresWithFatal("")
	scores[3].Infected = true
	scores[3].InfectedBy = "A"

	out := New(chainStore(t)).Propagate(scores)
	assert.False(t, out[3].Infected)
	assert.Empty(t, out[3].InfectedBy)
}
