package decide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/continuum/internal/graph"
	"github.com/ppiankov/continuum/internal/model"
)

func newStore(t *testing.T, claims ...model.Claim) *graph.Store {
	t.Helper()
	s := graph.NewStore()
	for _, c := range claims {
		require.NoError(t, s.AddClaim(c))
	}
	return s
}

func claim(id string, imp model.Importance) model.Claim {
	return model.Claim{ID: id, Text: "text of " + id, Importance: imp}
}

func TestDecide_NoClaims(t *testing.T) {
	_, err := NewAggregator().Decide("s", graph.NewStore(), nil)
	assert.ErrorIs(t, err, ErrNoClaims)
}

func TestDecide_FatalMajorClaim(t *testing.T) {
	store := newStore(t, claim("A", model.ImportanceMajor), claim("B", model.ImportanceMajor))
	scores := []model.ClaimScore{
		{ClaimID: "A", Importance: model.ImportanceMajor, Severity: model.SeverityConsistent, Confidence: 0.95},
		{ClaimID: "B", Importance: model.ImportanceMajor, Severity: model.SeverityFatalContradiction, Confidence: 0.8},
	}

	res, err := NewAggregator().Decide("s", store, scores)
	require.NoError(t, err)
	assert.Equal(t, PredictionContradicts, res.Prediction)
	assert.Equal(t, "B", res.CitedClaim)
	assert.Equal(t, 0.8, res.Confidence)
	assert.Contains(t, res.Rationale, `B "text of B"`)
	assert.Contains(t, res.Rationale, "contradicted in early, mid and late phases")
}

func TestDecide_FatalMinorClaimIsIgnored(t *testing.T) {
	store := newStore(t, claim("A", model.ImportanceMinor))
	scores := []model.ClaimScore{
		{ClaimID: "A", Importance: model.ImportanceMinor, Severity: model.SeverityFatalContradiction, Confidence: 0.9},
	}

	res, err := NewAggregator().Decide("s", store, scores)
	require.NoError(t, err)
	assert.Equal(t, PredictionConsistent, res.Prediction)
}

func TestDecide_InfectedMajorClaim(t *testing.T) {
	store := newStore(t, claim("A", model.ImportanceMinor), claim("B", model.ImportanceMajor))
	scores := []model.ClaimScore{
		{ClaimID: "A", Importance: model.ImportanceMinor, Severity: model.SeverityFatalContradiction, Confidence: 0.9},
		{ClaimID: "B", Importance: model.ImportanceMajor, Severity: model.SeverityConsistent, Infected: true, InfectedBy: "A", Confidence: 0.4},
	}

	res, err := NewAggregator().Decide("s", store, scores)
	require.NoError(t, err)
	assert.Equal(t, PredictionContradicts, res.Prediction)
	assert.Equal(t, "B", res.CitedClaim)
	assert.Contains(t, res.Rationale, "presupposes claim A")
}

func TestDecide_TiesGoToEarliestClaim(t *testing.T) {
	store := newStore(t, claim("Z", model.ImportanceMajor), claim("A", model.ImportanceMajor))
	scores := []model.ClaimScore{
		{ClaimID: "A", Importance: model.ImportanceMajor, Severity: model.SeverityFatalContradiction, Confidence: 0.8},
		{ClaimID: "Z", Importance: model.ImportanceMajor, Severity: model.SeverityFatalContradiction, Confidence: 0.8},
	}

	res, err := NewAggregator().Decide("s", store, scores)
	require.NoError(t, err)
	assert.Equal(t, "Z", res.CitedClaim, "Z was extracted first")
}

func TestDecide_ConsistentRationales(t *testing.T) {
	store := newStore(t, claim("A", model.ImportanceMajor), claim("B", model.ImportanceMinor))

	soft := []model.ClaimScore{
		{ClaimID: "A", Importance: model.ImportanceMajor, Severity: model.SeveritySoftContradiction, Confidence: 0.7},
		{ClaimID: "B", Importance: model.ImportanceMinor, Severity: model.SeverityConsistent, Confidence: 0.5},
	}
	res, err := NewAggregator().Decide("s", store, soft)
	require.NoError(t, err)
	assert.Equal(t, PredictionConsistent, res.Prediction)
	assert.Equal(t, "A", res.CitedClaim)
	assert.Contains(t, res.Rationale, "partial contradiction")

	empty := []model.ClaimScore{
		{ClaimID: "A", Importance: model.ImportanceMajor, Severity: model.SeverityConsistent},
		{ClaimID: "B", Importance: model.ImportanceMinor, Severity: model.SeverityConsistent},
	}
	res, err = NewAggregator().Decide("s", store, empty)
	require.NoError(t, err)
	assert.Equal(t, "A", res.CitedClaim)
	assert.Contains(t, res.Rationale, "underdetermined")
}

func TestShorten(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "word "
	}
	got := []rune(shorten(long))
	assert.Len(t, got, maxQuoteRunes)
	assert.Equal(t, '…', got[len(got)-1])
	assert.Equal(t, "a b", shorten("  a \n b "))
}
