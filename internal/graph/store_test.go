package graph

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/continuum/internal/model"
)

func major(id string) model.Claim {
	return model.Claim{ID: id, Text: "claim " + id, Importance: model.ImportanceMajor}
}

func storeWith(t *testing.T, ids ...string) *Store {
	t.Helper()
	s := NewStore()
	for _, id := range ids {
		require.NoError(t, s.AddClaim(major(id)))
	}
	return s
}

func TestAddClaim_Validation(t *testing.T) {
	s := storeWith(t, "A")

	var dup *DuplicateClaimError
	require.ErrorAs(t, s.AddClaim(major("A")), &dup)
	assert.Equal(t, "A", dup.ID)

	assert.ErrorIs(t, s.AddClaim(model.Claim{Importance: model.ImportanceMajor}), ErrEmptyClaimID)
	assert.Error(t, s.AddClaim(model.Claim{ID: "B", Importance: "CRUCIAL"}))
	assert.Equal(t, 1, s.Len())
}

func TestAddClaim_IgnoresDependsOn(t *testing.T) {
	s := NewStore()
	c := major("A")
	c.DependsOn = []string{"ghost"}
	require.NoError(t, s.AddClaim(c))

	got, ok := s.Claim("A")
	require.True(t, ok)
	assert.Empty(t, got.DependsOn)
}

func TestAddDependency(t *testing.T) {
	s := storeWith(t, "A", "B")

	var unknown *UnknownClaimError
	require.ErrorAs(t, s.AddDependency("A", "Z"), &unknown)
	assert.Equal(t, "Z", unknown.ID)
	require.ErrorAs(t, s.AddDependency("Z", "A"), &unknown)

	require.NoError(t, s.AddDependency("B", "A"))
	require.NoError(t, s.AddDependency("B", "A"), "repeated edge is a no-op")

	assert.Len(t, s.SuppliedEdges(), 1)
	assert.True(t, s.Dependencies("B").Has("A"))
	assert.True(t, s.Dependents("A").Has("B"))

	b, _ := s.Claim("B")
	assert.Equal(t, []string{"A"}, b.DependsOn)
}

func TestClaimsKeepInsertionOrder(t *testing.T) {
	s := storeWith(t, "C3", "C1", "C2")
	var ids []string
	for _, c := range s.Claims() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"C3", "C1", "C2"}, ids)
	assert.Equal(t, 1, s.Position("C1"))
	assert.Equal(t, -1, s.Position("nope"))
}

func TestClaimsByImportance(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddClaim(major("A")))
	require.NoError(t, s.AddClaim(model.Claim{ID: "B", Importance: model.ImportanceMinor}))
	require.NoError(t, s.AddClaim(major("C")))

	var ids []string
	for c := range s.ClaimsByImportance(model.ImportanceMajor) {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"A", "C"}, ids)
}

func TestBreakCycles_ThreeCycle(t *testing.T) {
	s := storeWith(t, "A", "B", "C")
	require.NoError(t, s.AddDependency("A", "B"))
	require.NoError(t, s.AddDependency("B", "C"))
	require.NoError(t, s.AddDependency("C", "A"))

	warnings := s.BreakCycles()
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"A", "B", "C"}, warnings[0].Cycle)
	assert.Equal(t, "C", warnings[0].Removed.From)
	assert.Equal(t, "A", warnings[0].Removed.To)

	assert.False(t, s.HasCycle())
	assert.Len(t, s.Edges(), 2)
	assert.Len(t, s.SuppliedEdges(), 3, "supplied edges survive cycle breaking")
	assert.False(t, s.Dependents("A").Has("C"))
}

func TestBreakCycles_SelfEdge(t *testing.T) {
	s := storeWith(t, "A")
	require.NoError(t, s.AddDependency("A", "A"))

	warnings := s.BreakCycles()
	require.Len(t, warnings, 1)
	assert.Equal(t, "A->A", warnings[0].Removed.String())
	assert.Empty(t, s.Edges())
}

func TestBreakCycles_Acyclic(t *testing.T) {
	s := storeWith(t, "A", "B", "C")
	require.NoError(t, s.AddDependency("B", "A"))
	require.NoError(t, s.AddDependency("C", "A"))
	require.NoError(t, s.AddDependency("C", "B"))

	assert.Empty(t, s.BreakCycles())
	assert.Len(t, s.Edges(), 3)
}

func TestFromSnapshot_ReplaysEdgesInSeqOrder(t *testing.T) {
	s := storeWith(t, "A", "B", "C")
	require.NoError(t, s.AddDependency("A", "B"))
	require.NoError(t, s.AddDependency("B", "C"))
	require.NoError(t, s.AddDependency("C", "A"))
	want := s.BreakCycles()

	// Shuffled edge order must not change which edge is removed
	edges := s.SuppliedEdges()
	edges[0], edges[2] = edges[2], edges[0]

	restored, err := FromSnapshot(s.Claims(), edges)
	require.NoError(t, err)
	if diff := cmp.Diff(want, restored.BreakCycles()); diff != "" {
		t.Errorf("warnings differ (-want +got):\n%s", diff)
	}
}

func TestFromSnapshot_UnknownClaim(t *testing.T) {
	_, err := FromSnapshot([]model.Claim{major("A")}, []model.Edge{{From: "A", To: "B", Seq: 1}})
	var unknown *UnknownClaimError
	assert.ErrorAs(t, err, &unknown)
}

// Edges are encoded as from*n+to over n claims
func buildFromCodes(n int, codes []int) *Store {
	s := NewStore()
	for i := 0; i < n; i++ {
		_ = s.AddClaim(major(fmt.Sprintf("C%d", i)))
	}
	for _, code := range codes {
		_ = s.AddDependency(fmt.Sprintf("C%d", code/n), fmt.Sprintf("C%d", code%n))
	}
	return s
}

func TestBreakCycles_Properties(t *testing.T) {
	const n = 6
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("result is acyclic", prop.ForAll(
		func(codes []int) bool {
			s := buildFromCodes(n, codes)
			s.BreakCycles()
			return !s.HasCycle()
		},
		gen.SliceOf(gen.IntRange(0, n*n-1)),
	))

	properties.Property("cycle breaking is deterministic", prop.ForAll(
		func(codes []int) bool {
			first := buildFromCodes(n, codes).BreakCycles()
			second := buildFromCodes(n, codes).BreakCycles()
			return cmp.Equal(first, second)
		},
		gen.SliceOf(gen.IntRange(0, n*n-1)),
	))

	properties.Property("removed edge lies on the reported cycle", prop.ForAll(
		func(codes []int) bool {
			s := buildFromCodes(n, codes)
			for _, w := range s.BreakCycles() {
				onCycle := IDSet{}
				for _, id := range w.Cycle {
					onCycle[id] = struct{}{}
				}
				if !onCycle.Has(w.Removed.From) || !onCycle.Has(w.Removed.To) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, n*n-1)),
	))

	properties.TestingRun(t)
}
