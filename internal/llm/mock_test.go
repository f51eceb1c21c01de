package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/continuum/internal/model"
)

func TestMockProvider_EndToEndThroughOracle(t *testing.T) {
	o := NewOracle(NewMockProvider(), OracleConfig{})
	ctx := context.Background()

	backstory := "Mara grew up in the lighthouse on Gull Island with her father. " +
		"Because her father drowned in a storm, she swore never to sail again. " +
		"She keeps a small garden of herbs."

	claims, edges, err := o.ExtractClaims(ctx, backstory)
	require.NoError(t, err)
	require.Len(t, claims, 3)
	assert.Equal(t, model.ImportanceMajor, claims[0].Importance)
	assert.Equal(t, model.ImportanceMinor, claims[2].Importance)
	assert.Equal(t, []model.Edge{{From: "C2", To: "C1", Seq: 0}}, edges)

	queries, err := o.GenerateQueries(ctx, claims[1])
	require.NoError(t, err)
	assert.NotEmpty(t, queries)

	contra := model.Passage{Ref: "chunk:9", Text: "Mara sailed her father's boat through the storm every winter."}
	v, err := o.JudgeEvidence(ctx, model.Claim{ID: "C9", Text: "Mara never sailed her father's boat"}, contra, model.PhaseLate)
	require.NoError(t, err)
	assert.Equal(t, model.RelationContradicts, v.Relation)
	assert.Greater(t, v.Confidence, 0.5)

	unrelated := model.Passage{Ref: "chunk:1", Text: "The market sold apples and cheese."}
	v, err = o.JudgeEvidence(ctx, claims[0], unrelated, model.PhaseEarly)
	require.NoError(t, err)
	assert.Equal(t, model.RelationNeutral, v.Relation)
}

func TestMockProvider_UnknownTask(t *testing.T) {
	_, err := NewMockProvider().Complete(context.Background(), CompletionRequest{Prompt: "x"})
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{Provider: ""})
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())

	_, err = NewProvider(Config{Provider: "gemini"})
	assert.Error(t, err)

	p, err = NewProvider(Config{Provider: "Claude", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		A string `json:"a"`
	}
	require.NoError(t, decodeJSON("prefix {\"a\":\"x}y\"} suffix {\"a\":\"z\"}", &out))
	assert.Equal(t, "x}y", out.A)

	assert.ErrorIs(t, decodeJSON("no object", &out), ErrMalformedOutput)
	assert.ErrorIs(t, decodeJSON(`{"a": }`, &out), ErrMalformedOutput)
}
