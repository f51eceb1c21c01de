package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/continuum/internal/cache"
	"github.com/ppiankov/continuum/internal/model"
	"github.com/ppiankov/continuum/internal/worker"
)

// OracleConfig configures the Oracle
type OracleConfig struct {
	Model      string
	MaxTokens  int
	MaxQueries int

	Limiter  *worker.Limiter // Optional, keyed by provider name
	Cache    cache.Cache     // Optional completion cache
	CacheTTL time.Duration

	Logger *zap.Logger
}

// Oracle turns raw completions into claims, queries and verdicts
type Oracle struct {
	provider Provider
	config   OracleConfig
	logger   *zap.Logger
}

// NewOracle wraps provider
func NewOracle(provider Provider, config OracleConfig) *Oracle {
	if config.MaxQueries <= 0 {
		config.MaxQueries = 3
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{
		provider: provider,
		config:   config,
		logger:   logger.With(zap.String("provider", provider.Name())),
	}
}

// Provider returns the underlying provider
func (o *Oracle) Provider() Provider {
	return o.provider
}

// ExtractClaims extracts ordered claims and dependency edges from a backstory.
// Edge Seq follows the order the model listed them.
func (o *Oracle) ExtractClaims(ctx context.Context, backstory string) ([]model.Claim, []model.Edge, error) {
	if strings.TrimSpace(backstory) == "" {
		return nil, nil, &ExtractionError{Err: ErrEmptyInput}
	}

	text, err := o.complete(ctx, CompletionRequest{
		Task:      TaskExtractClaims,
		System:    systemPrompt,
		Prompt:    BuildExtractionPrompt(backstory),
		MaxTokens: o.config.MaxTokens,
		JSON:      true,
	})
	if err != nil {
		return nil, nil, &ExtractionError{Err: err}
	}

	var payload extractionPayload
	if err := decodeJSON(text, &payload); err != nil {
		return nil, nil, &ExtractionError{Err: err}
	}

	taken := make(map[string]bool, len(payload.Claims))
	for _, c := range payload.Claims {
		if id := strings.TrimSpace(c.ID); id != "" {
			taken[id] = true
		}
	}

	claims := make([]model.Claim, 0, len(payload.Claims))
	for i, c := range payload.Claims {
		c.Text = strings.TrimSpace(c.Text)
		if c.Text == "" {
			continue
		}
		id := strings.TrimSpace(c.ID)
		if id == "" {
			id = fallbackID(taken, i+1)
		}
		claims = append(claims, model.Claim{
			ID:         id,
			Text:       c.Text,
			Category:   strings.TrimSpace(c.Category),
			Importance: model.ParseImportance(c.Importance),
		})
	}
	if len(claims) == 0 {
		return nil, nil, &ExtractionError{Err: fmt.Errorf("no claims: %w", ErrMalformedOutput)}
	}

	edges := make([]model.Edge, 0, len(payload.Dependencies))
	for _, d := range payload.Dependencies {
		from, to := strings.TrimSpace(d.Claim), strings.TrimSpace(d.Requires)
		if from == "" || to == "" {
			continue
		}
		edges = append(edges, model.Edge{From: from, To: to, Seq: len(edges)})
	}

	o.logger.Debug("claims extracted", zap.Int("claims", len(claims)), zap.Int("edges", len(edges)))
	return claims, edges, nil
}

// fallbackID returns the first free "C<n>" id at or after n and reserves it
func fallbackID(taken map[string]bool, n int) string {
	for {
		id := fmt.Sprintf("C%d", n)
		if !taken[id] {
			taken[id] = true
			return id
		}
		n++
	}
}

// GenerateQueries returns deduplicated retrieval queries for a claim. A model
// that proposes no query falls back to the claim text itself.
func (o *Oracle) GenerateQueries(ctx context.Context, claim model.Claim) ([]string, error) {
	if strings.TrimSpace(claim.Text) == "" {
		return nil, &QueryGenerationError{ClaimID: claim.ID, Err: ErrEmptyInput}
	}

	text, err := o.complete(ctx, CompletionRequest{
		Task:   TaskGenerateQueries,
		System: systemPrompt,
		Prompt: BuildQueryPrompt(claim, o.config.MaxQueries),
		JSON:   true,
	})
	if err != nil {
		return nil, &QueryGenerationError{ClaimID: claim.ID, Err: err}
	}

	var payload queryPayload
	if err := decodeJSON(text, &payload); err != nil {
		return nil, &QueryGenerationError{ClaimID: claim.ID, Err: err}
	}

	seen := make(map[string]bool)
	var queries []string
	for _, q := range payload.Queries {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if len(q) <= 2 || seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, q)
		if len(queries) == o.config.MaxQueries {
			break
		}
	}
	if len(queries) == 0 {
		queries = []string{claim.Text}
	}
	return queries, nil
}

// JudgeEvidence asks how passage bears on claim. Any failure is a *JudgmentError;
// callers record model.NeutralVerdict in its place.
func (o *Oracle) JudgeEvidence(ctx context.Context, claim model.Claim, passage model.Passage, phase model.Phase) (model.EvidenceVerdict, error) {
	fail := func(err error) (model.EvidenceVerdict, error) {
		return model.NeutralVerdict(claim.ID, phase, passage.Ref), &JudgmentError{ClaimID: claim.ID, PassageRef: passage.Ref, Err: err}
	}

	if strings.TrimSpace(passage.Text) == "" {
		return fail(ErrEmptyInput)
	}

	text, err := o.complete(ctx, CompletionRequest{
		Task:   TaskJudgeEvidence,
		System: systemPrompt,
		Prompt: BuildJudgmentPrompt(claim, passage, phase),
		JSON:   true,
	})
	if err != nil {
		return fail(err)
	}

	var payload judgmentPayload
	if err := decodeJSON(text, &payload); err != nil {
		return fail(err)
	}

	relation, err := model.ParseRelation(payload.Relation)
	if err != nil {
		return fail(fmt.Errorf("%v: %w", err, ErrMalformedOutput))
	}

	confidence := model.ClampConfidence(float64(payload.Confidence))
	if relation == model.RelationNeutral {
		confidence = 0
	}

	return model.EvidenceVerdict{
		ClaimID:     claim.ID,
		Phase:       phase,
		Relation:    relation,
		Confidence:  confidence,
		PassageRef:  passage.Ref,
		Explanation: strings.TrimSpace(payload.Explanation),
	}, nil
}

// complete serves from cache when possible, otherwise waits for the limiter and calls the provider
func (o *Oracle) complete(ctx context.Context, req CompletionRequest) (string, error) {
	if req.Model == "" {
		req.Model = o.config.Model
	}

	key := cache.Key("completion", o.provider.Name(), req.Model, string(req.Task), req.System, req.Prompt)
	var cached string
	if cache.GetJSON(o.config.Cache, key, &cached) {
		o.logger.Debug("completion cache hit", zap.String("task", string(req.Task)))
		return cached, nil
	}

	if err := o.config.Limiter.Wait(ctx, o.provider.Name()); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := o.provider.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("empty completion: %w", ErrMalformedOutput)
	}

	if err := cache.SetJSON(o.config.Cache, key, resp.Text, o.config.CacheTTL); err != nil {
		o.logger.Warn("completion cache write failed", zap.Error(err))
	}
	return resp.Text, nil
}
