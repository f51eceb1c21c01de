package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/continuum/internal/cache"
	"github.com/ppiankov/continuum/internal/decide"
	"github.com/ppiankov/continuum/internal/graph"
	"github.com/ppiankov/continuum/internal/ledger"
	"github.com/ppiankov/continuum/internal/llm"
	"github.com/ppiankov/continuum/internal/model"
	"github.com/ppiankov/continuum/internal/propagate"
	"github.com/ppiankov/continuum/internal/retrieve"
	"github.com/ppiankov/continuum/internal/score"
	"github.com/ppiankov/continuum/internal/worker"
)

// Oracle is the model-backed collaborator: claim extraction, query
// generation and evidence judgment
type Oracle interface {
	ExtractClaims(ctx context.Context, backstory string) ([]model.Claim, []model.Edge, error)
	GenerateQueries(ctx context.Context, claim model.Claim) ([]string, error)
	JudgeEvidence(ctx context.Context, claim model.Claim, passage model.Passage, phase model.Phase) (model.EvidenceVerdict, error)
}

// IndexFactory builds a fresh retrieval index for one story
type IndexFactory func(ctx context.Context, storyID string) (retrieve.Index, error)

// Pipeline checks stories end to end. Stories share no mutable state, so
// one Pipeline may process many stories concurrently.
type Pipeline struct {
	oracle     Oracle
	provider   llm.Provider // Optional, used for the availability check
	newIndex   IndexFactory
	loader     *Loader
	scorer     *score.Scorer
	aggregator *decide.Aggregator
	config     *model.Config
	logger     *zap.Logger

	availableOnce sync.Once
	available     bool
}

// Options wires a Pipeline from explicit collaborators
type Options struct {
	Oracle   Oracle
	Provider llm.Provider
	NewIndex IndexFactory
	Loader   *Loader
	Logger   *zap.Logger
}

// New creates a pipeline from explicit collaborators
func New(cfg *model.Config, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	newIndex := opts.NewIndex
	if newIndex == nil {
		newIndex = func(ctx context.Context, storyID string) (retrieve.Index, error) {
			return retrieve.NewKeywordIndex(), nil
		}
	}
	loader := opts.Loader
	if loader == nil {
		loader = NewLoader(nil)
	}

	return &Pipeline{
		oracle:     opts.Oracle,
		provider:   opts.Provider,
		newIndex:   newIndex,
		loader:     loader,
		scorer:     score.NewScorerFromConfig(cfg.Scoring),
		aggregator: decide.NewAggregator(),
		config:     cfg,
		logger:     logger,
	}
}

// NewPipeline builds the production pipeline: provider, oracle, caches,
// limiter, embedder and index backend all come from cfg
func NewPipeline(ctx context.Context, cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(*cfg))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	c := cache.NewFromConfig(cfg.Cache)
	limiter := worker.NewLimiter(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst)

	oracle := llm.NewOracle(provider, llm.OracleConfig{
		Model:      cfg.LLM.Model,
		MaxTokens:  cfg.LLM.MaxTokens,
		MaxQueries: cfg.Retrieval.MaxQueries,
		Limiter:    limiter,
		Cache:      c,
		CacheTTL:   cfg.Cache.DiskTTL,
		Logger:     logger,
	})

	embedder, err := retrieve.NewEmbedder(cfg, c, limiter)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	newIndex := func(ctx context.Context, storyID string) (retrieve.Index, error) {
		return retrieve.NewIndex(ctx, cfg, embedder, storyID)
	}

	logger.Info("pipeline ready",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.LLM.Model),
		zap.String("retrieval", cfg.Retrieval.Backend),
		zap.Bool("embeddings", embedder != nil))

	return New(cfg, Options{
		Oracle:   oracle,
		Provider: provider,
		NewIndex: newIndex,
		Loader:   NewLoader(NewFetcher(cfg.HTTP, cfg.Retry, logger)),
		Logger:   logger,
	}), nil
}

// Process loads and checks one story
func (p *Pipeline) Process(ctx context.Context, src model.StorySource) (*model.Report, error) {
	if !p.providerAvailable(ctx) {
		return nil, storyErr(src.ID, StageProvider, fmt.Errorf("provider %s is not reachable", p.provider.Name()))
	}

	narrative, err := p.loader.LoadNarrative(ctx, src.Narrative)
	if err != nil {
		return nil, storyErr(src.ID, StageLoad, err)
	}
	backstory, err := p.loader.LoadBackstory(src.Backstory)
	if err != nil {
		return nil, storyErr(src.ID, StageLoad, err)
	}

	return p.CheckStory(ctx, src.ID, narrative, backstory)
}

func (p *Pipeline) providerAvailable(ctx context.Context) bool {
	if p.provider == nil {
		return true
	}
	p.availableOnce.Do(func() {
		p.available = p.provider.IsAvailable(ctx)
	})
	return p.available
}

// storyRun is the per-story context: one store, one ledger, one index
type storyRun struct {
	id     string
	store  *graph.Store
	ledger *ledger.Ledger
	index  retrieve.Index
	logger *zap.Logger

	queries         atomic.Int64
	passages        atomic.Int64
	judgments       atomic.Int64
	failedJudgments atomic.Int64
	underdetermined atomic.Int64
}

// CheckStory runs the full check for one story's texts. A story either
// yields a complete report or a *StoryProcessingError.
func (p *Pipeline) CheckStory(ctx context.Context, storyID, narrative, backstory string) (*model.Report, error) {
	logger := p.logger.With(zap.String("story_id", storyID))
	start := time.Now()

	chunks := retrieve.ChunkNarrative(narrative, p.config.Retrieval.ChunkWords, p.config.Retrieval.ChunkOverlap)

	idx, err := p.newIndex(ctx, storyID)
	if err != nil {
		return nil, storyErr(storyID, StageIndex, err)
	}
	defer func() {
		if err := idx.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("closing index failed", zap.Error(err))
		}
	}()

	err = callWithRetry(ctx, p.llmRetry(), logger, "index", func(ctx context.Context) error {
		return idx.Build(ctx, chunks)
	})
	if err != nil {
		return nil, storyErr(storyID, StageIndex, err)
	}
	logger.Debug("narrative indexed", zap.Int("chunks", len(chunks)))

	var claims []model.Claim
	var edges []model.Edge
	err = callWithRetry(ctx, p.llmRetry(), logger, "extract", func(ctx context.Context) error {
		var err error
		claims, edges, err = p.oracle.ExtractClaims(ctx, backstory)
		return err
	})
	if err != nil {
		return nil, storyErr(storyID, StageExtract, err)
	}

	store, err := buildStore(claims, edges)
	if err != nil {
		return nil, storyErr(storyID, StageClaims, err)
	}

	warnings := store.BreakCycles()
	for _, w := range warnings {
		logger.Warn("dependency cycle broken",
			zap.Strings("cycle", w.Cycle),
			zap.String("removed", w.Removed.String()))
	}

	run := &storyRun{
		id:     storyID,
		store:  store,
		ledger: ledger.New(),
		index:  idx,
		logger: logger,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.config.Concurrency.Claims, 1))
	for _, claim := range store.Claims() {
		g.Go(func() error {
			p.gatherClaim(gctx, run, claim)
			return nil
		})
	}
	_ = g.Wait()

	// Partial ledgers are never scored
	if err := ctx.Err(); err != nil {
		return nil, storyErr(storyID, StageGather, err)
	}

	scores := p.scorer.ScoreAll(store, run.ledger)
	scores = propagate.New(store).Propagate(scores)

	result, err := p.aggregator.Decide(storyID, store, scores)
	if err != nil {
		return nil, storyErr(storyID, StageDecide, err)
	}
	result.Warnings = warnings

	report := &model.Report{
		RunID:       uuid.NewString(),
		StoryID:     storyID,
		GeneratedAt: time.Now().UTC(),
		Result:      result,
		Claims:      store.Claims(),
		Edges:       store.SuppliedEdges(),
		Scores:      scores,
		Verdicts:    run.ledger.All(),
		Stats: model.RunStats{
			Chunks:             len(chunks),
			Queries:            int(run.queries.Load()),
			Passages:           int(run.passages.Load()),
			Judgments:          int(run.judgments.Load()),
			FailedJudgments:    int(run.failedJudgments.Load()),
			UnderdeterminedIDs: int(run.underdetermined.Load()),
		},
	}
	if p.provider != nil {
		report.Provider = p.provider.Name()
		report.Model = p.config.LLM.Model
	}

	logger.Info("story checked",
		zap.Int("prediction", result.Prediction),
		zap.String("cited_claim", result.CitedClaim),
		zap.Int("claims", store.Len()),
		zap.Int("verdicts", run.ledger.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return report, nil
}

func buildStore(claims []model.Claim, edges []model.Edge) (*graph.Store, error) {
	store := graph.NewStore()
	for _, c := range claims {
		if err := store.AddClaim(c); err != nil {
			return nil, err
		}
	}
	for _, e := range edges {
		if err := store.AddDependency(e.From, e.To); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// gatherClaim collects one claim's verdicts across all phases and appends
// them as a single batch. A claim whose external calls exhaust their retries
// contributes nothing and stays underdetermined.
func (p *Pipeline) gatherClaim(ctx context.Context, run *storyRun, claim model.Claim) {
	logger := run.logger.With(zap.String("claim_id", claim.ID))
	retry := p.llmRetry()

	underdetermined := func(stage string, err error) {
		run.underdetermined.Add(1)
		logger.Warn("claim left underdetermined", zap.String("stage", stage), zap.Error(err))
	}

	var queries []string
	err := callWithRetry(ctx, retry, logger, "queries", func(ctx context.Context) error {
		var err error
		queries, err = p.oracle.GenerateQueries(ctx, claim)
		return err
	})
	if err != nil {
		underdetermined("queries", err)
		return
	}
	run.queries.Add(int64(len(queries)))

	var batch []model.EvidenceVerdict
	for _, phase := range model.Phases {
		phaseLogger := logger.With(zap.String("phase", string(phase)))

		passages, err := p.retrievePhase(ctx, run, retry, phaseLogger, queries, phase)
		if err != nil {
			underdetermined("retrieve", err)
			return
		}
		run.passages.Add(int64(len(passages)))

		for _, passage := range passages {
			var verdict model.EvidenceVerdict
			err := callWithRetry(ctx, retry, phaseLogger, "judge", func(ctx context.Context) error {
				var err error
				verdict, err = p.oracle.JudgeEvidence(ctx, claim, passage, phase)
				return err
			})
			run.judgments.Add(1)

			var judgmentErr *llm.JudgmentError
			switch {
			case err == nil:
				batch = append(batch, verdict)
			case ctx.Err() != nil:
				return
			case llm.IsRetryable(err):
				underdetermined("judge", err)
				return
			case errors.As(err, &judgmentErr):
				run.failedJudgments.Add(1)
				phaseLogger.Debug("judgment failed, recording neutral", zap.String("passage", passage.Ref), zap.Error(err))
				batch = append(batch, model.NeutralVerdict(claim.ID, phase, passage.Ref))
			default:
				underdetermined("judge", err)
				return
			}
		}
	}

	for _, v := range batch {
		run.ledger.RecordVerdict(v)
	}
}

// retrievePhase runs every query against one phase and merges the hits,
// keeping the first occurrence of each passage
func (p *Pipeline) retrievePhase(ctx context.Context, run *storyRun, retry retryPolicy, logger *zap.Logger, queries []string, phase model.Phase) ([]model.Passage, error) {
	seen := make(map[string]bool)
	var merged []model.Passage

	for _, q := range queries {
		var hits []model.Passage
		err := callWithRetry(ctx, retry, logger, "retrieve", func(ctx context.Context) error {
			var err error
			hits, err = run.index.Retrieve(ctx, retrieve.Query{
				Text:   q,
				TopK:   p.config.Retrieval.TopK,
				Rerank: p.config.Retrieval.Rerank,
				Phase:  phase,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", truncate(q, 60), err)
		}
		for _, h := range hits {
			if !seen[h.Ref] {
				seen[h.Ref] = true
				merged = append(merged, h)
			}
		}
	}
	return merged, nil
}

func (p *Pipeline) llmRetry() retryPolicy {
	return newRetryPolicy(p.config.Retry, llm.IsRetryable)
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
