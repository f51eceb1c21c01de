package retrieve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/continuum/internal/cache"
	"github.com/ppiankov/continuum/internal/llm"
	"github.com/ppiankov/continuum/internal/model"
	"github.com/ppiankov/continuum/internal/util"
	"github.com/ppiankov/continuum/internal/worker"
)

// NewEmbedder builds the configured embedder wrapped in a cache. It returns
// nil when no embedding provider is configured.
func NewEmbedder(cfg *model.Config, c cache.Cache, limiter *worker.Limiter) (Embedder, error) {
	var inner Embedder

	switch strings.ToLower(cfg.Embedding.Provider) {
	case "":
		return nil, nil

	case "ollama":
		llmCfg := llm.ConfigFromModel(*cfg)
		if cfg.LLM.Provider != "ollama" {
			llmCfg.BaseURL = ""
		}
		client, err := llm.NewOllamaClient(llmCfg)
		if err != nil {
			return nil, err
		}
		inner = NewOllamaEmbedder(client, cfg.Embedding.Model)

	case "openai":
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("openai embeddings require an API key")
		}
		clientConfig := openai.DefaultConfig(cfg.LLM.APIKey)
		if cfg.LLM.Provider == "openai" && cfg.LLM.BaseURL != "" {
			clientConfig.BaseURL = cfg.LLM.BaseURL
		}
		clientConfig.HTTPClient = util.NewHTTPClient(cfg.LLM.Timeout, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
		inner = NewOpenAIEmbedder(openai.NewClientWithConfig(clientConfig), cfg.Embedding.Model, cfg.Embedding.Dim)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, ollama)", cfg.Embedding.Provider)
	}

	return NewCachingEmbedder(inner, c, cacheTTL(cfg.Cache), limiter), nil
}

// NewIndex builds the configured index for one story. Vector backends
// without an embedder degrade to keyword retrieval.
func NewIndex(ctx context.Context, cfg *model.Config, embedder Embedder, storyID string) (Index, error) {
	backend := strings.ToLower(cfg.Retrieval.Backend)
	if embedder == nil {
		backend = "keyword"
	}

	switch backend {
	case "keyword":
		return NewKeywordIndex(), nil
	case "memory", "":
		return NewMemoryIndex(embedder), nil
	case "milvus":
		if cfg.Retrieval.MilvusAddress == "" {
			return nil, fmt.Errorf("milvus backend requires retrieval.milvus_address")
		}
		return NewMilvusIndex(ctx, cfg.Retrieval.MilvusAddress, embedder, cfg.Embedding.Dim, storyID)
	default:
		return nil, fmt.Errorf("unknown retrieval backend: %s (supported: memory, keyword, milvus)", cfg.Retrieval.Backend)
	}
}

func cacheTTL(cfg model.CacheConfig) time.Duration {
	if cfg.DiskTTL > 0 {
		return cfg.DiskTTL
	}
	return cfg.MemoryTTL
}
