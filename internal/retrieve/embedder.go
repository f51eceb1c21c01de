package retrieve

import (
	"context"
	"fmt"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/continuum/internal/cache"
	"github.com/ppiankov/continuum/internal/worker"
)

// Embedder turns texts into vectors
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// OllamaEmbedder embeds through a local Ollama server
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

// NewOllamaEmbedder creates an Ollama embedder
func NewOllamaEmbedder(client *api.Client, model string) *OllamaEmbedder {
	return &OllamaEmbedder{client: client, model: model}
}

func (e *OllamaEmbedder) Name() string { return "ollama:" + e.model }

// Embed embeds all texts in one request
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// OpenAIEmbedder embeds through the OpenAI embeddings API
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAIEmbedder creates an OpenAI embedder. A zero dim keeps the model default.
func NewOpenAIEmbedder(client *openai.Client, model string, dim int) *OpenAIEmbedder {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{client: client, model: model, dim: dim}
}

func (e *OpenAIEmbedder) Name() string { return "openai:" + e.model }

// Embed embeds all texts in one request
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai embed: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// CachingEmbedder serves repeated texts from a cache and rate-limits misses
type CachingEmbedder struct {
	inner   Embedder
	cache   cache.Cache
	ttl     time.Duration
	limiter *worker.Limiter
}

// NewCachingEmbedder wraps inner. Cache and limiter may be nil.
func NewCachingEmbedder(inner Embedder, c cache.Cache, ttl time.Duration, limiter *worker.Limiter) *CachingEmbedder {
	return &CachingEmbedder{inner: inner, cache: c, ttl: ttl, limiter: limiter}
}

func (e *CachingEmbedder) Name() string { return e.inner.Name() }

// Embed embeds only the texts missing from the cache
func (e *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missing []string
	var missingIdx []int
	for i, t := range texts {
		keys[i] = cache.Key("embedding", e.inner.Name(), t)
		var v []float32
		if cache.GetJSON(e.cache, keys[i], &v) {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	if err := e.limiter.Wait(ctx, e.inner.Name()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	vectors, err := e.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, v := range vectors {
		i := missingIdx[j]
		out[i] = v
		_ = cache.SetJSON(e.cache, keys[i], v, e.ttl)
	}
	return out, nil
}
