package retrieve

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/ppiankov/continuum/internal/model"
)

// embedBatch bounds the number of texts per embedding request
const embedBatch = 32

// MemoryIndex is an in-process cosine similarity index
type MemoryIndex struct {
	embedder Embedder

	mu      sync.RWMutex
	chunks  []Chunk
	vectors [][]float32
}

// NewMemoryIndex creates an empty in-memory vector index
func NewMemoryIndex(embedder Embedder) *MemoryIndex {
	return &MemoryIndex{embedder: embedder}
}

// Build embeds and stores all chunks
func (m *MemoryIndex) Build(ctx context.Context, chunks []Chunk) error {
	vectors, err := embedChunks(ctx, m.embedder, chunks)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.chunks = chunks
	m.vectors = vectors
	m.mu.Unlock()
	return nil
}

// Retrieve ranks chunks by cosine similarity to the query
func (m *MemoryIndex) Retrieve(ctx context.Context, q Query) ([]model.Passage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.chunks) == 0 || q.TopK <= 0 {
		return []model.Passage{}, nil
	}

	qv, err := m.embedder.Embed(ctx, []string{q.Text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qv) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(qv))
	}

	hits := make([]scored, 0, len(m.chunks))
	for i, c := range m.chunks {
		if !inPhase(c, q.Phase) {
			continue
		}
		hits = append(hits, scored{chunk: c, score: cosine(qv[0], m.vectors[i])})
	}
	return finish(q, hits), nil
}

// Close is a no-op
func (m *MemoryIndex) Close(ctx context.Context) error {
	return nil
}

func embedChunks(ctx context.Context, embedder Embedder, chunks []Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatch {
		end := min(start+embedBatch, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}
		vs, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		if len(vs) != len(texts) {
			return nil, fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end, len(vs))
		}
		vectors = append(vectors, vs...)
	}
	return vectors, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
