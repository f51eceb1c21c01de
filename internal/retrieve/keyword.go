package retrieve

import (
	"context"
	"sync"

	"github.com/ppiankov/continuum/internal/model"
)

// KeywordIndex scores a chunk by how many distinct query words it contains.
// It needs no embedding service.
type KeywordIndex struct {
	mu     sync.RWMutex
	chunks []Chunk
	words  []map[string]bool
}

// NewKeywordIndex creates an empty keyword index
func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{}
}

// Build indexes the chunks
func (k *KeywordIndex) Build(ctx context.Context, chunks []Chunk) error {
	words := make([]map[string]bool, len(chunks))
	for i, c := range chunks {
		set := make(map[string]bool)
		for _, w := range tokenize(c.Text) {
			set[w] = true
		}
		words[i] = set
	}

	k.mu.Lock()
	k.chunks = chunks
	k.words = words
	k.mu.Unlock()
	return nil
}

// Retrieve returns chunks with at least one query word
func (k *KeywordIndex) Retrieve(ctx context.Context, q Query) ([]model.Passage, error) {
	terms := queryTerms(q.Text)

	k.mu.RLock()
	defer k.mu.RUnlock()

	var hits []scored
	for i, c := range k.chunks {
		if !inPhase(c, q.Phase) {
			continue
		}
		n := 0
		for _, t := range terms {
			if k.words[i][t] {
				n++
			}
		}
		if n == 0 {
			continue
		}
		hits = append(hits, scored{chunk: c, score: float64(n) / float64(len(terms))})
	}
	return finish(q, hits), nil
}

// Close is a no-op
func (k *KeywordIndex) Close(ctx context.Context) error {
	return nil
}
