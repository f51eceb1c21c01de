package retrieve

import (
	"context"
	"sort"
	"strings"

	"github.com/ppiankov/continuum/internal/model"
)

// Query is one retrieval request
type Query struct {
	Text   string
	TopK   int
	Rerank bool
	Phase  model.Phase // PhaseAny disables the phase filter
}

// Index serves passages from one story's narrative
type Index interface {
	// Build indexes the chunks. It is called once per story.
	Build(ctx context.Context, chunks []Chunk) error

	// Retrieve returns up to TopK passages ordered by descending score.
	// An empty corpus yields an empty result, not an error.
	Retrieve(ctx context.Context, q Query) ([]model.Passage, error)

	// Close releases backend resources
	Close(ctx context.Context) error
}

const (
	rerankSimilarityWeight = 0.7
	rerankLexicalWeight    = 0.3
	rerankCandidateFactor  = 3
)

// candidateCount is how many hits to fetch before reranking
func candidateCount(q Query) int {
	if q.TopK <= 0 {
		return 0
	}
	if q.Rerank {
		return q.TopK * rerankCandidateFactor
	}
	return q.TopK
}

type scored struct {
	chunk Chunk
	score float64
}

// finish sorts hits, optionally reranks them and cuts to TopK
func finish(q Query, hits []scored) []model.Passage {
	sortScored(hits)

	if n := candidateCount(q); len(hits) > n {
		hits = hits[:n]
	}

	if q.Rerank {
		terms := queryTerms(q.Text)
		for i := range hits {
			hits[i].score = rerankSimilarityWeight*hits[i].score + rerankLexicalWeight*lexicalOverlap(terms, hits[i].chunk.Text)
		}
		sortScored(hits)
	}

	if q.TopK > 0 && len(hits) > q.TopK {
		hits = hits[:q.TopK]
	}

	passages := make([]model.Passage, len(hits))
	for i, h := range hits {
		passages[i] = h.chunk.Passage(h.score)
	}
	return passages
}

// sortScored orders by score, then by narrative position
func sortScored(hits []scored) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].chunk.Index < hits[j].chunk.Index
	})
}

func inPhase(c Chunk, phase model.Phase) bool {
	return phase == model.PhaseAny || c.Phase == phase
}

// queryTerms lowercases and deduplicates the words of a query
func queryTerms(text string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, w := range tokenize(text) {
		if !seen[w] {
			seen[w] = true
			terms = append(terms, w)
		}
	}
	return terms
}

// lexicalOverlap is the fraction of query terms present in text
func lexicalOverlap(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	present := make(map[string]bool)
	for _, w := range tokenize(text) {
		present[w] = true
	}
	hits := 0
	for _, t := range terms {
		if present[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r == '\'' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
}
