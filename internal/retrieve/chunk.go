// Package retrieve splits narratives into phase-tagged chunks and serves
// evidence passages for retrieval queries.
package retrieve

import (
	"fmt"
	"strings"

	"github.com/ppiankov/continuum/internal/model"
)

const (
	DefaultChunkWords   = 1000
	DefaultChunkOverlap = 200
)

// Chunk is one overlapping window of the narrative
type Chunk struct {
	Index int
	Ref   string
	Text  string
	Phase model.Phase
	Start int // First word offset
	End   int // One past the last word offset
}

// Passage converts the chunk into a scored passage
func (c Chunk) Passage(score float64) model.Passage {
	return model.Passage{Ref: c.Ref, Text: c.Text, Phase: c.Phase, Score: score}
}

// ChunkNarrative splits text into three equal phase segments (EARLY, MID,
// LATE) and then into windows of size words overlapping by overlap words
// inside each segment. Windows never cross a segment boundary and are
// clamped to the segment length, so every non-empty segment yields at least
// one chunk.
func ChunkNarrative(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultChunkWords
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []Chunk
	n := len(words)
	for i, phase := range model.Phases {
		segStart, segEnd := n*i/len(model.Phases), n*(i+1)/len(model.Phases)
		if segStart == segEnd {
			continue
		}

		window, step := size, size-overlap
		if seg := segEnd - segStart; window > seg {
			window, step = seg, seg
		}

		for start := segStart; start < segEnd; start += step {
			end := min(start+window, segEnd)

			idx := len(chunks)
			chunks = append(chunks, Chunk{
				Index: idx,
				Ref:   fmt.Sprintf("chunk:%d", idx),
				Text:  strings.Join(words[start:end], " "),
				Phase: phase,
				Start: start,
				End:   end,
			})

			if end == segEnd {
				break
			}
		}
	}
	return chunks
}
