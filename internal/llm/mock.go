package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// MockProvider answers every task offline with deterministic lexical heuristics.
// It backs the "mock" provider and tests; it is not a substitute for a model.
type MockProvider struct{}

// NewMockProvider creates the offline provider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name returns the provider name
func (p *MockProvider) Name() string {
	return "mock"
}

// IsAvailable always reports true
func (p *MockProvider) IsAvailable(ctx context.Context) bool {
	return true
}

// Complete dispatches on the request task
func (p *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyInput
	}

	var out interface{}
	switch req.Task {
	case TaskExtractClaims:
		out = mockExtract(section(req.Prompt, "backstory"))
	case TaskGenerateQueries:
		out = mockQueries(section(req.Prompt, "claim"))
	case TaskJudgeEvidence:
		out = mockJudge(section(req.Prompt, "claim"), section(req.Prompt, "passage"))
	default:
		return nil, fmt.Errorf("mock provider: unsupported task %q", req.Task)
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return &CompletionResponse{Text: string(b), Model: "mock", TokensUsed: 0}, nil
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+\s+|\n+`)
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}']+`)
)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "for": true, "from": true, "had": true, "has": true, "have": true, "he": true,
	"her": true, "his": true, "in": true, "is": true, "it": true, "its": true, "of": true,
	"on": true, "or": true, "she": true, "that": true, "the": true, "their": true, "they": true,
	"this": true, "to": true, "was": true, "were": true, "which": true, "who": true, "with": true,
	"him": true, "them": true, "but": true, "into": true, "after": true, "because": true,
}

var majorCues = []string{
	"believ", "vow", "swore", "never", "always", "father", "mother", "fear", "hate", "love",
	"trauma", "lost", "killed", "died", "dream", "ambition", "goal", "orphan", "betray",
}

var causalCues = []string{"because", "so ", "therefore", "after", "since", "as a result", "which led"}

var negationCues = []string{
	"never", "not ", "n't", "no longer", "refused", "denied", "despite", "instead", "contrary", "without",
}

type extractionClaim struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Category   string `json:"category,omitempty"`
	Importance string `json:"importance"`
}

type extractionDependency struct {
	Claim    string `json:"claim"`
	Requires string `json:"requires"`
	Reason   string `json:"reason,omitempty"`
}

type extractionPayload struct {
	Claims       []extractionClaim      `json:"claims"`
	Dependencies []extractionDependency `json:"dependencies"`
}

type queryPayload struct {
	Queries []string `json:"queries"`
}

type judgmentPayload struct {
	Relation    string          `json:"relation"`
	Confidence  confidenceValue `json:"confidence"`
	Explanation string          `json:"explanation"`
}

func mockExtract(backstory string) extractionPayload {
	var payload extractionPayload
	for _, sentence := range sentenceSplit.Split(backstory, -1) {
		sentence = strings.TrimSpace(sentence)
		if len(contentWords(sentence)) < 3 {
			continue
		}

		id := fmt.Sprintf("C%d", len(payload.Claims)+1)
		importance := "MINOR"
		if hasCue(sentence, majorCues) {
			importance = "MAJOR"
		}
		payload.Claims = append(payload.Claims, extractionClaim{ID: id, Text: sentence, Importance: importance})

		if len(payload.Claims) > 1 && hasCue(sentence, causalCues) {
			payload.Dependencies = append(payload.Dependencies, extractionDependency{
				Claim:    id,
				Requires: payload.Claims[len(payload.Claims)-2].ID,
				Reason:   "causal connective",
			})
		}
	}
	return payload
}

func mockQueries(claim string) queryPayload {
	words := contentWords(claim)
	if len(words) == 0 {
		return queryPayload{}
	}

	queries := []string{strings.Join(words, " ")}
	if len(words) > 4 {
		queries = append(queries, strings.Join(words[:4], " "))
	}
	return queryPayload{Queries: queries}
}

func mockJudge(claim, passage string) judgmentPayload {
	claimWords := contentWords(claim)
	if len(claimWords) == 0 {
		return judgmentPayload{Relation: "NEUTRAL", Explanation: "empty claim"}
	}

	present := make(map[string]bool)
	for _, w := range contentWords(passage) {
		present[w] = true
	}
	hits := 0
	for _, w := range claimWords {
		if present[w] {
			hits++
		}
	}
	overlap := float64(hits) / float64(len(claimWords))

	switch {
	case overlap < 0.25:
		return judgmentPayload{Relation: "NEUTRAL", Explanation: "little lexical overlap"}
	case hasCue(passage, negationCues) != hasCue(claim, negationCues):
		return judgmentPayload{
			Relation:    "CONTRADICTS",
			Confidence:  confidenceValue(round2(math.Min(0.95, 0.5+overlap/2))),
			Explanation: "overlapping passage with opposite polarity",
		}
	default:
		return judgmentPayload{
			Relation:    "SUPPORTS",
			Confidence:  confidenceValue(round2(math.Min(0.95, 0.4+overlap/2))),
			Explanation: "overlapping passage with same polarity",
		}
	}
}

func contentWords(text string) []string {
	var words []string
	seen := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

func hasCue(text string, cues []string) bool {
	lower := strings.ToLower(text) + " "
	for _, cue := range cues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
