package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/continuum/internal/model"
)

const systemPrompt = `You are a careful literary analyst checking whether a character backstory is consistent with a novel.
You only use the text you are given. You never invent events. You always answer with one JSON object.`

// BuildExtractionPrompt asks for claims, their importance and their prerequisites in one pass
func BuildExtractionPrompt(backstory string) string {
	return fmt.Sprintf(`Extract every explicit and implicit claim made by the backstory.

Group claims by category: early_life, formative_experience, belief, fear, ambition, world_assumption.

Classify each claim:
- MAJOR: shapes identity, values or motivations; affects causal chains; influences several later events.
- MINOR: descriptive, stylistic or incidental.

Map dependencies. Claim B requires claim A when:
- B is a motivation or belief caused by the event in A,
- B is a goal meant to resolve a trauma in A, or
- B is an assumption based on the experience in A.

Answer with JSON:
{"claims":[{"id":"C1","text":"...","category":"early_life","importance":"MAJOR"}],
 "dependencies":[{"claim":"C2","requires":"C1","reason":"..."}]}

Ids must be unique and must be C1, C2, ... in the order the claims appear.

<backstory>
%s
</backstory>`, strings.TrimSpace(backstory))
}

// BuildQueryPrompt asks for short retrieval queries for one claim
func BuildQueryPrompt(claim model.Claim, maxQueries int) string {
	if maxQueries <= 0 {
		maxQueries = 3
	}
	return fmt.Sprintf(`Write up to %d short search queries that would retrieve passages of the novel
confirming or refuting this claim about the character. Prefer concrete names, places and events.

Answer with JSON: {"queries":["...","..."]}

<claim>
%s
</claim>`, maxQueries, claim.Text)
}

// BuildJudgmentPrompt asks how one passage bears on one claim in one phase
func BuildJudgmentPrompt(claim model.Claim, passage model.Passage, phase model.Phase) string {
	return fmt.Sprintf(`Decide how the passage bears on the claim. The passage comes from the %s part of the novel.

- SUPPORTS: the passage is evidence the claim holds.
- CONTRADICTS: the passage makes the claim impossible or clearly false.
- CONSTRAINS: the passage limits when or how the claim can hold without refuting it.
- NEUTRAL: the passage says nothing relevant.

Confidence is a number between 0 and 1.

Answer with JSON: {"relation":"SUPPORTS","confidence":0.8,"explanation":"one line"}

<claim>
%s
</claim>

<passage>
%s
</passage>`, strings.ToLower(string(phase)), claim.Text, passage.Text)
}

// section returns the text inside <tag>...</tag> in prompt
func section(prompt, tag string) string {
	open, end := "<"+tag+">", "</"+tag+">"
	i := strings.Index(prompt, open)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(open):]
	j := strings.Index(rest, end)
	if j < 0 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:j])
}
