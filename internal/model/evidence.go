package model

import (
	"fmt"
	"strings"
)

// Phase is one of the three narrative segments a claim is checked against
type Phase string

const (
	PhaseAny   Phase = ""      // No phase filter (retrieval only)
	PhaseEarly Phase = "EARLY" // Introduction / background
	PhaseMid   Phase = "MID"   // Turning points / conflicts
	PhaseLate  Phase = "LATE"  // Resolution / final outcomes
)

// Phases lists the narrative phases in order
var Phases = [...]Phase{PhaseEarly, PhaseMid, PhaseLate}

// ParsePhase parses a phase label
func ParsePhase(s string) (Phase, error) {
	switch Phase(strings.ToUpper(strings.TrimSpace(s))) {
	case PhaseEarly:
		return PhaseEarly, nil
	case PhaseMid:
		return PhaseMid, nil
	case PhaseLate:
		return PhaseLate, nil
	default:
		return PhaseAny, fmt.Errorf("unknown phase: %q", s)
	}
}

// Relation is a single piece of evidence's relation to a claim
type Relation string

const (
	RelationSupports    Relation = "SUPPORTS"
	RelationContradicts Relation = "CONTRADICTS"
	RelationConstrains  Relation = "CONSTRAINS"
	RelationNeutral     Relation = "NEUTRAL"
)

// ParseRelation parses a relation label, accepting the loose casing models tend to produce
func ParseRelation(s string) (Relation, error) {
	switch r := Relation(strings.ToUpper(strings.TrimSpace(s))); r {
	case RelationSupports, RelationContradicts, RelationConstrains, RelationNeutral:
		return r, nil
	case "SUPPORT":
		return RelationSupports, nil
	case "CONTRADICT":
		return RelationContradicts, nil
	case "CONSTRAIN":
		return RelationConstrains, nil
	default:
		return RelationNeutral, fmt.Errorf("unknown relation: %q", s)
	}
}

// EvidenceVerdict is one judged piece of evidence for one claim in one phase
type EvidenceVerdict struct {
	ClaimID     string   `json:"claim_id"`
	Phase       Phase    `json:"phase"`
	Relation    Relation `json:"relation"`
	Confidence  float64  `json:"confidence"`            // Source-provided, in [0,1]
	PassageRef  string   `json:"passage_ref,omitempty"` // Opaque, owned by the retriever
	Explanation string   `json:"explanation,omitempty"`
}

// NeutralVerdict is the "no verdict" recorded when judgment fails
func NeutralVerdict(claimID string, phase Phase, passageRef string) EvidenceVerdict {
	return EvidenceVerdict{
		ClaimID:    claimID,
		Phase:      phase,
		Relation:   RelationNeutral,
		Confidence: 0,
		PassageRef: passageRef,
	}
}

// ClampConfidence bounds a confidence value to [0,1]
func ClampConfidence(c float64) float64 {
	if c < 0 || c != c {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Passage is a retrieved narrative span
type Passage struct {
	Ref   string  `json:"ref"`   // Stable reference (e.g., "chunk:12")
	Text  string  `json:"text"`  // Passage text
	Phase Phase   `json:"phase"` // Narrative phase the span belongs to
	Score float64 `json:"score"` // Retrieval score (similarity or reranked)
}
