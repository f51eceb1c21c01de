package model

import (
	"fmt"
	"strings"
)

// Claim represents a discrete assertion extracted from a backstory
type Claim struct {
	ID         string     `json:"id"`                   // Stable identifier, unique within a story
	Text       string     `json:"text"`                 // Normalized statement
	Importance Importance `json:"importance"`           // MAJOR or MINOR, fixed once classified
	Category   string     `json:"category,omitempty"`   // Extraction bucket (e.g., "early_life", "belief")
	DependsOn  []string   `json:"depends_on,omitempty"` // Claim IDs this claim presupposes
}

// Importance classifies how central a claim is to the character
type Importance string

const (
	ImportanceMajor Importance = "MAJOR" // Shapes identity, motivations, causal chains
	ImportanceMinor Importance = "MINOR" // Descriptive, stylistic, incidental
)

// ParseImportance normalizes free-form importance labels. Anything that is not
// recognizably MAJOR is treated as MINOR.
func ParseImportance(s string) Importance {
	if strings.EqualFold(strings.TrimSpace(s), string(ImportanceMajor)) {
		return ImportanceMajor
	}
	return ImportanceMinor
}

// Valid reports whether the importance is one of the known values
func (i Importance) Valid() bool {
	return i == ImportanceMajor || i == ImportanceMinor
}

// Edge is a dependency edge: From presupposes To
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Seq  int    `json:"seq"` // Insertion order within the story
}

func (e Edge) String() string {
	return fmt.Sprintf("%s->%s", e.From, e.To)
}
