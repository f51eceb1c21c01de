package model

import "time"

// Severity classifies how badly evidence conflicts with a claim
type Severity string

const (
	SeverityConsistent         Severity = "CONSISTENT"
	SeveritySoftContradiction  Severity = "SOFT_CONTRADICTION"
	SeverityFatalContradiction Severity = "FATAL_CONTRADICTION"
)

// PhaseOutcome is the per-phase reduction of a claim's verdicts
type PhaseOutcome string

const (
	OutcomeUnderdetermined PhaseOutcome = "underdetermined"
	OutcomeConsistent      PhaseOutcome = "consistent"
	OutcomeContradicted    PhaseOutcome = "contradicted"
)

// ClaimScore is derived per run and always replaced, never edited
type ClaimScore struct {
	ClaimID    string                 `json:"claim_id"`
	Importance Importance             `json:"importance"`
	Severity   Severity               `json:"severity"`              // Directly evidenced classification
	Confidence float64                `json:"confidence"`            // Weighted mean of verdict confidences
	Infected   bool                   `json:"infected"`              // Set only by propagation
	InfectedBy string                 `json:"infected_by,omitempty"` // Nearest FATAL upstream claim
	Phases     map[Phase]PhaseOutcome `json:"phases"`
	Signals    []Signal               `json:"signals,omitempty"`
}

// EffectiveSeverity is the severity used for the decision: infection counts as fatal
func (s ClaimScore) EffectiveSeverity() Severity {
	if s.Infected {
		return SeverityFatalContradiction
	}
	return s.Severity
}

// Signal is a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`
	Phase       Phase                  `json:"phase,omitempty"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies a diagnostic signal
type SignalType string

const (
	SignalPhaseOutcome SignalType = "phase_outcome" // How a phase was decided
	SignalSeverityRule SignalType = "severity_rule" // Which severity rule fired
	SignalConfidence   SignalType = "confidence"    // How confidence was weighted
	SignalInfection    SignalType = "infection"     // Propagated fatality
)

// DependencyCycleWarning records that a cycle in the supplied dependency graph was broken
type DependencyCycleWarning struct {
	Cycle   []string `json:"cycle"`   // Claim IDs along the cycle, first repeated implicitly
	Removed Edge     `json:"removed"` // Edge that was dropped to break it
}

func (w DependencyCycleWarning) Error() string {
	return "dependency cycle broken by removing " + w.Removed.String()
}

// StoryResult is the one-line verdict for a story
type StoryResult struct {
	StoryID    string                   `json:"story_id"`
	Prediction int                      `json:"prediction"` // 0 contradicts, 1 consistent
	Rationale  string                   `json:"rationale"`
	CitedClaim string                   `json:"cited_claim,omitempty"`
	Confidence float64                  `json:"confidence"`
	Warnings   []DependencyCycleWarning `json:"warnings,omitempty"`
}

// Report is the debug surface for one story. It is also the serialization
// format used to reload a story's claims and ledger.
type Report struct {
	RunID       string            `json:"run_id"`
	StoryID     string            `json:"story_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Provider    string            `json:"provider,omitempty"`
	Model       string            `json:"model,omitempty"`
	Result      StoryResult       `json:"result"`
	Claims      []Claim           `json:"claims"`
	Edges       []Edge            `json:"edges"`
	Scores      []ClaimScore      `json:"scores"`
	Verdicts    []EvidenceVerdict `json:"verdicts"`
	Stats       RunStats          `json:"stats"`
}

// RunStats counts external work performed for a story
type RunStats struct {
	Chunks             int `json:"chunks"`
	Queries            int `json:"queries"`
	Passages           int `json:"passages"`
	Judgments          int `json:"judgments"`
	FailedJudgments    int `json:"failed_judgments"`
	UnderdeterminedIDs int `json:"underdetermined_claims"`
}
