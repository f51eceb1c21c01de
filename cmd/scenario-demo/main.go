// Demo program for the aggregation core: fixed claims and verdicts, no model calls.
// Shows fatal contradictions, support that offsets a contradiction, infection
// through dependencies and cycle breaking.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/continuum/internal/model"
	"github.com/ppiankov/continuum/internal/pipeline"
)

type scenario struct {
	name     string
	claims   []model.Claim
	edges    []model.Edge
	verdicts []model.EvidenceVerdict
}

func contradictedEverywhere(id string, conf float64) []model.EvidenceVerdict {
	var out []model.EvidenceVerdict
	for _, p := range model.Phases {
		out = append(out, model.EvidenceVerdict{ClaimID: id, Phase: p, Relation: model.RelationContradicts, Confidence: conf})
	}
	return out
}

func main() {
	fmt.Println("=== Claim Aggregation Scenarios ===")
	fmt.Println()

	scenarios := []scenario{
		{
			name: "Major claim contradicted in every phase",
			claims: []model.Claim{
				{ID: "C1", Text: "Grew up an orphan in Marseille", Importance: model.ImportanceMajor},
				{ID: "C2", Text: "Has a scar on the left hand", Importance: model.ImportanceMinor},
			},
			verdicts: contradictedEverywhere("C1", 0.9),
		},
		{
			name: "Contradiction offset by comparable support",
			claims: []model.Claim{
				{ID: "C1", Text: "Served as a ship's surgeon", Importance: model.ImportanceMajor},
			},
			verdicts: append(contradictedEverywhere("C1", 0.8), model.EvidenceVerdict{
				ClaimID: "C1", Phase: model.PhaseMid, Relation: model.RelationSupports, Confidence: 0.78,
			}),
		},
		{
			name: "Major claim presupposing a contradicted minor claim",
			claims: []model.Claim{
				{ID: "C1", Text: "Lost her brother at sea", Importance: model.ImportanceMinor},
				{ID: "C2", Text: "Swore never to sail again", Importance: model.ImportanceMajor},
			},
			edges:    []model.Edge{{From: "C2", To: "C1", Seq: 1}},
			verdicts: contradictedEverywhere("C1", 0.85),
		},
		{
			name: "Dependency cycle",
			claims: []model.Claim{
				{ID: "C1", Text: "Trained as a cartographer", Importance: model.ImportanceMajor},
				{ID: "C2", Text: "Mapped the northern coast", Importance: model.ImportanceMinor},
			},
			edges: []model.Edge{{From: "C1", To: "C2", Seq: 1}, {From: "C2", To: "C1", Seq: 2}},
		},
	}

	failed := false
	for i, sc := range scenarios {
		fmt.Printf("Scenario %d: %s\n", i+1, sc.name)
		fmt.Println(strings.Repeat("-", 60))

		report, err := pipeline.Replay(&model.Report{
			StoryID:  fmt.Sprintf("demo-%d", i+1),
			Claims:   sc.claims,
			Edges:    sc.edges,
			Verdicts: sc.verdicts,
		}, model.DefaultConfig().Scoring)
		if err != nil {
			fmt.Printf("  ✗ %v\n\n", err)
			failed = true
			continue
		}

		for _, s := range report.Scores {
			marker := ""
			if s.Infected {
				marker = fmt.Sprintf(" (infected by %s)", s.InfectedBy)
			}
			fmt.Printf("  %s %-5s %-19s %.2f%s\n", s.ClaimID, s.Importance, s.Severity, s.Confidence, marker)
		}
		pipeline.NewRenderer(false).RenderSummary(os.Stdout, report)
		fmt.Println()
	}

	if failed {
		os.Exit(1)
	}
}
