// Package propagate spreads fatal contradictions to dependent claims.
package propagate

import (
	"fmt"

	"github.com/ppiankov/continuum/internal/graph"
	"github.com/ppiankov/continuum/internal/model"
)

// Propagator marks claims that presuppose a fatally contradicted claim
type Propagator struct {
	store *graph.Store
}

// New creates a propagator over an acyclic store. Call Store.BreakCycles first.
func New(store *graph.Store) *Propagator {
	return &Propagator{store: store}
}

// Propagate returns new scores with Infected set on every claim reachable
// from a FATAL_CONTRADICTION claim through dependents edges. Severity is left
// as directly scored. Input scores are not modified, and infection is derived
// only from directly scored severities, so re-running yields the same set.
func (p *Propagator) Propagate(scores []model.ClaimScore) []model.ClaimScore {
	out := make([]model.ClaimScore, len(scores))
	byID := make(map[string]int, len(scores))
	for i, s := range scores {
		s.Infected = false
		s.InfectedBy = ""
		s.Signals = withoutInfection(s.Signals)
		out[i] = s
		byID[s.ClaimID] = i
	}

	type item struct {
		id     string
		source string
	}
	var queue []item
	visited := make(map[string]bool)

	for _, s := range out {
		if s.Severity == model.SeverityFatalContradiction {
			queue = append(queue, item{id: s.ClaimID, source: s.ClaimID})
			visited[s.ClaimID] = true
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, dep := range p.store.Dependents(cur.id).Sorted() {
			i, ok := byID[dep]
			if !ok {
				continue
			}
			if !out[i].Infected {
				out[i].Infected = true
				out[i].InfectedBy = cur.source
				out[i].Signals = append(out[i].Signals, model.Signal{
					Type:        model.SignalInfection,
					Description: fmt.Sprintf("Presupposes fatally contradicted claim %s", cur.source),
					Data: map[string]interface{}{
						"source": cur.source,
						"via":    cur.id,
					},
				})
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, item{id: dep, source: cur.source})
			}
		}
	}

	return out
}

func withoutInfection(signals []model.Signal) []model.Signal {
	var kept []model.Signal
	for _, s := range signals {
		if s.Type != model.SignalInfection {
			kept = append(kept, s)
		}
	}
	return kept
}
