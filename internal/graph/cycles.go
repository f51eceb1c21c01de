package graph

import "github.com/ppiankov/continuum/internal/model"

// BreakCycles removes edges until the dependency graph is acyclic. For every
// cycle found, the cycle edge with the greatest insertion sequence is removed
// and a warning is returned. The walk visits claims and edges in insertion
// order, so the same input always loses the same edges.
func (s *Store) BreakCycles() []model.DependencyCycleWarning {
	var warnings []model.DependencyCycleWarning
	for {
		cycle := s.findCycle()
		if cycle == nil {
			return warnings
		}

		latest := cycle[0]
		nodes := make([]string, 0, len(cycle))
		for _, e := range cycle {
			nodes = append(nodes, e.From)
			if e.Seq > latest.Seq {
				latest = e
			}
		}

		s.unlink(latest)
		warnings = append(warnings, model.DependencyCycleWarning{
			Cycle:   nodes,
			Removed: latest,
		})
	}
}

// HasCycle reports whether the live edges contain a cycle
func (s *Store) HasCycle() bool {
	return s.findCycle() != nil
}

const (
	white = iota
	gray
	black
)

// findCycle returns the edges of the first cycle found, or nil
func (s *Store) findCycle() []model.Edge {
	color := make(map[string]int, len(s.order))
	var path []model.Edge
	var cycle []model.Edge

	var visit func(u string) bool
	visit = func(u string) bool {
		color[u] = gray
		for _, e := range s.out[u] {
			switch color[e.To] {
			case gray:
				start := -1
				for i := range path {
					if path[i].From == e.To {
						start = i
						break
					}
				}
				if start >= 0 {
					cycle = append(cycle, path[start:]...)
				}
				cycle = append(cycle, e)
				return true
			case white:
				path = append(path, e)
				if visit(e.To) {
					return true
				}
				path = path[:len(path)-1]
			}
		}
		color[u] = black
		return false
	}

	for _, id := range s.order {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}
