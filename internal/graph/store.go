// Package graph holds a story's claims and the dependency edges between them.
package graph

import (
	"fmt"
	"iter"
	"sort"

	"github.com/ppiankov/continuum/internal/model"
)

// IDSet is a read-only set of claim ids. Sets returned by Store are views
// into its state; callers must not modify them.
type IDSet map[string]struct{}

// Has reports whether id is in the set
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexical order
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Store holds the claims of one story and their dependency edges.
// It is not safe for concurrent mutation; once built, concurrent reads are fine.
type Store struct {
	claims     map[string]model.Claim
	order      []string
	index      map[string]int
	deps       map[string]IDSet // claim -> prerequisites
	dependents map[string]IDSet // claim -> claims that presuppose it
	out        map[string][]model.Edge
	supplied   []model.Edge
	seq        int
}

// NewStore creates an empty claim store
func NewStore() *Store {
	return &Store{
		claims:     make(map[string]model.Claim),
		index:      make(map[string]int),
		deps:       make(map[string]IDSet),
		dependents: make(map[string]IDSet),
		out:        make(map[string][]model.Edge),
	}
}

// AddClaim adds a claim. The claim's DependsOn field is ignored; use AddDependency.
func (s *Store) AddClaim(c model.Claim) error {
	if c.ID == "" {
		return ErrEmptyClaimID
	}
	if _, exists := s.claims[c.ID]; exists {
		return &DuplicateClaimError{ID: c.ID}
	}
	if !c.Importance.Valid() {
		return fmt.Errorf("claim %s: invalid importance %q", c.ID, c.Importance)
	}

	c.DependsOn = nil
	s.claims[c.ID] = c
	s.index[c.ID] = len(s.order)
	s.order = append(s.order, c.ID)
	s.deps[c.ID] = make(IDSet)
	s.dependents[c.ID] = make(IDSet)
	return nil
}

// AddDependency records that claim `from` presupposes claim `to`.
// Repeating an existing edge is a no-op. Self edges are accepted and
// removed by BreakCycles like any other cycle.
func (s *Store) AddDependency(from, to string) error {
	if _, ok := s.claims[from]; !ok {
		return &UnknownClaimError{ID: from}
	}
	if _, ok := s.claims[to]; !ok {
		return &UnknownClaimError{ID: to}
	}
	if s.deps[from].Has(to) {
		return nil
	}

	s.seq++
	e := model.Edge{From: from, To: to, Seq: s.seq}
	s.supplied = append(s.supplied, e)
	s.link(e)
	return nil
}

func (s *Store) link(e model.Edge) {
	s.deps[e.From][e.To] = struct{}{}
	s.dependents[e.To][e.From] = struct{}{}
	s.out[e.From] = append(s.out[e.From], e)
}

func (s *Store) unlink(e model.Edge) {
	delete(s.deps[e.From], e.To)
	delete(s.dependents[e.To], e.From)
	edges := s.out[e.From]
	for i, oe := range edges {
		if oe.To == e.To {
			s.out[e.From] = append(edges[:i:i], edges[i+1:]...)
			break
		}
	}
}

// Len returns the number of claims
func (s *Store) Len() int {
	return len(s.order)
}

// Claim returns a claim with its current DependsOn populated
func (s *Store) Claim(id string) (model.Claim, bool) {
	c, ok := s.claims[id]
	if !ok {
		return model.Claim{}, false
	}
	for _, e := range s.out[id] {
		c.DependsOn = append(c.DependsOn, e.To)
	}
	return c, true
}

// Position returns the insertion position of a claim, or -1
func (s *Store) Position(id string) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Claims returns every claim in insertion order
func (s *Store) Claims() []model.Claim {
	claims := make([]model.Claim, 0, len(s.order))
	for _, id := range s.order {
		c, _ := s.Claim(id)
		claims = append(claims, c)
	}
	return claims
}

// ClaimsByImportance lazily yields the claims of one importance in insertion order
func (s *Store) ClaimsByImportance(imp model.Importance) iter.Seq[model.Claim] {
	return func(yield func(model.Claim) bool) {
		for _, id := range s.order {
			if s.claims[id].Importance != imp {
				continue
			}
			c, _ := s.Claim(id)
			if !yield(c) {
				return
			}
		}
	}
}

// Dependencies returns the claims that id presupposes
func (s *Store) Dependencies(id string) IDSet {
	return s.deps[id]
}

// Dependents returns the claims that presuppose id
func (s *Store) Dependents(id string) IDSet {
	return s.dependents[id]
}

// Edges returns the live dependency edges in insertion order
func (s *Store) Edges() []model.Edge {
	var edges []model.Edge
	for _, id := range s.order {
		edges = append(edges, s.out[id]...)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Seq < edges[j].Seq })
	return edges
}

// SuppliedEdges returns every edge as it was added, including edges later
// removed to break cycles
func (s *Store) SuppliedEdges() []model.Edge {
	edges := make([]model.Edge, len(s.supplied))
	copy(edges, s.supplied)
	return edges
}

// FromSnapshot rebuilds a store from claims and the supplied edge list.
// Edges are replayed in Seq order so cycle breaking stays reproducible.
func FromSnapshot(claims []model.Claim, edges []model.Edge) (*Store, error) {
	s := NewStore()
	for _, c := range claims {
		if err := s.AddClaim(c); err != nil {
			return nil, err
		}
	}

	ordered := make([]model.Edge, len(edges))
	copy(ordered, edges)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })
	for _, e := range ordered {
		if err := s.AddDependency(e.From, e.To); err != nil {
			return nil, err
		}
	}
	return s, nil
}
