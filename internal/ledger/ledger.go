// Package ledger accumulates evidence verdicts per claim and phase.
package ledger

import (
	"sort"
	"sync"

	"github.com/ppiankov/continuum/internal/model"
)

type bucketKey struct {
	claimID string
	phase   model.Phase
}

// Ledger is an append-only record of evidence verdicts. Appends are safe
// from multiple goroutines; contradictory verdicts are kept side by side.
type Ledger struct {
	mu      sync.RWMutex
	buckets map[bucketKey][]model.EvidenceVerdict
	seq     []model.EvidenceVerdict // every verdict in append order
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{
		buckets: make(map[bucketKey][]model.EvidenceVerdict),
	}
}

// RecordVerdict appends a verdict. There is no deduplication and no overwrite.
func (l *Ledger) RecordVerdict(v model.EvidenceVerdict) {
	v.Confidence = model.ClampConfidence(v.Confidence)

	l.mu.Lock()
	defer l.mu.Unlock()
	k := bucketKey{claimID: v.ClaimID, phase: v.Phase}
	l.buckets[k] = append(l.buckets[k], v)
	l.seq = append(l.seq, v)
}

// VerdictsFor returns a snapshot of the verdicts for one claim and phase
func (l *Ledger) VerdictsFor(claimID string, phase model.Phase) []model.EvidenceVerdict {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src := l.buckets[bucketKey{claimID: claimID, phase: phase}]
	out := make([]model.EvidenceVerdict, len(src))
	copy(out, src)
	return out
}

// ClaimVerdicts returns a snapshot of every verdict for a claim, grouped by phase
func (l *Ledger) ClaimVerdicts(claimID string) map[model.Phase][]model.EvidenceVerdict {
	out := make(map[model.Phase][]model.EvidenceVerdict, len(model.Phases))
	for _, p := range model.Phases {
		out[p] = l.VerdictsFor(claimID, p)
	}
	return out
}

// IsUnderdetermined is true iff no phase holds a non-NEUTRAL verdict for the claim
func (l *Ledger) IsUnderdetermined(claimID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range model.Phases {
		for _, v := range l.buckets[bucketKey{claimID: claimID, phase: p}] {
			if v.Relation != model.RelationNeutral {
				return false
			}
		}
	}
	return true
}

// Len returns the total number of recorded verdicts
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.seq)
}

// All returns every verdict ordered by claim id, then phase, then append order
// within the bucket. The ordering does not depend on goroutine scheduling
// across buckets, which keeps serialized ledgers stable.
func (l *Ledger) All() []model.EvidenceVerdict {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]bucketKey, 0, len(l.buckets))
	for k := range l.buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].claimID != keys[j].claimID {
			return keys[i].claimID < keys[j].claimID
		}
		return phaseRank(keys[i].phase) < phaseRank(keys[j].phase)
	})

	out := make([]model.EvidenceVerdict, 0, len(l.seq))
	for _, k := range keys {
		out = append(out, l.buckets[k]...)
	}
	return out
}

// FromVerdicts rebuilds a ledger from a serialized verdict list
func FromVerdicts(verdicts []model.EvidenceVerdict) *Ledger {
	l := New()
	for _, v := range verdicts {
		l.RecordVerdict(v)
	}
	return l
}

func phaseRank(p model.Phase) int {
	for i, q := range model.Phases {
		if q == p {
			return i
		}
	}
	return len(model.Phases)
}
