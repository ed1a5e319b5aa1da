// Package repository is the client-side snapshot cache for the relationship
// graph. Slices are replaced wholesale on refetch, never patched in place;
// the derived overview is recomputed under the same lock as the replacement
// so a recompute can never observe a half-refreshed snapshot.
package repository

import (
	"fmt"
	"sync"

	"github.com/orgmesh/orgmesh/internal/clock"
	"github.com/orgmesh/orgmesh/internal/relations/aggregate"
	"github.com/orgmesh/orgmesh/internal/relations/domain"
)

// Store caches one snapshot per actor context.
type Store struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]*entry
}

type entry struct {
	mu       sync.RWMutex
	snap     domain.Snapshot
	overview domain.Overview
	derived  bool
}

func New(clk clock.Clock) *Store {
	return &Store{
		clock:   clk,
		entries: make(map[string]*entry),
	}
}

func actorKey(actor domain.Actor) string {
	return fmt.Sprintf("%s:%d:%d", actor.OrgKind, actor.OrgID, actor.UserID)
}

func (s *Store) entryFor(actor domain.Actor) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := actorKey(actor)
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

// Snapshot returns a copy of the cached snapshot for the actor. The slices
// are copied so callers can iterate without holding the lock.
func (s *Store) Snapshot(actor domain.Actor) domain.Snapshot {
	e := s.entryFor(actor)
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneSnapshot(e.snap)
}

// Overview returns the last derived overview. The second return is false
// until the first refresh completes.
func (s *Store) Overview(actor domain.Actor) (domain.Overview, bool) {
	e := s.entryFor(actor)
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.overview, e.derived
}

// Replace applies a slice replacement to the actor's snapshot, stamps the
// fetch time, and recomputes the derived overview — all under one lock so
// the refetch→recompute pair is serialized.
func (s *Store) Replace(actor domain.Actor, apply func(snap *domain.Snapshot)) domain.Snapshot {
	e := s.entryFor(actor)
	e.mu.Lock()
	defer e.mu.Unlock()

	apply(&e.snap)
	e.snap.FetchedAt = s.clock.Now()
	e.overview = aggregate.Compute(e.snap, actor)
	e.derived = true
	return cloneSnapshot(e.snap)
}

func cloneSnapshot(snap domain.Snapshot) domain.Snapshot {
	out := snap
	out.Partnerships = append([]domain.Partnership(nil), snap.Partnerships...)
	out.BranchRequests = append([]domain.BranchRequest(nil), snap.BranchRequests...)
	out.SubOrganizations = append([]domain.Organization(nil), snap.SubOrganizations...)
	out.MembershipRequests = append([]domain.MembershipRequest(nil), snap.MembershipRequests...)
	out.MemberSources = append([]domain.MemberSource(nil), snap.MemberSources...)
	return out
}
