// Package memstore is an in-memory storage adapter for tracking
// repositories: staged writes with commit/rollback, suitable for
// development and tests.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/trickstertwo/xdispatch"
)

var (
	// ErrNotFound is returned when removing an aggregate that is not
	// stored.
	ErrNotFound = errors.New("memstore: aggregate not found")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("memstore: store is closed")
)

// Store keeps aggregates in memory with transactional membership:
// Add and Remove land in a working view and become durable on Commit;
// Rollback resets the working view to the last committed state.
//
// Membership is transactional, aggregate field state is not — the
// store holds references, it does not snapshot aggregates.
type Store struct {
	mu        sync.Mutex
	committed map[string]xdispatch.Aggregate
	working   map[string]xdispatch.Aggregate
	closed    bool
}

var _ xdispatch.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		committed: make(map[string]xdispatch.Aggregate),
		working:   make(map[string]xdispatch.Aggregate),
	}
}

// Add stages an aggregate. Adding a key already present fails with
// xdispatch.ErrDuplicateKey.
func (s *Store) Add(_ context.Context, agg xdispatch.Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if agg == nil {
		return ErrNotFound
	}
	if _, ok := s.working[agg.Key()]; ok {
		return fmt.Errorf("%w: %s", xdispatch.ErrDuplicateKey, agg.Key())
	}
	s.working[agg.Key()] = agg
	return nil
}

// Get returns the aggregate stored under ref, or (nil, nil) when
// absent.
func (s *Store) Get(_ context.Context, ref string) (xdispatch.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	agg, ok := s.working[ref]
	if !ok {
		return nil, nil
	}
	return agg, nil
}

// List returns every staged aggregate ordered by key.
func (s *Store) List(_ context.Context) ([]xdispatch.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(s.working))
	for k := range s.working {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]xdispatch.Aggregate, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.working[k])
	}
	return out, nil
}

// Remove unstages an aggregate. Removing an unknown aggregate fails
// with ErrNotFound.
func (s *Store) Remove(_ context.Context, agg xdispatch.Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if agg == nil {
		return ErrNotFound
	}
	if _, ok := s.working[agg.Key()]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, agg.Key())
	}
	delete(s.working, agg.Key())
	return nil
}

// Commit makes the working view durable.
func (s *Store) Commit(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.committed = clone(s.working)
	return nil
}

// Rollback discards staged changes, restoring the last committed
// view.
func (s *Store) Rollback(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.working = clone(s.committed)
	return nil
}

// Close marks the store unusable. Idempotent.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Committed reports whether the given key is in the durable view.
func (s *Store) Committed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.committed[key]
	return ok
}

func clone(m map[string]xdispatch.Aggregate) map[string]xdispatch.Aggregate {
	out := make(map[string]xdispatch.Aggregate, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
