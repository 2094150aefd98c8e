package xdispatch

import (
	"context"
	"sort"
)

// Seer is the hook a tracking wrapper calls after each successful
// add/get/list. Exposed as an interface so decorations compose with
// any base Store.
type Seer interface {
	MarkSeen(agg Aggregate)
}

// TrackingRepository decorates a Store so that every aggregate flowing
// through Add, Get and List is recorded in a per-scope seen set. The
// caller never tracks explicitly; Remove discards from the set.
//
// Tracking is success-only: a failed underlying call records nothing.
// The seen set belongs to one unit-of-work scope and is reset on each
// new scope entry.
type TrackingRepository struct {
	store Store
	seen  map[string]Aggregate
}

var _ Seer = (*TrackingRepository)(nil)

// NewTrackingRepository wraps store with implicit seen-set tracking.
func NewTrackingRepository(store Store) *TrackingRepository {
	return &TrackingRepository{
		store: store,
		seen:  make(map[string]Aggregate),
	}
}

// Add stores the aggregate, then records it as seen.
func (r *TrackingRepository) Add(ctx context.Context, agg Aggregate) error {
	if err := r.store.Add(ctx, agg); err != nil {
		return err
	}
	r.MarkSeen(agg)
	return nil
}

// Get fetches an aggregate by reference and records a non-nil result
// as seen.
func (r *TrackingRepository) Get(ctx context.Context, ref string) (Aggregate, error) {
	agg, err := r.store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if agg != nil {
		r.MarkSeen(agg)
	}
	return agg, nil
}

// List fetches every aggregate and records each as seen.
func (r *TrackingRepository) List(ctx context.Context) ([]Aggregate, error) {
	aggs, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, agg := range aggs {
		r.MarkSeen(agg)
	}
	return aggs, nil
}

// Remove deletes the aggregate from the store and discards it from the
// seen set.
func (r *TrackingRepository) Remove(ctx context.Context, agg Aggregate) error {
	if err := r.store.Remove(ctx, agg); err != nil {
		return err
	}
	if agg != nil {
		delete(r.seen, agg.Key())
	}
	return nil
}

// MarkSeen records an aggregate in the seen set, deduplicated by key.
func (r *TrackingRepository) MarkSeen(agg Aggregate) {
	if agg == nil {
		return
	}
	r.seen[agg.Key()] = agg
}

// Seen returns the tracked aggregates ordered by key.
func (r *TrackingRepository) Seen() []Aggregate {
	keys := make([]string, 0, len(r.seen))
	for k := range r.seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Aggregate, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.seen[k])
	}
	return out
}

// Reset clears the seen set for a new unit-of-work scope.
func (r *TrackingRepository) Reset() {
	r.seen = make(map[string]Aggregate)
}

// Store exposes the wrapped storage adapter so the unit of work can
// drive commit/rollback/close on scope exit.
func (r *TrackingRepository) Store() Store { return r.store }

// EventfulRepository extends a tracking repository with event
// harvesting: it drains every seen aggregate's private event queue
// into its own queue, merged and re-sorted by creation time.
type EventfulRepository struct {
	*TrackingRepository
	events *MessageQueue
}

// NewEventfulRepository wraps store with tracking and event harvesting.
func NewEventfulRepository(store Store) *EventfulRepository {
	return &EventfulRepository{
		TrackingRepository: NewTrackingRepository(store),
		events:             &MessageQueue{},
	}
}

// CollectEvents drains the event queue of every seen aggregate into
// the repository's own queue, then drains that queue into the returned
// slice, oldest first. The drain is one-shot: a second call with no
// intervening aggregate mutation yields nothing.
func (r *EventfulRepository) CollectEvents() []Message {
	for _, agg := range r.Seen() {
		q := agg.Events()
		if q == nil {
			continue
		}
		// Moves, never copies: the aggregate's queue ends up empty.
		for !q.Empty() {
			msg, err := q.PopFront()
			if err != nil {
				break
			}
			_ = r.events.Append(msg)
		}
	}
	return r.events.Drain()
}

// Reset clears the seen set and any residual undelivered events for a
// new unit-of-work scope.
func (r *EventfulRepository) Reset() {
	r.TrackingRepository.Reset()
	r.events.Clear()
}
