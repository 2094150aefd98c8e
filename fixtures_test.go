package xdispatch

import (
	"context"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func at(offset time.Duration) time.Time { return t0.Add(offset) }

// Test messages.

type createNote struct {
	Command
	Text string
}

type noteCreated struct {
	Event
	Text string
}

type noteArchived struct {
	Event
}

// unroutable has a Kind outside the closed set.
type unroutable struct {
	stamp time.Time
}

func (u unroutable) Kind() Kind           { return Kind(99) }
func (u unroutable) CreatedAt() time.Time { return u.stamp }

// fakeAggregate records facts on a private queue, like a real domain
// object would as a side effect of its mutations.
type fakeAggregate struct {
	key    string
	events MessageQueue
}

func (a *fakeAggregate) Key() string           { return a.key }
func (a *fakeAggregate) Events() *MessageQueue { return &a.events }

func (a *fakeAggregate) raise(msg Message) {
	_ = a.events.Append(msg)
}

// fakeStore is a minimal storage adapter with programmable failures
// and call counters.
type fakeStore struct {
	objs map[string]Aggregate

	failAdd    error
	failGet    error
	failList   error
	failRemove error

	commits   int
	rollbacks int
	closes    int
}

var _ Store = (*fakeStore)(nil)

func newFakeStore(aggs ...Aggregate) *fakeStore {
	s := &fakeStore{objs: make(map[string]Aggregate)}
	for _, a := range aggs {
		s.objs[a.Key()] = a
	}
	return s
}

func (s *fakeStore) Add(_ context.Context, agg Aggregate) error {
	if s.failAdd != nil {
		return s.failAdd
	}
	s.objs[agg.Key()] = agg
	return nil
}

func (s *fakeStore) Get(_ context.Context, ref string) (Aggregate, error) {
	if s.failGet != nil {
		return nil, s.failGet
	}
	agg, ok := s.objs[ref]
	if !ok {
		return nil, nil
	}
	return agg, nil
}

func (s *fakeStore) List(_ context.Context) ([]Aggregate, error) {
	if s.failList != nil {
		return nil, s.failList
	}
	out := make([]Aggregate, 0, len(s.objs))
	for _, a := range s.objs {
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeStore) Remove(_ context.Context, agg Aggregate) error {
	if s.failRemove != nil {
		return s.failRemove
	}
	delete(s.objs, agg.Key())
	return nil
}

func (s *fakeStore) Commit(context.Context) error   { s.commits++; return nil }
func (s *fakeStore) Rollback(context.Context) error { s.rollbacks++; return nil }
func (s *fakeStore) Close(context.Context) error    { s.closes++; return nil }

// stubUnitOfWork hands out pre-scripted event batches, one batch per
// CollectEvents call, and counts the calls.
type stubUnitOfWork struct {
	batches  [][]Message
	collects int
}

var _ UnitOfWork = (*stubUnitOfWork)(nil)

func (u *stubUnitOfWork) Begin(context.Context) error    { return nil }
func (u *stubUnitOfWork) Commit(context.Context) error   { return nil }
func (u *stubUnitOfWork) Rollback(context.Context) error { return nil }
func (u *stubUnitOfWork) Close(context.Context) error    { return nil }
func (u *stubUnitOfWork) AutoCommit() bool               { return false }

func (u *stubUnitOfWork) CollectEvents() []Message {
	u.collects++
	if len(u.batches) == 0 {
		return nil
	}
	batch := u.batches[0]
	u.batches = u.batches[1:]
	return batch
}

func newTestBus(t interface{ Fatalf(string, ...any) }, uow UnitOfWork) *Bus {
	bus, err := New(func(b *BusBuilder) {
		b.WithUnitOfWork(uow)
	})
	if err != nil {
		t.Fatalf("build bus: %v", err)
	}
	return bus
}
