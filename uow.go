package xdispatch

import (
	"context"
	"errors"
)

// ErrNoSession is returned by a sessioned unit of work used outside an
// active scope.
var ErrNoSession = errors.New("xdispatch: unit of work has no active session")

// UnitOfWork is the transactional boundary around one dispatch. Begin
// resets the event-producing state for a fresh scope; Close releases
// resources on scope exit. There is no automatic rollback: unless
// auto-commit is enabled and the scope exits cleanly, the caller must
// commit or roll back explicitly.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error

	// AutoCommit reports whether a clean Scope exit commits implicitly.
	AutoCommit() bool

	// CollectEvents drains every owned repository and returns the merged
	// events in creation order. The drain is exhausted exactly once per
	// bus processing step.
	CollectEvents() []Message
}

// Scope runs fn inside a unit-of-work scope: Begin, fn, then Close on
// the way out regardless of error. When fn returns nil and the unit of
// work has auto-commit enabled, the scope commits before closing; on
// error the state is left uncommitted for the caller to reconcile.
func Scope(ctx context.Context, uow UnitOfWork, fn func(ctx context.Context) error) (err error) {
	if err = uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := uow.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err = fn(ctx); err != nil {
		return err
	}
	if uow.AutoCommit() {
		err = uow.Commit(ctx)
	}
	return err
}

// EventfulUnitOfWork owns one or more eventful repositories and drives
// their storage adapters' commit/rollback/close from its own scope.
type EventfulUnitOfWork struct {
	repos      []*EventfulRepository
	autoCommit bool
}

var _ UnitOfWork = (*EventfulUnitOfWork)(nil)

// NewEventfulUnitOfWork builds a unit of work over the given
// repositories.
func NewEventfulUnitOfWork(repos ...*EventfulRepository) *EventfulUnitOfWork {
	return &EventfulUnitOfWork{repos: repos}
}

// SetAutoCommit opts in to committing automatically on clean Scope
// exit.
func (u *EventfulUnitOfWork) SetAutoCommit(v bool) { u.autoCommit = v }

// AutoCommit implements UnitOfWork.
func (u *EventfulUnitOfWork) AutoCommit() bool { return u.autoCommit }

// Begin resets each repository's seen set and residual events for a
// fresh scope.
func (u *EventfulUnitOfWork) Begin(context.Context) error {
	for _, r := range u.repos {
		r.Reset()
	}
	return nil
}

// Commit commits every owned storage adapter.
func (u *EventfulUnitOfWork) Commit(ctx context.Context) error {
	var errs []error
	for _, r := range u.repos {
		if err := r.Store().Commit(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rollback rolls back every owned storage adapter.
func (u *EventfulUnitOfWork) Rollback(ctx context.Context) error {
	var errs []error
	for _, r := range u.repos {
		if err := r.Store().Rollback(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every owned storage adapter.
func (u *EventfulUnitOfWork) Close(ctx context.Context) error {
	var errs []error
	for _, r := range u.repos {
		if err := r.Store().Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CollectEvents concatenates each repository's drain and merges the
// result by creation time.
func (u *EventfulUnitOfWork) CollectEvents() []Message {
	if len(u.repos) == 1 {
		return u.repos[0].CollectEvents()
	}
	merged := &MessageQueue{}
	for _, r := range u.repos {
		_ = merged.Extend(r.CollectEvents())
	}
	return merged.Drain()
}

// Repositories returns the owned repositories in registration order.
func (u *EventfulUnitOfWork) Repositories() []*EventfulRepository {
	return u.repos
}

// Session is a connection-like resource the sessioned unit of work
// opens per scope.
type Session interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

// SessionFactory produces a fresh session for each scope entry.
type SessionFactory func(ctx context.Context) (Session, error)

// SessionedUnitOfWork is an eventful unit of work whose transaction
// lives on a session produced per scope: Begin opens the session,
// Close closes it, Commit and Rollback delegate to it. The owned
// repositories are expected to read and write through the same
// session.
type SessionedUnitOfWork struct {
	*EventfulUnitOfWork
	factory SessionFactory
	session Session
}

var _ UnitOfWork = (*SessionedUnitOfWork)(nil)

// NewSessionedUnitOfWork builds a sessioned unit of work from a
// session factory and the repositories bound to that session.
func NewSessionedUnitOfWork(factory SessionFactory, repos ...*EventfulRepository) *SessionedUnitOfWork {
	return &SessionedUnitOfWork{
		EventfulUnitOfWork: NewEventfulUnitOfWork(repos...),
		factory:            factory,
	}
}

// Session returns the active session, or nil outside a scope.
func (u *SessionedUnitOfWork) Session() Session { return u.session }

// Begin opens a fresh session and resets the repositories.
func (u *SessionedUnitOfWork) Begin(ctx context.Context) error {
	s, err := u.factory(ctx)
	if err != nil {
		return err
	}
	u.session = s
	return u.EventfulUnitOfWork.Begin(ctx)
}

// Commit commits the active session.
func (u *SessionedUnitOfWork) Commit(ctx context.Context) error {
	if u.session == nil {
		return ErrNoSession
	}
	return u.session.Commit(ctx)
}

// Rollback rolls back the active session.
func (u *SessionedUnitOfWork) Rollback(ctx context.Context) error {
	if u.session == nil {
		return ErrNoSession
	}
	return u.session.Rollback(ctx)
}

// Close closes and forgets the active session.
func (u *SessionedUnitOfWork) Close(ctx context.Context) error {
	if u.session == nil {
		return nil
	}
	err := u.session.Close(ctx)
	u.session = nil
	return err
}
