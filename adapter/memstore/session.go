package memstore

import (
	"context"

	"github.com/trickstertwo/xdispatch"
)

// session binds a sessioned unit of work to a Store: commit and
// rollback are forwarded, close is a no-op so the store survives
// across scopes.
type session struct {
	store *Store
}

var _ xdispatch.Session = session{}

func (s session) Commit(ctx context.Context) error   { return s.store.Commit(ctx) }
func (s session) Rollback(ctx context.Context) error { return s.store.Rollback(ctx) }
func (s session) Close(context.Context) error        { return nil }

// SessionFactory returns a factory producing sessions over store, for
// use with xdispatch.NewSessionedUnitOfWork.
func SessionFactory(store *Store) xdispatch.SessionFactory {
	return func(context.Context) (xdispatch.Session, error) {
		return session{store: store}, nil
	}
}
