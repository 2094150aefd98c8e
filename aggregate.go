package xdispatch

import "context"

// Aggregate is a domain object with identity. Its mutating operations
// record facts on a private event queue as a side effect; the queue is
// drained, not copied, when the owning repository collects events.
//
// Identity and equality are defined by Key, a business key, not object
// identity.
type Aggregate interface {
	Key() string
	Events() *MessageQueue
}

// Store is the storage-adapter contract a tracking repository wraps.
// Concrete backends (in-memory, file, SQL) live outside the core and
// implement this seam. Get returns (nil, nil) when the reference does
// not resolve.
//
// Commit, Rollback and Close are driven by the unit of work's scope
// exit, never by the repository itself.
type Store interface {
	Add(ctx context.Context, agg Aggregate) error
	Get(ctx context.Context, ref string) (Aggregate, error)
	List(ctx context.Context) ([]Aggregate, error)
	Remove(ctx context.Context, agg Aggregate) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}
