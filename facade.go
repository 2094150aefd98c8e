package xdispatch

import (
	"context"
	"sync"
)

var (
	defaultBus   *Bus
	defaultBusMu sync.Mutex
)

// Default returns the process-wide default Bus installed via
// SetDefault, or nil when none was installed.
func Default() *Bus {
	defaultBusMu.Lock()
	defer defaultBusMu.Unlock()
	return defaultBus
}

// SetDefault installs the process-wide default Bus.
func SetDefault(b *Bus) {
	if b == nil {
		panic("xdispatch: SetDefault called with nil Bus")
	}
	defaultBusMu.Lock()
	defaultBus = b
	defaultBusMu.Unlock()
}

// Handle is the facade using the default bus.
func Handle(ctx context.Context, msg Message) error {
	b := Default()
	if b == nil {
		return ErrDispatchNotInitialized
	}
	return b.Handle(ctx, msg)
}

// Subscribe is the facade using the default bus.
func Subscribe(msg Message, handler Handler) error {
	b := Default()
	if b == nil {
		return ErrDispatchNotInitialized
	}
	return b.Subscribe(msg, handler)
}
