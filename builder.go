package xdispatch

import (
	"reflect"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// BusBuilder constructs Bus instances.
type BusBuilder struct {
	uow         UnitOfWork
	middlewares []Middleware
	observers   []Observer
	logger      *xlog.Logger
	clock       xclock.Clock
}

// NewBusBuilder returns a builder with defaults: xclock.Default() for
// time and xlog.Default() for logging.
func NewBusBuilder() *BusBuilder {
	return &BusBuilder{}
}

// WithUnitOfWork binds the unit of work the bus harvests events from.
func (bb *BusBuilder) WithUnitOfWork(u UnitOfWork) *BusBuilder {
	bb.uow = u
	return bb
}

// WithMiddleware adds processing middlewares applied to every handler
// at subscription time.
func (bb *BusBuilder) WithMiddleware(mw ...Middleware) *BusBuilder {
	bb.middlewares = append(bb.middlewares, mw...)
	return bb
}

// WithObserver attaches observers for dispatch lifecycle events.
func (bb *BusBuilder) WithObserver(obs ...Observer) *BusBuilder {
	for _, o := range obs {
		if o != nil {
			bb.observers = append(bb.observers, o)
		}
	}
	return bb
}

// WithLogger injects a custom xlog logger.
func (bb *BusBuilder) WithLogger(l *xlog.Logger) *BusBuilder {
	bb.logger = l
	return bb
}

// WithClock injects a custom xclock clock.
func (bb *BusBuilder) WithClock(c xclock.Clock) *BusBuilder {
	bb.clock = c
	return bb
}

// Build assembles the bus. A unit of work is required; everything else
// falls back to defaults.
func (bb *BusBuilder) Build() (*Bus, error) {
	if bb.uow == nil {
		return nil, ErrNoUnitOfWork
	}

	clk := bb.clock
	if clk == nil {
		clk = xclock.Default()
	}
	lg := bb.logger
	if lg == nil {
		lg = xlog.Default()
	}

	b := &Bus{
		uow:             bb.uow,
		commandHandlers: make(map[reflect.Type]Handler),
		eventHandlers:   make(map[reflect.Type][]Handler),
		middlewares:     bb.middlewares,
		clock:           clk,
		logger:          lg,
	}
	for _, o := range bb.observers {
		b.AddObserver(o)
	}
	return b, nil
}

// New constructs a Bus via the builder init function.
func New(init func(b *BusBuilder)) (*Bus, error) {
	bb := NewBusBuilder()
	if init != nil {
		init(bb)
	}
	return bb.Build()
}
