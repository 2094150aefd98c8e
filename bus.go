package xdispatch

import (
	"context"
	"reflect"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Handler processes a single message inside the active unit of work.
// Returning an error aborts the command path; on the event path a
// DomainError is isolated per handler and anything else is fatal.
type Handler func(ctx context.Context, msg Message) error

// Bus is the synchronous dispatch engine. It holds a command->handler
// table and an event->handler-list table keyed by the concrete dynamic
// type of the message, and runs one working queue per Handle call.
//
// The bus keeps no cross-call state: the working queue is rebuilt at
// every Handle invocation. One Bus plus its UnitOfWork serve one
// logical dispatch at a time; two concurrent Handle calls on the same
// instance are not safe.
type Bus struct {
	uow             UnitOfWork
	commandHandlers map[reflect.Type]Handler
	eventHandlers   map[reflect.Type][]Handler
	middlewares     []Middleware
	clock           xclock.Clock
	logger          *xlog.Logger
	observers       []Observer
}

// Subscribe registers a handler for the concrete type of msg. For a
// command the handler replaces any previous registration (last wins,
// at most one active); for an event it is appended to the type's
// handler list. Subscription is wiring-time work, not safe during an
// in-flight dispatch.
func (b *Bus) Subscribe(msg Message, handler Handler) error {
	if msg == nil {
		return ErrNilMessage
	}
	if handler == nil {
		return ErrNilHandler
	}

	key := reflect.TypeOf(msg)
	wrapped := Chain(handler, b.middlewares...)

	switch msg.Kind() {
	case KindCommand:
		b.commandHandlers[key] = wrapped
	case KindEvent:
		b.eventHandlers[key] = append(b.eventHandlers[key], wrapped)
	default:
		return TypeMismatchError{Type: key, Kind: msg.Kind()}
	}
	return nil
}

// Handle dispatches msg and every event harvested as a consequence,
// in creation order, until the working queue is empty or the first
// fatal error. A failed Handle means no further messages from this
// dispatch were processed; events harvested before the failure are
// discarded with the queue.
func (b *Bus) Handle(ctx context.Context, msg Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	queue, err := NewMessageQueue(msg)
	if err != nil {
		return err
	}

	b.notify(BusEvent{Type: DispatchStart, Message: msg})
	start := b.clock.Now()

	for !queue.Empty() {
		m, err := queue.PopFront()
		if err != nil {
			return err
		}

		switch m.Kind() {
		case KindCommand:
			err = b.handleCommand(ctx, m, queue)
		case KindEvent:
			err = b.handleEvent(ctx, m, queue)
		default:
			err = TypeMismatchError{Type: reflect.TypeOf(m), Kind: m.Kind()}
			b.messageLogger(m).Error().Err(err).Msg("xdispatch: unroutable message")
		}

		if err != nil {
			b.notify(BusEvent{Type: DispatchDone, Message: msg, Duration: b.clock.Since(start), Err: err})
			return err
		}
	}

	b.notify(BusEvent{Type: DispatchDone, Message: msg, Duration: b.clock.Since(start)})
	return nil
}

// handleCommand invokes the command's single handler. Every failure is
// fatal; domain errors are logged before re-raising. Events are
// harvested only after success.
func (b *Bus) handleCommand(ctx context.Context, cmd Message, queue *MessageQueue) error {
	key := reflect.TypeOf(cmd)
	handler, ok := b.commandHandlers[key]
	if !ok {
		err := UnregisteredHandlerError{Type: key}
		b.messageLogger(cmd).Error().Err(err).Msg("xdispatch: unregistered command")
		return err
	}

	start := b.clock.Now()
	if err := handler(ctx, cmd); err != nil {
		b.messageLogger(cmd).Warn().Err(err).Msg("xdispatch: error handling command")
		b.notify(BusEvent{Type: HandlerError, Message: cmd, Err: err})
		return err
	}

	b.notify(BusEvent{Type: CommandHandled, Message: cmd, Duration: b.clock.Since(start)})
	b.collect(queue)
	return nil
}

// handleEvent fans the event out to its handlers in registration
// order. A DomainError from one handler is logged and swallowed so
// siblings still run; any other error aborts the dispatch. Events are
// harvested after each successful handler.
func (b *Bus) handleEvent(ctx context.Context, evt Message, queue *MessageQueue) error {
	handlers := b.eventHandlers[reflect.TypeOf(evt)]

	for i, handler := range handlers {
		lg := b.messageLogger(evt).With(xlog.Str("handler", itoa(i)))
		lg.Debug().Msg("xdispatch: handling event")

		start := b.clock.Now()
		if err := handler(ctx, evt); err != nil {
			b.notify(BusEvent{Type: HandlerError, Message: evt, Err: err})
			if IsDomainError(err) {
				lg.Warn().Err(err).Msg("xdispatch: error handling event")
				continue
			}
			lg.Error().Err(err).Msg("xdispatch: fatal error handling event")
			return err
		}

		b.notify(BusEvent{Type: EventHandled, Message: evt, Duration: b.clock.Since(start)})
		b.collect(queue)
	}
	return nil
}

// collect drains newly produced events from the unit of work into the
// working queue. The queue re-sorts by creation time, so harvested
// events interleave with pending messages rather than going to the
// back.
func (b *Bus) collect(queue *MessageQueue) {
	if b.uow == nil {
		return
	}
	events := b.uow.CollectEvents()
	if len(events) == 0 {
		return
	}
	if err := queue.Extend(events); err != nil {
		b.logger.Warn().Err(err).Msg("xdispatch: discarding invalid collected events")
		return
	}
	b.notify(BusEvent{Type: EventsCollected, Collected: len(events)})
}

// UnitOfWork returns the unit of work bound to this bus.
func (b *Bus) UnitOfWork() UnitOfWork { return b.uow }

// AddObserver registers an observer for dispatch lifecycle events.
// Like Subscribe, this is wiring-time work.
func (b *Bus) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observers = append(b.observers, obs)
}

// notify delivers a lifecycle event to every observer, synchronously
// and in registration order. Dispatch is single-threaded, so a slow
// observer delays the loop; observers must be cheap.
func (b *Bus) notify(e BusEvent) {
	for _, o := range b.observers {
		o.OnBusEvent(e)
	}
}

func (b *Bus) messageLogger(m Message) *xlog.Logger {
	return b.logger.With(
		xlog.Str("message", reflect.TypeOf(m).String()),
		xlog.Str("kind", m.Kind().String()),
		xlog.Str("created_at", m.CreatedAt().Format(time.RFC3339Nano)),
	)
}
