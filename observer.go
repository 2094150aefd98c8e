package xdispatch

import (
	"reflect"
	"strconv"
	"time"

	"github.com/trickstertwo/xlog"
)

// BusEventType enumerates dispatch lifecycle events for the Observer
// pattern.
type BusEventType string

const (
	DispatchStart   BusEventType = "dispatch_start"
	DispatchDone    BusEventType = "dispatch_done"
	CommandHandled  BusEventType = "command_handled"
	EventHandled    BusEventType = "event_handled"
	HandlerError    BusEventType = "handler_error"
	EventsCollected BusEventType = "events_collected"
)

// BusEvent carries telemetry about one step of a dispatch.
type BusEvent struct {
	Type      BusEventType
	Message   Message
	Duration  time.Duration
	Collected int
	Err       error
}

// Observer receives dispatch lifecycle events. Delivery is synchronous
// on the dispatch goroutine; implementations must be non-blocking.
type Observer interface {
	OnBusEvent(e BusEvent)
}

// ObserverFunc lets a plain function satisfy Observer.
type ObserverFunc func(e BusEvent)

func (f ObserverFunc) OnBusEvent(e BusEvent) { f(e) }

// LoggingObserver emits BusEvents via xlog.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) OnBusEvent(e BusEvent) {
	if o.Logger == nil {
		return
	}
	lg := o.Logger.With(xlog.Str("type", string(e.Type)))
	if e.Message != nil {
		lg = lg.With(xlog.Str("message", reflect.TypeOf(e.Message).String()))
	}
	if e.Collected > 0 {
		lg = lg.With(xlog.Str("collected", itoa(e.Collected)))
	}
	switch e.Type {
	case HandlerError:
		lg.Warn().Err(e.Err).Msg("xdispatch event")
	default:
		if e.Duration > 0 {
			lg = lg.With(xlog.Dur("duration", e.Duration))
		}
		lg.Debug().Msg("xdispatch event")
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
