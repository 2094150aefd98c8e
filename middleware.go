package xdispatch

import (
	"context"
	"fmt"
	"reflect"

	"github.com/trickstertwo/xlog"
)

// Middleware composes processing concerns around a Handler.
type Middleware func(next Handler) Handler

// Chain composes middlewares around a handler in order: the first
// middleware wraps the last.
func Chain(h Handler, mws ...Middleware) Handler {
	if len(mws) == 0 {
		return h
	}
	wrapped := h
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

// RecoveryMiddleware converts a handler panic into an error. The error
// is not a DomainError, so it stays fatal to the dispatch; the engine
// merely gets a chance to log and unwind cleanly.
func RecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("xdispatch: handler panic: %v", r)
				}
			}()
			return next(ctx, msg)
		}
	}
}

// LoggingMiddleware logs every handler invocation at debug level and
// failures at warn level.
func LoggingMiddleware(logger *xlog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) error {
			lg := logger.With(
				xlog.Str("message", reflect.TypeOf(msg).String()),
				xlog.Str("kind", msg.Kind().String()),
			)
			lg.Debug().Msg("xdispatch: invoking handler")
			err := next(ctx, msg)
			if err != nil {
				lg.Warn().Err(err).Msg("xdispatch: handler failed")
			}
			return err
		}
	}
}
