package redispub

import (
	"fmt"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xdispatch"
)

// Use builds a Broker backed by a Redis transport and installs it as
// the process-wide default. Mirrors the xlog/xclock "Use" behavior:
// explicit construction with global install.
func Use(cfg Config, opts ...Option) *xdispatch.Broker {
	tr, err := New(cfg)
	if err != nil {
		panic(fmt.Errorf("redispub.Use: %w", err))
	}

	bopts := []xdispatch.BrokerOption{xdispatch.WithBrokerTransport(tr)}
	for _, o := range opts {
		if o != nil {
			bopts = append(bopts, o())
		}
	}

	broker := xdispatch.NewBroker(bopts...)
	xdispatch.SetDefaultBroker(broker)
	return broker
}

// Option configures the Broker created by Use.
type Option func() xdispatch.BrokerOption

// WithLogger injects a custom xlog logger.
func WithLogger(l *xlog.Logger) Option {
	return func() xdispatch.BrokerOption { return xdispatch.WithBrokerLogger(l) }
}

// WithClock injects a custom xclock clock.
func WithClock(c xclock.Clock) Option {
	return func() xdispatch.BrokerOption { return xdispatch.WithBrokerClock(c) }
}

// WithCodec replaces the default JSON codec.
func WithCodec(c xdispatch.Codec) Option {
	return func() xdispatch.BrokerOption { return xdispatch.WithBrokerCodec(c) }
}
