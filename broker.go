package xdispatch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Envelope wraps a published event with broker-level metadata. Data is
// the codec-encoded field set of the event; CreatedAt is an ISO-8601
// timestamp added at the broker, not the bus.
type Envelope struct {
	ID        string          `json:"id"`
	Channel   string          `json:"channel"`
	Data      json.RawMessage `json:"data"`
	CreatedAt string          `json:"created_at"`
}

// Subscriber consumes envelopes published on a channel. An error is
// logged and isolated; it never reaches the publisher or blocks
// sibling subscribers.
type Subscriber func(ctx context.Context, env Envelope) error

// Broker is a process-wide publish/subscribe registry, independent of
// the bus. Its channel->subscribers map lives for the lifetime of the
// process unless explicitly cleared. An optional Transport forwards
// every envelope to external subscribers after the in-process fan-out.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]Subscriber
	transport   Transport
	codec       Codec
	clock       xclock.Clock
	logger      *xlog.Logger
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBrokerTransport forwards envelopes to an external transport.
func WithBrokerTransport(t Transport) BrokerOption {
	return func(b *Broker) { b.transport = t }
}

// WithBrokerCodec replaces the default JSON codec.
func WithBrokerCodec(c Codec) BrokerOption {
	return func(b *Broker) { b.codec = c }
}

// WithBrokerClock injects a custom clock for envelope timestamps.
func WithBrokerClock(c xclock.Clock) BrokerOption {
	return func(b *Broker) { b.clock = c }
}

// WithBrokerLogger injects a custom logger.
func WithBrokerLogger(l *xlog.Logger) BrokerOption {
	return func(b *Broker) { b.logger = l }
}

// NewBroker builds a broker with JSON encoding and default clock and
// logger unless overridden.
func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		subscribers: make(map[string][]Subscriber),
		codec:       JSONCodec{},
	}
	for _, o := range opts {
		o(b)
	}
	if b.clock == nil {
		b.clock = xclock.Default()
	}
	if b.logger == nil {
		b.logger = xlog.Default()
	}
	return b
}

// Subscribe appends fn to the channel's subscriber list.
func (b *Broker) Subscribe(channel string, fn Subscriber) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	b.subscribers[channel] = append(b.subscribers[channel], fn)
	b.mu.Unlock()
}

// Publish encodes the event, wraps it in a timestamped envelope and
// delivers it to every subscriber on the channel. Each invocation is
// individually isolated: a failing subscriber is logged and the rest
// still run, and Publish itself does not fail for subscriber errors.
// Encoding and transport errors are the publisher's to handle and are
// returned.
func (b *Broker) Publish(ctx context.Context, channel string, event Message) error {
	data, err := b.codec.Marshal(event)
	if err != nil {
		return err
	}
	env := Envelope{
		ID:        uuid.NewString(),
		Channel:   channel,
		Data:      data,
		CreatedAt: b.clock.Now().Format(time.RFC3339Nano),
	}

	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers[channel]))
	copy(subs, b.subscribers[channel])
	b.mu.RUnlock()

	lg := b.logger.With(xlog.Str("channel", channel), xlog.Str("envelope", env.ID))
	for i, sub := range subs {
		lg.Debug().Msg("xdispatch: sending event to subscriber")
		if err := sub(ctx, env); err != nil {
			lg.With(xlog.Str("subscriber", itoa(i))).Warn().Err(err).Msg("xdispatch: subscriber failed")
			continue
		}
	}

	if b.transport != nil {
		payload, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if err := b.transport.Publish(ctx, channel, payload); err != nil {
			lg.Warn().Err(err).Msg("xdispatch: transport publish failed")
			return err
		}
	}
	return nil
}

// Clear forgets every subscriber on every channel.
func (b *Broker) Clear() {
	b.mu.Lock()
	b.subscribers = make(map[string][]Subscriber)
	b.mu.Unlock()
}

const defaultBrokerKey = "xdispatch:broker"

// processRegistry backs the default broker. Callers that need
// testable wiring construct their own Broker (or Registry) instead.
var processRegistry = NewRegistry()

// DefaultBroker returns the process-wide broker, creating it on first
// use so that all publishers and subscribers in a process share one
// registry.
func DefaultBroker() *Broker {
	return processRegistry.GetOrCreate(defaultBrokerKey, func() any {
		return NewBroker()
	}).(*Broker)
}

// SetDefaultBroker replaces the process-wide broker.
func SetDefaultBroker(b *Broker) {
	if b == nil {
		panic("xdispatch: SetDefaultBroker called with nil Broker")
	}
	processRegistry.Discard(defaultBrokerKey)
	processRegistry.GetOrCreate(defaultBrokerKey, func() any { return b })
}
