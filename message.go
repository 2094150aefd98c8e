package xdispatch

import (
	"time"

	"github.com/trickstertwo/xclock"
)

// Kind is the closed discriminant carried by every message. The bus
// switches on it rather than inspecting type hierarchies.
type Kind uint8

const (
	// KindCommand marks an intent for the system to perform an action.
	// Exactly one handler is registered per concrete command type.
	KindCommand Kind = iota + 1
	// KindEvent marks a fact that already happened, broadcast to zero or
	// more handlers.
	KindEvent
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Message is anything routable by the bus. Concrete messages embed
// Command or Event, which supply the discriminant and the creation
// timestamp.
type Message interface {
	Kind() Kind
	CreatedAt() time.Time
}

// Before reports whether a was created strictly before b. A nil operand
// compares false, never panics.
func Before(a, b Message) bool {
	if a == nil || b == nil {
		return false
	}
	return a.CreatedAt().Before(b.CreatedAt())
}

// Command is the embeddable base for command messages.
//
//	type AllocateOrder struct {
//	    xdispatch.Command
//	    OrderID string
//	    SKU     string
//	    Qty     int
//	}
type Command struct {
	stamp time.Time
}

// NewCommand stamps a command base with the current wall-clock time.
func NewCommand() Command {
	return NewCommandAt(xclock.Default().Now())
}

// NewCommandAt stamps a command base with an explicit creation time.
func NewCommandAt(t time.Time) Command {
	return Command{stamp: t}
}

// Kind implements Message.
func (c Command) Kind() Kind { return KindCommand }

// CreatedAt implements Message. The stamp is set once at construction
// and never mutated.
func (c Command) CreatedAt() time.Time { return c.stamp }

// Event is the embeddable base for event messages. Events are named
// with past-tense verb phrases by convention.
type Event struct {
	stamp time.Time
}

// NewEvent stamps an event base with the current wall-clock time.
func NewEvent() Event {
	return NewEventAt(xclock.Default().Now())
}

// NewEventAt stamps an event base with an explicit creation time.
func NewEventAt(t time.Time) Event {
	return Event{stamp: t}
}

// Kind implements Message.
func (e Event) Kind() Kind { return KindEvent }

// CreatedAt implements Message.
func (e Event) CreatedAt() time.Time { return e.stamp }
