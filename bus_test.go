package xdispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_CommandLastRegistrationWins(t *testing.T) {
	bus := newTestBus(t, &stubUnitOfWork{})

	var first, second int
	require.NoError(t, bus.Subscribe(createNote{}, func(context.Context, Message) error {
		first++
		return nil
	}))
	require.NoError(t, bus.Subscribe(createNote{}, func(context.Context, Message) error {
		second++
		return nil
	}))

	require.NoError(t, bus.Handle(context.Background(), createNote{Command: NewCommandAt(at(0))}))

	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}

func TestSubscribe_EventHandlersCoexist(t *testing.T) {
	bus := newTestBus(t, &stubUnitOfWork{})

	var order []string
	require.NoError(t, bus.Subscribe(noteCreated{}, func(context.Context, Message) error {
		order = append(order, "h1")
		return nil
	}))
	require.NoError(t, bus.Subscribe(noteCreated{}, func(context.Context, Message) error {
		order = append(order, "h2")
		return nil
	}))

	require.NoError(t, bus.Handle(context.Background(), noteCreated{Event: NewEventAt(at(0))}))

	assert.Equal(t, []string{"h1", "h2"}, order)
}

func TestSubscribe_RejectsUnknownKind(t *testing.T) {
	bus := newTestBus(t, &stubUnitOfWork{})

	err := bus.Subscribe(unroutable{stamp: at(0)}, func(context.Context, Message) error { return nil })

	var mismatch TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, Kind(99), mismatch.Kind)
}

func TestSubscribe_RejectsNilHandler(t *testing.T) {
	bus := newTestBus(t, &stubUnitOfWork{})

	assert.ErrorIs(t, bus.Subscribe(createNote{}, nil), ErrNilHandler)
}

func TestHandle_UnregisteredCommandIsFatal(t *testing.T) {
	uow := &stubUnitOfWork{}
	bus := newTestBus(t, uow)

	err := bus.Handle(context.Background(), createNote{Command: NewCommandAt(at(0))})

	var unregistered UnregisteredHandlerError
	require.ErrorAs(t, err, &unregistered)
	assert.Zero(t, uow.collects, "no events may be harvested for a failed command")
}

func TestHandle_UnregisteredEventIsNotAnError(t *testing.T) {
	bus := newTestBus(t, &stubUnitOfWork{})

	assert.NoError(t, bus.Handle(context.Background(), noteCreated{Event: NewEventAt(at(0))}))
}

func TestHandle_CommandDomainErrorAbortsDispatch(t *testing.T) {
	uow := &stubUnitOfWork{}
	bus := newTestBus(t, uow)

	boom := NewDomainError("business rule violated")
	require.NoError(t, bus.Subscribe(createNote{}, func(context.Context, Message) error {
		return boom
	}))

	err := bus.Handle(context.Background(), createNote{Command: NewCommandAt(at(0))})

	assert.ErrorIs(t, err, boom, "the caller receives the handler's error unwrapped")
	assert.Zero(t, uow.collects, "no harvest after the failure point")
}

func TestHandle_CommandUnexpectedErrorPropagates(t *testing.T) {
	bus := newTestBus(t, &stubUnitOfWork{})

	boom := errors.New("disk on fire")
	require.NoError(t, bus.Subscribe(createNote{}, func(context.Context, Message) error {
		return boom
	}))

	err := bus.Handle(context.Background(), createNote{Command: NewCommandAt(at(0))})
	assert.ErrorIs(t, err, boom)
}

func TestHandle_EventDomainErrorIsIsolated(t *testing.T) {
	bus := newTestBus(t, &stubUnitOfWork{})

	var h1, h2 bool
	require.NoError(t, bus.Subscribe(noteCreated{}, func(context.Context, Message) error {
		h1 = true
		return NewDomainError("subscriber broke")
	}))
	require.NoError(t, bus.Subscribe(noteCreated{}, func(context.Context, Message) error {
		h2 = true
		return nil
	}))

	err := bus.Handle(context.Background(), noteCreated{Event: NewEventAt(at(0))})

	assert.NoError(t, err, "a broken subscriber must not reach the caller")
	assert.True(t, h1)
	assert.True(t, h2, "siblings still run after an isolated failure")
}

func TestHandle_EventUnexpectedErrorIsFatal(t *testing.T) {
	bus := newTestBus(t, &stubUnitOfWork{})

	boom := errors.New("nil pointer somewhere")
	var h2 bool
	require.NoError(t, bus.Subscribe(noteCreated{}, func(context.Context, Message) error {
		return boom
	}))
	require.NoError(t, bus.Subscribe(noteCreated{}, func(context.Context, Message) error {
		h2 = true
		return nil
	}))

	err := bus.Handle(context.Background(), noteCreated{Event: NewEventAt(at(0))})

	assert.ErrorIs(t, err, boom)
	assert.False(t, h2, "an unexpected error aborts the whole fan-out")
}

func TestHandle_NilMessage(t *testing.T) {
	bus := newTestBus(t, &stubUnitOfWork{})

	assert.ErrorIs(t, bus.Handle(context.Background(), nil), ErrNilMessage)
}

// TestHandle_HarvestInterleaving runs the full causal chain: command C
// mutates aggregate A which raises E1; dispatching E1 mutates
// aggregate B which raises E2. Processed order must follow creation
// time, and a later collection must yield nothing.
func TestHandle_HarvestInterleaving(t *testing.T) {
	ctx := context.Background()

	aggA := &fakeAggregate{key: "A"}
	aggB := &fakeAggregate{key: "B"}
	repo := NewEventfulRepository(newFakeStore(aggA, aggB))
	uow := NewEventfulUnitOfWork(repo)
	require.NoError(t, uow.Begin(ctx))

	bus := newTestBus(t, uow)

	var processed []string
	require.NoError(t, bus.Subscribe(&createNote{}, func(ctx context.Context, _ Message) error {
		processed = append(processed, "C")
		a, err := repo.Get(ctx, "A")
		if err != nil {
			return err
		}
		a.(*fakeAggregate).raise(&noteCreated{Event: NewEventAt(at(time.Second)), Text: "E1"})
		return nil
	}))
	require.NoError(t, bus.Subscribe(&noteCreated{}, func(ctx context.Context, msg Message) error {
		processed = append(processed, msg.(*noteCreated).Text)
		b, err := repo.Get(ctx, "B")
		if err != nil {
			return err
		}
		b.(*fakeAggregate).raise(&noteArchived{Event: NewEventAt(at(2 * time.Second))})
		return nil
	}))
	require.NoError(t, bus.Subscribe(&noteArchived{}, func(context.Context, Message) error {
		processed = append(processed, "E2")
		return nil
	}))

	require.NoError(t, bus.Handle(ctx, &createNote{Command: NewCommandAt(at(0))}))

	assert.Equal(t, []string{"C", "E1", "E2"}, processed)
	assert.Empty(t, uow.CollectEvents(), "drain is exhausted after the dispatch")
	assert.True(t, aggA.Events().Empty(), "harvest drains the aggregate, never copies")
	assert.True(t, aggB.Events().Empty())
}

// Harvested events re-sort into the working queue by creation time:
// an event older than a still-queued one is processed first even
// though it was discovered later.
func TestHandle_HarvestedEventsInterleaveByTimestamp(t *testing.T) {
	older := &noteCreated{Event: NewEventAt(at(time.Second)), Text: "older"}
	newer := &noteArchived{Event: NewEventAt(at(2 * time.Second))}

	uow := &stubUnitOfWork{batches: [][]Message{{newer, older}}}
	bus := newTestBus(t, uow)

	var processed []string
	require.NoError(t, bus.Subscribe(&createNote{}, func(context.Context, Message) error {
		return nil
	}))
	require.NoError(t, bus.Subscribe(&noteCreated{}, func(context.Context, Message) error {
		processed = append(processed, "older")
		return nil
	}))
	require.NoError(t, bus.Subscribe(&noteArchived{}, func(context.Context, Message) error {
		processed = append(processed, "newer")
		return nil
	}))

	require.NoError(t, bus.Handle(context.Background(), &createNote{Command: NewCommandAt(at(0))}))

	assert.Equal(t, []string{"older", "newer"}, processed)
}

func TestHandle_NoCrossCallState(t *testing.T) {
	bus := newTestBus(t, &stubUnitOfWork{})

	var handled int
	require.NoError(t, bus.Subscribe(createNote{}, func(context.Context, Message) error {
		handled++
		return nil
	}))

	require.NoError(t, bus.Handle(context.Background(), createNote{Command: NewCommandAt(at(0))}))
	require.NoError(t, bus.Handle(context.Background(), createNote{Command: NewCommandAt(at(time.Second))}))

	assert.Equal(t, 2, handled)
}

func TestObserver_SeesDispatchLifecycle(t *testing.T) {
	uow := &stubUnitOfWork{}
	bus := newTestBus(t, uow)

	var types []BusEventType
	bus.AddObserver(ObserverFunc(func(e BusEvent) {
		types = append(types, e.Type)
	}))

	require.NoError(t, bus.Subscribe(createNote{}, func(context.Context, Message) error { return nil }))
	require.NoError(t, bus.Handle(context.Background(), createNote{Command: NewCommandAt(at(0))}))

	assert.Equal(t, []BusEventType{DispatchStart, CommandHandled, DispatchDone}, types)
}

func TestBuilder_RequiresUnitOfWork(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoUnitOfWork)
}

func TestFacade_UninitializedDefault(t *testing.T) {
	require.Nil(t, Default())

	err := Handle(context.Background(), createNote{Command: NewCommandAt(at(0))})
	assert.ErrorIs(t, err, ErrDispatchNotInitialized)
	assert.ErrorIs(t, Subscribe(createNote{}, func(context.Context, Message) error { return nil }), ErrDispatchNotInitialized)
}
