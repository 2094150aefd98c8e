package xdispatch

import "sort"

// MessageQueue is an ordered container of messages, kept sorted
// ascending by creation time after every mutation. The sort is stable:
// messages with equal timestamps keep their relative insertion order.
//
// MessageQueue is not safe for concurrent use; it is confined to one
// dispatch (or one aggregate) at a time. The zero value is an empty
// queue ready for use.
type MessageQueue struct {
	items []Message
}

// NewMessageQueue builds a queue from the given messages. Construction
// is atomic: a nil element fails before any message is queued.
func NewMessageQueue(msgs ...Message) (*MessageQueue, error) {
	q := &MessageQueue{}
	if err := q.Extend(msgs); err != nil {
		return nil, err
	}
	return q, nil
}

// Append adds a single message and re-establishes the sort invariant.
func (q *MessageQueue) Append(msg Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	q.items = append(q.items, msg)
	q.resort()
	return nil
}

// Extend adds all messages and re-establishes the sort invariant.
// Validation happens before any element is queued.
func (q *MessageQueue) Extend(msgs []Message) error {
	for _, m := range msgs {
		if m == nil {
			return ErrNilMessage
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	q.items = append(q.items, msgs...)
	q.resort()
	return nil
}

// PopFront removes and returns the oldest message. Popping from an
// empty queue is a programming error and fails with ErrEmptyQueue.
func (q *MessageQueue) PopFront() (Message, error) {
	if len(q.items) == 0 {
		return nil, ErrEmptyQueue
	}
	msg := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return msg, nil
}

// Clear removes all messages.
func (q *MessageQueue) Clear() {
	q.items = nil
}

// Len returns the number of queued messages.
func (q *MessageQueue) Len() int { return len(q.items) }

// Empty reports whether the queue holds no messages.
func (q *MessageQueue) Empty() bool { return len(q.items) == 0 }

// Messages returns a copy of the queue contents in sorted order. The
// queue itself is not drained.
func (q *MessageQueue) Messages() []Message {
	out := make([]Message, len(q.items))
	copy(out, q.items)
	return out
}

// Drain removes and returns every queued message in sorted order,
// leaving the queue empty.
func (q *MessageQueue) Drain() []Message {
	out := q.items
	q.items = nil
	return out
}

func (q *MessageQueue) resort() {
	sort.SliceStable(q.items, func(i, j int) bool {
		return Before(q.items[i], q.items[j])
	})
}
