package audit

import (
	"context"
	"errors"
)

// ErrQueueFull reports an audit event dropped because the worker fell behind.
var ErrQueueFull = errors.New("audit queue full")

// Queue is a channel-backed Store that decouples emitters from the sink: the
// publisher appends here and the Worker drains into the real backend, so a
// slow sink never adds latency to the decision that produced the event.
type Queue struct {
	inbox chan Event
}

func NewQueue(buffer int) *Queue {
	return &Queue{inbox: make(chan Event, buffer)}
}

// Append enqueues without blocking. A full inbox drops the event and reports
// ErrQueueFull; emitters log it, they never wait.
func (q *Queue) Append(_ context.Context, event Event) error {
	select {
	case q.inbox <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Events is the worker side of the queue.
func (q *Queue) Events() <-chan Event {
	return q.inbox
}
