package notify

import (
	"context"
	"sync"
)

// Recorder is a Sender that captures messages for assertions in tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Message

	// FailWith, when non-empty, makes every send report a non-OK result.
	FailWith string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, msg Message) Result {
	r.mu.Lock()
	r.sent = append(r.sent, msg)
	r.mu.Unlock()
	if r.FailWith != "" {
		return Result{Error: r.FailWith}
	}
	return Result{OK: true}
}

// Sent returns a copy of the captured messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}
