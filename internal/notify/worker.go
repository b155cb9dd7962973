package notify

import (
	"context"
	"log/slog"
)

// Worker decouples notification delivery from the request path. Enqueue
// never blocks: when the inbox is full the message is dropped and logged,
// because a slow gateway must never stall a gate decision.
type Worker struct {
	sender Sender
	inbox  chan Message
	logger *slog.Logger
}

func NewWorker(sender Sender, buffer int, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		sender: sender,
		inbox:  make(chan Message, buffer),
		logger: logger,
	}
}

// Enqueue hands a message to the worker without blocking.
func (w *Worker) Enqueue(ctx context.Context, msg Message) {
	select {
	case w.inbox <- msg:
	default:
		w.logger.WarnContext(ctx, "notification inbox full, dropping message",
			"to", msg.To, "subject", msg.Subject)
	}
}

// Run delivers queued messages until the context is canceled. Delivery
// failures are logged and swallowed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-w.inbox:
			if res := w.sender.Send(ctx, msg); !res.OK {
				w.logger.ErrorContext(ctx, "notification delivery failed",
					"to", msg.To, "subject", msg.Subject, "error", res.Error)
			}
		}
	}
}
