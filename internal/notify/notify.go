// Package notify delivers alerts for gate decisions and registration
// lifecycle changes. Delivery is best-effort: a failed notification is
// recorded for observability and never reverses a decision already
// committed.
package notify

import (
	"context"
	"log/slog"
)

// Message is one outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Result reports the outcome of a delivery attempt. Any non-OK result is
// non-fatal to the caller.
type Result struct {
	OK    bool
	ID    string
	Error string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) Result
}

// LogSender writes notifications to the structured log. It stands in for a
// real mail or messaging gateway in development and tests.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) Result {
	s.logger.InfoContext(ctx, "notification",
		"to", msg.To, "subject", msg.Subject)
	return Result{OK: true}
}
