package notify

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerDeliversEnqueuedMessages(t *testing.T) {
	rec := NewRecorder()
	w := NewWorker(rec, 4, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	w.Enqueue(ctx, Message{To: "guardia@taller.cl", Subject: "entrada registrada"})

	require.Eventually(t, func() bool {
		return len(rec.Sent()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "entrada registrada", rec.Sent()[0].Subject)

	cancel()
	<-done
}

func TestEnqueueDropsWhenInboxFull(t *testing.T) {
	rec := NewRecorder()
	// No Run loop draining: a one-slot inbox fills after one message.
	w := NewWorker(rec, 1, slog.New(slog.DiscardHandler))

	ctx := context.Background()
	w.Enqueue(ctx, Message{Subject: "first"})
	w.Enqueue(ctx, Message{Subject: "dropped"})

	assert.Len(t, w.inbox, 1, "the second message is dropped, never blocks")
}

func TestWorkerSwallowsDeliveryFailures(t *testing.T) {
	rec := NewRecorder()
	rec.FailWith = "smtp unavailable"
	w := NewWorker(rec, 4, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := w.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled, "failures never stop the worker")
	}()

	w.Enqueue(ctx, Message{Subject: "doomed"})
	require.Eventually(t, func() bool {
		return len(rec.Sent()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
