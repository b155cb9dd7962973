package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/requestcontext"
)

func TestEmitFillsAmbientRequestFields(t *testing.T) {
	store := NewMemoryStore()
	pub := NewPublisher(store)

	when := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), when)
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx = requestcontext.WithActor(ctx, "guardia1")

	require.NoError(t, pub.Emit(ctx, Event{
		Action:   ActionGateEntry,
		Plate:    "ABC123",
		Decision: "allowed",
	}))

	events := store.Events()
	require.Len(t, events, 1)
	assert.True(t, events[0].Timestamp.Equal(when))
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, "guardia1", events[0].Actor)
	assert.Equal(t, ActionGateEntry, events[0].Action)
}

func TestEmitKeepsExplicitFields(t *testing.T) {
	store := NewMemoryStore()
	pub := NewPublisher(store)

	when := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithActor(context.Background(), "middleware-actor")

	require.NoError(t, pub.Emit(ctx, Event{
		Timestamp: when,
		Actor:     "explicit-actor",
		Action:    ActionRegistrationApprove,
	}))

	events := store.Events()
	require.Len(t, events, 1)
	assert.True(t, events[0].Timestamp.Equal(when))
	assert.Equal(t, "explicit-actor", events[0].Actor)
}

func TestPublisherThroughQueueReachesSinkAsynchronously(t *testing.T) {
	sink := NewMemoryStore()
	queue := NewQueue(8)
	pub := NewPublisher(queue)
	w := NewWorker(sink, queue.Events(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	emitCtx := requestcontext.WithActor(context.Background(), "guardia1")
	require.NoError(t, pub.Emit(emitCtx, Event{
		Action:   ActionGateEntry,
		Plate:    "ABC123",
		Decision: "allowed",
	}))

	require.Eventually(t, func() bool {
		return len(sink.Events()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "guardia1", sink.Events()[0].Actor,
		"ambient fields are captured at emit time, before the hop to the worker")

	cancel()
	<-done
}

func TestQueueFullDropsInsteadOfBlocking(t *testing.T) {
	queue := NewQueue(1)

	require.NoError(t, queue.Append(context.Background(), Event{Action: ActionGateEntry}))
	err := queue.Append(context.Background(), Event{Action: ActionGateExit})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestWorkerAppendsQueuedEvents(t *testing.T) {
	store := NewMemoryStore()
	inbox := make(chan Event, 2)
	w := NewWorker(store, inbox, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	inbox <- Event{Action: ActionGateExit, Plate: "ABC123"}

	require.Eventually(t, func() bool {
		return len(store.Events()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
