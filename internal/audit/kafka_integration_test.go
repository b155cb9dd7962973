//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/audit"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/testutil/containers"
)

func TestKafkaSinkPublishesAuditEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rp := containers.NewRedpandaContainer(t)

	const topic = "porteria.audit"
	sink, err := audit.NewKafkaSink(rp.Brokers, topic, nil)
	require.NoError(t, err)
	t.Cleanup(sink.Close)

	require.NoError(t, sink.EnsureTopic(ctx, 1, 1))
	require.NoError(t, sink.EnsureTopic(ctx, 1, 1), "ensure is idempotent once the topic exists")

	event := audit.Event{
		Timestamp: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
		RequestID: "req-1",
		Actor:     "guardia1",
		Action:    audit.ActionGateEntry,
		Plate:     "ABC123",
		Decision:  "allowed",
	}
	require.NoError(t, sink.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(pollCtx)
	require.Empty(t, fetches.Errors())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "ABC123", string(records[0].Key), "events are keyed by plate")

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, audit.ActionGateEntry, got.Action)
	assert.Equal(t, "allowed", got.Decision)
	assert.Equal(t, "req-1", got.RequestID)
	assert.True(t, got.Timestamp.Equal(event.Timestamp))
}
