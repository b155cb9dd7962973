package audit

import (
	"context"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/requestcontext"
)

// Publisher captures structured audit events. It is append-only and uses a
// pluggable store so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit fills the ambient request fields and appends the event.
func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = requestcontext.Now(ctx).UTC()
	}
	if base.RequestID == "" {
		base.RequestID = requestcontext.RequestID(ctx)
	}
	if base.Actor == "" {
		base.Actor = requestcontext.Actor(ctx)
	}
	return p.store.Append(ctx, base)
}
