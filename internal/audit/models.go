package audit

import (
	"context"
	"time"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Action    string    `json:"action"`
	Plate     string    `json:"plate,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Actions recorded by the service.
const (
	ActionGateEntry           = "gate_entry"
	ActionGateExit            = "gate_exit"
	ActionRegistrationSubmit  = "registration_submitted"
	ActionRegistrationApprove = "registration_approved"
	ActionRegistrationReject  = "registration_rejected"
)

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}
