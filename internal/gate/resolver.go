// Package gate decides and records vehicle movements at the facility gate.
// Authorization is pure domain logic over the merged movement ledger; the
// controller owns the surrounding I/O.
package gate

import (
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/domain"
	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
)

// DenialReason is the concrete, user-visible reason a movement was refused.
type DenialReason string

const (
	DenialAlreadyInside DenialReason = "already inside"
	DenialAlreadyExited DenialReason = "already exited"
	DenialNoPriorEntry  DenialReason = "no prior entry"
)

// Decision is the outcome of an authorization check. A denial is a normal,
// expected outcome, not an error.
type Decision struct {
	Allowed bool
	Reason  DenialReason
}

func allowed() Decision {
	return Decision{Allowed: true}
}

func denied(reason DenialReason) Decision {
	return Decision{Reason: reason}
}

// lastAuthorized finds the most recent committed movement in a newest-first
// record sequence. Denied attempts recorded by some log sources never carry
// presence state. Both authorization rules share this lookup so the entry
// and exit sides cannot drift apart.
func lastAuthorized(records []domain.MovementRecord) *domain.MovementRecord {
	for i := range records {
		if records[i].Authorized {
			return &records[i]
		}
	}
	return nil
}

// Authorize decides whether a proposed movement is allowed given the
// vehicle's newest-first movement history.
//
// Entry is denied only when the vehicle is already inside. Exit requires an
// authorized entry on top of the history: an empty ledger or a ledger whose
// last committed movement is an exit both refuse egress.
func Authorize(records []domain.MovementRecord, proposed domain.MovementKind) Decision {
	last := lastAuthorized(records)

	if proposed == domain.MovementEntry {
		if last != nil && last.Kind == domain.MovementEntry {
			return denied(DenialAlreadyInside)
		}
		return allowed()
	}

	switch {
	case last == nil:
		return denied(DenialNoPriorEntry)
	case last.Kind == domain.MovementExit:
		return denied(DenialAlreadyExited)
	default:
		return allowed()
	}
}

// ResolveState derives the vehicle's presence from its newest-first movement
// history. State is ephemeral, recomputed per query, never persisted.
func ResolveState(plate id.Plate, records []domain.MovementRecord) domain.VehicleState {
	last := lastAuthorized(records)
	return domain.VehicleState{
		Plate:        plate,
		LastMovement: last,
		IsInside:     last != nil && last.Kind == domain.MovementEntry,
	}
}
