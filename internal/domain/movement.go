package domain

import (
	"time"

	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
)

// MovementKind distinguishes gate entries from exits.
type MovementKind string

const (
	MovementEntry MovementKind = "entry"
	MovementExit  MovementKind = "exit"
)

// LogSource names the Directory log a movement record was pulled from. The
// entry and exit flows each populate a live log plus a capped history log.
type LogSource string

const (
	LogEntriesActive  LogSource = "entries_active"
	LogEntriesHistory LogSource = "entries_history"
	LogExitsActive    LogSource = "exits_active"
	LogExitsHistory   LogSource = "exits_history"
)

// MovementRecord is one entry/exit event. Records are immutable once created;
// identity is ID (monotonic, creation-time-derived).
type MovementRecord struct {
	ID            string
	Plate         id.Plate
	Kind          MovementKind
	Timestamp     time.Time // UTC; zero when the source timestamp was missing or unparsable
	Reason        string
	Source        LogSource
	AppointmentID string
	// Authorized distinguishes committed movements from denied attempts that
	// some log sources also record. Presence resolution only considers
	// authorized records.
	Authorized bool
}

// VehicleState is derived on demand from the merged ledger, never persisted.
type VehicleState struct {
	Plate        id.Plate
	LastMovement *MovementRecord
	IsInside     bool
}
