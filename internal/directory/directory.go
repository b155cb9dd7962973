// Package directory models the external system of record. The Directory is a
// schemaless collection store (list/insert/update/delete over named
// collections); field names follow the legacy source data, so sibling
// collections do not share a schema. Typed access lives in the catalog views.
package directory

import (
	"context"
)

// Collection names as the Directory exposes them.
const (
	CollectionVehicles     = "vehiculos"
	CollectionEmployees    = "empleados"
	CollectionJobTitles    = "cargos"
	CollectionBranches     = "sucursales"
	CollectionUsers        = "usuarios"
	CollectionAppointments = "citas_diagnostico"
	CollectionWorkOrders   = "ordenes_trabajo"
	CollectionPending      = "solicitudes_pendientes"

	CollectionEntriesActive  = "registros_entrada"
	CollectionEntriesHistory = "historial_entrada"
	CollectionExitsActive    = "registros_salida"
	CollectionExitsHistory   = "historial_salida"
)

// Record is one raw Directory row: an identifier plus an open field map.
// Records are append-only from the core's perspective; a record is never
// mutated after creation, only inserted or deleted.
type Record struct {
	ID     string
	Fields map[string]string
}

// Field returns the first non-empty value among the given keys. Sources name
// the same semantic field differently, so reads probe in order.
func (r Record) Field(keys ...string) string {
	for _, k := range keys {
		if v := r.Fields[k]; v != "" {
			return v
		}
	}
	return ""
}

// Clone returns a deep copy so callers can hold records across store calls.
func (r Record) Clone() Record {
	fields := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{ID: r.ID, Fields: fields}
}

// Guard conditions an insert on the current newest record for a key: among
// records whose Field(KeyField) equals Key, the last inserted must have
// ExpectedLastID (empty means none may exist). Losing the comparison fails
// the insert with sentinel.ErrConflict, which rejects the loser of a
// same-identifier race instead of relying on client-side debouncing.
type Guard struct {
	KeyField       string
	Key            string
	ExpectedLastID string
}

// Client is the Directory access contract. Implementations: postgres (remote
// authoritative), redis (local fallback cache), memory (tests, zero-config
// default), and the dualstore façade combining two of them.
type Client interface {
	// List returns all records of a collection in insertion order.
	List(ctx context.Context, collection string) ([]Record, error)
	// Get returns one record; sentinel.ErrNotFound when absent.
	Get(ctx context.Context, collection, id string) (Record, error)
	Insert(ctx context.Context, collection string, rec Record) error
	// InsertGuarded appends iff the guard still holds (sentinel.ErrConflict
	// otherwise).
	InsertGuarded(ctx context.Context, collection string, rec Record, g Guard) error
	Update(ctx context.Context, collection string, rec Record) error
	Delete(ctx context.Context, collection, id string) error
}
