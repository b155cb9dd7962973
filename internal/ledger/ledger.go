// Package ledger merges the four heterogeneous Directory movement logs into
// one time-ordered view per vehicle. Entry and exit flows each populate a
// live log plus a capped history log, and no two sources share a schema; the
// merge tags each row's kind by its source log and normalizes the
// differently-named timestamp fields into one total order.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/domain"
	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
)

// Raw field keys used by the movement logs.
const (
	fieldReason      = "motivo"
	fieldAppointment = "cita"
	fieldAuthorized  = "autorizado"

	fieldEntryTime   = "fecha_ingreso"
	fieldExitTime    = "fecha_salida"
	fieldLegacyTime  = "fecha"
	fieldGenericTime = "timestamp"
)

// source binds a Directory collection to its logical kind and timestamp key
// probe order. Slice order is the tie-break order of the merge: the active
// log of each direction comes before its history log.
type source struct {
	collection string
	log        domain.LogSource
	kind       domain.MovementKind
	timeKeys   []string
}

var sources = []source{
	{directory.CollectionEntriesActive, domain.LogEntriesActive, domain.MovementEntry,
		[]string{fieldEntryTime, fieldLegacyTime, fieldGenericTime}},
	{directory.CollectionEntriesHistory, domain.LogEntriesHistory, domain.MovementEntry,
		[]string{fieldEntryTime, fieldLegacyTime, fieldGenericTime}},
	{directory.CollectionExitsActive, domain.LogExitsActive, domain.MovementExit,
		[]string{fieldExitTime, fieldLegacyTime, fieldGenericTime}},
	{directory.CollectionExitsHistory, domain.LogExitsHistory, domain.MovementExit,
		[]string{fieldExitTime, fieldLegacyTime, fieldGenericTime}},
}

// timeLayouts are tried in order when normalizing source timestamps; legacy
// rows carry several formats.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02-01-2006 15:04:05",
}

// Ledger reads movement evidence through a Directory client (typically the
// dualstore façade).
type Ledger struct {
	store directory.Client
}

func New(store directory.Client) *Ledger {
	return &Ledger{store: store}
}

// RecordsFor returns every movement record for the plate across all log
// sources, newest first. Ties on the normalized timestamp keep source order;
// records whose timestamp cannot be parsed sort as oldest so they never mask
// a real, recent movement.
func (l *Ledger) RecordsFor(ctx context.Context, plate id.Plate) ([]domain.MovementRecord, error) {
	perSource := make([][]directory.Record, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			recs, err := l.store.List(gctx, src.collection)
			if err != nil {
				return fmt.Errorf("pull %s: %w", src.collection, err)
			}
			perSource[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []domain.MovementRecord
	for i, src := range sources {
		for _, rec := range perSource[i] {
			p, err := id.ParsePlate(rec.Field(directory.FieldPlate))
			if err != nil || p != plate {
				continue
			}
			merged = append(merged, decodeMovement(rec, src))
		}
	}

	// Stable: equal timestamps keep concatenation (source) order.
	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].Timestamp.After(merged[b].Timestamp)
	})
	return merged, nil
}

func decodeMovement(rec directory.Record, src source) domain.MovementRecord {
	plate, _ := id.ParsePlate(rec.Field(directory.FieldPlate))

	authorized := true
	if raw := rec.Field(fieldAuthorized); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			authorized = v
		}
	}

	return domain.MovementRecord{
		ID:            rec.ID,
		Plate:         plate,
		Kind:          src.kind,
		Timestamp:     parseTimestamp(rec, src.timeKeys),
		Reason:        rec.Field(fieldReason),
		Source:        src.log,
		AppointmentID: rec.Field(fieldAppointment),
		Authorized:    authorized,
	}
}

// parseTimestamp probes the source's timestamp keys and layouts; zero time
// means missing or unparsable and sorts oldest.
func parseTimestamp(rec directory.Record, keys []string) time.Time {
	raw := rec.Field(keys...)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ActiveCollection returns the live log a new movement of the given kind is
// appended to.
func ActiveCollection(kind domain.MovementKind) string {
	if kind == domain.MovementExit {
		return directory.CollectionExitsActive
	}
	return directory.CollectionEntriesActive
}

// HistoryCollection returns the capped history log for the given kind.
func HistoryCollection(kind domain.MovementKind) string {
	if kind == domain.MovementExit {
		return directory.CollectionExitsHistory
	}
	return directory.CollectionEntriesHistory
}

// EncodeRecord lays a movement record out in its source log's raw schema.
func EncodeRecord(rec domain.MovementRecord) directory.Record {
	timeKey := fieldEntryTime
	if rec.Kind == domain.MovementExit {
		timeKey = fieldExitTime
	}
	fields := map[string]string{
		directory.FieldPlate: rec.Plate.String(),
		timeKey:              rec.Timestamp.UTC().Format(time.RFC3339),
		fieldReason:          rec.Reason,
		fieldAuthorized:      strconv.FormatBool(rec.Authorized),
	}
	if rec.AppointmentID != "" {
		fields[fieldAppointment] = rec.AppointmentID
	}
	return directory.Record{ID: rec.ID, Fields: fields}
}
