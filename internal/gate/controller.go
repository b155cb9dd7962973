package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/appointment"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/audit"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/domain"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/gate/metrics"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/ledger"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/notify"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/qrcodec"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domainerrors"
	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/requestcontext"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/sentinel"
)

var tracer = otel.Tracer("gate")

// Enqueuer hands a notification to the background worker without blocking.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg notify.Message)
}

// Controller orchestrates a gate decision end to end: normalize the
// identifier, resolve vehicle and appointment context, merge the ledger,
// authorize, commit the movement through the guarded write path, then fan
// out history retention, notification and audit.
type Controller struct {
	store    directory.Client
	ledger   *ledger.Ledger
	matcher  *appointment.Matcher
	notifier Enqueuer
	audit    *audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// AlertRecipient receives gate movement notifications.
	AlertRecipient string
}

func NewController(
	store directory.Client,
	lg *ledger.Ledger,
	matcher *appointment.Matcher,
	notifier Enqueuer,
	auditPub *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:    store,
		ledger:   lg,
		matcher:  matcher,
		notifier: notifier,
		audit:    auditPub,
		metrics:  m,
		logger:   logger,
	}
}

// Request identifies the vehicle for a movement. Scanned payloads pass
// through the QR codec first; typed payloads are treated as raw plates.
type Request struct {
	Payload string
	Scanned bool
	Reason  string
}

// Result is the outcome of a movement registration. Denials come back here
// with Allowed=false and the concrete reason; only unexpected conditions
// surface as errors.
type Result struct {
	Decision    Decision
	State       domain.VehicleState
	Vehicle     domain.VehicleRef
	Appointment *domain.Appointment
	ForToday    bool
	Record      *domain.MovementRecord
}

// RegisterEntry decides and records an admission.
func (c *Controller) RegisterEntry(ctx context.Context, req Request) (Result, error) {
	return c.register(ctx, req, domain.MovementEntry)
}

// RegisterExit decides and records an egress.
func (c *Controller) RegisterExit(ctx context.Context, req Request) (Result, error) {
	return c.register(ctx, req, domain.MovementExit)
}

func (c *Controller) register(ctx context.Context, req Request, kind domain.MovementKind) (Result, error) {
	start := time.Now()
	defer func() { c.metrics.ObserveRegisterLatency(time.Since(start)) }()

	ctx, span := tracer.Start(ctx, "gate.register",
		trace.WithAttributes(attribute.String("direction", string(kind))))
	defer span.End()

	plate, err := c.identify(req)
	if err != nil {
		return Result{}, err
	}
	span.SetAttributes(attribute.String("plate", plate.String()))

	now := requestcontext.Now(ctx).UTC()
	match, err := c.resolveVehicle(ctx, plate, now, kind)
	if err != nil {
		return Result{}, err
	}

	records, err := c.ledger.RecordsFor(ctx, plate)
	if err != nil {
		return Result{}, fmt.Errorf("merge ledger for %s: %w", plate, err)
	}

	result := Result{
		Vehicle:     match.Vehicle,
		Appointment: match.Appointment,
		ForToday:    match.ForToday,
	}

	decision := Authorize(records, kind)
	if !decision.Allowed {
		result.Decision = decision
		result.State = ResolveState(plate, records)
		c.metrics.IncrementOutcome(string(kind), "denied")
		c.emitAudit(ctx, kind, plate, "denied", string(decision.Reason))
		c.logger.InfoContext(ctx, "movement denied",
			"direction", kind, "plate", plate, "reason", decision.Reason)
		return result, nil
	}

	rec := domain.MovementRecord{
		ID:         id.NewRecordID(now),
		Plate:      plate,
		Kind:       kind,
		Timestamp:  now,
		Reason:     req.Reason,
		Source:     activeSource(kind),
		Authorized: true,
	}
	if kind == domain.MovementEntry && match.Appointment != nil {
		rec.AppointmentID = match.Appointment.ID
	}

	if err := c.commit(ctx, rec); err != nil {
		if domainerrors.HasCode(err, domainerrors.CodeConflict) {
			c.metrics.IncrementConflict(string(kind))
			c.metrics.IncrementOutcome(string(kind), "conflict")
		}
		return Result{}, err
	}

	c.compactHistory(ctx, rec)
	c.notifyMovement(ctx, rec)
	c.emitAudit(ctx, kind, plate, "allowed", req.Reason)
	c.metrics.IncrementOutcome(string(kind), "allowed")
	c.logger.InfoContext(ctx, "movement registered",
		"direction", kind, "plate", plate, "record_id", rec.ID)

	result.Decision = allowed()
	result.Record = &rec
	result.State = domain.VehicleState{
		Plate:        plate,
		LastMovement: &rec,
		IsInside:     kind == domain.MovementEntry,
	}
	return result, nil
}

// StateView is the on-demand presence report served to the gate UI.
type StateView struct {
	State      domain.VehicleState
	Vehicle    domain.VehicleRef
	WorkOrders []domain.WorkOrder
}

// State derives the vehicle's presence and attaches its open work orders.
func (c *Controller) State(ctx context.Context, plate id.Plate) (StateView, error) {
	records, err := c.ledger.RecordsFor(ctx, plate)
	if err != nil {
		return StateView{}, fmt.Errorf("merge ledger for %s: %w", plate, err)
	}

	view := StateView{
		State:   ResolveState(plate, records),
		Vehicle: domain.ReferencedVehicle(plate),
	}
	if rec, err := directory.NewVehicles(c.store).FindByPlate(ctx, plate); err == nil {
		view.Vehicle = domain.KnownVehicle(rec)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return StateView{}, err
	}

	orders, err := directory.NewWorkOrders(c.store).ListByPlate(ctx, plate)
	if err != nil {
		return StateView{}, err
	}
	view.WorkOrders = orders
	return view, nil
}

// identify normalizes the raw identifier, decoding scan payloads first.
func (c *Controller) identify(req Request) (id.Plate, error) {
	if req.Scanned {
		return qrcodec.Decode(req.Payload)
	}
	plate, err := id.ParsePlate(req.Payload)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeBadRequest, "invalid plate")
	}
	return plate, nil
}

// resolveVehicle attaches vehicle and appointment context. A vehicle unknown
// to the Directory may still exit: whatever entered must be allowed out.
func (c *Controller) resolveVehicle(ctx context.Context, plate id.Plate, now time.Time, kind domain.MovementKind) (appointment.Match, error) {
	match, err := c.matcher.Resolve(ctx, plate, now)
	if err == nil {
		return match, nil
	}
	if kind == domain.MovementExit && domainerrors.HasCode(err, domainerrors.CodeNotFound) {
		return appointment.Match{Vehicle: domain.ReferencedVehicle(plate)}, nil
	}
	return appointment.Match{}, err
}

// commit appends the movement through the guarded write path. The guard pins
// the last record for the plate in the active log, so two clients racing the
// same plate cannot both commit; the loser surfaces a conflict for retry.
func (c *Controller) commit(ctx context.Context, rec domain.MovementRecord) error {
	collection := ledger.ActiveCollection(rec.Kind)

	lastID, err := c.lastActiveID(ctx, collection, rec.Plate)
	if err != nil {
		return err
	}

	err = c.store.InsertGuarded(ctx, collection, ledger.EncodeRecord(rec), directory.Guard{
		KeyField:       directory.FieldPlate,
		Key:            rec.Plate.String(),
		ExpectedLastID: lastID,
	})
	if errors.Is(err, sentinel.ErrConflict) {
		return domainerrors.Wrap(err, domainerrors.CodeConflict,
			"a concurrent movement for this vehicle was registered first")
	}
	if err != nil {
		return fmt.Errorf("commit movement %s: %w", rec.ID, err)
	}
	return nil
}

func (c *Controller) lastActiveID(ctx context.Context, collection string, plate id.Plate) (string, error) {
	recs, err := c.store.List(ctx, collection)
	if err != nil {
		return "", fmt.Errorf("read active log %s: %w", collection, err)
	}
	lastID := ""
	for _, r := range recs {
		if p, err := id.ParsePlate(r.Field(directory.FieldPlate)); err == nil && p == plate {
			lastID = r.ID
		}
	}
	return lastID, nil
}

// compactHistory mirrors the movement into the history log and applies the
// retention cap. History is secondary evidence: failures are logged, never
// escalated past the committed decision.
func (c *Controller) compactHistory(ctx context.Context, rec domain.MovementRecord) {
	collection := ledger.HistoryCollection(rec.Kind)
	if err := c.store.Insert(ctx, collection, ledger.EncodeRecord(rec)); err != nil {
		c.logger.WarnContext(ctx, "history append failed",
			"collection", collection, "record_id", rec.ID, "error", err)
		return
	}
	if err := c.ledger.EnforceCap(ctx, collection, ledger.HistoryCap); err != nil {
		c.logger.WarnContext(ctx, "history compaction failed",
			"collection", collection, "error", err)
	}
}

func (c *Controller) notifyMovement(ctx context.Context, rec domain.MovementRecord) {
	verb := "entrada"
	if rec.Kind == domain.MovementExit {
		verb = "salida"
	}
	c.notifier.Enqueue(ctx, notify.Message{
		To:      c.AlertRecipient,
		Subject: fmt.Sprintf("Registro de %s: %s", verb, rec.Plate),
		Body: fmt.Sprintf("Vehículo %s registró %s a las %s.",
			rec.Plate, verb, rec.Timestamp.Format(time.RFC3339)),
	})
}

func (c *Controller) emitAudit(ctx context.Context, kind domain.MovementKind, plate id.Plate, decision, reason string) {
	action := audit.ActionGateEntry
	if kind == domain.MovementExit {
		action = audit.ActionGateExit
	}
	if err := c.audit.Emit(ctx, audit.Event{
		Action:   action,
		Plate:    plate.String(),
		Decision: decision,
		Reason:   reason,
	}); err != nil {
		c.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

func activeSource(kind domain.MovementKind) domain.LogSource {
	if kind == domain.MovementExit {
		return domain.LogExitsActive
	}
	return domain.LogEntriesActive
}
