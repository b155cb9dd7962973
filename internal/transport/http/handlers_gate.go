package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/gate"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/httputil"
	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/requestcontext"
)

// GateHandler wires the gate endpoints to the controller.
type GateHandler struct {
	controller *gate.Controller
	logger     *slog.Logger
}

func NewGateHandler(controller *gate.Controller, logger *slog.Logger) *GateHandler {
	return &GateHandler{controller: controller, logger: logger}
}

// Register mounts the gate endpoints on the router.
func (h *GateHandler) Register(r chi.Router) {
	r.Post("/gate/entry", h.handleMovement(h.controller.RegisterEntry))
	r.Post("/gate/exit", h.handleMovement(h.controller.RegisterExit))
	r.Get("/gate/vehicles/{plate}/state", h.HandleState)
}

// MovementRequest identifies the vehicle for an entry or exit. Scanned
// payloads go through the QR codec.
type MovementRequest struct {
	Payload string `json:"payload"`
	Scanned bool   `json:"scanned"`
	Reason  string `json:"reason"`
}

// MovementResponse reports the decision. Denials are HTTP 200 with
// allowed=false and the concrete reason.
type MovementResponse struct {
	Allowed       bool                 `json:"allowed"`
	Reason        string               `json:"reason,omitempty"`
	Plate         string               `json:"plate"`
	Inside        bool                 `json:"inside"`
	RecordID      string               `json:"record_id,omitempty"`
	Timestamp     *time.Time           `json:"timestamp,omitempty"`
	Appointment   *AppointmentResponse `json:"appointment,omitempty"`
	VehicleKnown  bool                 `json:"vehicle_known"`
	VehicleMake   string               `json:"vehicle_make,omitempty"`
	VehicleModel  string               `json:"vehicle_model,omitempty"`
}

// AppointmentResponse is the appointment context attached to an entry.
type AppointmentResponse struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	ForToday bool   `json:"for_today"`
}

func (h *GateHandler) handleMovement(register func(ctx context.Context, req gate.Request) (gate.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req MovementRequest
		if !httputil.DecodeJSON(w, r, &req) {
			return
		}

		result, err := register(ctx, gate.Request{
			Payload: req.Payload,
			Scanned: req.Scanned,
			Reason:  req.Reason,
		})
		if err != nil {
			h.logger.ErrorContext(ctx, "movement registration failed",
				"request_id", requestcontext.RequestID(ctx), "error", err)
			httputil.WriteError(w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, movementResponse(result))
	}
}

// HandleState handles GET /gate/vehicles/{plate}/state.
func (h *GateHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	plate, err := id.ParsePlate(chi.URLParam(r, "plate"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.controller.State(ctx, plate)
	if err != nil {
		h.logger.ErrorContext(ctx, "state resolution failed",
			"request_id", requestcontext.RequestID(ctx), "plate", plate, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, stateResponse(view))
}

// StateResponse is the on-demand presence report for a vehicle.
type StateResponse struct {
	Plate        string              `json:"plate"`
	Inside       bool                `json:"inside"`
	LastKind     string              `json:"last_movement_kind,omitempty"`
	LastAt       *time.Time          `json:"last_movement_at,omitempty"`
	VehicleKnown bool                `json:"vehicle_known"`
	VehicleMake  string              `json:"vehicle_make,omitempty"`
	VehicleModel string              `json:"vehicle_model,omitempty"`
	WorkOrders   []WorkOrderResponse `json:"work_orders"`
}

// WorkOrderResponse is a read-only work order summary.
type WorkOrderResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

func movementResponse(result gate.Result) MovementResponse {
	resp := MovementResponse{
		Allowed:      result.Decision.Allowed,
		Reason:       string(result.Decision.Reason),
		Plate:        result.State.Plate.String(),
		Inside:       result.State.IsInside,
		VehicleKnown: result.Vehicle.IsKnown(),
	}
	if rec, ok := result.Vehicle.Record(); ok {
		resp.VehicleMake = rec.Make
		resp.VehicleModel = rec.Model
	}
	if result.Record != nil {
		resp.RecordID = result.Record.ID
		ts := result.Record.Timestamp
		resp.Timestamp = &ts
	}
	if result.Appointment != nil {
		resp.Appointment = &AppointmentResponse{
			ID:       result.Appointment.ID,
			Date:     result.Appointment.EffectiveDate().Format("2006-01-02"),
			ForToday: result.ForToday,
		}
	}
	return resp
}

func stateResponse(view gate.StateView) StateResponse {
	resp := StateResponse{
		Plate:        view.State.Plate.String(),
		Inside:       view.State.IsInside,
		VehicleKnown: view.Vehicle.IsKnown(),
		WorkOrders:   make([]WorkOrderResponse, 0, len(view.WorkOrders)),
	}
	if last := view.State.LastMovement; last != nil {
		resp.LastKind = string(last.Kind)
		ts := last.Timestamp
		resp.LastAt = &ts
	}
	if rec, ok := view.Vehicle.Record(); ok {
		resp.VehicleMake = rec.Make
		resp.VehicleModel = rec.Model
	}
	for _, order := range view.WorkOrders {
		resp.WorkOrders = append(resp.WorkOrders, WorkOrderResponse{
			ID:          order.ID,
			Status:      order.Status,
			Description: order.Description,
		})
	}
	return resp
}
