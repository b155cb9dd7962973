package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/domain"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/registration"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/httputil"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/requestcontext"
)

// RegistrationHandler wires the registration workflow endpoints.
type RegistrationHandler struct {
	workflow *registration.Workflow
	auth     *Authenticator
	logger   *slog.Logger
}

func NewRegistrationHandler(workflow *registration.Workflow, auth *Authenticator, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{workflow: workflow, auth: auth, logger: logger}
}

// Register mounts the registration endpoints. Submission is open; queue
// inspection and decisions require an approver role.
func (h *RegistrationHandler) Register(r chi.Router) {
	r.Post("/registrations", h.HandleSubmit)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireRole(domain.RoleAdmin, domain.RoleSupervisor))
		r.Get("/registrations/pending", h.HandlePending)
		r.Post("/registrations/{id}/approve", h.HandleApprove)
		r.Post("/registrations/{id}/reject", h.HandleReject)
	})
}

// SubmitRequest is the applicant's self-registration payload.
type SubmitRequest struct {
	RUT       string `json:"rut"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	JobTitle  string `json:"job_title"`
	BranchID  string `json:"branch_id"`
}

// PendingResponse is one approval-queue entry.
type PendingResponse struct {
	ID        string    `json:"id"`
	RUT       string    `json:"rut"`
	JobTitle  string    `json:"job_title"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleSubmit handles POST /registrations.
func (h *RegistrationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SubmitRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	pending, err := h.workflow.Submit(ctx, registration.SubmitRequest{
		RUT:       req.RUT,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		JobTitle:  req.JobTitle,
		BranchID:  req.BranchID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "registration submit failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, pendingResponse(pending))
}

// HandlePending handles GET /registrations/pending.
func (h *RegistrationHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	queue, err := h.workflow.Pending(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "pending list failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}

	out := make([]PendingResponse, 0, len(queue))
	for _, pending := range queue {
		out = append(out, pendingResponse(pending))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// ApproveResponse reports an approval decision. The one-time secret appears
// here exactly once and is never retrievable again.
type ApproveResponse struct {
	Approved      bool   `json:"approved"`
	Role          string `json:"role,omitempty"`
	LoginName     string `json:"login_name,omitempty"`
	OneTimeSecret string `json:"one_time_secret,omitempty"`
}

// HandleApprove handles POST /registrations/{id}/approve.
func (h *RegistrationHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pendingID := chi.URLParam(r, "id")

	result, err := h.workflow.Approve(ctx, pendingID)
	if err != nil {
		h.logger.ErrorContext(ctx, "registration approve failed",
			"request_id", requestcontext.RequestID(ctx), "pending_id", pendingID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	resp := ApproveResponse{Approved: result.Approved}
	if result.Approved {
		resp.Role = string(result.Credential.Role)
		resp.LoginName = result.Credential.LoginName
		resp.OneTimeSecret = result.OneTimeSecret
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleReject handles POST /registrations/{id}/reject.
func (h *RegistrationHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pendingID := chi.URLParam(r, "id")

	rejected, err := h.workflow.Reject(ctx, pendingID)
	if err != nil {
		h.logger.ErrorContext(ctx, "registration reject failed",
			"request_id", requestcontext.RequestID(ctx), "pending_id", pendingID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"rejected": rejected})
}

func pendingResponse(pending domain.PendingRegistration) PendingResponse {
	return PendingResponse{
		ID:        pending.ID,
		RUT:       pending.RUT.String(),
		JobTitle:  pending.JobTitle,
		CreatedAt: pending.CreatedAt,
	}
}
