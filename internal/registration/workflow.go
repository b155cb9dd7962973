package registration

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/audit"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/domain"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/notify"
	regmetrics "github.com/da-werdecker/proyecto-apt-dana-sub002/internal/registration/metrics"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domainerrors"
	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/requestcontext"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/sentinel"
)

// Enqueuer hands a notification to the background worker without blocking.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg notify.Message)
}

// Workflow drives employee registration: Submitted, then Approved or
// Rejected, both terminal. A user credential exists only after approval.
type Workflow struct {
	employees directory.Employees
	pending   directory.PendingRegistrations
	users     directory.Users
	titles    directory.JobTitles
	notifier  Enqueuer
	audit     *audit.Publisher
	logger    *slog.Logger

	// ApproverRecipient receives the alert for each new submission.
	ApproverRecipient string
	// Metrics is optional; a nil value disables instrumentation.
	Metrics *regmetrics.Metrics
}

func NewWorkflow(store directory.Client, notifier Enqueuer, auditPub *audit.Publisher, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		employees: directory.NewEmployees(store),
		pending:   directory.NewPendingRegistrations(store),
		users:     directory.NewUsers(store),
		titles:    directory.NewJobTitles(store),
		notifier:  notifier,
		audit:     auditPub,
		logger:    logger,
	}
}

// SubmitRequest carries the applicant's self-registration data. No
// credential is accepted here; a one-time secret is generated at approval.
type SubmitRequest struct {
	RUT       string
	FirstName string
	LastName  string
	Email     string
	JobTitle  string
	BranchID  string
}

// Submit validates the applicant and parks the registration in the approval
// queue. A RUT already present in either store is a duplicate identity and
// fails the call; the applicant must correct the input.
func (w *Workflow) Submit(ctx context.Context, req SubmitRequest) (domain.PendingRegistration, error) {
	rut, err := id.ParseRUT(req.RUT)
	if err != nil {
		return domain.PendingRegistration{}, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "invalid rut")
	}
	if strings.TrimSpace(req.JobTitle) == "" {
		return domain.PendingRegistration{}, domainerrors.New(domainerrors.CodeBadRequest, "job title is required")
	}

	_, err = w.employees.FindByRUT(ctx, rut)
	switch {
	case err == nil:
		w.Metrics.IncrementTransition("submit", "conflict")
		return domain.PendingRegistration{}, domainerrors.New(domainerrors.CodeConflict,
			fmt.Sprintf("an employee with rut %s already exists", rut))
	case !errors.Is(err, sentinel.ErrNotFound):
		return domain.PendingRegistration{}, fmt.Errorf("duplicate check: %w", err)
	}

	now := requestcontext.Now(ctx).UTC()
	employee := domain.Employee{
		ID:        id.NewRecordID(now),
		RUT:       rut,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		JobTitle:  req.JobTitle,
		BranchID:  req.BranchID,
	}
	if err := w.employees.Insert(ctx, employee); err != nil {
		return domain.PendingRegistration{}, fmt.Errorf("create employee: %w", err)
	}

	pending := domain.PendingRegistration{
		ID:         id.NewRecordID(now),
		EmployeeID: employee.ID,
		RUT:        rut,
		JobTitle:   req.JobTitle,
		CreatedAt:  now,
	}
	if err := w.pending.Insert(ctx, pending); err != nil {
		return domain.PendingRegistration{}, fmt.Errorf("queue registration: %w", err)
	}

	w.notifier.Enqueue(ctx, notify.Message{
		To:      req.Email,
		Subject: "Registro recibido",
		Body:    "Su solicitud de registro fue recibida y espera aprobación.",
	})
	w.notifier.Enqueue(ctx, notify.Message{
		To:      w.ApproverRecipient,
		Subject: "Nueva solicitud de registro",
		Body:    fmt.Sprintf("El RUT %s solicitó registro como %q.", rut, req.JobTitle),
	})
	w.emitAudit(ctx, audit.ActionRegistrationSubmit, rut.String(), "")
	w.Metrics.IncrementTransition("submit", "accepted")

	return pending, nil
}

// Pending lists the approval queue.
func (w *Workflow) Pending(ctx context.Context) ([]domain.PendingRegistration, error) {
	return w.pending.List(ctx)
}

// ApproveResult reports an approval attempt. Approved=false with a nil error
// means the pending entry was already decided; approving twice never mints a
// second credential.
type ApproveResult struct {
	Approved      bool
	Credential    domain.UserCredential
	OneTimeSecret string
}

// Approve promotes a pending registration to a user credential. The role
// comes from the job title; the login secret is generated here, handed back
// once, and stored only as a hash.
func (w *Workflow) Approve(ctx context.Context, pendingID string) (ApproveResult, error) {
	pending, err := w.pending.Get(ctx, pendingID)
	if errors.Is(err, sentinel.ErrNotFound) {
		w.Metrics.IncrementTransition("approve", "noop")
		return ApproveResult{}, nil
	}
	if err != nil {
		return ApproveResult{}, fmt.Errorf("load pending %s: %w", pendingID, err)
	}

	role, err := w.roleFor(ctx, pending.JobTitle)
	if err != nil {
		return ApproveResult{}, err
	}

	secret, err := newOneTimeSecret()
	if err != nil {
		return ApproveResult{}, fmt.Errorf("generate credential: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return ApproveResult{}, fmt.Errorf("hash credential: %w", err)
	}

	now := requestcontext.Now(ctx).UTC()
	cred := domain.UserCredential{
		ID:             id.NewRecordID(now),
		LoginName:      strings.ToLower(pending.RUT.String()),
		CredentialHash: string(hash),
		Role:           role,
		EmployeeID:     pending.EmployeeID,
		Enabled:        true,
	}
	if err := w.users.Insert(ctx, cred); err != nil {
		return ApproveResult{}, fmt.Errorf("create credential: %w", err)
	}
	if err := w.pending.Delete(ctx, pendingID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return ApproveResult{}, fmt.Errorf("dequeue pending %s: %w", pendingID, err)
	}

	if email := w.applicantEmail(ctx, pending.RUT); email != "" {
		w.notifier.Enqueue(ctx, notify.Message{
			To:      email,
			Subject: "Registro aprobado",
			Body: fmt.Sprintf("Su acceso fue aprobado con rol %s. Clave temporal: %s. Cámbiela al primer ingreso.",
				role, secret),
		})
	}
	w.emitAudit(ctx, audit.ActionRegistrationApprove, pending.RUT.String(), string(role))
	w.Metrics.IncrementTransition("approve", "approved")

	return ApproveResult{Approved: true, Credential: cred, OneTimeSecret: secret}, nil
}

// Reject removes the pending entry and the employee row created at submit.
// Rejecting an already-decided entry reports false without error.
func (w *Workflow) Reject(ctx context.Context, pendingID string) (bool, error) {
	pending, err := w.pending.Get(ctx, pendingID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load pending %s: %w", pendingID, err)
	}

	if err := w.pending.Delete(ctx, pendingID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return false, fmt.Errorf("dequeue pending %s: %w", pendingID, err)
	}
	if err := w.employees.Delete(ctx, pending.EmployeeID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return false, fmt.Errorf("remove employee %s: %w", pending.EmployeeID, err)
	}
	w.emitAudit(ctx, audit.ActionRegistrationReject, pending.RUT.String(), "")
	w.Metrics.IncrementTransition("reject", "rejected")
	return true, nil
}

// roleFor prefers the explicit role on the Directory title entry, then the
// keyword table over the submitted title text.
func (w *Workflow) roleFor(ctx context.Context, titleName string) (domain.Role, error) {
	title, err := w.titles.FindByName(ctx, titleName)
	switch {
	case err == nil:
		return DeriveRole(title), nil
	case errors.Is(err, sentinel.ErrNotFound):
		return DeriveRole(domain.JobTitle{Name: titleName}), nil
	default:
		return "", fmt.Errorf("resolve job title %q: %w", titleName, err)
	}
}

func (w *Workflow) applicantEmail(ctx context.Context, rut id.RUT) string {
	employee, err := w.employees.FindByRUT(ctx, rut)
	if err != nil {
		w.logger.WarnContext(ctx, "applicant lookup for notification failed",
			"rut", rut, "error", err)
		return ""
	}
	return employee.Email
}

func (w *Workflow) emitAudit(ctx context.Context, action, subject, decision string) {
	if err := w.audit.Emit(ctx, audit.Event{
		Action:   action,
		Subject:  subject,
		Decision: decision,
	}); err != nil {
		w.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

func newOneTimeSecret() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}
