package directory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/domain"
	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/sentinel"
)

// Field keys as the legacy Directory data names them. FieldPlate is exported
// because the movement write path keys its guards on it.
const (
	FieldPlate = "patente"

	fieldMake     = "marca"
	fieldModel    = "modelo"
	fieldYear     = "anio"
	fieldOwnerRUT = "rut_propietario"
	fieldBranch   = "sucursal"

	fieldRUT       = "rut"
	fieldFirstName = "nombre"
	fieldLastName  = "apellido"
	fieldEmail     = "correo"
	fieldJobTitle  = "cargo"

	fieldRole    = "rol"
	fieldName    = "nombre"
	fieldAddress = "direccion"

	fieldLogin    = "usuario"
	fieldCredHash = "clave_hash"
	fieldEnabled  = "habilitado"
	fieldEmployee = "empleado"

	fieldProblemType   = "tipo_problema"
	fieldRequestedDate = "fecha_solicitada"
	fieldConfirmedDate = "fecha_confirmada"
	fieldTimeSlot      = "bloque"
	fieldStatus        = "estado"
	fieldPriority      = "prioridad"

	fieldDescription = "descripcion"
	fieldCreatedAt   = "creado"
)

const dateLayout = "2006-01-02"

// Vehicles is the typed view over the vehicle collection.
type Vehicles struct {
	c Client
}

func NewVehicles(c Client) Vehicles {
	return Vehicles{c: c}
}

func (v Vehicles) FindByPlate(ctx context.Context, plate id.Plate) (domain.VehicleRecord, error) {
	recs, err := v.c.List(ctx, CollectionVehicles)
	if err != nil {
		return domain.VehicleRecord{}, fmt.Errorf("list vehicles: %w", err)
	}
	for _, rec := range recs {
		p, err := id.ParsePlate(rec.Field(FieldPlate))
		if err != nil {
			continue
		}
		if p == plate {
			return decodeVehicle(rec), nil
		}
	}
	return domain.VehicleRecord{}, sentinel.ErrNotFound
}

func (v Vehicles) Insert(ctx context.Context, rec domain.VehicleRecord) error {
	return v.c.Insert(ctx, CollectionVehicles, Record{
		ID: rec.ID,
		Fields: map[string]string{
			FieldPlate:    rec.Plate.String(),
			fieldMake:     rec.Make,
			fieldModel:    rec.Model,
			fieldYear:     rec.Year,
			fieldOwnerRUT: rec.OwnerRUT.String(),
			fieldBranch:   rec.BranchID,
		},
	})
}

func decodeVehicle(rec Record) domain.VehicleRecord {
	plate, _ := id.ParsePlate(rec.Field(FieldPlate))
	rut, _ := id.ParseRUT(rec.Field(fieldOwnerRUT))
	return domain.VehicleRecord{
		ID:       rec.ID,
		Plate:    plate,
		Make:     rec.Field(fieldMake),
		Model:    rec.Field(fieldModel),
		Year:     rec.Field(fieldYear),
		OwnerRUT: rut,
		BranchID: rec.Field(fieldBranch),
	}
}

// Employees is the typed view over the employee collection.
type Employees struct {
	c Client
}

func NewEmployees(c Client) Employees {
	return Employees{c: c}
}

func (e Employees) FindByRUT(ctx context.Context, rut id.RUT) (domain.Employee, error) {
	recs, err := e.c.List(ctx, CollectionEmployees)
	if err != nil {
		return domain.Employee{}, fmt.Errorf("list employees: %w", err)
	}
	for _, rec := range recs {
		r, err := id.ParseRUT(rec.Field(fieldRUT))
		if err != nil {
			continue
		}
		if r == rut {
			return decodeEmployee(rec), nil
		}
	}
	return domain.Employee{}, sentinel.ErrNotFound
}

func (e Employees) Insert(ctx context.Context, emp domain.Employee) error {
	return e.c.Insert(ctx, CollectionEmployees, Record{
		ID: emp.ID,
		Fields: map[string]string{
			fieldRUT:       emp.RUT.String(),
			fieldFirstName: emp.FirstName,
			fieldLastName:  emp.LastName,
			fieldEmail:     emp.Email,
			fieldJobTitle:  emp.JobTitle,
			fieldBranch:    emp.BranchID,
		},
	})
}

func (e Employees) Delete(ctx context.Context, employeeID string) error {
	return e.c.Delete(ctx, CollectionEmployees, employeeID)
}

func decodeEmployee(rec Record) domain.Employee {
	rut, _ := id.ParseRUT(rec.Field(fieldRUT))
	return domain.Employee{
		ID:        rec.ID,
		RUT:       rut,
		FirstName: rec.Field(fieldFirstName),
		LastName:  rec.Field(fieldLastName),
		Email:     rec.Field(fieldEmail),
		JobTitle:  rec.Field(fieldJobTitle),
		BranchID:  rec.Field(fieldBranch),
	}
}

// JobTitles is the typed view over the job-title collection.
type JobTitles struct {
	c Client
}

func NewJobTitles(c Client) JobTitles {
	return JobTitles{c: c}
}

// FindByName matches case-sensitively on the stored title name.
func (j JobTitles) FindByName(ctx context.Context, name string) (domain.JobTitle, error) {
	recs, err := j.c.List(ctx, CollectionJobTitles)
	if err != nil {
		return domain.JobTitle{}, fmt.Errorf("list job titles: %w", err)
	}
	for _, rec := range recs {
		if rec.Field(fieldName) == name {
			return domain.JobTitle{
				ID:   rec.ID,
				Name: rec.Field(fieldName),
				Role: domain.Role(rec.Field(fieldRole)),
			}, nil
		}
	}
	return domain.JobTitle{}, sentinel.ErrNotFound
}

// Users is the typed view over the user-credential collection.
type Users struct {
	c Client
}

func NewUsers(c Client) Users {
	return Users{c: c}
}

func (u Users) Insert(ctx context.Context, cred domain.UserCredential) error {
	return u.c.Insert(ctx, CollectionUsers, Record{
		ID: cred.ID,
		Fields: map[string]string{
			fieldLogin:    cred.LoginName,
			fieldCredHash: cred.CredentialHash,
			fieldRole:     string(cred.Role),
			fieldEmployee: cred.EmployeeID,
			fieldEnabled:  strconv.FormatBool(cred.Enabled),
		},
	})
}

func (u Users) FindByLogin(ctx context.Context, login string) (domain.UserCredential, error) {
	recs, err := u.c.List(ctx, CollectionUsers)
	if err != nil {
		return domain.UserCredential{}, fmt.Errorf("list users: %w", err)
	}
	for _, rec := range recs {
		if rec.Field(fieldLogin) == login {
			enabled, _ := strconv.ParseBool(rec.Field(fieldEnabled))
			return domain.UserCredential{
				ID:             rec.ID,
				LoginName:      rec.Field(fieldLogin),
				CredentialHash: rec.Field(fieldCredHash),
				Role:           domain.Role(rec.Field(fieldRole)),
				EmployeeID:     rec.Field(fieldEmployee),
				Enabled:        enabled,
			}, nil
		}
	}
	return domain.UserCredential{}, sentinel.ErrNotFound
}

// Appointments is the typed view over the diagnostic-appointment collection.
type Appointments struct {
	c Client
}

func NewAppointments(c Client) Appointments {
	return Appointments{c: c}
}

func (a Appointments) ListByPlate(ctx context.Context, plate id.Plate) ([]domain.Appointment, error) {
	recs, err := a.c.List(ctx, CollectionAppointments)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	var out []domain.Appointment
	for _, rec := range recs {
		p, err := id.ParsePlate(rec.Field(FieldPlate))
		if err != nil || p != plate {
			continue
		}
		out = append(out, decodeAppointment(rec))
	}
	return out, nil
}

func (a Appointments) Insert(ctx context.Context, appt domain.Appointment) error {
	fields := map[string]string{
		FieldPlate:         appt.Plate.String(),
		fieldProblemType:   appt.ProblemType,
		fieldRequestedDate: appt.RequestedDate.Format(dateLayout),
		fieldTimeSlot:      appt.TimeSlot,
		fieldStatus:        string(appt.Status),
		fieldPriority:      appt.Priority,
	}
	if !appt.ConfirmedDate.IsZero() {
		fields[fieldConfirmedDate] = appt.ConfirmedDate.Format(dateLayout)
	}
	return a.c.Insert(ctx, CollectionAppointments, Record{ID: appt.ID, Fields: fields})
}

func decodeAppointment(rec Record) domain.Appointment {
	plate, _ := id.ParsePlate(rec.Field(FieldPlate))
	requested, _ := time.Parse(dateLayout, rec.Field(fieldRequestedDate))
	confirmed, _ := time.Parse(dateLayout, rec.Field(fieldConfirmedDate))
	return domain.Appointment{
		ID:            rec.ID,
		Plate:         plate,
		ProblemType:   rec.Field(fieldProblemType),
		RequestedDate: requested,
		ConfirmedDate: confirmed,
		TimeSlot:      rec.Field(fieldTimeSlot),
		Status:        domain.AppointmentStatus(rec.Field(fieldStatus)),
		Priority:      rec.Field(fieldPriority),
	}
}

// PendingRegistrations is the typed view over the approval queue.
type PendingRegistrations struct {
	c Client
}

func NewPendingRegistrations(c Client) PendingRegistrations {
	return PendingRegistrations{c: c}
}

func (p PendingRegistrations) List(ctx context.Context) ([]domain.PendingRegistration, error) {
	recs, err := p.c.List(ctx, CollectionPending)
	if err != nil {
		return nil, fmt.Errorf("list pending registrations: %w", err)
	}
	out := make([]domain.PendingRegistration, 0, len(recs))
	for _, rec := range recs {
		out = append(out, decodePending(rec))
	}
	return out, nil
}

func (p PendingRegistrations) Get(ctx context.Context, pendingID string) (domain.PendingRegistration, error) {
	rec, err := p.c.Get(ctx, CollectionPending, pendingID)
	if err != nil {
		return domain.PendingRegistration{}, err
	}
	return decodePending(rec), nil
}

func (p PendingRegistrations) Insert(ctx context.Context, pending domain.PendingRegistration) error {
	return p.c.Insert(ctx, CollectionPending, Record{
		ID: pending.ID,
		Fields: map[string]string{
			fieldEmployee:  pending.EmployeeID,
			fieldRUT:       pending.RUT.String(),
			fieldJobTitle:  pending.JobTitle,
			fieldCreatedAt: pending.CreatedAt.UTC().Format(time.RFC3339),
		},
	})
}

func (p PendingRegistrations) Delete(ctx context.Context, pendingID string) error {
	return p.c.Delete(ctx, CollectionPending, pendingID)
}

func decodePending(rec Record) domain.PendingRegistration {
	rut, _ := id.ParseRUT(rec.Field(fieldRUT))
	createdAt, _ := time.Parse(time.RFC3339, rec.Field(fieldCreatedAt))
	return domain.PendingRegistration{
		ID:         rec.ID,
		EmployeeID: rec.Field(fieldEmployee),
		RUT:        rut,
		JobTitle:   rec.Field(fieldJobTitle),
		CreatedAt:  createdAt,
	}
}

// WorkOrders is the read-only view surfaced on the gate state response.
type WorkOrders struct {
	c Client
}

func NewWorkOrders(c Client) WorkOrders {
	return WorkOrders{c: c}
}

func (w WorkOrders) ListByPlate(ctx context.Context, plate id.Plate) ([]domain.WorkOrder, error) {
	recs, err := w.c.List(ctx, CollectionWorkOrders)
	if err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}
	var out []domain.WorkOrder
	for _, rec := range recs {
		p, err := id.ParsePlate(rec.Field(FieldPlate))
		if err != nil || p != plate {
			continue
		}
		out = append(out, domain.WorkOrder{
			ID:          rec.ID,
			Plate:       p.String(),
			Status:      rec.Field(fieldStatus),
			Description: rec.Field(fieldDescription),
		})
	}
	return out, nil
}
