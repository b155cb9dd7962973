package domain

import (
	"time"

	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
)

// AppointmentStatus tracks the coordinator decision over a diagnostic request.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentRejected  AppointmentStatus = "rejected"
)

// Appointment is a diagnostic request for a vehicle. Only Confirmed
// appointments may accompany an entry decision; the appointment date may be
// any day, not necessarily the query day.
type Appointment struct {
	ID            string
	Plate         id.Plate
	ProblemType   string
	RequestedDate time.Time
	ConfirmedDate time.Time // zero until confirmed
	TimeSlot      string
	Status        AppointmentStatus
	Priority      string
}

// EffectiveDate is the date used for scheduling classification: the confirmed
// date when set, otherwise the requested date.
func (a Appointment) EffectiveDate() time.Time {
	if !a.ConfirmedDate.IsZero() {
		return a.ConfirmedDate
	}
	return a.RequestedDate
}
