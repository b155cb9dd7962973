// Package appointment attaches diagnostic-appointment context to gate
// decisions. A confirmed appointment authorizes entry even when the vehicle
// has no Directory record of its own; whether the appointment is for today is
// a derived flag, never a filter.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/domain"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domainerrors"
	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/sentinel"
)

// Matcher resolves vehicles and their confirmed appointments through the
// Directory views.
type Matcher struct {
	vehicles     directory.Vehicles
	appointments directory.Appointments
}

func NewMatcher(store directory.Client) *Matcher {
	return &Matcher{
		vehicles:     directory.NewVehicles(store),
		appointments: directory.NewAppointments(store),
	}
}

// MatchConfirmed returns the confirmed appointment for the plate, if any.
// Appointments on any date qualify; when several are confirmed, one scheduled
// for today wins, otherwise the earliest by effective date.
func (m *Matcher) MatchConfirmed(ctx context.Context, plate id.Plate, today time.Time) (domain.Appointment, bool, error) {
	appts, err := m.appointments.ListByPlate(ctx, plate)
	if err != nil {
		return domain.Appointment{}, false, fmt.Errorf("match confirmed: %w", err)
	}

	var (
		best  domain.Appointment
		found bool
	)
	for _, appt := range appts {
		if appt.Status != domain.AppointmentConfirmed {
			continue
		}
		if IsForToday(appt, today) {
			return appt, true, nil
		}
		if !found || appt.EffectiveDate().Before(best.EffectiveDate()) {
			best = appt
			found = true
		}
	}
	return best, found, nil
}

// IsForToday compares the appointment's effective date against the
// caller-supplied today using calendar-date equality, not time of day.
func IsForToday(appt domain.Appointment, today time.Time) bool {
	y1, m1, d1 := appt.EffectiveDate().Date()
	y2, m2, d2 := today.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Match is the resolved vehicle context for a gate decision.
type Match struct {
	Vehicle     domain.VehicleRef
	Appointment *domain.Appointment // confirmed appointment, nil when none
	ForToday    bool
}

// Resolve builds the vehicle reference for a gate decision. A plate with a
// Directory record resolves to a known vehicle; a plate with only a confirmed
// appointment resolves to a plate-only reference so the pipeline can proceed
// uniformly. A plate with neither is not found.
func (m *Matcher) Resolve(ctx context.Context, plate id.Plate, today time.Time) (Match, error) {
	var match Match

	rec, err := m.vehicles.FindByPlate(ctx, plate)
	switch {
	case err == nil:
		match.Vehicle = domain.KnownVehicle(rec)
	case errors.Is(err, sentinel.ErrNotFound):
		// Decided below: a confirmed appointment can still carry it.
	default:
		return Match{}, fmt.Errorf("resolve vehicle %s: %w", plate, err)
	}

	appt, found, err := m.MatchConfirmed(ctx, plate, today)
	if err != nil {
		return Match{}, err
	}
	if found {
		match.Appointment = &appt
		match.ForToday = IsForToday(appt, today)
	}

	if !match.Vehicle.IsKnown() {
		if !found {
			return Match{}, domainerrors.New(domainerrors.CodeNotFound,
				fmt.Sprintf("vehicle %s is not registered and has no confirmed appointment", plate))
		}
		match.Vehicle = domain.ReferencedVehicle(plate)
	}
	return match, nil
}
