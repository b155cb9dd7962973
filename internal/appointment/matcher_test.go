package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory/memory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/domain"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domainerrors"
	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
)

var today = time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)

func mustPlate(t *testing.T, raw string) id.Plate {
	t.Helper()
	p, err := id.ParsePlate(raw)
	require.NoError(t, err)
	return p
}

func seedVehicle(t *testing.T, store directory.Client, recID, plate string) {
	t.Helper()
	v := directory.NewVehicles(store)
	require.NoError(t, v.Insert(context.Background(), domain.VehicleRecord{
		ID:    recID,
		Plate: mustPlate(t, plate),
		Make:  "Toyota",
		Model: "Hilux",
	}))
}

func seedAppointment(t *testing.T, store directory.Client, appt domain.Appointment) {
	t.Helper()
	a := directory.NewAppointments(store)
	require.NoError(t, a.Insert(context.Background(), appt))
}

func TestMatchConfirmed_FutureAppointmentStillMatches(t *testing.T) {
	store := memory.NewClient()
	plate := mustPlate(t, "XY12AB")
	seedAppointment(t, store, domain.Appointment{
		ID:            "cita-1",
		Plate:         plate,
		ProblemType:   "frenos",
		RequestedDate: today.AddDate(0, 0, 1),
		ConfirmedDate: today.AddDate(0, 0, 3),
		Status:        domain.AppointmentConfirmed,
	})

	appt, found, err := NewMatcher(store).MatchConfirmed(context.Background(), plate, today)
	require.NoError(t, err)
	require.True(t, found, "a confirmed appointment on any date matches")
	assert.Equal(t, "cita-1", appt.ID)
	assert.False(t, IsForToday(appt, today), "three days out is not today")
}

func TestMatchConfirmed_IgnoresPendingAndRejected(t *testing.T) {
	store := memory.NewClient()
	plate := mustPlate(t, "ABC123")
	seedAppointment(t, store, domain.Appointment{
		ID: "p", Plate: plate, RequestedDate: today, Status: domain.AppointmentPending,
	})
	seedAppointment(t, store, domain.Appointment{
		ID: "r", Plate: plate, RequestedDate: today, Status: domain.AppointmentRejected,
	})

	_, found, err := NewMatcher(store).MatchConfirmed(context.Background(), plate, today)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMatchConfirmed_PrefersTodayOverEarlier(t *testing.T) {
	store := memory.NewClient()
	plate := mustPlate(t, "ABC123")
	seedAppointment(t, store, domain.Appointment{
		ID: "early", Plate: plate,
		ConfirmedDate: today.AddDate(0, 0, -2), Status: domain.AppointmentConfirmed,
	})
	seedAppointment(t, store, domain.Appointment{
		ID: "today", Plate: plate,
		ConfirmedDate: today.Truncate(24 * time.Hour), Status: domain.AppointmentConfirmed,
	})

	appt, found, err := NewMatcher(store).MatchConfirmed(context.Background(), plate, today)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "today", appt.ID)
}

func TestIsForToday_ComparesCalendarDateNotClock(t *testing.T) {
	appt := domain.Appointment{
		ConfirmedDate: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Status:        domain.AppointmentConfirmed,
	}
	assert.True(t, IsForToday(appt, today), "midnight vs afternoon is still the same day")
	assert.False(t, IsForToday(appt, today.AddDate(0, 0, 1)))
}

func TestIsForToday_FallsBackToRequestedDate(t *testing.T) {
	appt := domain.Appointment{
		RequestedDate: today,
		Status:        domain.AppointmentConfirmed,
	}
	assert.True(t, IsForToday(appt, today))
}

func TestResolve_KnownVehicleWithoutAppointment(t *testing.T) {
	store := memory.NewClient()
	seedVehicle(t, store, "v1", "ABC123")

	match, err := NewMatcher(store).Resolve(context.Background(), mustPlate(t, "ABC123"), today)
	require.NoError(t, err)
	assert.True(t, match.Vehicle.IsKnown())
	assert.Nil(t, match.Appointment)
}

func TestResolve_AppointmentOnlyVehicleIsReferenced(t *testing.T) {
	store := memory.NewClient()
	plate := mustPlate(t, "XY12AB")
	seedAppointment(t, store, domain.Appointment{
		ID: "cita-1", Plate: plate,
		ConfirmedDate: today.AddDate(0, 0, 3), Status: domain.AppointmentConfirmed,
	})

	match, err := NewMatcher(store).Resolve(context.Background(), plate, today)
	require.NoError(t, err)
	assert.False(t, match.Vehicle.IsKnown(), "no Directory record, only a mention")
	assert.Equal(t, plate, match.Vehicle.Plate())
	require.NotNil(t, match.Appointment)
	assert.False(t, match.ForToday)
	_, ok := match.Vehicle.Record()
	assert.False(t, ok)
}

func TestResolve_UnknownVehicleWithoutAppointmentIsNotFound(t *testing.T) {
	store := memory.NewClient()

	_, err := NewMatcher(store).Resolve(context.Background(), mustPlate(t, "ZZ99ZZ"), today)
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeNotFound))
}
