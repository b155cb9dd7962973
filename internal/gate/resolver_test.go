package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/domain"
)

func movement(kind domain.MovementKind, authorized bool, age time.Duration) domain.MovementRecord {
	return domain.MovementRecord{
		ID:         "m-" + string(kind),
		Plate:      "ABC123",
		Kind:       kind,
		Timestamp:  time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC).Add(-age),
		Authorized: authorized,
	}
}

func TestAuthorize_EmptyLedger(t *testing.T) {
	assert.True(t, Authorize(nil, domain.MovementEntry).Allowed,
		"a vehicle never seen before may enter")

	d := Authorize(nil, domain.MovementExit)
	assert.False(t, d.Allowed)
	assert.Equal(t, DenialNoPriorEntry, d.Reason)
}

func TestAuthorize_Entry(t *testing.T) {
	cases := []struct {
		name    string
		records []domain.MovementRecord
		allowed bool
		reason  DenialReason
	}{
		{
			name:    "inside after authorized entry",
			records: []domain.MovementRecord{movement(domain.MovementEntry, true, 0)},
			allowed: false,
			reason:  DenialAlreadyInside,
		},
		{
			name: "outside after exit",
			records: []domain.MovementRecord{
				movement(domain.MovementExit, true, 0),
				movement(domain.MovementEntry, true, time.Hour),
			},
			allowed: true,
		},
		{
			name:    "denied attempt does not make the vehicle inside",
			records: []domain.MovementRecord{movement(domain.MovementEntry, false, 0)},
			allowed: true,
		},
		{
			name: "denied attempt on top of a real entry still blocks",
			records: []domain.MovementRecord{
				movement(domain.MovementEntry, false, 0),
				movement(domain.MovementEntry, true, time.Hour),
			},
			allowed: false,
			reason:  DenialAlreadyInside,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Authorize(tc.records, domain.MovementEntry)
			assert.Equal(t, tc.allowed, d.Allowed)
			assert.Equal(t, tc.reason, d.Reason)
		})
	}
}

func TestAuthorize_Exit(t *testing.T) {
	cases := []struct {
		name    string
		records []domain.MovementRecord
		allowed bool
		reason  DenialReason
	}{
		{
			name:    "inside vehicle may leave",
			records: []domain.MovementRecord{movement(domain.MovementEntry, true, 0)},
			allowed: true,
		},
		{
			name: "double exit refused",
			records: []domain.MovementRecord{
				movement(domain.MovementExit, true, 0),
				movement(domain.MovementEntry, true, time.Hour),
			},
			allowed: false,
			reason:  DenialAlreadyExited,
		},
		{
			name:    "only denied attempts on record",
			records: []domain.MovementRecord{movement(domain.MovementEntry, false, 0)},
			allowed: false,
			reason:  DenialNoPriorEntry,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Authorize(tc.records, domain.MovementExit)
			assert.Equal(t, tc.allowed, d.Allowed)
			assert.Equal(t, tc.reason, d.Reason)
		})
	}
}

func TestAuthorize_NeverAllowsConsecutiveSameDirection(t *testing.T) {
	// Alternating authorized movements, then each direction re-proposed.
	var records []domain.MovementRecord
	kinds := []domain.MovementKind{
		domain.MovementEntry, domain.MovementExit,
		domain.MovementEntry, domain.MovementExit,
		domain.MovementEntry,
	}
	for i, kind := range kinds {
		records = append([]domain.MovementRecord{
			movement(kind, true, -time.Duration(i)*time.Minute),
		}, records...)

		same := Authorize(records, kind)
		assert.False(t, same.Allowed, "step %d: repeating %s must be refused", i, kind)

		other := domain.MovementExit
		if kind == domain.MovementExit {
			other = domain.MovementEntry
		}
		assert.True(t, Authorize(records, other).Allowed, "step %d: alternating is allowed", i)
	}
}

func TestResolveState(t *testing.T) {
	state := ResolveState("ABC123", nil)
	assert.False(t, state.IsInside)
	assert.Nil(t, state.LastMovement)

	state = ResolveState("ABC123", []domain.MovementRecord{
		movement(domain.MovementEntry, false, 0),
		movement(domain.MovementEntry, true, time.Hour),
	})
	assert.True(t, state.IsInside, "presence comes from the last authorized movement")
	assert.True(t, state.LastMovement.Authorized)
}
