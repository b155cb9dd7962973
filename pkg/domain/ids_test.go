package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParsePlate_Invariants validates the normalization invariant:
// "two identifiers are equal iff their normalized forms are equal".
func TestParsePlate_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Plate
		wantErr bool
	}{
		{name: "already canonical", raw: "ABC123", want: "ABC123"},
		{name: "lowercase with padding", raw: " abc123 ", want: "ABC123"},
		{name: "mixed case", raw: "Xy12Ab", want: "XY12AB"},
		{name: "empty", raw: "", wantErr: true},
		{name: "whitespace only", raw: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePlate(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRUT(t *testing.T) {
	dotted, err := ParseRUT("11.111.111-1")
	require.NoError(t, err)
	plain, err := ParseRUT(" 11111111-1 ")
	require.NoError(t, err)
	assert.Equal(t, dotted, plain, "dotted and plain forms must normalize equal")

	lowerK, err := ParseRUT("9.999.999-k")
	require.NoError(t, err)
	assert.Equal(t, RUT("9999999-K"), lowerK)

	_, err = ParseRUT("  ")
	require.Error(t, err)
}

func TestNewRecordID_Monotonic(t *testing.T) {
	earlier := NewRecordID(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	later := NewRecordID(time.Date(2025, 3, 1, 10, 0, 1, 0, time.UTC))

	assert.Less(t, earlier, later, "ids must sort by creation time")
	assert.NotEqual(t, NewRecordID(time.Now()), NewRecordID(time.Now()),
		"ids created in the same instant must still differ")
}
