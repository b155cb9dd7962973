// Package domain holds the identifier primitives shared across the service.
//
// Identifiers are validated and normalized at parse time so that equality on
// the typed value is always equality on the canonical form. Services and
// stores never compare raw user input.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Plate is a normalized license-plate identifier ("patente"). Canonical form
// is uppercase with surrounding whitespace removed.
type Plate string

// ParsePlate validates and normalizes a raw plate string.
func ParsePlate(raw string) (Plate, error) {
	p := Plate(strings.ToUpper(strings.TrimSpace(raw)))
	if p == "" {
		return "", fmt.Errorf("plate is empty")
	}
	return p, nil
}

// String returns the canonical plate form.
func (p Plate) String() string {
	return string(p)
}

// IsNil reports whether the plate is unset.
func (p Plate) IsNil() bool {
	return p == ""
}

// RUT is a normalized Chilean national identifier. Canonical form strips the
// thousands dots, trims whitespace, and uppercases the check digit, so
// "11.111.111-1" and " 11111111-1 " compare equal.
type RUT string

// ParseRUT validates and normalizes a raw RUT string.
func ParseRUT(raw string) (RUT, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ".", "")
	if s == "" {
		return "", fmt.Errorf("rut is empty")
	}
	return RUT(s), nil
}

// String returns the canonical RUT form.
func (r RUT) String() string {
	return string(r)
}

// IsNil reports whether the RUT is unset.
func (r RUT) IsNil() bool {
	return r == ""
}

// NewRecordID derives a record identifier from the creation instant. The
// zero-padded nanosecond prefix keeps IDs monotonic and lexically sortable;
// the uuid suffix disambiguates records created in the same instant.
func NewRecordID(createdAt time.Time) string {
	return fmt.Sprintf("%020d-%s", createdAt.UTC().UnixNano(), uuid.NewString()[:8])
}
