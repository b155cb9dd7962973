package domain

import (
	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
)

// VehicleRecord is a vehicle as registered in the Directory.
type VehicleRecord struct {
	ID       string
	Plate    id.Plate
	Make     string
	Model    string
	Year     string
	OwnerRUT id.RUT
	BranchID string
}

// VehicleRef is a tagged reference to a vehicle. A vehicle may be Known (a
// full Directory record exists) or merely Referenced (only the plate is
// known, e.g. via a confirmed appointment). Downstream code must check
// IsKnown before touching record attributes.
type VehicleRef struct {
	plate  id.Plate
	record *VehicleRecord
}

// KnownVehicle builds a reference backed by a full Directory record.
func KnownVehicle(rec VehicleRecord) VehicleRef {
	r := rec
	return VehicleRef{plate: rec.Plate, record: &r}
}

// ReferencedVehicle builds a plate-only reference for vehicles that exist in
// the system only as a mention (no Directory record).
func ReferencedVehicle(plate id.Plate) VehicleRef {
	return VehicleRef{plate: plate}
}

// Plate returns the identifier, present for both variants.
func (v VehicleRef) Plate() id.Plate {
	return v.plate
}

// IsKnown reports whether a full Directory record backs this reference.
func (v VehicleRef) IsKnown() bool {
	return v.record != nil
}

// Record returns the Directory record and whether one exists.
func (v VehicleRef) Record() (VehicleRecord, bool) {
	if v.record == nil {
		return VehicleRecord{}, false
	}
	return *v.record, true
}
