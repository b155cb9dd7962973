package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
//   - ErrNotFound: record does not exist in the store
//   - ErrUnreachable: the backing store cannot be reached
//   - ErrRejected: the backing store refused the write (permission, validation)
//   - ErrConflict: a guarded write lost a compare-and-swap race
//
// For validation errors (bad input, missing fields), use pkg/domainerrors.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnreachable = errors.New("store unreachable")
	ErrRejected    = errors.New("store rejected write")
	ErrConflict    = errors.New("conflict")
)
