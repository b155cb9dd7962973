package domain

import (
	"time"

	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
)

// Employee is a staff record in the Directory. Creation happens at
// self-registration; the record is deleted again if the registration is
// rejected.
type Employee struct {
	ID        string
	RUT       id.RUT
	FirstName string
	LastName  string
	Email     string
	JobTitle  string
	BranchID  string
}

// PendingRegistration sits in the approval queue between self-registration
// and an approver decision. It is removed on both approval and rejection.
// The applicant's chosen credential is never stored here; a one-time secret
// is generated at approval instead.
type PendingRegistration struct {
	ID         string
	EmployeeID string
	RUT        id.RUT
	JobTitle   string
	CreatedAt  time.Time
}
