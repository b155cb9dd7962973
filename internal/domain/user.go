package domain

// Role is the system role derived from an employee's job title. Roles are
// never chosen directly by the applicant.
type Role string

const (
	RoleAdmin      Role = "admin"
	RolePlanner    Role = "planner"
	RoleSupervisor Role = "supervisor"
	RoleMechanic   Role = "mechanic"
	RoleGuard      Role = "guard"
	RoleParts      Role = "repuestos"
	RoleDriver     Role = "driver"
)

// UserCredential is a login created on registration approval, never before.
// Only the bcrypt hash of the one-time secret is stored.
type UserCredential struct {
	ID             string
	LoginName      string
	CredentialHash string
	Role           Role
	EmployeeID     string
	Enabled        bool
}

// JobTitle is a Directory job-title entry. Role, when set, is the explicit
// role mapping that takes precedence over keyword matching on Name.
type JobTitle struct {
	ID   string
	Name string
	Role Role
}

// Branch is a workshop location.
type Branch struct {
	ID      string
	Name    string
	Address string
}

// WorkOrder is carried read-only for the gate state view; it does not
// participate in authorization.
type WorkOrder struct {
	ID          string
	Plate       string
	Status      string
	Description string
}
