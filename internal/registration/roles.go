// Package registration runs the employee self-registration workflow:
// submission into an approval queue, then approver-driven promotion to a
// user credential or rejection with cleanup.
package registration

import (
	"strings"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/domain"
)

// roleKeywords maps job-title fragments to roles, first match wins. Matching
// is case-insensitive over the whole title, so "Guardia de Turno" and
// "guardia nocturno" both land on guard.
var roleKeywords = []struct {
	keyword string
	role    domain.Role
}{
	{"jefe de taller", domain.RoleAdmin},
	{"coordinador", domain.RolePlanner},
	{"supervisor", domain.RoleSupervisor},
	{"mecánico", domain.RoleMechanic},
	{"guardia", domain.RoleGuard},
	{"asistente de repuestos", domain.RoleParts},
	{"chofer", domain.RoleDriver},
}

// DeriveRole maps a job title to a system role. An explicit role on the
// Directory title entry wins; otherwise the title name is matched against
// the keyword table. Unmatched titles get the least privileged role.
func DeriveRole(title domain.JobTitle) domain.Role {
	if title.Role != "" {
		return title.Role
	}
	return roleForTitleName(title.Name)
}

func roleForTitleName(name string) domain.Role {
	lower := strings.ToLower(name)
	for _, entry := range roleKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.role
		}
	}
	return domain.RoleDriver
}
