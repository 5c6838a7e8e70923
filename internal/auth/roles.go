package auth

import (
	"fmt"
	"strings"
)

// Role is one of four fixed seniority levels. No other value is valid.
type Role string

const (
	RoleViewer  Role = "viewer"
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Capability names one kind of permitted action.
type Capability string

const (
	CapReadTasks           Capability = "read_tasks"
	CapWriteTasks          Capability = "write_tasks"
	CapDeleteTasks         Capability = "delete_tasks"
	CapReadUsers           Capability = "read_users"
	CapWriteUsers          Capability = "write_users"
	CapDeleteUsers         Capability = "delete_users"
	CapReadOrganizations   Capability = "read_organizations"
	CapWriteOrganizations  Capability = "write_organizations"
	CapDeleteOrganizations Capability = "delete_organizations"
	CapReadAuditLogs       Capability = "read_audit_logs"
	CapAdminPanel          Capability = "admin_panel"
	CapSystemConfig        Capability = "system_config"
)

// roleRank defines the total order used for coarse seniority checks.
var roleRank = map[Role]int{
	RoleViewer:  1,
	RoleUser:    2,
	RoleManager: 3,
	RoleAdmin:   4,
}

// roleCapabilities is the source of truth for fine-grained checks. The sets
// are maintained explicitly rather than derived from the rank order; editors
// must keep them supersets along the hierarchy (see roles_test.go).
var roleCapabilities = map[Role][]Capability{
	RoleViewer: {
		CapReadTasks,
	},
	RoleUser: {
		CapReadTasks,
		CapWriteTasks,
	},
	RoleManager: {
		CapReadTasks,
		CapWriteTasks,
		CapDeleteTasks,
		CapReadUsers,
		CapWriteUsers,
	},
	RoleAdmin: {
		CapReadTasks,
		CapWriteTasks,
		CapDeleteTasks,
		CapReadUsers,
		CapWriteUsers,
		CapDeleteUsers,
		CapReadOrganizations,
		CapWriteOrganizations,
		CapDeleteOrganizations,
		CapReadAuditLogs,
		CapAdminPanel,
		CapSystemConfig,
	},
}

// ParseRole normalizes and validates a role name.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
	return role, nil
}

// Valid reports whether the role is one of the four defined values.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank returns the role's position in the hierarchy, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRank[r]
}

// HasCapability reports whether the capability appears in the role's
// explicit grant set.
func (r Role) HasCapability(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// AtLeast reports whether the role sits at or above the threshold in the
// hierarchy. Unknown roles are never sufficient.
func (r Role) AtLeast(threshold Role) bool {
	rank := r.Rank()
	return rank > 0 && rank >= threshold.Rank()
}

// Capabilities returns a copy of the role's grant set.
func Capabilities(r Role) []Capability {
	caps := roleCapabilities[r]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// Roles returns all roles ordered from least to most senior.
func Roles() []Role {
	return []Role{RoleViewer, RoleUser, RoleManager, RoleAdmin}
}
