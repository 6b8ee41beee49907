package models

// Role is a membership role, usable at workspace or project level.
// A project-level role always overrides the workspace-level one.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

// roleRank fixes the total order viewer < editor < owner. The ordering is a
// design constant, never derived from string comparison.
var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleOwner:  3,
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank returns the role's position in the hierarchy, 0 for an absent or
// unknown role.
func (r Role) Rank() int {
	return roleRank[r]
}
