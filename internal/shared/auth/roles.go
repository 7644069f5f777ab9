// Package auth supplies the authenticated user consumed by the portal core.
// The core reads role and department to scope notification visibility; it
// never makes authentication decisions itself.
package auth

// Role represents a user role in the portal.
type Role string

const (
	// RoleSuperAdmin sees and manages everything across departments.
	RoleSuperAdmin Role = "Super Admin"
	// RoleDepartmentAdmin manages reports within one department.
	RoleDepartmentAdmin Role = "Department Admin"
	// RoleFieldOfficer works assigned reports in the field.
	RoleFieldOfficer Role = "Field Officer"
	// RoleViewer has read-only access.
	RoleViewer Role = "Viewer"
)

// Valid reports whether r is one of the known portal roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleDepartmentAdmin, RoleFieldOfficer, RoleViewer:
		return true
	}
	return false
}

// AccessRequest is a pending role-upgrade request recorded by the identity
// provider. Only the fields the resolution policy reads are modeled.
type AccessRequest struct {
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Approved bool   `json:"approved"`
}

// ResolveRole decides the effective role for an email address given the set
// of pending access requests. Approved requests win over the default; when
// several are approved the most privileged one applies. The function is pure:
// it never touches storage.
func ResolveRole(email string, pending []AccessRequest) Role {
	resolved := RoleViewer
	for _, req := range pending {
		if req.Email != email || !req.Approved || !req.Role.Valid() {
			continue
		}
		if rolePrecedence(req.Role) > rolePrecedence(resolved) {
			resolved = req.Role
		}
	}
	return resolved
}

func rolePrecedence(r Role) int {
	switch r {
	case RoleSuperAdmin:
		return 4
	case RoleDepartmentAdmin:
		return 3
	case RoleFieldOfficer:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}
