package models

type Role string

const (
	RoleSuperAdmin Role = "Super Admin"
	RoleAdmin      Role = "Admin"
)

// Identity is the authenticated caller as carried in the JWT.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// CanManageAttendance reports whether the role may read or write the attendance log.
func (i *Identity) CanManageAttendance() bool {
	if i == nil {
		return false
	}
	return i.Role == RoleAdmin || i.Role == RoleSuperAdmin
}
