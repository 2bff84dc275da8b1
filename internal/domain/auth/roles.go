package auth

const (
	RoleAdmin    = "Admin"
	RoleHR       = "HR"
	RoleEmployee = "Employee"
)

// UserContext is the authenticated caller as read from the bearer token.
type UserContext struct {
	UserID   string
	RoleName string
}

// CanWrite reports whether the caller may change rule tables, contracts and
// employee records.
func (u UserContext) CanWrite() bool {
	return u.RoleName == RoleHR || u.RoleName == RoleAdmin
}
