package shared

// Role is the closed set of access levels a member account can hold.
// Authorization decisions are a pure function of (role, allowed set).
type Role string

const (
	// RoleAdmin can manage members, approve loans and send notifications.
	RoleAdmin Role = "admin"
	// RoleMember can operate on its own account only.
	RoleMember Role = "member"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMember:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
