// Package routeguard holds the client route table and the navigation guard
// decision used by the web frontend. The guard reads only locally cached
// session state; it never performs network or store reads.
package routeguard

import (
	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

// LoginPath is the redirect target for every guarded navigation that fails.
const LoginPath = "/login"

// Route maps a named client path to its access requirement. A nil
// RequiredRole means the route is public.
type Route struct {
	Name         string       `json:"name"`
	Path         string       `json:"path"`
	RequiredRole *shared.Role `json:"required_role,omitempty"`
}

// Table is the fixed route-to-role mapping consumed by the guard. It is
// built once at startup and read-only afterwards.
type Table []Route

func rolePtr(r shared.Role) *shared.Role {
	return &r
}

// DefaultTable returns the application route table.
func DefaultTable() Table {
	return Table{
		{Name: "login", Path: LoginPath},
		{Name: "register", Path: "/register"},
		{Name: "admin-dashboard", Path: "/admin", RequiredRole: rolePtr(shared.RoleAdmin)},
		{Name: "admin-members", Path: "/admin/members", RequiredRole: rolePtr(shared.RoleAdmin)},
		{Name: "admin-loans", Path: "/admin/loans", RequiredRole: rolePtr(shared.RoleAdmin)},
		{Name: "admin-messages", Path: "/admin/messages", RequiredRole: rolePtr(shared.RoleAdmin)},
		{Name: "member-home", Path: "/home", RequiredRole: rolePtr(shared.RoleMember)},
		{Name: "member-loans", Path: "/loans", RequiredRole: rolePtr(shared.RoleMember)},
		{Name: "member-savings", Path: "/savings", RequiredRole: rolePtr(shared.RoleMember)},
		{Name: "member-profile", Path: "/profile", RequiredRole: rolePtr(shared.RoleMember)},
	}
}

// Find returns the route with the given name.
func (t Table) Find(name string) (Route, bool) {
	for _, r := range t {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}
