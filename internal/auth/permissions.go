package auth

import (
	"fmt"
	"slices"
	"strings"
)

// Role is the single role held by a principal. Administrative accounts
// hold one of AllRoles; shop customers hold RoleCustomer.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleCustomer   Role = "customer"
)

// AllRoles lists every administrative role in descending privilege order.
var AllRoles = []Role{RoleSuperadmin, RoleAdmin, RoleManager}

// ParseRole normalises s and rejects values outside AllRoles.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(strings.ToLower(s)))
	if !r.Admin() {
		return "", fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, s)
	}
	return r, nil
}

// Valid reports whether tokens may carry r.
func (r Role) Valid() bool {
	return r == RoleCustomer || r.Admin()
}

// Admin reports whether r is one of AllRoles.
func (r Role) Admin() bool {
	return slices.Contains(AllRoles, r)
}

func (r Role) String() string { return string(r) }

// Allowed reports whether role is one of allowed. There is no hierarchy:
// a superadmin is only allowed where superadmin is listed.
func Allowed(role Role, allowed ...Role) bool {
	if !role.Valid() {
		return false
	}
	return slices.Contains(allowed, role)
}
