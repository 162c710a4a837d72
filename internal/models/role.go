package models

import (
	"fmt"

	"smartbin-api-server/internal/apperror"
)

// Role is the closed set of user roles. Roles form a total order: a role
// satisfies every requirement at or below its own rank.
type Role string

const (
	RoleGuest        Role = "Guest"
	RoleSalesManager Role = "SalesManager"
	RoleAdmin        Role = "Admin"
)

var roleRank = map[Role]int{
	RoleGuest:        0,
	RoleSalesManager: 1,
	RoleAdmin:        2,
}

// Roles lists every role from lowest to highest rank.
func Roles() []Role {
	return []Role{RoleGuest, RoleSalesManager, RoleAdmin}
}

// ParseRole converts a claim or request value into a Role. Matching is exact.
func ParseRole(name string) (Role, error) {
	r := Role(name)
	if _, ok := roleRank[r]; !ok {
		return "", fmt.Errorf("%w: %q", apperror.ErrUnknownRole, name)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank returns the position of r in the hierarchy, or -1 for unknown roles.
func (r Role) Rank() int {
	rank, ok := roleRank[r]
	if !ok {
		return -1
	}
	return rank
}

// Satisfies reports whether a user holding r may perform an operation that
// requires the given role. Unknown roles on either side never satisfy.
func (r Role) Satisfies(required Role) bool {
	held, ok := roleRank[r]
	if !ok {
		return false
	}
	need, ok := roleRank[required]
	if !ok {
		return false
	}
	return held >= need
}

func (r Role) String() string {
	return string(r)
}
