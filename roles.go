package accounts

import "strings"

// Role is the role assigned to an account
type Role string

const (
	// RoleUser is the default role for self registered accounts
	RoleUser Role = "user"
	// RoleSupport can assist users
	RoleSupport Role = "support"
	// RoleAdmin manages the system
	RoleAdmin Role = "admin"
)

var roleRank = map[Role]int{
	RoleUser:    1,
	RoleSupport: 2,
	RoleAdmin:   3,
}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// IsAtLeast checks if r ranks at or above min
func (r Role) IsAtLeast(min Role) bool {
	return r.IsValid() && roleRank[r] >= roleRank[min]
}

func (r Role) String() string {
	return string(r)
}
