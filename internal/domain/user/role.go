package user

import (
	"errors"
	"strings"
)

// Role identifies the kind of principal connecting to the gateway.
type Role string

const (
	RoleTourist   Role = "TOURIST"
	RoleAuthority Role = "AUTHORITY"
	RoleAdmin     Role = "ADMIN"
)

var ErrInvalidRole = errors.New("invalid role")

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTourist, RoleAuthority, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}
