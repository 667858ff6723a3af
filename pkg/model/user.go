package model

import "strings"

// Role is the permission level of an authenticated user.
type Role string

const (
	// RoleContributor can submit records and manage their own account.
	RoleContributor Role = "contributor"
	// RoleAdmin can additionally moderate contributors and submitted forms.
	RoleAdmin Role = "admin"
)

// ParseRole maps a claim value to a Role. Anything that is not "admin"
// (including the empty string) is a contributor.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleContributor
}
