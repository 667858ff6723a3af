package model

import "strings"

// Session is the currently authenticated identity of one browser client.
// A nil *Session means nobody is logged in.
type Session struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role"`
}

// IsAdmin reports whether the session has admin role. Safe on nil.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// DisplayName returns "First Last", falling back to the email.
func (s *Session) DisplayName() string {
	if s == nil {
		return ""
	}
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name == "" {
		return s.Email
	}
	return name
}
