// Package validate checks form input locally before anything is sent to
// the catalogue API. Failures are reported as translation keys per field.
package validate

import (
	netmail "net/mail"
	"strings"

	"github.com/me/patrimoine/internal/password"
	"github.com/me/patrimoine/pkg/catalogue"
)

// Errors maps a form field name to the translation key of its message.
type Errors map[string]string

// OK reports whether no field failed.
func (e Errors) OK() bool {
	return len(e) == 0
}

func (e Errors) add(field, key string) {
	if _, exists := e[field]; !exists {
		e[field] = key
	}
}

// Email checks format and length; returns a translation key or "".
func Email(email string) string {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return "field.required"
	case len(email) > 254:
		return "field.email.too_long"
	}
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return "field.email.invalid"
	}
	return ""
}

// Login checks the credential shape.
func Login(email, pw string) Errors {
	errs := Errors{}
	if key := Email(email); key != "" {
		errs.add("email", key)
	}
	if pw == "" {
		errs.add("password", "field.required")
	}
	return errs
}

// Signup checks a contributor application. confirm must repeat the password.
func Signup(req catalogue.SignupRequest, confirm string) Errors {
	errs := Errors{}
	required(errs, "firstname", req.FirstName)
	required(errs, "lastname", req.LastName)
	if key := Email(req.Email); key != "" {
		errs.add("email", key)
	}
	newPassword(errs, req.Password, confirm)
	return errs
}

// Profile checks an account update. An empty password keeps the current one.
func Profile(upd catalogue.ProfileUpdate, confirm string) Errors {
	errs := Errors{}
	required(errs, "firstname", upd.FirstName)
	required(errs, "lastname", upd.LastName)
	if key := Email(upd.Email); key != "" {
		errs.add("email", key)
	}
	if upd.Password != "" || confirm != "" {
		newPassword(errs, upd.Password, confirm)
	}
	return errs
}

// ResetPassword checks the new password entered from a reset link.
func ResetPassword(pw, confirm string) Errors {
	errs := Errors{}
	newPassword(errs, pw, confirm)
	return errs
}

// Contribution checks a proposed catalogue record.
func Contribution(c catalogue.Contribution) Errors {
	errs := Errors{}
	if _, ok := catalogue.ParseCategory(string(c.Category)); !ok {
		errs.add("category", "field.category.invalid")
	}
	required(errs, "title", c.Title)
	required(errs, "description", c.Description)
	return errs
}

func required(errs Errors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.add(field, "field.required")
	}
}

func newPassword(errs Errors, pw, confirm string) {
	if pw == "" {
		errs.add("password", "field.required")
		return
	}
	if failed := password.Validate(pw); len(failed) > 0 {
		errs.add("password", failed[0])
	}
	if pw != confirm {
		errs.add("confirm", "field.password.mismatch")
	}
}
