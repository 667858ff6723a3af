package catalogue

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in the API's error body alongside the HTTP status.
const (
	// CodeAccountPending: credentials are right but an admin has not yet
	// approved the contributor account (403).
	CodeAccountPending = "ACCOUNT_PENDING"
	// CodeEmailUnconfirmed: account approved, email address not confirmed (403).
	CodeEmailUnconfirmed = "EMAIL_NOT_CONFIRMED"
	// CodeEmailTaken: signup or profile update with an email already in use (409).
	CodeEmailTaken = "EMAIL_TAKEN"
)

var (
	// ErrNotAuthenticated indicates no usable access token is stored locally.
	ErrNotAuthenticated = errors.New("not authenticated: no access token stored")

	// ErrInvalidToken indicates the access token is not a well-formed JWT.
	ErrInvalidToken = errors.New("invalid access token")

	// ErrTokenExpired indicates the access token's exp claim is in the past.
	ErrTokenExpired = errors.New("access token has expired")
)

// Error is a failed API call. StatusCode is the HTTP status of the response,
// or 0 when no response was received at all (transport failure).
type Error struct {
	// Op is the operation that failed, e.g. "login".
	Op string

	// StatusCode is the HTTP status, 0 for transport errors.
	StatusCode int

	// Code is the machine-readable code from the error body, if any.
	Code string

	// Message is the human-readable message from the error body, if any.
	Message string

	// Fields maps form field names to validation messages.
	Fields map[string]string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Code != "":
		return fmt.Sprintf("%s: HTTP %d [%s] %s", e.Op, e.StatusCode, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: HTTP %d %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError wraps a transport-level error with operation context.
func WrapError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

// StatusOf returns the HTTP status carried by err, 0 if none. A missing
// local token counts as 401 so every caller funnels it into session expiry.
func StatusOf(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrInvalidToken) {
		return http.StatusUnauthorized
	}
	return 0
}

// CodeOf returns the error body code carried by err, "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// FieldsOf returns the per-field validation messages carried by err.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// IsNetwork reports a failure where no HTTP response was received. Errors
// that never reached the transport, such as a failing credential store,
// are not network failures.
func IsNetwork(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode == 0
}

// IsBadRequest reports a malformed-request rejection (400 or 422).
func IsBadRequest(err error) bool {
	s := StatusOf(err)
	return s == http.StatusBadRequest || s == http.StatusUnprocessableEntity
}

// IsUnauthorized reports an expired or invalid authentication (401).
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsForbidden reports an authenticated caller lacking permission (403).
func IsForbidden(err error) bool {
	return StatusOf(err) == http.StatusForbidden
}

// IsNotFound reports a missing resource (404).
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsConflict reports a uniqueness conflict such as a duplicate email (409).
func IsConflict(err error) bool {
	return StatusOf(err) == http.StatusConflict
}

// IsGone reports a resource that existed but has expired (410).
func IsGone(err error) bool {
	return StatusOf(err) == http.StatusGone
}
