package portal

import (
	"context"

	"github.com/me/patrimoine/pkg/catalogue"
)

// API is the catalogue surface the controller depends on. It is satisfied
// by *catalogue.Session, which binds the HTTP client to one browser's
// stored credentials.
type API interface {
	Login(ctx context.Context, email, password string) (*catalogue.Claims, bool, error)
	Logout(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
	GetUserData(ctx context.Context) (*catalogue.Claims, error)

	CreateUser(ctx context.Context, req catalogue.SignupRequest) error
	GetUserProfile(ctx context.Context) (*catalogue.Profile, error)
	UpdateUserProfile(ctx context.Context, upd catalogue.ProfileUpdate) (*catalogue.Profile, error)
	DeleteUserAccount(ctx context.Context) error

	ValidateResetToken(ctx context.Context, resetToken string) error
	ConfirmPasswordReset(ctx context.Context, resetToken, password string) error
	ConfirmEmail(ctx context.Context, emailToken string) error

	GetPendingUsers(ctx context.Context) ([]catalogue.PendingUser, error)
	GetPendingForms(ctx context.Context, cat catalogue.Category) ([]catalogue.PendingForm, error)
	GetPendingForm(ctx context.Context, cat catalogue.Category, id string) (*catalogue.PendingForm, error)
	ModerateUser(ctx context.Context, userID string, d catalogue.Decision) error
	ModerateForm(ctx context.Context, cat catalogue.Category, id string, d catalogue.Decision) error

	Search(ctx context.Context, q catalogue.SearchQuery) (*catalogue.SearchResult, error)
	GetRecord(ctx context.Context, cat catalogue.Category, id string) (*catalogue.Record, error)
	Submit(ctx context.Context, c catalogue.Contribution) error
}

var _ API = (*catalogue.Session)(nil)
