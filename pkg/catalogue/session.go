package catalogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialStore persists one browser's access token and identity claims.
// A nil *Credentials from LoadCredentials means nothing is stored.
type CredentialStore interface {
	LoadCredentials(ctx context.Context, clientID string) (*Credentials, error)
	SaveCredentials(ctx context.Context, clientID string, creds *Credentials) error
	ClearCredentials(ctx context.Context, clientID string) error
}

// TokenInfo holds the claims read from an access token without verifying
// its signature. The API verifies; the client only checks shape and expiry.
type TokenInfo struct {
	Subject   string
	Email     string
	FirstName string
	Role      string
	Expiry    time.Time // zero when the token carries no exp claim
}

// IsExpired reports whether the token's exp claim is in the past.
func (t *TokenInfo) IsExpired() bool {
	return !t.Expiry.IsZero() && time.Now().After(t.Expiry)
}

// ParseAccessToken checks that raw is a structurally valid JWT and extracts
// the identity claims it carries.
func ParseAccessToken(raw string) (*TokenInfo, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	info := &TokenInfo{
		Subject:   firstString(claims, "sub", "userId", "user_id", "id"),
		Email:     firstString(claims, "email"),
		FirstName: firstString(claims, "firstname", "first_name", "given_name"),
		Role:      firstString(claims, "role"),
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp != nil {
		info.Expiry = exp.Time
	}
	return info, nil
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// completeClaims fills gaps in the login payload from the token, then from
// the login email. The boolean reports that the identity was synthesized
// locally rather than taken whole from the API.
func completeClaims(user *Claims, info *TokenInfo, email string) (Claims, bool) {
	var c Claims
	if user != nil {
		c = *user
	}
	synthesized := !user.Complete()

	if info != nil {
		if c.UserID == "" {
			c.UserID = info.Subject
		}
		if c.Email == "" {
			c.Email = info.Email
		}
		if c.FirstName == "" {
			c.FirstName = info.FirstName
		}
		if c.Role == "" {
			c.Role = info.Role
		}
	}
	if c.Email == "" {
		c.Email = email
	}
	if c.FirstName == "" {
		c.FirstName, _, _ = strings.Cut(c.Email, "@")
	}
	if c.UserID == "" {
		c.UserID = "local:" + c.Email
	}
	return c, synthesized
}

// Session binds a Client to the stored credentials of one browser client.
// It is the surface the navigation controller consumes.
type Session struct {
	client   *Client
	store    CredentialStore
	clientID string
	logger   *slog.Logger
}

// Bind returns the Session of the browser identified by clientID.
func (c *Client) Bind(store CredentialStore, clientID string) *Session {
	return &Session{
		client:   c,
		store:    store,
		clientID: clientID,
		logger:   c.logger.With("client_id", clientID),
	}
}

// token returns the stored access token or ErrNotAuthenticated.
func (s *Session) token(ctx context.Context) (string, error) {
	creds, err := s.store.LoadCredentials(ctx, s.clientID)
	if err != nil {
		return "", fmt.Errorf("load credentials: %w", err)
	}
	if creds == nil || creds.Token == "" {
		return "", ErrNotAuthenticated
	}
	return creds.Token, nil
}

// Login authenticates, persists token and claims, and returns the claims.
// synthesized is true when the API's claims were incomplete and the identity
// was completed locally.
func (s *Session) Login(ctx context.Context, email, password string) (claims *Claims, synthesized bool, err error) {
	res, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, false, err
	}

	info, perr := ParseAccessToken(res.Token)
	if perr != nil {
		s.logger.Warn("login returned a token that is not a JWT", "error", perr)
		info = nil
	}
	c, synthesized := completeClaims(res.User, info, email)

	creds := &Credentials{Token: res.Token, Claims: c, SavedAt: time.Now().UTC()}
	if err := s.store.SaveCredentials(ctx, s.clientID, creds); err != nil {
		return nil, false, fmt.Errorf("save credentials: %w", err)
	}
	return &c, synthesized, nil
}

// Logout clears the locally stored token and claims. It does not call the
// API.
func (s *Session) Logout(ctx context.Context) error {
	return s.store.ClearCredentials(ctx, s.clientID)
}

// IsAuthenticated reports whether a stored token exists, is a well-formed
// JWT and has not expired.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	tok, err := s.token(ctx)
	if err != nil {
		return false
	}
	info, err := ParseAccessToken(tok)
	if err != nil {
		return false
	}
	return !info.IsExpired()
}

// GetUserData returns the stored identity claims, nil if none.
func (s *Session) GetUserData(ctx context.Context) (*Claims, error) {
	creds, err := s.store.LoadCredentials(ctx, s.clientID)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if creds == nil {
		return nil, nil
	}
	c := creds.Claims
	return &c, nil
}

// CreateUser submits a contributor application.
func (s *Session) CreateUser(ctx context.Context, req SignupRequest) error {
	return s.client.CreateUser(ctx, req)
}

// GetUserProfile loads the current user's account.
func (s *Session) GetUserProfile(ctx context.Context) (*Profile, error) {
	tok, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.GetUserProfile(ctx, tok)
}

// UpdateUserProfile changes the current user's account and refreshes the
// stored claims.
func (s *Session) UpdateUserProfile(ctx context.Context, upd ProfileUpdate) (*Profile, error) {
	creds, err := s.store.LoadCredentials(ctx, s.clientID)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if creds == nil || creds.Token == "" {
		return nil, ErrNotAuthenticated
	}
	p, err := s.client.UpdateUserProfile(ctx, creds.Token, upd)
	if err != nil {
		return nil, err
	}
	creds.Claims.FirstName = p.FirstName
	creds.Claims.LastName = p.LastName
	creds.Claims.Email = p.Email
	creds.Claims.Phone = p.Phone
	if err := s.store.SaveCredentials(ctx, s.clientID, creds); err != nil {
		s.logger.Warn("refresh stored claims failed", "error", err)
	}
	return p, nil
}

// DeleteUserAccount removes the current user's account.
func (s *Session) DeleteUserAccount(ctx context.Context) error {
	tok, err := s.token(ctx)
	if err != nil {
		return err
	}
	return s.client.DeleteUserAccount(ctx, tok)
}

// ValidateResetToken checks a password-reset token.
func (s *Session) ValidateResetToken(ctx context.Context, resetToken string) error {
	return s.client.ValidateResetToken(ctx, resetToken)
}

// ConfirmPasswordReset sets a new password using a reset token.
func (s *Session) ConfirmPasswordReset(ctx context.Context, resetToken, password string) error {
	return s.client.ConfirmPasswordReset(ctx, resetToken, password)
}

// ConfirmEmail consumes an email-confirmation token.
func (s *Session) ConfirmEmail(ctx context.Context, emailToken string) error {
	return s.client.ConfirmEmail(ctx, emailToken)
}

// GetPendingUsers lists contributor accounts awaiting approval.
func (s *Session) GetPendingUsers(ctx context.Context) ([]PendingUser, error) {
	tok, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.GetPendingUsers(ctx, tok)
}

// GetPendingForms lists pending forms of one category.
func (s *Session) GetPendingForms(ctx context.Context, cat Category) ([]PendingForm, error) {
	tok, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	switch cat {
	case CategoryMonumentsLieux:
		return s.client.GetPendingMonumentsLieux(ctx, tok)
	case CategoryMobiliersImages:
		return s.client.GetPendingMobiliersImages(ctx, tok)
	case CategoryPersonnesMorales:
		return s.client.GetPendingPersonnesMorales(ctx, tok)
	case CategoryPersonnesPhysiques:
		return s.client.GetPendingPersonnesPhysiques(ctx, tok)
	}
	return nil, fmt.Errorf("unknown category %q", cat)
}

// GetPendingForm loads one pending form.
func (s *Session) GetPendingForm(ctx context.Context, cat Category, id string) (*PendingForm, error) {
	tok, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.GetPendingForm(ctx, tok, cat, id)
}

// ModerateUser approves or rejects a pending contributor.
func (s *Session) ModerateUser(ctx context.Context, userID string, d Decision) error {
	tok, err := s.token(ctx)
	if err != nil {
		return err
	}
	return s.client.ModerateUser(ctx, tok, userID, d)
}

// ModerateForm approves or rejects a pending form.
func (s *Session) ModerateForm(ctx context.Context, cat Category, id string, d Decision) error {
	tok, err := s.token(ctx)
	if err != nil {
		return err
	}
	return s.client.ModerateForm(ctx, tok, cat, id, d)
}

// Search queries the public catalogue.
func (s *Session) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	return s.client.Search(ctx, q)
}

// GetRecord loads one public record.
func (s *Session) GetRecord(ctx context.Context, cat Category, id string) (*Record, error) {
	return s.client.GetRecord(ctx, cat, id)
}

// Submit proposes a new record.
func (s *Session) Submit(ctx context.Context, contrib Contribution) error {
	tok, err := s.token(ctx)
	if err != nil {
		return err
	}
	return s.client.Submit(ctx, tok, contrib)
}
