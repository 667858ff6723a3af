package catalogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to the catalogue REST API. It holds no per-user state:
// authenticated calls take the access token explicitly. See Session for the
// per-browser binding that stores the token.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
}

// NewClient creates a new catalogue API client with the given configuration.
func NewClient(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
		logger: logger.With("component", "catalogue-client"),
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// errorBody is the API's error payload.
type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

// do executes one request. It is never retried: each failure is returned
// once, classified by status code.
func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) error {
	logger := c.logger.With("op", op, "method", method, "path", path)

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshaling request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: creating HTTP request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	logger.Debug("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug("request failed", "error", err)
		return WrapError(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Op: op, StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(respBody, &eb) == nil {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Message
			if apiErr.Message == "" {
				apiErr.Message = eb.Error
			}
			apiErr.Fields = eb.Fields
		} else if len(respBody) > 0 {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		logger.Debug("API error", "status", resp.StatusCode, "code", apiErr.Code)
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("unmarshaling response: %w", err)}
	}
	logger.Debug("request successful", "status", resp.StatusCode)
	return nil
}

// Login exchanges credentials for an access token and identity claims.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var res LoginResult
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "login", http.MethodPost, "/auth/login", "", in, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, &Error{Op: "login", StatusCode: http.StatusOK, Err: ErrInvalidToken}
	}
	return &res, nil
}

// CreateUser submits a contributor application.
func (c *Client) CreateUser(ctx context.Context, req SignupRequest) error {
	return c.do(ctx, "create user", http.MethodPost, "/users", "", req, nil)
}

// GetUserProfile loads the account of the token's owner.
func (c *Client) GetUserProfile(ctx context.Context, token string) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, "get profile", http.MethodGet, "/users/me", token, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateUserProfile changes the account of the token's owner.
func (c *Client) UpdateUserProfile(ctx context.Context, token string, upd ProfileUpdate) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, "update profile", http.MethodPut, "/users/me", token, upd, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteUserAccount removes the account of the token's owner.
func (c *Client) DeleteUserAccount(ctx context.Context, token string) error {
	return c.do(ctx, "delete account", http.MethodDelete, "/users/me", token, nil, nil)
}

// ValidateResetToken checks a password-reset token before asking for a new
// password.
func (c *Client) ValidateResetToken(ctx context.Context, resetToken string) error {
	return c.do(ctx, "validate reset token", http.MethodGet, "/auth/reset/"+url.PathEscape(resetToken), "", nil, nil)
}

// ConfirmPasswordReset sets a new password using a reset token.
func (c *Client) ConfirmPasswordReset(ctx context.Context, resetToken, password string) error {
	in := map[string]string{"password": password}
	return c.do(ctx, "confirm password reset", http.MethodPost, "/auth/reset/"+url.PathEscape(resetToken), "", in, nil)
}

// ConfirmEmail consumes an email-confirmation token.
func (c *Client) ConfirmEmail(ctx context.Context, emailToken string) error {
	return c.do(ctx, "confirm email", http.MethodPost, "/auth/email/"+url.PathEscape(emailToken)+"/validate", "", nil, nil)
}

// GetPendingUsers lists contributor accounts awaiting approval (admin).
func (c *Client) GetPendingUsers(ctx context.Context, token string) ([]PendingUser, error) {
	var users []PendingUser
	if err := c.do(ctx, "pending users", http.MethodGet, "/admin/users/pending", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetPendingForms lists submitted forms of one category awaiting moderation
// (admin).
func (c *Client) GetPendingForms(ctx context.Context, token string, cat Category) ([]PendingForm, error) {
	var forms []PendingForm
	op := "pending " + string(cat)
	if err := c.do(ctx, op, http.MethodGet, "/admin/forms/pending/"+string(cat), token, nil, &forms); err != nil {
		return nil, err
	}
	for i := range forms {
		if forms[i].Category == "" {
			forms[i].Category = cat
		}
	}
	return forms, nil
}

// GetPendingMonumentsLieux lists pending monument/place forms.
func (c *Client) GetPendingMonumentsLieux(ctx context.Context, token string) ([]PendingForm, error) {
	return c.GetPendingForms(ctx, token, CategoryMonumentsLieux)
}

// GetPendingMobiliersImages lists pending movable-object/image forms.
func (c *Client) GetPendingMobiliersImages(ctx context.Context, token string) ([]PendingForm, error) {
	return c.GetPendingForms(ctx, token, CategoryMobiliersImages)
}

// GetPendingPersonnesMorales lists pending organization forms.
func (c *Client) GetPendingPersonnesMorales(ctx context.Context, token string) ([]PendingForm, error) {
	return c.GetPendingForms(ctx, token, CategoryPersonnesMorales)
}

// GetPendingPersonnesPhysiques lists pending historical-person forms.
func (c *Client) GetPendingPersonnesPhysiques(ctx context.Context, token string) ([]PendingForm, error) {
	return c.GetPendingForms(ctx, token, CategoryPersonnesPhysiques)
}

// GetPendingForm loads one pending form for moderation (admin).
func (c *Client) GetPendingForm(ctx context.Context, token string, cat Category, id string) (*PendingForm, error) {
	var f PendingForm
	path := "/admin/forms/" + string(cat) + "/" + url.PathEscape(id)
	if err := c.do(ctx, "pending form", http.MethodGet, path, token, nil, &f); err != nil {
		return nil, err
	}
	if f.Category == "" {
		f.Category = cat
	}
	return &f, nil
}

// ModerateUser approves or rejects a pending contributor account (admin).
func (c *Client) ModerateUser(ctx context.Context, token, userID string, d Decision) error {
	path := "/admin/users/" + url.PathEscape(userID) + "/" + string(d)
	return c.do(ctx, "moderate user", http.MethodPost, path, token, nil, nil)
}

// ModerateForm approves or rejects a pending form (admin).
func (c *Client) ModerateForm(ctx context.Context, token string, cat Category, id string, d Decision) error {
	path := "/admin/forms/" + string(cat) + "/" + url.PathEscape(id) + "/" + string(d)
	return c.do(ctx, "moderate form", http.MethodPost, path, token, nil, nil)
}

// Search queries the public catalogue.
func (c *Client) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	var res SearchResult
	if err := c.do(ctx, "search", http.MethodPost, "/search", "", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetRecord loads one public catalogue record.
func (c *Client) GetRecord(ctx context.Context, cat Category, id string) (*Record, error) {
	var rec Record
	path := "/records/" + string(cat) + "/" + url.PathEscape(id)
	if err := c.do(ctx, "get record", http.MethodGet, path, "", nil, &rec); err != nil {
		return nil, err
	}
	if rec.Category == "" {
		rec.Category = cat
	}
	return &rec, nil
}

// Submit proposes a new record for moderation.
func (c *Client) Submit(ctx context.Context, token string, contrib Contribution) error {
	return c.do(ctx, "submit contribution", http.MethodPost, "/forms/"+string(contrib.Category), token, contrib, nil)
}

// Ping probes the API's health endpoint.
func (c *Client) Ping(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, "ping", http.MethodGet, "/health", "", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}
