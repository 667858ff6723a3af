// Package catalogue provides a Go client for the heritage catalogue REST API:
// authentication, contributor accounts, moderation queues, search and records.
package catalogue

import "time"

// Default service settings.
const (
	DefaultBaseURL = "http://localhost:3000/api"
	DefaultTimeout = 15 * time.Second
)

// Config holds all configuration for the catalogue API client.
type Config struct {
	// BaseURL is the root of the REST API, without trailing slash.
	BaseURL string

	// Timeout is the HTTP client timeout for each request. Requests are never
	// retried; this is the only bound on a stuck call.
	Timeout time.Duration

	// UserAgent is sent with every request when non-empty.
	UserAgent string
}

// DefaultConfig returns a Config with default settings.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// WithBaseURL returns a copy of the config with the specified base URL.
func (c Config) WithBaseURL(url string) Config {
	c.BaseURL = url
	return c
}

// WithTimeout returns a copy of the config with the specified timeout.
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}
