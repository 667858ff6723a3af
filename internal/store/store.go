// Package store persists per-browser state of the patrimoine front end:
// the access token and identity claims of each client, and its cookie
// consent.
package store

import (
	"context"
	"time"

	"github.com/me/patrimoine/pkg/catalogue"
)

// Store defines the persistence layer for browser-local state.
type Store interface {
	catalogue.CredentialStore

	// DeleteStaleCredentials removes credentials saved before cutoff.
	DeleteStaleCredentials(ctx context.Context, cutoff time.Time) (int64, error)

	// Consent
	RecordConsent(ctx context.Context, clientID string, at time.Time) error
	HasConsent(ctx context.Context, clientID string) (bool, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
}
