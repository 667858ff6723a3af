package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/patrimoine/internal/logging"
	"github.com/me/patrimoine/pkg/catalogue"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logging.Component(logger, "store"),
	}, nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Credential operations ---

// LoadCredentials returns the stored credentials of a client, nil if none.
func (s *SQLiteStore) LoadCredentials(ctx context.Context, clientID string) (*catalogue.Credentials, error) {
	s.logger.Debug("sql", "op", "select", "table", "credentials", "client_id", clientID)

	var c catalogue.Credentials
	var savedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, first_name, last_name, email, phone, role, saved_at
		 FROM credentials WHERE client_id = ?`, clientID,
	).Scan(&c.Token, &c.Claims.UserID, &c.Claims.FirstName, &c.Claims.LastName,
		&c.Claims.Email, &c.Claims.Phone, &c.Claims.Role, &savedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.SavedAt = time.Unix(savedAt, 0).UTC()
	return &c, nil
}

// SaveCredentials inserts or replaces the credentials of a client.
func (s *SQLiteStore) SaveCredentials(ctx context.Context, clientID string, c *catalogue.Credentials) error {
	s.logger.Debug("sql", "op", "upsert", "table", "credentials", "client_id", clientID)

	savedAt := c.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	role := c.Claims.Role
	if role == "" {
		role = "contributor"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (client_id, token, user_id, first_name, last_name, email, phone, role, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(client_id) DO UPDATE SET
		   token = excluded.token,
		   user_id = excluded.user_id,
		   first_name = excluded.first_name,
		   last_name = excluded.last_name,
		   email = excluded.email,
		   phone = excluded.phone,
		   role = excluded.role,
		   saved_at = excluded.saved_at`,
		clientID, c.Token, c.Claims.UserID, c.Claims.FirstName, c.Claims.LastName,
		c.Claims.Email, c.Claims.Phone, role, savedAt.Unix(),
	)
	return err
}

// ClearCredentials removes the credentials of a client. Clearing a client
// with nothing stored is not an error.
func (s *SQLiteStore) ClearCredentials(ctx context.Context, clientID string) error {
	s.logger.Debug("sql", "op", "delete", "table", "credentials", "client_id", clientID)

	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE client_id = ?`, clientID)
	return err
}

// DeleteStaleCredentials removes every credential saved before cutoff.
func (s *SQLiteStore) DeleteStaleCredentials(ctx context.Context, cutoff time.Time) (int64, error) {
	s.logger.Debug("sql", "op", "delete_stale", "table", "credentials")

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE saved_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// --- Consent operations ---

// RecordConsent stores that a client accepted the data-use banner.
func (s *SQLiteStore) RecordConsent(ctx context.Context, clientID string, at time.Time) error {
	s.logger.Debug("sql", "op", "upsert", "table", "consents", "client_id", clientID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO consents (client_id, consented_at) VALUES (?, ?)
		 ON CONFLICT(client_id) DO UPDATE SET consented_at = excluded.consented_at`,
		clientID, at.Unix())
	return err
}

// HasConsent reports whether a client accepted the data-use banner.
func (s *SQLiteStore) HasConsent(ctx context.Context, clientID string) (bool, error) {
	s.logger.Debug("sql", "op", "select", "table", "consents", "client_id", clientID)

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM consents WHERE client_id = ?`, clientID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
