package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
)

// SessionStore resolves bearer session tokens to user ids.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a session store.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// UserID returns the user id the token belongs to. Unknown and expired
// tokens both return apperr.ErrNotFound.
func (s *SessionStore) UserID(ctx context.Context, token string) (int64, error) {
	query := `SELECT user_id, expires_at FROM sessions WHERE token = $1`

	var userID int64
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, token).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return 0, apperr.NotFoundf("session")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load session: %w", err)
	}
	if expiresAt.Valid && expiresAt.Time.Before(time.Now().UTC()) {
		return 0, apperr.NotFoundf("session")
	}
	return userID, nil
}

// Create stores a session token for the user. A zero ttl creates a
// non-expiring session.
func (s *SessionStore) Create(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	var expiresAt interface{}
	if ttl != 0 {
		expiresAt = time.Now().UTC().Add(ttl)
	}

	query := `
		INSERT INTO sessions (token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, token, userID, time.Now().UTC(), expiresAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Delete removes a session token. Deleting an unknown token is a no-op.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
