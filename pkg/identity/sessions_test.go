package identity

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
)

func setupSessions(t *testing.T) *SessionStore {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP
		)
	`)
	require.NoError(t, err)
	return NewSessionStore(db)
}

func TestSessionResolvesUser(t *testing.T) {
	s := setupSessions(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "tok", 42, time.Hour))

	uid, err := s.UserID(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
}

func TestSessionUnknownToken(t *testing.T) {
	s := setupSessions(t)

	_, err := s.UserID(context.Background(), "no-such-token")
	assert.True(t, apperr.IsNotFound(err))
}

func TestSessionNegativeTTLIsAlreadyExpired(t *testing.T) {
	s := setupSessions(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "stale", 42, -time.Hour))

	_, err := s.UserID(ctx, "stale")
	assert.True(t, apperr.IsNotFound(err))
}

func TestSessionZeroTTLNeverExpires(t *testing.T) {
	s := setupSessions(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "forever", 42, 0))

	uid, err := s.UserID(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
}

func TestSessionDeleteIsIdempotent(t *testing.T) {
	s := setupSessions(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "tok", 42, time.Hour))
	require.NoError(t, s.Delete(ctx, "tok"))
	require.NoError(t, s.Delete(ctx, "tok"))

	_, err := s.UserID(ctx, "tok")
	assert.True(t, apperr.IsNotFound(err))
}
