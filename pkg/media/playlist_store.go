package media

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
)

// ShareRole is the role a shared principal holds on a playlist.
type ShareRole string

const (
	ShareReader ShareRole = "reader"
	ShareEditor ShareRole = "editor"
)

// PlaylistStore handles playlist persistence: the ordered media sequence
// and the shared reader/editor sets.
type PlaylistStore struct {
	db *sql.DB
}

// NewPlaylistStore creates a playlist store.
func NewPlaylistStore(db *sql.DB) *PlaylistStore {
	return &PlaylistStore{db: db}
}

// Get retrieves a playlist with its shared principal sets.
func (s *PlaylistStore) Get(ctx context.Context, id int64) (*Playlist, error) {
	query := `SELECT id, owner_id, title, description, add_date FROM playlists WHERE id = $1`

	var p Playlist
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.AddDate)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("playlist %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, role FROM playlist_shares WHERE playlist_id = $1 ORDER BY user_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var role ShareRole
		if err := rows.Scan(&userID, &role); err != nil {
			return nil, err
		}
		switch role {
		case ShareReader:
			p.SharedReaderIDs = append(p.SharedReaderIDs, userID)
		case ShareEditor:
			p.SharedEditorIDs = append(p.SharedEditorIDs, userID)
		}
	}
	return &p, rows.Err()
}

// Insert persists a new playlist.
func (s *PlaylistStore) Insert(ctx context.Context, p *Playlist) error {
	if p.AddDate.IsZero() {
		p.AddDate = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO playlists (owner_id, title, description, add_date) VALUES ($1, $2, $3, $4) RETURNING id`,
		p.OwnerID, p.Title, p.Description, p.AddDate).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}
	return nil
}

// Delete removes a playlist with its entries, shares and grants.
func (s *PlaylistStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM playlist_media WHERE playlist_id = $1`,
		`DELETE FROM playlist_shares WHERE playlist_id = $1`,
		`DELETE FROM permission_grants WHERE object_id = $1 AND object_kind = 'playlist'`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to cascade delete for playlist %d: %w", id, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFoundf("playlist %d", id)
	}

	return tx.Commit()
}

// Count returns the number of media entries in the playlist.
func (s *PlaylistStore) Count(ctx context.Context, playlistID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM playlist_media WHERE playlist_id = $1`, playlistID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count playlist entries: %w", err)
	}
	return count, nil
}

// AddMedia appends a media reference at the next position. It returns
// apperr.ErrCapacityExceeded once the playlist holds maxItems entries; a
// media id already present is a no-op.
func (s *PlaylistStore) AddMedia(ctx context.Context, playlistID, mediaID int64, maxItems int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin add: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM playlist_media WHERE playlist_id = $1`, playlistID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count playlist entries: %w", err)
	}
	if count >= maxItems {
		return apperr.CapacityExceededf("playlist %d is at capacity (%d)", playlistID, maxItems)
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM playlist_media WHERE playlist_id = $1 AND media_id = $2`,
		playlistID, mediaID).Scan(&exists)
	if err == nil {
		return tx.Commit()
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check playlist entry: %w", err)
	}

	// Next position resolves monotonically; gaps left by removals are fine.
	var maxPos sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(position) FROM playlist_media WHERE playlist_id = $1`, playlistID).Scan(&maxPos); err != nil {
		return fmt.Errorf("failed to resolve next position: %w", err)
	}
	next := 1
	if maxPos.Valid {
		next = int(maxPos.Int64) + 1
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO playlist_media (playlist_id, media_id, position, added_at) VALUES ($1, $2, $3, $4)`,
		playlistID, mediaID, next, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to add media %d to playlist %d: %w", mediaID, playlistID, err)
	}

	return tx.Commit()
}

// RemoveMedia removes a media reference from the playlist. Removing an
// absent entry is a no-op.
func (s *PlaylistStore) RemoveMedia(ctx context.Context, playlistID, mediaID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM playlist_media WHERE playlist_id = $1 AND media_id = $2`, playlistID, mediaID)
	if err != nil {
		return fmt.Errorf("failed to remove media %d from playlist %d: %w", mediaID, playlistID, err)
	}
	return nil
}

// Entries returns the playlist's media references in position order.
func (s *PlaylistStore) Entries(ctx context.Context, playlistID int64) ([]PlaylistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT playlist_id, media_id, position, added_at
		FROM playlist_media
		WHERE playlist_id = $1
		ORDER BY position ASC
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist entries: %w", err)
	}
	defer rows.Close()

	var entries []PlaylistEntry
	for rows.Next() {
		var e PlaylistEntry
		if err := rows.Scan(&e.PlaylistID, &e.MediaID, &e.Position, &e.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Share adds a principal to the playlist's shared reader or editor set.
func (s *PlaylistStore) Share(ctx context.Context, playlistID, userID int64, role ShareRole) error {
	if role != ShareReader && role != ShareEditor {
		return apperr.InvalidArgumentf("invalid share role %q", role)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO playlist_shares (playlist_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (playlist_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`, playlistID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to share playlist %d: %w", playlistID, err)
	}
	return nil
}

// Unshare removes a principal from the playlist's shared sets.
func (s *PlaylistStore) Unshare(ctx context.Context, playlistID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM playlist_shares WHERE playlist_id = $1 AND user_id = $2`, playlistID, userID)
	if err != nil {
		return fmt.Errorf("failed to unshare playlist %d: %w", playlistID, err)
	}
	return nil
}
