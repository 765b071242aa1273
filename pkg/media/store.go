package media

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
)

// int64Placeholders renders $N placeholders starting at startArg for an id
// list, returning the joined placeholder string and the argument slice.
func int64Placeholders(ids []int64, startArg int) (string, []interface{}) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", startArg+i)
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}

// Store handles media persistence. Mutations that affect the governing
// publication fields always write state, encoding_status, is_reviewed and
// listable in a single statement so no reader observes a stale listable
// value.
type Store struct {
	db *sql.DB
	sm *StateMachine
}

// NewStore creates a media store using the given state machine for every
// publication transition.
func NewStore(db *sql.DB, sm *StateMachine) *Store {
	return &Store{db: db, sm: sm}
}

const mediaColumns = `id, owner_id, title, description, media_type, state, encoding_status,
	is_reviewed, listable, enable_comments, allow_download, featured, views, likes,
	file_key, add_date, edit_date`

// SelectColumns is the projection matching ScanRow, for callers that build
// their own SELECT over the media table.
const SelectColumns = mediaColumns

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...interface{}) error
}

// ScanRow scans one media row produced by a SelectColumns projection.
func ScanRow(scanner RowScanner) (*Media, error) {
	return scanMedia(scanner)
}

// Get retrieves a media object with its category ids and tags.
func (s *Store) Get(ctx context.Context, id int64) (*Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`

	m, err := scanMedia(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("media %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media %d: %w", id, err)
	}

	if err := s.loadRelations(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetMany retrieves the subset of the requested ids that exist. Missing ids
// are silently absent from the result, matching the bulk action contract.
func (s *Store) GetMany(ctx context.Context, ids []int64) ([]*Media, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders, args := int64Placeholders(ids, 1)
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id IN (` + placeholders + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get media batch: %w", err)
	}
	defer rows.Close()

	var out []*Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Insert persists a new media object together with its categories and tags.
func (s *Store) Insert(ctx context.Context, m *Media) error {
	m.deriveListable()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO media (owner_id, title, description, media_type, state, encoding_status,
			is_reviewed, listable, enable_comments, allow_download, featured, views, likes,
			file_key, add_date, edit_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query,
		m.OwnerID, m.Title, m.Description, m.MediaType, m.State, m.EncodingStatus,
		m.Reviewed, m.Listable, m.AllowComments, m.AllowDownload, m.Featured,
		m.Views, m.Likes, m.FileKey, m.AddDate, m.EditDate,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to insert media: %w", err)
	}

	for _, categoryID := range m.CategoryIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO media_categories (media_id, category_id) VALUES ($1, $2)`,
			m.ID, categoryID); err != nil {
			return fmt.Errorf("failed to link category %d: %w", categoryID, err)
		}
	}
	for _, tag := range m.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO media_tags (media_id, tag) VALUES ($1, $2)`,
			m.ID, tag); err != nil {
			return fmt.Errorf("failed to link tag %q: %w", tag, err)
		}
	}

	return tx.Commit()
}

// ApplyTransition runs the state machine over the stored object and writes
// all governing fields plus the re-derived listable flag in one UPDATE.
// actor is nil for internal pipeline transitions.
func (s *Store) ApplyTransition(ctx context.Context, id int64, t Transition, actor *identity.Principal) (*Media, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.sm.Apply(m, t, actor); err != nil {
		return nil, err
	}

	query := `
		UPDATE media
		SET state = $1, encoding_status = $2, is_reviewed = $3, listable = $4, edit_date = $5
		WHERE id = $6
	`
	res, err := s.db.ExecContext(ctx, query,
		m.State, m.EncodingStatus, m.Reviewed, m.Listable, m.EditDate, m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update media %d state: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, apperr.NotFoundf("media %d", id)
	}

	return m, nil
}

// SetEncodingStatus records an encoding pipeline transition, re-deriving
// listable through the state machine.
func (s *Store) SetEncodingStatus(ctx context.Context, id int64, status EncodingStatus) (*Media, error) {
	return s.ApplyTransition(ctx, id, Transition{EncodingStatus: &status}, nil)
}

// SetReviewed records a review decision, re-deriving listable.
func (s *Store) SetReviewed(ctx context.Context, id int64, reviewed bool) (*Media, error) {
	return s.ApplyTransition(ctx, id, Transition{Reviewed: &reviewed}, nil)
}

// Delete removes a media object and cascades to its permission grants,
// playlist references, categories and tags in one transaction. No dangling
// references survive.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM permission_grants WHERE object_id = $1 AND object_kind = 'media'`,
		`DELETE FROM playlist_media WHERE media_id = $1`,
		`DELETE FROM media_categories WHERE media_id = $1`,
		`DELETE FROM media_tags WHERE media_id = $1`,
		`DELETE FROM media_actions WHERE media_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to cascade delete for media %d: %w", id, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFoundf("media %d", id)
	}

	return tx.Commit()
}

// SetOwner reassigns a media object to a new owner.
func (s *Store) SetOwner(ctx context.Context, id, newOwnerID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE media SET owner_id = $1, edit_date = $2 WHERE id = $3`,
		newOwnerID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to change owner of media %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFoundf("media %d", id)
	}
	return nil
}

// SetComments toggles the comment flag.
func (s *Store) SetComments(ctx context.Context, id int64, enabled bool) error {
	return s.setFlag(ctx, id, "enable_comments", enabled)
}

// SetDownload toggles the download flag.
func (s *Store) SetDownload(ctx context.Context, id int64, enabled bool) error {
	return s.setFlag(ctx, id, "allow_download", enabled)
}

func (s *Store) setFlag(ctx context.Context, id int64, column string, value bool) error {
	// column comes from a fixed internal set, never from request input.
	query := fmt.Sprintf(`UPDATE media SET %s = $1, edit_date = $2 WHERE id = $3`, column)
	res, err := s.db.ExecContext(ctx, query, value, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set %s on media %d: %w", column, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFoundf("media %d", id)
	}
	return nil
}

// Copy duplicates a media object for the given owner. The copy starts
// unreviewed and therefore not listable.
func (s *Store) Copy(ctx context.Context, id, ownerID int64) (*Media, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	dup := NewMedia(ownerID, src.Title+" (copy)", src.MediaType)
	dup.Description = src.Description
	dup.State = StatePrivate
	dup.EncodingStatus = src.EncodingStatus
	dup.AllowComments = src.AllowComments
	dup.AllowDownload = src.AllowDownload
	dup.CategoryIDs = src.CategoryIDs
	dup.Tags = src.Tags
	dup.FileKey = src.FileKey

	if err := s.Insert(ctx, dup); err != nil {
		return nil, err
	}
	return dup, nil
}

// RecordAction records a report/like/dislike/watch action. userID is nil
// for anonymous principals; like/dislike/watch adjust the rollup counters.
func (s *Store) RecordAction(ctx context.Context, mediaID int64, action string, userID *int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin action: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO media_actions (media_id, user_id, action, created_at) VALUES ($1, $2, $3, $4)`,
		mediaID, userID, action, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record %s action: %w", action, err)
	}

	var counter string
	switch action {
	case "like":
		counter = `UPDATE media SET likes = likes + 1 WHERE id = $1`
	case "dislike":
		counter = `UPDATE media SET likes = likes - 1 WHERE id = $1`
	case "watch":
		counter = `UPDATE media SET views = views + 1 WHERE id = $1`
	}
	if counter != "" {
		if _, err := tx.ExecContext(ctx, counter, mediaID); err != nil {
			return fmt.Errorf("failed to update counters: %w", err)
		}
	}

	return tx.Commit()
}

// MediaIDsInCategories returns ids of media linked to any of the given
// categories, capped at limit to bound RBAC fan-out.
func (s *Store) MediaIDsInCategories(ctx context.Context, categoryIDs []int64, limit int) ([]int64, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	placeholders, args := int64Placeholders(categoryIDs, 1)
	query := fmt.Sprintf(`
		SELECT DISTINCT media_id
		FROM media_categories
		WHERE category_id IN (%s)
		ORDER BY media_id DESC
		LIMIT $%d
	`, placeholders, len(categoryIDs)+1)
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to expand category media: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MediaIDsInCategoriesMatching returns ids of media linked to any category
// whose title contains the given fragment, capped at limit.
func (s *Store) MediaIDsInCategoriesMatching(ctx context.Context, titleFragment string, limit int) ([]int64, error) {
	query := `
		SELECT DISTINCT mc.media_id
		FROM media_categories mc
		JOIN categories c ON mc.category_id = c.id
		WHERE c.title LIKE $1
		ORDER BY mc.media_id DESC
		LIMIT $2
	`
	return s.queryIDs(ctx, query, "%"+titleFragment+"%", limit)
}

// MediaIDsTagged returns ids of media carrying the exact tag, capped at
// limit.
func (s *Store) MediaIDsTagged(ctx context.Context, tag string, limit int) ([]int64, error) {
	query := `
		SELECT DISTINCT media_id
		FROM media_tags
		WHERE tag = $1
		ORDER BY media_id DESC
		LIMIT $2
	`
	return s.queryIDs(ctx, query, tag, limit)
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query media ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) loadRelations(ctx context.Context, m *Media) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category_id FROM media_categories WHERE media_id = $1 ORDER BY category_id`, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		m.CategoryIDs = append(m.CategoryIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT tag FROM media_tags WHERE media_id = $1 ORDER BY tag`, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return err
		}
		m.Tags = append(m.Tags, tag)
	}
	return rows.Err()
}

// scanMedia scans a media row from a row or rows scanner.
func scanMedia(scanner RowScanner) (*Media, error) {
	var m Media
	err := scanner.Scan(
		&m.ID,
		&m.OwnerID,
		&m.Title,
		&m.Description,
		&m.MediaType,
		&m.State,
		&m.EncodingStatus,
		&m.Reviewed,
		&m.Listable,
		&m.AllowComments,
		&m.AllowDownload,
		&m.Featured,
		&m.Views,
		&m.Likes,
		&m.FileKey,
		&m.AddDate,
		&m.EditDate,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
