package grants

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
)

// Store handles permission grant persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a grant store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create persists a grant. An existing grant for the same (object, grantee)
// pair is upgraded/downgraded to the new level rather than duplicated.
func (s *Store) Create(ctx context.Context, g *Grant) error {
	if _, err := ParseObjectKind(string(g.Kind)); err != nil {
		return err
	}
	if _, err := ParseLevel(string(g.Level)); err != nil {
		return err
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO permission_grants (object_id, object_kind, grantee_id, granted_by, level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (object_id, object_kind, grantee_id)
		DO UPDATE SET level = EXCLUDED.level, granted_by = EXCLUDED.granted_by
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		g.ObjectID, g.Kind, g.GranteeID, g.GrantedBy, g.Level, now,
	).Scan(&g.ID)
	if err != nil {
		return fmt.Errorf("failed to create grant: %w", err)
	}

	g.CreatedAt = now
	return nil
}

// Revoke removes a grant by id.
func (s *Store) Revoke(ctx context.Context, grantID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM permission_grants WHERE id = $1`, grantID)
	if err != nil {
		return fmt.Errorf("failed to revoke grant %d: %w", grantID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFoundf("grant %d", grantID)
	}
	return nil
}

// HasGrant reports whether a grant at or above minLevel exists for the
// grantee on the object.
func (s *Store) HasGrant(ctx context.Context, objectID int64, kind ObjectKind, granteeID int64, minLevel Level) (bool, error) {
	query := `
		SELECT level
		FROM permission_grants
		WHERE object_id = $1 AND object_kind = $2 AND grantee_id = $3
	`
	var level Level
	err := s.db.QueryRowContext(ctx, query, objectID, kind, granteeID).Scan(&level)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check grant: %w", err)
	}
	return level.Satisfies(minLevel), nil
}

// ForObject returns all grants attached to an object.
func (s *Store) ForObject(ctx context.Context, objectID int64, kind ObjectKind) ([]Grant, error) {
	query := `
		SELECT id, object_id, object_kind, grantee_id, granted_by, level, created_at
		FROM permission_grants
		WHERE object_id = $1 AND object_kind = $2
		ORDER BY created_at ASC
	`
	return s.queryGrants(ctx, query, objectID, kind)
}

// ForGrantee returns all grants held by a principal for the given kind.
func (s *Store) ForGrantee(ctx context.Context, granteeID int64, kind ObjectKind) ([]Grant, error) {
	query := `
		SELECT id, object_id, object_kind, grantee_id, granted_by, level, created_at
		FROM permission_grants
		WHERE grantee_id = $1 AND object_kind = $2
		ORDER BY created_at ASC
	`
	return s.queryGrants(ctx, query, granteeID, kind)
}

// ObjectIDsSharedWith returns ids of objects of the given kind shared with
// the grantee, newest first, capped at limit to bound fan-out.
func (s *Store) ObjectIDsSharedWith(ctx context.Context, granteeID int64, kind ObjectKind, limit int) ([]int64, error) {
	query := `
		SELECT object_id
		FROM permission_grants
		WHERE grantee_id = $1 AND object_kind = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	return s.queryIDs(ctx, query, granteeID, kind, limit)
}

// ObjectIDsSharedBy returns ids of objects whose grants were issued by the
// given principal, newest first, capped at limit.
func (s *Store) ObjectIDsSharedBy(ctx context.Context, granterID int64, kind ObjectKind, limit int) ([]int64, error) {
	query := `
		SELECT DISTINCT object_id
		FROM permission_grants
		WHERE granted_by = $1 AND object_kind = $2
		LIMIT $3
	`
	return s.queryIDs(ctx, query, granterID, kind, limit)
}

// DeleteForObject removes every grant attached to an object. Called from
// the object delete cascade.
func (s *Store) DeleteForObject(ctx context.Context, objectID int64, kind ObjectKind) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM permission_grants WHERE object_id = $1 AND object_kind = $2`, objectID, kind)
	if err != nil {
		return fmt.Errorf("failed to delete grants for %s %d: %w", kind, objectID, err)
	}
	return nil
}

func (s *Store) queryGrants(ctx context.Context, query string, args ...interface{}) ([]Grant, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	var out []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.ID, &g.ObjectID, &g.Kind, &g.GranteeID, &g.GrantedBy, &g.Level, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grant object ids: %w", err)
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
