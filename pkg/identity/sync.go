package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Syncer re-imports group-to-category membership rows from the identity
// federation tables. It is the only writer of category_memberships; the
// visibility engine treats the rows as read-only.
type Syncer struct {
	db     *sql.DB
	groups *GroupIndex
}

// NewSyncer creates a membership syncer. groups may be nil when no
// in-process index needs purging after a sync.
func NewSyncer(db *sql.DB, groups *GroupIndex) *Syncer {
	return &Syncer{db: db, groups: groups}
}

// SyncResult summarizes one membership sync run.
type SyncResult struct {
	Inserted int
	Deleted  int
	Duration time.Duration
}

// SyncMemberships rebuilds category_memberships from the federated group
// mapping (group_mappings joins an IdP group to a category;
// user_groups joins users to IdP groups). The rebuild runs in one
// transaction so readers never observe a half-synced state.
func (s *Syncer) SyncMemberships(ctx context.Context) (*SyncResult, error) {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin sync transaction: %w", err)
	}
	defer tx.Rollback()

	// Remove memberships whose backing group link disappeared.
	del, err := tx.ExecContext(ctx, `
		DELETE FROM category_memberships cm
		WHERE NOT EXISTS (
			SELECT 1
			FROM group_mappings gm
			JOIN user_groups ug ON ug.group_id = gm.group_id
			WHERE gm.category_id = cm.category_id
			  AND ug.user_id = cm.user_id
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to delete stale memberships: %w", err)
	}

	// Import new memberships, carrying the mapping's role.
	ins, err := tx.ExecContext(ctx, `
		INSERT INTO category_memberships (category_id, user_id, role, synced_at)
		SELECT gm.category_id, ug.user_id, gm.role, NOW()
		FROM group_mappings gm
		JOIN user_groups ug ON ug.group_id = gm.group_id
		ON CONFLICT (category_id, user_id)
		DO UPDATE SET role = EXCLUDED.role, synced_at = EXCLUDED.synced_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to import memberships: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sync: %w", err)
	}

	if s.groups != nil {
		s.groups.Purge()
	}

	result := &SyncResult{Duration: time.Since(start)}
	if n, err := del.RowsAffected(); err == nil {
		result.Deleted = int(n)
	}
	if n, err := ins.RowsAffected(); err == nil {
		result.Inserted = int(n)
	}
	return result, nil
}
