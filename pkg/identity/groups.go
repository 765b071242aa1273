package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// MembershipRole is the role a user holds inside a group-restricted category.
type MembershipRole string

const (
	MembershipMember      MembershipRole = "member"
	MembershipContributor MembershipRole = "contributor"
)

// GroupIndex maps group-restricted categories to their member sets. The
// underlying rows are written only by the federation sync job
// (Syncer.SyncMemberships); the visibility engine reads them and never
// mutates membership.
type GroupIndex struct {
	db    *sql.DB
	cache *lru.LRU[int64, []int64]
}

// NewGroupIndex creates a group membership index. Lookups are cached in an
// in-process expirable LRU sized for maxEntries users; ttl bounds staleness
// after a federation sync.
func NewGroupIndex(db *sql.DB, maxEntries int, ttl time.Duration) *GroupIndex {
	if maxEntries < 16 {
		maxEntries = 16
	}
	return &GroupIndex{
		db:    db,
		cache: lru.NewLRU[int64, []int64](maxEntries, nil, ttl),
	}
}

// CategoriesForMember returns the ids of group-restricted categories the
// user belongs to, in either member or contributor role.
func (g *GroupIndex) CategoriesForMember(ctx context.Context, userID int64) ([]int64, error) {
	if ids, ok := g.cache.Get(userID); ok {
		return ids, nil
	}

	query := `
		SELECT category_id
		FROM category_memberships
		WHERE user_id = $1
		ORDER BY category_id ASC
	`

	rows, err := g.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category memberships: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, 8)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan category id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	g.cache.Add(userID, ids)
	return ids, nil
}

// ContributorsForCategory returns the user ids holding the contributor role
// in the given category.
func (g *GroupIndex) ContributorsForCategory(ctx context.Context, categoryID int64) ([]int64, error) {
	query := `
		SELECT user_id
		FROM category_memberships
		WHERE category_id = $1 AND role = $2
		ORDER BY user_id ASC
	`

	rows, err := g.db.QueryContext(ctx, query, categoryID, MembershipContributor)
	if err != nil {
		return nil, fmt.Errorf("failed to query category contributors: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Purge drops all cached membership sets. Called after a federation sync.
func (g *GroupIndex) Purge() {
	g.cache.Purge()
}
