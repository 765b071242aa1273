package identity

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
)

// Resolver derives a principal's role flags and category memberships from
// identity data. Implementations must be safe for concurrent use.
type Resolver interface {
	// Resolve loads the principal for the given user id. It returns
	// apperr.ErrNotFound when no such user exists.
	Resolve(ctx context.Context, userID int64) (*Principal, error)

	// Invalidate drops any cached principal for the user.
	Invalidate(ctx context.Context, userID int64) error
}

// RoleResolver resolves principals from the users and category membership
// tables. Duplicate concurrent lookups for the same user are collapsed via
// singleflight; results may additionally be cached in Redis (see Cache).
type RoleResolver struct {
	db          *sql.DB
	groups      *GroupIndex
	cache       *Cache // nil disables caching
	rbacEnabled bool
	group       singleflight.Group
}

// NewRoleResolver creates a resolver. groups may be nil when RBAC mode is
// disabled; cache may be nil to disable cross-request caching.
func NewRoleResolver(db *sql.DB, groups *GroupIndex, cache *Cache, rbacEnabled bool) *RoleResolver {
	return &RoleResolver{
		db:          db,
		groups:      groups,
		cache:       cache,
		rbacEnabled: rbacEnabled && groups != nil,
	}
}

// Resolve loads the principal for the given user id.
func (r *RoleResolver) Resolve(ctx context.Context, userID int64) (*Principal, error) {
	if r.cache != nil {
		if p, ok, err := r.cache.Get(ctx, userID); err == nil && ok {
			return p, nil
		}
	}

	v, err, _ := r.group.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		return r.load(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	p := v.(*Principal)

	if r.cache != nil {
		// Best-effort; a cache write failure never fails the request.
		_ = r.cache.Set(ctx, userID, p)
	}
	return p, nil
}

// Invalidate drops the cached principal for the user.
func (r *RoleResolver) Invalidate(ctx context.Context, userID int64) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, userID)
}

func (r *RoleResolver) load(ctx context.Context, userID int64) (*Principal, error) {
	query := `
		SELECT id, is_superuser, is_editor, is_manager, is_contributor
		FROM users
		WHERE id = $1
	`

	var p Principal
	var id int64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&id,
		&p.IsSuperuser,
		&p.IsEditor,
		&p.IsManager,
		&p.IsContributor,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("user %d", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	p.ID = &id

	if r.rbacEnabled {
		categories, err := r.groups.CategoriesForMember(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load category memberships: %w", err)
		}
		p.Categories = categories
	}

	return &p, nil
}
