// Package listing builds and executes feed queries over the media table.
// Every listing shares one visibility predicate derived from the requesting
// principal; scopes narrow the feed on top of it and can never widen it.
package listing

import (
	"context"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
	"github.com/mediacms-io/mediacms-go/pkg/grants"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
	"github.com/mediacms-io/mediacms-go/pkg/policy"
	"github.com/mediacms-io/mediacms-go/pkg/query"
)

// Scope selects which feed a listing request targets.
type Scope string

const (
	ScopePublic       Scope = "public"
	ScopeAuthor       Scope = "author"
	ScopeSharedWithMe Scope = "shared_with_me"
	ScopeSharedByMe   Scope = "shared_by_me"
	ScopeFeatured     Scope = "featured"
	ScopeRecommended  Scope = "recommended"
)

// ParseScope validates a scope value from request input.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopePublic, ScopeAuthor, ScopeSharedWithMe, ScopeSharedByMe,
		ScopeFeatured, ScopeRecommended:
		return Scope(s), nil
	}
	return "", apperr.InvalidArgumentf("invalid listing scope %q", s)
}

// GrantLister resolves capped id lists for grant-based clauses.
type GrantLister interface {
	ObjectIDsSharedWith(ctx context.Context, granteeID int64, kind grants.ObjectKind, limit int) ([]int64, error)
	ObjectIDsSharedBy(ctx context.Context, granterID int64, kind grants.ObjectKind, limit int) ([]int64, error)
}

// CategoryExpander resolves capped media id lists for category membership
// clauses.
type CategoryExpander interface {
	MediaIDsInCategories(ctx context.Context, categoryIDs []int64, limit int) ([]int64, error)
}

// Builder assembles the predicate tree for a listing request. Grant and
// category clauses are pre-resolved to id lists, capped by the configured
// fan-out bound, so the final query stays a single-table scan.
type Builder struct {
	cfg        policy.Configuration
	grants     GrantLister
	categories CategoryExpander
}

// NewBuilder creates a listing builder.
func NewBuilder(cfg policy.Configuration, g GrantLister, c CategoryExpander) *Builder {
	return &Builder{cfg: cfg, grants: g, categories: c}
}

// Visibility returns the predicate restricting rows to media the principal
// may view. A nil predicate means no restriction (elevated roles).
func (b *Builder) Visibility(ctx context.Context, p *identity.Principal) (query.Predicate, error) {
	if p.HasElevatedRole() {
		return nil, nil
	}

	listable := query.Leaf{Column: "listable", Op: query.OpEq, Value: true}
	if p.IsAnonymous() {
		return listable, nil
	}

	userID := p.UserID()
	branches := []query.Predicate{
		listable,
		query.Leaf{Column: "owner_id", Op: query.OpEq, Value: userID},
	}

	sharedIDs, err := b.grants.ObjectIDsSharedWith(ctx, userID, grants.KindMedia, b.cfg.SharedFanoutCap)
	if err != nil {
		return nil, err
	}
	if len(sharedIDs) > 0 {
		branches = append(branches, query.Leaf{Column: "id", Op: query.OpIn, Value: sharedIDs})
	}

	if b.cfg.RBACEnabled && len(p.Categories) > 0 {
		categoryIDs, err := b.categories.MediaIDsInCategories(ctx, p.Categories, b.cfg.SharedFanoutCap)
		if err != nil {
			return nil, err
		}
		if len(categoryIDs) > 0 {
			branches = append(branches, query.Leaf{Column: "id", Op: query.OpIn, Value: categoryIDs})
		}
	}

	return query.Dedupe(query.NewOr(branches...)), nil
}

// scopePredicate narrows the feed for a scope. Scopes that need a signed-in
// principal compile to FALSE for anonymous requests rather than erroring,
// so those feeds are simply empty.
func (b *Builder) scopePredicate(ctx context.Context, p *identity.Principal, req Request) (query.Predicate, error) {
	switch req.Scope {
	case ScopePublic, "":
		return query.Leaf{Column: "listable", Op: query.OpEq, Value: true}, nil
	case ScopeAuthor:
		if req.AuthorID == 0 {
			return nil, apperr.InvalidArgumentf("author scope requires an author id")
		}
		return query.Leaf{Column: "owner_id", Op: query.OpEq, Value: req.AuthorID}, nil
	case ScopeFeatured:
		return query.Leaf{Column: "featured", Op: query.OpEq, Value: true}, nil
	case ScopeRecommended:
		return query.Leaf{Column: "listable", Op: query.OpEq, Value: true}, nil
	case ScopeSharedWithMe:
		if p.IsAnonymous() {
			return query.Or{}, nil
		}
		ids, err := b.grants.ObjectIDsSharedWith(ctx, p.UserID(), grants.KindMedia, b.cfg.SharedFanoutCap)
		if err != nil {
			return nil, err
		}
		return query.Leaf{Column: "id", Op: query.OpIn, Value: ids}, nil
	case ScopeSharedByMe:
		if p.IsAnonymous() {
			return query.Or{}, nil
		}
		ids, err := b.grants.ObjectIDsSharedBy(ctx, p.UserID(), grants.KindMedia, b.cfg.SharedFanoutCap)
		if err != nil {
			return nil, err
		}
		return query.Leaf{Column: "id", Op: query.OpIn, Value: ids}, nil
	default:
		return nil, apperr.InvalidArgumentf("invalid listing scope %q", req.Scope)
	}
}

// Build combines the visibility predicate with the scope predicate and
// returns the ORDER BY clause for the request.
func (b *Builder) Build(ctx context.Context, p *identity.Principal, req Request) (query.Predicate, string, error) {
	visibility, err := b.Visibility(ctx, p)
	if err != nil {
		return nil, "", err
	}

	scope, err := b.scopePredicate(ctx, p, req)
	if err != nil {
		return nil, "", err
	}

	orderBy := "add_date DESC, id DESC"
	if req.Scope == ScopeRecommended {
		orderBy = "views DESC, add_date DESC, id DESC"
	}

	if visibility == nil {
		return query.Dedupe(scope), orderBy, nil
	}
	return query.Dedupe(query.NewAnd(visibility, scope)), orderBy, nil
}
