package search

import (
	"context"
	"fmt"
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/identity"
	"github.com/mediacms-io/mediacms-go/pkg/listing"
	"github.com/mediacms-io/mediacms-go/pkg/policy"
	"github.com/mediacms-io/mediacms-go/pkg/query"
)

// Sort selects the result ordering. Fields outside the whitelist fall back
// to add_date descending rather than erroring.
type Sort struct {
	Field     string
	Ascending bool
}

var sortFields = map[string]bool{
	"title":     true,
	"add_date":  true,
	"edit_date": true,
	"views":     true,
	"likes":     true,
}

// OrderBy renders the sort as a SQL ORDER BY clause over whitelisted
// columns only.
func (s Sort) OrderBy() string {
	field := s.Field
	direction := "DESC"
	if !sortFields[field] {
		return "add_date DESC, id DESC"
	}
	if s.Ascending {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s, id DESC", field, direction)
}

// FacetResolver expands category and tag facets into capped media id lists.
type FacetResolver interface {
	MediaIDsInCategoriesMatching(ctx context.Context, titleFragment string, limit int) ([]int64, error)
	MediaIDsTagged(ctx context.Context, tag string, limit int) ([]int64, error)
}

// Builder assembles search predicates: text terms as prefix clauses ANDed
// with facet clauses and the caller's visibility predicate.
type Builder struct {
	cfg        policy.Configuration
	tokenizer  *Tokenizer
	facets     FacetResolver
	visibility *listing.Builder
	now        func() time.Time
}

// NewBuilder creates a search builder sharing the listing builder's
// visibility predicate logic.
func NewBuilder(cfg policy.Configuration, tok *Tokenizer, facets FacetResolver, visibility *listing.Builder) *Builder {
	return &Builder{
		cfg:        cfg,
		tokenizer:  tok,
		facets:     facets,
		visibility: visibility,
		now:        time.Now,
	}
}

// Build returns the combined predicate for a query string and facet set,
// restricted to what the principal may view. A nil predicate means the
// whole table is in scope (elevated principal, no terms, no facets).
func (b *Builder) Build(ctx context.Context, p *identity.Principal, rawQuery string, facets Facets) (query.Predicate, error) {
	var parts []query.Predicate

	for _, term := range b.tokenizer.Tokenize(rawQuery) {
		parts = append(parts, query.Leaf{Column: "search_vector", Op: query.OpTsPrefix, Value: term})
	}

	facetPreds, err := b.facetPredicates(ctx, facets)
	if err != nil {
		return nil, err
	}
	parts = append(parts, facetPreds...)

	vis, err := b.visibility.Visibility(ctx, p)
	if err != nil {
		return nil, err
	}
	if vis != nil {
		parts = append(parts, vis)
	}

	if len(parts) == 0 {
		return nil, nil
	}
	return query.Dedupe(query.NewAnd(parts...)), nil
}

// facetPredicates turns each set facet into a clause. Facets that match
// nothing compile to FALSE, degrading to an empty result set.
func (b *Builder) facetPredicates(ctx context.Context, f Facets) ([]query.Predicate, error) {
	var parts []query.Predicate

	if f.Category != "" {
		ids, err := b.facets.MediaIDsInCategoriesMatching(ctx, f.Category, b.cfg.SharedFanoutCap)
		if err != nil {
			return nil, err
		}
		parts = append(parts, query.Leaf{Column: "id", Op: query.OpIn, Value: ids})
	}
	if f.Tag != "" {
		ids, err := b.facets.MediaIDsTagged(ctx, f.Tag, b.cfg.SharedFanoutCap)
		if err != nil {
			return nil, err
		}
		parts = append(parts, query.Leaf{Column: "id", Op: query.OpIn, Value: ids})
	}
	if f.MediaType != "" {
		parts = append(parts, query.Leaf{Column: "media_type", Op: query.OpEq, Value: f.MediaType})
	}
	if f.AuthorID != 0 {
		parts = append(parts, query.Leaf{Column: "owner_id", Op: query.OpEq, Value: f.AuthorID})
	}
	if f.DateBucket != "" {
		parts = append(parts, query.Leaf{
			Column: "add_date",
			Op:     query.OpGte,
			Value:  f.DateBucket.Since(b.now().UTC()),
		})
	}

	return parts, nil
}
