package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
	"github.com/mediacms-io/mediacms-go/pkg/grants"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
	"github.com/mediacms-io/mediacms-go/pkg/listing"
	"github.com/mediacms-io/mediacms-go/pkg/policy"
	"github.com/mediacms-io/mediacms-go/pkg/query"
)

type fakeFacetResolver struct {
	categoryIDs []int64
	taggedIDs   []int64
}

func (f *fakeFacetResolver) MediaIDsInCategoriesMatching(_ context.Context, _ string, _ int) ([]int64, error) {
	return f.categoryIDs, nil
}

func (f *fakeFacetResolver) MediaIDsTagged(_ context.Context, _ string, _ int) ([]int64, error) {
	return f.taggedIDs, nil
}

type noGrants struct{}

func (noGrants) ObjectIDsSharedWith(_ context.Context, _ int64, _ grants.ObjectKind, _ int) ([]int64, error) {
	return nil, nil
}

func (noGrants) ObjectIDsSharedBy(_ context.Context, _ int64, _ grants.ObjectKind, _ int) ([]int64, error) {
	return nil, nil
}

type noCategories struct{}

func (noCategories) MediaIDsInCategories(_ context.Context, _ []int64, _ int) ([]int64, error) {
	return nil, nil
}

func newTestBuilder(resolver *fakeFacetResolver) *Builder {
	cfg := policy.DefaultConfiguration()
	vis := listing.NewBuilder(cfg, noGrants{}, noCategories{})
	b := NewBuilder(cfg, NewTokenizer(NewStopWords(DefaultStopWords)), resolver, vis)
	b.now = func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return b
}

func TestBuildTermsAreAndedPrefixClauses(t *testing.T) {
	b := newTestBuilder(&fakeFacetResolver{})

	pred, err := b.Build(context.Background(), identity.Anonymous(), "funny cats", Facets{})
	require.NoError(t, err)
	assert.Equal(t,
		"and(search_vector tsprefix funn, search_vector tsprefix cats, listable eq true)",
		query.Fingerprint(pred))
}

func TestBuildFacetsOnly(t *testing.T) {
	b := newTestBuilder(&fakeFacetResolver{taggedIDs: []int64{5, 6}})

	pred, err := b.Build(context.Background(), identity.Anonymous(), "", Facets{
		Tag:        "wildlife",
		MediaType:  "video",
		AuthorID:   3,
		DateBucket: BucketThisWeek,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"and(id in [5 6], media_type eq video, owner_id eq 3, "+
			"add_date gte 2024-06-08 12:00:00 +0000 UTC, listable eq true)",
		query.Fingerprint(pred))
}

func TestBuildCategoryFacetMatchingNothingIsFalse(t *testing.T) {
	b := newTestBuilder(&fakeFacetResolver{})

	pred, err := b.Build(context.Background(), identity.Anonymous(), "", Facets{Category: "nope"})
	require.NoError(t, err)

	c := query.NewCompiler()
	sql, err := c.Compile(pred)
	require.NoError(t, err)
	assert.Contains(t, sql, "FALSE")
}

func TestBuildElevatedNoTermsNoFacetsIsUnrestricted(t *testing.T) {
	b := newTestBuilder(&fakeFacetResolver{})
	id := int64(1)

	pred, err := b.Build(context.Background(),
		&identity.Principal{ID: &id, IsSuperuser: true}, "the of and", Facets{})
	require.NoError(t, err)
	assert.Nil(t, pred)
}

func TestSortOrderBy(t *testing.T) {
	tests := []struct {
		sort Sort
		want string
	}{
		{Sort{}, "add_date DESC, id DESC"},
		{Sort{Field: "views"}, "views DESC, id DESC"},
		{Sort{Field: "title", Ascending: true}, "title ASC, id DESC"},
		{Sort{Field: "likes", Ascending: true}, "likes ASC, id DESC"},
		{Sort{Field: "owner_id"}, "add_date DESC, id DESC"},
		{Sort{Field: "add_date; DROP TABLE media"}, "add_date DESC, id DESC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.sort.OrderBy(), "field %q", tt.sort.Field)
	}
}

func TestParseDateBucket(t *testing.T) {
	b, err := ParseDateBucket("this_month")
	require.NoError(t, err)
	assert.Equal(t, BucketThisMonth, b)

	b, err = ParseDateBucket("")
	require.NoError(t, err)
	assert.Equal(t, DateBucket(""), b)

	_, err = ParseDateBucket("fortnight")
	assert.True(t, apperr.IsInvalidArgument(err))
}
