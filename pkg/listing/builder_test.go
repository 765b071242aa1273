package listing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
	"github.com/mediacms-io/mediacms-go/pkg/grants"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
	"github.com/mediacms-io/mediacms-go/pkg/policy"
	"github.com/mediacms-io/mediacms-go/pkg/query"
)

type fakeGrantLister struct {
	sharedWith []int64
	sharedBy   []int64
}

func (f *fakeGrantLister) ObjectIDsSharedWith(_ context.Context, _ int64, _ grants.ObjectKind, _ int) ([]int64, error) {
	return f.sharedWith, nil
}

func (f *fakeGrantLister) ObjectIDsSharedBy(_ context.Context, _ int64, _ grants.ObjectKind, _ int) ([]int64, error) {
	return f.sharedBy, nil
}

type fakeExpander struct {
	mediaIDs []int64
}

func (f *fakeExpander) MediaIDsInCategories(_ context.Context, _ []int64, _ int) ([]int64, error) {
	return f.mediaIDs, nil
}

func signedIn(id int64) *identity.Principal {
	return &identity.Principal{ID: &id}
}

func TestVisibilityAnonymous(t *testing.T) {
	b := NewBuilder(policy.DefaultConfiguration(), &fakeGrantLister{}, &fakeExpander{})

	pred, err := b.Visibility(context.Background(), identity.Anonymous())
	require.NoError(t, err)
	assert.Equal(t, "listable eq true", query.Fingerprint(pred))
}

func TestVisibilityElevatedUnrestricted(t *testing.T) {
	b := NewBuilder(policy.DefaultConfiguration(), &fakeGrantLister{}, &fakeExpander{})
	id := int64(9)

	pred, err := b.Visibility(context.Background(), &identity.Principal{ID: &id, IsEditor: true})
	require.NoError(t, err)
	assert.Nil(t, pred)
}

func TestVisibilitySignedInBranches(t *testing.T) {
	b := NewBuilder(policy.DefaultConfiguration(),
		&fakeGrantLister{sharedWith: []int64{11, 12}}, &fakeExpander{})

	pred, err := b.Visibility(context.Background(), signedIn(7))
	require.NoError(t, err)
	assert.Equal(t,
		"or(listable eq true, owner_id eq 7, id in [11 12])",
		query.Fingerprint(pred))
}

func TestVisibilityCategoryClauseGatedByFlag(t *testing.T) {
	lister := &fakeGrantLister{}
	expander := &fakeExpander{mediaIDs: []int64{21}}
	p := signedIn(7)
	p.Categories = []int64{3}

	off := NewBuilder(policy.DefaultConfiguration(), lister, expander)
	pred, err := off.Visibility(context.Background(), p)
	require.NoError(t, err)
	assert.NotContains(t, query.Fingerprint(pred), "id in [21]")

	cfg := policy.DefaultConfiguration()
	cfg.RBACEnabled = true
	on := NewBuilder(cfg, lister, expander)
	pred, err = on.Visibility(context.Background(), p)
	require.NoError(t, err)
	assert.Contains(t, query.Fingerprint(pred), "id in [21]")
}

func TestVisibilityMergesOverlappingIDSets(t *testing.T) {
	cfg := policy.DefaultConfiguration()
	cfg.RBACEnabled = true
	b := NewBuilder(cfg,
		&fakeGrantLister{sharedWith: []int64{11, 12}},
		&fakeExpander{mediaIDs: []int64{12, 13}})
	p := signedIn(7)
	p.Categories = []int64{3}

	pred, err := b.Visibility(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t,
		"or(listable eq true, owner_id eq 7, id in [11 12 13])",
		query.Fingerprint(pred))
}

func TestBuildScopeNarrowsVisibility(t *testing.T) {
	b := NewBuilder(policy.DefaultConfiguration(), &fakeGrantLister{}, &fakeExpander{})

	pred, orderBy, err := b.Build(context.Background(), signedIn(7), Request{Scope: ScopeAuthor, AuthorID: 5})
	require.NoError(t, err)
	assert.Equal(t, "add_date DESC, id DESC", orderBy)
	assert.Equal(t,
		"and(or(listable eq true, owner_id eq 7), owner_id eq 5)",
		query.Fingerprint(pred))
}

func TestBuildSharedScopesAnonymousAreEmpty(t *testing.T) {
	b := NewBuilder(policy.DefaultConfiguration(),
		&fakeGrantLister{sharedWith: []int64{1}, sharedBy: []int64{2}}, &fakeExpander{})

	for _, scope := range []Scope{ScopeSharedWithMe, ScopeSharedByMe} {
		pred, _, err := b.Build(context.Background(), identity.Anonymous(), Request{Scope: scope})
		require.NoError(t, err)

		c := query.NewCompiler()
		sql, err := c.Compile(pred)
		require.NoError(t, err)
		assert.Contains(t, sql, "FALSE", "scope %s", scope)
	}
}

func TestBuildRecommendedOrdersByViews(t *testing.T) {
	b := NewBuilder(policy.DefaultConfiguration(), &fakeGrantLister{}, &fakeExpander{})

	_, orderBy, err := b.Build(context.Background(), identity.Anonymous(), Request{Scope: ScopeRecommended})
	require.NoError(t, err)
	assert.Equal(t, "views DESC, add_date DESC, id DESC", orderBy)
}

func TestBuildInvalidScope(t *testing.T) {
	b := NewBuilder(policy.DefaultConfiguration(), &fakeGrantLister{}, &fakeExpander{})

	_, _, err := b.Build(context.Background(), identity.Anonymous(), Request{Scope: Scope("trending")})
	assert.True(t, apperr.IsInvalidArgument(err))

	_, _, err = b.Build(context.Background(), identity.Anonymous(), Request{Scope: ScopeAuthor})
	assert.True(t, apperr.IsInvalidArgument(err))
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("featured")
	require.NoError(t, err)
	assert.Equal(t, ScopeFeatured, s)

	_, err = ParseScope("everything")
	assert.True(t, apperr.IsInvalidArgument(err))
}
