package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileLeafOps(t *testing.T) {
	tests := []struct {
		name     string
		pred     Predicate
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "eq",
			pred:     Leaf{Column: "state", Op: OpEq, Value: "public"},
			wantSQL:  "state = $1",
			wantArgs: []interface{}{"public"},
		},
		{
			name:     "ne",
			pred:     Leaf{Column: "state", Op: OpNe, Value: "private"},
			wantSQL:  "state != $1",
			wantArgs: []interface{}{"private"},
		},
		{
			name:     "gte",
			pred:     Leaf{Column: "add_date", Op: OpGte, Value: "2024-01-01"},
			wantSQL:  "add_date >= $1",
			wantArgs: []interface{}{"2024-01-01"},
		},
		{
			name:     "prefix escapes like metacharacters",
			pred:     Leaf{Column: "title", Op: OpPrefix, Value: "100%_done"},
			wantSQL:  "title LIKE $1",
			wantArgs: []interface{}{`100\%\_done%`},
		},
		{
			name:     "contains",
			pred:     Leaf{Column: "title", Op: OpContains, Value: "cats"},
			wantSQL:  "title LIKE $1",
			wantArgs: []interface{}{"%cats%"},
		},
		{
			name:     "tsprefix",
			pred:     Leaf{Column: "search_vector", Op: OpTsPrefix, Value: "cat"},
			wantSQL:  "search_vector @@ to_tsquery('simple', $1)",
			wantArgs: []interface{}{"cat:*"},
		},
		{
			name:     "in list",
			pred:     Leaf{Column: "id", Op: OpIn, Value: []int64{4, 8, 15}},
			wantSQL:  "id IN ($1, $2, $3)",
			wantArgs: []interface{}{int64(4), int64(8), int64(15)},
		},
		{
			name:     "empty in list is false",
			pred:     Leaf{Column: "id", Op: OpIn, Value: []int64{}},
			wantSQL:  "FALSE",
			wantArgs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompiler()
			sql, err := c.Compile(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, c.Args())
		})
	}
}

func TestCompileTree(t *testing.T) {
	p := NewAnd(
		Leaf{Column: "listable", Op: OpEq, Value: true},
		NewOr(
			Leaf{Column: "owner_id", Op: OpEq, Value: int64(7)},
			Leaf{Column: "id", Op: OpIn, Value: []int64{1, 2}},
		),
	)

	c := NewCompiler()
	sql, err := c.Compile(p)
	require.NoError(t, err)
	assert.Equal(t, "(listable = $1 AND (owner_id = $2 OR id IN ($3, $4)))", sql)
	assert.Equal(t, []interface{}{true, int64(7), int64(1), int64(2)}, c.Args())
}

func TestCompileNot(t *testing.T) {
	c := NewCompiler()
	sql, err := c.Compile(Not{P: Leaf{Column: "is_reviewed", Op: OpEq, Value: true}})
	require.NoError(t, err)
	assert.Equal(t, "NOT (is_reviewed = $1)", sql)
}

func TestCompileEmptyGroups(t *testing.T) {
	c := NewCompiler()
	sql, err := c.Compile(And{})
	require.NoError(t, err)
	assert.Equal(t, "TRUE", sql)

	sql, err = c.Compile(Or{})
	require.NoError(t, err)
	assert.Equal(t, "FALSE", sql)
}

func TestCompileErrors(t *testing.T) {
	c := NewCompiler()
	_, err := c.Compile(Leaf{Op: OpEq, Value: 1})
	assert.Error(t, err)

	_, err = c.Compile(Leaf{Column: "id", Op: OpIn, Value: "not-a-slice"})
	assert.Error(t, err)

	_, err = c.Compile(Leaf{Column: "id", Op: Op("between"), Value: 1})
	assert.Error(t, err)
}

func TestNextArgContinuesNumbering(t *testing.T) {
	c := NewCompiler()
	sql, err := c.Compile(Leaf{Column: "listable", Op: OpEq, Value: true})
	require.NoError(t, err)
	assert.Equal(t, "listable = $1", sql)
	assert.Equal(t, "$2", c.NextArg(50))
	assert.Equal(t, []interface{}{true, 50}, c.Args())
}

func TestDedupeStructural(t *testing.T) {
	owner := Leaf{Column: "owner_id", Op: OpEq, Value: int64(7)}
	p := Dedupe(Or{owner, owner, Leaf{Column: "listable", Op: OpEq, Value: true}})

	or, ok := p.(Or)
	require.True(t, ok)
	assert.Len(t, or, 2)
}

func TestDedupeMergesInLists(t *testing.T) {
	p := Dedupe(Or{
		Leaf{Column: "id", Op: OpIn, Value: []int64{3, 1}},
		Leaf{Column: "owner_id", Op: OpEq, Value: int64(7)},
		Leaf{Column: "id", Op: OpIn, Value: []int64{2, 3}},
	})

	or, ok := p.(Or)
	require.True(t, ok)
	require.Len(t, or, 2)

	// Merged IN-list is appended after non-mergeable branches, sorted and
	// de-duplicated.
	assert.Equal(t, "owner_id eq 7", Fingerprint(or[0]))
	assert.Equal(t, "id in [1 2 3]", Fingerprint(or[1]))
}

func TestDedupeCollapsesSingleBranch(t *testing.T) {
	p := Dedupe(Or{
		Leaf{Column: "id", Op: OpIn, Value: []int64{1}},
		Leaf{Column: "id", Op: OpIn, Value: []int64{1, 2}},
	})

	leaf, ok := p.(Leaf)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2}, leaf.Value)
}

func TestNewAndFlattens(t *testing.T) {
	inner := NewAnd(
		Leaf{Column: "a", Op: OpEq, Value: 1},
		Leaf{Column: "b", Op: OpEq, Value: 2},
	)
	p := NewAnd(inner, Leaf{Column: "c", Op: OpEq, Value: 3}, nil)

	and, ok := p.(And)
	require.True(t, ok)
	assert.Len(t, and, 3)
}
