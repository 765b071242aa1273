// Package query provides an explicit predicate-tree value type (AND/OR/NOT
// over leaf conditions) that storage adapters compile once. Visibility and
// search logic build trees without touching SQL, so they stay
// storage-agnostic and testable without a database.
package query

import (
	"fmt"
	"sort"
	"strings"
)

// Op is a leaf comparison operator.
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpIn       Op = "in" // Value is []int64
	OpGte      Op = "gte"
	OpLte      Op = "lte"
	OpPrefix   Op = "prefix"   // LIKE 'v%'
	OpContains Op = "contains" // LIKE '%v%'
	OpTsPrefix Op = "tsprefix" // full-text prefix match on a tsvector column
)

// Predicate is a node in the tree: a Leaf, And, Or or Not.
type Predicate interface {
	isPredicate()
}

// Leaf is a single column condition.
type Leaf struct {
	Column string
	Op     Op
	Value  interface{}
}

func (Leaf) isPredicate() {}

// And is the conjunction of its children. An empty And is vacuously true.
type And []Predicate

func (And) isPredicate() {}

// Or is the disjunction of its children. An empty Or is vacuously false.
type Or []Predicate

func (Or) isPredicate() {}

// Not negates its child.
type Not struct {
	P Predicate
}

func (Not) isPredicate() {}

// NewAnd builds a conjunction, flattening nested Ands and dropping nils.
func NewAnd(ps ...Predicate) Predicate {
	return flatten(ps, true)
}

// NewOr builds a disjunction, flattening nested Ors and dropping nils.
func NewOr(ps ...Predicate) Predicate {
	return flatten(ps, false)
}

func flatten(ps []Predicate, conjunction bool) Predicate {
	out := make([]Predicate, 0, len(ps))
	for _, p := range ps {
		if p == nil {
			continue
		}
		switch v := p.(type) {
		case And:
			if conjunction {
				out = append(out, v...)
				continue
			}
		case Or:
			if !conjunction {
				out = append(out, v...)
				continue
			}
		}
		out = append(out, p)
	}
	if len(out) == 1 {
		return out[0]
	}
	if conjunction {
		return And(out)
	}
	return Or(out)
}

// Dedupe removes structural duplicates from Or and And branches and merges
// Or'd IN-lists over the same column into one set union. Overlapping grant
// and RBAC id sets would otherwise produce duplicate rows before
// pagination.
func Dedupe(p Predicate) Predicate {
	switch v := p.(type) {
	case And:
		return And(dedupeBranches(v))
	case Or:
		branches := dedupeBranches(v)
		branches = mergeInLists(branches)
		if len(branches) == 1 {
			return branches[0]
		}
		return Or(branches)
	case Not:
		return Not{P: Dedupe(v.P)}
	default:
		return p
	}
}

func dedupeBranches(ps []Predicate) []Predicate {
	seen := make(map[string]bool, len(ps))
	out := make([]Predicate, 0, len(ps))
	for _, p := range ps {
		p = Dedupe(p)
		key := Fingerprint(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// mergeInLists unions Or'd IN-list leaves that target the same column.
func mergeInLists(ps []Predicate) []Predicate {
	byColumn := make(map[string]map[int64]struct{})
	order := make([]string, 0)
	out := make([]Predicate, 0, len(ps))

	for _, p := range ps {
		leaf, ok := p.(Leaf)
		if !ok || leaf.Op != OpIn {
			out = append(out, p)
			continue
		}
		ids, ok := leaf.Value.([]int64)
		if !ok {
			out = append(out, p)
			continue
		}
		set, exists := byColumn[leaf.Column]
		if !exists {
			set = make(map[int64]struct{})
			byColumn[leaf.Column] = set
			order = append(order, leaf.Column)
		}
		for _, id := range ids {
			set[id] = struct{}{}
		}
	}

	for _, column := range order {
		set := byColumn[column]
		ids := make([]int64, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, Leaf{Column: column, Op: OpIn, Value: ids})
	}

	return out
}

// Fingerprint returns a canonical string form of the predicate, used for
// structural deduplication and in tests.
func Fingerprint(p Predicate) string {
	switch v := p.(type) {
	case Leaf:
		return fmt.Sprintf("%s %s %v", v.Column, v.Op, v.Value)
	case And:
		parts := make([]string, len(v))
		for i, c := range v {
			parts[i] = Fingerprint(c)
		}
		return "and(" + strings.Join(parts, ", ") + ")"
	case Or:
		parts := make([]string, len(v))
		for i, c := range v {
			parts[i] = Fingerprint(c)
		}
		return "or(" + strings.Join(parts, ", ") + ")"
	case Not:
		return "not(" + Fingerprint(v.P) + ")"
	default:
		return fmt.Sprintf("%T", p)
	}
}
