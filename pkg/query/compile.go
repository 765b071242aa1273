package query

import (
	"fmt"
	"strings"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
)

// Compiler turns a predicate tree into a parameterized SQL fragment with
// $N placeholders. A Compiler is single-use: argument numbering continues
// across calls so callers can append their own trailing clauses.
type Compiler struct {
	args []interface{}
}

// NewCompiler returns a compiler whose first placeholder is $1.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile renders p as a SQL boolean expression and records its arguments.
func (c *Compiler) Compile(p Predicate) (string, error) {
	var sb strings.Builder
	if err := c.compile(&sb, p); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Args returns the accumulated bind arguments, in placeholder order.
func (c *Compiler) Args() []interface{} {
	return c.args
}

// NextArg records an out-of-tree argument (LIMIT, OFFSET) and returns its
// placeholder.
func (c *Compiler) NextArg(v interface{}) string {
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", len(c.args))
}

func (c *Compiler) compile(sb *strings.Builder, p Predicate) error {
	switch v := p.(type) {
	case Leaf:
		return c.compileLeaf(sb, v)
	case And:
		if len(v) == 0 {
			sb.WriteString("TRUE")
			return nil
		}
		return c.compileList(sb, v, " AND ")
	case Or:
		if len(v) == 0 {
			sb.WriteString("FALSE")
			return nil
		}
		return c.compileList(sb, v, " OR ")
	case Not:
		sb.WriteString("NOT (")
		if err := c.compile(sb, v.P); err != nil {
			return err
		}
		sb.WriteString(")")
		return nil
	default:
		return apperr.InvalidArgumentf("unknown predicate node %T", p)
	}
}

func (c *Compiler) compileList(sb *strings.Builder, ps []Predicate, sep string) error {
	sb.WriteString("(")
	for i, p := range ps {
		if i > 0 {
			sb.WriteString(sep)
		}
		if err := c.compile(sb, p); err != nil {
			return err
		}
	}
	sb.WriteString(")")
	return nil
}

func (c *Compiler) compileLeaf(sb *strings.Builder, leaf Leaf) error {
	if leaf.Column == "" {
		return apperr.InvalidArgumentf("leaf predicate missing column")
	}
	switch leaf.Op {
	case OpEq:
		fmt.Fprintf(sb, "%s = %s", leaf.Column, c.NextArg(leaf.Value))
	case OpNe:
		fmt.Fprintf(sb, "%s != %s", leaf.Column, c.NextArg(leaf.Value))
	case OpGte:
		fmt.Fprintf(sb, "%s >= %s", leaf.Column, c.NextArg(leaf.Value))
	case OpLte:
		fmt.Fprintf(sb, "%s <= %s", leaf.Column, c.NextArg(leaf.Value))
	case OpPrefix:
		s, ok := leaf.Value.(string)
		if !ok {
			return apperr.InvalidArgumentf("prefix predicate on %s needs a string value", leaf.Column)
		}
		fmt.Fprintf(sb, "%s LIKE %s", leaf.Column, c.NextArg(escapeLike(s)+"%"))
	case OpContains:
		s, ok := leaf.Value.(string)
		if !ok {
			return apperr.InvalidArgumentf("contains predicate on %s needs a string value", leaf.Column)
		}
		fmt.Fprintf(sb, "%s LIKE %s", leaf.Column, c.NextArg("%"+escapeLike(s)+"%"))
	case OpTsPrefix:
		s, ok := leaf.Value.(string)
		if !ok {
			return apperr.InvalidArgumentf("tsprefix predicate on %s needs a string value", leaf.Column)
		}
		fmt.Fprintf(sb, "%s @@ to_tsquery('simple', %s)", leaf.Column, c.NextArg(s+":*"))
	case OpIn:
		ids, ok := leaf.Value.([]int64)
		if !ok {
			return apperr.InvalidArgumentf("in predicate on %s needs []int64", leaf.Column)
		}
		if len(ids) == 0 {
			sb.WriteString("FALSE")
			return nil
		}
		fmt.Fprintf(sb, "%s IN (", leaf.Column)
		for i, id := range ids {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(c.NextArg(id))
		}
		sb.WriteString(")")
	default:
		return apperr.InvalidArgumentf("unknown predicate op %q", leaf.Op)
	}
	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
