// Package expr provides a small boolean expression tree for building SQL
// WHERE clauses. Filters are composed as AND/OR/NOT nodes over leaf
// predicates and compiled to a SQL fragment plus a positional argument
// list in one pass.
//
// Negation always applies to a whole group: Not(Or(a, b)) compiles to
// NOT (a OR b), which is not the same thing as OR'ing the negated
// children. Building that distinction into the tree keeps group negation
// correct by construction.
package expr

import (
	"strings"
)

// Expr is a node in the expression tree.
type Expr interface {
	compile(sb *strings.Builder, args *[]any)
	// Empty reports whether the node contributes nothing to the WHERE
	// clause. Empty nodes are skipped during compilation.
	Empty() bool
}

type raw struct {
	sql  string
	args []any
}

func (r raw) Empty() bool { return r.sql == "" }

func (r raw) compile(sb *strings.Builder, args *[]any) {
	sb.WriteString(r.sql)
	*args = append(*args, r.args...)
}

// SQL creates a leaf predicate from a fragment with ? placeholders.
func SQL(fragment string, args ...any) Expr {
	return raw{sql: fragment, args: args}
}

// Nothing is an always-false predicate. A filter that cannot match
// anything compiles to this rather than disappearing from the WHERE
// clause, so an empty candidate set means empty results, never "all
// results".
func Nothing() Expr { return raw{sql: "1=2"} }

// Everything is an always-true predicate.
func Everything() Expr { return raw{sql: "1=1"} }

type group struct {
	op    string // " AND " or " OR "
	exprs []Expr
	// whenEmpty is compiled when no child contributes anything.
	whenEmpty string
}

func (g group) Empty() bool {
	for _, e := range g.exprs {
		if e != nil && !e.Empty() {
			return false
		}
	}
	return true
}

func (g group) compile(sb *strings.Builder, args *[]any) {
	var kept []Expr
	for _, e := range g.exprs {
		if e != nil && !e.Empty() {
			kept = append(kept, e)
		}
	}
	switch len(kept) {
	case 0:
		sb.WriteString(g.whenEmpty)
	case 1:
		kept[0].compile(sb, args)
	default:
		sb.WriteString("(")
		for i, e := range kept {
			if i > 0 {
				sb.WriteString(g.op)
			}
			e.compile(sb, args)
		}
		sb.WriteString(")")
	}
}

// And combines predicates so every one must hold. An And with no
// effective children compiles to an always-true predicate.
func And(exprs ...Expr) Expr {
	return group{op: " AND ", exprs: exprs, whenEmpty: "1=1"}
}

// Or combines predicates so at least one must hold. An Or with no
// effective children compiles to an always-false predicate: no
// alternative can match, so nothing matches.
func Or(exprs ...Expr) Expr {
	return group{op: " OR ", exprs: exprs, whenEmpty: "1=2"}
}

type not struct {
	inner Expr
}

func (n not) Empty() bool { return n.inner == nil || n.inner.Empty() }

func (n not) compile(sb *strings.Builder, args *[]any) {
	sb.WriteString("NOT (")
	n.inner.compile(sb, args)
	sb.WriteString(")")
}

// Not negates a whole group.
func Not(e Expr) Expr { return not{inner: e} }

// Eq builds column = value.
func Eq(column string, value any) Expr {
	return raw{sql: column + "=?", args: []any{value}}
}

// Gt builds column > value.
func Gt(column string, value any) Expr {
	return raw{sql: column + ">?", args: []any{value}}
}

// Gte builds column >= value.
func Gte(column string, value any) Expr {
	return raw{sql: column + ">=?", args: []any{value}}
}

// Lt builds column < value.
func Lt(column string, value any) Expr {
	return raw{sql: column + "<?", args: []any{value}}
}

// Lte builds column <= value.
func Lte(column string, value any) Expr {
	return raw{sql: column + "<=?", args: []any{value}}
}

// IsNull builds column IS NULL.
func IsNull(column string) Expr { return raw{sql: column + " IS NULL"} }

// NotNull builds column IS NOT NULL.
func NotNull(column string) Expr { return raw{sql: column + " IS NOT NULL"} }

// In builds column IN (...) over int64 ids. An empty id list matches
// nothing.
func In(column string, ids []int64) Expr {
	if len(ids) == 0 {
		return Nothing()
	}
	if len(ids) == 1 {
		return Eq(column, ids[0])
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return raw{sql: column + " IN (" + placeholders(len(ids)) + ")", args: args}
}

// NotIn builds column NOT IN (...) over int64 ids. An empty id list
// excludes nothing.
func NotIn(column string, ids []int64) Expr {
	if len(ids) == 0 {
		return raw{}
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return raw{sql: column + " NOT IN (" + placeholders(len(ids)) + ")", args: args}
}

// InStrings builds column IN (...) over strings. An empty list matches
// nothing.
func InStrings(column string, values []string) Expr {
	if len(values) == 0 {
		return Nothing()
	}
	if len(values) == 1 {
		return Eq(column, values[0])
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return raw{sql: column + " IN (" + placeholders(len(values)) + ")", args: args}
}

func placeholders(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("?")
	}
	return sb.String()
}

// Compile lowers the tree to a SQL fragment and its bound arguments.
// A nil or empty expression compiles to an empty string.
func Compile(e Expr) (string, []any) {
	if e == nil || e.Empty() {
		return "", nil
	}
	var sb strings.Builder
	var args []any
	e.compile(&sb, &args)
	return sb.String(), args
}
