// Package querysql compiles listing queries to parameterized SQL for SQLite.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/infobase/internal/query"
)

// Table describes how a listing maps onto SQL.
//
// Columns maps a filter field to a WHERE fragment holding exactly one "?"
// placeholder, e.g. "t.type = ?". Property, when set, is the fragment used
// for any other field; it holds two placeholders bound to the property
// name and its index value. Fields that match neither are rejected.
type Table struct {
	Select   string
	From     string
	Where    string // optional base condition, ANDed with the filters
	Columns  map[string]string
	Property string
	OrderBy  string
}

// SQLCompiler compiles queries against one Table.
//
// CRITICAL: ALL queries include ORDER BY for deterministic results.
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct {
	Table Table
}

// NewSQLCompiler creates a compiler for t.
func NewSQLCompiler(t Table) *SQLCompiler {
	return &SQLCompiler{Table: t}
}

// Compile converts q to parameterized SQL.
// Returns (sql, params, error) tuple.
//
// The limit is always bound, with -1 standing for "no limit" as SQLite
// expects.
func (c *SQLCompiler) Compile(q query.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	if c.Table.From == "" {
		return "", nil, fmt.Errorf("compile: table has no FROM clause")
	}
	if c.Table.OrderBy == "" {
		return "", nil, fmt.Errorf("compile: table %q has no ORDER BY", c.Table.From)
	}

	where, params, err := c.compilePredicate(q.Predicate())
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	if c.Table.Where != "" {
		where = c.Table.Where + " AND " + where
	}

	sel := c.Table.Select
	if sel == "" {
		sel = "*"
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT ? OFFSET ?",
		sel, c.Table.From, where, c.Table.OrderBy)
	params = append(params, q.EffectiveLimit(), q.Offset)

	return sql, params, nil
}

// compilePredicate compiles a query.Predicate to a WHERE clause fragment.
func (c *SQLCompiler) compilePredicate(p query.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case query.Equals:
		return c.compileEquals(pred)
	case query.And:
		return c.compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals resolves the field to its column fragment, falling back to
// the property fragment.
func (c *SQLCompiler) compileEquals(eq query.Equals) (string, []any, error) {
	if frag, ok := c.Table.Columns[eq.Field]; ok {
		return frag, []any{eq.Value}, nil
	}
	if c.Table.Property == "" {
		return "", nil, fmt.Errorf("%w: cannot filter on %q", query.ErrInvalidQuery, eq.Field)
	}
	return c.Table.Property, []any{eq.Field, eq.Value}, nil
}

// compileAnd compiles an And predicate to a conjunction.
func (c *SQLCompiler) compileAnd(and query.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // vacuous truth
	}

	var sqlParts []string
	var allParams []any

	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}
