package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/infobase/internal/query"
)

var thingsTable = Table{
	Select: "t.key",
	From:   "things t",
	Where:  "t.deleted = 0",
	Columns: map[string]string{
		query.FieldType: "t.type = ?",
		query.FieldKey:  "t.key = ?",
	},
	Property: "EXISTS (SELECT 1 FROM thing_props p WHERE p.thing_id = t.id AND p.name = ? AND p.value = ?)",
	OrderBy:  "t.seq DESC",
}

func TestCompile_NoFilters(t *testing.T) {
	sql, params, err := NewSQLCompiler(thingsTable).Compile(query.Query{})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT t.key FROM things t WHERE t.deleted = 0 AND 1 = 1 ORDER BY t.seq DESC LIMIT ? OFFSET ?",
		sql)
	assert.Equal(t, []any{query.DefaultLimit, 0}, params)
}

func TestCompile_TypeAndProperty(t *testing.T) {
	q := query.Query{Type: "/type/book", Name: "title", Value: "Dune", Offset: 3}.WithLimit(-1)

	sql, params, err := NewSQLCompiler(thingsTable).Compile(q)
	require.NoError(t, err)

	assert.Contains(t, sql, "t.type = ? AND EXISTS (SELECT 1 FROM thing_props p")
	assert.Contains(t, sql, "ORDER BY t.seq DESC")
	assert.NotContains(t, sql, "Dune")
	assert.NotContains(t, sql, "/type/book")
	assert.Equal(t, []any{"/type/book", "title", "Dune", -1, 3}, params)
}

func TestCompile_NoBaseWhere(t *testing.T) {
	table := Table{
		From:    "versions",
		Columns: map[string]string{query.FieldKey: "key = ?"},
		OrderBy: "id DESC",
	}
	sql, params, err := NewSQLCompiler(table).Compile(query.Query{Key: "/a"}.WithLimit(2))
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM versions WHERE key = ? ORDER BY id DESC LIMIT ? OFFSET ?", sql)
	assert.Equal(t, []any{"/a", 2, 0}, params)
}

func TestCompile_UnknownFieldWithoutProperty(t *testing.T) {
	table := Table{From: "versions", OrderBy: "id DESC"}

	_, _, err := NewSQLCompiler(table).Compile(query.Query{Name: "title", Value: "x"})
	assert.ErrorIs(t, err, query.ErrInvalidQuery)
}

func TestCompile_InvalidQuery(t *testing.T) {
	_, _, err := NewSQLCompiler(thingsTable).Compile(query.Query{Offset: -1})
	assert.ErrorIs(t, err, query.ErrInvalidQuery)
}

func TestCompile_RequiresOrderBy(t *testing.T) {
	_, _, err := NewSQLCompiler(Table{From: "things"}).Compile(query.Query{})
	assert.Error(t, err)
}
