package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/infobase/internal/query"
)

func TestCheckDoc(t *testing.T) {
	assert.NoError(t, CheckDoc("a", []byte(`{"x": 1}`)))
	assert.NoError(t, CheckDoc("a", []byte(`1`)))
	assert.ErrorIs(t, CheckDoc("", []byte(`1`)), ErrValidation)
	assert.ErrorIs(t, CheckDoc("a", []byte(`{`)), ErrValidation)
}

func TestDocIndex(t *testing.T) {
	idx := DocIndex([]byte(`{
		"type": {"key": "/type/page"},
		"title": "Home",
		"n": 3,
		"ok": true,
		"tags": ["a", "b"],
		"body": {"type": "/type/text", "value": "hi"},
		"nothing": null
	}`))
	assert.Equal(t, map[string][]string{
		"type":  {"/type/page"},
		"title": {"Home"},
		"n":     {"3"},
		"ok":    {"true"},
		"tags":  {"a", "b"},
		"body":  {"hi"},
	}, idx)
}

func TestDocIndex_Numbers(t *testing.T) {
	idx := DocIndex([]byte(`{"price": 1.50, "big": 2e3, "n": 7, "xs": [0.10, 3]}`))
	assert.Equal(t, []string{"1.5"}, idx["price"])
	assert.Equal(t, []string{"2000"}, idx["big"])
	assert.Equal(t, []string{"7"}, idx["n"])
	assert.Equal(t, []string{"0.1", "3"}, idx["xs"])

	rec := DocRecord(Document{Key: "/p", Value: []byte(`{"price": 1.50}`)})
	assert.True(t, query.Match(query.Query{Name: "price", Value: "1.5"}.Predicate(), rec))
	assert.False(t, query.Match(query.Query{Name: "price", Value: "1.50"}.Predicate(), rec))
}

func TestDocIndex_NonObject(t *testing.T) {
	assert.Empty(t, DocIndex([]byte(`1`)))
	assert.Empty(t, DocIndex([]byte(`[1, 2]`)))
	assert.Empty(t, DocIndex([]byte(`"text"`)))
}

func TestDocRecord(t *testing.T) {
	rec := DocRecord(Document{Key: "x", Value: []byte(`{"type": "book", "name": "a"}`)})
	assert.True(t, query.Match(query.Query{Type: "book", Name: "name", Value: "a"}.Predicate(), rec))
	assert.True(t, query.Match(query.Query{Key: "x"}.Predicate(), rec))
	assert.False(t, query.Match(query.Query{Type: "page"}.Predicate(), rec))
}
