package storetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/infobase/internal/query"
	"github.com/roach88/infobase/internal/store"
)

// RunDocs runs the DocStore contract suite.
func RunDocs(t *testing.T, open DocFactory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, d store.DocStore)
	}{
		{"PutGet", testDocPutGet},
		{"DeleteAndReinsert", testDocDeleteAndReinsert},
		{"NonObjectPassthrough", testDocNonObject},
		{"Order", testDocOrder},
		{"Filters", testDocFilters},
		{"Limits", testDocLimits},
		{"Clear", testDocClear},
		{"Invalid", testDocInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

func put(t *testing.T, d store.DocStore, key, doc string) {
	t.Helper()
	require.NoError(t, d.Put(ctx(), key, []byte(doc)))
}

func testDocPutGet(t *testing.T, d store.DocStore) {
	put(t, d, "a", `{"type": "page", "title": "A"}`)

	got, err := d.GetDoc(ctx(), "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "page", "title": "A"}`, string(got))

	ok, err := d.Has(ctx(), "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Has(ctx(), "b")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = d.GetDoc(ctx(), "b")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testDocDeleteAndReinsert(t *testing.T, d store.DocStore) {
	put(t, d, "a", `{"v": 1}`)
	require.NoError(t, d.Delete(ctx(), "a"))

	ok, err := d.Has(ctx(), "a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, d.Delete(ctx(), "a"), store.ErrNotFound)

	put(t, d, "a", `{"v": 2}`)
	got, err := d.GetDoc(ctx(), "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v": 2}`, string(got))
}

func testDocNonObject(t *testing.T, d store.DocStore) {
	put(t, d, "x", `1`)
	put(t, d, "y", `[1, 2]`)

	got, err := d.GetDoc(ctx(), "x")
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))

	values, err := d.Values(ctx(), query.Query{})
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.JSONEq(t, `[1, 2]`, string(values[0]))
	assert.Equal(t, "1", string(values[1]))

	keys, err := d.Keys(ctx(), query.Query{Type: "page"})
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func testDocOrder(t *testing.T, d store.DocStore) {
	put(t, d, "A", `{}`)
	put(t, d, "B", `{}`)
	put(t, d, "C", `{}`)

	keys, err := d.Keys(ctx(), query.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, keys)

	put(t, d, "A", `{"again": true}`)
	keys, err = d.Keys(ctx(), query.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, keys)

	items, err := d.Items(ctx(), query.Query{}.WithLimit(1))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Key)
	assert.JSONEq(t, `{"again": true}`, string(items[0].Value))
}

func testDocFilters(t *testing.T, d store.DocStore) {
	put(t, d, "p1", `{"type": "page", "lang": "en"}`)
	put(t, d, "b1", `{"type": {"key": "/type/book"}, "lang": "en"}`)
	put(t, d, "p2", `{"type": "page", "lang": ["fr", "de"]}`)
	put(t, d, "p3", `{"type": "page", "lang": "en"}`)

	keys, err := d.Keys(ctx(), query.Query{Type: "page"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p2", "p1"}, keys)

	keys, err = d.Keys(ctx(), query.Query{Type: "page", Name: "lang", Value: "en"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p1"}, keys)

	keys, err = d.Keys(ctx(), query.Query{Name: "lang", Value: "de"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, keys)

	keys, err = d.Keys(ctx(), query.Query{Type: "/type/book"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, keys)
}

func testDocLimits(t *testing.T, d store.DocStore) {
	for i := 0; i < 105; i++ {
		put(t, d, string(rune('a'+i%26))+string(rune('0'+i/26)), `{"type": "n"}`)
	}
	keys, err := d.Keys(ctx(), query.Query{})
	require.NoError(t, err)
	assert.Len(t, keys, query.DefaultLimit)

	keys, err = d.Keys(ctx(), query.Query{}.WithLimit(-1))
	require.NoError(t, err)
	assert.Len(t, keys, 105)
}

func testDocClear(t *testing.T, d store.DocStore) {
	put(t, d, "a", `{}`)
	put(t, d, "b", `{}`)
	require.NoError(t, d.Clear(ctx()))

	keys, err := d.Keys(ctx(), query.Query{}.WithLimit(-1))
	require.NoError(t, err)
	assert.Empty(t, keys)

	put(t, d, "a", `{}`)
	keys, err = d.Keys(ctx(), query.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)
}

func testDocInvalid(t *testing.T, d store.DocStore) {
	assert.ErrorIs(t, d.Put(ctx(), "a", []byte(`{`)), store.ErrValidation)
	assert.ErrorIs(t, d.Put(ctx(), "", []byte(`{}`)), store.ErrValidation)
	_, err := d.Keys(ctx(), query.Query{Author: "/user/x"})
	assert.ErrorIs(t, err, store.ErrValidation)
}
