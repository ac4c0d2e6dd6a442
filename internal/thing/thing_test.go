package thing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/infobase/internal/ir"
)

var errNoThing = errors.New("no such thing")

// mapResolver resolves keys from an in-memory map.
type mapResolver map[string]*Thing

func (m mapResolver) Get(_ context.Context, key string) (*Thing, error) {
	t, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNoThing, key)
	}
	return t, nil
}

// newTestSchema builds the book/author schema used throughout these tests.
func newTestSchema(t *testing.T) mapResolver {
	t.Helper()
	r := mapResolver{}

	addType := func(key string, props ...[2]string) *Thing {
		typ := New(r, key)
		r[key] = typ
		require.NoError(t, typ.Set("type", ir.Ref("/type/type"), ir.DatatypeRef))
		var propThings []*Thing
		for _, p := range props {
			prop := New(r, key+"/"+p[0])
			require.NoError(t, prop.Set("type", ir.Ref("/type/property"), ir.DatatypeRef))
			require.NoError(t, prop.Set("name", p[0], ir.DatatypeString))
			require.NoError(t, prop.Set("expected_type", ir.Ref(p[1]), ir.DatatypeRef))
			r[prop.Key] = prop
			propThings = append(propThings, prop)
		}
		if len(propThings) > 0 {
			require.NoError(t, typ.Set("properties", propThings, ir.DatatypeRef))
		}
		return typ
	}

	addType("/type/type")
	addType("/type/property", [2]string{"name", "/type/string"}, [2]string{"expected_type", "/type/type"})
	addType("/type/string")
	addType("/type/int")
	addType("/type/author", [2]string{"name", "/type/string"})
	addType("/type/book",
		[2]string{"title", "/type/string"},
		[2]string{"author", "/type/author"},
		[2]string{"pages", "/type/int"},
	)

	author := New(r, "/author/test")
	require.NoError(t, author.Set("type", r["/type/author"], ir.DatatypeRef))
	require.NoError(t, author.Set("name", "test", ir.DatatypeString))
	r[author.Key] = author

	book := New(r, "/book/test")
	require.NoError(t, book.Set("type", r["/type/book"], ir.DatatypeRef))
	require.NoError(t, book.Set("title", "test", ir.DatatypeString))
	require.NoError(t, book.Set("author", "/author/test", ir.DatatypeRef))
	require.NoError(t, book.Set("pages", 10, ir.DatatypeInt))
	r[book.Key] = book

	return r
}

func TestGetRaisesOnMissing(t *testing.T) {
	th := New(nil, "/x")
	_, err := th.Get("title")
	assert.ErrorIs(t, err, ErrKeyMissing)

	_, err = th.Datatype("title")
	assert.ErrorIs(t, err, ErrKeyMissing)
}

func TestGetValueMissingIsNil(t *testing.T) {
	th := New(nil, "/x")
	v, err := th.GetValue(context.Background(), "title")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestGetValueLiterals(t *testing.T) {
	th := New(nil, "/x")
	require.NoError(t, th.Set("title", "hello", ir.DatatypeString))
	require.NoError(t, th.Set("pages", 10, ir.DatatypeInt))
	require.NoError(t, th.Set("price", 9.5, ir.DatatypeFloat))
	require.NoError(t, th.Set("available", true, ir.DatatypeBoolean))
	require.NoError(t, th.Set("tags", []string{"a", "b"}, ir.DatatypeString))

	ctx := context.Background()
	for name, want := range map[string]any{
		"title":     "hello",
		"pages":     int64(10),
		"price":     9.5,
		"available": true,
		"tags":      []any{"a", "b"},
	} {
		got, err := th.GetValue(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestReferenceResolution(t *testing.T) {
	r := newTestSchema(t)
	ctx := context.Background()
	book := r["/book/test"]

	raw, err := book.Get("author")
	require.NoError(t, err)
	assert.Equal(t, ir.Ref("/author/test"), raw, "stored as a key")

	v, err := book.GetValue(ctx, "author")
	require.NoError(t, err)
	author, ok := v.(*Thing)
	require.True(t, ok, "resolves to a thing, got %T", v)
	assert.Same(t, r["/author/test"], author)

	name, err := author.Field(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "test", name)
}

func TestReferenceListResolutionPreservesOrder(t *testing.T) {
	r := newTestSchema(t)
	ctx := context.Background()

	v, err := r["/type/book"].GetValue(ctx, "properties")
	require.NoError(t, err)
	props, ok := v.([]*Thing)
	require.True(t, ok)
	require.Len(t, props, 3)
	assert.Equal(t, "/type/book/title", props[0].Key)
	assert.Equal(t, "/type/book/author", props[1].Key)
	assert.Equal(t, "/type/book/pages", props[2].Key)

	name, err := props[1].Field(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "author", name)

	et, err := props[1].Field(ctx, "expected_type")
	require.NoError(t, err)
	assert.Equal(t, "/type/author", et.(*Thing).Key)
}

func TestReferenceResolutionErrors(t *testing.T) {
	ctx := context.Background()

	unbound := New(nil, "/x")
	require.NoError(t, unbound.Set("author", "/a", ir.DatatypeRef))
	_, err := unbound.GetValue(ctx, "author")
	assert.Error(t, err, "no resolver")

	r := mapResolver{}
	dangling := New(r, "/y")
	require.NoError(t, dangling.Set("authors", []string{"/missing"}, ir.DatatypeRef))
	_, err = dangling.GetValue(ctx, "authors")
	assert.ErrorIs(t, err, errNoThing)
}

func TestSetNormalizesThingsToKeys(t *testing.T) {
	r := newTestSchema(t)
	th := New(r, "/book/other")

	require.NoError(t, th.Set("author", r["/author/test"], ir.DatatypeRef))
	v, _ := th.Get("author")
	assert.Equal(t, ir.Ref("/author/test"), v)

	require.NoError(t, th.Set("authors", []any{r["/author/test"], "/author/other"}, ir.DatatypeRef))
	v, _ = th.Get("authors")
	assert.Equal(t, ir.List{Of: ir.DatatypeRef, Items: []ir.Value{ir.Ref("/author/test"), ir.Ref("/author/other")}}, v)
}

func TestSetRejectsMismatch(t *testing.T) {
	th := New(nil, "/x")
	tests := []struct {
		name  string
		value any
		dt    ir.Datatype
	}{
		{"thing as string", New(nil, "/a"), ir.DatatypeString},
		{"string as int", "ten", ir.DatatypeInt},
		{"typed value wrong datatype", ir.Int(1), ir.DatatypeFloat},
		{"nil", nil, ir.DatatypeString},
		{"mixed list", []any{1, "two"}, ir.DatatypeInt},
		{"nested list", []any{[]int{1}}, ir.DatatypeInt},
		{"list wrong datatype", ir.List{Of: ir.DatatypeInt}, ir.DatatypeString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := th.Set("f", tt.value, tt.dt)
			assert.ErrorIs(t, err, ir.ErrValidation)
			assert.False(t, th.Has("f"), "failed set must not store")
		})
	}
}

func TestSetDatetime(t *testing.T) {
	th := New(nil, "/x")
	when := time.Date(2008, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, th.Set("published", when, ir.DatatypeDatetime))
	v, _ := th.Get("published")
	assert.Equal(t, ir.Datetime("2008-01-02T03:04:05Z"), v)

	parsed, err := v.(ir.Datetime).Time()
	require.NoError(t, err)
	assert.True(t, when.Equal(parsed))
}

func TestHas(t *testing.T) {
	th := New(nil, "/x")
	assert.True(t, th.Has("key"))
	assert.False(t, th.Has("title"))
	assert.False(t, th.Has(MetaRevision), "unset metadata")

	require.NoError(t, th.Set("title", "t", ir.DatatypeString))
	assert.True(t, th.Has("title"))

	th.Metadata.Revision = 3
	th.Metadata.LastAuthor = "/user/admin"
	assert.True(t, th.Has(MetaRevision))
	assert.True(t, th.Has(MetaLastAuthor))
	assert.False(t, th.Has(MetaCreated))

	th.Delete("title")
	assert.False(t, th.Has("title"))
	th.Delete("title") // idempotent
}

func TestFieldKey(t *testing.T) {
	th := New(nil, "/x")
	v, err := th.Field(context.Background(), "key")
	require.NoError(t, err)
	assert.Equal(t, "/x", v)

	// A data field named key cannot shadow the identity
	require.NoError(t, th.Set("key", "/other", ir.DatatypeString))
	v, _ = th.Field(context.Background(), "key")
	assert.Equal(t, "/x", v)
}

func TestGetProperty(t *testing.T) {
	r := newTestSchema(t)
	ctx := context.Background()

	p, err := r["/type/book"].GetProperty(ctx, "author")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "/type/book/author", p.Key)

	p, err = r["/type/book"].GetProperty(ctx, "isbn")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = r["/type/type"].GetProperty(ctx, "anything")
	require.NoError(t, err)
	assert.Nil(t, p, "no properties field")
}

func TestFieldsDataClone(t *testing.T) {
	th := New(nil, "/x")
	require.NoError(t, th.Set("b", "2", ir.DatatypeString))
	require.NoError(t, th.Set("a", "1", ir.DatatypeString))
	assert.Equal(t, []string{"a", "b"}, th.Fields())
	assert.Equal(t, 2, th.Len())

	data := th.Data()
	delete(data, "a")
	assert.True(t, th.Has("a"), "Data returns a copy")

	c := th.Clone()
	c.Delete("b")
	assert.True(t, th.Has("b"), "Clone shares no state")
	assert.False(t, th.Equal(c))
	assert.True(t, th.Equal(th.Clone()))
}

func TestNewWithData(t *testing.T) {
	th, err := NewWithData(nil, "/x", map[string]ir.Value{
		"type":  ir.Ref("/type/book"),
		"pages": ir.Int(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "/type/book", th.TypeKey())

	_, err = NewWithData(nil, "/x", map[string]ir.Value{
		"bad": ir.List{Of: ir.DatatypeInt, Items: []ir.Value{ir.String("x")}},
	})
	assert.ErrorIs(t, err, ir.ErrValidation)
}

func TestString(t *testing.T) {
	assert.Equal(t, `<thing: "/type/book">`, New(nil, "/type/book").String())
}
