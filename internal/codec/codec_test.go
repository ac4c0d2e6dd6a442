package codec

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/infobase/internal/ir"
	"github.com/roach88/infobase/internal/thing"
)

// newBook builds a Thing holding one property of every datatype.
func newBook(t *testing.T) *thing.Thing {
	t.Helper()
	b := thing.New(nil, "/book/test")
	require.NoError(t, b.Set("type", ir.Ref("/type/book"), ir.DatatypeRef))
	require.NoError(t, b.Set("title", "test", ir.DatatypeString))
	require.NoError(t, b.Set("author", "/author/test", ir.DatatypeRef))
	require.NoError(t, b.Set("authors", []string{"/author/test", "/author/other"}, ir.DatatypeRef))
	require.NoError(t, b.Set("pages", 10, ir.DatatypeInt))
	require.NoError(t, b.Set("price", 12.0, ir.DatatypeFloat))
	require.NoError(t, b.Set("available", true, ir.DatatypeBoolean))
	require.NoError(t, b.Set("description", "A <b>book</b>", ir.DatatypeText))
	require.NoError(t, b.Set("published", "2008-01-01T00:00:00Z", ir.DatatypeDatetime))
	require.NoError(t, b.Set("subjects", []string{"fiction", "history"}, ir.DatatypeString))
	require.NoError(t, b.Set("notes", []string{"a", "b"}, ir.DatatypeText))
	require.NoError(t, b.Set("isbn", "/isbn/123", ir.DatatypeKey))
	return b
}

func TestMarshalGolden(t *testing.T) {
	out, err := Marshal(newBook(t))
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "book", out)
}

func TestEncodeShapes(t *testing.T) {
	doc, err := Encode(newBook(t))
	require.NoError(t, err)

	assert.Equal(t, "/book/test", doc["key"])
	assert.Equal(t, map[string]any{"key": "/author/test"}, doc["author"])
	assert.Equal(t, []any{map[string]any{"key": "/author/test"}, map[string]any{"key": "/author/other"}}, doc["authors"])
	assert.Equal(t, int64(10), doc["pages"])
	assert.Equal(t, true, doc["available"])
	assert.Equal(t, map[string]any{"type": "/type/text", "value": "A <b>book</b>"}, doc["description"])
	assert.Equal(t, []any{
		map[string]any{"type": "/type/text", "value": "a"},
		map[string]any{"type": "/type/text", "value": "b"},
	}, doc["notes"])
	assert.Equal(t, "/isbn/123", doc["isbn"], "key datatype is a bare literal")
}

func TestRoundTrip(t *testing.T) {
	original := newBook(t)
	original.Delete("isbn") // key datatype reads back as str; see TestKeyDatatypeReadsBackAsString

	data, err := Marshal(original)
	require.NoError(t, err)

	decoded, err := Unmarshal(nil, "", data)
	require.NoError(t, err)
	assert.Equal(t, original.Key, decoded.Key)
	assert.Equal(t, original.Data(), decoded.Data())
	assert.True(t, original.Equal(decoded))
}

func TestRoundTripPerDatatype(t *testing.T) {
	tests := []struct {
		name  string
		value ir.Value
	}{
		{"str", ir.String("x")},
		{"text", ir.Text("long text")},
		{"int", ir.Int(-7)},
		{"float", ir.Float(1)},
		{"boolean true", ir.Bool(true)},
		{"boolean false", ir.Bool(false)},
		{"datetime", ir.Datetime("2009-06-01T10:00:00.5Z")},
		{"ref", ir.Ref("/author/test")},
		{"ref list", ir.List{Of: ir.DatatypeRef, Items: []ir.Value{ir.Ref("/a"), ir.Ref("/b")}}},
		{"int list", ir.List{Of: ir.DatatypeInt, Items: []ir.Value{ir.Int(1), ir.Int(2)}}},
		{"float list", ir.List{Of: ir.DatatypeFloat, Items: []ir.Value{ir.Float(1), ir.Float(2.5)}}},
		{"boolean list", ir.List{Of: ir.DatatypeBoolean, Items: []ir.Value{ir.Bool(true), ir.Bool(false)}}},
		{"datetime list", ir.List{Of: ir.DatatypeDatetime, Items: []ir.Value{ir.Datetime("2009-06-01T10:00:00Z")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := thing.New(nil, "/x")
			require.NoError(t, th.SetValue("f", tt.value))

			data, err := Marshal(th)
			require.NoError(t, err)
			decoded, err := Unmarshal(nil, "", data)
			require.NoError(t, err)

			got, err := decoded.Get("f")
			require.NoError(t, err)
			assert.Equal(t, tt.value, got, "wire form %s", data)
		})
	}
}

func TestEmptyListIsNotRoundTrippable(t *testing.T) {
	th := thing.New(nil, "/x")
	require.NoError(t, th.SetValue("tags", ir.List{Of: ir.DatatypeString}))
	require.NoError(t, th.Set("title", "t", ir.DatatypeString))

	data, err := Marshal(th)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"/x","tags":[],"title":"t"}`, string(data))

	decoded, err := Unmarshal(nil, "", data)
	require.NoError(t, err)
	assert.False(t, decoded.Has("tags"), "empty list decodes to no field")
	assert.True(t, decoded.Has("title"))
	assert.NotEqual(t, th.Data(), decoded.Data())
}

func TestKeyDatatypeReadsBackAsString(t *testing.T) {
	th := thing.New(nil, "/x")
	require.NoError(t, th.Set("isbn", "/isbn/1", ir.DatatypeKey))

	data, err := Marshal(th)
	require.NoError(t, err)
	decoded, err := Unmarshal(nil, "", data)
	require.NoError(t, err)

	v, err := decoded.Get("isbn")
	require.NoError(t, err)
	assert.Equal(t, ir.String("/isbn/1"), v)
}

func TestBooleanBeforeInt(t *testing.T) {
	decoded, err := Unmarshal(nil, "/x", []byte(`{"flag": true, "off": false, "one": 1, "zero": 0}`))
	require.NoError(t, err)

	for name, want := range map[string]ir.Value{
		"flag": ir.Bool(true),
		"off":  ir.Bool(false),
		"one":  ir.Int(1),
		"zero": ir.Int(0),
	} {
		got, err := decoded.Get(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}

	// Through the encoder as well
	th := thing.New(nil, "/x")
	require.NoError(t, th.Set("flag", true, ir.DatatypeBoolean))
	data, err := Marshal(th)
	require.NoError(t, err)
	back, err := Unmarshal(nil, "", data)
	require.NoError(t, err)
	dt, err := back.Datatype("flag")
	require.NoError(t, err)
	assert.Equal(t, ir.DatatypeBoolean, dt)
}

func TestNumberInference(t *testing.T) {
	decoded, err := Unmarshal(nil, "/x", []byte(`{"a": 1.0, "b": 2e3, "c": 99999999999, "d": -4}`))
	require.NoError(t, err)

	a, _ := decoded.Get("a")
	b, _ := decoded.Get("b")
	c, _ := decoded.Get("c")
	d, _ := decoded.Get("d")
	assert.Equal(t, ir.Float(1), a)
	assert.Equal(t, ir.Float(2000), b)
	assert.Equal(t, ir.Int(99999999999), c)
	assert.Equal(t, ir.Int(-4), d)
}

func TestHomogeneousListInference(t *testing.T) {
	decoded, err := Unmarshal(nil, "/x", []byte(`{
		"notes": [{"type": "/type/text", "value": "a"}, "b", {"type": "/type/string", "value": "c"}],
		"scores": [1.5, 2],
		"refs": [{"key": "/a"}, "/b"]
	}`))
	require.NoError(t, err)

	notes, _ := decoded.Get("notes")
	assert.Equal(t, ir.List{Of: ir.DatatypeText, Items: []ir.Value{ir.Text("a"), ir.Text("b"), ir.Text("c")}}, notes)

	scores, _ := decoded.Get("scores")
	assert.Equal(t, ir.List{Of: ir.DatatypeFloat, Items: []ir.Value{ir.Float(1.5), ir.Float(2)}}, scores)

	refs, _ := decoded.Get("refs")
	assert.Equal(t, ir.List{Of: ir.DatatypeRef, Items: []ir.Value{ir.Ref("/a"), ir.Ref("/b")}}, refs)
}

func TestUnknownTypeDecodesAsRef(t *testing.T) {
	decoded, err := Unmarshal(nil, "/x", []byte(`{"page": {"type": "/type/page", "value": "/pages/home"}}`))
	require.NoError(t, err)
	v, _ := decoded.Get("page")
	assert.Equal(t, ir.Ref("/pages/home"), v)
}

func TestDecodeDropsNullsAndEmptyLists(t *testing.T) {
	decoded, err := Unmarshal(nil, "/x", []byte(`{"a": null, "b": [], "c": "kept"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, decoded.Fields())
}

func TestDecodeKeyHandling(t *testing.T) {
	decoded, err := Unmarshal(nil, "", []byte(`{"key": "/from/doc", "title": "t"}`))
	require.NoError(t, err)
	assert.Equal(t, "/from/doc", decoded.Key)
	assert.True(t, decoded.Has("title"))
	_, err = decoded.Get("key")
	assert.ErrorIs(t, err, thing.ErrKeyMissing, "key is identity, not data")

	override, err := Unmarshal(nil, "/explicit", []byte(`{"key": "/from/doc"}`))
	require.NoError(t, err)
	assert.Equal(t, "/explicit", override.Key)

	_, err = Unmarshal(nil, "", []byte(`{"title": "t"}`))
	assert.ErrorIs(t, err, ir.ErrValidation, "no key anywhere")
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not an object", `[1, 2]`},
		{"invalid json", `{"a": `},
		{"trailing data", `{"a": 1} {"b": 2}`},
		{"object without key or type", `{"a": {"foo": 1}}`},
		{"typed value missing value", `{"a": {"type": "/type/text"}}`},
		{"ref key not a string", `{"a": {"key": 5}}`},
		{"type not a string", `{"a": {"type": 5, "value": 1}}`},
		{"typed value mismatch", `{"a": {"type": "/type/int", "value": "ten"}}`},
		{"ref typed value not a string", `{"a": {"type": "/type/author", "value": 3}}`},
		{"heterogeneous list", `{"a": [1, "two"]}`},
		{"int list with float", `{"a": [1, 2.5]}`},
		{"nested list", `{"a": [[1]]}`},
		{"null in list", `{"a": [1, null]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(nil, "/x", []byte(tt.json))
			assert.ErrorIs(t, err, ir.ErrValidation)
		})
	}
}

func TestDecodeYAMLNatives(t *testing.T) {
	// YAML decoders produce int and float64 rather than json.Number
	th, err := Decode(nil, "/x", map[string]any{
		"pages": 10,
		"price": 2.5,
		"flag":  true,
		"tags":  []any{"a", "b"},
	})
	require.NoError(t, err)

	pages, _ := th.Get("pages")
	price, _ := th.Get("price")
	flag, _ := th.Get("flag")
	tags, _ := th.Get("tags")
	assert.Equal(t, ir.Int(10), pages)
	assert.Equal(t, ir.Float(2.5), price)
	assert.Equal(t, ir.Bool(true), flag)
	assert.Equal(t, ir.List{Of: ir.DatatypeString, Items: []ir.Value{ir.String("a"), ir.String("b")}}, tags)
}

func TestEncodeDataIsPlainJSON(t *testing.T) {
	doc, err := EncodeData(newBook(t).Data())
	require.NoError(t, err)
	_, hasKey := doc["key"]
	assert.False(t, hasKey)

	_, err = json.Marshal(doc)
	assert.NoError(t, err)
}
