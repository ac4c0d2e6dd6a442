package ir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Verify all types implement Value (compile-time check via assignment)
	var _ Value = String("s")
	var _ Value = Key("/k")
	var _ Value = Text("t")
	var _ Value = Int(1)
	var _ Value = Float(1.5)
	var _ Value = Bool(true)
	var _ Value = Datetime("2008-01-01T00:00:00Z")
	var _ Value = Ref("/author/test")
	var _ Value = List{Of: DatatypeInt}
}

func TestNewList(t *testing.T) {
	l, err := NewList(DatatypeRef, Ref("/a"), Ref("/b"))
	require.NoError(t, err)
	assert.Equal(t, DatatypeRef, l.Datatype())
	assert.Equal(t, 2, l.Len())

	_, err = NewList(DatatypeRef, Ref("/a"), String("/b"))
	assert.ErrorIs(t, err, ErrValidation, "heterogeneous list")

	_, err = NewList(DatatypeInt, List{Of: DatatypeInt})
	assert.ErrorIs(t, err, ErrValidation, "nested list")

	_, err = NewList(DatatypeInt, nil)
	assert.ErrorIs(t, err, ErrValidation, "nil element")

	_, err = NewList(Datatype("blob"))
	assert.ErrorIs(t, err, ErrValidation, "unknown datatype")

	empty, err := NewList(DatatypeText)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestScalar(t *testing.T) {
	when := time.Date(2008, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dt      Datatype
		in      any
		want    Value
		wantErr bool
	}{
		{name: "str", dt: DatatypeString, in: "x", want: String("x")},
		{name: "key", dt: DatatypeKey, in: "/a", want: Key("/a")},
		{name: "text", dt: DatatypeText, in: "long", want: Text("long")},
		{name: "ref", dt: DatatypeRef, in: "/author/test", want: Ref("/author/test")},
		{name: "datetime string", dt: DatatypeDatetime, in: "2008-03-01T12:00:00Z", want: Datetime("2008-03-01T12:00:00Z")},
		{name: "datetime time", dt: DatatypeDatetime, in: when, want: Datetime("2008-03-01T12:00:00Z")},
		{name: "int", dt: DatatypeInt, in: 10, want: Int(10)},
		{name: "int from json.Number", dt: DatatypeInt, in: json.Number("42"), want: Int(42)},
		{name: "int rejects fraction", dt: DatatypeInt, in: json.Number("4.2"), wantErr: true},
		{name: "int rejects float", dt: DatatypeInt, in: 1.5, wantErr: true},
		{name: "int rejects bool", dt: DatatypeInt, in: true, wantErr: true},
		{name: "float", dt: DatatypeFloat, in: 1.5, want: Float(1.5)},
		{name: "float widens int", dt: DatatypeFloat, in: int64(2), want: Float(2)},
		{name: "boolean", dt: DatatypeBoolean, in: false, want: Bool(false)},
		{name: "boolean rejects int", dt: DatatypeBoolean, in: 1, wantErr: true},
		{name: "ref rejects int", dt: DatatypeRef, in: 1, wantErr: true},
		{name: "unknown datatype", dt: Datatype("blob"), in: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Scalar(tt.dt, tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNative(t *testing.T) {
	assert.Equal(t, "x", Native(String("x")))
	assert.Equal(t, int64(3), Native(Int(3)))
	assert.Equal(t, 2.5, Native(Float(2.5)))
	assert.Equal(t, true, Native(Bool(true)))
	assert.Equal(t, "/a", Native(Ref("/a")))
	assert.Equal(t, []any{int64(1), int64(2)}, Native(List{Of: DatatypeInt, Items: []Value{Int(1), Int(2)}}))
}

func TestIndexTermsAndMatches(t *testing.T) {
	assert.Equal(t, "10", IndexString(Int(10)))
	assert.Equal(t, "1.5", IndexString(Float(1.5)))
	assert.Equal(t, "true", IndexString(Bool(true)))
	assert.Equal(t, "/a", IndexString(Ref("/a")))

	l := List{Of: DatatypeString, Items: []Value{String("a"), String("b")}}
	assert.Equal(t, []string{"a", "b"}, IndexTerms(l))
	assert.True(t, Matches(l, "b"))
	assert.False(t, Matches(l, "c"))
	assert.True(t, Matches(String("y"), "y"))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(String("a"), String("a")))
	assert.False(t, Equal(String("a"), Key("a")), "datatype is part of identity")
	assert.False(t, Equal(Int(1), Float(1)))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, Int(1)))

	a := List{Of: DatatypeRef, Items: []Value{Ref("/a"), Ref("/b")}}
	b := List{Of: DatatypeRef, Items: []Value{Ref("/a"), Ref("/b")}}
	c := List{Of: DatatypeRef, Items: []Value{Ref("/b"), Ref("/a")}}
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c), "order matters")
	assert.False(t, Equal(a, Ref("/a")))
}
