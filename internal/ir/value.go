package ir

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ErrValidation reports a malformed typed value: a value that does not fit
// its datatype, a heterogeneous list, or a nested list.
var ErrValidation = errors.New("validation error")

// Value is a sealed interface representing a typed property value.
// Only String, Key, Text, Int, Float, Bool, Datetime, Ref and List
// implement it.
type Value interface {
	Datatype() Datatype
	irValue() // Sealed - only these types implement it
}

// String is a short string literal (datatype str).
type String string

func (String) irValue()           {}
func (String) Datatype() Datatype { return DatatypeString }

// Key is a key-shaped string literal. It is not a reference.
type Key string

func (Key) irValue()           {}
func (Key) Datatype() Datatype { return DatatypeKey }

// Text is a long-form string literal.
type Text string

func (Text) irValue()           {}
func (Text) Datatype() Datatype { return DatatypeText }

// Int is an integer literal. Always int64.
type Int int64

func (Int) irValue()           {}
func (Int) Datatype() Datatype { return DatatypeInt }

// Float is a floating point literal.
type Float float64

func (Float) irValue()           {}
func (Float) Datatype() Datatype { return DatatypeFloat }

// Bool is a boolean literal.
type Bool bool

func (Bool) irValue()           {}
func (Bool) Datatype() Datatype { return DatatypeBoolean }

// Datetime is a timestamp literal kept in its textual form so that stored
// values round-trip byte for byte.
type Datetime string

func (Datetime) irValue()           {}
func (Datetime) Datatype() Datatype { return DatatypeDatetime }

// NewDatetime formats t as a Datetime value.
func NewDatetime(t time.Time) Datetime {
	return Datetime(t.UTC().Format(time.RFC3339Nano))
}

// Time parses the datetime text.
func (d Datetime) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, string(d))
}

// Ref is the key of another Thing.
type Ref string

func (Ref) irValue()           {}
func (Ref) Datatype() Datatype { return DatatypeRef }

// List is a homogeneous list of scalar values. The datatype of a list is
// the datatype of its elements.
type List struct {
	Of    Datatype
	Items []Value
}

func (List) irValue() {}

// Datatype returns the element datatype.
func (l List) Datatype() Datatype { return l.Of }

// Len returns the number of elements.
func (l List) Len() int { return len(l.Items) }

// NewList creates a List of datatype of. Every item must be a scalar of
// that datatype.
func NewList(of Datatype, items ...Value) (List, error) {
	if !of.IsValid() {
		return List{}, fmt.Errorf("%w: unknown datatype %q", ErrValidation, of)
	}
	for i, item := range items {
		if _, ok := item.(List); ok {
			return List{}, fmt.Errorf("%w: list[%d]: nested list", ErrValidation, i)
		}
		if item == nil || item.Datatype() != of {
			return List{}, fmt.Errorf("%w: list[%d]: expected %s, got %s", ErrValidation, i, of, datatypeOf(item))
		}
	}
	return List{Of: of, Items: items}, nil
}

func datatypeOf(v Value) string {
	if v == nil {
		return "null"
	}
	return string(v.Datatype())
}

// Scalar builds a scalar value of datatype dt from a Go native value.
// Strings are accepted for key, str, text, datetime and ref; integers and
// json.Number without a fraction for int; any number for float; bool for
// boolean. A time.Time is accepted for datetime.
func Scalar(dt Datatype, v any) (Value, error) {
	switch dt {
	case DatatypeKey, DatatypeString, DatatypeText, DatatypeRef:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(dt, v)
		}
		switch dt {
		case DatatypeKey:
			return Key(s), nil
		case DatatypeText:
			return Text(s), nil
		case DatatypeRef:
			return Ref(s), nil
		default:
			return String(s), nil
		}
	case DatatypeDatetime:
		switch val := v.(type) {
		case string:
			return Datetime(val), nil
		case time.Time:
			return NewDatetime(val), nil
		default:
			return nil, mismatch(dt, v)
		}
	case DatatypeInt:
		n, ok := toInt64(v)
		if !ok {
			return nil, mismatch(dt, v)
		}
		return Int(n), nil
	case DatatypeFloat:
		f, ok := toFloat64(v)
		if !ok {
			return nil, mismatch(dt, v)
		}
		return Float(f), nil
	case DatatypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(dt, v)
		}
		return Bool(b), nil
	default:
		return nil, fmt.Errorf("%w: unknown datatype %q", ErrValidation, dt)
	}
}

func mismatch(dt Datatype, v any) error {
	return fmt.Errorf("%w: %T is not a valid %s value", ErrValidation, v, dt)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case Int:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case Float:
		return float64(n), true
	default:
		if i, ok := toInt64(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}

// Native converts a value to a plain Go value: string, int64, float64,
// bool, or []any for lists. Ref values become their key string.
func Native(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Key:
		return string(val)
	case Text:
		return string(val)
	case Datetime:
		return string(val)
	case Ref:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val.Items))
		for i, item := range val.Items {
			out[i] = Native(item)
		}
		return out
	default:
		return nil
	}
}

// IndexString returns the text used to compare a scalar against an
// equality filter. Lists have no single index string; use Matches.
func IndexString(v Value) string {
	switch val := v.(type) {
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case List:
		return ""
	default:
		if s, ok := Native(v).(string); ok {
			return s
		}
		return ""
	}
}

// IndexTerms returns every index string of v: one for a scalar, one per
// element for a list.
func IndexTerms(v Value) []string {
	if l, ok := v.(List); ok {
		terms := make([]string, len(l.Items))
		for i, item := range l.Items {
			terms[i] = IndexString(item)
		}
		return terms
	}
	return []string{IndexString(v)}
}

// Matches reports whether v equals target under index comparison. A list
// matches when any of its elements does.
func Matches(v Value, target string) bool {
	for _, term := range IndexTerms(v) {
		if term == target {
			return true
		}
	}
	return false
}

// Equal reports whether a and b have the same datatype and value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	la, aIsList := a.(List)
	lb, bIsList := b.(List)
	if aIsList != bIsList {
		return false
	}
	if !aIsList {
		return a == b
	}
	if la.Of != lb.Of || len(la.Items) != len(lb.Items) {
		return false
	}
	for i := range la.Items {
		if !Equal(la.Items[i], lb.Items[i]) {
			return false
		}
	}
	return true
}
