package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/infobase/internal/ir"
	"github.com/roach88/infobase/internal/thing"
)

// Unmarshal decodes wire JSON into a Thing bound to r. When key is empty
// the document's own "key" field supplies it.
func Unmarshal(r thing.Resolver, key string, data []byte) (*thing.Thing, error) {
	doc, err := DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: thing must be a JSON object, got %T", ir.ErrValidation, doc)
	}
	return Decode(r, key, obj)
}

// DecodeJSON parses a single JSON value keeping numbers as json.Number so
// that integers and floats stay distinguishable.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ir.ErrValidation, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ir.ErrValidation)
	}
	return doc, nil
}

// Decode converts a generic tree (from DecodeJSON or a YAML decoder) into
// a Thing. The top-level "key" is identity and never stored as data.
func Decode(r thing.Resolver, key string, doc map[string]any) (*thing.Thing, error) {
	if key == "" {
		k, ok := doc["key"].(string)
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: thing has no key", ir.ErrValidation)
		}
		key = k
	}

	data, err := DecodeData(doc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return thing.NewWithData(r, key, data)
}

// DecodeData converts every field except "key" into a typed value. Fields
// that decode to nothing (empty lists, nulls) are omitted.
func DecodeData(doc map[string]any) (map[string]ir.Value, error) {
	data := make(map[string]ir.Value, len(doc))
	for name, raw := range doc {
		if name == "key" {
			continue
		}
		v, err := DecodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		if v != nil {
			data[name] = v
		}
	}
	return data, nil
}

// DecodeValue infers the typed value of one wire value. It returns nil
// with no error when the value decodes to nothing.
func DecodeValue(raw any) (ir.Value, error) {
	if list, ok := raw.([]any); ok {
		return decodeList(list)
	}
	return decodeScalar(raw)
}

func decodeScalar(raw any) (ir.Value, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	// bool MUST be checked before any numeric case.
	case bool:
		return ir.Bool(v), nil
	case json.Number:
		return decodeNumber(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return ir.Scalar(ir.DatatypeInt, v)
	case float32, float64:
		return ir.Scalar(ir.DatatypeFloat, v)
	case string:
		return ir.String(v), nil
	case map[string]any:
		return decodeObject(v)
	case []any:
		return nil, fmt.Errorf("%w: nested list", ir.ErrValidation)
	default:
		return nil, fmt.Errorf("%w: unsupported wire value %T", ir.ErrValidation, raw)
	}
}

func decodeNumber(n json.Number) (ir.Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return ir.Int(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: bad number %s", ir.ErrValidation, s)
	}
	return ir.Float(f), nil
}

func decodeObject(obj map[string]any) (ir.Value, error) {
	if k, ok := obj["key"]; ok {
		key, ok := k.(string)
		if !ok {
			return nil, fmt.Errorf("%w: reference key must be a string, got %T", ir.ErrValidation, k)
		}
		return ir.Ref(key), nil
	}

	t, hasType := obj["type"]
	value, hasValue := obj["value"]
	if !hasType || !hasValue {
		return nil, fmt.Errorf("%w: object is neither a reference nor a typed value", ir.ErrValidation)
	}
	typeKey, ok := t.(string)
	if !ok {
		return nil, fmt.Errorf("%w: type must be a string, got %T", ir.ErrValidation, t)
	}
	return ir.Scalar(ir.TypeToDatatype(typeKey), value)
}

// decodeList decodes every element; the first element fixes the list's
// datatype and later elements are coerced to it. An empty list yields nil.
func decodeList(raw []any) (ir.Value, error) {
	items := make([]ir.Value, 0, len(raw))
	var of ir.Datatype
	for i, elem := range raw {
		v, err := decodeScalar(elem)
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", i, err)
		}
		if v == nil {
			return nil, fmt.Errorf("%w: list[%d]: null element", ir.ErrValidation, i)
		}
		if i == 0 {
			of = v.Datatype()
		} else if v.Datatype() != of {
			v, err = ir.Scalar(of, ir.Native(v))
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		items = append(items, v)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return ir.NewList(of, items...)
}
