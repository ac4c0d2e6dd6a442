package codec

import (
	"fmt"

	"github.com/roach88/infobase/internal/ir"
	"github.com/roach88/infobase/internal/thing"
)

// Marshal encodes t as canonical JSON bytes.
func Marshal(t *thing.Thing) ([]byte, error) {
	doc, err := Encode(t)
	if err != nil {
		return nil, err
	}
	out, err := ir.MarshalCanonical(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t.Key, err)
	}
	return out, nil
}

// Encode converts t into a generic JSON tree including the implicit key.
func Encode(t *thing.Thing) (map[string]any, error) {
	doc, err := EncodeData(t.Data())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t.Key, err)
	}
	doc["key"] = t.Key
	return doc, nil
}

// EncodeData converts a property map into a generic JSON tree.
func EncodeData(data map[string]ir.Value) (map[string]any, error) {
	doc := make(map[string]any, len(data)+1)
	for name, v := range data {
		enc, err := EncodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		doc[name] = enc
	}
	return doc, nil
}

// EncodeValue converts one typed value into its wire form.
func EncodeValue(v ir.Value) (any, error) {
	if l, ok := v.(ir.List); ok {
		out := make([]any, len(l.Items))
		for i, item := range l.Items {
			enc, err := encodeScalar(item)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			out[i] = enc
		}
		return out, nil
	}
	return encodeScalar(v)
}

func encodeScalar(v ir.Value) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ir.ErrValidation)
	}
	dt := v.Datatype()
	switch {
	case dt == ir.DatatypeRef:
		return map[string]any{"key": ir.Native(v)}, nil
	case dt.IsNativeLiteral():
		return ir.Native(v), nil
	default:
		typeKey, ok := ir.DatatypeToType(dt)
		if !ok {
			return nil, fmt.Errorf("%w: no type for datatype %s", ir.ErrValidation, dt)
		}
		return map[string]any{"type": typeKey, "value": ir.Native(v)}, nil
	}
}
