package thing

import (
	"fmt"
	"reflect"

	"github.com/roach88/infobase/internal/ir"
)

// normalize converts a Go value into a typed value of datatype dt.
func normalize(value any, dt ir.Datatype) (ir.Value, error) {
	switch v := value.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil value", ir.ErrValidation)
	case ir.List:
		if v.Of != dt {
			return nil, fmt.Errorf("%w: list of %s stored as %s", ir.ErrValidation, v.Of, dt)
		}
		return ir.NewList(v.Of, v.Items...)
	case ir.Value:
		if v.Datatype() != dt {
			return nil, fmt.Errorf("%w: %s value stored as %s", ir.ErrValidation, v.Datatype(), dt)
		}
		return v, nil
	case *Thing:
		if dt != ir.DatatypeRef {
			return nil, fmt.Errorf("%w: thing %s stored as %s", ir.ErrValidation, v.Key, dt)
		}
		return ir.Ref(v.Key), nil
	case []*Thing:
		if dt != ir.DatatypeRef {
			return nil, fmt.Errorf("%w: things stored as %s", ir.ErrValidation, dt)
		}
		items := make([]ir.Value, len(v))
		for i, th := range v {
			if th == nil {
				return nil, fmt.Errorf("%w: list[%d]: nil thing", ir.ErrValidation, i)
			}
			items[i] = ir.Ref(th.Key)
		}
		return ir.NewList(dt, items...)
	case []byte:
		return ir.Scalar(dt, string(v))
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice {
		items := make([]ir.Value, rv.Len())
		for i := range items {
			item, err := normalize(rv.Index(i).Interface(), dt)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			if _, nested := item.(ir.List); nested {
				return nil, fmt.Errorf("%w: list[%d]: nested list", ir.ErrValidation, i)
			}
			items[i] = item
		}
		return ir.NewList(dt, items...)
	}

	return ir.Scalar(dt, value)
}
