package query

import (
	"fmt"

	"github.com/roach88/infobase/internal/ir"
)

// DefaultLimit caps listings that do not set a limit.
const DefaultLimit = 100

// ErrInvalidQuery reports a malformed query. It wraps ir.ErrValidation.
var ErrInvalidQuery = fmt.Errorf("invalid query: %w", ir.ErrValidation)

// Field names understood by the built-in filters.
const (
	FieldType   = "type"
	FieldKey    = "key"
	FieldAuthor = "author"
	FieldKind   = "kind"
)

// Query describes a filtered, paginated listing.
type Query struct {
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	Key    string `json:"key,omitempty" yaml:"key,omitempty"`
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
	Kind   string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Name and Value filter on one property. Value is compared with the
	// property's index text (see ir.IndexString).
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	Limit  *int `json:"limit,omitempty" yaml:"limit,omitempty"`
	Offset int  `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// WithLimit returns a copy of q capped at n records. A negative n removes
// the cap.
func (q Query) WithLimit(n int) Query {
	q.Limit = &n
	return q
}

// EffectiveLimit resolves the limit: DefaultLimit when unset, -1 for
// unlimited, otherwise the limit itself.
func (q Query) EffectiveLimit() int {
	if q.Limit == nil {
		return DefaultLimit
	}
	if *q.Limit < 0 {
		return -1
	}
	return *q.Limit
}

// Validate checks that the query is well formed.
func (q Query) Validate() error {
	if q.Offset < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrInvalidQuery, q.Offset)
	}
	if q.Name == "" && q.Value != "" {
		return fmt.Errorf("%w: value filter without a property name", ErrInvalidQuery)
	}
	return nil
}

// AnyProperty may be passed to Restrict to allow a Name/Value filter on
// any property.
const AnyProperty = "*"

// Fields lists the record fields q filters on, in predicate order.
func (q Query) Fields() []string {
	var fields []string
	for _, f := range []struct {
		name, value string
	}{
		{FieldType, q.Type},
		{FieldKey, q.Key},
		{FieldAuthor, q.Author},
		{FieldKind, q.Kind},
	} {
		if f.value != "" {
			fields = append(fields, f.name)
		}
	}
	if q.Name != "" {
		fields = append(fields, q.Name)
	}
	return fields
}

// Restrict returns an error when q filters on a field outside allowed.
// The property filter passes when allowed names its property or contains
// AnyProperty.
func (q Query) Restrict(allowed ...string) error {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	check := func(field string) error {
		if !ok[field] {
			return fmt.Errorf("%w: cannot filter on %q here", ErrInvalidQuery, field)
		}
		return nil
	}
	for _, f := range []struct {
		name, value string
	}{
		{FieldType, q.Type},
		{FieldKey, q.Key},
		{FieldAuthor, q.Author},
		{FieldKind, q.Kind},
	} {
		if f.value == "" {
			continue
		}
		if err := check(f.name); err != nil {
			return err
		}
	}
	if q.Name != "" && !ok[AnyProperty] {
		return check(q.Name)
	}
	return nil
}

// Predicate converts the filters of q into a predicate. A query without
// filters yields an empty And, which matches everything.
func (q Query) Predicate() Predicate {
	var preds []Predicate
	add := func(field, value string) {
		if value != "" {
			preds = append(preds, Equals{Field: field, Value: value})
		}
	}
	add(FieldType, q.Type)
	add(FieldKey, q.Key)
	add(FieldAuthor, q.Author)
	add(FieldKind, q.Kind)
	if q.Name != "" {
		preds = append(preds, Equals{Field: q.Name, Value: q.Value})
	}
	return And{Predicates: preds}
}
