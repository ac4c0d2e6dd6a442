// Package thing defines the Thing, the addressable, typed, versioned record
// stored by Infobase.
//
// A Thing keeps its identity (key), its store-supplied metadata and its
// property data in separate containers, so no data field can shadow the
// key or a metadata field. References to other Things are stored as keys
// and resolved on demand through the Resolver the Thing was created with.
package thing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/infobase/internal/ir"
)

// ErrKeyMissing is returned by Get when the requested property is absent.
var ErrKeyMissing = errors.New("property not present")

// maxResolveConcurrency bounds concurrent lookups when a ref list is resolved.
const maxResolveConcurrency = 8

// Resolver looks up Things by key. A Store satisfies it.
type Resolver interface {
	Get(ctx context.Context, key string) (*Thing, error)
}

// Metadata fields supplied by the Store. Zero values mean "not set".
type Metadata struct {
	Revision       int       `json:"revision,omitempty"`
	LatestRevision int       `json:"latest_revision,omitempty"`
	Created        time.Time `json:"created,omitempty"`
	LastModified   time.Time `json:"last_modified,omitempty"`
	LastAuthor     string    `json:"last_author,omitempty"`
}

// Metadata field names as seen by Has.
const (
	MetaRevision       = "revision"
	MetaLatestRevision = "latest_revision"
	MetaCreated        = "created"
	MetaLastModified   = "last_modified"
	MetaLastAuthor     = "last_author"
)

// Has reports whether the named metadata field is set.
func (m Metadata) Has(name string) bool {
	switch name {
	case MetaRevision:
		return m.Revision > 0
	case MetaLatestRevision:
		return m.LatestRevision > 0
	case MetaCreated:
		return !m.Created.IsZero()
	case MetaLastModified:
		return !m.LastModified.IsZero()
	case MetaLastAuthor:
		return m.LastAuthor != ""
	default:
		return false
	}
}

// Thing is a record with a key, metadata and typed properties.
type Thing struct {
	Key      string
	Metadata Metadata

	resolver Resolver
	data     map[string]ir.Value
}

// New creates an empty Thing bound to resolver. resolver may be nil for
// Things that are only encoded, never dereferenced.
func New(resolver Resolver, key string) *Thing {
	return &Thing{
		Key:      key,
		resolver: resolver,
		data:     make(map[string]ir.Value),
	}
}

// NewWithData creates a Thing holding a copy of data. Every value is
// checked; lists must be homogeneous.
func NewWithData(resolver Resolver, key string, data map[string]ir.Value) (*Thing, error) {
	t := New(resolver, key)
	for name, v := range data {
		if err := t.SetValue(name, v); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Resolver returns the resolver the Thing dereferences through.
func (t *Thing) Resolver() Resolver {
	return t.resolver
}

// Bind returns a shallow copy of t resolving through r.
func (t *Thing) Bind(r Resolver) *Thing {
	c := t.Clone()
	c.resolver = r
	return c
}

// Clone returns a copy of t sharing no mutable state with it.
func (t *Thing) Clone() *Thing {
	c := &Thing{
		Key:      t.Key,
		Metadata: t.Metadata,
		resolver: t.resolver,
		data:     make(map[string]ir.Value, len(t.data)),
	}
	for k, v := range t.data {
		c.data[k] = v
	}
	return c
}

// Get returns the raw typed value of a property.
// Returns ErrKeyMissing if the property is absent.
func (t *Thing) Get(name string) (ir.Value, error) {
	v, ok := t.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrKeyMissing, name, t.Key)
	}
	return v, nil
}

// Datatype returns the datatype of a property.
// Returns ErrKeyMissing if the property is absent.
func (t *Thing) Datatype(name string) (ir.Datatype, error) {
	v, err := t.Get(name)
	if err != nil {
		return "", err
	}
	return v.Datatype(), nil
}

// GetValue returns the resolved value of a property, or nil when the
// property is absent. Literals come back as Go natives (string, int64,
// float64, bool, []any). A ref resolves to *Thing and a ref list to
// []*Thing in stored order.
func (t *Thing) GetValue(ctx context.Context, name string) (any, error) {
	v, ok := t.data[name]
	if !ok {
		return nil, nil
	}
	if v.Datatype() != ir.DatatypeRef {
		return ir.Native(v), nil
	}
	if t.resolver == nil {
		return nil, fmt.Errorf("resolve %s on %s: no resolver", name, t.Key)
	}

	switch ref := v.(type) {
	case ir.Ref:
		return t.resolver.Get(ctx, string(ref))
	case ir.List:
		return t.resolveList(ctx, ref)
	default:
		return nil, fmt.Errorf("resolve %s on %s: unexpected %T", name, t.Key, v)
	}
}

func (t *Thing) resolveList(ctx context.Context, refs ir.List) ([]*Thing, error) {
	out := make([]*Thing, len(refs.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxResolveConcurrency)
	for i, item := range refs.Items {
		key := string(item.(ir.Ref))
		g.Go(func() error {
			th, err := t.resolver.Get(gctx, key)
			if err != nil {
				return err
			}
			out[i] = th
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Field is the generic dynamic accessor. "key" yields the Thing's key;
// every other name is looked up with GetValue.
func (t *Thing) Field(ctx context.Context, name string) (any, error) {
	if name == "key" {
		return t.Key, nil
	}
	return t.GetValue(ctx, name)
}

// Set stores value under name with datatype dt. value may be an ir.Value,
// a Go native (or slice of natives), a *Thing or a []*Thing. Things are
// stored as their keys; Things are never nested inside stored data.
func (t *Thing) Set(name string, value any, dt ir.Datatype) error {
	v, err := normalize(value, dt)
	if err != nil {
		return fmt.Errorf("set %s on %s: %w", name, t.Key, err)
	}
	t.data[name] = v
	return nil
}

// SetValue stores an already-typed value.
func (t *Thing) SetValue(name string, v ir.Value) error {
	if v == nil {
		return fmt.Errorf("set %s on %s: %w: nil value", name, t.Key, ir.ErrValidation)
	}
	if l, ok := v.(ir.List); ok {
		checked, err := ir.NewList(l.Of, l.Items...)
		if err != nil {
			return fmt.Errorf("set %s on %s: %w", name, t.Key, err)
		}
		v = checked
	}
	t.data[name] = v
	return nil
}

// Delete removes a property. Removing an absent property is a no-op.
func (t *Thing) Delete(name string) {
	delete(t.data, name)
}

// Has reports whether name is "key", a set metadata field, or a stored
// property.
func (t *Thing) Has(name string) bool {
	if name == "key" || t.Metadata.Has(name) {
		return true
	}
	_, ok := t.data[name]
	return ok
}

// Fields returns the stored property names, sorted.
func (t *Thing) Fields() []string {
	names := make([]string, 0, len(t.data))
	for k := range t.data {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Data returns a copy of the property map.
func (t *Thing) Data() map[string]ir.Value {
	out := make(map[string]ir.Value, len(t.data))
	for k, v := range t.data {
		out[k] = v
	}
	return out
}

// Len returns the number of stored properties.
func (t *Thing) Len() int {
	return len(t.data)
}

// TypeKey returns the key referenced by the "type" property, or "" when
// the Thing has no ref-typed type.
func (t *Thing) TypeKey() string {
	if ref, ok := t.data["type"].(ir.Ref); ok {
		return string(ref)
	}
	return ""
}

// GetProperty looks up the Property-shaped Thing called name in this
// Thing's "properties" list. Meaningful only on type Things; returns nil
// when properties is absent or no property matches.
func (t *Thing) GetProperty(ctx context.Context, name string) (*Thing, error) {
	v, err := t.GetValue(ctx, "properties")
	if err != nil {
		return nil, err
	}

	var props []*Thing
	switch p := v.(type) {
	case nil:
		return nil, nil
	case []*Thing:
		props = p
	case *Thing:
		props = []*Thing{p}
	default:
		return nil, fmt.Errorf("%w: properties of %s is not a ref", ir.ErrValidation, t.Key)
	}

	for _, p := range props {
		if p == nil {
			continue
		}
		if n, ok := p.data["name"]; ok && ir.IndexString(n) == name {
			return p, nil
		}
	}
	return nil, nil
}

// String identifies the Thing by key.
func (t *Thing) String() string {
	return "<thing: " + strconv.Quote(t.Key) + ">"
}

// Equal reports whether t and o have the same key and the same data.
// Metadata is ignored.
func (t *Thing) Equal(o *Thing) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Key != o.Key || len(t.data) != len(o.data) {
		return false
	}
	for k, v := range t.data {
		if !ir.Equal(v, o.data[k]) {
			return false
		}
	}
	return true
}
