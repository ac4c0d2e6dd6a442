package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/infobase/internal/query"
	"github.com/roach88/infobase/internal/store"
)

// docs is the dictionary store: raw documents with recency tracking.
type docs struct {
	mu      sync.RWMutex
	values  map[string][]byte
	written map[string]uint64
	writes  uint64
}

func newDocs() *docs {
	return &docs{
		values:  make(map[string][]byte),
		written: make(map[string]uint64),
	}
}

// Put stores doc under key. Storing an existing key replaces its value and
// makes it the most recent document.
func (s *Store) Put(ctx context.Context, key string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := store.CheckDoc(key, doc); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	d := s.docs
	d.mu.Lock()
	defer d.mu.Unlock()

	d.writes++
	d.values[key] = slices.Clone(doc)
	d.written[key] = d.writes
	return nil
}

// GetDoc returns the document stored under key.
func (s *Store) GetDoc(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := s.docs
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.values[key]
	if !ok {
		return nil, fmt.Errorf("get doc %s: %w", key, store.ErrNotFound)
	}
	return slices.Clone(v), nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := s.docs
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.values[key]; !ok {
		return fmt.Errorf("delete doc %s: %w", key, store.ErrNotFound)
	}
	delete(d.values, key)
	delete(d.written, key)
	return nil
}

// Has reports whether key holds a document.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d := s.docs
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.values[key]
	return ok, nil
}

// Items lists matching documents, most recently put first.
func (s *Store) Items(ctx context.Context, q query.Query) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	if err := q.Restrict(query.FieldType, query.FieldKey, query.AnyProperty); err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	d := s.docs
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Compare(d.written[b], d.written[a])
	})

	all := make([]store.Document, len(keys))
	for i, k := range keys {
		all[i] = store.Document{Key: k, Value: slices.Clone(d.values[k])}
	}
	return query.Page(query.Filter(all, q, store.DocRecord), q), nil
}

// Keys lists the keys of matching documents.
func (s *Store) Keys(ctx context.Context, q query.Query) ([]string, error) {
	items, err := s.Items(ctx, q)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys, nil
}

// Values lists the payloads of matching documents.
func (s *Store) Values(ctx context.Context, q query.Query) ([][]byte, error) {
	items, err := s.Items(ctx, q)
	if err != nil {
		return nil, err
	}
	values := make([][]byte, len(items))
	for i, it := range items {
		values[i] = it.Value
	}
	return values, nil
}

// Clear removes every document.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := s.docs
	d.mu.Lock()
	defer d.mu.Unlock()

	clear(d.values)
	clear(d.written)
	return nil
}
