package store

import (
	"context"
	"errors"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/infobase/internal/ir"
	"github.com/roach88/infobase/internal/query"
	"github.com/roach88/infobase/internal/thing"
)

// maxGetManyConcurrency bounds concurrent Get calls in GetMany.
const maxGetManyConcurrency = 8

// GetMany fetches keys through r concurrently. Results follow the input
// order; keys that do not exist are omitted. Any other error aborts.
func GetMany(ctx context.Context, r thing.Resolver, keys []string) ([]*thing.Thing, error) {
	found := make([]*thing.Thing, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxGetManyConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			t, err := r.Get(ctx, key)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*thing.Thing, 0, len(keys))
	for _, t := range found {
		if t != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

// ThingIndex returns the index terms of every property of t, keyed by
// property name. The "type" property indexes as the type's key and only
// when it is a ref.
func ThingIndex(t *thing.Thing) map[string][]string {
	index := make(map[string][]string, t.Len())
	for name, v := range t.Data() {
		if name == query.FieldType {
			continue
		}
		index[name] = ir.IndexTerms(v)
	}
	if typeKey := t.TypeKey(); typeKey != "" {
		index[query.FieldType] = []string{typeKey}
	}
	return index
}

// ThingRecord adapts t to the listing engine.
func ThingRecord(t *thing.Thing) query.Record {
	return IndexRecord{Key: t.Key, Index: ThingIndex(t)}
}

// IndexRecord is a listing record backed by a precomputed index.
type IndexRecord struct {
	Key   string
	Index map[string][]string
}

// Terms implements query.Record.
func (r IndexRecord) Terms(field string) ([]string, bool) {
	if field == query.FieldKey {
		return []string{r.Key}, true
	}
	terms, ok := r.Index[field]
	return terms, ok
}

// IndexPairs flattens an index into sorted (name, term) pairs, the rows a
// SQL backend stores for filtering.
func IndexPairs(index map[string][]string) [][2]string {
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	slices.Sort(names)

	var pairs [][2]string
	for _, name := range names {
		for _, term := range index[name] {
			pairs = append(pairs, [2]string{name, term})
		}
	}
	return pairs
}
