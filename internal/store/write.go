package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/roach88/infobase/internal/ir"
	"github.com/roach88/infobase/internal/thing"
)

// TypeDelete is the type of a tombstone revision.
const TypeDelete = "/type/delete"

// Tombstone returns the data written when key is deleted.
func Tombstone(r thing.Resolver, key string) *thing.Thing {
	t := thing.New(r, key)
	_ = t.SetValue("type", ir.Ref(TypeDelete))
	return t
}

// IsDeleted reports whether t is a tombstone.
func IsDeleted(t *thing.Thing) bool {
	return t != nil && t.TypeKey() == TypeDelete
}

// Validate checks the mutation in isolation.
func (m Mutation) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Key, validation.Required),
		validation.Field(&m.Thing,
			validation.When(!m.Delete, validation.Required.Error("is required unless deleting")),
			validation.When(m.Delete, validation.Nil.Error("must be empty when deleting")),
			validation.By(func(any) error {
				if m.Thing != nil && m.Thing.Key != "" && m.Thing.Key != m.Key {
					return fmt.Errorf("key %q does not match mutation key %q", m.Thing.Key, m.Key)
				}
				return nil
			}),
		),
		validation.Field(&m.ExpectedRevision, validation.Min(0)),
	)
}

// Validate checks the request: a non-empty batch of valid mutations with
// distinct keys.
func (r WriteRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Mutations, validation.Required.Error("must not be empty")),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	seen := make(map[string]bool, len(r.Mutations))
	for i, m := range r.Mutations {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: mutation %d: %v", ErrValidation, i, err)
		}
		if seen[m.Key] {
			return fmt.Errorf("%w: duplicate key %q in one write", ErrValidation, m.Key)
		}
		seen[m.Key] = true
	}
	return nil
}

// Content returns the Thing to persist for m: the tombstone for a delete,
// otherwise a copy of m.Thing keyed by m.Key.
func (m Mutation) Content(r thing.Resolver) *thing.Thing {
	if m.Delete {
		return Tombstone(r, m.Key)
	}
	t := m.Thing.Bind(r)
	t.Key = m.Key
	return t
}

// PlanWrite validates req and assigns the next revision of every touched
// key. latest reports the key's current latest revision, 0 if it does not
// exist. A mismatched ExpectedRevision yields ErrWriteConflict.
func PlanWrite(req WriteRequest, latest func(key string) (int, error)) ([]ChangeRef, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	refs := make([]ChangeRef, len(req.Mutations))
	for i, m := range req.Mutations {
		current, err := latest(m.Key)
		if err != nil {
			return nil, err
		}
		if m.ExpectedRevision != nil && *m.ExpectedRevision != current {
			return nil, fmt.Errorf("%w: %s is at revision %d, expected %d",
				ErrWriteConflict, m.Key, current, *m.ExpectedRevision)
		}
		refs[i] = ChangeRef{Key: m.Key, Revision: current + 1}
	}
	return refs, nil
}

// ChangeKind resolves the kind recorded for req.
func ChangeKind(req WriteRequest) string {
	if req.Kind == "" {
		return KindUpdate
	}
	return req.Kind
}

// NormalizeData converts free-form change data to plain JSON natives so it
// stores and compares the same way in every backend.
func NormalizeData(data map[string]any) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: change data: %v", ErrValidation, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: change data: %v", ErrValidation, err)
	}
	// Reject values the canonical writer cannot represent.
	if _, err := ir.MarshalCanonical(out); err != nil {
		return nil, fmt.Errorf("change data: %w", err)
	}
	return out, nil
}

// IsConflict reports whether err is a write conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrWriteConflict)
}
