package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/infobase/internal/ir"
	"github.com/roach88/infobase/internal/query"
	"github.com/roach88/infobase/internal/thing"
)

// Change kinds. Kind is open; these are the ones the store itself uses.
const (
	KindUpdate = "update"
	KindCreate = "create"
	KindDelete = "delete"
)

// Mutation changes one key.
type Mutation struct {
	Key string

	// Thing holds the new data. Its Key, when set, must equal Key.
	Thing *thing.Thing

	// Delete writes a tombstone revision instead of Thing.
	Delete bool

	// ExpectedRevision, when set, must equal the key's latest revision.
	// 0 means the key must not exist yet.
	ExpectedRevision *int
}

// WriteRequest is one atomic write.
type WriteRequest struct {
	Mutations []Mutation
	Comment   string
	Author    string // key of the author, empty for anonymous
	IP        string
	Kind      string // defaults to KindUpdate
	Data      map[string]any
}

// ChangeRef names one revision touched by a change.
type ChangeRef struct {
	Key      string `json:"key"`
	Revision int    `json:"revision"`
}

// Change is the record produced by one Write.
type Change struct {
	ID        string
	Kind      string
	Author    string
	IP        string
	Timestamp time.Time
	Comment   string
	Changes   []ChangeRef
	Data      map[string]any
}

// MarshalJSON writes the change in its wire shape. An empty author or IP
// is written as null and Data is never omitted.
func (c Change) MarshalJSON() ([]byte, error) {
	changes := make([]any, len(c.Changes))
	for i, ref := range c.Changes {
		changes[i] = map[string]any{"key": ref.Key, "revision": ref.Revision}
	}
	data := c.Data
	if data == nil {
		data = map[string]any{}
	}
	return ir.MarshalCanonical(map[string]any{
		"id":        c.ID,
		"kind":      c.Kind,
		"author":    nullable(c.Author),
		"ip":        nullable(c.IP),
		"timestamp": c.Timestamp.UTC().Format(time.RFC3339Nano),
		"comment":   c.Comment,
		"changes":   changes,
		"data":      data,
	})
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type changeWire struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Author    *string        `json:"author"`
	IP        *string        `json:"ip"`
	Timestamp string         `json:"timestamp"`
	Comment   string         `json:"comment"`
	Changes   []ChangeRef    `json:"changes"`
	Data      map[string]any `json:"data"`
}

// UnmarshalJSON reads the wire shape written by MarshalJSON.
func (c *Change) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var w changeWire
	if err := dec.Decode(&w); err != nil {
		return fmt.Errorf("%w: decode change: %v", ErrValidation, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: change timestamp %q: %v", ErrValidation, w.Timestamp, err)
	}
	*c = Change{
		ID:        w.ID,
		Kind:      w.Kind,
		Timestamp: ts,
		Comment:   w.Comment,
		Changes:   w.Changes,
		Data:      w.Data,
	}
	if w.Author != nil {
		c.Author = *w.Author
	}
	if w.IP != nil {
		c.IP = *w.IP
	}
	if c.Changes == nil {
		c.Changes = []ChangeRef{}
	}
	if c.Data == nil {
		c.Data = map[string]any{}
	}
	return nil
}

// Keys returns the keys touched by the change.
func (c *Change) Keys() []string {
	keys := make([]string, len(c.Changes))
	for i, ref := range c.Changes {
		keys[i] = ref.Key
	}
	return keys
}

// Terms exposes the change to the listing engine.
func (c *Change) Terms(field string) ([]string, bool) {
	switch field {
	case query.FieldKey:
		return c.Keys(), true
	case query.FieldAuthor:
		return []string{c.Author}, true
	case query.FieldKind:
		return []string{c.Kind}, true
	default:
		return nil, false
	}
}

// ChangeQuery filters the change feed.
type ChangeQuery struct {
	Key    string // changes touching this key
	Author string
	Kind   string
	Limit  *int
	Offset int
}

// Query converts cq to a listing query.
func (cq ChangeQuery) Query() query.Query {
	return query.Query{
		Key:    cq.Key,
		Author: cq.Author,
		Kind:   cq.Kind,
		Limit:  cq.Limit,
		Offset: cq.Offset,
	}
}

// Version describes one revision of a key.
type Version struct {
	Key      string    `json:"key"`
	Revision int       `json:"revision"`
	Author   string    `json:"author,omitempty"`
	IP       string    `json:"ip,omitempty"`
	Comment  string    `json:"comment,omitempty"`
	Kind     string    `json:"kind"`
	ChangeID string    `json:"change_id"`
	Created  time.Time `json:"created"`
}

// Terms exposes the version to the listing engine.
func (v Version) Terms(field string) ([]string, bool) {
	switch field {
	case query.FieldKey:
		return []string{v.Key}, true
	case query.FieldAuthor:
		return []string{v.Author}, true
	default:
		return nil, false
	}
}

// UserDetails is the stored credential record of a user.
type UserDetails struct {
	Key               string `json:"key"`
	Email             string `json:"email"`
	EncryptedPassword string `json:"enc_password"`
}

// Document is one entry of a DocStore.
type Document struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}
