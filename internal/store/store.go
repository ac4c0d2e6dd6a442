package store

import (
	"context"

	"github.com/roach88/infobase/internal/query"
	"github.com/roach88/infobase/internal/thing"
)

// Reader looks Things up by key.
type Reader interface {
	// Get returns the latest revision of key, or ErrNotFound.
	Get(ctx context.Context, key string) (*thing.Thing, error)

	// GetRevision returns one historical revision of key, or ErrNotFound.
	GetRevision(ctx context.Context, key string, revision int) (*thing.Thing, error)

	// GetMany returns the Things for keys in input order. Missing keys are
	// omitted.
	GetMany(ctx context.Context, keys []string) ([]*thing.Thing, error)
}

// Writer commits mutations.
type Writer interface {
	Write(ctx context.Context, req WriteRequest) (*Change, error)
}

// Lister lists Things and revisions, most recently written first.
type Lister interface {
	// Things returns the keys of matching Things.
	Things(ctx context.Context, q query.Query) ([]string, error)

	// ThingRecords returns the matching Things themselves.
	ThingRecords(ctx context.Context, q query.Query) ([]*thing.Thing, error)

	// Versions lists revision history. Only the Key and Author filters
	// apply.
	Versions(ctx context.Context, q query.Query) ([]Version, error)
}

// ChangeFeed exposes the change log.
type ChangeFeed interface {
	RecentChanges(ctx context.Context, q ChangeQuery) ([]*Change, error)
	GetChange(ctx context.Context, id string) (*Change, error)
}

// KeyGenerator hands out keys that are never returned twice.
type KeyGenerator interface {
	NewKey(ctx context.Context, typeKey string, hints map[string]string) (string, error)
}

// Sequencer maintains named counters. NextValue returns 1, 2, 3, ... per
// name; CurrentValue peeks at the last issued value (0 if never used).
type Sequencer interface {
	NextValue(ctx context.Context, name string) (int64, error)
	CurrentValue(ctx context.Context, name string) (int64, error)
}

// UserStore keeps raw user credentials.
type UserStore interface {
	GetUserDetails(ctx context.Context, key string) (*UserDetails, error)

	// UpdateUserDetails creates or updates the user. An empty email or
	// password keeps the current value. An email owned by another user is
	// rejected with ErrValidation.
	UpdateUserDetails(ctx context.Context, key, email, encryptedPassword string) error

	// FindUser returns the key of the user owning email, or ErrNotFound.
	FindUser(ctx context.Context, email string) (string, error)
}

// DocStore holds raw JSON documents keyed by string. Listing follows the
// query package rules, filtering on the document's "type" field and one
// name/value pair.
type DocStore interface {
	// Put stores doc under key, making key the most recent document.
	Put(ctx context.Context, key string, doc []byte) error
	GetDoc(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context, q query.Query) ([]string, error)
	Values(ctx context.Context, q query.Query) ([][]byte, error)
	Items(ctx context.Context, q query.Query) ([]Document, error)
	Clear(ctx context.Context) error
}

// Store is the full backend contract.
type Store interface {
	Reader
	Writer
	Lister
	ChangeFeed
	KeyGenerator
	Sequencer
	UserStore

	// Initialize prepares the store for first use. It is idempotent.
	Initialize(ctx context.Context) error
	Close() error
}
