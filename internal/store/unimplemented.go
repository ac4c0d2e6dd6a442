package store

import (
	"context"
	"fmt"

	"github.com/roach88/infobase/internal/query"
	"github.com/roach88/infobase/internal/thing"
)

// Unimplemented can be embedded by partial backends. Every operation
// returns ErrNotImplemented except Initialize and Close, which do nothing,
// and NewKey, which returns a random key.
type Unimplemented struct{}

var _ Store = Unimplemented{}

func notImplemented(op string) error {
	return fmt.Errorf("%s: %w", op, ErrNotImplemented)
}

func (Unimplemented) Get(context.Context, string) (*thing.Thing, error) {
	return nil, notImplemented("get")
}

func (Unimplemented) GetRevision(context.Context, string, int) (*thing.Thing, error) {
	return nil, notImplemented("get revision")
}

func (Unimplemented) GetMany(context.Context, []string) ([]*thing.Thing, error) {
	return nil, notImplemented("get many")
}

func (Unimplemented) Write(context.Context, WriteRequest) (*Change, error) {
	return nil, notImplemented("write")
}

func (Unimplemented) Things(context.Context, query.Query) ([]string, error) {
	return nil, notImplemented("things")
}

func (Unimplemented) ThingRecords(context.Context, query.Query) ([]*thing.Thing, error) {
	return nil, notImplemented("thing records")
}

func (Unimplemented) Versions(context.Context, query.Query) ([]Version, error) {
	return nil, notImplemented("versions")
}

func (Unimplemented) RecentChanges(context.Context, ChangeQuery) ([]*Change, error) {
	return nil, notImplemented("recent changes")
}

func (Unimplemented) GetChange(context.Context, string) (*Change, error) {
	return nil, notImplemented("get change")
}

// NewKey returns a random key under the type's prefix.
func (Unimplemented) NewKey(_ context.Context, typeKey string, _ map[string]string) (string, error) {
	return RandomKey(KeyPrefix(typeKey)), nil
}

func (Unimplemented) NextValue(context.Context, string) (int64, error) {
	return 0, notImplemented("next value")
}

func (Unimplemented) CurrentValue(context.Context, string) (int64, error) {
	return 0, notImplemented("current value")
}

func (Unimplemented) GetUserDetails(context.Context, string) (*UserDetails, error) {
	return nil, notImplemented("get user details")
}

func (Unimplemented) UpdateUserDetails(context.Context, string, string, string) error {
	return notImplemented("update user details")
}

func (Unimplemented) FindUser(context.Context, string) (string, error) {
	return "", notImplemented("find user")
}

func (Unimplemented) Initialize(context.Context) error { return nil }

func (Unimplemented) Close() error { return nil }
