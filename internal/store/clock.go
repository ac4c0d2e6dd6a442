package store

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Clock supplies write timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NewChangeID returns a ULID for a change written at ts. IDs from one
// process sort in creation order as long as ts does not go backwards.
func NewChangeID(ts time.Time) string {
	id, err := ulid.New(ulid.Timestamp(ts), ulid.DefaultEntropy())
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}
