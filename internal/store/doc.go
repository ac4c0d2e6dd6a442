// Package store defines the contract every Infobase storage backend honors.
//
// A Store persists versioned Things, records one change per write, lists
// Things and revisions through the shared listing engine (package query),
// hands out fresh keys and named sequence values, and keeps raw user
// credentials. The contract is split into small capability interfaces
// composed into Store; shared logic lives in free functions here so
// backends only implement primitives.
//
// # Versioning
//
//   - Every committed mutation of a key produces the next revision for that
//     key, starting at 1. Older revisions stay retrievable.
//   - A write is all-or-nothing and produces exactly one Change.
//   - Deletion writes a tombstone revision of type /type/delete; nothing is
//     physically removed.
//
// # Errors
//
// Backends return (possibly wrapped) ErrNotFound, ErrValidation,
// ErrWriteConflict and ErrNotImplemented; callers classify them with
// errors.Is.
package store
