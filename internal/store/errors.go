package store

import (
	"errors"

	"github.com/roach88/infobase/internal/ir"
)

var (
	// ErrNotFound reports a missing key, revision, change, user or document.
	ErrNotFound = errors.New("not found")

	// ErrWriteConflict reports a write whose expected revision did not
	// match the stored one.
	ErrWriteConflict = errors.New("write conflict")

	// ErrNotImplemented is returned by backends that lack an operation.
	ErrNotImplemented = errors.New("not implemented")

	// ErrValidation reports malformed input. It is the same sentinel the
	// value model and codec use.
	ErrValidation = ir.ErrValidation
)
