package repository

import "errors"

var (
	// ErrNotFound means no document matched a point lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate means a write violated a unique index. The index, not the
	// read-then-write pre-check, is the source of truth for uniqueness.
	ErrDuplicate = errors.New("duplicate record")
)
