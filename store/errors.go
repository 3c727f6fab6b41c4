package store

import "errors"

var (
	// ErrNotFound indicates the store holds no ledger state yet.
	ErrNotFound = errors.New("store: not found")

	// ErrCorrupt indicates a stored record could not be decoded.
	ErrCorrupt = errors.New("store: corrupt record")

	// ErrClosed indicates the store was used after Close.
	ErrClosed = errors.New("store: closed")
)
