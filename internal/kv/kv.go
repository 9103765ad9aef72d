// Package kv defines the key-value storage port the registration store
// persists through, plus in-memory and JSON-file implementations.
// A SQLite implementation lives in kv/sqlite.
package kv

import (
	"context"
	"errors"
)

// ErrCorrupt is wrapped when a store's backing data cannot be decoded at
// all, as opposed to a single slot holding bad content.
var ErrCorrupt = errors.New("kv: corrupt store")

// Store is a flat string key-value slot store.
type Store interface {
	// Get returns the value stored under key. ok is false when the key
	// has never been written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key, value string) error
}
