// Package registration keeps the set of event ids the user registered
// for and mirrors it into a kv.Store slot after every change.
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ngoexplorer/internal/kv"
)

// DefaultKey is the storage slot registrations live under.
const DefaultKey = "ngo-registrations"

// ErrMalformed is wrapped by Load when the slot holds something other
// than a JSON array of integers.
var ErrMalformed = errors.New("registration: malformed stored set")

// Load reads the slot at key. An absent slot is the empty set.
func Load(ctx context.Context, store kv.Store, key string) (Set, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return Set{}, fmt.Errorf("registration: read %q: %w", key, err)
	}
	if !ok {
		return NewSet(), nil
	}

	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return Set{}, fmt.Errorf("%w: key %q: %v", ErrMalformed, key, err)
	}
	// "null" decodes without error into a nil slice.
	if ids == nil {
		return Set{}, fmt.Errorf("%w: key %q: not an array", ErrMalformed, key)
	}
	return NewSet(ids...), nil
}

// Persist overwrites the slot at key with set encoded as a JSON array.
func Persist(ctx context.Context, store kv.Store, key string, set Set) error {
	raw, err := json.Marshal(set.IDs())
	if err != nil {
		return err
	}
	if err := store.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("registration: write %q: %w", key, err)
	}
	return nil
}
