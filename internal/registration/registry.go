package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ngoexplorer/internal/kv"
	appLog "ngoexplorer/internal/log"
)

// MalformedPolicy decides what Open does when the slot cannot be decoded.
type MalformedPolicy string

const (
	// PolicyFail makes Open return the decode error.
	PolicyFail MalformedPolicy = "fail"
	// PolicyReset logs the error and starts from the empty set. It also
	// covers a store whose backing data is corrupt (kv.ErrCorrupt). The slot
	// is left as-is until the next toggle overwrites it.
	PolicyReset MalformedPolicy = "reset"
)

// Registry is the live registration set of one session. Every Toggle is
// written through to the store before subscribers are notified.
type Registry struct {
	store kv.Store
	key   string

	mu   sync.Mutex
	set  Set
	subs map[int]func(Set)
	next int
}

// Open seeds a Registry from the slot at key.
func Open(ctx context.Context, store kv.Store, key string, policy MalformedPolicy) (*Registry, error) {
	if store == nil {
		return nil, errors.New("registration: store is nil")
	}
	if key == "" {
		key = DefaultKey
	}

	set, err := Load(ctx, store, key)
	if err != nil {
		unreadable := errors.Is(err, ErrMalformed) || errors.Is(err, kv.ErrCorrupt)
		if !unreadable || policy != PolicyReset {
			return nil, err
		}
		appLog.Error("registrations unreadable; starting empty", err, "key", key)
		set = NewSet()
	}

	appLog.Info("registrations loaded", "key", key, "count", set.Len())
	return &Registry{
		store: store,
		key:   key,
		set:   set,
		subs:  make(map[int]func(Set)),
	}, nil
}

// Set returns the current set.
func (r *Registry) Set() Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set
}

func (r *Registry) Has(id int) bool {
	return r.Set().Has(id)
}

func (r *Registry) Count() int {
	return r.Set().Len()
}

// Toggle flips id and persists the full set. When the write fails the
// in-memory set is left unchanged and the error is returned.
func (r *Registry) Toggle(ctx context.Context, id int) (Set, error) {
	r.mu.Lock()
	next := Toggle(r.set, id)
	if err := Persist(ctx, r.store, r.key, next); err != nil {
		r.mu.Unlock()
		return Set{}, fmt.Errorf("toggle %d: %w", id, err)
	}
	r.set = next
	subs := r.snapshotSubsLocked()
	r.mu.Unlock()

	appLog.Debug("registration toggled", "id", id, "registered", next.Has(id), "count", next.Len())
	for _, fn := range subs {
		fn(next)
	}
	return next, nil
}

// Subscribe registers fn to be called with the new set after every
// toggle. The returned func removes the subscription.
func (r *Registry) Subscribe(fn func(Set)) (cancel func()) {
	r.mu.Lock()
	id := r.next
	r.next++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *Registry) snapshotSubsLocked() []func(Set) {
	out := make([]func(Set), 0, len(r.subs))
	for _, fn := range r.subs {
		out = append(out, fn)
	}
	return out
}
