// Package explorer holds the state of one explorer session: the loaded
// event list, its loading flag, the search query and the registrations.
// Renderers read it through Snapshot and learn about changes through a
// single Subscribe point.
package explorer

import (
	"context"
	"errors"
	"sync"

	appLog "ngoexplorer/internal/log"
	"ngoexplorer/internal/model"
	"ngoexplorer/internal/registration"
	"ngoexplorer/internal/search"
)

// Fetcher produces a fresh event list. *events.Loader implements it.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.Event, error)
}

// Session is safe for concurrent use.
type Session struct {
	fetcher Fetcher
	reg     *registration.Registry

	mu      sync.Mutex
	loading bool
	events  []model.Event
	query   string
	loadErr error
	loadGen uint64
	version uint64
	// registered is the registry set as of version.
	registered registration.Set

	subs     map[int]func(State)
	nextSub  int
	unsubReg func()
}

// New returns a session in the loading state. Nothing is fetched until
// Start or Load is called.
func New(fetcher Fetcher, reg *registration.Registry) (*Session, error) {
	if fetcher == nil {
		return nil, errors.New("explorer: fetcher is nil")
	}
	if reg == nil {
		return nil, errors.New("explorer: registry is nil")
	}
	s := &Session{
		fetcher: fetcher,
		reg:     reg,
		loading:    true,
		registered: reg.Set(),
		subs:       make(map[int]func(State)),
	}
	s.unsubReg = reg.Subscribe(func(registration.Set) { s.changed() })
	return s, nil
}

// Close detaches the session from its registry.
func (s *Session) Close() {
	if s.unsubReg != nil {
		s.unsubReg()
	}
}

// Start launches the session's initial load in the background.
func (s *Session) Start(ctx context.Context) {
	go s.Load(ctx)
}

// Load fetches the event list and replaces the current one. On failure
// the error goes to the log and the list is left empty. The loading flag
// drops to false in the same critical section that stores the result.
// When loads overlap only the most recently started one is applied.
func (s *Session) Load(ctx context.Context) {
	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	wasLoading := s.loading
	s.loading = true
	s.mu.Unlock()
	if !wasLoading {
		s.changed()
	}

	evs, err := s.fetcher.Fetch(ctx)
	if err != nil {
		appLog.Error("event load failed", err)
		evs = nil
	}

	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		appLog.Debug("discarding superseded event load", "generation", gen)
		return
	}
	s.events = evs
	s.loadErr = err
	s.loading = false
	s.mu.Unlock()

	s.changed()
}

// SetQuery replaces the search text.
func (s *Session) SetQuery(q string) {
	s.mu.Lock()
	if s.query == q {
		s.mu.Unlock()
		return
	}
	s.query = q
	s.mu.Unlock()
	s.changed()
}

// Toggle flips the registration of event id and persists it.
// Subscribers are notified through the registry.
func (s *Session) Toggle(ctx context.Context, id int) error {
	_, err := s.reg.Toggle(ctx, id)
	return err
}

// Snapshot returns the current state filtered by the session query.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	q := s.query
	s.mu.Unlock()
	return s.View(q)
}

// View is Snapshot with an explicit query, leaving the session query
// untouched. Concurrent readers with different queries use it.
func (s *Session) View(query string) State {
	s.mu.Lock()
	st := State{
		Loading:       s.loading,
		Events:        s.events,
		Query:         query,
		Version:       s.version,
		Registrations: s.registered,
	}
	if s.loadErr != nil {
		st.LoadErr = s.loadErr.Error()
	}
	s.mu.Unlock()

	st.RegisteredCount = st.Registrations.Len()
	st.Visible = search.Filter(st.Events, query)
	st.Empty = !st.Loading && len(st.Visible) == 0
	return st
}

// Subscribe calls fn with a fresh snapshot after every state change.
// fn runs on the goroutine that caused the change and must not block.
func (s *Session) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// changed bumps the version and re-reads the registry in one critical
// section, so a State never pairs a version with another version's set.
func (s *Session) changed() {
	s.mu.Lock()
	s.version++
	s.registered = s.reg.Set()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if len(subs) == 0 {
		return
	}
	st := s.Snapshot()
	for _, fn := range subs {
		fn(st)
	}
}
