package explorer

import (
	"ngoexplorer/internal/model"
	"ngoexplorer/internal/registration"
)

// State is an immutable view of a session.
type State struct {
	// Loading is true while the current load is outstanding.
	Loading bool
	// Events is the full loaded list; Visible is Events filtered by Query.
	Events  []model.Event
	Visible []model.Event
	Query   string

	Registrations   registration.Set
	RegisteredCount int

	// Empty is true once loading is done and nothing is visible.
	Empty bool
	// LoadErr is the last load failure, for logs and the JSON API only.
	LoadErr string
	// Version increases with every state change.
	Version uint64
}

func (s State) IsRegistered(id int) bool {
	return s.Registrations.Has(id)
}
