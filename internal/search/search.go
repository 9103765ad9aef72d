// Package search derives the visible subset of the event list from the
// current query text.
package search

import (
	"strings"

	"golang.org/x/text/cases"

	"ngoexplorer/internal/model"
)

// Filter returns the events whose title contains query, ignoring case.
// Relative order is preserved. An empty query returns events unchanged.
func Filter(events []model.Event, query string) []model.Event {
	if query == "" {
		return events
	}

	// A Caser keeps state; one per call keeps Filter goroutine-safe.
	fold := cases.Fold()
	needle := fold.String(query)

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if strings.Contains(fold.String(ev.Title), needle) {
			out = append(out, ev)
		}
	}
	return out
}
