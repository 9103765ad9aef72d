package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"ngoexplorer/internal/model"
)

const (
	// TitleWords is how many leading words of a post title are kept.
	TitleWords = 5
	// DateLayout formats Event.Date, e.g. "March 12, 2026".
	DateLayout = "January 2, 2006"
)

// Shape maps posts to events. The event at position i is scheduled i
// days after base; its location alternates by i mod 2 and its category
// is Environment whenever i mod 3 == 0.
func Shape(posts []Post, base time.Time) ([]model.Event, error) {
	if len(posts) == 0 {
		return []model.Event{}, nil
	}

	days, err := DaySequence(base, len(posts))
	if err != nil {
		return nil, err
	}

	out := make([]model.Event, 0, len(posts))
	for i, p := range posts {
		day := days[i]
		out = append(out, model.Event{
			ID:       p.ID,
			Title:    TruncateWords(p.Title, TitleWords),
			Date:     day.Format(DateLayout),
			Location: locationFor(i),
			Category: categoryFor(i),
			Day:      day,
		})
	}
	return out, nil
}

// DaySequence returns n consecutive days starting at base's calendar day.
func DaySequence(base time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}
	start := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, time.UTC)
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Count:   n,
	})
	if err != nil {
		return nil, fmt.Errorf("events: day rule: %w", err)
	}
	days := r.All()
	if len(days) != n {
		return nil, fmt.Errorf("events: day rule produced %d days, want %d", len(days), n)
	}
	return days, nil
}

// TruncateWords keeps the first n whitespace-separated words of s,
// joined by single spaces.
func TruncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func locationFor(i int) string {
	if i%2 == 0 {
		return model.LocationCommunityCenter
	}
	return model.LocationVirtual
}

func categoryFor(i int) string {
	if i%3 == 0 {
		return model.CategoryEnvironment
	}
	return model.CategorySocialWelfare
}
