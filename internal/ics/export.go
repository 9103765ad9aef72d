// Package ics renders the user's registered events as an iCalendar feed.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"ngoexplorer/internal/model"
	"ngoexplorer/internal/registration"
)

const ProductID = "-//ngoexplorer//Impact Explorer//EN"

// ExportRegistered returns a VCALENDAR with one all-day VEVENT for every
// loaded event whose id is in registered. Registered ids that are not in
// events are skipped since there is nothing to describe them with.
func ExportRegistered(events []model.Event, registered registration.Set, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)

	for _, ev := range events {
		if !registered.Has(ev.ID) {
			continue
		}
		ve := cal.AddEvent(EventUID(ev.ID))
		ve.SetDtStampTime(now.UTC())
		ve.SetSummary(ev.Title)
		ve.SetLocation(ev.Location)
		ve.AddProperty(ical.ComponentPropertyCategories, ev.Category)
		if !ev.Day.IsZero() {
			ve.SetAllDayStartAt(ev.Day)
			ve.SetAllDayEndAt(ev.Day.AddDate(0, 0, 1))
		}
	}
	return cal.Serialize()
}

// EventUID is the stable iCalendar UID of an event.
func EventUID(id int) string {
	return fmt.Sprintf("event-%d@ngoexplorer", id)
}
