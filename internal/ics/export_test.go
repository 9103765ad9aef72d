package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ngoexplorer/internal/events"
	"ngoexplorer/internal/registration"
)

func TestExportOnlyRegistered(t *testing.T) {
	evs, err := events.Shape([]events.Post{
		{ID: 1, Title: "Beach cleanup"},
		{ID: 2, Title: "Food drive"},
		{ID: 3, Title: "Tree planting"},
	}, events.DefaultBaseDate)
	require.NoError(t, err)

	out := ExportRegistered(evs, registration.NewSet(2, 3, 99), time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "PRODID:"+ProductID)
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.NotContains(t, out, EventUID(1))
	assert.NotContains(t, out, EventUID(99))
	assert.Contains(t, out, "SUMMARY:Food drive")
	assert.Contains(t, out, "20260313")
	assert.Contains(t, out, "20260315")

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 2)
	uid := cal.Events()[0].GetProperty(ical.ComponentPropertyUniqueId)
	require.NotNil(t, uid)
	assert.Equal(t, EventUID(2), uid.Value)
}

func TestExportEmpty(t *testing.T) {
	out := ExportRegistered(nil, registration.NewSet(), time.Now())
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}
