package model

import "time"

// Event is a display record synthesized from one fetched post.
// Events are immutable once loaded; a load replaces the whole list.
type Event struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Location string `json:"location"`
	Category string `json:"category"`

	// Day is the calendar day Date was formatted from. Only the
	// calendar export reads it.
	Day time.Time `json:"-"`
}

// Fixed display values assigned by position in the fetched batch.
const (
	LocationCommunityCenter = "City Community Center"
	LocationVirtual         = "Virtual Meeting"

	CategoryEnvironment   = "Environment"
	CategorySocialWelfare = "Social Welfare"
)
