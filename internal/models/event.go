package models

import (
	"time"
)

// Event represents a party or gathering published by an organizer.
type Event struct {
	ID               string    `json:"id" yaml:"id"`
	Title            string    `json:"title" yaml:"title"`
	Description      string    `json:"description" yaml:"description"`
	Location         Location  `json:"location" yaml:"location"`
	Date             time.Time `json:"date" yaml:"date"` // start of the event
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
	Category         Category  `json:"category" yaml:"category"`
	MaxParticipants  int       `json:"max_participants" yaml:"max_participants"`
	IsPrivate        bool      `json:"is_private" yaml:"is_private"`
	RequiresApproval bool      `json:"requires_approval" yaml:"requires_approval"`
	OrganizerID      string    `json:"organizer_id,omitempty" yaml:"organizer_id,omitempty"`
	ImageURL         string    `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

// Category represents the primary classification of an event.
type Category string

const (
	CategoryConcert      Category = "CONCERT"
	CategoryFestival     Category = "FESTIVAL"
	CategoryBar          Category = "BAR"
	CategoryClub         Category = "CLUB"
	CategoryPrivateParty Category = "PRIVATE_PARTY"
	CategorySport        Category = "SPORT"
	CategoryCulture      Category = "CULTURE"
	CategoryOther        Category = "OTHER"
)

var categoryLabels = map[Category]string{
	CategoryConcert:      "Concert",
	CategoryFestival:     "Festival",
	CategoryBar:          "Bar",
	CategoryClub:         "Club",
	CategoryPrivateParty: "Private party",
	CategorySport:        "Sport",
	CategoryCulture:      "Culture",
	CategoryOther:        "Other",
}

// Categories lists every known category in display order.
func Categories() []Category {
	return []Category{
		CategoryConcert,
		CategoryFestival,
		CategoryBar,
		CategoryClub,
		CategoryPrivateParty,
		CategorySport,
		CategoryCulture,
		CategoryOther,
	}
}

// Label returns the human-readable name of the category. Unknown categories
// are returned verbatim.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// IsKnown reports whether c is one of the predefined categories.
func (c Category) IsKnown() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Location represents where an event takes place.
type Location struct {
	City      string  `json:"city" yaml:"city"`
	Address   string  `json:"address,omitempty" yaml:"address,omitempty"`
	Latitude  float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
}

// ParticipantCounts maps an event ID to its live number of participants.
// Missing IDs count as zero.
type ParticipantCounts map[string]int

// Count returns the number of participants registered for the event.
func (pc ParticipantCounts) Count(e Event) int {
	if e.ID == "" || pc == nil {
		return 0
	}
	return pc[e.ID]
}

// IsFull returns true if the event has reached its capacity.
func (e *Event) IsFull(participants int) bool {
	return participants >= e.MaxParticipants
}

// IsUpcoming returns true if the event starts at or after now.
func (e *Event) IsUpcoming(now time.Time) bool {
	return !e.Date.Before(now)
}
