package models

import (
	"fmt"
	"slices"
	"time"
)

// Query represents the complete set of filter and sort criteria applied to the
// event feed. Values are snapshots: callers receive copies and never share the
// underlying slices or pointers with the owner of the query.
type Query struct {
	// Search and time filters
	SearchTerm string     `json:"search_term"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
	Segment    Segment    `json:"segment"`

	// Set-like filters, kept in insertion order for display
	Categories []Category `json:"categories"`
	Cities     []string   `json:"cities"`

	// Participant filters
	MinParticipants *int `json:"min_participants,omitempty"`
	MaxParticipants *int `json:"max_participants,omitempty"`
	OnlyAvailable   bool `json:"only_available"`

	// Visibility filters
	IncludePrivate bool       `json:"include_private"`
	AccessType     AccessType `json:"access_type"`

	// Sorting
	SortBy    SortField `json:"sort_by"`
	SortOrder SortOrder `json:"sort_order"`
}

// Segment is a coarse temporal bucket relative to the evaluation instant.
type Segment string

const (
	SegmentAll      Segment = "all"
	SegmentUpcoming Segment = "upcoming"
	SegmentPast     Segment = "past"
)

// AccessType classifies events by whether they require organizer approval.
type AccessType string

const (
	AccessTypeAll        AccessType = "all"
	AccessTypePublic     AccessType = "public"
	AccessTypeInvitation AccessType = "invitation"
)

// SortField specifies which field to sort events by.
type SortField string

const (
	SortByDate       SortField = "date"
	SortByPopularity SortField = "popularity"
	SortByCreatedAt  SortField = "createdAt"
	SortByTitle      SortField = "title"
)

// SortOrder specifies ascending or descending sort direction.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// DefaultQuery returns the canonical query installed on reset.
func DefaultQuery() Query {
	return Query{
		SearchTerm:     "",
		Segment:        SegmentUpcoming,
		Categories:     []Category{},
		Cities:         []string{},
		OnlyAvailable:  false,
		IncludePrivate: true,
		AccessType:     AccessTypeAll,
		SortBy:         SortByDate,
		SortOrder:      SortOrderAsc,
	}
}

// Clone returns a deep copy of q.
func (q Query) Clone() Query {
	out := q
	out.DateFrom = cloneTime(q.DateFrom)
	out.DateTo = cloneTime(q.DateTo)
	out.MinParticipants = cloneInt(q.MinParticipants)
	out.MaxParticipants = cloneInt(q.MaxParticipants)
	out.Categories = cloneSlice(q.Categories)
	out.Cities = cloneSlice(q.Cities)
	return out
}

// Equal reports whether q and other hold the same criteria. Time bounds are
// compared as instants, sets are compared in insertion order.
func (q Query) Equal(other Query) bool {
	return q.SearchTerm == other.SearchTerm &&
		equalTime(q.DateFrom, other.DateFrom) &&
		equalTime(q.DateTo, other.DateTo) &&
		q.Segment == other.Segment &&
		slices.Equal(q.Categories, other.Categories) &&
		slices.Equal(q.Cities, other.Cities) &&
		equalInt(q.MinParticipants, other.MinParticipants) &&
		equalInt(q.MaxParticipants, other.MaxParticipants) &&
		q.OnlyAvailable == other.OnlyAvailable &&
		q.IncludePrivate == other.IncludePrivate &&
		q.AccessType == other.AccessType &&
		q.SortBy == other.SortBy &&
		q.SortOrder == other.SortOrder
}

// HasCategory reports whether c is selected.
func (q Query) HasCategory(c Category) bool {
	return slices.Contains(q.Categories, c)
}

// HasCity reports whether city is selected.
func (q Query) HasCity(city string) bool {
	return slices.Contains(q.Cities, city)
}

// Validate checks enum fields and applies defaults for empty ones. Unknown
// values are rejected so that malformed input never reaches the engine.
func (q *Query) Validate() error {
	// Set defaults for enums
	if q.Segment == "" {
		q.Segment = SegmentUpcoming
	}
	if q.AccessType == "" {
		q.AccessType = AccessTypeAll
	}
	if q.SortBy == "" {
		q.SortBy = SortByDate
	}
	if q.SortOrder == "" {
		q.SortOrder = SortOrderAsc
	}
	if q.Categories == nil {
		q.Categories = []Category{}
	}
	if q.Cities == nil {
		q.Cities = []string{}
	}

	switch q.Segment {
	case SegmentAll, SegmentUpcoming, SegmentPast:
	default:
		return fmt.Errorf("invalid segment %q", q.Segment)
	}
	switch q.AccessType {
	case AccessTypeAll, AccessTypePublic, AccessTypeInvitation:
	default:
		return fmt.Errorf("invalid access type %q", q.AccessType)
	}
	switch q.SortBy {
	case SortByDate, SortByPopularity, SortByCreatedAt, SortByTitle:
	default:
		return fmt.Errorf("invalid sort field %q", q.SortBy)
	}
	switch q.SortOrder {
	case SortOrderAsc, SortOrderDesc:
	default:
		return fmt.Errorf("invalid sort order %q", q.SortOrder)
	}

	// Collapse duplicates, keeping first occurrence
	q.Categories = dedupe(q.Categories)
	q.Cities = dedupe(q.Cities)

	return nil
}

// ToggleCategory returns a copy of set with c removed if present, appended otherwise.
func ToggleCategory(set []Category, c Category) []Category {
	return toggle(set, c)
}

// ToggleCity returns a copy of set with city removed if present, appended otherwise.
func ToggleCity(set []string, city string) []string {
	return toggle(set, city)
}

// RemoveCategory returns a copy of set without c.
func RemoveCategory(set []Category, c Category) []Category {
	return remove(set, c)
}

// RemoveCity returns a copy of set without city.
func RemoveCity(set []string, city string) []string {
	return remove(set, city)
}

func remove[T comparable](set []T, v T) []T {
	out := make([]T, 0, len(set))
	for _, x := range set {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func toggle[T comparable](set []T, v T) []T {
	if i := slices.Index(set, v); i >= 0 {
		out := make([]T, 0, len(set)-1)
		out = append(out, set[:i]...)
		return append(out, set[i+1:]...)
	}
	out := make([]T, 0, len(set)+1)
	out = append(out, set...)
	return append(out, v)
}

func dedupe[T comparable](in []T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
