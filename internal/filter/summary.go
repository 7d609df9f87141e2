package filter

import (
	"fmt"
	"time"

	"github.com/partyevents/partyevents/internal/models"
)

// DateLabelLayout formats the bounds shown in the date-range chip.
const DateLabelLayout = "02/01/2006"

// Icon hints for active filter chips.
const (
	IconSearch    = "search-outline"
	IconCalendar  = "calendar-outline"
	IconCategory  = "pricetag-outline"
	IconCity      = "location-outline"
	IconAvailable = "people-outline"
	IconPublic    = "lock-open-outline"
	IconInvite    = "mail-outline"
)

// HasActiveFilters reports whether q narrows the feed. Access type is not
// considered here even though ActiveFiltersCount includes it.
func HasActiveFilters(q models.Query) bool {
	return q.SearchTerm != "" ||
		len(q.Categories) > 0 ||
		len(q.Cities) > 0 ||
		q.DateFrom != nil || q.DateTo != nil ||
		q.OnlyAvailable ||
		q.MinParticipants != nil || q.MaxParticipants != nil ||
		!q.IncludePrivate
}

// ActiveFiltersCount returns the number of active constraints. Each selected
// category and city counts on its own.
func ActiveFiltersCount(q models.Query) int {
	count := 0
	if q.SearchTerm != "" {
		count++
	}
	count += len(q.Categories)
	count += len(q.Cities)
	if q.DateFrom != nil || q.DateTo != nil {
		count++
	}
	if q.OnlyAvailable {
		count++
	}
	if q.MinParticipants != nil || q.MaxParticipants != nil {
		count++
	}
	if !q.IncludePrivate {
		count++
	}
	if q.AccessType != models.AccessTypeAll {
		count++
	}
	return count
}

// ActiveFiltersList builds one removable entry per displayed constraint in
// display order: search, categories, cities, date range, availability,
// access type. Participant bounds and visibility are counted but not listed.
func ActiveFiltersList(q models.Query) []models.ActiveFilter {
	filters := make([]models.ActiveFilter, 0, ActiveFiltersCount(q))

	if q.SearchTerm != "" {
		filters = append(filters, models.ActiveFilter{
			Kind:  models.ActiveFilterSearch,
			Label: fmt.Sprintf("%q", q.SearchTerm),
			Value: q.SearchTerm,
			Icon:  IconSearch,
		})
	}

	for _, c := range q.Categories {
		filters = append(filters, models.ActiveFilter{
			Kind:  models.ActiveFilterCategory,
			Label: c.Label(),
			Value: string(c),
			Icon:  IconCategory,
		})
	}

	for _, city := range q.Cities {
		filters = append(filters, models.ActiveFilter{
			Kind:  models.ActiveFilterCity,
			Label: city,
			Value: city,
			Icon:  IconCity,
		})
	}

	if q.DateFrom != nil || q.DateTo != nil {
		filters = append(filters, models.ActiveFilter{
			Kind:  models.ActiveFilterDateRange,
			Label: DateRangeLabel(q.DateFrom, q.DateTo),
			Value: dateRangeValue(q.DateFrom, q.DateTo),
			Icon:  IconCalendar,
		})
	}

	if q.OnlyAvailable {
		filters = append(filters, models.ActiveFilter{
			Kind:  models.ActiveFilterAvailableOnly,
			Label: "Available spots",
			Value: "true",
			Icon:  IconAvailable,
		})
	}

	switch q.AccessType {
	case models.AccessTypePublic:
		filters = append(filters, models.ActiveFilter{
			Kind:  models.ActiveFilterAccessType,
			Label: "Open access",
			Value: string(q.AccessType),
			Icon:  IconPublic,
		})
	case models.AccessTypeInvitation:
		filters = append(filters, models.ActiveFilter{
			Kind:  models.ActiveFilterAccessType,
			Label: "On invitation",
			Value: string(q.AccessType),
			Icon:  IconInvite,
		})
	}

	return filters
}

// DateRangeLabel renders the bounds for display. An open side is omitted.
func DateRangeLabel(from, to *time.Time) string {
	switch {
	case from != nil && to != nil:
		return fmt.Sprintf("%s - %s", from.Format(DateLabelLayout), to.Format(DateLabelLayout))
	case from != nil:
		return "From " + from.Format(DateLabelLayout)
	case to != nil:
		return "Until " + to.Format(DateLabelLayout)
	default:
		return ""
	}
}

func dateRangeValue(from, to *time.Time) string {
	var f, t string
	if from != nil {
		f = from.Format(time.RFC3339)
	}
	if to != nil {
		t = to.Format(time.RFC3339)
	}
	return f + "/" + t
}
