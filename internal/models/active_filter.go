package models

// ActiveFilterKind identifies which constraint an ActiveFilter describes.
type ActiveFilterKind string

const (
	ActiveFilterSearch        ActiveFilterKind = "search"
	ActiveFilterDateRange     ActiveFilterKind = "date-range"
	ActiveFilterCategory      ActiveFilterKind = "category"
	ActiveFilterCity          ActiveFilterKind = "city"
	ActiveFilterAvailableOnly ActiveFilterKind = "available-only"
	ActiveFilterAccessType    ActiveFilterKind = "access-type"
	ActiveFilterParticipants  ActiveFilterKind = "participants" // counted, never listed
)

// ActiveFilter describes one currently applied constraint for display and
// one-shot removal. It is derived from a Query and never stored.
type ActiveFilter struct {
	Kind  ActiveFilterKind `json:"type"`
	Label string           `json:"label"`
	Value string           `json:"value"`
	Icon  string           `json:"icon"`
}
