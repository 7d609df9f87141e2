package preferences

import (
	"encoding/json"
	"fmt"

	"github.com/partyevents/partyevents/internal/models"
)

// FiltersKey is the storage key of the last-used query.
const FiltersKey = "partyevents_filters"

// Encode serializes q to JSON. Date bounds are written as RFC 3339 strings.
func Encode(q models.Query) ([]byte, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	return data, nil
}

// Decode parses a query written by Encode and validates its enum fields.
// Fields absent from data keep their default values.
func Decode(data []byte) (models.Query, error) {
	q := models.DefaultQuery()
	if err := json.Unmarshal(data, &q); err != nil {
		return models.Query{}, fmt.Errorf("failed to decode query: %w", err)
	}
	if err := q.Validate(); err != nil {
		return models.Query{}, fmt.Errorf("invalid stored query: %w", err)
	}
	return q, nil
}
