package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Field is an optional patch value. The zero Field is absent and leaves the
// target untouched; a Field built with Set always overwrites, including with a
// nil pointer, which clears a nullable bound.
type Field[T any] struct {
	set   bool
	value T
}

// Set returns a present Field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{set: true, value: v}
}

// Get returns the value and whether the field is present.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set
}

// IsSet reports whether the field is present.
func (f Field[T]) IsSet() bool {
	return f.set
}

// UnmarshalJSON marks the field present whenever its key appears, so an
// explicit null clears pointer-typed fields.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.set = true
	f.value = v
	return nil
}

// MarshalJSON encodes the held value; absent fields encode as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// QueryPatch is a partial Query. Absent fields are retained by Apply.
type QueryPatch struct {
	SearchTerm      Field[string]     `json:"search_term"`
	DateFrom        Field[*time.Time] `json:"date_from"`
	DateTo          Field[*time.Time] `json:"date_to"`
	Segment         Field[Segment]    `json:"segment"`
	Categories      Field[[]Category] `json:"categories"`
	Cities          Field[[]string]   `json:"cities"`
	MinParticipants Field[*int]       `json:"min_participants"`
	MaxParticipants Field[*int]       `json:"max_participants"`
	OnlyAvailable   Field[bool]       `json:"only_available"`
	IncludePrivate  Field[bool]       `json:"include_private"`
	AccessType      Field[AccessType] `json:"access_type"`
	SortBy          Field[SortField]  `json:"sort_by"`
	SortOrder       Field[SortOrder]  `json:"sort_order"`
}

// IsEmpty reports whether the patch carries no fields.
func (p QueryPatch) IsEmpty() bool {
	return !p.SearchTerm.set && !p.DateFrom.set && !p.DateTo.set && !p.Segment.set &&
		!p.Categories.set && !p.Cities.set && !p.MinParticipants.set && !p.MaxParticipants.set &&
		!p.OnlyAvailable.set && !p.IncludePrivate.set && !p.AccessType.set &&
		!p.SortBy.set && !p.SortOrder.set
}

// Validate rejects present enum fields holding unknown values and collapses
// duplicates in present sets. A present null set becomes empty.
func (p *QueryPatch) Validate() error {
	if v, ok := p.Segment.Get(); ok {
		switch v {
		case SegmentAll, SegmentUpcoming, SegmentPast:
		default:
			return fmt.Errorf("invalid segment %q", v)
		}
	}
	if v, ok := p.AccessType.Get(); ok {
		switch v {
		case AccessTypeAll, AccessTypePublic, AccessTypeInvitation:
		default:
			return fmt.Errorf("invalid access type %q", v)
		}
	}
	if v, ok := p.SortBy.Get(); ok {
		switch v {
		case SortByDate, SortByPopularity, SortByCreatedAt, SortByTitle:
		default:
			return fmt.Errorf("invalid sort field %q", v)
		}
	}
	if v, ok := p.SortOrder.Get(); ok {
		switch v {
		case SortOrderAsc, SortOrderDesc:
		default:
			return fmt.Errorf("invalid sort order %q", v)
		}
	}
	if v, ok := p.Categories.Get(); ok {
		if v == nil {
			v = []Category{}
		}
		p.Categories = Set(dedupe(v))
	}
	if v, ok := p.Cities.Get(); ok {
		if v == nil {
			v = []string{}
		}
		p.Cities = Set(dedupe(v))
	}
	return nil
}

// Apply returns a new Query with every present field of p merged over q.
// Neither q nor p share memory with the result.
func (q Query) Apply(p QueryPatch) Query {
	out := q.Clone()

	if v, ok := p.SearchTerm.Get(); ok {
		out.SearchTerm = v
	}
	if v, ok := p.DateFrom.Get(); ok {
		out.DateFrom = cloneTime(v)
	}
	if v, ok := p.DateTo.Get(); ok {
		out.DateTo = cloneTime(v)
	}
	if v, ok := p.Segment.Get(); ok {
		out.Segment = v
	}
	if v, ok := p.Categories.Get(); ok {
		out.Categories = cloneSlice(v)
	}
	if v, ok := p.Cities.Get(); ok {
		out.Cities = cloneSlice(v)
	}
	if v, ok := p.MinParticipants.Get(); ok {
		out.MinParticipants = cloneInt(v)
	}
	if v, ok := p.MaxParticipants.Get(); ok {
		out.MaxParticipants = cloneInt(v)
	}
	if v, ok := p.OnlyAvailable.Get(); ok {
		out.OnlyAvailable = v
	}
	if v, ok := p.IncludePrivate.Get(); ok {
		out.IncludePrivate = v
	}
	if v, ok := p.AccessType.Get(); ok {
		out.AccessType = v
	}
	if v, ok := p.SortBy.Get(); ok {
		out.SortBy = v
	}
	if v, ok := p.SortOrder.Get(); ok {
		out.SortOrder = v
	}

	return out
}
