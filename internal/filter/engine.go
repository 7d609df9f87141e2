package filter

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/partyevents/partyevents/internal/models"
)

// DefaultLocale is the collation language used for title ordering.
const DefaultLocale = "fr"

// Engine applies a Query to an event collection. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	now  func() time.Time
	lang language.Tag
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the source of the evaluation instant.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocale sets the collation language for title sorting. Unparseable
// tags fall back to DefaultLocale.
func WithLocale(locale string) Option {
	return func(e *Engine) {
		if tag, err := language.Parse(locale); err == nil {
			e.lang = tag
		}
	}
}

// New creates an engine using the wall clock and DefaultLocale.
func New(opts ...Option) *Engine {
	e := &Engine{
		now:  time.Now,
		lang: language.MustParse(DefaultLocale),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Locale returns the collation language.
func (e *Engine) Locale() language.Tag {
	return e.lang
}

// Apply samples the clock once and runs the pipeline against that instant.
func (e *Engine) Apply(events []models.Event, counts models.ParticipantCounts, q models.Query) []models.Event {
	return e.ApplyAt(events, counts, q, e.now())
}

// ApplyAt runs the pipeline with an explicit evaluation instant. The input
// slice and map are never modified; the result is a new slice.
func (e *Engine) ApplyAt(events []models.Event, counts models.ParticipantCounts, q models.Query, now time.Time) []models.Event {
	out := make([]models.Event, 0, len(events))
	m := newMatcher(q, counts, now)
	for _, ev := range events {
		if m.matches(ev) {
			out = append(out, ev)
		}
	}
	e.sort(out, counts, q)
	return out
}

// matcher holds the per-invocation state of one pipeline run.
type matcher struct {
	q      models.Query
	counts models.ParticipantCounts
	now    time.Time
	folder cases.Caser
	term   string
}

func newMatcher(q models.Query, counts models.ParticipantCounts, now time.Time) *matcher {
	m := &matcher{
		q:      q,
		counts: counts,
		now:    now,
		folder: cases.Fold(),
	}
	if q.SearchTerm != "" {
		m.term = m.folder.String(q.SearchTerm)
	}
	return m
}

// matches applies stages 1 to 9 in order.
func (m *matcher) matches(ev models.Event) bool {
	return m.matchText(ev) &&
		m.matchSegment(ev) &&
		m.matchDateBounds(ev) &&
		m.matchCategory(ev) &&
		m.matchCity(ev) &&
		m.matchAvailability(ev) &&
		m.matchParticipantBounds(ev) &&
		m.matchVisibility(ev) &&
		m.matchAccessType(ev)
}

func (m *matcher) matchText(ev models.Event) bool {
	if m.q.SearchTerm == "" {
		return true
	}
	return m.contains(ev.Title) ||
		m.contains(ev.Description) ||
		m.contains(ev.Location.City)
}

func (m *matcher) contains(s string) bool {
	return strings.Contains(m.folder.String(s), m.term)
}

func (m *matcher) matchSegment(ev models.Event) bool {
	switch m.q.Segment {
	case models.SegmentUpcoming:
		return ev.IsUpcoming(m.now)
	case models.SegmentPast:
		return !ev.IsUpcoming(m.now)
	default:
		return true
	}
}

func (m *matcher) matchDateBounds(ev models.Event) bool {
	if m.q.DateFrom != nil && ev.Date.Before(*m.q.DateFrom) {
		return false
	}
	if m.q.DateTo != nil && ev.Date.After(*m.q.DateTo) {
		return false
	}
	return true
}

func (m *matcher) matchCategory(ev models.Event) bool {
	return len(m.q.Categories) == 0 || slices.Contains(m.q.Categories, ev.Category)
}

func (m *matcher) matchCity(ev models.Event) bool {
	return len(m.q.Cities) == 0 || slices.Contains(m.q.Cities, ev.Location.City)
}

func (m *matcher) matchAvailability(ev models.Event) bool {
	return !m.q.OnlyAvailable || !ev.IsFull(m.counts.Count(ev))
}

func (m *matcher) matchParticipantBounds(ev models.Event) bool {
	n := m.counts.Count(ev)
	if m.q.MinParticipants != nil && n < *m.q.MinParticipants {
		return false
	}
	if m.q.MaxParticipants != nil && n > *m.q.MaxParticipants {
		return false
	}
	return true
}

func (m *matcher) matchVisibility(ev models.Event) bool {
	return m.q.IncludePrivate || !ev.IsPrivate
}

func (m *matcher) matchAccessType(ev models.Event) bool {
	switch m.q.AccessType {
	case models.AccessTypePublic:
		return !ev.RequiresApproval
	case models.AccessTypeInvitation:
		return ev.RequiresApproval
	default:
		return true
	}
}

// sort orders events in place by the query's sort key. The sort is stable
// and has no secondary key.
func (e *Engine) sort(events []models.Event, counts models.ParticipantCounts, q models.Query) {
	compare := e.comparator(counts, q.SortBy)
	if q.SortOrder == models.SortOrderDesc {
		asc := compare
		compare = func(a, b models.Event) int { return -asc(a, b) }
	}
	slices.SortStableFunc(events, compare)
}

func (e *Engine) comparator(counts models.ParticipantCounts, field models.SortField) func(a, b models.Event) int {
	switch field {
	case models.SortByPopularity:
		return func(a, b models.Event) int { return cmp.Compare(counts.Count(a), counts.Count(b)) }
	case models.SortByCreatedAt:
		return func(a, b models.Event) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case models.SortByTitle:
		// Collators keep internal buffers, so each run gets its own.
		col := collate.New(e.lang)
		return func(a, b models.Event) int { return col.CompareString(a.Title, b.Title) }
	default:
		return func(a, b models.Event) int { return a.Date.Compare(b.Date) }
	}
}
