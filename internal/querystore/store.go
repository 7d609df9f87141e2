package querystore

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/partyevents/partyevents/internal/models"
)

// ErrUnsupportedFilterKind is returned by RemoveActiveFilter for kinds that
// have no removal mapping.
var ErrUnsupportedFilterKind = errors.New("unsupported active filter kind")

// Snapshot is one installed query. Revision increases by one for every
// accepted change, so consumers detect changes by revision rather than by
// comparing field values.
type Snapshot struct {
	Revision uint64
	Query    models.Query
}

// Handler receives every installed snapshot.
type Handler func(Snapshot)

// Store owns the current query and broadcasts every change to subscribers in
// the order changes were applied. New subscribers are replayed the latest
// snapshot before receiving further changes.
//
// Handlers run synchronously on the mutating goroutine and must not call
// mutating Store methods themselves.
type Store struct {
	logger *slog.Logger

	// writeMu serializes install+notify so subscribers observe changes in order.
	writeMu sync.Mutex

	mu       sync.RWMutex
	current  Snapshot
	handlers map[uint64]Handler
	order    []uint64
	nextID   uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for handler panics and rejected removals.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInitial starts the store from q instead of the default query.
func WithInitial(q models.Query) Option {
	return func(s *Store) {
		s.current.Query = q.Clone()
	}
}

// New creates a store holding the default query at revision 0.
func New(opts ...Option) *Store {
	s := &Store{
		logger:   slog.Default(),
		current:  Snapshot{Query: models.DefaultQuery()},
		handlers: make(map[uint64]Handler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns a copy of the latest query.
func (s *Store) Current() models.Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Query.Clone()
}

// Revision returns the revision of the latest query.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Revision
}

// Snapshot returns the latest query together with its revision.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Revision: s.current.Revision, Query: s.current.Query.Clone()}
}

// Replace installs q wholesale.
func (s *Store) Replace(q models.Query) {
	s.install(func(models.Query) models.Query { return q.Clone() })
}

// Patch merges p over the current query. Every call installs a new revision,
// including empty patches.
func (s *Store) Patch(p models.QueryPatch) {
	s.install(func(cur models.Query) models.Query { return cur.Apply(p) })
}

// Reset installs the default query.
func (s *Store) Reset() {
	s.install(func(models.Query) models.Query { return models.DefaultQuery() })
}

// SetSearchTerm replaces the free-text search.
func (s *Store) SetSearchTerm(term string) {
	s.Patch(models.QueryPatch{SearchTerm: models.Set(term)})
}

// SetSegment replaces the temporal segment.
func (s *Store) SetSegment(segment models.Segment) {
	s.Patch(models.QueryPatch{Segment: models.Set(segment)})
}

// SetAccessType replaces the access-type filter.
func (s *Store) SetAccessType(accessType models.AccessType) {
	s.Patch(models.QueryPatch{AccessType: models.Set(accessType)})
}

// ToggleCategory adds c when absent and removes it when present.
func (s *Store) ToggleCategory(c models.Category) {
	s.install(func(cur models.Query) models.Query {
		return cur.Apply(models.QueryPatch{Categories: models.Set(models.ToggleCategory(cur.Categories, c))})
	})
}

// ToggleCity adds city when absent and removes it when present.
func (s *Store) ToggleCity(city string) {
	s.install(func(cur models.Query) models.Query {
		return cur.Apply(models.QueryPatch{Cities: models.Set(models.ToggleCity(cur.Cities, city))})
	})
}

// SetDateRange replaces both date bounds. Nil clears a bound.
func (s *Store) SetDateRange(from, to *time.Time) {
	s.Patch(models.QueryPatch{DateFrom: models.Set(from), DateTo: models.Set(to)})
}

// SetParticipantRange replaces both participant bounds. Nil clears a bound.
func (s *Store) SetParticipantRange(minimum, maximum *int) {
	s.Patch(models.QueryPatch{MinParticipants: models.Set(minimum), MaxParticipants: models.Set(maximum)})
}

// ToggleOnlyAvailable flips the availability filter.
func (s *Store) ToggleOnlyAvailable() {
	s.install(func(cur models.Query) models.Query {
		return cur.Apply(models.QueryPatch{OnlyAvailable: models.Set(!cur.OnlyAvailable)})
	})
}

// SetIncludePrivate toggles visibility of private events.
func (s *Store) SetIncludePrivate(include bool) {
	s.Patch(models.QueryPatch{IncludePrivate: models.Set(include)})
}

// SetSorting replaces sort field and direction.
func (s *Store) SetSorting(field models.SortField, order models.SortOrder) {
	s.Patch(models.QueryPatch{SortBy: models.Set(field), SortOrder: models.Set(order)})
}

// RemoveActiveFilter clears the constraint described by f. It only ever
// removes: clearing a constraint that is no longer applied leaves the query
// as is (the revision still advances). Kinds without a removal mapping leave
// the store untouched and return ErrUnsupportedFilterKind.
func (s *Store) RemoveActiveFilter(f models.ActiveFilter) error {
	switch f.Kind {
	case models.ActiveFilterSearch:
		s.SetSearchTerm("")
	case models.ActiveFilterCategory:
		s.install(func(cur models.Query) models.Query {
			return cur.Apply(models.QueryPatch{Categories: models.Set(models.RemoveCategory(cur.Categories, models.Category(f.Value)))})
		})
	case models.ActiveFilterCity:
		s.install(func(cur models.Query) models.Query {
			return cur.Apply(models.QueryPatch{Cities: models.Set(models.RemoveCity(cur.Cities, f.Value))})
		})
	case models.ActiveFilterDateRange:
		s.SetDateRange(nil, nil)
	case models.ActiveFilterAvailableOnly:
		s.Patch(models.QueryPatch{OnlyAvailable: models.Set(false)})
	case models.ActiveFilterAccessType:
		s.SetAccessType(models.AccessTypeAll)
	default:
		s.logger.Warn("ignoring removal of unsupported active filter", "kind", f.Kind, "value", f.Value)
		return fmt.Errorf("%w: %q", ErrUnsupportedFilterKind, f.Kind)
	}
	return nil
}

// Subscribe registers fn and immediately replays the latest snapshot to it.
// The returned function removes the subscription; it is safe to call twice.
func (s *Store) Subscribe(fn Handler) func() {
	// Hold writeMu so no change slips between replay and registration.
	s.writeMu.Lock()
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = fn
	s.order = append(s.order, id)
	latest := Snapshot{Revision: s.current.Revision, Query: s.current.Query.Clone()}
	s.mu.Unlock()

	s.deliver(fn, latest)
	s.writeMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.handlers, id)
			for i, hid := range s.order {
				if hid == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// SubscriberCount returns the number of active subscriptions.
func (s *Store) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

func (s *Store) install(next func(models.Query) models.Query) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	snap := Snapshot{Revision: s.current.Revision + 1, Query: next(s.current.Query)}
	s.current = snap
	handlers := make([]Handler, 0, len(s.order))
	for _, id := range s.order {
		handlers = append(handlers, s.handlers[id])
	}
	s.mu.Unlock()

	for _, h := range handlers {
		s.deliver(h, Snapshot{Revision: snap.Revision, Query: snap.Query.Clone()})
	}
}

func (s *Store) deliver(h Handler, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("query subscriber panicked", "revision", snap.Revision, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	h(snap)
}
