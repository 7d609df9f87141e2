package feed

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/partyevents/partyevents/internal/eventsource"
	"github.com/partyevents/partyevents/internal/filter"
	"github.com/partyevents/partyevents/internal/metrics"
	"github.com/partyevents/partyevents/internal/models"
	"github.com/partyevents/partyevents/internal/querystore"
)

// View is the filtered feed computed from one query revision and one
// dataset version.
type View struct {
	QueryRevision      uint64                `json:"query_revision"`
	DatasetVersion     uint64                `json:"dataset_version"`
	Query              models.Query          `json:"query"`
	Events             []models.Event        `json:"events"`
	Total              int                   `json:"total"`
	ActiveFilters      []models.ActiveFilter `json:"active_filters"`
	ActiveFiltersCount int                   `json:"active_filters_count"`
	HasActiveFilters   bool                  `json:"has_active_filters"`
	ComputedAt         time.Time             `json:"computed_at"`
}

// Feed composes the query store with the filter engine. It recomputes the
// view whenever the query or the dataset changes and serves the cached view
// to readers.
type Feed struct {
	engine  *filter.Engine
	metrics *metrics.FeedCollector
	logger  *slog.Logger
	now     func() time.Time

	mu             sync.RWMutex
	query          querystore.Snapshot
	dataset        eventsource.Dataset
	datasetVersion uint64
	view           View

	unsubscribe func()
}

// Option configures a Feed.
type Option func(*Feed)

// WithMetrics records pipeline runs on c.
func WithMetrics(c *metrics.FeedCollector) Option {
	return func(f *Feed) { f.metrics = c }
}

// WithLogger sets the feed logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Feed) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithClock sets the clock used for both the pipeline and ComputedAt.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) {
		if now != nil {
			f.now = now
		}
	}
}

// New subscribes a feed to store. The initial view is computed from the
// replayed query and an empty dataset.
func New(store *querystore.Store, engine *filter.Engine, opts ...Option) *Feed {
	f := &Feed{
		engine: engine,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.unsubscribe = store.Subscribe(f.onQuery)
	return f
}

// Close detaches the feed from its store.
func (f *Feed) Close() {
	f.unsubscribe()
}

// View returns the latest computed view. The returned slices are copies.
func (f *Feed) View() View {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v := f.view
	v.Query = v.Query.Clone()
	v.Events = append([]models.Event(nil), v.Events...)
	v.ActiveFilters = append([]models.ActiveFilter(nil), v.ActiveFilters...)
	return v
}

// Events returns the filtered, ordered events.
func (f *Feed) Events() []models.Event {
	return f.View().Events
}

// ActiveFilters returns the removable filter chips for the current query.
func (f *Feed) ActiveFilters() []models.ActiveFilter {
	return f.View().ActiveFilters
}

// ActiveFiltersCount returns the number of active filters.
func (f *Feed) ActiveFiltersCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.view.ActiveFiltersCount
}

// HasActiveFilters reports whether the current query narrows the feed.
func (f *Feed) HasActiveFilters() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.view.HasActiveFilters
}

// Revision returns the query revision the view was computed from.
func (f *Feed) Revision() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.view.QueryRevision
}

// DatasetVersion returns the dataset version the view was computed from.
func (f *Feed) DatasetVersion() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.view.DatasetVersion
}

// SetDataset replaces the events and participant counts. Both are copied so
// the caller may keep mutating its own values.
func (f *Feed) SetDataset(ds eventsource.Dataset) {
	events := append([]models.Event(nil), ds.Events...)
	counts := maps.Clone(ds.Counts)
	if counts == nil {
		counts = models.ParticipantCounts{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataset = eventsource.Dataset{Events: events, Counts: counts}
	f.datasetVersion++
	f.recomputeLocked("dataset")
}

// Refresh pulls a dataset from src and installs it. On failure the previous
// dataset is kept.
func (f *Feed) Refresh(ctx context.Context, src eventsource.Source) error {
	ds, err := src.Snapshot(ctx)
	if err != nil {
		f.metrics.RefreshFailed()
		f.logger.Error("failed to refresh events", "source", src.Name(), "error", err)
		return fmt.Errorf("refresh from %s: %w", src.Name(), err)
	}

	f.SetDataset(ds)
	f.logger.Debug("events refreshed", "source", src.Name(), "events", len(ds.Events))
	return nil
}

// Run refreshes from src immediately and then every interval until ctx is
// cancelled. Refresh errors are logged and retried on the next tick.
func (f *Feed) Run(ctx context.Context, src eventsource.Source, interval time.Duration) {
	_ = f.Refresh(ctx, src)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = f.Refresh(ctx, src)
		}
	}
}

func (f *Feed) onQuery(snap querystore.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query = snap
	f.recomputeLocked("query")
}

func (f *Feed) recomputeLocked(trigger string) {
	start := time.Now()
	now := f.now()
	q := f.query.Query

	events := f.engine.ApplyAt(f.dataset.Events, f.dataset.Counts, q, now)
	count := filter.ActiveFiltersCount(q)

	f.view = View{
		QueryRevision:      f.query.Revision,
		DatasetVersion:     f.datasetVersion,
		Query:              q,
		Events:             events,
		Total:              len(events),
		ActiveFilters:      filter.ActiveFiltersList(q),
		ActiveFiltersCount: count,
		HasActiveFilters:   filter.HasActiveFilters(q),
		ComputedAt:         now,
	}

	f.metrics.ObserveRecompute(trigger, time.Since(start), len(f.dataset.Events), len(events), count)
	f.logger.Debug("feed recomputed",
		"trigger", trigger,
		"query_revision", f.query.Revision,
		"dataset_version", f.datasetVersion,
		"results", len(events),
	)
}
