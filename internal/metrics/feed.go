package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FeedCollector records filter pipeline activity of the event feed.
type FeedCollector struct {
	recomputeDuration *prometheus.HistogramVec
	resultSize        prometheus.Gauge
	inputSize         prometheus.Gauge
	activeFilters     prometheus.Gauge
	refreshErrors     prometheus.Counter
}

// NewFeedCollector registers feed metrics on reg.
func NewFeedCollector(reg prometheus.Registerer) (*FeedCollector, error) {
	c := &FeedCollector{
		recomputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "recompute_duration_seconds",
			Help:      "Time spent running the filter pipeline, by trigger.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"trigger"}),
		resultSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "filtered_events",
			Help:      "Number of events in the latest filtered feed.",
		}),
		inputSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "source_events",
			Help:      "Number of events supplied by the data source.",
		}),
		activeFilters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "active_filters",
			Help:      "Number of active constraints in the current query.",
		}),
		refreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "refresh_errors_total",
			Help:      "Number of failed dataset refreshes.",
		}),
	}

	for _, col := range []prometheus.Collector{c.recomputeDuration, c.resultSize, c.inputSize, c.activeFilters, c.refreshErrors} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ObserveRecompute records one pipeline run.
func (c *FeedCollector) ObserveRecompute(trigger string, d time.Duration, inputs, results, activeFilters int) {
	if c == nil {
		return
	}
	c.recomputeDuration.WithLabelValues(trigger).Observe(d.Seconds())
	c.inputSize.Set(float64(inputs))
	c.resultSize.Set(float64(results))
	c.activeFilters.Set(float64(activeFilters))
}

// RefreshFailed counts one failed dataset refresh.
func (c *FeedCollector) RefreshFailed() {
	if c == nil {
		return
	}
	c.refreshErrors.Inc()
}
