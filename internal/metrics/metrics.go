package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the admin console. A nil
// *Collector is valid and records nothing.
type Collector struct {
	fetchTotal          *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	staleResponses      *prometheus.CounterVec
	savesTotal          *prometheus.CounterVec
	notifications       *prometheus.CounterVec
	lookupEntries       *prometheus.GaugeVec
	lookupRefreshErrors *prometheus.CounterVec
}

// New creates all metrics and registers them with the default registry.
func New() *Collector {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics and registers them with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admingrid_fetch_total",
				Help: "Total number of page fetches per entity and result",
			},
			[]string{"entity", "result"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "admingrid_fetch_duration_seconds",
				Help:    "Duration of page fetches in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"entity"},
		),
		staleResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admingrid_stale_responses_total",
				Help: "Total number of fetch results discarded because a newer request was issued",
			},
			[]string{"entity"},
		),
		savesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admingrid_saves_total",
				Help: "Total number of edit and create submissions per entity and result",
			},
			[]string{"entity", "result"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admingrid_notifications_total",
				Help: "Total number of user notifications per kind",
			},
			[]string{"kind"},
		),
		lookupEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "admingrid_lookup_entries",
				Help: "Number of entries in each lookup table",
			},
			[]string{"table"},
		),
		lookupRefreshErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admingrid_lookup_refresh_errors_total",
				Help: "Total number of failed lookup table refreshes",
			},
			[]string{"table"},
		),
	}

	reg.MustRegister(
		c.fetchTotal,
		c.fetchDuration,
		c.staleResponses,
		c.savesTotal,
		c.notifications,
		c.lookupEntries,
		c.lookupRefreshErrors,
	)

	return c
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// FetchCompleted records one page fetch.
func (c *Collector) FetchCompleted(entity string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.fetchTotal.WithLabelValues(entity, result(err)).Inc()
	c.fetchDuration.WithLabelValues(entity).Observe(d.Seconds())
}

// StaleResponse counts a discarded out-of-order fetch result.
func (c *Collector) StaleResponse(entity string) {
	if c == nil {
		return
	}
	c.staleResponses.WithLabelValues(entity).Inc()
}

// SaveCompleted records one edit or create submission.
func (c *Collector) SaveCompleted(entity string, err error) {
	if c == nil {
		return
	}
	c.savesTotal.WithLabelValues(entity, result(err)).Inc()
}

// NotificationSent counts a user notification.
func (c *Collector) NotificationSent(kind string) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(kind).Inc()
}

// SetLookupEntries sets the size gauge of a lookup table.
func (c *Collector) SetLookupEntries(table string, n int) {
	if c == nil {
		return
	}
	c.lookupEntries.WithLabelValues(table).Set(float64(n))
}

// LookupRefreshFailed increments the refresh error counter of a lookup table.
func (c *Collector) LookupRefreshFailed(table string) {
	if c == nil {
		return
	}
	c.lookupRefreshErrors.WithLabelValues(table).Inc()
}

// RemoveEntity removes all metrics for an entity.
func (c *Collector) RemoveEntity(entity string) {
	if c == nil {
		return
	}
	c.fetchTotal.DeletePartialMatch(prometheus.Labels{"entity": entity})
	c.fetchDuration.DeleteLabelValues(entity)
	c.staleResponses.DeleteLabelValues(entity)
	c.savesTotal.DeletePartialMatch(prometheus.Labels{"entity": entity})
}
