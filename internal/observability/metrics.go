package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper feed service.
// Metrics are organized by subsystem: searches, upstream requests, the response
// cache, and entry normalization. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// SearchesTotal counts handled feed searches, labeled by outcome
	// (ok, upstream_error, unexpected_format, error).
	SearchesTotal *prometheus.CounterVec

	// SearchDuration observes end-to-end search duration in seconds.
	SearchDuration prometheus.Histogram

	// UpstreamRequestsTotal counts requests sent to the upstream feed, labeled by status code.
	UpstreamRequestsTotal *prometheus.CounterVec

	// UpstreamRequestDuration observes upstream request duration in seconds.
	UpstreamRequestDuration prometheus.Histogram

	// UpstreamRetries counts retried upstream attempts.
	UpstreamRetries prometheus.Counter

	// UpstreamRateLimited counts 429 responses from the upstream feed.
	UpstreamRateLimited prometheus.Counter

	// CacheHits counts upstream fetches served from the response cache.
	CacheHits prometheus.Counter

	// CacheMisses counts upstream fetches that had to go to the network.
	CacheMisses prometheus.Counter

	// EntriesNormalized counts entries that produced a summary.
	EntriesNormalized prometheus.Counter

	// EntriesDropped counts entries rejected for a missing or malformed identifier.
	EntriesDropped prometheus.Counter

	// EntriesMissingPDF counts summaries emitted without a PDF link.
	EntriesMissingPDF prometheus.Counter
}

// NewMetrics creates a new Metrics instance registered with reg.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Searches
		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of feed searches by outcome",
		}, []string{"outcome"}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of feed searches in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		// Upstream
		UpstreamRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of requests to the upstream feed by status code",
		}, []string{"status_code"}),
		UpstreamRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of requests to the upstream feed in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		UpstreamRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "Total number of retried upstream requests",
		}),
		UpstreamRateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_rate_limited_total",
			Help:      "Total number of rate limit responses from the upstream feed",
		}),

		// Cache
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of upstream fetches served from cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of upstream fetches not found in cache",
		}),

		// Normalization
		EntriesNormalized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_normalized_total",
			Help:      "Total number of feed entries normalized into summaries",
		}),
		EntriesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_dropped_total",
			Help:      "Total number of feed entries dropped for a malformed identifier",
		}),
		EntriesMissingPDF: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_missing_pdf_total",
			Help:      "Total number of summaries emitted without a PDF link",
		}),
	}
}

// RecordSearch records a handled search with its outcome and duration.
func (m *Metrics) RecordSearch(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(outcome).Inc()
	m.SearchDuration.Observe(durationSeconds)
}

// RecordUpstreamRequest records one upstream attempt.
func (m *Metrics) RecordUpstreamRequest(statusCode int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	m.UpstreamRequestDuration.Observe(durationSeconds)
	if statusCode == 429 {
		m.UpstreamRateLimited.Inc()
	}
}

// RecordUpstreamRetry records that an upstream attempt is being retried.
func (m *Metrics) RecordUpstreamRetry() {
	if m == nil {
		return
	}
	m.UpstreamRetries.Inc()
}

// RecordCacheLookup records a response cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
}

// RecordEntryNormalized records an emitted summary.
func (m *Metrics) RecordEntryNormalized(hasPDF bool) {
	if m == nil {
		return
	}
	m.EntriesNormalized.Inc()
	if !hasPDF {
		m.EntriesMissingPDF.Inc()
	}
}

// RecordEntryDropped records an entry rejected by the normalizer.
func (m *Metrics) RecordEntryDropped() {
	if m == nil {
		return
	}
	m.EntriesDropped.Inc()
}
