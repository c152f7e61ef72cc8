package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes service counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	batchesIssued  prometheus.Counter
	unitsIssued    prometheus.Counter
	scansRecorded  *prometheus.CounterVec
	tokensRejected *prometheus.CounterVec
	requestErrors  *prometheus.CounterVec

	geocoderHits     prometheus.Counter
	geocoderMisses   prometheus.Counter
	geocoderFailures prometheus.Counter
}

// NewMetrics initializes and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		batchesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenance_batches_issued_total",
			Help: "Number of token batches issued.",
		}),
		unitsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenance_units_issued_total",
			Help: "Number of unit tokens issued.",
		}),
		scansRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenance_scans_recorded_total",
			Help: "Number of scan ledger rows appended.",
		}, []string{"channel"}),
		tokensRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenance_tokens_rejected_total",
			Help: "Number of tokens rejected at verification.",
		}, []string{"reason"}),
		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenance_request_errors_total",
			Help: "Number of requests that ended in an error response.",
		}, []string{"code"}),
		geocoderHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenance_geocoder_cache_hits_total",
			Help: "Location cache hits.",
		}),
		geocoderMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenance_geocoder_cache_misses_total",
			Help: "Location cache misses.",
		}),
		geocoderFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenance_geocoder_lookup_failures_total",
			Help: "External reverse geocode failures.",
		}),
	}
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordBatchIssued counts one issued batch of n units.
func (m *Metrics) RecordBatchIssued(units int) {
	if m == nil {
		return
	}
	m.batchesIssued.Inc()
	m.unitsIssued.Add(float64(units))
}

// RecordScans counts appended ledger rows on a channel.
func (m *Metrics) RecordScans(channel string, count int) {
	if m == nil {
		return
	}
	m.scansRecorded.WithLabelValues(channel).Add(float64(count))
}

// RecordTokenRejected counts a verification rejection by reason.
func (m *Metrics) RecordTokenRejected(reason string) {
	if m == nil {
		return
	}
	m.tokensRejected.WithLabelValues(reason).Inc()
}

// RecordError counts an error response by code.
func (m *Metrics) RecordError(code string) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(code).Inc()
}

// GeocoderCacheHit implements geo.Stats.
func (m *Metrics) GeocoderCacheHit() {
	if m == nil {
		return
	}
	m.geocoderHits.Inc()
}

// GeocoderCacheMiss implements geo.Stats.
func (m *Metrics) GeocoderCacheMiss() {
	if m == nil {
		return
	}
	m.geocoderMisses.Inc()
}

// GeocoderLookupFailed implements geo.Stats.
func (m *Metrics) GeocoderLookupFailed() {
	if m == nil {
		return
	}
	m.geocoderFailures.Inc()
}
