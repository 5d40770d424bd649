// Package http provides the HTTP API, status and metrics endpoints.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the service. It implements the
// recorder interfaces of importcache, contribution and database.
type Metrics struct {
	// Map-data provider metrics
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec

	// Ghost cache metrics
	CacheLookupsTotal *prometheus.CounterVec

	// Contribution metrics
	ContributionsTotal  *prometheus.CounterVec
	DegradedWritesTotal *prometheus.CounterVec

	// Database metrics
	DBOperationsTotal *prometheus.CounterVec
	StationsStored    prometheus.Gauge

	// HTTP API metrics
	HTTPRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates Prometheus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProviderRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelradar_provider_requests_total",
				Help: "Total number of map-data provider requests by provider and status",
			},
			[]string{"provider", "status"},
		),
		ProviderRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fuelradar_provider_request_duration_seconds",
				Help:    "Map-data provider request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelradar_ghost_cache_lookups_total",
				Help: "Ghost cache lookups by result (hit, miss, rejected)",
			},
			[]string{"result"},
		),
		ContributionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelradar_contributions_total",
				Help: "Contributions by report type and outcome",
			},
			[]string{"report_type", "outcome"},
		),
		DegradedWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelradar_degraded_writes_total",
				Help: "Secondary writes that failed after a successful station write",
			},
			[]string{"kind"},
		),
		DBOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelradar_db_operations_total",
				Help: "Total number of database operations by type and status",
			},
			[]string{"operation", "status"},
		),
		StationsStored: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fuelradar_stations_stored",
				Help: "Number of canonical stations in the store",
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelradar_http_requests_total",
				Help: "HTTP API requests by route pattern and status code",
			},
			[]string{"route", "code"},
		),
	}
}

// RecordProviderRequest records a map-data provider request.
func (m *Metrics) RecordProviderRequest(provider, status string, seconds float64) {
	m.ProviderRequestsTotal.WithLabelValues(provider, status).Inc()
	m.ProviderRequestDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordCacheLookup records a ghost cache lookup result.
func (m *Metrics) RecordCacheLookup(result string) {
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordContribution records the outcome of a contribution.
func (m *Metrics) RecordContribution(reportType, outcome string) {
	m.ContributionsTotal.WithLabelValues(reportType, outcome).Inc()
}

// RecordDegradedWrite records a failed audit or reward write.
func (m *Metrics) RecordDegradedWrite(kind string) {
	m.DegradedWritesTotal.WithLabelValues(kind).Inc()
}

// RecordDBOperation records a database operation metric.
func (m *Metrics) RecordDBOperation(operation, status string) {
	m.DBOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordStationsStored records the number of canonical stations.
func (m *Metrics) RecordStationsStored(count float64) {
	m.StationsStored.Set(count)
}

// RecordHTTPRequest records an API request.
func (m *Metrics) RecordHTTPRequest(route, code string) {
	m.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
}
