package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LookupsTotal tracks screen-pop phone lookups by outcome (found, not_found, invalid, error)
	LookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicrm_lookups_total",
		Help: "Total number of phone lookups processed",
	}, []string{"result"})

	// LookupCandidates tracks how many first-phase candidates a lookup had to re-verify
	LookupCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clinicrm_lookup_candidates",
		Help:    "Histogram of broad-filter candidates per lookup",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	// AuthAttempts tracks request authentication by mode and outcome
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicrm_auth_attempts_total",
		Help: "Total number of request authentication attempts",
	}, []string{"mode", "outcome"})

	// APIKeysIssued tracks issued API keys by kind
	APIKeysIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicrm_api_keys_issued_total",
		Help: "Total number of API keys issued",
	}, []string{"kind"})

	// HTTPRequests tracks management API requests by route pattern and status code
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicrm_http_requests_total",
		Help: "Total number of HTTP requests handled",
	}, []string{"route", "status"})

	// HTTPDuration tracks request latency by route pattern
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clinicrm_http_request_duration_seconds",
		Help:    "Histogram of HTTP request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// CasesExported tracks rows written by CSV exports
	CasesExported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinicrm_cases_exported_total",
		Help: "Total number of case rows written to CSV exports",
	})

	// DBConnectionsActive tracks open database connections
	DBConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clinicrm_db_connections_active",
		Help: "Number of active database connections",
	})
)
