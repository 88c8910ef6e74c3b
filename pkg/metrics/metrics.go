package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records code verification attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labshare_auth_attempts_total",
			Help: "Total number of sign-in code verification attempts",
		},
		[]string{"result"},
	)

	// CodesIssued counts one-time sign-in codes generated for delivery.
	CodesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "labshare_auth_codes_issued_total",
			Help: "Total number of one-time sign-in codes issued",
		},
	)

	// FingerprintMismatches counts sessions revoked after presenting a foreign
	// device fingerprint.
	FingerprintMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "labshare_session_fingerprint_mismatches_total",
			Help: "Total number of sessions revoked on device fingerprint mismatch",
		},
	)

	// ActiveSessions tracks live sessions (not revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "labshare_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// CleanupDeletedRows counts rows removed by maintenance, by table.
	CleanupDeletedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labshare_cleanup_deleted_rows_total",
			Help: "Total number of rows removed by credential cleanup",
		},
		[]string{"table"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labshare_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
