// Package metrics exposes Prometheus instrumentation for both binaries. The
// gateway records webhook traffic; the processor records ledger outcomes and
// sweep corrections.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundation_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fundation_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundation_webhook_events_total",
			Help: "Webhook deliveries received, by event type and gateway outcome",
		},
		[]string{"type", "outcome"},
	)

	DonationEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundation_donation_events_total",
			Help: "Donation events settled by the processor, by disposition",
		},
		[]string{"disposition"},
	)

	LedgerApplyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fundation_ledger_apply_duration_seconds",
			Help:    "Duration of one ledger transaction, from begin to commit",
			Buckets: prometheus.DefBuckets,
		},
	)

	DonationAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundation_donation_amount_minor_units_total",
			Help: "Cumulative collected donation amount in minor units",
		},
		[]string{"currency"},
	)

	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundation_sweep_runs_total",
			Help: "Reconciliation sweep runs, by result",
		},
		[]string{"result"},
	)

	SweepCorrectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundation_sweep_corrections_total",
			Help: "Corrections applied by the reconciliation sweep, by kind",
		},
		[]string{"kind"},
	)

	WorkerPoolRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fundation_worker_pool_running",
			Help: "Number of donation events currently being processed",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordWebhookEvent(eventType, outcome string) {
	WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func RecordDonationEvent(disposition string) {
	DonationEventsTotal.WithLabelValues(disposition).Inc()
}

func RecordLedgerApply(duration float64) {
	LedgerApplyDuration.Observe(duration)
}

func RecordDonationAmount(currency string, amountMinorUnits int64) {
	DonationAmountTotal.WithLabelValues(currency).Add(float64(amountMinorUnits))
}

func RecordSweepRun(result string) {
	SweepRunsTotal.WithLabelValues(result).Inc()
}

func RecordSweepCorrection(kind string) {
	SweepCorrectionsTotal.WithLabelValues(kind).Inc()
}
