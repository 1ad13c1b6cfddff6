package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Transition metrics
	TransitionsTotal    *prometheus.CounterVec
	StaleStateConflicts prometheus.Counter
	TransitionLatency   prometheus.Histogram

	// Side-effect metrics
	VisitRecordFailures  prometheus.Counter
	NotificationFailures prometheus.Counter

	// Billing metrics
	FeeChargesEnqueued  prometheus.Counter
	FeeChargesProcessed prometheus.Counter
	FeeChargesDeclined  prometheus.Counter
	FeeChargesFailed    prometheus.Counter
	FeeChargeLatency    prometheus.Histogram
	FeeChargeRetries    *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates all application metrics on the default registry.
func NewMetrics(namespace, subsystem string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace, subsystem)
}

// NewMetricsWith registers the metrics on a caller-provided registry.
func NewMetricsWith(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transitions_total",
			Help:      "Total number of appointment status transitions by target status and outcome",
		}, []string{"to_status", "outcome"}),
		StaleStateConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stale_state_conflicts_total",
			Help:      "Total number of transitions lost to a concurrent writer",
		}),
		TransitionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transition_duration_seconds",
			Help:      "Time spent applying a status transition including side effects",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),

		VisitRecordFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "visit_record_failures_total",
			Help:      "Total number of visit records that could not be created",
		}),
		NotificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notification_failures_total",
			Help:      "Total number of status-change notifications that failed to dispatch",
		}),

		FeeChargesEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fee_charges_enqueued_total",
			Help:      "Total number of penalty charges enqueued for collection",
		}),
		FeeChargesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fee_charges_processed_total",
			Help:      "Total number of fee charges settled by the payment collaborator",
		}),
		FeeChargesDeclined: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fee_charges_declined_total",
			Help:      "Total number of fee charges declined and converted to ledger debits",
		}),
		FeeChargesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fee_charges_failed_total",
			Help:      "Total number of fee charges that exhausted retries",
		}),
		FeeChargeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fee_charge_processing_duration_seconds",
			Help:      "Time spent processing a batch of fee charges",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		FeeChargeRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fee_charge_retry_attempts_total",
			Help:      "Total number of retry attempts for fee charges",
		}, []string{"fee_type"}),

		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
