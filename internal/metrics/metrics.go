// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lotto",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lotto",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	entitlementDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lotto",
			Subsystem: "access",
			Name:      "decisions_total",
			Help:      "Entitlement decisions by outcome (paid, trial, trial_granted or a denial reason).",
		},
		[]string{"outcome"},
	)

	walletOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lotto",
			Subsystem: "wallet",
			Name:      "operations_total",
			Help:      "Wallet ledger operations by entry type and result.",
		},
		[]string{"type", "result"},
	)

	walletDrift = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lotto",
			Subsystem: "wallet",
			Name:      "drift_repaired_total",
			Help:      "Wallets whose cached aggregates were repaired by reconciliation.",
		},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lotto",
			Subsystem: "notify",
			Name:      "sms_total",
			Help:      "SMS deliveries by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		entitlementDecisions,
		walletOperations,
		walletDrift,
		notificationsSent,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordDecision(outcome string) {
	entitlementDecisions.WithLabelValues(outcome).Inc()
}

func RecordWalletOp(txType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	walletOperations.WithLabelValues(txType, result).Inc()
}

func RecordDriftRepaired() {
	walletDrift.Inc()
}

func RecordSMS(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	notificationsSent.WithLabelValues(result).Inc()
}
