package observability

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
)

type operationMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	operationMetricsOnce sync.Once
	operationRegistry    *operationMetrics
)

// Operations returns the lazily-initialised registry recording vault operation
// attempts made by the daemon and its keeper.
func Operations() *operationMetrics {
	operationMetricsOnce.Do(func() {
		operationRegistry = &operationMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "anchor",
				Subsystem: "vault",
				Name:      "operations_total",
				Help:      "Vault operation attempts segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "anchor",
				Subsystem: "vault",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for vault operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
		}
		prometheus.MustRegister(operationRegistry.requests, operationRegistry.latency)
	})
	return operationRegistry
}

// Observe records one attempt of operation.
func (m *operationMetrics) Observe(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	m.requests.WithLabelValues(operation, Outcome(err)).Inc()
	if duration > 0 {
		m.latency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// Outcome classifies an operation error into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, nativecommon.ErrTooSoon):
		return "too_soon"
	case errors.Is(err, nativecommon.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, nativecommon.ErrContractStopped):
		return "stopped"
	case errors.Is(err, nativecommon.ErrOperationsNotPermitted):
		return "not_permitted"
	case errors.Is(err, nativecommon.ErrExcessPriceDeviation):
		return "price_deviation"
	case errors.Is(err, nativecommon.ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}
