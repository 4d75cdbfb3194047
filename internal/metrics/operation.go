package metrics

import (
	"strings"
	"time"

	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "btctoolkit"

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "operations_total",
		Help:      "Count of toolkit operations.",
	}, []string{"operation", "network", "status"})
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "operation_duration_seconds",
		Help:      "Duration of toolkit operations.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100us..26s
	}, []string{"operation", "network", "status"})
)

// Operations tracks the outcome of core operations run by the service.
type Operations struct {
	network model.Network
}

// NewOperations constructs a collector labelled with network.
func NewOperations(network model.Network) *Operations {
	if network == "" {
		network = "unknown"
	}
	return &Operations{network: network}
}

// Observe records a single operation outcome and duration.
func (m Operations) Observe(operation string, err error, started time.Time) {
	status := Status(err)
	operationsTotal.WithLabelValues(operation, string(m.network), status).Inc()
	operationDuration.WithLabelValues(operation, string(m.network), status).Observe(time.Since(started).Seconds())
}

// Status is "success" for nil, the snake cased error kind for toolkit
// errors and "error" otherwise.
func Status(err error) string {
	if err == nil {
		return "success"
	}
	kind := model.KindOf(err)
	if kind == nil {
		return "error"
	}
	return strings.ReplaceAll(kind.Error(), " ", "_")
}
