package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "batch",
		Name:      "process_batch_total",
		Help:      "Count of processed input batches.",
	}, []string{"command", "status"})

	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "batch",
		Name:      "process_batch_duration_seconds",
		Help:      "Duration of processing a batch of inputs.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"command", "status"})

	batchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "batch",
		Name:      "process_batch_size",
		Help:      "Number of inputs processed per batch.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1..2048
	}, []string{"command"})

	batchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "batch",
		Name:      "items_total",
		Help:      "Count of batch items by outcome.",
	}, []string{"command", "status"})
)

// Batch tracks concurrent batch runs of a CLI command.
type Batch struct {
	command string
}

func NewBatch(command string) *Batch {
	if command == "" {
		command = "unknown"
	}
	return &Batch{command: command}
}

// ObserveBatch records a finished batch of items inputs. err is the first
// item failure, if any.
func (m Batch) ObserveBatch(err error, items int, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	batchTotal.WithLabelValues(m.command, status).Inc()
	batchDuration.WithLabelValues(m.command, status).Observe(time.Since(started).Seconds())
	batchSize.WithLabelValues(m.command).Observe(float64(items))
}

func (m Batch) ObserveItem(err error) {
	batchItemsTotal.WithLabelValues(m.command, Status(err)).Inc()
}
