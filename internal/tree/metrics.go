package tree

import (
	"time"

	"hexmap-server/internal/shared/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hexmap_tree_operations_total",
		Help: "Tree operations by operation and outcome",
	}, []string{"operation", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hexmap_tree_operation_duration_seconds",
		Help:    "Time to execute a tree operation",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"operation"})

	affectedItems = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hexmap_tree_affected_items",
		Help:    "Rows written by a tree mutation",
		Buckets: []float64{1, 10, 100, 1000, 5000, 10000},
	}, []string{"operation"})
)

// observe records one finished operation; outcome is "ok" or the error type
func observe(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(errors.GetType(err))
	}
	operationTotal.WithLabelValues(operation, outcome).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func observeAffected(operation string, n int) {
	affectedItems.WithLabelValues(operation).Observe(float64(n))
}
