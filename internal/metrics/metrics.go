// Package metrics holds the Prometheus instrumentation of the rule engine
// and its HTTP API. Metrics are exposed at /metrics.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
)

var (
	// Engine Metrics
	MiningDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "basket_mining_duration_seconds",
			Help:    "Duration of frequent itemset and rule generation in seconds",
			Buckets: []float64{.001, .01, .1, .5, 1, 5, 30, 120},
		},
		[]string{"stage"}, // "itemsets", "rules"
	)

	MiningErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_mining_errors_total",
			Help: "Total number of failed mining runs",
		},
		[]string{"stage", "error_type"},
	)

	ItemsetsFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basket_itemsets_found_total",
			Help: "Total number of frequent itemsets found",
		},
	)

	RulesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basket_rules_generated_total",
			Help: "Total number of association rules kept after thresholding",
		},
	)

	FilterOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_filter_operations_total",
			Help: "Total number of rule filter, projection and describe operations",
		},
		[]string{"operation", "outcome"}, // outcome: "ok", "empty_selection", "error"
	)

	// Store Metrics
	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "basket_store_duration_seconds",
			Help:    "Duration of dataset and snapshot store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_store_errors_total",
			Help: "Total number of failed store operations",
		},
		[]string{"operation", "error_type"},
	)

	SnapshotsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basket_snapshots_pruned_total",
			Help: "Total number of snapshots removed by retention",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)
)

// Outcomes of a filter operation.
const (
	OutcomeOK             = "ok"
	OutcomeEmptySelection = "empty_selection"
	OutcomeError          = "error"
)

// RecordMining records one mining stage.
func RecordMining(stage string, duration time.Duration, produced int, err error) {
	MiningDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		MiningErrors.WithLabelValues(stage, ErrorType(err)).Inc()
		return
	}
	switch stage {
	case "itemsets":
		ItemsetsFound.Add(float64(produced))
	case "rules":
		RulesGenerated.Add(float64(produced))
	}
}

// RecordFilter records the outcome of a filter-like operation.
func RecordFilter(operation string, empty bool, err error) {
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeError
	case empty:
		outcome = OutcomeEmptySelection
	}
	FilterOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordStore records a store operation.
func RecordStore(operation string, duration time.Duration, err error) {
	StoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreErrors.WithLabelValues(operation, ErrorType(err)).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// ErrorType maps an error to a bounded label value.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, internalerr.ErrNotFound):
		return "not_found"
	case errors.Is(err, internalerr.ErrInvalidMetric):
		return "invalid_metric"
	case errors.Is(err, internalerr.ErrRange):
		return "range"
	case errors.Is(err, internalerr.ErrLengthMismatch):
		return "length_mismatch"
	case internalerr.IsContract(err):
		return "invalid_input"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "other"
}
