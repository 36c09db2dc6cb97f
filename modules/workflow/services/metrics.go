package services

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
)

type metrics struct {
	decisionsTotal  *prometheus.CounterVec
	decisionLatency *prometheus.HistogramVec

	batchItemsTotal *prometheus.CounterVec
	batchDuration   *prometheus.HistogramVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		decisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "decisions_total",
			Help:      "Total number of resolved workflow actions by entity, action and outcome.",
		}, []string{"entity", "action", "outcome"}),
		decisionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workflow",
			Name:      "decision_latency_seconds",
			Help:      "Latency distribution for a single resolve including the storage write.",
			Buckets: []float64{
				0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5,
			},
		}, []string{"entity", "action"}),
		batchItemsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflow",
			Subsystem: "batch",
			Name:      "items_total",
			Help:      "Total number of batch items by result (succeeded, failed, skipped, duplicate).",
		}, []string{"result"}),
		batchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workflow",
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Wall time of batch runs by summary.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"summary"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

func recordDecisionMetrics(entity record.EntityType, action record.Action, outcome Outcome, latency time.Duration) {
	m := getMetrics()
	m.decisionsTotal.WithLabelValues(string(entity), string(action), string(outcome)).Inc()
	m.decisionLatency.WithLabelValues(string(entity), string(action)).Observe(latency.Seconds())
}

func recordBatchMetrics(report *BatchReport) {
	m := getMetrics()
	m.batchItemsTotal.WithLabelValues("succeeded").Add(float64(report.SuccessCount))
	m.batchItemsTotal.WithLabelValues("failed").Add(float64(report.FailureCount))
	m.batchItemsTotal.WithLabelValues("skipped").Add(float64(len(report.Skipped)))
	m.batchItemsTotal.WithLabelValues("duplicate").Add(float64(len(report.Duplicates)))
	m.batchDuration.WithLabelValues(string(report.Summary)).Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
}
