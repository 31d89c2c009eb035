package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the run-level counters and histograms. A nil
// *Collector is valid and records nothing, so instrumented components never
// need to branch on whether metrics are enabled.
type Collector struct {
	taskExecutionsTotal   *prometheus.CounterVec
	taskExecutionDuration *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	providerRequestsTotal *prometheus.CounterVec
	providerFailuresTotal *prometheus.CounterVec

	rerankFallbacksTotal prometheus.Counter

	synthesisDuration prometheus.Histogram
	synthesisEvidence prometheus.Histogram

	logger *zap.Logger
}

// NewCollector registers the metric families under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.taskExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_executions_total",
			Help:      "Total number of task executions",
		},
		[]string{"agent", "status"},
	)

	c.taskExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_execution_duration_seconds",
			Help:      "Task execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"agent"},
	)

	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of evidence cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of evidence cache misses",
		},
		[]string{"cache_type"},
	)

	c.providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of retrieval provider requests",
		},
		[]string{"provider"},
	)

	c.providerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Total number of retrieval provider failures",
		},
		[]string{"provider"},
	)

	c.rerankFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerank_fallbacks_total",
			Help:      "Total number of neutral pass-through reranks",
		},
	)

	c.synthesisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_seconds",
			Help:      "Evidence synthesis duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	c.synthesisEvidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_evidence_count",
			Help:      "Number of evidence fragments in the synthesized set",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordTaskExecution records one task's terminal status and duration.
func (c *Collector) RecordTaskExecution(agent, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.taskExecutionsTotal.WithLabelValues(agent, status).Inc()
	c.taskExecutionDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordCacheHit records an evidence cache hit.
func (c *Collector) RecordCacheHit(cacheType string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records an evidence cache miss.
func (c *Collector) RecordCacheMiss(cacheType string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordProviderRequest records one provider call and whether it failed.
func (c *Collector) RecordProviderRequest(provider string, failed bool) {
	if c == nil {
		return
	}
	c.providerRequestsTotal.WithLabelValues(provider).Inc()
	if failed {
		c.providerFailuresTotal.WithLabelValues(provider).Inc()
	}
}

// RecordRerankFallback records a neutral pass-through rerank.
func (c *Collector) RecordRerankFallback() {
	if c == nil {
		return
	}
	c.rerankFallbacksTotal.Inc()
}

// RecordSynthesis records one synthesis pass.
func (c *Collector) RecordSynthesis(duration time.Duration, evidenceCount int) {
	if c == nil {
		return
	}
	c.synthesisDuration.Observe(duration.Seconds())
	c.synthesisEvidence.Observe(float64(evidenceCount))
}
