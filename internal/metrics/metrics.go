package metrics

import (
	"context"
	"errors"
	"time"

	"threadmem/internal/kvstore"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Thread lifecycle
	ThreadsCreated prometheus.Counter
	TurnsAppended  prometheus.Counter
	ThreadsResumed prometheus.Counter

	// Planner outcomes
	PlanRequests      prometheus.Counter
	PlanReferences    *prometheus.CounterVec
	PlanRejectedTotal prometheus.Counter

	// Store health
	StoreErrors  *prometheus.CounterVec
	StoreLatency prometheus.Histogram
}

// Init initializes the Prometheus metrics
func Init() *Metrics {
	return &Metrics{
		ThreadsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "threadmem_threads_created_total",
			Help: "Total number of conversation threads created",
		}),

		TurnsAppended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "threadmem_turns_appended_total",
			Help: "Total number of turns appended across all threads",
		}),

		ThreadsResumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "threadmem_threads_resumed_total",
			Help: "Total number of RESUME lookups served",
		}),

		PlanRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "threadmem_plan_requests_total",
			Help: "Total number of inclusion plans computed",
		}),

		// outcome: "included" or "skipped"
		PlanReferences: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "threadmem_plan_references_total",
			Help: "Total number of references evaluated by the planner, by outcome",
		}, []string{"outcome"}),

		PlanRejectedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "threadmem_plan_rejected_total",
			Help: "Total number of plan requests rejected by the content ceiling",
		}),

		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "threadmem_store_errors_total",
			Help: "Total number of backing store errors by operation",
		}, []string{"operation"}),

		StoreLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "threadmem_store_operation_duration_seconds",
			Help:    "Backing store operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

// RecordPlan records one planner run's outcome counts.
func (m *Metrics) RecordPlan(included, skipped int) {
	m.PlanRequests.Inc()
	m.PlanReferences.WithLabelValues("included").Add(float64(included))
	m.PlanReferences.WithLabelValues("skipped").Add(float64(skipped))
}

// InstrumentStore wraps a backing store so every operation reports latency
// and failures. A missing key on Get is an expected outcome, not an error.
func (m *Metrics) InstrumentStore(inner kvstore.Store) kvstore.Store {
	return &instrumentedStore{inner: inner, metrics: m}
}

type instrumentedStore struct {
	inner   kvstore.Store
	metrics *Metrics
}

func (s *instrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := s.inner.Get(ctx, key)
	s.metrics.StoreLatency.Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, kvstore.ErrKeyNotFound) {
		s.metrics.StoreErrors.WithLabelValues("get").Inc()
	}
	return value, err
}

func (s *instrumentedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := s.inner.Set(ctx, key, value, ttl)
	s.metrics.StoreLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("set").Inc()
	}
	return err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	err := s.inner.Ping(ctx)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("ping").Inc()
	}
	return err
}

func (s *instrumentedStore) Close() error {
	return s.inner.Close()
}
