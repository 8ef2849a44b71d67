package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

// Metrics holds every Prometheus collector the service exports. All methods
// are safe on a nil receiver so callers never branch on whether metrics are on.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggregateOps       *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec

	transitions *prometheus.CounterVec

	moderationCalls   *prometheus.CounterVec
	moderationLatency *prometheus.HistogramVec

	replicaWrites  *prometheus.CounterVec
	replicaLatency *prometheus.HistogramVec

	compensationFailures *prometheus.CounterVec
	resolves             *prometheus.CounterVec
	reconcileActions     *prometheus.CounterVec
	eventsPublished      *prometheus.CounterVec
	rateLimited          *prometheus.CounterVec

	pgStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Init builds the process-wide metrics once. It returns nil when disabled.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func Current() *Metrics {
	return instance
}

// NewMetrics returns metrics on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbp_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nbp_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nbp_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		aggregateOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nbp_aggregate_operation_duration_seconds",
			Help:    "Aggregate write duration by operation/status.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"operation", "status"}),
		aggregateConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbp_aggregate_conflicts_total",
			Help: "Aggregate writes rejected by the optimistic guard.",
		}, []string{"operation"}),
		aggregateRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbp_aggregate_retryable_total",
			Help: "Aggregate writes failing with a retryable error.",
		}, []string{"operation"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbp_publish_transitions_total",
			Help: "Committed draft state transitions by operation/from/to.",
		}, []string{"operation", "from", "to"}),
		moderationCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbp_moderation_checks_total",
			Help: "Moderation gate calls by verdict (or error).",
		}, []string{"verdict"}),
		moderationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nbp_moderation_check_duration_seconds",
			Help:    "Moderation gate latency by verdict (or error).",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"verdict"}),
		replicaWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbp_replica_operations_total",
			Help: "Replica store operations by backend/operation/status.",
		}, []string{"backend", "operation", "status"}),
		replicaLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nbp_replica_operation_duration_seconds",
			Help:    "Replica store latency by backend/operation.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"backend", "operation"}),
		compensationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbp_compensation_failures_total",
			Help: "Best-effort compensating actions that failed, by operation.",
		}, []string{"operation"}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbp_resolver_lookups_total",
			Help: "Public lesson lookups by outcome.",
		}, []string{"outcome"}),
		reconcileActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbp_reconcile_actions_total",
			Help: "Repairs performed by the reconciler, by action.",
		}, []string{"action"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbp_publication_events_total",
			Help: "Publication lifecycle events by type/status.",
		}, []string{"event", "status"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbp_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by route.",
		}, []string{"route"}),
		pgStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nbp_postgres_stats",
			Help: "Database connection pool stats.",
		}, []string{"metric"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nbp_redis_up",
			Help: "Redis connectivity (1=up, 0=down).",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nbp_redis_ping_seconds",
			Help: "Redis ping latency in seconds.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateConflicts, m.aggregateRetries,
		m.transitions,
		m.moderationCalls, m.moderationLatency,
		m.replicaWrites, m.replicaLatency,
		m.compensationFailures, m.resolves, m.reconcileActions,
		m.eventsPublished, m.rateLimited,
		m.pgStats, m.redisUp, m.redisPing,
	)
	return m
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = orUnknown(method)
	route = orUnknown(route)
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.WithLabelValues(orUnknown(name), orUnknown(status)).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.WithLabelValues(orUnknown(name)).Inc()
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetries.WithLabelValues(orUnknown(name)).Inc()
}

func (m *Metrics) IncTransition(op, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(orUnknown(op), orUnknown(from), orUnknown(to)).Inc()
}

// ObserveModeration records a gate call; verdict is "error" on transport failure.
func (m *Metrics) ObserveModeration(verdict string, dur time.Duration) {
	if m == nil {
		return
	}
	verdict = orUnknown(verdict)
	m.moderationCalls.WithLabelValues(verdict).Inc()
	m.moderationLatency.WithLabelValues(verdict).Observe(dur.Seconds())
}

func (m *Metrics) ObserveReplica(backend, op string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	backend = orUnknown(backend)
	op = orUnknown(op)
	m.replicaWrites.WithLabelValues(backend, op, status).Inc()
	m.replicaLatency.WithLabelValues(backend, op).Observe(dur.Seconds())
}

func (m *Metrics) IncCompensationFailure(op string) {
	if m == nil {
		return
	}
	m.compensationFailures.WithLabelValues(orUnknown(op)).Inc()
}

func (m *Metrics) IncResolve(outcome string) {
	if m == nil {
		return
	}
	m.resolves.WithLabelValues(orUnknown(outcome)).Inc()
}

func (m *Metrics) AddReconcileActions(action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reconcileActions.WithLabelValues(orUnknown(action)).Add(float64(n))
}

func (m *Metrics) IncEvent(event, status string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(orUnknown(event), orUnknown(status)).Inc()
}

func (m *Metrics) IncRateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(orUnknown(route)).Inc()
}

// StartPostgresCollector samples the gorm connection pool until ctx ends.
func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

// StartRedisCollector pings rdb until ctx ends. The client is owned by the caller.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
