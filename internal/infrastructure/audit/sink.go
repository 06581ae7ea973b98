// Package audit writes staff actions to the audit log. Writes are best-effort:
// a failing audit store never fails the operation being audited.
package audit

import (
	"context"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/clinicpos/diagnostics-api/internal/observability/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config holds breaker and timeout settings for the audit store
type Config struct {
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultConfig returns the audit sink defaults
func DefaultConfig() Config {
	return Config{
		Timeout:          2 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Sink records audit entries through a circuit breaker. When the audit store
// keeps failing the breaker opens and entries are dropped without waiting on
// the database.
type Sink struct {
	repo    repository.AuditLogRepository
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewSink creates an audit sink over repo
func NewSink(repo repository.AuditLogRepository, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}

	s := &Sink{
		repo:    repo,
		timeout: cfg.Timeout,
		metrics: m,
		logger:  logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "audit_log",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	m.CircuitBreakerState.WithLabelValues("audit_log").Set(float64(gobreaker.StateClosed))
	return s
}

// Record writes entry. The write is detached from ctx's cancellation so an
// entry for a completed request is not lost when the request ends.
func (s *Sink) Record(ctx context.Context, entry *entity.AuditLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.repo.Create(writeCtx, entry)
	})
	if err != nil {
		s.metrics.AuditDropped.Inc()
		s.logger.Warn("audit entry dropped",
			zap.String("action", entry.ActionType),
			zap.String("entity_type", entry.EntityType),
			zap.String("entity_id", entry.EntityID),
			zap.String("severity", entry.Severity.String()),
			zap.Error(err),
		)
	}
}

// State reports the breaker state for health output
func (s *Sink) State() string {
	return s.breaker.State().String()
}
