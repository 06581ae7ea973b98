package service

import (
	"context"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"go.uber.org/zap"
)

// JanitorService removes rows that only matter for a bounded time: sequence
// counters of finished days and expired idempotency keys.
type JanitorService struct {
	counters    repository.CounterRepository
	idempotency repository.IdempotencyRepository
	calendar    *Calendar
	logger      *zap.Logger
}

// NewJanitorService creates a new janitor service
func NewJanitorService(
	counters repository.CounterRepository,
	idempotency repository.IdempotencyRepository,
	calendar *Calendar,
	logger *zap.Logger,
) *JanitorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JanitorService{
		counters:    counters,
		idempotency: idempotency,
		calendar:    calendar,
		logger:      logger,
	}
}

// SweepResult counts what a sweep removed
type SweepResult struct {
	Counters        int64
	IdempotencyKeys int64
}

// Sweep deletes everything that has expired by now
func (s *JanitorService) Sweep(ctx context.Context) (*SweepResult, error) {
	now := s.calendar.Now()

	counters, err := s.counters.DeleteExpired(ctx, now)
	if err != nil {
		return nil, err
	}
	keys, err := s.idempotency.DeleteExpired(ctx, now)
	if err != nil {
		return &SweepResult{Counters: counters}, err
	}

	return &SweepResult{Counters: counters, IdempotencyKeys: keys}, nil
}

// Run sweeps every interval until ctx is cancelled
func (s *JanitorService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Warn("janitor sweep failed", zap.Error(err))
				continue
			}
			if res.Counters > 0 || res.IdempotencyKeys > 0 {
				s.logger.Info("janitor sweep",
					zap.Int64("counters", res.Counters),
					zap.Int64("idempotency_keys", res.IdempotencyKeys),
				)
			}
		}
	}
}
