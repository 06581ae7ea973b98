package service

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/clinicpos/diagnostics-api/internal/observability/metrics"
	"github.com/clinicpos/diagnostics-api/pkg/apperror"
)

const sequenceDateLayout = "20060102"

// SequenceGenerator issues {PREFIX}-{YYYYMMDD}-{NNNN} numbers that restart at 1
// every business day. Numbers come from an atomic counter store; there is no
// fallback when the store fails.
type SequenceGenerator struct {
	counters repository.CounterRepository
	grace    time.Duration
	metrics  *metrics.Metrics
}

// NewSequenceGenerator creates a generator whose counters expire grace after
// the end of their day
func NewSequenceGenerator(counters repository.CounterRepository, grace time.Duration, m *metrics.Metrics) *SequenceGenerator {
	return &SequenceGenerator{
		counters: counters,
		grace:    grace,
		metrics:  m,
	}
}

// Next returns the next number for prefix on day. Inside a storage
// transaction the counter row stays locked until commit.
func (g *SequenceGenerator) Next(ctx context.Context, prefix string, day time.Time) (string, error) {
	key := SequenceKey(prefix, day)
	expiresAt := time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, day.Location()).Add(g.grace)

	n, err := g.counters.IncrementAndGet(ctx, key, expiresAt)
	if err != nil {
		if g.metrics != nil {
			g.metrics.SequenceFailures.Inc()
		}
		return "", apperror.NewSequenceUnavailableError(err)
	}

	return FormatSequence(prefix, day, n), nil
}

// SequenceKey is the counter key for prefix on day
func SequenceKey(prefix string, day time.Time) string {
	return prefix + ":" + day.Format(sequenceDateLayout)
}

// FormatSequence renders a persisted identifier, e.g. TXN-20250115-0007
func FormatSequence(prefix string, day time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format(sequenceDateLayout), n)
}
