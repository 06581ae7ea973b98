package repository

import (
	"context"
	"time"
)

// CounterRepository is an atomic per-key counter store
type CounterRepository interface {
	// IncrementAndGet atomically bumps key and returns the new value, creating
	// the counter at 1 with the given expiry if absent.
	IncrementAndGet(ctx context.Context, key string, expiresAt time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
