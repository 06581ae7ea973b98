package repository

import (
	"context"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	domainRepo "github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"gorm.io/gorm"
)

type counterRepository struct {
	db *gorm.DB
}

// NewCounterRepository creates a counter store on the sequence_counters table
func NewCounterRepository(db *gorm.DB) domainRepo.CounterRepository {
	return &counterRepository{db: db}
}

// The upsert takes the counter row lock and holds it until the caller's
// transaction ends, so concurrent allocators for a key queue behind each other.
const incrementCounterSQL = `
INSERT INTO sequence_counters (key, value, expires_at, updated_at)
VALUES (?, 1, ?, NOW())
ON CONFLICT (key) DO UPDATE
SET value = sequence_counters.value + 1, updated_at = NOW()
RETURNING value`

func (r *counterRepository) IncrementAndGet(ctx context.Context, key string, expiresAt time.Time) (int64, error) {
	var value int64
	err := dbFromContext(ctx, r.db).Raw(incrementCounterSQL, key, expiresAt).Scan(&value).Error
	return value, err
}

func (r *counterRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := dbFromContext(ctx, r.db).
		Where("expires_at < ?", now).
		Delete(&entity.SequenceCounter{})
	return res.RowsAffected, res.Error
}
