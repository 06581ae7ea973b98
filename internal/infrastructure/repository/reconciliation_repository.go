package repository

import (
	"context"
	"errors"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	domainRepo "github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type reconciliationRepository struct {
	db *gorm.DB
}

// NewReconciliationRepository creates a new cash reconciliation repository
func NewReconciliationRepository(db *gorm.DB) domainRepo.ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

// Create relies on the partial unique index on reconciliation_date to reject a
// second active record for the same day.
func (r *reconciliationRepository) Create(ctx context.Context, rec *entity.CashReconciliation) error {
	err := dbFromContext(ctx, r.db).Create(rec).Error
	if isUniqueViolation(err) {
		return domainRepo.ErrDuplicateKey
	}
	return err
}

func (r *reconciliationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.CashReconciliation, error) {
	var rec entity.CashReconciliation
	err := dbFromContext(ctx, r.db).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &rec, err
}

func (r *reconciliationRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.CashReconciliation, error) {
	var rec entity.CashReconciliation
	err := dbFromContext(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &rec, err
}

func (r *reconciliationRepository) GetActiveByDate(ctx context.Context, date time.Time) (*entity.CashReconciliation, error) {
	var rec entity.CashReconciliation
	err := dbFromContext(ctx, r.db).
		Scopes(BusinessDayScope("reconciliation_date", date)).
		Where("state <> ?", enum.ReconciliationStateApproved).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &rec, err
}

func (r *reconciliationRepository) Update(ctx context.Context, rec *entity.CashReconciliation) error {
	return dbFromContext(ctx, r.db).Save(rec).Error
}

func (r *reconciliationRepository) List(ctx context.Context, params *domainRepo.ReconciliationFilterParams) ([]entity.CashReconciliation, int64, error) {
	var recs []entity.CashReconciliation
	var total int64

	query := dbFromContext(ctx, r.db).Model(&entity.CashReconciliation{})
	if params.StartDate != nil {
		query = query.Where("reconciliation_date >= ?", params.StartDate.Format("2006-01-02"))
	}
	if params.EndDate != nil {
		query = query.Where("reconciliation_date <= ?", params.EndDate.Format("2006-01-02"))
	}
	if params.State != nil {
		query = query.Where("state = ?", *params.State)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Order("reconciliation_date DESC, created_at DESC").
		Find(&recs).Error

	return recs, total, err
}
