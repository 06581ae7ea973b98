package repository

import (
	"context"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/clinicpos/diagnostics-api/pkg/pagination"
	"github.com/google/uuid"
)

// ReconciliationRepository defines the interface for cash reconciliation data operations
type ReconciliationRepository interface {
	// Create returns ErrDuplicateKey when an active record already exists for the date
	Create(ctx context.Context, rec *entity.CashReconciliation) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.CashReconciliation, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.CashReconciliation, error)
	// GetActiveByDate returns the non-approved record for date, or nil
	GetActiveByDate(ctx context.Context, date time.Time) (*entity.CashReconciliation, error)
	Update(ctx context.Context, rec *entity.CashReconciliation) error
	List(ctx context.Context, params *ReconciliationFilterParams) ([]entity.CashReconciliation, int64, error)
}

// ReconciliationFilterParams contains filtering parameters for reconciliation history
type ReconciliationFilterParams struct {
	Pagination *pagination.PaginationParams
	StartDate  *time.Time
	EndDate    *time.Time
	State      *enum.ReconciliationState
}
