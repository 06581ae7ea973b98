package repository

import (
	"context"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/clinicpos/diagnostics-api/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionRepository defines the interface for transaction data operations
type TransactionRepository interface {
	// Create inserts the transaction row only; tests are written separately
	Create(ctx context.Context, txn *entity.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error)
	GetWithTests(ctx context.Context, id uuid.UUID) (*entity.Transaction, error)
	// GetForUpdate loads the transaction and holds a row lock until the surrounding transaction ends
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Transaction, error)
	MaxQueueNumber(ctx context.Context, businessDate time.Time) (int, error)
	UpdateLabStatus(ctx context.Context, txn *entity.Transaction) error
	List(ctx context.Context, params *TransactionFilterParams) ([]entity.Transaction, int64, error)
	// SumPaidCash totals net_total of paid cash transactions on businessDate
	SumPaidCash(ctx context.Context, businessDate time.Time) (decimal.Decimal, int, error)
}

// TransactionFilterParams contains filtering parameters for transaction queries
type TransactionFilterParams struct {
	Pagination    *pagination.PaginationParams
	Search        string
	BusinessDate  *time.Time
	PaymentStatus *enum.PaymentStatus
	LabStatus     *enum.LabStatus
}

// TransactionTestRepository defines the interface for ordered test data operations
type TransactionTestRepository interface {
	CreateBatch(ctx context.Context, tests []entity.TransactionTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.TransactionTest, error)
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]entity.TransactionTest, error)
	Update(ctx context.Context, test *entity.TransactionTest) error
}

// TransactionEventRepository defines the interface for the transaction event trail
type TransactionEventRepository interface {
	Create(ctx context.Context, event *entity.TransactionEvent) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]entity.TransactionEvent, error)
	// ClaimUnpublished locks up to limit undelivered events, skipping rows another relay holds.
	// It must run inside WithinTransaction.
	ClaimUnpublished(ctx context.Context, limit int) ([]entity.TransactionEvent, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}
