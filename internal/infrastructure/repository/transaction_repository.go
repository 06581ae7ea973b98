package repository

import (
	"context"
	"errors"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	domainRepo "github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) domainRepo.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, txn *entity.Transaction) error {
	err := dbFromContext(ctx, r.db).Omit("Tests").Create(txn).Error
	if isUniqueViolation(err) {
		return domainRepo.ErrDuplicateKey
	}
	return err
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	var txn entity.Transaction
	err := dbFromContext(ctx, r.db).First(&txn, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &txn, err
}

func (r *transactionRepository) GetWithTests(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	var txn entity.Transaction
	err := dbFromContext(ctx, r.db).
		Preload("Tests", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&txn, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &txn, err
}

func (r *transactionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	var txn entity.Transaction
	err := dbFromContext(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&txn, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &txn, err
}

func (r *transactionRepository) MaxQueueNumber(ctx context.Context, businessDate time.Time) (int, error) {
	var max int
	err := dbFromContext(ctx, r.db).
		Model(&entity.Transaction{}).
		Scopes(BusinessDayScope("business_date", businessDate)).
		Select("COALESCE(MAX(queue_number), 0)").
		Scan(&max).Error
	return max, err
}

func (r *transactionRepository) UpdateLabStatus(ctx context.Context, txn *entity.Transaction) error {
	return dbFromContext(ctx, r.db).
		Model(&entity.Transaction{}).
		Where("id = ?", txn.ID).
		Updates(map[string]interface{}{
			"lab_status":  txn.LabStatus,
			"released_at": txn.ReleasedAt,
			"released_by": txn.ReleasedBy,
			"updated_at":  time.Now(),
		}).Error
}

func (r *transactionRepository) List(ctx context.Context, params *domainRepo.TransactionFilterParams) ([]entity.Transaction, int64, error) {
	var txns []entity.Transaction
	var total int64

	query := dbFromContext(ctx, r.db).Model(&entity.Transaction{})

	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("transaction_number ILIKE ? OR receipt_number ILIKE ? OR patient_name ILIKE ?", like, like, like)
	}
	if params.BusinessDate != nil {
		query = query.Scopes(BusinessDayScope("business_date", *params.BusinessDate))
	}
	if params.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *params.PaymentStatus)
	}
	if params.LabStatus != nil {
		query = query.Where("lab_status = ?", *params.LabStatus)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Order("business_date DESC, queue_number DESC").
		Find(&txns).Error

	return txns, total, err
}

func (r *transactionRepository) SumPaidCash(ctx context.Context, businessDate time.Time) (decimal.Decimal, int, error) {
	var row struct {
		Total decimal.Decimal
		Count int
	}
	err := dbFromContext(ctx, r.db).
		Model(&entity.Transaction{}).
		Scopes(BusinessDayScope("business_date", businessDate)).
		Where("payment_method = ? AND payment_status = ?", enum.PaymentMethodCash, enum.PaymentStatusPaid).
		Select("COALESCE(SUM(net_total), 0) AS total, COUNT(*) AS count").
		Scan(&row).Error
	return row.Total, row.Count, err
}

type transactionTestRepository struct {
	db *gorm.DB
}

// NewTransactionTestRepository creates a new ordered test repository
func NewTransactionTestRepository(db *gorm.DB) domainRepo.TransactionTestRepository {
	return &transactionTestRepository{db: db}
}

func (r *transactionTestRepository) CreateBatch(ctx context.Context, tests []entity.TransactionTest) error {
	if len(tests) == 0 {
		return nil
	}
	return dbFromContext(ctx, r.db).Create(&tests).Error
}

func (r *transactionTestRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.TransactionTest, error) {
	var test entity.TransactionTest
	err := dbFromContext(ctx, r.db).First(&test, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &test, err
}

func (r *transactionTestRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]entity.TransactionTest, error) {
	var tests []entity.TransactionTest
	err := dbFromContext(ctx, r.db).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC, id ASC").
		Find(&tests).Error
	return tests, err
}

func (r *transactionTestRepository) Update(ctx context.Context, test *entity.TransactionTest) error {
	return dbFromContext(ctx, r.db).Save(test).Error
}

type transactionEventRepository struct {
	db *gorm.DB
}

// NewTransactionEventRepository creates a new transaction event repository
func NewTransactionEventRepository(db *gorm.DB) domainRepo.TransactionEventRepository {
	return &transactionEventRepository{db: db}
}

func (r *transactionEventRepository) Create(ctx context.Context, event *entity.TransactionEvent) error {
	return dbFromContext(ctx, r.db).Create(event).Error
}

func (r *transactionEventRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]entity.TransactionEvent, error) {
	var events []entity.TransactionEvent
	err := dbFromContext(ctx, r.db).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

func (r *transactionEventRepository) ClaimUnpublished(ctx context.Context, limit int) ([]entity.TransactionEvent, error) {
	var events []entity.TransactionEvent
	err := dbFromContext(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("published_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *transactionEventRepository) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return dbFromContext(ctx, r.db).
		Model(&entity.TransactionEvent{}).
		Where("id IN ?", ids).
		Update("published_at", at).Error
}
