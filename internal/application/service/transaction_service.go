package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/clinicpos/diagnostics-api/internal/domain/pricing"
	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/clinicpos/diagnostics-api/internal/observability/metrics"
	"github.com/clinicpos/diagnostics-api/pkg/apperror"
	"github.com/clinicpos/diagnostics-api/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var tracer = otel.Tracer("github.com/clinicpos/diagnostics-api/internal/application/service")

// SequencePrefixes are the number prefixes for transactions and receipts
type SequencePrefixes struct {
	Transaction string
	Receipt     string
}

// TransactionService is the single entry point for creating lab orders
type TransactionService struct {
	txm          repository.TxManager
	patientRepo  repository.PatientRepository
	labTestRepo  repository.LabTestRepository
	discountRepo repository.DiscountRepository
	txnRepo      repository.TransactionRepository
	testRepo     repository.TransactionTestRepository
	eventRepo    repository.TransactionEventRepository
	sequences    *SequenceGenerator
	calendar     *Calendar
	prefixes     SequencePrefixes
	audit        AuditSink
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(
	txm repository.TxManager,
	patientRepo repository.PatientRepository,
	labTestRepo repository.LabTestRepository,
	discountRepo repository.DiscountRepository,
	txnRepo repository.TransactionRepository,
	testRepo repository.TransactionTestRepository,
	eventRepo repository.TransactionEventRepository,
	sequences *SequenceGenerator,
	calendar *Calendar,
	prefixes SequencePrefixes,
	audit AuditSink,
	m *metrics.Metrics,
	logger *zap.Logger,
) *TransactionService {
	if audit == nil {
		audit = nopAuditSink{}
	}
	if m == nil {
		m = metrics.NewNop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionService{
		txm:          txm,
		patientRepo:  patientRepo,
		labTestRepo:  labTestRepo,
		discountRepo: discountRepo,
		txnRepo:      txnRepo,
		testRepo:     testRepo,
		eventRepo:    eventRepo,
		sequences:    sequences,
		calendar:     calendar,
		prefixes:     prefixes,
		audit:        audit,
		metrics:      m,
		logger:       logger,
	}
}

// PatientDraft holds the fields for registering a walk-in patient
type PatientDraft struct {
	FirstName  string
	MiddleName string
	LastName   string
	BirthDate  *time.Time
	Gender     string
	Contact    string
	Address    string
}

// CreateTransactionInput represents the create transaction input.
// Exactly one of PatientID and Patient is expected.
type CreateTransactionInput struct {
	ActorID        uuid.UUID
	PatientID      *uuid.UUID
	Patient        *PatientDraft
	TestIDs        []uuid.UUID
	PaymentMethod  enum.PaymentMethod
	AmountTendered *decimal.Decimal
	Discount       *pricing.Selection
	Coverage       *pricing.Selection
	Notes          string
}

// CreateTransaction registers or loads the patient, prices the selected
// tests and persists the order with its tests and creation event. Either all
// of it is stored or none of it.
func (s *TransactionService) CreateTransaction(ctx context.Context, input *CreateTransactionInput) (*entity.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.CreateTransaction")
	defer span.End()
	start := time.Now()

	txn, err := s.createTransaction(ctx, input)
	if err != nil {
		appErr := apperror.GetAppError(err)
		s.metrics.TransactionsFailed.WithLabelValues(appErr.Reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, appErr.Reason)
		return nil, err
	}

	s.metrics.CreateDuration.Observe(time.Since(start).Seconds())
	s.metrics.TransactionsCreated.WithLabelValues(txn.PaymentMethod.String(), txn.PaymentStatus.String()).Inc()
	s.metrics.TransactionNetTotal.Observe(txn.NetTotal.InexactFloat64())
	span.SetAttributes(
		attribute.String("transaction.number", txn.TransactionNumber),
		attribute.Int("transaction.queue_number", txn.QueueNumber),
		attribute.Int("transaction.tests", len(txn.Tests)),
	)

	s.audit.Record(ctx, &entity.AuditLog{
		ActorID:     input.ActorID,
		ActionType:  "transaction_created",
		Category:    entity.AuditCategoryTransaction,
		Description: fmt.Sprintf("Created transaction %s for %s", txn.TransactionNumber, txn.Patient.Name),
		Metadata: datatypes.JSONMap{
			"transaction_number": txn.TransactionNumber,
			"receipt_number":     txn.ReceiptNumber,
			"net_total":          txn.NetTotal.StringFixed(2),
		},
		Severity:   enum.AuditSeverityInfo,
		EntityType: "transaction",
		EntityID:   txn.ID.String(),
	})

	s.logger.Info("transaction created",
		zap.String("transaction_number", txn.TransactionNumber),
		zap.String("receipt_number", txn.ReceiptNumber),
		zap.Int("queue_number", txn.QueueNumber),
		zap.String("net_total", txn.NetTotal.StringFixed(2)),
		zap.String("payment_status", txn.PaymentStatus.String()),
	)

	return txn, nil
}

func (s *TransactionService) createTransaction(ctx context.Context, input *CreateTransactionInput) (*entity.Transaction, error) {
	testIDs, err := validateCreateInput(input)
	if err != nil {
		return nil, err
	}

	now := s.calendar.Now()
	day := s.calendar.DayOf(now)

	var txn *entity.Transaction
	err = s.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		patient, err := s.resolvePatient(ctx, input, day)
		if err != nil {
			return err
		}

		tests, err := s.loadTests(ctx, testIDs)
		if err != nil {
			return err
		}

		discount, err := s.resolveRate(ctx, "discount", entity.DiscountKindDiscount, input.Discount)
		if err != nil {
			return err
		}
		coverage, err := s.resolveRate(ctx, "coverage", entity.DiscountKindCoverage, input.Coverage)
		if err != nil {
			return err
		}

		items := make([]pricing.LineItem, len(tests))
		for i, t := range tests {
			items[i] = pricing.LineItem{ID: t.ID, Name: t.Name, Price: t.Price}
		}
		priced, err := pricing.Calculate(pricing.Input{
			Items:    items,
			Discount: discount,
			Coverage: coverage,
			Tendered: input.AmountTendered,
		})
		if err != nil {
			return pricingError(err)
		}

		txnNumber, err := s.sequences.Next(ctx, s.prefixes.Transaction, day)
		if err != nil {
			return err
		}
		receiptNumber, err := s.sequences.Next(ctx, s.prefixes.Receipt, day)
		if err != nil {
			return err
		}

		lastQueue, err := s.txnRepo.MaxQueueNumber(ctx, day)
		if err != nil {
			return apperror.Wrap("allocate queue number", err)
		}

		txn = &entity.Transaction{
			TransactionNumber: txnNumber,
			ReceiptNumber:     receiptNumber,
			BusinessDate:      day,
			QueueNumber:       lastQueue + 1,
			PatientID:         &patient.ID,
			Patient:           patient.Snapshot(day),
			TotalAmount:       priced.Gross,
			DiscountID:        priced.Discount.ID,
			DiscountName:      priced.Discount.Name,
			DiscountRate:      priced.Discount.Percent,
			DiscountAmount:    priced.DiscountAmount,
			CoverageID:        priced.Coverage.ID,
			CoverageName:      priced.Coverage.Name,
			CoverageRate:      priced.Coverage.Percent,
			CoverageAmount:    priced.CoverageAmount,
			NetTotal:          priced.Net,
			AmountTendered:    priced.Tendered,
			ChangeDue:         priced.Change,
			BalanceDue:        priced.Balance,
			PaymentMethod:     input.PaymentMethod,
			PaymentStatus:     priced.PaymentStatus,
			LabStatus:         enum.LabStatusPending,
			Notes:             strings.TrimSpace(input.Notes),
			CashierID:         input.ActorID,
		}
		if err := s.txnRepo.Create(ctx, txn); err != nil {
			return storageConflict("create transaction", err)
		}

		lines := make([]entity.TransactionTest, len(tests))
		names := make([]string, len(tests))
		for i := range tests {
			labTestID := tests[i].ID
			lines[i] = entity.TransactionTest{
				TransactionID: txn.ID,
				LabTestID:     &labTestID,
				Test:          tests[i].Snapshot(),
				Status:        enum.TestStatusPending,
			}
			names[i] = tests[i].Name
		}
		if err := s.testRepo.CreateBatch(ctx, lines); err != nil {
			return apperror.Wrap("create transaction tests", err)
		}
		txn.Tests = lines

		event := &entity.TransactionEvent{
			TransactionID: txn.ID,
			ActorID:       input.ActorID,
			EventType:     enum.TransactionEventCreated,
			Description:   fmt.Sprintf("Transaction %s created with %d test(s)", txn.TransactionNumber, len(lines)),
			Metadata: datatypes.JSONMap{
				"transaction_number": txn.TransactionNumber,
				"receipt_number":     txn.ReceiptNumber,
				"queue_number":       txn.QueueNumber,
				"total_amount":       txn.TotalAmount.StringFixed(2),
				"discount_amount":    txn.DiscountAmount.StringFixed(2),
				"coverage_amount":    txn.CoverageAmount.StringFixed(2),
				"net_total":          txn.NetTotal.StringFixed(2),
				"payment_method":     txn.PaymentMethod.String(),
				"payment_status":     txn.PaymentStatus.String(),
				"tests":              names,
			},
		}
		if err := s.eventRepo.Create(ctx, event); err != nil {
			return apperror.Wrap("record transaction event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// validateCreateInput rejects malformed requests before anything is written
// and returns the de-duplicated test ids.
func validateCreateInput(input *CreateTransactionInput) ([]uuid.UUID, error) {
	var fieldErrors []apperror.FieldError

	switch {
	case input.PatientID == nil && input.Patient == nil:
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "patient", Message: "a patient id or patient details are required"})
	case input.PatientID == nil:
		if strings.TrimSpace(input.Patient.FirstName) == "" {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: "patient.first_name", Message: "is required"})
		}
		if strings.TrimSpace(input.Patient.LastName) == "" {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: "patient.last_name", Message: "is required"})
		}
	}
	if !input.PaymentMethod.IsValid() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "payment_method", Message: "is not a supported payment method"})
	}
	if input.AmountTendered != nil && input.AmountTendered.IsNegative() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "amount_tendered", Message: "must not be negative"})
	}
	if len(fieldErrors) > 0 {
		return nil, apperror.NewValidationError(fieldErrors)
	}

	for _, sel := range []struct {
		field string
		sel   *pricing.Selection
	}{{"discount_rate", input.Discount}, {"coverage_rate", input.Coverage}} {
		if sel.sel != nil && sel.sel.Rate != nil {
			if r := *sel.sel.Rate; r.IsNegative() || r.GreaterThan(decimal.NewFromInt(100)) {
				return nil, apperror.NewPricingInputError(sel.field, "must be between 0 and 100")
			}
		}
	}

	if len(input.TestIDs) == 0 {
		return nil, apperror.NewInvalidSelectionError([]apperror.FieldError{
			{Field: "test_ids", Message: "at least one test must be selected"},
		})
	}

	seen := make(map[uuid.UUID]struct{}, len(input.TestIDs))
	ids := make([]uuid.UUID, 0, len(input.TestIDs))
	for _, id := range input.TestIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *TransactionService) resolvePatient(ctx context.Context, input *CreateTransactionInput, day time.Time) (*entity.Patient, error) {
	if input.PatientID != nil {
		patient, err := s.patientRepo.GetByID(ctx, *input.PatientID)
		if err != nil {
			return nil, apperror.Wrap("load patient", err)
		}
		if patient == nil {
			return nil, apperror.NewPatientNotFoundError(*input.PatientID)
		}
		return patient, nil
	}

	d := input.Patient
	patient := &entity.Patient{
		FirstName:  strings.TrimSpace(d.FirstName),
		MiddleName: strings.TrimSpace(d.MiddleName),
		LastName:   strings.TrimSpace(d.LastName),
		BirthDate:  d.BirthDate,
		Gender:     d.Gender,
		Contact:    d.Contact,
		Address:    d.Address,
		CreatedBy:  input.ActorID,
	}
	if err := s.patientRepo.Create(ctx, patient); err != nil {
		return nil, apperror.Wrap("register patient", err)
	}
	return patient, nil
}

// loadTests returns the catalog items in request order. An entirely unknown
// selection is an invalid selection; a partially unknown one names each
// missing id.
func (s *TransactionService) loadTests(ctx context.Context, ids []uuid.UUID) ([]entity.LabTest, error) {
	found, err := s.labTestRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Wrap("load lab tests", err)
	}
	if len(found) == 0 {
		return nil, apperror.NewInvalidSelectionError([]apperror.FieldError{
			{Field: "test_ids", Message: "none of the selected tests exist in the catalog"},
		})
	}

	byID := make(map[uuid.UUID]entity.LabTest, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	tests := make([]entity.LabTest, 0, len(ids))
	var missing []apperror.FieldError
	for i, id := range ids {
		t, ok := byID[id]
		if !ok {
			missing = append(missing, apperror.FieldError{
				Field:   fmt.Sprintf("test_ids[%d]", i),
				Message: fmt.Sprintf("test %s not found", id),
			})
			continue
		}
		tests = append(tests, t)
	}
	if len(missing) > 0 {
		return nil, apperror.NewTestNotFoundError(missing)
	}
	return tests, nil
}

// resolveRate looks the selection up in the catalog. Unknown ids, inactive
// entries and entries of the other kind fall back to the raw rate.
func (s *TransactionService) resolveRate(ctx context.Context, field, kind string, sel *pricing.Selection) (pricing.Rate, error) {
	var catalog *pricing.Rate
	if sel != nil && sel.ID != nil {
		d, err := s.discountRepo.GetByID(ctx, *sel.ID)
		if err != nil {
			return pricing.Rate{}, apperror.Wrap("load "+field, err)
		}
		if d != nil && d.IsActive && d.Kind == kind {
			id := d.ID
			catalog = &pricing.Rate{ID: &id, Name: d.Name, Percent: d.Rate}
		}
	}

	rate, err := pricing.ResolveRate(field+"_rate", sel, catalog)
	if err != nil {
		return pricing.Rate{}, pricingError(err)
	}
	return rate, nil
}

func pricingError(err error) error {
	var inputErr *pricing.InputError
	switch {
	case errors.Is(err, pricing.ErrEmptySelection):
		return apperror.NewInvalidSelectionError([]apperror.FieldError{
			{Field: "test_ids", Message: "at least one test must be selected"},
		})
	case errors.As(err, &inputErr):
		return apperror.NewPricingInputError(inputErr.Field, inputErr.Message)
	default:
		return err
	}
}

// storageConflict maps a unique violation on a number column to a
// retryable conflict. Concurrent creators are serialized by the counter rows,
// so this only fires when numbers were allocated outside this service.
func storageConflict(op string, err error) error {
	if errors.Is(err, repository.ErrDuplicateKey) {
		appErr := apperror.NewConflictError("Transaction number collision, please retry")
		appErr.Retryable = true
		appErr.Err = err
		return appErr
	}
	return apperror.Wrap(op, err)
}

// GetTransaction returns a transaction with its tests
func (s *TransactionService) GetTransaction(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	txn, err := s.txnRepo.GetWithTests(ctx, id)
	if err != nil {
		return nil, apperror.Wrap("load transaction", err)
	}
	if txn == nil {
		return nil, apperror.NewNotFoundError("Transaction")
	}
	return txn, nil
}

// ListTransactions returns a page of transactions
func (s *TransactionService) ListTransactions(ctx context.Context, params *repository.TransactionFilterParams) (*pagination.PaginatedResult[entity.Transaction], error) {
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	params.Pagination.Validate()

	txns, total, err := s.txnRepo.List(ctx, params)
	if err != nil {
		return nil, apperror.Wrap("list transactions", err)
	}
	return pagination.NewPaginatedResult(txns, pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)), nil
}

// ListEvents returns a transaction's event trail, oldest first
func (s *TransactionService) ListEvents(ctx context.Context, id uuid.UUID) ([]entity.TransactionEvent, error) {
	txn, err := s.txnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Wrap("load transaction", err)
	}
	if txn == nil {
		return nil, apperror.NewNotFoundError("Transaction")
	}
	events, err := s.eventRepo.ListByTransaction(ctx, id)
	if err != nil {
		return nil, apperror.Wrap("list transaction events", err)
	}
	return events, nil
}
