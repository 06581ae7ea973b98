package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/clinicpos/diagnostics-api/internal/observability/metrics"
	"github.com/clinicpos/diagnostics-api/pkg/apperror"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// LabService records lab results and keeps each transaction's lab status in
// step with its tests
type LabService struct {
	txm       repository.TxManager
	txnRepo   repository.TransactionRepository
	testRepo  repository.TransactionTestRepository
	eventRepo repository.TransactionEventRepository
	calendar  *Calendar
	audit     AuditSink
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewLabService creates a new lab service
func NewLabService(
	txm repository.TxManager,
	txnRepo repository.TransactionRepository,
	testRepo repository.TransactionTestRepository,
	eventRepo repository.TransactionEventRepository,
	calendar *Calendar,
	audit AuditSink,
	m *metrics.Metrics,
	logger *zap.Logger,
) *LabService {
	if audit == nil {
		audit = nopAuditSink{}
	}
	if m == nil {
		m = metrics.NewNop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabService{
		txm:       txm,
		txnRepo:   txnRepo,
		testRepo:  testRepo,
		eventRepo: eventRepo,
		calendar:  calendar,
		audit:     audit,
		metrics:   m,
		logger:    logger,
	}
}

// UpdateTestResultInput represents a result entry for one ordered test
type UpdateTestResultInput struct {
	TransactionID uuid.UUID
	TestID        uuid.UUID
	Status        enum.TestStatus
	Result        map[string]interface{}
	Remarks       *string
	ActorID       uuid.UUID
}

// UpdateTestResultOutput carries the updated test and its recomputed parent
type UpdateTestResultOutput struct {
	Test        *entity.TransactionTest
	Transaction *entity.Transaction
}

// UpdateTestResult advances a test's status and stores its result. The parent
// transaction row is locked for the whole update so concurrent edits to
// sibling tests recompute the aggregate one after another.
func (s *LabService) UpdateTestResult(ctx context.Context, input *UpdateTestResultInput) (*UpdateTestResultOutput, error) {
	ctx, span := tracer.Start(ctx, "LabService.UpdateTestResult")
	defer span.End()
	span.SetAttributes(
		attribute.String("transaction.id", input.TransactionID.String()),
		attribute.String("test.status", input.Status.String()),
	)

	if !input.Status.IsValid() {
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "status", Message: "must be one of pending, in_progress, completed"},
		})
	}

	var out UpdateTestResultOutput
	err := s.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		txn, err := s.txnRepo.GetForUpdate(ctx, input.TransactionID)
		if err != nil {
			return apperror.Wrap("lock transaction", err)
		}
		if txn == nil {
			return apperror.NewNotFoundError("Transaction")
		}

		test, err := s.testRepo.GetByID(ctx, input.TestID)
		if err != nil {
			return apperror.Wrap("load transaction test", err)
		}
		if test == nil || test.TransactionID != txn.ID {
			return apperror.NewNotFoundError("Transaction test")
		}
		if txn.LabStatus == enum.LabStatusReleased {
			return apperror.NewInvalidTransitionError("transaction", txn.LabStatus.String(), "updated")
		}

		from := test.Status
		actor := input.ActorID
		if err := test.Advance(input.Status, &actor, s.calendar.Now()); err != nil {
			switch {
			case errors.Is(err, entity.ErrTestStatusRegression):
				return apperror.NewInvalidTransitionError("test", from.String(), input.Status.String())
			default:
				return apperror.NewValidationError([]apperror.FieldError{{Field: "status", Message: err.Error()}})
			}
		}
		if input.Result != nil {
			test.Result = datatypes.JSONMap(input.Result)
		}
		if input.Remarks != nil {
			test.Remarks = *input.Remarks
		}
		if err := s.testRepo.Update(ctx, test); err != nil {
			return apperror.Wrap("update transaction test", err)
		}

		siblings, err := s.testRepo.GetByTransactionID(ctx, txn.ID)
		if err != nil {
			return apperror.Wrap("load transaction tests", err)
		}
		statuses := make([]enum.TestStatus, 0, len(siblings))
		for i := range siblings {
			if siblings[i].ID == test.ID {
				siblings[i] = *test
			}
			statuses = append(statuses, siblings[i].Status)
		}

		previous := txn.LabStatus
		if next := entity.AggregateLabStatus(statuses); next != previous {
			if err := txn.ApplyLabStatus(next); err != nil {
				return apperror.NewInvalidTransitionError("transaction", previous.String(), next.String())
			}
			if err := s.txnRepo.UpdateLabStatus(ctx, txn); err != nil {
				return apperror.Wrap("update lab status", err)
			}
		}

		event := &entity.TransactionEvent{
			TransactionID: txn.ID,
			ActorID:       input.ActorID,
			EventType:     enum.TransactionEventLabUpdate,
			Description:   fmt.Sprintf("%s moved from %s to %s", test.Test.Name, from, test.Status),
			Metadata: datatypes.JSONMap{
				"test_id":             test.ID.String(),
				"test_name":           test.Test.Name,
				"from_status":         from.String(),
				"to_status":           test.Status.String(),
				"previous_lab_status": previous.String(),
				"lab_status":          txn.LabStatus.String(),
			},
		}
		if err := s.eventRepo.Create(ctx, event); err != nil {
			return apperror.Wrap("record lab event", err)
		}

		txn.Tests = siblings
		out = UpdateTestResultOutput{Test: test, Transaction: txn}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.LabUpdates.WithLabelValues(out.Test.Status.String()).Inc()
	s.audit.Record(ctx, &entity.AuditLog{
		ActorID:     input.ActorID,
		ActionType:  "lab_result_updated",
		Category:    entity.AuditCategoryLab,
		Description: fmt.Sprintf("%s on %s set to %s", out.Test.Test.Name, out.Transaction.TransactionNumber, out.Test.Status),
		Severity:    enum.AuditSeverityInfo,
		EntityType:  "transaction_test",
		EntityID:    out.Test.ID.String(),
	})
	return &out, nil
}

// Release hands a completed transaction's results to the patient
func (s *LabService) Release(ctx context.Context, transactionID, actorID uuid.UUID) (*entity.Transaction, error) {
	ctx, span := tracer.Start(ctx, "LabService.Release")
	defer span.End()

	var released *entity.Transaction
	err := s.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		txn, err := s.txnRepo.GetForUpdate(ctx, transactionID)
		if err != nil {
			return apperror.Wrap("lock transaction", err)
		}
		if txn == nil {
			return apperror.NewNotFoundError("Transaction")
		}

		from := txn.LabStatus
		if err := txn.Release(actorID, s.calendar.Now()); err != nil {
			return apperror.NewInvalidTransitionError("transaction", from.String(), enum.LabStatusReleased.String())
		}
		if err := s.txnRepo.UpdateLabStatus(ctx, txn); err != nil {
			return apperror.Wrap("release transaction", err)
		}

		event := &entity.TransactionEvent{
			TransactionID: txn.ID,
			ActorID:       actorID,
			EventType:     enum.TransactionEventReleased,
			Description:   fmt.Sprintf("Results for %s released", txn.TransactionNumber),
			Metadata:      datatypes.JSONMap{"transaction_number": txn.TransactionNumber},
		}
		if err := s.eventRepo.Create(ctx, event); err != nil {
			return apperror.Wrap("record release event", err)
		}
		released = txn
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.audit.Record(ctx, &entity.AuditLog{
		ActorID:     actorID,
		ActionType:  "results_released",
		Category:    entity.AuditCategoryLab,
		Description: fmt.Sprintf("Released results for %s", released.TransactionNumber),
		Severity:    enum.AuditSeverityInfo,
		EntityType:  "transaction",
		EntityID:    released.ID.String(),
	})
	s.logger.Info("results released", zap.String("transaction_number", released.TransactionNumber))
	return released, nil
}
