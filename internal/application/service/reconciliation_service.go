package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/clinicpos/diagnostics-api/internal/observability/metrics"
	"github.com/clinicpos/diagnostics-api/pkg/apperror"
	"github.com/clinicpos/diagnostics-api/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const reconciliationDateLayout = "2006-01-02"

// ReconciliationService handles end-of-day cash reconciliation and its
// cashier/admin correction workflow
type ReconciliationService struct {
	txm      repository.TxManager
	recRepo  repository.ReconciliationRepository
	txnRepo  repository.TransactionRepository
	calendar *Calendar
	audit    AuditSink
	notifier CorrectionNotifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	txm repository.TxManager,
	recRepo repository.ReconciliationRepository,
	txnRepo repository.TransactionRepository,
	calendar *Calendar,
	audit AuditSink,
	notifier CorrectionNotifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ReconciliationService {
	if audit == nil {
		audit = nopAuditSink{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if m == nil {
		m = metrics.NewNop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		txm:      txm,
		recRepo:  recRepo,
		txnRepo:  txnRepo,
		calendar: calendar,
		audit:    audit,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// Preview is today's system-computed expected cash
type Preview struct {
	Date              time.Time
	ExpectedCash      decimal.Decimal
	TransactionCount  int
	AlreadyReconciled bool
}

// PreviewToday sums today's paid cash transactions without writing anything
func (s *ReconciliationService) PreviewToday(ctx context.Context) (*Preview, error) {
	day := s.calendar.Today()

	expected, count, err := s.txnRepo.SumPaidCash(ctx, day)
	if err != nil {
		return nil, apperror.Wrap("compute expected cash", err)
	}
	existing, err := s.recRepo.GetActiveByDate(ctx, day)
	if err != nil {
		return nil, apperror.Wrap("check reconciliation", err)
	}

	return &Preview{
		Date:              day,
		ExpectedCash:      expected.Round(2),
		TransactionCount:  count,
		AlreadyReconciled: existing != nil,
	}, nil
}

// SubmitInput represents a cashier's counted cash for today
type SubmitInput struct {
	ActualCash decimal.Decimal
	Notes      string
	ActorID    uuid.UUID
}

// Submit records today's reconciliation. The pre-check only shortens the
// common path; the partial unique index on the date decides concurrent submits.
func (s *ReconciliationService) Submit(ctx context.Context, input *SubmitInput) (*entity.CashReconciliation, error) {
	ctx, span := tracer.Start(ctx, "ReconciliationService.Submit")
	defer span.End()

	if input.ActualCash.IsNegative() {
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "actual_cash", Message: "must not be negative"},
		})
	}

	day := s.calendar.Today()
	dateLabel := day.Format(reconciliationDateLayout)

	var rec *entity.CashReconciliation
	err := s.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.recRepo.GetActiveByDate(ctx, day)
		if err != nil {
			return apperror.Wrap("check reconciliation", err)
		}
		if existing != nil {
			return apperror.NewAlreadyReconciledError(dateLabel)
		}

		expected, count, err := s.txnRepo.SumPaidCash(ctx, day)
		if err != nil {
			return apperror.Wrap("compute expected cash", err)
		}

		rec = entity.NewCashReconciliation(day, expected, input.ActualCash, count, strings.TrimSpace(input.Notes), input.ActorID)
		if err := s.recRepo.Create(ctx, rec); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return apperror.NewAlreadyReconciledError(dateLabel)
			}
			return apperror.Wrap("save reconciliation", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.Reconciliations.WithLabelValues("submit", rec.Status.String()).Inc()

	severity := enum.AuditSeverityInfo
	if rec.Status != enum.ReconciliationBalanced {
		severity = enum.AuditSeverityWarning
	}
	s.audit.Record(ctx, &entity.AuditLog{
		ActorID:     input.ActorID,
		ActionType:  "cash_reconciliation_submitted",
		Category:    entity.AuditCategoryReconciliation,
		Description: fmt.Sprintf("Reconciled %s: %s (variance %s)", dateLabel, rec.Status, rec.Variance.StringFixed(2)),
		Metadata: datatypes.JSONMap{
			"expected_cash":     rec.ExpectedCash.StringFixed(2),
			"actual_cash":       rec.ActualCash.StringFixed(2),
			"variance":          rec.Variance.StringFixed(2),
			"transaction_count": rec.TransactionCount,
		},
		Severity:   severity,
		EntityType: "cash_reconciliation",
		EntityID:   rec.ID.String(),
	})

	s.logger.Info("cash reconciliation submitted",
		zap.String("date", dateLabel),
		zap.String("status", rec.Status.String()),
		zap.String("variance", rec.Variance.StringFixed(2)),
	)
	return rec, nil
}

// RequestCorrectionInput represents a cashier's request to redo a reconciliation
type RequestCorrectionInput struct {
	ReconciliationID uuid.UUID
	Reason           string
	ActorID          uuid.UUID
}

// RequestCorrection flags a submitted reconciliation for admin review
func (s *ReconciliationService) RequestCorrection(ctx context.Context, input *RequestCorrectionInput) (*entity.CashReconciliation, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "reason", Message: "is required"},
		})
	}

	rec, err := s.transition(ctx, input.ReconciliationID, func(rec *entity.CashReconciliation) error {
		return rec.RequestCorrection(reason, input.ActorID, s.calendar.Now())
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Reconciliations.WithLabelValues("request_correction", rec.Status.String()).Inc()
	s.audit.Record(ctx, &entity.AuditLog{
		ActorID:     input.ActorID,
		ActionType:  "reconciliation_correction_requested",
		Category:    entity.AuditCategoryReconciliation,
		Description: fmt.Sprintf("Correction requested for %s: %s", rec.ReconciliationDate.Format(reconciliationDateLayout), reason),
		Severity:    enum.AuditSeverityWarning,
		EntityType:  "cash_reconciliation",
		EntityID:    rec.ID.String(),
	})

	if err := s.notifier.NotifyCorrectionRequested(ctx, rec); err != nil {
		s.logger.Warn("correction notification failed",
			zap.String("reconciliation_id", rec.ID.String()),
			zap.Error(err),
		)
	}
	return rec, nil
}

// ApproveCorrectionInput represents an admin's approval
type ApproveCorrectionInput struct {
	ReconciliationID uuid.UUID
	ActorID          uuid.UUID
}

// ApproveCorrection accepts a requested correction and reopens the date
func (s *ReconciliationService) ApproveCorrection(ctx context.Context, input *ApproveCorrectionInput) (*entity.CashReconciliation, error) {
	rec, err := s.transition(ctx, input.ReconciliationID, func(rec *entity.CashReconciliation) error {
		return rec.Approve(input.ActorID, s.calendar.Now())
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Reconciliations.WithLabelValues("approve", rec.Status.String()).Inc()
	s.audit.Record(ctx, &entity.AuditLog{
		ActorID:     input.ActorID,
		ActionType:  "reconciliation_correction_approved",
		Category:    entity.AuditCategoryReconciliation,
		Description: fmt.Sprintf("Correction approved for %s; date reopened", rec.ReconciliationDate.Format(reconciliationDateLayout)),
		Severity:    enum.AuditSeverityInfo,
		EntityType:  "cash_reconciliation",
		EntityID:    rec.ID.String(),
	})
	return rec, nil
}

// transition applies a workflow step to a locked reconciliation
func (s *ReconciliationService) transition(ctx context.Context, id uuid.UUID, apply func(*entity.CashReconciliation) error) (*entity.CashReconciliation, error) {
	var rec *entity.CashReconciliation
	err := s.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.recRepo.GetForUpdate(ctx, id)
		if err != nil {
			return apperror.Wrap("lock reconciliation", err)
		}
		if rec == nil {
			return apperror.NewNotFoundError("Reconciliation")
		}

		if err := apply(rec); err != nil {
			var transitionErr *entity.TransitionError
			switch {
			case errors.Is(err, entity.ErrCorrectionAlreadyRequested):
				return apperror.NewAlreadyRequestedError()
			case errors.As(err, &transitionErr):
				return apperror.NewInvalidTransitionError("reconciliation", transitionErr.From.String(), transitionErr.To.String())
			default:
				return err
			}
		}

		if err := s.recRepo.Update(ctx, rec); err != nil {
			return apperror.Wrap("update reconciliation", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetReconciliation returns one reconciliation record
func (s *ReconciliationService) GetReconciliation(ctx context.Context, id uuid.UUID) (*entity.CashReconciliation, error) {
	rec, err := s.recRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Wrap("load reconciliation", err)
	}
	if rec == nil {
		return nil, apperror.NewNotFoundError("Reconciliation")
	}
	return rec, nil
}

// ListReconciliations returns reconciliation history, newest first
func (s *ReconciliationService) ListReconciliations(ctx context.Context, params *repository.ReconciliationFilterParams) (*pagination.PaginatedResult[entity.CashReconciliation], error) {
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	params.Pagination.Validate()

	recs, total, err := s.recRepo.List(ctx, params)
	if err != nil {
		return nil, apperror.Wrap("list reconciliations", err)
	}
	return pagination.NewPaginatedResult(recs, pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)), nil
}
