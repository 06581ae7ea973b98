package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrCorrectionAlreadyRequested is returned by a second correction request
var ErrCorrectionAlreadyRequested = errors.New("correction already requested")

// TransitionError reports a reconciliation state change the workflow forbids
type TransitionError struct {
	From enum.ReconciliationState
	To   enum.ReconciliationState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid reconciliation transition from %s to %s", e.From, e.To)
}

// reconciliationTransitions is the cashier/admin correction workflow.
// Open (no active row) -> submitted happens by inserting a record.
var reconciliationTransitions = map[enum.ReconciliationState][]enum.ReconciliationState{
	enum.ReconciliationStateSubmitted:           {enum.ReconciliationStateCorrectionRequested},
	enum.ReconciliationStateCorrectionRequested: {enum.ReconciliationStateApproved},
	enum.ReconciliationStateApproved:            {},
}

// ValidateReconciliationTransition checks a state change against the workflow table
func ValidateReconciliationTransition(from, to enum.ReconciliationState) error {
	if from == enum.ReconciliationStateCorrectionRequested && to == enum.ReconciliationStateCorrectionRequested {
		return ErrCorrectionAlreadyRequested
	}
	for _, s := range reconciliationTransitions[from] {
		if s == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

// CashReconciliation is a day's counted cash against the system-computed expectation.
// At most one non-approved record exists per ReconciliationDate.
type CashReconciliation struct {
	ID                 uuid.UUID                 `gorm:"type:uuid;primary_key" json:"id"`
	ReconciliationDate time.Time                 `gorm:"type:date;not null;uniqueIndex:idx_cash_reconciliations_active_date,where:state <> 'approved'" json:"reconciliation_date"`
	ExpectedCash       decimal.Decimal           `gorm:"type:decimal(12,2);not null" json:"expected_cash"`
	ActualCash         decimal.Decimal           `gorm:"type:decimal(12,2);not null" json:"actual_cash"`
	Variance           decimal.Decimal           `gorm:"type:decimal(12,2);not null" json:"variance"`
	Status             enum.ReconciliationStatus `gorm:"size:20;not null" json:"status"`
	TransactionCount   int                       `gorm:"not null;default:0" json:"transaction_count"`
	Notes              string                    `gorm:"type:text" json:"notes,omitempty"`
	CashierID          uuid.UUID                 `gorm:"type:uuid;not null;index" json:"cashier_id"`

	State               enum.ReconciliationState `gorm:"size:30;not null;index" json:"state"`
	CorrectionRequested bool                     `gorm:"not null;default:false" json:"correction_requested"`
	CorrectionReason    string                   `gorm:"type:text" json:"correction_reason,omitempty"`
	CorrectionBy        *uuid.UUID               `gorm:"type:uuid" json:"correction_requested_by,omitempty"`
	CorrectionAt        *time.Time               `json:"correction_requested_at,omitempty"`
	IsApproved          bool                     `gorm:"not null;default:false" json:"is_approved"`
	ApprovedBy          *uuid.UUID               `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt          *time.Time               `json:"approved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new reconciliation
func (r *CashReconciliation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the CashReconciliation model
func (CashReconciliation) TableName() string {
	return "cash_reconciliations"
}

// ReconciliationStatusFor derives the status from the sign of the variance
func ReconciliationStatusFor(variance decimal.Decimal) enum.ReconciliationStatus {
	switch variance.Sign() {
	case 0:
		return enum.ReconciliationBalanced
	case 1:
		return enum.ReconciliationOverage
	default:
		return enum.ReconciliationShortage
	}
}

// NewCashReconciliation builds a submitted reconciliation; variance and status
// are derived from the two amounts.
func NewCashReconciliation(date time.Time, expected, actual decimal.Decimal, count int, notes string, cashier uuid.UUID) *CashReconciliation {
	expected = expected.Round(2)
	actual = actual.Round(2)
	variance := actual.Sub(expected)
	return &CashReconciliation{
		ReconciliationDate: date,
		ExpectedCash:       expected,
		ActualCash:         actual,
		Variance:           variance,
		Status:             ReconciliationStatusFor(variance),
		TransactionCount:   count,
		Notes:              notes,
		CashierID:          cashier,
		State:              enum.ReconciliationStateSubmitted,
	}
}

// RequestCorrection moves a submitted record into correction_requested
func (r *CashReconciliation) RequestCorrection(reason string, actor uuid.UUID, at time.Time) error {
	if err := ValidateReconciliationTransition(r.State, enum.ReconciliationStateCorrectionRequested); err != nil {
		return err
	}
	r.State = enum.ReconciliationStateCorrectionRequested
	r.CorrectionRequested = true
	r.CorrectionReason = reason
	r.CorrectionBy = &actor
	r.CorrectionAt = &at
	return nil
}

// Approve accepts a requested correction. The record stays for history but no
// longer blocks a fresh submission for its date.
func (r *CashReconciliation) Approve(admin uuid.UUID, at time.Time) error {
	if err := ValidateReconciliationTransition(r.State, enum.ReconciliationStateApproved); err != nil {
		return err
	}
	r.State = enum.ReconciliationStateApproved
	r.IsApproved = true
	r.ApprovedBy = &admin
	r.ApprovedAt = &at
	return nil
}

// BlocksDate reports whether this record counts as the date's reconciliation
func (r *CashReconciliation) BlocksDate() bool {
	return r.State != enum.ReconciliationStateApproved
}
