package response

import (
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/google/uuid"
)

// PreviewResponse is the expected cash for today before the drawer is counted
type PreviewResponse struct {
	Date              string `json:"date"`
	ExpectedCash      string `json:"expected_cash"`
	TransactionCount  int    `json:"transaction_count"`
	AlreadyReconciled bool   `json:"already_reconciled"`
}

// ReconciliationResponse is a cash reconciliation record
type ReconciliationResponse struct {
	ID                    uuid.UUID                 `json:"id"`
	ReconciliationDate    string                    `json:"reconciliation_date"`
	ExpectedCash          string                    `json:"expected_cash"`
	ActualCash            string                    `json:"actual_cash"`
	Variance              string                    `json:"variance"`
	Status                enum.ReconciliationStatus `json:"status"`
	State                 enum.ReconciliationState  `json:"state"`
	TransactionCount      int                       `json:"transaction_count"`
	Notes                 string                    `json:"notes,omitempty"`
	CashierID             uuid.UUID                 `json:"cashier_id"`
	CorrectionRequested   bool                      `json:"correction_requested"`
	CorrectionReason      string                    `json:"correction_reason,omitempty"`
	CorrectionRequestedBy *uuid.UUID                `json:"correction_requested_by,omitempty"`
	CorrectionRequestedAt *time.Time                `json:"correction_requested_at,omitempty"`
	IsApproved            bool                      `json:"is_approved"`
	ApprovedBy            *uuid.UUID                `json:"approved_by,omitempty"`
	ApprovedAt            *time.Time                `json:"approved_at,omitempty"`
	CreatedAt             time.Time                 `json:"created_at"`
}

// NewReconciliationResponse maps a reconciliation record
func NewReconciliationResponse(r *entity.CashReconciliation) ReconciliationResponse {
	return ReconciliationResponse{
		ID:                    r.ID,
		ReconciliationDate:    r.ReconciliationDate.Format(dateLayout),
		ExpectedCash:          Money(r.ExpectedCash),
		ActualCash:            Money(r.ActualCash),
		Variance:              Money(r.Variance),
		Status:                r.Status,
		State:                 r.State,
		TransactionCount:      r.TransactionCount,
		Notes:                 r.Notes,
		CashierID:             r.CashierID,
		CorrectionRequested:   r.CorrectionRequested,
		CorrectionReason:      r.CorrectionReason,
		CorrectionRequestedBy: r.CorrectionBy,
		CorrectionRequestedAt: r.CorrectionAt,
		IsApproved:            r.IsApproved,
		ApprovedBy:            r.ApprovedBy,
		ApprovedAt:            r.ApprovedAt,
		CreatedAt:             r.CreatedAt,
	}
}

// NewReconciliationListResponse maps a page of reconciliation records
func NewReconciliationListResponse(items []entity.CashReconciliation) []ReconciliationResponse {
	out := make([]ReconciliationResponse, 0, len(items))
	for i := range items {
		out = append(out, NewReconciliationResponse(&items[i]))
	}
	return out
}
