package request

import "github.com/shopspring/decimal"

// SubmitReconciliationRequest is the cashier's end-of-day cash count
type SubmitReconciliationRequest struct {
	ActualCash *decimal.Decimal `json:"actual_cash" binding:"required"`
	Notes      string           `json:"notes"`
}

// RequestCorrectionRequest asks an admin to reopen a submitted reconciliation
type RequestCorrectionRequest struct {
	ReconciliationID string `json:"reconciliation_id" binding:"required,uuid"`
	Reason           string `json:"reason" binding:"required,max=2000"`
}

// ApproveCorrectionRequest approves a requested correction
type ApproveCorrectionRequest struct {
	ReconciliationID string `json:"reconciliation_id" binding:"required,uuid"`
}

// ReconciliationFilterRequest represents reconciliation history query parameters
type ReconciliationFilterRequest struct {
	StartDate string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	State     string `form:"state" binding:"omitempty,oneof=submitted correction_requested approved"`
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
}
