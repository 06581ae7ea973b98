package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PatientRequest registers a walk-in patient together with their first order
type PatientRequest struct {
	FirstName  string `json:"first_name" binding:"required,max=255"`
	MiddleName string `json:"middle_name" binding:"omitempty,max=255"`
	LastName   string `json:"last_name" binding:"required,max=255"`
	BirthDate  string `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	Gender     string `json:"gender" binding:"omitempty,max=20"`
	Contact    string `json:"contact" binding:"omitempty,max=50"`
	Address    string `json:"address"`
}

// RateSelectionRequest picks a discount or coverage either from the catalog
// by id or ad hoc by name and percentage
type RateSelectionRequest struct {
	ID   *uuid.UUID       `json:"id"`
	Name string           `json:"name" binding:"omitempty,max=255"`
	Rate *decimal.Decimal `json:"rate"`
}

// CreateTransactionRequest represents a new lab order at the counter.
// Exactly one of PatientID or Patient is expected.
type CreateTransactionRequest struct {
	PatientID      *uuid.UUID            `json:"patient_id"`
	Patient        *PatientRequest       `json:"patient"`
	TestIDs        []uuid.UUID           `json:"test_ids"`
	PaymentMethod  string                `json:"payment_method" binding:"required"`
	AmountTendered *decimal.Decimal      `json:"amount_tendered"`
	Discount       *RateSelectionRequest `json:"discount"`
	Coverage       *RateSelectionRequest `json:"coverage"`
	Notes          string                `json:"notes"`
}

// TransactionFilterRequest represents transaction list query parameters
type TransactionFilterRequest struct {
	Date          string `form:"date" binding:"omitempty,datetime=2006-01-02"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=pending partial paid"`
	LabStatus     string `form:"lab_status" binding:"omitempty,oneof=pending in_progress completed released"`
	Search        string `form:"search" binding:"omitempty,max=100"`
	Page          int    `form:"page"`
	PerPage       int    `form:"per_page"`
}

// UpdateTestResultRequest records lab progress on one ordered test
type UpdateTestResultRequest struct {
	Status  string                 `json:"status" binding:"required"`
	Result  map[string]interface{} `json:"result"`
	Remarks *string                `json:"remarks"`
}
