package response

import (
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Money renders an amount the way receipts and the POS screen show it
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// RateResponse is an applied discount or coverage
type RateResponse struct {
	ID      *uuid.UUID `json:"id,omitempty"`
	Name    string     `json:"name"`
	Percent string     `json:"percent"`
	Amount  string     `json:"amount"`
}

// TestResponse is one ordered test as the counter and the lab see it
type TestResponse struct {
	ID          uuid.UUID              `json:"id"`
	LabTestID   *uuid.UUID             `json:"lab_test_id,omitempty"`
	Name        string                 `json:"name"`
	Category    string                 `json:"category,omitempty"`
	Price       string                 `json:"price"`
	Status      enum.TestStatus        `json:"status"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Remarks     string                 `json:"remarks,omitempty"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// TransactionResponse is a transaction with its money fields fixed to two places
type TransactionResponse struct {
	ID                uuid.UUID            `json:"id"`
	TransactionNumber string               `json:"transaction_number"`
	ReceiptNumber     string               `json:"receipt_number"`
	QueueNumber       int                  `json:"queue_number"`
	BusinessDate      string               `json:"business_date"`
	PatientID         *uuid.UUID           `json:"patient_id,omitempty"`
	Patient           entity.OrderSnapshot `json:"patient"`
	TotalAmount       string               `json:"total_amount"`
	Discount          *RateResponse        `json:"discount,omitempty"`
	Coverage          *RateResponse        `json:"coverage,omitempty"`
	NetTotal          string               `json:"net_total"`
	AmountTendered    string               `json:"amount_tendered"`
	ChangeDue         string               `json:"change_due"`
	BalanceDue        string               `json:"balance_due"`
	PaymentMethod     enum.PaymentMethod   `json:"payment_method"`
	PaymentStatus     enum.PaymentStatus   `json:"payment_status"`
	LabStatus         enum.LabStatus       `json:"lab_status"`
	Notes             string               `json:"notes,omitempty"`
	CashierID         uuid.UUID            `json:"cashier_id"`
	ReleasedAt        *time.Time           `json:"released_at,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	Tests             []TestResponse       `json:"tests,omitempty"`
}

// NewTestResponse maps an ordered test
func NewTestResponse(t *entity.TransactionTest) TestResponse {
	return TestResponse{
		ID:          t.ID,
		LabTestID:   t.LabTestID,
		Name:        t.Test.Name,
		Category:    t.Test.Category,
		Price:       Money(t.Test.Price),
		Status:      t.Status,
		Result:      t.Result,
		Remarks:     t.Remarks,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}

// NewTransactionResponse maps a transaction and whatever tests are loaded on it
func NewTransactionResponse(t *entity.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:                t.ID,
		TransactionNumber: t.TransactionNumber,
		ReceiptNumber:     t.ReceiptNumber,
		QueueNumber:       t.QueueNumber,
		BusinessDate:      t.BusinessDate.Format(dateLayout),
		PatientID:         t.PatientID,
		Patient:           t.Patient,
		TotalAmount:       Money(t.TotalAmount),
		NetTotal:          Money(t.NetTotal),
		AmountTendered:    Money(t.AmountTendered),
		ChangeDue:         Money(t.ChangeDue),
		BalanceDue:        Money(t.BalanceDue),
		PaymentMethod:     t.PaymentMethod,
		PaymentStatus:     t.PaymentStatus,
		LabStatus:         t.LabStatus,
		Notes:             t.Notes,
		CashierID:         t.CashierID,
		ReleasedAt:        t.ReleasedAt,
		CreatedAt:         t.CreatedAt,
	}
	if t.DiscountName != "" || t.DiscountRate.IsPositive() {
		resp.Discount = &RateResponse{
			ID:      t.DiscountID,
			Name:    t.DiscountName,
			Percent: Money(t.DiscountRate),
			Amount:  Money(t.DiscountAmount),
		}
	}
	if t.CoverageName != "" || t.CoverageRate.IsPositive() {
		resp.Coverage = &RateResponse{
			ID:      t.CoverageID,
			Name:    t.CoverageName,
			Percent: Money(t.CoverageRate),
			Amount:  Money(t.CoverageAmount),
		}
	}
	if len(t.Tests) > 0 {
		resp.Tests = make([]TestResponse, 0, len(t.Tests))
		for i := range t.Tests {
			resp.Tests = append(resp.Tests, NewTestResponse(&t.Tests[i]))
		}
	}
	return resp
}

// NewTransactionListResponse maps a page of transactions
func NewTransactionListResponse(items []entity.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(items))
	for i := range items {
		out = append(out, NewTransactionResponse(&items[i]))
	}
	return out
}

// LabUpdateResponse reports a test change and the recomputed aggregate
type LabUpdateResponse struct {
	Test        TestResponse         `json:"test"`
	Transaction LabTransactionStatus `json:"transaction"`
}

// LabTransactionStatus is the parent transaction's lab state after an update
type LabTransactionStatus struct {
	ID                uuid.UUID      `json:"id"`
	TransactionNumber string         `json:"transaction_number"`
	LabStatus         enum.LabStatus `json:"lab_status"`
}

// NewLabUpdateResponse maps the outcome of a lab update
func NewLabUpdateResponse(test *entity.TransactionTest, txn *entity.Transaction) LabUpdateResponse {
	return LabUpdateResponse{
		Test: NewTestResponse(test),
		Transaction: LabTransactionStatus{
			ID:                txn.ID,
			TransactionNumber: txn.TransactionNumber,
			LabStatus:         txn.LabStatus,
		},
	}
}
