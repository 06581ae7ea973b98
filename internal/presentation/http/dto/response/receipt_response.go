package response

import "github.com/clinicpos/diagnostics-api/internal/domain/entity"

// ReceiptItemResponse is one printed test line
type ReceiptItemResponse struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Price    string `json:"price"`
}

// ReceiptResponse mirrors what was sent to the printer
type ReceiptResponse struct {
	Header            entity.ReceiptHeader  `json:"header"`
	ReceiptNumber     string                `json:"receipt_number"`
	TransactionNumber string                `json:"transaction_number"`
	QueueNumber       int                   `json:"queue_number"`
	Date              string                `json:"date"`
	Cashier           string                `json:"cashier,omitempty"`
	Patient           entity.OrderSnapshot  `json:"patient"`
	PaymentMethod     string                `json:"payment_method"`
	Items             []ReceiptItemResponse `json:"items"`
	TotalAmount       string                `json:"total_amount"`
	DiscountName      string                `json:"discount_name,omitempty"`
	DiscountAmount    string                `json:"discount_amount"`
	CoverageName      string                `json:"coverage_name,omitempty"`
	CoverageAmount    string                `json:"coverage_amount"`
	NetTotal          string                `json:"net_total"`
	AmountTendered    string                `json:"amount_tendered"`
	ChangeDue         string                `json:"change_due"`
	BalanceDue        string                `json:"balance_due"`
}

// NewReceiptResponse maps a composed receipt
func NewReceiptResponse(r *entity.Receipt) *ReceiptResponse {
	if r == nil {
		return nil
	}
	items := make([]ReceiptItemResponse, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, ReceiptItemResponse{
			Name:     it.Name,
			Category: it.Category,
			Price:    Money(it.Price),
		})
	}
	return &ReceiptResponse{
		Header:            r.Header,
		ReceiptNumber:     r.ReceiptNumber,
		TransactionNumber: r.TransactionNumber,
		QueueNumber:       r.QueueNumber,
		Date:              r.Date,
		Cashier:           r.Cashier,
		Patient:           r.Patient,
		PaymentMethod:     r.PaymentMethod,
		Items:             items,
		TotalAmount:       Money(r.TotalAmount),
		DiscountName:      r.DiscountName,
		DiscountAmount:    Money(r.DiscountAmount),
		CoverageName:      r.CoverageName,
		CoverageAmount:    Money(r.CoverageAmount),
		NetTotal:          Money(r.NetTotal),
		AmountTendered:    Money(r.AmountTendered),
		ChangeDue:         Money(r.ChangeDue),
		BalanceDue:        Money(r.BalanceDue),
	}
}
