package entity

import "github.com/shopspring/decimal"

// ReceiptHeader holds the clinic header printed at the top of a receipt.
type ReceiptHeader struct {
	ClinicName string `json:"clinic_name"`
	Address    string `json:"address,omitempty"`
	Phone      string `json:"phone,omitempty"`
	TaxID      string `json:"tax_id,omitempty"`
}

// ReceiptItem is one lab test line on a receipt.
type ReceiptItem struct {
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Price    decimal.Decimal `json:"price"`
}

// Receipt is a printable view of a transaction, composed at print time from
// the transaction's snapshots. It is not persisted.
type Receipt struct {
	Header            ReceiptHeader   `json:"header"`
	ReceiptNumber     string          `json:"receipt_number"`
	TransactionNumber string          `json:"transaction_number"`
	QueueNumber       int             `json:"queue_number"`
	Date              string          `json:"date"`
	Cashier           string          `json:"cashier,omitempty"`
	Patient           OrderSnapshot   `json:"patient"`
	PaymentMethod     string          `json:"payment_method"`
	Items             []ReceiptItem   `json:"items"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	DiscountName      string          `json:"discount_name,omitempty"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	CoverageName      string          `json:"coverage_name,omitempty"`
	CoverageAmount    decimal.Decimal `json:"coverage_amount"`
	NetTotal          decimal.Decimal `json:"net_total"`
	AmountTendered    decimal.Decimal `json:"amount_tendered"`
	ChangeDue         decimal.Decimal `json:"change_due"`
	BalanceDue        decimal.Decimal `json:"balance_due"`
}

// NewReceipt composes a receipt from a transaction and its tests
func NewReceipt(header ReceiptHeader, t *Transaction, cashier, date string) *Receipt {
	items := make([]ReceiptItem, 0, len(t.Tests))
	for _, tt := range t.Tests {
		items = append(items, ReceiptItem{
			Name:     tt.Test.Name,
			Category: tt.Test.Category,
			Price:    tt.Test.Price,
		})
	}
	return &Receipt{
		Header:            header,
		ReceiptNumber:     t.ReceiptNumber,
		TransactionNumber: t.TransactionNumber,
		QueueNumber:       t.QueueNumber,
		Date:              date,
		Cashier:           cashier,
		Patient:           t.Patient,
		PaymentMethod:     t.PaymentMethod.String(),
		Items:             items,
		TotalAmount:       t.TotalAmount,
		DiscountName:      t.DiscountName,
		DiscountAmount:    t.DiscountAmount,
		CoverageName:      t.CoverageName,
		CoverageAmount:    t.CoverageAmount,
		NetTotal:          t.NetTotal,
		AmountTendered:    t.AmountTendered,
		ChangeDue:         t.ChangeDue,
		BalanceDue:        t.BalanceDue,
	}
}
