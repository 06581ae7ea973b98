package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/clinicpos/diagnostics-api/pkg/apperror"
	"github.com/clinicpos/diagnostics-api/pkg/printer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PrinterService handles receipt formatting and thermal printing.
type PrinterService struct {
	printer  printer.Printer
	txnRepo  repository.TransactionRepository
	userRepo repository.UserRepository
	calendar *Calendar
	header   entity.ReceiptHeader
	width    int
	logger   *zap.Logger
}

// NewPrinterService creates a new printer service.
func NewPrinterService(
	p printer.Printer,
	txnRepo repository.TransactionRepository,
	userRepo repository.UserRepository,
	calendar *Calendar,
	header entity.ReceiptHeader,
	width int,
	logger *zap.Logger,
) *PrinterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrinterService{
		printer:  p,
		txnRepo:  txnRepo,
		userRepo: userRepo,
		calendar: calendar,
		header:   header,
		width:    width,
		logger:   logger,
	}
}

// PrinterStatus returns the current printer status information.
type PrinterStatus struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Type       string `json:"type"`
}

// GetStatus returns printer connection status.
func (s *PrinterService) GetStatus() *PrinterStatus {
	kind := s.printer.Kind()
	return &PrinterStatus{
		Configured: kind != "none",
		Connected:  s.printer.IsConnected(),
		Type:       kind,
	}
}

// PrintResult is a composed receipt and whether it reached the printer.
// Warning explains a failed print; the receipt is still usable on screen.
type PrintResult struct {
	Receipt *entity.Receipt
	Printed bool
	Warning string
}

// TestPrint sends a sample receipt to the printer.
func (s *PrinterService) TestPrint() *PrintResult {
	receipt := &entity.Receipt{
		Header:            s.header,
		ReceiptNumber:     "RCP-TEST-0000",
		TransactionNumber: "TXN-TEST-0000",
		QueueNumber:       0,
		Date:              s.calendar.Now().Format("2006-01-02 15:04"),
		Cashier:           "System",
		Patient:           entity.OrderSnapshot{Name: "PRINTER TEST"},
		PaymentMethod:     "cash",
		Items: []entity.ReceiptItem{
			{Name: "Complete Blood Count", Category: "Hematology", Price: decimal.RequireFromString("350.00")},
			{Name: "Urinalysis", Category: "Clinical Microscopy", Price: decimal.RequireFromString("150.00")},
		},
		TotalAmount:    decimal.RequireFromString("500.00"),
		NetTotal:       decimal.RequireFromString("500.00"),
		AmountTendered: decimal.RequireFromString("500.00"),
	}
	return s.send(receipt)
}

// PrintTransactionReceipt composes the receipt for a transaction and prints it.
func (s *PrinterService) PrintTransactionReceipt(ctx context.Context, transactionID uuid.UUID) (*PrintResult, error) {
	txn, err := s.txnRepo.GetWithTests(ctx, transactionID)
	if err != nil {
		return nil, apperror.Wrap("load transaction", err)
	}
	if txn == nil {
		return nil, apperror.NewNotFoundError("Transaction")
	}

	cashier := ""
	if user, err := s.userRepo.GetByID(ctx, txn.CashierID); err == nil && user != nil {
		cashier = user.FullName()
	}

	date := txn.CreatedAt.In(s.calendar.Location()).Format("2006-01-02 15:04")
	return s.send(entity.NewReceipt(s.header, txn, cashier, date)), nil
}

func (s *PrinterService) send(receipt *entity.Receipt) *PrintResult {
	result := &PrintResult{Receipt: receipt}
	if err := s.printer.Print(FormatReceipt(receipt, s.width)); err != nil {
		s.logger.Warn("receipt print failed",
			zap.String("receipt_number", receipt.ReceiptNumber),
			zap.String("printer", s.printer.Kind()),
			zap.Error(err),
		)
		result.Warning = fmt.Sprintf("Receipt could not be printed: %v", err)
		return result
	}
	result.Printed = s.printer.Kind() != "none"
	return result
}

// FormatReceipt converts a Receipt into ESC/POS bytes.
func FormatReceipt(r *entity.Receipt, width int) []byte {
	doc := printer.NewDocument(width)
	money := func(d decimal.Decimal) string { return d.StringFixed(2) }

	// Header
	doc.Heading(r.Header.ClinicName)
	if r.Header.Address != "" {
		doc.Centered(r.Header.Address)
	}
	if r.Header.Phone != "" {
		doc.Centered(r.Header.Phone)
	}
	if r.Header.TaxID != "" {
		doc.Centered("TIN: " + r.Header.TaxID)
	}

	doc.SetAlign(printer.AlignCenter).
		SetBold(true).
		SetFontSize(printer.FontDouble).
		Text("QUEUE #" + strconv.Itoa(r.QueueNumber)).
		SetFontSize(printer.FontNormal).
		SetBold(false).
		SetAlign(printer.AlignLeft).
		Separator('-')

	doc.KeyValue("Receipt:", r.ReceiptNumber).
		KeyValue("Txn:", r.TransactionNumber).
		KeyValue("Date:", r.Date)
	if r.Cashier != "" {
		doc.KeyValue("Cashier:", r.Cashier)
	}

	doc.Separator('-').
		KeyValue("Patient:", r.Patient.Name)
	if r.Patient.Age != nil {
		doc.KeyValue("Age:", strconv.Itoa(*r.Patient.Age))
	}
	if r.Patient.Gender != "" {
		doc.KeyValue("Sex:", r.Patient.Gender)
	}
	if r.Patient.Contact != "" {
		doc.KeyValue("Contact:", r.Patient.Contact)
	}

	doc.Separator('-')

	// Tests
	for _, item := range r.Items {
		doc.LineItem(item.Name, money(item.Price))
	}

	doc.Separator('-')

	// Totals
	doc.KeyValue("Total:", money(r.TotalAmount))
	if r.DiscountAmount.IsPositive() {
		doc.KeyValue(labelOr(r.DiscountName, "Discount")+":", "-"+money(r.DiscountAmount))
	}
	if r.CoverageAmount.IsPositive() {
		doc.KeyValue(labelOr(r.CoverageName, "Coverage")+":", "-"+money(r.CoverageAmount))
	}
	doc.SetBold(true).
		KeyValue("NET:", money(r.NetTotal)).
		SetBold(false).
		KeyValue("Paid ("+r.PaymentMethod+"):", money(r.AmountTendered))
	if r.ChangeDue.IsPositive() {
		doc.KeyValue("Change:", money(r.ChangeDue))
	}
	if r.BalanceDue.IsPositive() {
		doc.SetBold(true).
			KeyValue("Balance:", money(r.BalanceDue)).
			SetBold(false)
	}

	doc.Separator('-')

	// Footer
	doc.Centered("Please wait for your queue number.").
		Centered("Thank you!")

	doc.FeedLines(3).
		PartialCut()

	return doc.Bytes()
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
