// Package pricing computes the money side of a lab order: gross total,
// discount, insurance coverage, net total, change and balance. Every monetary
// step is rounded half-up to two decimal places.
package pricing

import (
	"errors"
	"fmt"

	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const places = 2

var (
	hundred = decimal.NewFromInt(100)

	// ErrEmptySelection is returned when no line items are priced
	ErrEmptySelection = errors.New("pricing: no line items selected")
)

// InputError reports a malformed pricing input field
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("pricing: %s %s", e.Field, e.Message)
}

// LineItem is a priced catalog item
type LineItem struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
}

// Selection is what the cashier picked for a discount or coverage: either a
// catalog id or an ad-hoc name and rate.
type Selection struct {
	ID   *uuid.UUID
	Name string
	Rate *decimal.Decimal
}

// Rate is a resolved percentage in [0,100]. ID is set only for catalog rates.
type Rate struct {
	ID      *uuid.UUID
	Name    string
	Percent decimal.Decimal
}

// Input is everything the engine needs to price an order
type Input struct {
	Items    []LineItem
	Discount Rate
	Coverage Rate
	// Tendered defaults to the net total when nil.
	Tendered *decimal.Decimal
}

// Result carries every derived amount
type Result struct {
	Gross          decimal.Decimal
	Discount       Rate
	DiscountAmount decimal.Decimal
	Coverage       Rate
	CoverageAmount decimal.Decimal
	Net            decimal.Decimal
	Tendered       decimal.Decimal
	Change         decimal.Decimal
	Balance        decimal.Decimal
	PaymentStatus  enum.PaymentStatus
}

// ResolveRate turns a selection into a rate. A catalog rate wins when the
// selection's id was found; an unknown id falls back to the raw rate, and a
// missing raw rate means zero.
func ResolveRate(field string, sel *Selection, catalog *Rate) (Rate, error) {
	if sel == nil {
		return Rate{Percent: decimal.Zero}, nil
	}

	var r Rate
	if catalog != nil {
		r = *catalog
	} else {
		r = Rate{Name: sel.Name, Percent: decimal.Zero}
		if sel.Rate != nil {
			r.Percent = *sel.Rate
		}
	}

	if err := validatePercent(field, r.Percent); err != nil {
		return Rate{}, err
	}
	r.Percent = r.Percent.Round(places)
	return r, nil
}

func validatePercent(field string, p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return &InputError{Field: field, Message: "must be between 0 and 100"}
	}
	return nil
}

// Calculate prices an order
func Calculate(in Input) (*Result, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptySelection
	}
	if err := validatePercent("discount_rate", in.Discount.Percent); err != nil {
		return nil, err
	}
	if err := validatePercent("coverage_rate", in.Coverage.Percent); err != nil {
		return nil, err
	}

	gross := decimal.Zero
	for _, item := range in.Items {
		if item.Price.IsNegative() {
			return nil, &InputError{Field: "price", Message: fmt.Sprintf("of %s is negative", item.Name)}
		}
		gross = gross.Add(item.Price)
	}
	gross = gross.Round(places)

	discountAmount := percentOf(gross, in.Discount.Percent)
	// Coverage applies to the discounted amount, not to gross.
	coverageAmount := percentOf(gross.Sub(discountAmount), in.Coverage.Percent)
	net := nonNegative(gross.Sub(discountAmount).Sub(coverageAmount))

	tendered := net
	if in.Tendered != nil {
		if in.Tendered.IsNegative() {
			return nil, &InputError{Field: "amount_tendered", Message: "must not be negative"}
		}
		tendered = in.Tendered.Round(places)
	}

	balance := nonNegative(net.Sub(tendered))
	status := enum.PaymentStatusPending
	if !balance.IsPositive() {
		status = enum.PaymentStatusPaid
	}

	return &Result{
		Gross:          gross,
		Discount:       in.Discount,
		DiscountAmount: discountAmount,
		Coverage:       in.Coverage,
		CoverageAmount: coverageAmount,
		Net:            net,
		Tendered:       tendered,
		Change:         nonNegative(tendered.Sub(net)),
		Balance:        balance,
		PaymentStatus:  status,
	}, nil
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred).Round(places)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(places)
}
