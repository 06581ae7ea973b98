package entity

import (
	"errors"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrTestStatusRegression is returned when a test status would move backward
	ErrTestStatusRegression = errors.New("test status cannot move backward")
	// ErrUnknownTestStatus is returned for a status outside pending/in_progress/completed
	ErrUnknownTestStatus = errors.New("unknown test status")
	// ErrTransactionReleased is returned when lab data changes after results were released
	ErrTransactionReleased = errors.New("transaction results already released")
	// ErrNotReleasable is returned when releasing a transaction whose tests are not all completed
	ErrNotReleasable = errors.New("transaction lab status is not completed")
)

// OrderSnapshot is the patient identity frozen into a transaction at creation.
// It is never refreshed from the patient directory.
type OrderSnapshot struct {
	Name    string `gorm:"size:255;not null" json:"name"`
	Age     *int   `json:"age,omitempty"`
	Gender  string `gorm:"size:20" json:"gender,omitempty"`
	Contact string `gorm:"size:50" json:"contact,omitempty"`
	Address string `gorm:"type:text" json:"address,omitempty"`
}

// Transaction is one patient visit: the lab order, its pricing and its payment.
// Rows are append-only; only LabStatus and payment fields change after creation.
type Transaction struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TransactionNumber string    `gorm:"size:32;uniqueIndex;not null" json:"transaction_number"`
	ReceiptNumber     string    `gorm:"size:32;uniqueIndex;not null" json:"receipt_number"`
	BusinessDate      time.Time `gorm:"type:date;not null;uniqueIndex:idx_transactions_day_queue,priority:1" json:"business_date"`
	QueueNumber       int       `gorm:"not null;uniqueIndex:idx_transactions_day_queue,priority:2" json:"queue_number"`

	// PatientID is a navigation link to the live record; Patient is what was billed.
	PatientID *uuid.UUID    `gorm:"type:uuid;index" json:"patient_id,omitempty"`
	Patient   OrderSnapshot `gorm:"embedded;embeddedPrefix:patient_" json:"patient"`

	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	DiscountID     *uuid.UUID      `gorm:"type:uuid" json:"discount_id,omitempty"`
	DiscountName   string          `gorm:"size:255" json:"discount_name,omitempty"`
	DiscountRate   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_rate"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	CoverageID     *uuid.UUID      `gorm:"type:uuid" json:"coverage_id,omitempty"`
	CoverageName   string          `gorm:"size:255" json:"coverage_name,omitempty"`
	CoverageRate   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"coverage_rate"`
	CoverageAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"coverage_amount"`
	NetTotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"net_total"`
	AmountTendered decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_tendered"`
	ChangeDue      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"change_due"`
	BalanceDue     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance_due"`

	PaymentMethod enum.PaymentMethod `gorm:"size:20;not null;index" json:"payment_method"`
	PaymentStatus enum.PaymentStatus `gorm:"size:20;not null;index" json:"payment_status"`
	LabStatus     enum.LabStatus     `gorm:"size:20;not null;index" json:"lab_status"`
	Notes         string             `gorm:"type:text" json:"notes,omitempty"`
	CashierID     uuid.UUID          `gorm:"type:uuid;not null;index" json:"cashier_id"`
	ReleasedAt    *time.Time         `json:"released_at,omitempty"`
	ReleasedBy    *uuid.UUID         `gorm:"type:uuid" json:"released_by,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`

	Tests []TransactionTest `gorm:"foreignKey:TransactionID" json:"tests,omitempty"`
}

// BeforeCreate generates a UUID before creating a new transaction
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Transaction model
func (Transaction) TableName() string {
	return "transactions"
}

// ApplyLabStatus sets the aggregate lab status recomputed from the child tests
func (t *Transaction) ApplyLabStatus(status enum.LabStatus) error {
	if t.LabStatus == enum.LabStatusReleased {
		return ErrTransactionReleased
	}
	t.LabStatus = status
	return nil
}

// Release hands completed results over to the patient
func (t *Transaction) Release(actor uuid.UUID, at time.Time) error {
	if t.LabStatus == enum.LabStatusReleased {
		return ErrTransactionReleased
	}
	if t.LabStatus != enum.LabStatusCompleted {
		return ErrNotReleasable
	}
	t.LabStatus = enum.LabStatusReleased
	t.ReleasedAt = &at
	t.ReleasedBy = &actor
	return nil
}

// TestSnapshot is the catalog data copied into an order line
type TestSnapshot struct {
	Name     string          `gorm:"size:255;not null" json:"name"`
	Category string          `gorm:"size:100" json:"category"`
	Price    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
}

// TransactionTest is one ordered lab test within a transaction
type TransactionTest struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;index" json:"transaction_id"`

	// LabTestID links to the live catalog item; Test is what was ordered.
	LabTestID *uuid.UUID   `gorm:"type:uuid;index" json:"lab_test_id,omitempty"`
	Test      TestSnapshot `gorm:"embedded;embeddedPrefix:test_" json:"test"`

	Status      enum.TestStatus   `gorm:"size:20;not null;index" json:"status"`
	Result      datatypes.JSONMap `gorm:"type:jsonb" json:"result,omitempty"`
	Remarks     string            `gorm:"type:text" json:"remarks,omitempty"`
	PerformedBy *uuid.UUID        `gorm:"type:uuid" json:"performed_by,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new transaction test
func (tt *TransactionTest) BeforeCreate(tx *gorm.DB) error {
	if tt.ID == uuid.Nil {
		tt.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the TransactionTest model
func (TransactionTest) TableName() string {
	return "transaction_tests"
}

// Advance moves the test to status. Status never moves backward; staying on the
// same status is allowed. StartedAt is stamped on first entry into in_progress
// (or on a direct pending to completed jump) and CompletedAt on first completion.
func (tt *TransactionTest) Advance(status enum.TestStatus, actor *uuid.UUID, at time.Time) error {
	if !status.IsValid() {
		return ErrUnknownTestStatus
	}
	if !tt.Status.CanTransitionTo(status) {
		return ErrTestStatusRegression
	}

	if status.Rank() >= enum.TestStatusInProgress.Rank() && tt.StartedAt == nil {
		started := at
		tt.StartedAt = &started
	}
	if status == enum.TestStatusCompleted && tt.CompletedAt == nil {
		completed := at
		tt.CompletedAt = &completed
	}
	if actor != nil {
		tt.PerformedBy = actor
	}
	tt.Status = status
	return nil
}

// AggregateLabStatus folds child test statuses into a transaction lab status:
// completed when every test is completed, in_progress when any test is
// in progress, pending otherwise. An empty set is pending.
func AggregateLabStatus(statuses []enum.TestStatus) enum.LabStatus {
	if len(statuses) == 0 {
		return enum.LabStatusPending
	}

	allCompleted := true
	anyInProgress := false
	for _, s := range statuses {
		if s != enum.TestStatusCompleted {
			allCompleted = false
		}
		if s == enum.TestStatusInProgress {
			anyInProgress = true
		}
	}

	switch {
	case allCompleted:
		return enum.LabStatusCompleted
	case anyInProgress:
		return enum.LabStatusInProgress
	default:
		return enum.LabStatusPending
	}
}

// TransactionEvent is an immutable entry in a transaction's audit trail.
// PublishedAt is set once the relay has delivered it to the message bus.
type TransactionEvent struct {
	ID            uuid.UUID                 `gorm:"type:uuid;primary_key" json:"id"`
	TransactionID uuid.UUID                 `gorm:"type:uuid;not null;index" json:"transaction_id"`
	ActorID       uuid.UUID                 `gorm:"type:uuid;not null" json:"actor_id"`
	EventType     enum.TransactionEventType `gorm:"size:30;not null;index" json:"event_type"`
	Description   string                    `gorm:"type:text" json:"description"`
	Metadata      datatypes.JSONMap         `gorm:"type:jsonb" json:"metadata,omitempty"`
	PublishedAt   *time.Time                `gorm:"index" json:"published_at,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
}

// BeforeCreate generates a UUID before creating a new event
func (e *TransactionEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the TransactionEvent model
func (TransactionEvent) TableName() string {
	return "transaction_events"
}
