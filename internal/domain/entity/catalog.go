package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LabTest is an orderable item in the test catalog
type LabTest struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Code      string          `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	Category  string          `gorm:"size:100;index" json:"category"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	IsActive  bool            `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new catalog item
func (t *LabTest) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the LabTest model
func (LabTest) TableName() string {
	return "lab_tests"
}

// Snapshot copies the fields an order keeps regardless of later catalog edits
func (t *LabTest) Snapshot() TestSnapshot {
	return TestSnapshot{
		Name:     t.Name,
		Category: t.Category,
		Price:    t.Price,
	}
}

// Discount kinds
const (
	DiscountKindDiscount = "discount"
	DiscountKindCoverage = "coverage"
)

// Discount is a catalog rate: a patient discount (senior citizen, PWD) or an
// insurance coverage plan. Rate is a percentage in [0,100].
type Discount struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	Kind      string          `gorm:"size:20;not null;index" json:"kind"`
	Rate      decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"rate"`
	IsActive  bool            `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new discount
func (d *Discount) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Discount model
func (Discount) TableName() string {
	return "discounts"
}
