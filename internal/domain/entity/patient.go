package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Patient is a registered clinic patient
type Patient struct {
	ID         uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	FirstName  string         `gorm:"size:255;not null" json:"first_name"`
	MiddleName string         `gorm:"size:255" json:"middle_name,omitempty"`
	LastName   string         `gorm:"size:255;not null;index" json:"last_name"`
	BirthDate  *time.Time     `gorm:"type:date" json:"birth_date,omitempty"`
	Gender     string         `gorm:"size:20" json:"gender,omitempty"`
	Contact    string         `gorm:"size:50" json:"contact,omitempty"`
	Address    string         `gorm:"type:text" json:"address,omitempty"`
	CreatedBy  uuid.UUID      `gorm:"type:uuid;index" json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID before creating a new patient
func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Patient model
func (Patient) TableName() string {
	return "patients"
}

// FullName returns "First Middle Last" without empty parts
func (p *Patient) FullName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.FirstName, p.MiddleName, p.LastName} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// AgeAt returns the patient's age in whole years on the given day, or nil when
// no birth date is recorded.
func (p *Patient) AgeAt(day time.Time) *int {
	if p.BirthDate == nil {
		return nil
	}
	b := *p.BirthDate
	age := day.Year() - b.Year()
	if day.Month() < b.Month() || (day.Month() == b.Month() && day.Day() < b.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return &age
}

// Snapshot freezes the patient's identity as of day for embedding in an order
func (p *Patient) Snapshot(day time.Time) OrderSnapshot {
	return OrderSnapshot{
		Name:    p.FullName(),
		Age:     p.AgeAt(day),
		Gender:  p.Gender,
		Contact: p.Contact,
		Address: p.Address,
	}
}
