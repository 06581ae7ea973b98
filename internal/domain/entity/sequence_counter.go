package entity

import "time"

// SequenceCounter holds the last issued number for a "PREFIX:YYYYMMDD" key.
// Rows past ExpiresAt belong to a finished day and are swept.
type SequenceCounter struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Value     int64     `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}

// TableName returns the table name for SequenceCounter
func (SequenceCounter) TableName() string {
	return "sequence_counters"
}
