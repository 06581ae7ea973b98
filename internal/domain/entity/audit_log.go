package entity

import (
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit categories
const (
	AuditCategoryTransaction    = "transaction"
	AuditCategoryLab            = "lab"
	AuditCategoryReconciliation = "reconciliation"
)

// AuditLog is a best-effort record of a staff action
type AuditLog struct {
	ID          uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	ActorID     uuid.UUID          `gorm:"type:uuid;index" json:"actor_id"`
	ActionType  string             `gorm:"size:100;not null;index" json:"action_type"`
	Category    string             `gorm:"size:50;not null;index" json:"category"`
	Description string             `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSONMap  `gorm:"type:jsonb" json:"metadata,omitempty"`
	Severity    enum.AuditSeverity `gorm:"size:20;not null" json:"severity"`
	EntityType  string             `gorm:"size:50;index:idx_audit_logs_entity,priority:1" json:"entity_type"`
	EntityID    string             `gorm:"size:64;index:idx_audit_logs_entity,priority:2" json:"entity_id"`
	CreatedAt   time.Time          `json:"created_at"`
}

// BeforeCreate generates a UUID before creating a new audit log
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}
