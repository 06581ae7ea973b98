package repository

import (
	"context"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	domainRepo "github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"gorm.io/gorm"
)

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) domainRepo.AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create always writes outside any caller transaction so an audit entry is
// neither rolled back with nor able to abort the action it describes.
func (r *auditLogRepository) Create(ctx context.Context, log *entity.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
