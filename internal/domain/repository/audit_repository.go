package repository

import (
	"context"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
)

// AuditLogRepository persists audit entries
type AuditLogRepository interface {
	Create(ctx context.Context, log *entity.AuditLog) error
}
