package service

import (
	"context"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
)

// AuditSink records staff actions. It is fire-and-forget: implementations
// handle their own failures and never report them to the caller.
type AuditSink interface {
	Record(ctx context.Context, entry *entity.AuditLog)
}

// CorrectionNotifier tells admins that a cashier wants a reconciliation corrected
type CorrectionNotifier interface {
	NotifyCorrectionRequested(ctx context.Context, rec *entity.CashReconciliation) error
}

type nopAuditSink struct{}

func (nopAuditSink) Record(context.Context, *entity.AuditLog) {}

type nopNotifier struct{}

func (nopNotifier) NotifyCorrectionRequested(context.Context, *entity.CashReconciliation) error {
	return nil
}
