// Package notify sends staff notifications for workflow events.
package notify

import (
	"context"
	"errors"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/clinicpos/diagnostics-api/pkg/email"
)

// ErrNoRecipients is returned when no admin address is configured
var ErrNoRecipients = errors.New("notify: no admin recipients configured")

// Mailer sends the correction request email
type Mailer interface {
	Enabled() bool
	SendCorrectionRequestEmail(recipients []string, req email.CorrectionRequest) error
}

// CorrectionMailer emails admins when a cashier asks to correct a reconciliation
type CorrectionMailer struct {
	mailer     Mailer
	users      repository.UserRepository
	recipients []string
}

// NewCorrectionMailer creates a correction notifier
func NewCorrectionMailer(mailer Mailer, users repository.UserRepository, recipients []string) *CorrectionMailer {
	return &CorrectionMailer{
		mailer:     mailer,
		users:      users,
		recipients: recipients,
	}
}

// NotifyCorrectionRequested sends the notice. A disabled mailer is a no-op.
func (n *CorrectionMailer) NotifyCorrectionRequested(ctx context.Context, rec *entity.CashReconciliation) error {
	if !n.mailer.Enabled() {
		return nil
	}
	if len(n.recipients) == 0 {
		return ErrNoRecipients
	}

	requestedBy := "a cashier"
	if rec.CorrectionBy != nil {
		if u, err := n.users.GetByID(ctx, *rec.CorrectionBy); err == nil && u != nil {
			requestedBy = u.FullName()
		}
	}

	return n.mailer.SendCorrectionRequestEmail(n.recipients, email.CorrectionRequest{
		ReconciliationID:   rec.ID.String(),
		ReconciliationDate: rec.ReconciliationDate.Format("2006-01-02"),
		ExpectedCash:       rec.ExpectedCash.StringFixed(2),
		ActualCash:         rec.ActualCash.StringFixed(2),
		Variance:           rec.Variance.StringFixed(2),
		Status:             rec.Status.String(),
		Reason:             rec.CorrectionReason,
		RequestedBy:        requestedBy,
	})
}
