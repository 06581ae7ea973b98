package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/clinicpos/diagnostics-api/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedTxn stores a transaction for today directly
func (f *fixture) seedTxn(net string, method enum.PaymentMethod, status enum.PaymentStatus) {
	id := uuid.New()
	f.store.txns[id] = entity.Transaction{
		ID:                id,
		TransactionNumber: "SEED-" + id.String(),
		ReceiptNumber:     "SEED-" + id.String(),
		BusinessDate:      f.calendar.Today(),
		NetTotal:          dec(net),
		PaymentMethod:     method,
		PaymentStatus:     status,
	}
}

func (f *fixture) submit(actual string) (*entity.CashReconciliation, error) {
	return f.reconciliations.Submit(context.Background(), &SubmitInput{
		ActualCash: dec(actual),
		ActorID:    f.cashier,
	})
}

func TestPreviewToday_SumsOnlyPaidCash(t *testing.T) {
	f := newFixture(t)
	f.seedTxn("5000.00", enum.PaymentMethodCash, enum.PaymentStatusPaid)
	f.seedTxn("230.00", enum.PaymentMethodCash, enum.PaymentStatusPaid)
	f.seedTxn("999.00", enum.PaymentMethodGCash, enum.PaymentStatusPaid)
	f.seedTxn("450.00", enum.PaymentMethodCash, enum.PaymentStatusPending)

	preview, err := f.reconciliations.PreviewToday(context.Background())
	require.NoError(t, err)
	assert.True(t, dec("5230.00").Equal(preview.ExpectedCash))
	assert.Equal(t, 2, preview.TransactionCount)
	assert.False(t, preview.AlreadyReconciled)
	assert.Empty(t, f.store.recs, "preview writes nothing")
}

func TestSubmit_Shortage(t *testing.T) {
	f := newFixture(t)
	f.seedTxn("5000.00", enum.PaymentMethodCash, enum.PaymentStatusPaid)
	f.seedTxn("230.00", enum.PaymentMethodCash, enum.PaymentStatusPaid)

	rec, err := f.submit("5200.00")
	require.NoError(t, err)
	assert.True(t, dec("5230.00").Equal(rec.ExpectedCash))
	assert.True(t, dec("-30.00").Equal(rec.Variance))
	assert.Equal(t, enum.ReconciliationShortage, rec.Status)
	assert.Equal(t, enum.ReconciliationStateSubmitted, rec.State)
	assert.Equal(t, 2, rec.TransactionCount)
	assert.Equal(t, "2025-01-15", rec.ReconciliationDate.Format("2006-01-02"))

	entries := f.audit.byAction("cash_reconciliation_submitted")
	require.Len(t, entries, 1)
	assert.Equal(t, enum.AuditSeverityWarning, entries[0].Severity)
}

func TestSubmit_BalancedAuditsAsInfo(t *testing.T) {
	f := newFixture(t)
	f.seedTxn("800.00", enum.PaymentMethodCash, enum.PaymentStatusPaid)

	rec, err := f.submit("800")
	require.NoError(t, err)
	assert.Equal(t, enum.ReconciliationBalanced, rec.Status)

	entries := f.audit.byAction("cash_reconciliation_submitted")
	require.Len(t, entries, 1)
	assert.Equal(t, enum.AuditSeverityInfo, entries[0].Severity)
}

func TestSubmit_SecondSubmitIsRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.submit("0")
	require.NoError(t, err)

	_, err = f.submit("100")
	require.Error(t, err)
	assert.True(t, apperror.HasReason(err, apperror.ReasonAlreadyReconciled))
	assert.Len(t, f.store.reconciliationsOn(f.calendar.Today()), 1)

	preview, err := f.reconciliations.PreviewToday(context.Background())
	require.NoError(t, err)
	assert.True(t, preview.AlreadyReconciled)
}

func TestSubmit_StorageConstraintDecidesRace(t *testing.T) {
	f := newFixture(t)
	_, err := f.submit("0")
	require.NoError(t, err)

	// the pre-check misses the committed row, as it would for a concurrent submit
	f.store.hideActiveRecon = true
	_, err = f.submit("0")
	require.Error(t, err)
	assert.True(t, apperror.HasReason(err, apperror.ReasonAlreadyReconciled))
	assert.Len(t, f.store.reconciliationsOn(f.calendar.Today()), 1)
}

func TestSubmit_ConcurrentSubmitsExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	const n = 8

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.submit("0")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, apperror.HasReason(err, apperror.ReasonAlreadyReconciled))
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, f.store.reconciliationsOn(f.calendar.Today()), 1)
}

func TestSubmit_RejectsNegativeCash(t *testing.T) {
	f := newFixture(t)
	_, err := f.submit("-1")
	assert.True(t, apperror.HasReason(err, apperror.ReasonValidationFailed))
}

func TestCorrectionWorkflow_ReopensDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.submit("100")
	require.NoError(t, err)

	_, err = f.reconciliations.ApproveCorrection(ctx, &ApproveCorrectionInput{ReconciliationID: rec.ID, ActorID: f.admin})
	assert.True(t, apperror.HasReason(err, apperror.ReasonInvalidTransition), "approve requires a request")

	requested, err := f.reconciliations.RequestCorrection(ctx, &RequestCorrectionInput{
		ReconciliationID: rec.ID,
		Reason:           "miscounted the 1000 bills",
		ActorID:          f.cashier,
	})
	require.NoError(t, err)
	assert.Equal(t, enum.ReconciliationStateCorrectionRequested, requested.State)
	assert.True(t, requested.CorrectionRequested)
	assert.Equal(t, []uuid.UUID{rec.ID}, f.notifier.sent)

	_, err = f.reconciliations.RequestCorrection(ctx, &RequestCorrectionInput{
		ReconciliationID: rec.ID,
		Reason:           "again",
		ActorID:          f.cashier,
	})
	assert.True(t, apperror.HasReason(err, apperror.ReasonAlreadyRequested))

	_, err = f.submit("0")
	assert.True(t, apperror.HasReason(err, apperror.ReasonAlreadyReconciled), "a pending correction still blocks the date")

	approved, err := f.reconciliations.ApproveCorrection(ctx, &ApproveCorrectionInput{ReconciliationID: rec.ID, ActorID: f.admin})
	require.NoError(t, err)
	assert.Equal(t, enum.ReconciliationStateApproved, approved.State)
	assert.True(t, approved.IsApproved)

	_, err = f.reconciliations.RequestCorrection(ctx, &RequestCorrectionInput{
		ReconciliationID: rec.ID,
		Reason:           "late",
		ActorID:          f.cashier,
	})
	assert.True(t, apperror.HasReason(err, apperror.ReasonInvalidTransition), "approved records are final")

	fresh, err := f.submit("0")
	require.NoError(t, err)
	assert.NotEqual(t, rec.ID, fresh.ID)
	assert.Len(t, f.store.reconciliationsOn(f.calendar.Today()), 2)

	state := enum.ReconciliationStateApproved
	history, err := f.reconciliations.ListReconciliations(ctx, &repository.ReconciliationFilterParams{State: &state})
	require.NoError(t, err)
	require.Len(t, history.Items, 1)
	assert.Equal(t, rec.ID, history.Items[0].ID)
}

func TestRequestCorrection_NotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")
	rec, err := f.submit("0")
	require.NoError(t, err)

	_, err = f.reconciliations.RequestCorrection(context.Background(), &RequestCorrectionInput{
		ReconciliationID: rec.ID,
		Reason:           "recount",
		ActorID:          f.cashier,
	})
	require.NoError(t, err)

	stored, err := f.reconciliations.GetReconciliation(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.ReconciliationStateCorrectionRequested, stored.State)
}

func TestRequestCorrection_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.reconciliations.RequestCorrection(context.Background(), &RequestCorrectionInput{
		ReconciliationID: uuid.New(),
		Reason:           "  ",
	})
	assert.True(t, apperror.HasReason(err, apperror.ReasonValidationFailed))

	_, err = f.reconciliations.RequestCorrection(context.Background(), &RequestCorrectionInput{
		ReconciliationID: uuid.New(),
		Reason:           "recount",
	})
	assert.True(t, apperror.HasReason(err, apperror.ReasonNotFound))
}
