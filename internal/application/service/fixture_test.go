package service

import (
	"testing"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/clinicpos/diagnostics-api/internal/observability/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var manila = time.FixedZone("PHT", 8*60*60)

type fixture struct {
	store    *memStore
	calendar *Calendar
	audit    *recordingAudit
	notifier *recordingNotifier
	metrics  *metrics.Metrics

	transactions    *TransactionService
	lab             *LabService
	reconciliations *ReconciliationService
	janitor         *JanitorService

	cashier uuid.UUID
	admin   uuid.UUID
	patient entity.Patient
	cbc     entity.LabTest
	lipid   entity.LabTest
	senior  entity.Discount
	hmo     entity.Discount
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	calendar := NewCalendar(manila)
	calendar.SetClock(func() time.Time {
		return time.Date(2025, 1, 15, 10, 30, 0, 0, manila)
	})

	f := &fixture{
		store:    store,
		calendar: calendar,
		audit:    &recordingAudit{},
		notifier: &recordingNotifier{},
		metrics:  metrics.NewNop(),
		cashier:  uuid.New(),
		admin:    uuid.New(),
	}

	birth := time.Date(1990, 6, 1, 0, 0, 0, 0, manila)
	f.patient = entity.Patient{ID: uuid.New(), FirstName: "Maria", LastName: "Santos", BirthDate: &birth, Gender: "female", Contact: "09171234567"}
	f.cbc = entity.LabTest{ID: uuid.New(), Code: "CBC", Name: "Complete Blood Count", Category: "Hematology", Price: decimal.RequireFromString("600.00"), IsActive: true}
	f.lipid = entity.LabTest{ID: uuid.New(), Code: "LIPID", Name: "Lipid Profile", Category: "Chemistry", Price: decimal.RequireFromString("400.00"), IsActive: true}
	f.senior = entity.Discount{ID: uuid.New(), Name: "Senior Citizen", Kind: entity.DiscountKindDiscount, Rate: decimal.NewFromInt(20), IsActive: true}
	f.hmo = entity.Discount{ID: uuid.New(), Name: "Maxicare", Kind: entity.DiscountKindCoverage, Rate: decimal.NewFromInt(50), IsActive: true}

	store.patients[f.patient.ID] = f.patient
	store.labTests[f.cbc.ID] = f.cbc
	store.labTests[f.lipid.ID] = f.lipid
	store.discounts[f.senior.ID] = f.senior
	store.discounts[f.hmo.ID] = f.hmo

	sequences := NewSequenceGenerator(memCounters{store}, 6*time.Hour, f.metrics)
	logger := zap.NewNop()

	f.transactions = NewTransactionService(
		store,
		memPatients{store},
		memLabTests{store},
		memDiscounts{store},
		memTransactions{store},
		memTests{store},
		memEvents{store},
		sequences,
		calendar,
		SequencePrefixes{Transaction: "TXN", Receipt: "RCP"},
		f.audit,
		f.metrics,
		logger,
	)
	f.lab = NewLabService(store, memTransactions{store}, memTests{store}, memEvents{store}, calendar, f.audit, f.metrics, logger)
	f.reconciliations = NewReconciliationService(store, memReconciliations{store}, memTransactions{store}, calendar, f.audit, f.notifier, f.metrics, logger)
	f.janitor = NewJanitorService(memCounters{store}, memIdempotency{store}, calendar, logger)
	return f
}

// orderFor builds a create input for the fixture patient with both tests
func (f *fixture) orderFor(method string) *CreateTransactionInput {
	return &CreateTransactionInput{
		ActorID:       f.cashier,
		PatientID:     &f.patient.ID,
		TestIDs:       []uuid.UUID{f.cbc.ID, f.lipid.ID},
		PaymentMethod: enum.PaymentMethod(method),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
