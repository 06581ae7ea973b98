package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory unit of work backing every repository interface.
// WithinTransaction serializes callers the way row locks would and restores a
// snapshot when fn fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	patients  map[uuid.UUID]entity.Patient
	labTests  map[uuid.UUID]entity.LabTest
	discounts map[uuid.UUID]entity.Discount
	counters  map[string]entity.SequenceCounter
	txns      map[uuid.UUID]entity.Transaction
	tests     map[uuid.UUID]entity.TransactionTest
	events    []entity.TransactionEvent
	recs      map[uuid.UUID]entity.CashReconciliation
	users     map[uuid.UUID]entity.User
	roles     map[string]entity.Role
	idem      map[string]entity.IdempotencyKey

	// fault injection
	counterErr      error
	eventErr        error
	hideActiveRecon bool
	seq             int64
}

func newMemStore() *memStore {
	return &memStore{
		patients:  map[uuid.UUID]entity.Patient{},
		labTests:  map[uuid.UUID]entity.LabTest{},
		discounts: map[uuid.UUID]entity.Discount{},
		counters:  map[string]entity.SequenceCounter{},
		txns:      map[uuid.UUID]entity.Transaction{},
		tests:     map[uuid.UUID]entity.TransactionTest{},
		recs:      map[uuid.UUID]entity.CashReconciliation{},
		users:     map[uuid.UUID]entity.User{},
		roles:     map[string]entity.Role{},
		idem:      map[string]entity.IdempotencyKey{},
	}
}

type memSnapshot struct {
	patients map[uuid.UUID]entity.Patient
	counters map[string]entity.SequenceCounter
	txns     map[uuid.UUID]entity.Transaction
	tests    map[uuid.UUID]entity.TransactionTest
	events   []entity.TransactionEvent
	recs     map[uuid.UUID]entity.CashReconciliation
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		patients: copyMap(s.patients),
		counters: copyMap(s.counters),
		txns:     copyMap(s.txns),
		tests:    copyMap(s.tests),
		events:   append([]entity.TransactionEvent(nil), s.events...),
		recs:     copyMap(s.recs),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = snap.patients
	s.counters = snap.counters
	s.txns = snap.txns
	s.tests = snap.tests
	s.events = snap.events
	s.recs = snap.recs
}

func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) stamp() time.Time {
	s.seq++
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Millisecond)
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

// patients

type memPatients struct{ *memStore }

func (r memPatients) Create(_ context.Context, p *entity.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.patients[p.ID] = *p
	return nil
}

func (r memPatients) GetByID(_ context.Context, id uuid.UUID) (*entity.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// catalog

type memLabTests struct{ *memStore }

func (r memLabTests) GetByIDs(_ context.Context, ids []uuid.UUID) ([]entity.LabTest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.LabTest
	for _, id := range ids {
		if t, ok := r.labTests[id]; ok && t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r memLabTests) List(_ context.Context, category string) ([]entity.LabTest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.LabTest
	for _, t := range r.labTests {
		if t.IsActive && (category == "" || t.Category == category) {
			out = append(out, t)
		}
	}
	return out, nil
}

type memDiscounts struct{ *memStore }

func (r memDiscounts) GetByID(_ context.Context, id uuid.UUID) (*entity.Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.discounts[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r memDiscounts) List(_ context.Context, kind string) ([]entity.Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Discount
	for _, d := range r.discounts {
		if kind == "" || d.Kind == kind {
			out = append(out, d)
		}
	}
	return out, nil
}

// counters

type memCounters struct{ *memStore }

func (r memCounters) IncrementAndGet(_ context.Context, key string, expiresAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counterErr != nil {
		return 0, r.counterErr
	}
	c := r.counters[key]
	c.Key = key
	c.Value++
	c.ExpiresAt = expiresAt
	r.counters[key] = c
	return c.Value, nil
}

func (r memCounters) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, c := range r.counters {
		if c.ExpiresAt.Before(now) {
			delete(r.counters, k)
			n++
		}
	}
	return n, nil
}

// transactions

type memTransactions struct{ *memStore }

func (r memTransactions) Create(_ context.Context, t *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.txns {
		if existing.TransactionNumber == t.TransactionNumber || existing.ReceiptNumber == t.ReceiptNumber ||
			(sameDay(existing.BusinessDate, t.BusinessDate) && existing.QueueNumber == t.QueueNumber) {
			return repository.ErrDuplicateKey
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = r.stamp()
	row := *t
	row.Tests = nil
	r.txns[t.ID] = row
	return nil
}

func (r memTransactions) GetByID(_ context.Context, id uuid.UUID) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txns[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r memTransactions) GetWithTests(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil || t == nil {
		return t, err
	}
	t.Tests, err = memTests{r.memStore}.GetByTransactionID(ctx, id)
	return t, err
}

func (r memTransactions) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	return r.GetByID(ctx, id)
}

func (r memTransactions) MaxQueueNumber(_ context.Context, day time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	highest := 0
	for _, t := range r.txns {
		if sameDay(t.BusinessDate, day) && t.QueueNumber > highest {
			highest = t.QueueNumber
		}
	}
	return highest, nil
}

func (r memTransactions) UpdateLabStatus(_ context.Context, t *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.txns[t.ID]
	row.LabStatus = t.LabStatus
	row.ReleasedAt = t.ReleasedAt
	row.ReleasedBy = t.ReleasedBy
	r.txns[t.ID] = row
	return nil
}

func (r memTransactions) List(_ context.Context, params *repository.TransactionFilterParams) ([]entity.Transaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []entity.Transaction
	for _, t := range r.txns {
		if params.BusinessDate != nil && !sameDay(t.BusinessDate, *params.BusinessDate) {
			continue
		}
		if params.PaymentStatus != nil && t.PaymentStatus != *params.PaymentStatus {
			continue
		}
		if params.LabStatus != nil && t.LabStatus != *params.LabStatus {
			continue
		}
		if params.Search != "" && !strings.Contains(strings.ToLower(t.TransactionNumber+" "+t.Patient.Name), strings.ToLower(params.Search)) {
			continue
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := params.Pagination.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + params.Pagination.PerPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r memTransactions) SumPaidCash(_ context.Context, day time.Time) (decimal.Decimal, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	count := 0
	for _, t := range r.txns {
		if sameDay(t.BusinessDate, day) && t.PaymentMethod == enum.PaymentMethodCash && t.PaymentStatus == enum.PaymentStatusPaid {
			sum = sum.Add(t.NetTotal)
			count++
		}
	}
	return sum, count, nil
}

// transaction tests

type memTests struct{ *memStore }

func (r memTests) CreateBatch(_ context.Context, tests []entity.TransactionTest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range tests {
		if tests[i].ID == uuid.Nil {
			tests[i].ID = uuid.New()
		}
		tests[i].CreatedAt = r.stamp()
		r.tests[tests[i].ID] = tests[i]
	}
	return nil
}

func (r memTests) GetByID(_ context.Context, id uuid.UUID) (*entity.TransactionTest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tests[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r memTests) GetByTransactionID(_ context.Context, transactionID uuid.UUID) ([]entity.TransactionTest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.TransactionTest
	for _, t := range r.tests {
		if t.TransactionID == transactionID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memTests) Update(_ context.Context, t *entity.TransactionTest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tests[t.ID] = *t
	return nil
}

// events

type memEvents struct{ *memStore }

func (r memEvents) Create(_ context.Context, e *entity.TransactionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.eventErr != nil {
		return r.eventErr
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = r.stamp()
	r.events = append(r.events, *e)
	return nil
}

func (r memEvents) ListByTransaction(_ context.Context, transactionID uuid.UUID) ([]entity.TransactionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.TransactionEvent
	for _, e := range r.events {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memEvents) ClaimUnpublished(_ context.Context, limit int) ([]entity.TransactionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.TransactionEvent
	for _, e := range r.events {
		if e.PublishedAt == nil && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memEvents) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for i := range r.events {
		if set[r.events[i].ID] {
			stamp := at
			r.events[i].PublishedAt = &stamp
		}
	}
	return nil
}

// reconciliations

type memReconciliations struct{ *memStore }

func (r memReconciliations) Create(_ context.Context, rec *entity.CashReconciliation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.recs {
		if existing.BlocksDate() && sameDay(existing.ReconciliationDate, rec.ReconciliationDate) {
			return repository.ErrDuplicateKey
		}
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = r.stamp()
	r.recs[rec.ID] = *rec
	return nil
}

func (r memReconciliations) GetByID(_ context.Context, id uuid.UUID) (*entity.CashReconciliation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r memReconciliations) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.CashReconciliation, error) {
	return r.GetByID(ctx, id)
}

func (r memReconciliations) GetActiveByDate(_ context.Context, date time.Time) (*entity.CashReconciliation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hideActiveRecon {
		return nil, nil
	}
	for _, rec := range r.recs {
		if rec.BlocksDate() && sameDay(rec.ReconciliationDate, date) {
			return &rec, nil
		}
	}
	return nil, nil
}

func (r memReconciliations) Update(_ context.Context, rec *entity.CashReconciliation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs[rec.ID] = *rec
	return nil
}

func (r memReconciliations) List(_ context.Context, params *repository.ReconciliationFilterParams) ([]entity.CashReconciliation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.CashReconciliation
	for _, rec := range r.recs {
		if params.State != nil && rec.State != *params.State {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (s *memStore) reconciliationsOn(day time.Time) []entity.CashReconciliation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.CashReconciliation
	for _, rec := range s.recs {
		if sameDay(rec.ReconciliationDate, day) {
			out = append(out, rec)
		}
	}
	return out
}

// users

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

type memRoles struct{ *memStore }

func (r memRoles) GetByName(_ context.Context, name string) (*entity.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[name]
	if !ok {
		return nil, nil
	}
	return &role, nil
}

func (r memRoles) List(_ context.Context) ([]entity.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Role
	for _, role := range r.roles {
		out = append(out, role)
	}
	return out, nil
}

// idempotency keys

type memIdempotency struct{ *memStore }

func (r memIdempotency) GetByKey(_ context.Context, key string, userID uuid.UUID) (*entity.IdempotencyKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.idem[userID.String()+"/"+key]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

func (r memIdempotency) Create(_ context.Context, k *entity.IdempotencyKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := k.UserID.String() + "/" + k.Key
	if _, ok := r.idem[id]; ok {
		return repository.ErrDuplicateKey
	}
	r.idem[id] = *k
	return nil
}

func (r memIdempotency) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, k := range r.idem {
		if k.IsExpired(now) {
			delete(r.idem, id)
			n++
		}
	}
	return n, nil
}

// recordingAudit collects audit entries
type recordingAudit struct {
	mu      sync.Mutex
	entries []entity.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, entry *entity.AuditLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *entry)
}

func (a *recordingAudit) byAction(action string) []entity.AuditLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []entity.AuditLog
	for _, e := range a.entries {
		if e.ActionType == action {
			out = append(out, e)
		}
	}
	return out
}

// recordingNotifier collects correction notifications
type recordingNotifier struct {
	mu   sync.Mutex
	sent []uuid.UUID
	err  error
}

func (n *recordingNotifier) NotifyCorrectionRequested(_ context.Context, rec *entity.CashReconciliation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, rec.ID)
	return n.err
}
