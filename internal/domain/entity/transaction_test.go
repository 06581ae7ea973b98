package entity

import (
	"testing"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionTest_AdvanceStampsStartedAtOnce(t *testing.T) {
	tt := &TransactionTest{Status: enum.TestStatusPending}
	actor := uuid.New()
	first := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

	require.NoError(t, tt.Advance(enum.TestStatusInProgress, &actor, first))
	require.NotNil(t, tt.StartedAt)
	assert.Equal(t, first, *tt.StartedAt)
	assert.Nil(t, tt.CompletedAt)

	require.NoError(t, tt.Advance(enum.TestStatusInProgress, &actor, first.Add(time.Hour)))
	assert.Equal(t, first, *tt.StartedAt, "repeated in_progress must not move started_at")

	done := first.Add(2 * time.Hour)
	require.NoError(t, tt.Advance(enum.TestStatusCompleted, &actor, done))
	require.NotNil(t, tt.CompletedAt)
	assert.Equal(t, done, *tt.CompletedAt)
	assert.Equal(t, first, *tt.StartedAt)

	require.NoError(t, tt.Advance(enum.TestStatusCompleted, &actor, done.Add(time.Hour)))
	assert.Equal(t, done, *tt.CompletedAt)
}

func TestTransactionTest_AdvanceRejectsBackward(t *testing.T) {
	tt := &TransactionTest{Status: enum.TestStatusCompleted}
	err := tt.Advance(enum.TestStatusInProgress, nil, time.Now())
	assert.ErrorIs(t, err, ErrTestStatusRegression)
	assert.Equal(t, enum.TestStatusCompleted, tt.Status)

	tt = &TransactionTest{Status: enum.TestStatusInProgress}
	assert.ErrorIs(t, tt.Advance(enum.TestStatusPending, nil, time.Now()), ErrTestStatusRegression)
}

func TestTransactionTest_AdvanceRejectsUnknownStatus(t *testing.T) {
	tt := &TransactionTest{Status: enum.TestStatusPending}
	assert.ErrorIs(t, tt.Advance(enum.TestStatus("released"), nil, time.Now()), ErrUnknownTestStatus)
}

func TestTransactionTest_SkipToCompletedStampsBoth(t *testing.T) {
	tt := &TransactionTest{Status: enum.TestStatusPending}
	at := time.Now()
	require.NoError(t, tt.Advance(enum.TestStatusCompleted, nil, at))
	require.NotNil(t, tt.StartedAt)
	require.NotNil(t, tt.CompletedAt)
}

func TestAggregateLabStatus(t *testing.T) {
	p, ip, c := enum.TestStatusPending, enum.TestStatusInProgress, enum.TestStatusCompleted
	cases := []struct {
		name     string
		statuses []enum.TestStatus
		want     enum.LabStatus
	}{
		{"empty", nil, enum.LabStatusPending},
		{"all pending", []enum.TestStatus{p, p}, enum.LabStatusPending},
		{"one in progress", []enum.TestStatus{p, ip}, enum.LabStatusInProgress},
		{"completed and pending", []enum.TestStatus{c, p}, enum.LabStatusPending},
		{"completed and in progress", []enum.TestStatus{c, ip}, enum.LabStatusInProgress},
		{"all completed", []enum.TestStatus{c, c, c}, enum.LabStatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AggregateLabStatus(tc.statuses))
		})
	}
}

func TestTransaction_Release(t *testing.T) {
	admin := uuid.New()
	txn := &Transaction{LabStatus: enum.LabStatusInProgress}
	assert.ErrorIs(t, txn.Release(admin, time.Now()), ErrNotReleasable)

	txn.LabStatus = enum.LabStatusCompleted
	require.NoError(t, txn.Release(admin, time.Now()))
	assert.Equal(t, enum.LabStatusReleased, txn.LabStatus)
	assert.Equal(t, &admin, txn.ReleasedBy)

	assert.ErrorIs(t, txn.Release(admin, time.Now()), ErrTransactionReleased)
	assert.ErrorIs(t, txn.ApplyLabStatus(enum.LabStatusInProgress), ErrTransactionReleased)
}

func TestPatient_Snapshot(t *testing.T) {
	birth := time.Date(1960, 3, 20, 0, 0, 0, 0, time.UTC)
	p := &Patient{FirstName: "Juan", MiddleName: " ", LastName: "Dela Cruz", BirthDate: &birth, Gender: "male"}

	snap := p.Snapshot(time.Date(2025, 3, 19, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "Juan Dela Cruz", snap.Name)
	require.NotNil(t, snap.Age)
	assert.Equal(t, 64, *snap.Age)

	p.FirstName = "Pedro"
	assert.Equal(t, "Juan Dela Cruz", snap.Name, "snapshot is a copy")
}
