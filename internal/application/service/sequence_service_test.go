package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/observability/metrics"
	"github.com/clinicpos/diagnostics-api/pkg/apperror"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceGenerator_FormatsAndIncrements(t *testing.T) {
	store := newMemStore()
	gen := NewSequenceGenerator(memCounters{store}, time.Hour, nil)
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, manila)

	first, err := gen.Next(context.Background(), "TXN", day)
	require.NoError(t, err)
	second, err := gen.Next(context.Background(), "TXN", day)
	require.NoError(t, err)
	receipt, err := gen.Next(context.Background(), "RCP", day)
	require.NoError(t, err)

	assert.Equal(t, "TXN-20250115-0001", first)
	assert.Equal(t, "TXN-20250115-0002", second)
	assert.Equal(t, "RCP-20250115-0001", receipt, "prefixes count independently")

	counter := store.counters["TXN:20250115"]
	assert.Equal(t, time.Date(2025, 1, 16, 1, 0, 0, 0, manila), counter.ExpiresAt)
}

func TestSequenceGenerator_ConcurrentCallersAreDistinct(t *testing.T) {
	gen := NewSequenceGenerator(memCounters{newMemStore()}, time.Hour, nil)
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, manila)
	const n = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := gen.Next(context.Background(), "TXN", day)
			assert.NoError(t, err)
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.True(t, seen["TXN-20250115-0050"])
}

func TestSequenceGenerator_StoreFailureIsUnavailable(t *testing.T) {
	store := newMemStore()
	store.counterErr = errors.New("timeout")
	m := metrics.NewNop()
	gen := NewSequenceGenerator(memCounters{store}, time.Hour, m)

	id, err := gen.Next(context.Background(), "TXN", time.Now())
	assert.Empty(t, id)
	assert.True(t, apperror.HasReason(err, apperror.ReasonSequenceUnavailable))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SequenceFailures))
}

func TestFormatSequence_WidensPastFourDigits(t *testing.T) {
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "TXN-20250115-0007", FormatSequence("TXN", day, 7))
	assert.Equal(t, "TXN-20250115-12345", FormatSequence("TXN", day, 12345))
	assert.Equal(t, "TXN:20250115", SequenceKey("TXN", day))
}
