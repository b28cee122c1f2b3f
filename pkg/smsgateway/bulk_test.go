package smsgateway

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bulkRequests(n int) []SendRequest {
	reqs := make([]SendRequest, n)
	for i := range reqs {
		reqs[i] = SendRequest{
			To:        fmt.Sprintf("+1555123%04d", i),
			Content:   fmt.Sprintf("message %d", i),
			MessageID: fmt.Sprintf("bulk-%d", i),
		}
	}
	return reqs
}

func TestBulkSendUnknownProfile(t *testing.T) {
	s := newTestSimulator()

	results, err := s.BulkSend(context.Background(), bulkRequests(3), "carrier-pigeon")
	require.Error(t, err)
	assert.Nil(t, results)
}

func TestBulkSendPreservesOrder(t *testing.T) {
	rec := &timerRecorder{}
	s := newTestSimulator(
		WithRandom(func() float64 { return 0.5 }),
		WithTimerFactory(rec.factory),
	)

	reqs := bulkRequests(12)
	results, err := s.BulkSend(context.Background(), reqs, "testing")
	require.NoError(t, err)
	require.Len(t, results, 12)

	for i, res := range results {
		require.NotNil(t, res, i)
		assert.True(t, res.Success, i)
		assert.Equal(t, StatusSent, res.Status, i)
	}
	assert.Equal(t, 12, s.TrackingStats().TotalSent)
	assert.Equal(t, 12, s.TrackingStats().TotalScheduled)
}

func TestBulkSendBatchesByConcurrencyCeiling(t *testing.T) {
	rec := &timerRecorder{}
	s := NewSimulator(
		WithRandom(func() float64 { return 0.5 }),
		WithTimerFactory(rec.factory),
	)

	var inFlight, peak int64
	var mu sync.Mutex
	s.sleep = func(ctx context.Context, d time.Duration) error {
		if d == batchPause {
			return nil
		}
		n := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return nil
	}

	// The testing profile allows 5 concurrent connections, which also
	// caps the bulk batch size.
	results, err := s.BulkSend(context.Background(), bulkRequests(13), "testing")
	require.NoError(t, err)
	require.Len(t, results, 13)

	for i, res := range results {
		require.NotNil(t, res, i)
		assert.True(t, res.Success, i)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int64(5))
}

func TestBulkSendCancelledBetweenBatches(t *testing.T) {
	s := NewSimulator(WithRandom(func() float64 { return 0.5 }))
	s.sleep = func(ctx context.Context, d time.Duration) error {
		if d == batchPause {
			return context.Canceled
		}
		return nil
	}

	results, err := s.BulkSend(context.Background(), bulkRequests(8), "testing")
	require.ErrorIs(t, err, context.Canceled)

	// The first batch completed before the cancellation surfaced.
	require.Len(t, results, 8)
	for i := 0; i < 5; i++ {
		require.NotNil(t, results[i], i)
		assert.True(t, results[i].Success, i)
	}
	for i := 5; i < 8; i++ {
		assert.Nil(t, results[i], i)
	}
}
