package smsgateway

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRand replays a fixed sequence of draws and then repeats its
// last value.
type scriptedRand struct {
	mu     sync.Mutex
	values []float64
	idx    int
}

func (r *scriptedRand) next() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[r.idx]
	if r.idx < len(r.values)-1 {
		r.idx++
	}
	return v
}

type fakeTimer struct {
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	pending := !t.stopped
	t.stopped = true
	return pending
}

// timerRecorder captures armed timers so tests can inspect delays and
// fire callbacks on demand.
type timerRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
	timers []*fakeTimer
}

func (r *timerRecorder) factory(d time.Duration, fn func()) Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &fakeTimer{}
	r.delays = append(r.delays, d)
	r.fns = append(r.fns, fn)
	r.timers = append(r.timers, t)
	return t
}

func (r *timerRecorder) fire(i int) {
	r.mu.Lock()
	fn := r.fns[i]
	r.mu.Unlock()
	fn()
}

// newTestSimulator builds a simulator whose simulated latency and batch
// pauses return immediately.
func newTestSimulator(opts ...Option) *Simulator {
	s := NewSimulator(opts...)
	s.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	return s
}

func TestCalculateCost(t *testing.T) {
	tests := []struct {
		name    string
		content string
		to      string
		want    float64
	}{
		{"single segment", "hello", "+15551234567", 0.055},
		{"exactly one segment", strings.Repeat("a", 160), "+15551234567", 0.055},
		{"two segments", strings.Repeat("a", 161), "+15551234567", 0.11},
		{"empty content still charges a segment", "", "+15551234567", 0.055},
		{"premium 900 destination", "hello", "+1900123456", 0.1375},
		{"premium 901 destination", "hello", "+1901123456", 0.1375},
		{"premium two segments", strings.Repeat("a", 200), "+1900123456", 0.275},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateCost(tt.content, tt.to), 1e-9)
		})
	}
}

func TestSendSMSUnknownProfile(t *testing.T) {
	s := newTestSimulator()

	res, err := s.SendSMS(context.Background(), SendRequest{
		To:      "+15551234567",
		Content: "hi",
		Profile: "carrier-pigeon",
	})
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestSendSMSSuccess(t *testing.T) {
	rec := &timerRecorder{}
	s := newTestSimulator(
		WithRandom(func() float64 { return 0.5 }),
		WithTimerFactory(rec.factory),
	)

	res, err := s.SendSMS(context.Background(), SendRequest{
		To:        "+15551234567",
		Content:   "hello there",
		Profile:   "testing",
		MessageID: "msg-1",
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, StatusSent, res.Status)
	assert.True(t, strings.HasPrefix(res.MessageID, "SIM-TESTING-"), res.MessageID)
	assert.InDelta(t, 0.055, res.Cost, 1e-9)
	assert.Equal(t, "sim-testing", res.ProviderResponse["providerId"])

	stats := s.TrackingStats()
	assert.Equal(t, 1, stats.TotalSent)
	assert.Equal(t, 1, stats.TotalScheduled)
	assert.Equal(t, 0, stats.ActiveConnections["sim-testing"])
	assert.Equal(t, 1, stats.RateCounters["sim-testing"])
}

func TestSendSMSWithoutMessageIDSkipsTracking(t *testing.T) {
	s := newTestSimulator(WithRandom(func() float64 { return 0.5 }))

	res, err := s.SendSMS(context.Background(), SendRequest{
		To:      "+15551234567",
		Content: "fire and forget",
		Profile: "testing",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	stats := s.TrackingStats()
	assert.Equal(t, 0, stats.TotalSent)
	assert.Equal(t, 0, stats.TotalScheduled)
}

func TestSendSMSDuplicateShortCircuits(t *testing.T) {
	rec := &timerRecorder{}
	s := newTestSimulator(
		WithRandom(func() float64 { return 0.5 }),
		WithTimerFactory(rec.factory),
	)

	req := SendRequest{
		To:        "+15551234567",
		Content:   "only once",
		Profile:   "testing",
		MessageID: "msg-dup",
	}

	first, err := s.SendSMS(context.Background(), req)
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := s.SendSMS(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, second.Success)
	assert.Equal(t, StatusSent, second.Status)
	assert.Equal(t, true, second.ProviderResponse["cached"])
	assert.InDelta(t, first.Cost, second.Cost, 1e-9)
	assert.NotEqual(t, first.MessageID, second.MessageID)

	// The duplicate never reached the gateway: one tracked send, one
	// scheduled report, one armed timer.
	assert.Len(t, rec.delays, 1)
	stats := s.TrackingStats()
	assert.Equal(t, 1, stats.TotalSent)
	assert.Equal(t, 1, stats.TotalScheduled)
}

func TestSendSMSBlacklistedDestination(t *testing.T) {
	s := newTestSimulator(WithRandom(func() float64 { return 0.5 }))

	res, err := s.SendSMS(context.Background(), SendRequest{
		To:        "+19005550001",
		Content:   "hi",
		Profile:   "standard",
		MessageID: "msg-bl",
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "Destination number blacklisted", res.Error)
	assert.False(t, res.Retryable)
}

func TestSendSMSBlacklistIgnoredWhenDisabled(t *testing.T) {
	s := newTestSimulator(WithRandom(func() float64 { return 0.5 }))

	res, err := s.SendSMS(context.Background(), SendRequest{
		To:      "+19005550001",
		Content: "hi",
		Profile: "testing",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestSendSMSTemporaryFailure(t *testing.T) {
	// Draws: latency, success roll (fails), subtype roll (temporary),
	// error pool pick.
	r := &scriptedRand{values: []float64{0.0, 0.99, 0.5, 0.0}}
	s := newTestSimulator(WithRandom(r.next))

	res, err := s.SendSMS(context.Background(), SendRequest{
		To:      "+15551234567",
		Content: "hi",
		Profile: "budget",
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, StatusFailed, res.Status)
	assert.True(t, res.Retryable)
	assert.Equal(t, "Gateway temporarily unavailable", res.Error)
}

func TestSendSMSPermanentFailure(t *testing.T) {
	// Budget splits failures 0.10 temporary to 0.05 permanent, so a
	// subtype roll of 0.9 lands in the permanent band.
	r := &scriptedRand{values: []float64{0.0, 0.99, 0.9, 0.99}}
	s := newTestSimulator(WithRandom(r.next))

	res, err := s.SendSMS(context.Background(), SendRequest{
		To:      "+15551234567",
		Content: "hi",
		Profile: "budget",
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.False(t, res.Retryable)
	assert.Equal(t, "Message content rejected by carrier", res.Error)
}

func TestSendSMSFailureSchedulesNoReport(t *testing.T) {
	rec := &timerRecorder{}
	r := &scriptedRand{values: []float64{0.0, 0.99, 0.5, 0.0}}
	s := newTestSimulator(WithRandom(r.next), WithTimerFactory(rec.factory))

	res, err := s.SendSMS(context.Background(), SendRequest{
		To:        "+15551234567",
		Content:   "hi",
		Profile:   "budget",
		MessageID: "msg-fail",
	})
	require.NoError(t, err)
	require.False(t, res.Success)

	assert.Empty(t, rec.delays)
	assert.Equal(t, 0, s.TrackingStats().TotalScheduled)
}

func TestSendSMSCancelledDuringLatency(t *testing.T) {
	s := NewSimulator(WithRandom(func() float64 { return 0.5 }))
	s.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	res, err := s.SendSMS(context.Background(), SendRequest{
		To:        "+15551234567",
		Content:   "hi",
		Profile:   "testing",
		MessageID: "msg-cancel",
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)

	// The id is released so a retry is a fresh send, and the connection
	// slot is returned.
	stats := s.TrackingStats()
	assert.Equal(t, 0, stats.TotalSent)
	assert.Equal(t, 0, stats.ActiveConnections["sim-testing"])
}

func TestConcurrencyGateRejects(t *testing.T) {
	rec := &timerRecorder{}
	s := newTestSimulator(
		WithRandom(func() float64 { return 0.5 }),
		WithTimerFactory(rec.factory),
	)

	// Saturate the testing profile's concurrency ceiling.
	s.mu.Lock()
	s.activeConnections["sim-testing"] = 5
	s.mu.Unlock()

	res, err := s.SendSMS(context.Background(), SendRequest{
		To:        "+15551234567",
		Content:   "hi",
		Profile:   "testing",
		MessageID: "msg-gate",
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, StatusFailed, res.Status)
	assert.True(t, res.Retryable)
	assert.Contains(t, res.Error, "too many concurrent connections")

	// A rejected send must not poison duplicate tracking; freeing a slot
	// lets the same id go through.
	s.mu.Lock()
	s.activeConnections["sim-testing"] = 0
	s.mu.Unlock()

	res, err = s.SendSMS(context.Background(), SendRequest{
		To:        "+15551234567",
		Content:   "hi",
		Profile:   "testing",
		MessageID: "msg-gate",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Nil(t, res.ProviderResponse["cached"])
}

func TestRateLimitGate(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s := newTestSimulator(WithRandom(func() float64 { return 0.5 }))
	s.now = func() time.Time { return current }

	s.mu.Lock()
	s.rateWindows["sim-standard"] = &rateWindow{count: 100, resetTime: base}
	s.mu.Unlock()

	res, err := s.SendSMS(context.Background(), SendRequest{
		To:      "+15551234567",
		Content: "hi",
		Profile: "standard",
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.True(t, res.Retryable)
	assert.Equal(t, "Rate limit exceeded: 100 messages per minute", res.Error)

	// Once the window elapses the counter resets and sends flow again.
	current = base.Add(2 * time.Minute)

	res, err = s.SendSMS(context.Background(), SendRequest{
		To:      "+15551234567",
		Content: "hi",
		Profile: "standard",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, s.TrackingStats().RateCounters["sim-standard"])
}

func TestRateLimitDisabledProfileIgnoresCounter(t *testing.T) {
	s := newTestSimulator(WithRandom(func() float64 { return 0.5 }))

	s.mu.Lock()
	s.rateWindows["sim-premium"] = &rateWindow{count: 10000, resetTime: s.now()}
	s.mu.Unlock()

	res, err := s.SendSMS(context.Background(), SendRequest{
		To:      "+15551234567",
		Content: "hi",
		Profile: "premium",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
}
