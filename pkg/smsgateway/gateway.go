package smsgateway

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Send statuses as they appear on the wire, in SendResult and in delivery
// report payloads.
const (
	StatusSent        = "sent"
	StatusFailed      = "failed"
	StatusDelivered   = "delivered"
	StatusUndelivered = "undelivered"
)

// SendRequest describes a single outbound message. MessageID is the
// caller's stable identifier for the logical send attempt; supplying one
// enables duplicate-send protection and delivery report scheduling.
type SendRequest struct {
	To        string `json:"to"`
	Content   string `json:"content"`
	From      string `json:"from,omitempty"`
	Profile   string `json:"profile"`
	MessageID string `json:"messageId,omitempty"`
}

// SendResult is the synchronous outcome of a send attempt. Gate rejections
// and gateway-simulated failures are reported here, never as errors.
type SendResult struct {
	Success          bool                   `json:"success"`
	MessageID        string                 `json:"messageId,omitempty"`
	Status           string                 `json:"status"`
	Cost             float64                `json:"cost"`
	Error            string                 `json:"error,omitempty"`
	Retryable        bool                   `json:"retryable"`
	DeliveryTime     time.Duration          `json:"deliveryTime,omitempty"`
	ProviderResponse map[string]interface{} `json:"providerResponse,omitempty"`
}

// DeliveryReport is the asynchronous confirmation delivered exactly once
// per successfully sent message.
type DeliveryReport struct {
	MessageID         string    `json:"messageId"`
	ProviderMessageID string    `json:"providerMessageId"`
	Status            string    `json:"status"`
	Timestamp         time.Time `json:"timestamp"`
	ErrorCode         string    `json:"errorCode,omitempty"`
	ErrorMessage      string    `json:"errorMessage,omitempty"`
	ProviderID        string    `json:"providerId"`
}

// ReportSink delivers a delivery report to its consumer. The simulator
// tries its primary sink first and falls back to the secondary when the
// primary fails; both paths are best-effort.
type ReportSink interface {
	Deliver(ctx context.Context, report *DeliveryReport) error
}

// Timer is a cancellable pending delivery report.
type Timer interface {
	// Stop cancels the timer, reporting whether it was still pending.
	Stop() bool
}

// TimerFactory arms a timer that runs fn after d. Tests substitute a
// controllable implementation.
type TimerFactory func(d time.Duration, fn func()) Timer

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }

// TrackingStats is a snapshot of the simulator's in-memory tracking state.
type TrackingStats struct {
	TotalSent         int            `json:"totalSent"`
	TotalScheduled    int            `json:"totalScheduled"`
	ActiveTimers      int            `json:"activeTimers"`
	ActiveConnections map[string]int `json:"activeConnections"`
	RateCounters      map[string]int `json:"rateCounters"`
}

type rateWindow struct {
	count     int
	resetTime time.Time
}

// Simulator is a stateful outbound SMS gateway simulator. All tracking
// state lives in process memory, so duplicate-send protection and rate
// limiting are only correct within a single process; a horizontally scaled
// deployment would need this state in a shared, atomically-checked store.
type Simulator struct {
	mu                sync.Mutex
	configs           map[string]*ProviderConfig
	sentMessages      map[string]struct{}
	scheduledReports  map[string]struct{}
	timers            map[string]Timer
	activeConnections map[string]int
	rateWindows       map[string]*rateWindow

	randFloat func() float64
	newTimer  TimerFactory
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	primary  ReportSink
	fallback ReportSink
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRandom injects the uniform random source used for all
// success/failure/delivery draws.
func WithRandom(f func() float64) Option {
	return func(s *Simulator) { s.randFloat = f }
}

// WithTimerFactory injects the timer implementation used for delivery
// report scheduling.
func WithTimerFactory(f TimerFactory) Option {
	return func(s *Simulator) { s.newTimer = f }
}

// WithReportSinks sets the primary and fallback delivery report sinks.
// Either may be nil.
func WithReportSinks(primary, fallback ReportSink) Option {
	return func(s *Simulator) {
		s.primary = primary
		s.fallback = fallback
	}
}

// NewSimulator creates a simulator pre-populated with the default profiles.
// Each instance owns its own configuration and tracking state, so isolated
// instances can coexist (for example one per test).
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		configs:           defaultConfigs(),
		sentMessages:      make(map[string]struct{}),
		scheduledReports:  make(map[string]struct{}),
		timers:            make(map[string]Timer),
		activeConnections: make(map[string]int),
		rateWindows:       make(map[string]*rateWindow),
		randFloat:         rand.Float64,
		now:               time.Now,
	}
	s.newTimer = func(d time.Duration, fn func()) Timer {
		return realTimer{t: time.AfterFunc(d, fn)}
	}
	s.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClearMessageTracking cancels any pending delivery report for messageID
// and removes it from both tracking sets, allowing a fresh send.
func (s *Simulator) ClearMessageTracking(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[messageID]; ok {
		t.Stop()
		delete(s.timers, messageID)
	}
	delete(s.sentMessages, messageID)
	delete(s.scheduledReports, messageID)
}

// ClearDeliveryReportTracking removes tracked message ids whose key
// contains scope, cancelling their pending timers. An empty scope clears
// everything. It returns the number of cleared ids. Campaign sends use
// "<campaignId>:<messageId>" keys, so passing a campaign id tears down
// that campaign's tracking.
func (s *Simulator) ClearDeliveryReportTracking(scope string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := 0
	for id := range s.sentMessages {
		if scope != "" && !strings.Contains(id, scope) {
			continue
		}
		if t, ok := s.timers[id]; ok {
			t.Stop()
			delete(s.timers, id)
		}
		delete(s.sentMessages, id)
		delete(s.scheduledReports, id)
		cleared++
	}
	// Scheduled ids can outlive the sent set after a partial clear.
	for id := range s.scheduledReports {
		if scope != "" && !strings.Contains(id, scope) {
			continue
		}
		if t, ok := s.timers[id]; ok {
			t.Stop()
			delete(s.timers, id)
		}
		delete(s.scheduledReports, id)
		cleared++
	}
	return cleared
}

// Reset cancels all pending timers and clears every tracking set and
// counter. Profile configuration is left untouched.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.timers {
		t.Stop()
	}
	s.sentMessages = make(map[string]struct{})
	s.scheduledReports = make(map[string]struct{})
	s.timers = make(map[string]Timer)
	s.activeConnections = make(map[string]int)
	s.rateWindows = make(map[string]*rateWindow)
}

// TrackingStats returns a snapshot of the tracking sets and counters.
func (s *Simulator) TrackingStats() TrackingStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := TrackingStats{
		TotalSent:         len(s.sentMessages),
		TotalScheduled:    len(s.scheduledReports),
		ActiveTimers:      len(s.timers),
		ActiveConnections: make(map[string]int, len(s.activeConnections)),
		RateCounters:      make(map[string]int, len(s.rateWindows)),
	}
	for id, n := range s.activeConnections {
		stats.ActiveConnections[id] = n
	}
	for id, w := range s.rateWindows {
		stats.RateCounters[id] = w.count
	}
	return stats
}
