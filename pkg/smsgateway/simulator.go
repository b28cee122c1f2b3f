package smsgateway

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

const (
	// rateLimitPerMinute is the global per-provider send ceiling enforced
	// when a profile has rate limit simulation enabled.
	rateLimitPerMinute = 100
	rateLimitWindow    = time.Minute

	baseRate          = 0.055
	premiumMultiplier = 2.5
	segmentSize       = 160

	// blacklistTestPrefix marks destinations rejected when a profile has
	// blacklist simulation enabled.
	blacklistTestPrefix = "+1900555"
)

var temporaryErrors = []string{
	"Gateway temporarily unavailable",
	"Network congestion, please retry",
	"Destination carrier timeout",
}

var permanentErrors = []string{
	"Invalid phone number format",
	"Destination number blacklisted",
	"Message content rejected by carrier",
}

// CalculateCost returns the charge for a message: a base rate per
// 160-character segment, multiplied for premium destinations (numbers
// containing "900" or "901"). Deterministic given its inputs.
func CalculateCost(content, to string) float64 {
	segments := int(math.Ceil(float64(len(content)) / float64(segmentSize)))
	if segments < 1 {
		segments = 1
	}
	multiplier := 1.0
	if strings.Contains(to, "900") || strings.Contains(to, "901") {
		multiplier = premiumMultiplier
	}
	return baseRate * float64(segments) * multiplier
}

func newGatewayMessageID(providerID string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s", strings.ToUpper(providerID), strings.ToUpper(raw[:20]))
}

// SendSMS simulates one send attempt against the named profile.
//
// An unknown profile is a configuration error and returns a non-nil error.
// Every other outcome, including gate rejections and simulated gateway
// failures, is reported as a structured SendResult. A request whose
// MessageID was already accepted short-circuits to a cached success
// without touching the gate, the latency simulation or the probability
// draws. Cancelling ctx during the simulated latency aborts the attempt
// and releases the message id for a later retry.
func (s *Simulator) SendSMS(ctx context.Context, req SendRequest) (*SendResult, error) {
	s.mu.Lock()
	cfg, ok := s.configs[req.Profile]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("smsgateway: unknown provider profile %q", req.Profile)
	}
	snap := *cfg

	if req.MessageID != "" {
		if _, dup := s.sentMessages[req.MessageID]; dup {
			s.mu.Unlock()
			slog.Info("duplicate send short-circuited",
				"messageId", req.MessageID, "provider", snap.ProviderID)
			return s.cachedResult(&snap, req), nil
		}
		// Mark before releasing the lock so a concurrent duplicate call
		// cannot race into a second real send.
		s.sentMessages[req.MessageID] = struct{}{}
	}

	if rejection := s.admit(&snap); rejection != nil {
		// Gate rejections are retryable; release the id so the retry is
		// not mistaken for a duplicate.
		delete(s.sentMessages, req.MessageID)
		s.mu.Unlock()
		return rejection, nil
	}
	s.activeConnections[snap.ProviderID]++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.activeConnections[snap.ProviderID] > 0 {
			s.activeConnections[snap.ProviderID]--
		}
		s.mu.Unlock()
	}()

	latency := s.randomLatency(&snap)
	if err := s.sleep(ctx, latency); err != nil {
		// The attempt never produced an outcome; release the id so a
		// legitimate retry is possible.
		if req.MessageID != "" {
			s.mu.Lock()
			delete(s.sentMessages, req.MessageID)
			s.mu.Unlock()
		}
		return nil, err
	}

	if snap.BlacklistSimulation && strings.HasPrefix(req.To, blacklistTestPrefix) {
		return &SendResult{
			Success:   false,
			Status:    StatusFailed,
			Error:     "Destination number blacklisted",
			Retryable: false,
		}, nil
	}

	if s.randFloat() > snap.SuccessRate {
		return s.failureResult(&snap), nil
	}

	gatewayID := newGatewayMessageID(snap.ProviderID)
	if req.MessageID != "" {
		s.scheduleDeliveryReport(req.MessageID, &snap, gatewayID)
	}

	s.mu.Lock()
	s.rateWindowFor(snap.ProviderID).count++
	s.mu.Unlock()

	return &SendResult{
		Success:      true,
		MessageID:    gatewayID,
		Status:       StatusSent,
		Cost:         CalculateCost(req.Content, req.To),
		DeliveryTime: latency,
		ProviderResponse: map[string]interface{}{
			"providerId": snap.ProviderID,
			"acceptedAt": s.now().UTC(),
		},
	}, nil
}

// admit applies the concurrency and rate gate. It must be called with the
// simulator lock held and returns a retryable rejection result, or nil
// when the send is admitted. Gate rejections never consult the
// success/failure roll.
func (s *Simulator) admit(cfg *ProviderConfig) *SendResult {
	if cfg.RateLimitSimulation {
		if s.rateWindowFor(cfg.ProviderID).count >= rateLimitPerMinute {
			return &SendResult{
				Success:   false,
				Status:    StatusFailed,
				Error:     fmt.Sprintf("Rate limit exceeded: %d messages per minute", rateLimitPerMinute),
				Retryable: true,
			}
		}
	}
	if s.activeConnections[cfg.ProviderID] >= cfg.MaxConcurrent {
		return &SendResult{
			Success:   false,
			Status:    StatusFailed,
			Error:     "Service unavailable: too many concurrent connections",
			Retryable: true,
		}
	}
	return nil
}

// rateWindowFor returns the rolling one-minute counter for a provider,
// resetting it when the window has elapsed. Caller must hold the lock.
func (s *Simulator) rateWindowFor(providerID string) *rateWindow {
	now := s.now()
	w, ok := s.rateWindows[providerID]
	if !ok {
		w = &rateWindow{resetTime: now}
		s.rateWindows[providerID] = w
	} else if now.Sub(w.resetTime) > rateLimitWindow {
		w.count = 0
		w.resetTime = now
	}
	return w
}

func (s *Simulator) randomLatency(cfg *ProviderConfig) time.Duration {
	spread := cfg.MaxDelay - cfg.MinDelay
	if spread <= 0 {
		return cfg.MinDelay
	}
	return cfg.MinDelay + time.Duration(s.randFloat()*float64(spread))
}

// cachedResult synthesizes the success returned for a duplicate send: a
// fresh gateway id and the same deterministic cost, marked cached in the
// provider response.
func (s *Simulator) cachedResult(cfg *ProviderConfig, req SendRequest) *SendResult {
	return &SendResult{
		Success:   true,
		MessageID: newGatewayMessageID(cfg.ProviderID),
		Status:    StatusSent,
		Cost:      CalculateCost(req.Content, req.To),
		ProviderResponse: map[string]interface{}{
			"cached":     true,
			"providerId": cfg.ProviderID,
		},
	}
}

// failureResult draws the failure subtype from the configured
// temporary:permanent ratio and picks a matching error string.
func (s *Simulator) failureResult(cfg *ProviderConfig) *SendResult {
	total := cfg.TemporaryFailureRate + cfg.PermanentFailureRate
	retryable := true
	if total > 0 {
		retryable = s.randFloat() < cfg.TemporaryFailureRate/total
	}
	pool := permanentErrors
	if retryable {
		pool = temporaryErrors
	}
	msg := pool[int(s.randFloat()*float64(len(pool)))%len(pool)]
	return &SendResult{
		Success:   false,
		Status:    StatusFailed,
		Error:     msg,
		Retryable: retryable,
	}
}
