package smsgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"github.com/sipharbor/sms-platform/pkg/webhooktoken"
)

const (
	// staggerStep spreads delivery callbacks for near-simultaneous sends
	// across a widening window to avoid a burst of webhook calls.
	staggerStep = time.Second

	reportTimeout = 10 * time.Second
)

// scheduleDeliveryReport arms at most one delivery report timer per
// message id. cfg is a snapshot of the profile at send time.
func (s *Simulator) scheduleDeliveryReport(messageID string, cfg *ProviderConfig, gatewayID string) {
	s.mu.Lock()
	if _, ok := s.scheduledReports[messageID]; ok {
		s.mu.Unlock()
		slog.Warn("delivery report already scheduled",
			"messageId", messageID, "provider", cfg.ProviderID)
		return
	}
	s.scheduledReports[messageID] = struct{}{}
	stagger := time.Duration(len(s.scheduledReports)) * staggerStep
	total := cfg.DeliveryDelay + stagger
	snap := *cfg
	s.timers[messageID] = s.newTimer(total, func() {
		s.fireDeliveryReport(messageID, &snap, gatewayID)
	})
	s.mu.Unlock()
}

// fireDeliveryReport rolls the delivery outcome and pushes the report
// through the primary sink, falling back to the secondary on transport
// failure. Both paths are best-effort and never reach the original sender.
func (s *Simulator) fireDeliveryReport(messageID string, cfg *ProviderConfig, gatewayID string) {
	s.mu.Lock()
	delete(s.timers, messageID)
	delivered := s.randFloat() <= cfg.DeliveryRate
	s.mu.Unlock()

	report := &DeliveryReport{
		MessageID:         messageID,
		ProviderMessageID: gatewayID,
		Status:            StatusDelivered,
		Timestamp:         s.now().UTC(),
		ProviderID:        cfg.ProviderID,
	}
	if !delivered {
		report.Status = StatusUndelivered
		report.ErrorCode = "EXPIRED"
		report.ErrorMessage = "Message expired before reaching the handset"
	}

	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if s.primary == nil {
		slog.Warn("no delivery report sink configured", "messageId", messageID)
		return
	}
	if err := s.primary.Deliver(ctx, report); err != nil {
		slog.Error("delivery report webhook failed, falling back to direct update",
			"messageId", messageID, "error", err)
		if s.fallback == nil {
			return
		}
		if err := s.fallback.Deliver(ctx, report); err != nil {
			slog.Error("fallback delivery update failed",
				"messageId", messageID, "error", err)
		}
	}
}

// WebhookSink posts delivery reports to the platform's delivery webhook.
type WebhookSink struct {
	endpoint string
	tokens   *webhooktoken.Service
	client   *http.Client
}

// NewWebhookSink creates a sink posting to endpoint. tokens may be nil,
// in which case callbacks are sent unauthenticated.
func NewWebhookSink(endpoint string, tokens *webhooktoken.Service) *WebhookSink {
	return &WebhookSink{
		endpoint: endpoint,
		tokens:   tokens,
		client: &http.Client{
			Timeout: reportTimeout,
		},
	}
}

// Deliver posts the report as JSON. Any non-2xx response is a transport
// failure.
func (w *WebhookSink) Deliver(ctx context.Context, report *DeliveryReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("sms-simulator/%s", report.ProviderID))
	req.Header.Set("X-Webhook-Source", "simulation")
	if w.tokens != nil {
		token, err := w.tokens.Sign(report.ProviderID)
		if err != nil {
			return fmt.Errorf("failed to sign webhook token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post delivery report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delivery webhook returned status %d: %s", resp.StatusCode, string(payload))
	}
	return nil
}

// DeliveryStore applies a delivery report directly to the message's
// persisted record. It is the fallback used when the webhook transport
// fails.
type DeliveryStore interface {
	ApplyDeliveryReport(ctx context.Context, report *DeliveryReport) error
}

// StoreSink adapts a DeliveryStore to the ReportSink interface.
type StoreSink struct {
	store DeliveryStore
}

// NewStoreSink creates a sink writing delivery state straight to storage.
func NewStoreSink(store DeliveryStore) *StoreSink {
	return &StoreSink{store: store}
}

// Deliver writes the report's delivery state to the message record.
func (s *StoreSink) Deliver(ctx context.Context, report *DeliveryReport) error {
	return s.store.ApplyDeliveryReport(ctx, report)
}
