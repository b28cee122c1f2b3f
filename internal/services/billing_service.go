package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"

	"github.com/sipharbor/sms-platform/internal/models"
	"github.com/sipharbor/sms-platform/internal/repositories"
)

// defaultLookback bounds the billing window when a user has no settled
// billing record to anchor it.
const defaultLookback = 30 * 24 * time.Hour

// BillingContext describes the send being checked against billing policy.
type BillingContext struct {
	UserID       primitive.ObjectID
	MessageType  string
	CampaignID   primitive.ObjectID
	TotalCost    float64
	MessageCount int
}

// BillingDecision is the outcome of a billing pre-check. It carries no
// side effects: record creation is a separate call, so the check is safe
// to repeat for dry runs.
type BillingDecision struct {
	ShouldCreateBilling bool                `json:"shouldCreateBilling"`
	ShouldBlock         bool                `json:"shouldBlock"`
	Reason              string              `json:"reason,omitempty"`
	CurrentUsage        *models.UsageTotals `json:"currentUsage,omitempty"`
}

// BillingSummary aggregates a user's billing position.
type BillingSummary struct {
	CurrentUsage  *models.UsageTotals     `json:"currentUsage"`
	Settings      *models.BillingSettings `json:"settings,omitempty"`
	RecentRecords []*models.BillingRecord `json:"recentRecords"`
	HasPending    bool                    `json:"hasPending"`
}

// BillingService handles usage tracking and billing-trigger decisions.
// Single messages and campaign messages are two disjoint accounting
// streams: singles bill on threshold crossings, campaigns bill once on
// completion.
type BillingService struct {
	messageRepo  repositories.MessageRepository
	billingRepo  repositories.BillingRecordRepository
	settingsRepo repositories.BillingSettingsRepository
	campaignRepo repositories.CampaignRepository

	billingEndpoint string
	httpClient      *http.Client
	now             func() time.Time
}

// NewBillingService creates a new BillingService. billingEndpoint is the
// external payment collaborator notified for auto-processed records; empty
// disables auto-processing notifications.
func NewBillingService(
	messageRepo repositories.MessageRepository,
	billingRepo repositories.BillingRecordRepository,
	settingsRepo repositories.BillingSettingsRepository,
	campaignRepo repositories.CampaignRepository,
	billingEndpoint string,
) *BillingService {
	return &BillingService{
		messageRepo:     messageRepo,
		billingRepo:     billingRepo,
		settingsRepo:    settingsRepo,
		campaignRepo:    campaignRepo,
		billingEndpoint: billingEndpoint,
		httpClient:      &http.Client{Timeout: 15 * time.Second},
		now:             time.Now,
	}
}

// resolveSettings returns the user's billing settings, falling back to the
// global default document. Returns nil when neither exists.
func (s *BillingService) resolveSettings(ctx context.Context, userID primitive.ObjectID) (*models.BillingSettings, error) {
	settings, err := s.settingsRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		return settings, nil
	}
	return s.settingsRepo.FindGlobal(ctx)
}

// CheckBillingBeforeSend decides whether the send should be blocked and
// whether a threshold billing record is due. Campaign messages never
// trigger or block here; their billing is deferred to campaign completion,
// when the final delivered split is known.
func (s *BillingService) CheckBillingBeforeSend(ctx context.Context, bc BillingContext) (*BillingDecision, error) {
	settings, err := s.resolveSettings(ctx, bc.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load billing settings: %w", err)
	}
	if settings == nil || !settings.IsActive {
		return &BillingDecision{}, nil
	}

	if bc.MessageType == models.MessageTypeCampaign {
		return &BillingDecision{}, nil
	}

	usage, err := s.GetCurrentUsage(ctx, bc.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute current usage: %w", err)
	}

	if !settings.AutoProcess {
		pending, err := s.billingRepo.HasPending(ctx, bc.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check pending billing records: %w", err)
		}
		if pending {
			return &BillingDecision{
				ShouldBlock:  true,
				Reason:       "previous billing records are awaiting approval",
				CurrentUsage: usage,
			}, nil
		}
	}

	if settings.Frequency == models.BillingFrequencyThreshold {
		projected := &models.UsageTotals{
			TotalCost:     usage.TotalCost + bc.TotalCost,
			TotalMessages: usage.TotalMessages + bc.MessageCount,
		}
		if (settings.MaxAmount > 0 && projected.TotalCost >= settings.MaxAmount) ||
			(settings.MaxMessages > 0 && projected.TotalMessages >= settings.MaxMessages) {
			return &BillingDecision{
				ShouldCreateBilling: true,
				CurrentUsage:        projected,
			}, nil
		}
	}

	return &BillingDecision{CurrentUsage: usage}, nil
}

// ProcessBillingAfterSend re-runs the check for a completed single send
// and creates a threshold billing record when one is due. Errors are
// logged and swallowed: billing must never fail a message that was already
// sent.
func (s *BillingService) ProcessBillingAfterSend(ctx context.Context, bc BillingContext) {
	if bc.MessageType != models.MessageTypeSingle {
		return
	}

	decision, err := s.CheckBillingBeforeSend(ctx, bc)
	if err != nil {
		slog.Error("post-send billing check failed", "userId", bc.UserID.Hex(), "error", err)
		return
	}
	if !decision.ShouldCreateBilling {
		return
	}

	record, err := s.CreateBillingRecord(ctx, bc.UserID, models.BillingTriggerThreshold, models.BillingTypeSingle)
	if err != nil {
		slog.Error("failed to create threshold billing record", "userId", bc.UserID.Hex(), "error", err)
		return
	}
	slog.Info("threshold billing record created",
		"userId", bc.UserID.Hex(),
		"billingId", record.ID.Hex(),
		"totalCost", record.TotalCost,
		"totalMessages", record.TotalMessages)
}

// ProcessCampaignBilling bills a completed campaign exactly once. Totals
// come strictly from SENT and DELIVERED campaign messages: undelivered and
// failed sends are never billed.
func (s *BillingService) ProcessCampaignBilling(ctx context.Context, campaignID primitive.ObjectID) (*models.BillingRecord, error) {
	campaign, err := s.campaignRepo.FindByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	if campaign.Status != models.CampaignStatusCompleted {
		return nil, fmt.Errorf("campaign %s is not completed (status %s)", campaignID.Hex(), campaign.Status)
	}

	exists, err := s.billingRepo.ExistsForCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing campaign billing: %w", err)
	}
	if exists {
		slog.Info("campaign already billed", "campaignId", campaignID.Hex())
		return nil, nil
	}

	totals, err := s.messageRepo.CampaignTotals(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate campaign totals: %w", err)
	}
	if totals.TotalMessages == 0 {
		slog.Info("campaign has no billable messages", "campaignId", campaignID.Hex())
		return nil, nil
	}

	periodStart := campaign.StartedAt
	if periodStart.IsZero() {
		periodStart = campaign.CreatedAt
	}
	periodEnd := campaign.CompletedAt
	if periodEnd.IsZero() {
		periodEnd = s.now()
	}

	record := &models.BillingRecord{
		UserID:             campaign.UserID,
		BillingPeriodStart: periodStart,
		BillingPeriodEnd:   periodEnd,
		TotalMessages:      totals.TotalMessages,
		TotalCost:          totals.TotalCost,
		BillingType:        models.BillingTypeCampaign,
		TriggerType:        models.BillingTriggerCampaign,
		Status:             models.BillingStatusPending,
		CampaignID:         campaignID,
	}
	if err := s.billingRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create campaign billing record: %w", err)
	}

	s.maybeAutoProcess(ctx, record)
	return record, nil
}

// CreateBillingRecord creates a billing record for the window implied by
// the trigger type. Calendar triggers subtract a fixed offset from now;
// threshold triggers anchor to the end of the last settled record of the
// same billing type.
func (s *BillingService) CreateBillingRecord(ctx context.Context, userID primitive.ObjectID, triggerType, billingType string) (*models.BillingRecord, error) {
	now := s.now()
	var start time.Time
	switch triggerType {
	case models.BillingTriggerDaily:
		start = now.Add(-24 * time.Hour)
	case models.BillingTriggerWeekly:
		start = now.AddDate(0, 0, -7)
	case models.BillingTriggerMonthly:
		start = now.AddDate(0, 0, -30)
	default:
		last, err := s.billingRepo.FindLastSettled(ctx, userID, billingType)
		if err != nil {
			return nil, fmt.Errorf("failed to find last settled billing record: %w", err)
		}
		if last != nil {
			start = last.BillingPeriodEnd
		} else {
			start = now.Add(-defaultLookback)
		}
	}

	messageType := models.MessageTypeSingle
	if billingType == models.BillingTypeCampaign {
		messageType = models.MessageTypeCampaign
	}
	totals, err := s.messageRepo.UsageSince(ctx, userID, start, messageType)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}

	record := &models.BillingRecord{
		UserID:             userID,
		BillingPeriodStart: start,
		BillingPeriodEnd:   now,
		TotalMessages:      totals.TotalMessages,
		TotalCost:          totals.TotalCost,
		BillingType:        billingType,
		TriggerType:        triggerType,
		Status:             models.BillingStatusPending,
	}
	if err := s.billingRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create billing record: %w", err)
	}

	s.maybeAutoProcess(ctx, record)
	return record, nil
}

// GetCurrentUsage computes unbilled single-message usage: everything
// billable after the last settled single billing record, defaulting to a
// 30-day lookback.
func (s *BillingService) GetCurrentUsage(ctx context.Context, userID primitive.ObjectID) (*models.UsageTotals, error) {
	last, err := s.billingRepo.FindLastSettled(ctx, userID, models.BillingTypeSingle)
	if err != nil {
		return nil, err
	}
	start := s.now().Add(-defaultLookback)
	if last != nil {
		start = last.BillingPeriodEnd
	}
	return s.messageRepo.UsageSince(ctx, userID, start, models.MessageTypeSingle)
}

// GetUserBillingSummary returns the user's current usage, settings and
// recent billing records.
func (s *BillingService) GetUserBillingSummary(ctx context.Context, userID primitive.ObjectID) (*BillingSummary, error) {
	usage, err := s.GetCurrentUsage(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute current usage: %w", err)
	}
	settings, err := s.resolveSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load billing settings: %w", err)
	}
	records, err := s.billingRepo.FindByUserID(ctx, userID, 1, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to load billing records: %w", err)
	}
	pending, err := s.billingRepo.HasPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending billing records: %w", err)
	}

	return &BillingSummary{
		CurrentUsage:  usage,
		Settings:      settings,
		RecentRecords: records,
		HasPending:    pending,
	}, nil
}

// maybeAutoProcess notifies the external payment collaborator about a new
// record when the user's settings allow auto-processing. Best-effort: the
// outcome only affects logging.
func (s *BillingService) maybeAutoProcess(ctx context.Context, record *models.BillingRecord) {
	if s.billingEndpoint == "" {
		return
	}
	settings, err := s.resolveSettings(ctx, record.UserID)
	if err != nil || settings == nil || !settings.AutoProcess {
		return
	}

	body, err := json.Marshal(map[string]string{"billingId": record.ID.Hex()})
	if err != nil {
		slog.Error("failed to marshal billing notification", "billingId", record.ID.Hex(), "error", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.billingEndpoint, bytes.NewBuffer(body))
	if err != nil {
		slog.Error("failed to create billing notification request", "billingId", record.ID.Hex(), "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("billing auto-processing call failed", "billingId", record.ID.Hex(), "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("billing auto-processing rejected", "billingId", record.ID.Hex(), "status", resp.StatusCode)
		return
	}
	slog.Info("billing record submitted for auto-processing", "billingId", record.ID.Hex())
}
