package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"

	"github.com/sipharbor/sms-platform/internal/models"
	"github.com/sipharbor/sms-platform/internal/repositories"
	"github.com/sipharbor/sms-platform/pkg/smsgateway"
)

// CampaignService handles the bulk campaign lifecycle. Campaign billing is
// triggered here, on completion, never per message.
type CampaignService struct {
	campaignRepo repositories.CampaignRepository
	messageRepo  repositories.MessageRepository
	gateway      SmsGateway
	billing      *BillingService
}

// NewCampaignService creates a new CampaignService
func NewCampaignService(
	campaignRepo repositories.CampaignRepository,
	messageRepo repositories.MessageRepository,
	gateway SmsGateway,
	billing *BillingService,
) *CampaignService {
	return &CampaignService{
		campaignRepo: campaignRepo,
		messageRepo:  messageRepo,
		gateway:      gateway,
		billing:      billing,
	}
}

// CreateCampaign creates a new campaign in DRAFT status
func (s *CampaignService) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	if campaign.Status == "" {
		campaign.Status = models.CampaignStatusDraft
	}
	return s.campaignRepo.Create(ctx, campaign)
}

// GetCampaignByID retrieves a campaign by ID
func (s *CampaignService) GetCampaignByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	return s.campaignRepo.FindByID(ctx, id)
}

// GetCampaignsByUserID retrieves a user's campaigns with pagination
func (s *CampaignService) GetCampaignsByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.Campaign, error) {
	return s.campaignRepo.FindByUserID(ctx, userID, page, limit)
}

// ExecuteCampaign dispatches a campaign through the bulk gateway path and
// bills it once completed. Message records are tracked in the gateway as
// "<campaignId>:<messageId>" so campaign-scoped teardown can find them.
func (s *CampaignService) ExecuteCampaign(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	switch campaign.Status {
	case models.CampaignStatusDraft, models.CampaignStatusScheduled:
		// executable
	default:
		return nil, fmt.Errorf("campaign %s cannot be executed from status %s", id.Hex(), campaign.Status)
	}
	if len(campaign.Recipients) == 0 {
		return nil, fmt.Errorf("campaign %s has no recipients", id.Hex())
	}

	campaign.Status = models.CampaignStatusRunning
	campaign.StartedAt = time.Now()
	if err := s.campaignRepo.Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to mark campaign running: %w", err)
	}

	messages := make([]*models.Message, 0, len(campaign.Recipients))
	requests := make([]smsgateway.SendRequest, 0, len(campaign.Recipients))
	for _, to := range campaign.Recipients {
		message := &models.Message{
			UserID:      campaign.UserID,
			To:          to,
			From:        campaign.From,
			Content:     campaign.Content,
			MessageType: models.MessageTypeCampaign,
			CampaignID:  campaign.ID,
			Status:      models.MessageStatusPending,
		}
		if err := s.messageRepo.Create(ctx, message); err != nil {
			slog.Error("failed to create campaign message record",
				"campaignId", campaign.ID.Hex(), "to", to, "error", err)
			campaign.Failed++
			continue
		}
		messages = append(messages, message)
		requests = append(requests, smsgateway.SendRequest{
			To:        to,
			Content:   campaign.Content,
			From:      campaign.From,
			MessageID: campaign.ID.Hex() + ":" + message.ID.Hex(),
		})
	}

	results, err := s.gateway.BulkSend(ctx, requests, campaign.Profile)
	if err != nil {
		campaign.Status = models.CampaignStatusDraft
		if updateErr := s.campaignRepo.Update(ctx, campaign); updateErr != nil {
			slog.Error("failed to revert campaign status", "campaignId", campaign.ID.Hex(), "error", updateErr)
		}
		return nil, fmt.Errorf("bulk send failed: %w", err)
	}

	for i, result := range results {
		if result == nil {
			continue
		}
		message := messages[i]
		applyResult(message, result)
		if err := s.messageRepo.Update(ctx, message); err != nil {
			slog.Error("failed to persist campaign message outcome",
				"messageId", message.ID.Hex(), "error", err)
		}
		if result.Success {
			campaign.TotalSent++
			campaign.TotalCost += result.Cost
		} else {
			campaign.Failed++
		}
	}

	campaign.Status = models.CampaignStatusCompleted
	campaign.CompletedAt = time.Now()
	if err := s.campaignRepo.Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to mark campaign completed: %w", err)
	}
	slog.Info("campaign completed",
		"campaignId", campaign.ID.Hex(),
		"sent", campaign.TotalSent,
		"failed", campaign.Failed,
		"totalCost", campaign.TotalCost)

	if _, err := s.billing.ProcessCampaignBilling(ctx, campaign.ID); err != nil {
		slog.Error("campaign billing failed", "campaignId", campaign.ID.Hex(), "error", err)
	}
	return campaign, nil
}

// CancelCampaign aborts a campaign and tears down any delivery report
// tracking still pending for its messages.
func (s *CampaignService) CancelCampaign(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	if campaign.Status == models.CampaignStatusCompleted {
		return nil, fmt.Errorf("campaign %s is already completed", id.Hex())
	}

	campaign.Status = models.CampaignStatusCancelled
	if err := s.campaignRepo.Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to cancel campaign: %w", err)
	}

	cleared := s.gateway.ClearDeliveryReportTracking(id.Hex())
	slog.Info("campaign cancelled", "campaignId", id.Hex(), "clearedTracking", cleared)
	return campaign, nil
}
