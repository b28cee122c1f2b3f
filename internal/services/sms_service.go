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

// SmsGateway is the slice of the simulation provider the services need.
type SmsGateway interface {
	SendSMS(ctx context.Context, req smsgateway.SendRequest) (*smsgateway.SendResult, error)
	BulkSend(ctx context.Context, messages []smsgateway.SendRequest, profile string) ([]*smsgateway.SendResult, error)
	ClearDeliveryReportTracking(scope string) int
}

// SmsService orchestrates single sends: billing pre-check, persistence,
// gateway simulation and post-send billing.
type SmsService struct {
	messageRepo    repositories.MessageRepository
	gateway        SmsGateway
	billing        *BillingService
	defaultProfile string
}

// NewSmsService creates a new SmsService
func NewSmsService(messageRepo repositories.MessageRepository, gateway SmsGateway, billing *BillingService, defaultProfile string) *SmsService {
	return &SmsService{
		messageRepo:    messageRepo,
		gateway:        gateway,
		billing:        billing,
		defaultProfile: defaultProfile,
	}
}

// SendSingleInput describes one single-message send.
type SendSingleInput struct {
	UserID  primitive.ObjectID
	To      string
	From    string
	Content string
	Profile string
}

// SendSingle sends one message through the gateway. The billing check can
// block the send (credit-hold policy); billing errors never can. The
// message document's id doubles as the gateway's duplicate-prevention key.
func (s *SmsService) SendSingle(ctx context.Context, in SendSingleInput) (*models.Message, *smsgateway.SendResult, error) {
	profile := in.Profile
	if profile == "" {
		profile = s.defaultProfile
	}

	estimated := smsgateway.CalculateCost(in.Content, in.To)
	decision, err := s.billing.CheckBillingBeforeSend(ctx, BillingContext{
		UserID:       in.UserID,
		MessageType:  models.MessageTypeSingle,
		TotalCost:    estimated,
		MessageCount: 1,
	})
	if err != nil {
		slog.Error("billing pre-check failed, proceeding with send", "userId", in.UserID.Hex(), "error", err)
	} else if decision.ShouldBlock {
		return nil, nil, fmt.Errorf("send blocked by billing policy: %s", decision.Reason)
	}

	message := &models.Message{
		UserID:      in.UserID,
		To:          in.To,
		From:        in.From,
		Content:     in.Content,
		MessageType: models.MessageTypeSingle,
		Status:      models.MessageStatusPending,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, nil, fmt.Errorf("failed to create message record: %w", err)
	}

	result, err := s.gateway.SendSMS(ctx, smsgateway.SendRequest{
		To:        in.To,
		Content:   in.Content,
		From:      in.From,
		Profile:   profile,
		MessageID: message.ID.Hex(),
	})
	if err != nil {
		message.Status = models.MessageStatusFailed
		message.ErrorMessage = err.Error()
		if updateErr := s.messageRepo.Update(ctx, message); updateErr != nil {
			slog.Error("failed to persist message failure", "messageId", message.ID.Hex(), "error", updateErr)
		}
		return message, nil, err
	}

	applyResult(message, result)
	if err := s.messageRepo.Update(ctx, message); err != nil {
		slog.Error("failed to persist send outcome", "messageId", message.ID.Hex(), "error", err)
	}

	if result.Success {
		s.billing.ProcessBillingAfterSend(ctx, BillingContext{
			UserID:       in.UserID,
			MessageType:  models.MessageTypeSingle,
			TotalCost:    result.Cost,
			MessageCount: 1,
		})
	}
	return message, result, nil
}

// GetMessageByID retrieves a message by ID
func (s *SmsService) GetMessageByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	return s.messageRepo.FindByID(ctx, id)
}

// GetMessagesByUserID retrieves a user's messages with pagination
func (s *SmsService) GetMessagesByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.Message, error) {
	return s.messageRepo.FindByUserID(ctx, userID, page, limit)
}

// ApplyDeliveryReport records a delivery report against its message.
func (s *SmsService) ApplyDeliveryReport(ctx context.Context, report *smsgateway.DeliveryReport) error {
	return s.messageRepo.ApplyDeliveryReport(ctx, report)
}

// applyResult maps a gateway result onto the message document.
func applyResult(message *models.Message, result *smsgateway.SendResult) {
	message.Cost = result.Cost
	message.Retryable = result.Retryable
	if providerID, ok := result.ProviderResponse["providerId"].(string); ok {
		message.ProviderID = providerID
	}
	if result.Success {
		message.Status = models.MessageStatusSent
		message.GatewayMessageID = result.MessageID
		message.SentAt = time.Now()
	} else {
		message.Status = models.MessageStatusFailed
		message.ErrorMessage = result.Error
		message.FailedAt = time.Now()
	}
}
