package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sipharbor/sms-platform/internal/models"
	"github.com/sipharbor/sms-platform/pkg/smsgateway"
)

// MessageRepository defines the interface for message data operations
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.Message, error)
	FindByCampaignID(ctx context.Context, campaignID primitive.ObjectID, page, limit int) ([]*models.Message, error)
	Update(ctx context.Context, message *models.Message) error
	// ApplyDeliveryReport writes a delivery report's outcome to the
	// message record it tracks.
	ApplyDeliveryReport(ctx context.Context, report *smsgateway.DeliveryReport) error
	// UsageSince aggregates cost and count of billable (SENT or
	// DELIVERED) messages of the given type created after since.
	UsageSince(ctx context.Context, userID primitive.ObjectID, since time.Time, messageType string) (*models.UsageTotals, error)
	// CampaignTotals aggregates cost and count of billable messages
	// belonging to a campaign.
	CampaignTotals(ctx context.Context, campaignID primitive.ObjectID) (*models.UsageTotals, error)
	Count(ctx context.Context) (int64, error)
}

// CampaignRepository defines the interface for campaign data operations
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error)
	FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	Count(ctx context.Context) (int64, error)
}

// BillingRecordRepository defines the interface for billing record operations
type BillingRecordRepository interface {
	Create(ctx context.Context, record *models.BillingRecord) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.BillingRecord, error)
	FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.BillingRecord, error)
	// FindLastSettled returns the most recent PAID or CANCELLED record of
	// the given billing type, or nil if none exists.
	FindLastSettled(ctx context.Context, userID primitive.ObjectID, billingType string) (*models.BillingRecord, error)
	HasPending(ctx context.Context, userID primitive.ObjectID) (bool, error)
	ExistsForCampaign(ctx context.Context, campaignID primitive.ObjectID) (bool, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
}

// BillingSettingsRepository defines the interface for billing settings operations
type BillingSettingsRepository interface {
	// FindByUserID returns the user's settings, or nil if the user has
	// none.
	FindByUserID(ctx context.Context, userID primitive.ObjectID) (*models.BillingSettings, error)
	// FindGlobal returns the global default settings document, or nil.
	FindGlobal(ctx context.Context) (*models.BillingSettings, error)
	Upsert(ctx context.Context, settings *models.BillingSettings) error
}
