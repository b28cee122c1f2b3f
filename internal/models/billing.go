package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Billing record statuses.
const (
	BillingStatusPending   = "PENDING"
	BillingStatusPaid      = "PAID"
	BillingStatusCancelled = "CANCELLED"
)

// Billing types, one per accounting stream.
const (
	BillingTypeSingle   = "SINGLE"
	BillingTypeCampaign = "CAMPAIGN"
)

// Billing trigger types.
const (
	BillingTriggerDaily     = "DAILY"
	BillingTriggerWeekly    = "WEEKLY"
	BillingTriggerMonthly   = "MONTHLY"
	BillingTriggerThreshold = "THRESHOLD"
	BillingTriggerCampaign  = "CAMPAIGN_COMPLETED"
)

// BillingRecord is an immutable record of usage billed for one period of
// one accounting stream. At most one record exists per campaign.
type BillingRecord struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID             primitive.ObjectID `bson:"userId" json:"userId"`
	BillingPeriodStart time.Time          `bson:"billingPeriodStart" json:"billingPeriodStart"`
	BillingPeriodEnd   time.Time          `bson:"billingPeriodEnd" json:"billingPeriodEnd"`
	TotalMessages      int                `bson:"totalMessages" json:"totalMessages"`
	TotalCost          float64            `bson:"totalCost" json:"totalCost"`
	BillingType        string             `bson:"billingType" json:"billingType"` // SINGLE, CAMPAIGN
	TriggerType        string             `bson:"triggerType" json:"triggerType"`
	Status             string             `bson:"status" json:"status"` // PENDING, PAID, CANCELLED
	CampaignID         primitive.ObjectID `bson:"campaignId,omitempty" json:"campaignId,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Billing frequency modes.
const (
	BillingFrequencyDaily     = "DAILY"
	BillingFrequencyWeekly    = "WEEKLY"
	BillingFrequencyMonthly   = "MONTHLY"
	BillingFrequencyThreshold = "THRESHOLD"
)

// BillingSettings holds a user's billing policy. A document without a
// UserID is the global default applied to users with no settings of their
// own.
type BillingSettings struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID      primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	Frequency   string             `bson:"frequency" json:"frequency"` // DAILY, WEEKLY, MONTHLY, THRESHOLD
	MaxAmount   float64            `bson:"maxAmount" json:"maxAmount"`
	MaxMessages int                `bson:"maxMessages" json:"maxMessages"`
	AutoProcess bool               `bson:"autoProcess" json:"autoProcess"`
	UpdatedBy   string             `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
