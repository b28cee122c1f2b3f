package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message type discriminates the two billing streams.
const (
	MessageTypeSingle   = "SINGLE"
	MessageTypeCampaign = "CAMPAIGN"
)

// Message statuses.
const (
	MessageStatusPending     = "PENDING"
	MessageStatusSent        = "SENT"
	MessageStatusDelivered   = "DELIVERED"
	MessageStatusUndelivered = "UNDELIVERED"
	MessageStatusFailed      = "FAILED"
)

// Message represents an outbound SMS owned by a platform user
type Message struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID           primitive.ObjectID `bson:"userId" json:"userId"`
	To               string             `bson:"to" json:"to"`
	From             string             `bson:"from,omitempty" json:"from,omitempty"`
	Content          string             `bson:"content" json:"content"`
	MessageType      string             `bson:"messageType" json:"messageType"` // SINGLE, CAMPAIGN
	CampaignID       primitive.ObjectID `bson:"campaignId,omitempty" json:"campaignId,omitempty"`
	Status           string             `bson:"status" json:"status"` // PENDING, SENT, DELIVERED, UNDELIVERED, FAILED
	Cost             float64            `bson:"cost" json:"cost"`
	ProviderID       string             `bson:"providerId,omitempty" json:"providerId,omitempty"`
	GatewayMessageID string             `bson:"gatewayMessageId,omitempty" json:"gatewayMessageId,omitempty"`
	ErrorMessage     string             `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	Retryable        bool               `bson:"retryable,omitempty" json:"retryable,omitempty"`
	SentAt           time.Time          `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	DeliveredAt      time.Time          `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	FailedAt         time.Time          `bson:"failedAt,omitempty" json:"failedAt,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UsageTotals aggregates cost and message count over a billing window.
type UsageTotals struct {
	TotalCost     float64 `bson:"totalCost" json:"totalCost"`
	TotalMessages int     `bson:"totalMessages" json:"totalMessages"`
}
