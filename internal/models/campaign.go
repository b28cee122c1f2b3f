package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Campaign statuses.
const (
	CampaignStatusDraft     = "DRAFT"
	CampaignStatusScheduled = "SCHEDULED"
	CampaignStatusRunning   = "RUNNING"
	CampaignStatusCompleted = "COMPLETED"
	CampaignStatusCancelled = "CANCELLED"
)

// Campaign represents a bulk SMS campaign
type Campaign struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Content     string             `bson:"content" json:"content"`
	From        string             `bson:"from,omitempty" json:"from,omitempty"`
	Recipients  []string           `bson:"recipients" json:"recipients"`
	Profile     string             `bson:"profile" json:"profile"`
	Status      string             `bson:"status" json:"status"` // DRAFT, SCHEDULED, RUNNING, COMPLETED, CANCELLED
	ScheduledAt time.Time          `bson:"scheduledAt,omitempty" json:"scheduledAt,omitempty"`
	StartedAt   time.Time          `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	TotalSent   int                `bson:"totalSent" json:"totalSent"`
	Delivered   int                `bson:"delivered" json:"delivered"`
	Failed      int                `bson:"failed" json:"failed"`
	TotalCost   float64            `bson:"totalCost" json:"totalCost"`
	CreatedBy   string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
