package mongodb

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sipharbor/sms-platform/internal/models"
	"github.com/sipharbor/sms-platform/internal/repositories"
	"github.com/sipharbor/sms-platform/pkg/smsgateway"
)

// MessageRepository implements the repositories.MessageRepository interface
type MessageRepository struct {
	collection *mongo.Collection
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *mongo.Database) repositories.MessageRepository {
	return &MessageRepository{
		collection: db.Collection("messages"),
	}
}

// Create creates a new message
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	message.CreatedAt = time.Now()
	message.UpdatedAt = time.Now()
	result, err := r.collection.InsertOne(ctx, message)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		message.ID = oid
	}
	return nil
}

// FindByID finds a message by ID
func (r *MessageRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var message models.Message
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&message)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// FindByUserID finds messages by user ID with pagination
func (r *MessageRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.Message, error) {
	return r.find(ctx, bson.M{"userId": userID}, page, limit)
}

// FindByCampaignID finds messages by campaign ID with pagination
func (r *MessageRepository) FindByCampaignID(ctx context.Context, campaignID primitive.ObjectID, page, limit int) ([]*models.Message, error) {
	return r.find(ctx, bson.M{"campaignId": campaignID}, page, limit)
}

func (r *MessageRepository) find(ctx context.Context, filter bson.M, page, limit int) ([]*models.Message, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Update updates a message
func (r *MessageRepository) Update(ctx context.Context, message *models.Message) error {
	message.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": message.ID}, message)
	return err
}

// ApplyDeliveryReport writes a delivery report's outcome to the message it
// tracks. Campaign sends are tracked as "<campaignId>:<messageId>", so the
// document id is the last segment of the tracked key.
func (r *MessageRepository) ApplyDeliveryReport(ctx context.Context, report *smsgateway.DeliveryReport) error {
	parts := strings.Split(report.MessageID, ":")
	id, err := primitive.ObjectIDFromHex(parts[len(parts)-1])
	if err != nil {
		return err
	}

	set := bson.M{
		"updatedAt": time.Now(),
	}
	if report.Status == smsgateway.StatusDelivered {
		set["status"] = models.MessageStatusDelivered
		set["deliveredAt"] = report.Timestamp
	} else {
		set["status"] = models.MessageStatusUndelivered
		set["failedAt"] = report.Timestamp
		set["errorMessage"] = report.ErrorMessage
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// UsageSince aggregates billable usage of the given message type created
// after since
func (r *MessageRepository) UsageSince(ctx context.Context, userID primitive.ObjectID, since time.Time, messageType string) (*models.UsageTotals, error) {
	match := bson.M{
		"userId":      userID,
		"messageType": messageType,
		"status":      bson.M{"$in": []string{models.MessageStatusSent, models.MessageStatusDelivered}},
		"createdAt":   bson.M{"$gt": since},
	}
	return r.aggregateTotals(ctx, match)
}

// CampaignTotals aggregates billable usage belonging to a campaign
func (r *MessageRepository) CampaignTotals(ctx context.Context, campaignID primitive.ObjectID) (*models.UsageTotals, error) {
	match := bson.M{
		"campaignId": campaignID,
		"status":     bson.M{"$in": []string{models.MessageStatusSent, models.MessageStatusDelivered}},
	}
	return r.aggregateTotals(ctx, match)
}

func (r *MessageRepository) aggregateTotals(ctx context.Context, match bson.M) (*models.UsageTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"totalCost":     bson.M{"$sum": "$cost"},
			"totalMessages": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []models.UsageTotals
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &models.UsageTotals{}, nil
	}
	return &results[0], nil
}

// Count counts all messages
func (r *MessageRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
