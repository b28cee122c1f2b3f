package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sipharbor/sms-platform/internal/models"
	"github.com/sipharbor/sms-platform/internal/repositories"
)

// BillingRecordRepository implements the repositories.BillingRecordRepository interface
type BillingRecordRepository struct {
	collection *mongo.Collection
}

// NewBillingRecordRepository creates a new BillingRecordRepository
func NewBillingRecordRepository(db *mongo.Database) repositories.BillingRecordRepository {
	return &BillingRecordRepository{
		collection: db.Collection("billing_records"),
	}
}

// Create creates a new billing record
func (r *BillingRecordRepository) Create(ctx context.Context, record *models.BillingRecord) error {
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()
	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		record.ID = oid
	}
	return nil
}

// FindByID finds a billing record by ID
func (r *BillingRecordRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.BillingRecord, error) {
	var record models.BillingRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByUserID finds billing records by user ID with pagination
func (r *BillingRecordRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.BillingRecord, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*models.BillingRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FindLastSettled returns the most recent PAID or CANCELLED record of the
// given billing type, or nil if the user has none
func (r *BillingRecordRepository) FindLastSettled(ctx context.Context, userID primitive.ObjectID, billingType string) (*models.BillingRecord, error) {
	filter := bson.M{
		"userId":      userID,
		"billingType": billingType,
		"status":      bson.M{"$in": []string{models.BillingStatusPaid, models.BillingStatusCancelled}},
	}
	opts := options.FindOne().SetSort(bson.M{"billingPeriodEnd": -1})

	var record models.BillingRecord
	err := r.collection.FindOne(ctx, filter, opts).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// HasPending reports whether the user has any PENDING billing record
func (r *BillingRecordRepository) HasPending(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"userId": userID,
		"status": models.BillingStatusPending,
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsForCampaign reports whether a billing record already exists for
// the campaign
func (r *BillingRecordRepository) ExistsForCampaign(ctx context.Context, campaignID primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"campaignId": campaignID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateStatus updates a billing record's status
func (r *BillingRecordRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}})
	return err
}
