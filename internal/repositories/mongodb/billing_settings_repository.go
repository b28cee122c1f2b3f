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

// BillingSettingsRepository implements the repositories.BillingSettingsRepository interface
type BillingSettingsRepository struct {
	collection *mongo.Collection
}

// NewBillingSettingsRepository creates a new BillingSettingsRepository
func NewBillingSettingsRepository(db *mongo.Database) repositories.BillingSettingsRepository {
	return &BillingSettingsRepository{
		collection: db.Collection("billing_settings"),
	}
}

// FindByUserID returns the user's billing settings, or nil if the user
// has none
func (r *BillingSettingsRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID) (*models.BillingSettings, error) {
	var settings models.BillingSettings
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// FindGlobal returns the global default settings document, or nil if none
// has been configured
func (r *BillingSettingsRepository) FindGlobal(ctx context.Context) (*models.BillingSettings, error) {
	filter := bson.M{"$or": []bson.M{
		{"userId": bson.M{"$exists": false}},
		{"userId": primitive.NilObjectID},
	}}

	var settings models.BillingSettings
	err := r.collection.FindOne(ctx, filter).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert creates or replaces the settings document for its user scope
func (r *BillingSettingsRepository) Upsert(ctx context.Context, settings *models.BillingSettings) error {
	settings.UpdatedAt = time.Now()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = settings.UpdatedAt
	}

	filter := bson.M{"userId": settings.UserID}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, filter, settings, opts)
	return err
}
