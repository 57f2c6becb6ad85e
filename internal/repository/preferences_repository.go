package repository

import (
	"context"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const preferencesCollection = "notification_preferences"

// PreferencesRepository handles notification preferences data operations
type PreferencesRepository struct {
	client *mongodb.MongoClient
}

// NewPreferencesRepository creates a new preferences repository
func NewPreferencesRepository(client *mongodb.MongoClient) *PreferencesRepository {
	return &PreferencesRepository{client: client}
}

// EnsureIndexes creates the unique user index
func (r *PreferencesRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("user_idx").SetUnique(true),
		},
	}
	return r.client.CreateIndexes(ctx, preferencesCollection, indexes)
}

// GetByUserID retrieves the stored preferences of a user. It returns nil
// without error when the user never saved any.
func (r *PreferencesRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.NotificationPreferences, error) {
	var prefs domain.NotificationPreferences
	err := r.client.Collection(preferencesCollection).FindOne(ctx, bson.M{"userId": userID}).Decode(&prefs)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// Upsert creates or replaces the user's preferences
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs *domain.NotificationPreferences) error {
	prefs.UpdatedAt = time.Now().UTC()
	filter := bson.M{"userId": prefs.UserID}
	update := bson.M{"$set": bson.M{
		"userId":    prefs.UserID,
		"email":     prefs.Email,
		"sms":       prefs.SMS,
		"push":      prefs.Push,
		"updatedAt": prefs.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)

	_, err := r.client.Collection(preferencesCollection).UpdateOne(ctx, filter, update, opts)
	return err
}
