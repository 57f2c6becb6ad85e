package repository

import (
	"context"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const failedChannelSendsCollection = "failed_channel_sends"

// FailedSendRepository handles failed channel send data operations
type FailedSendRepository struct {
	client *mongodb.MongoClient
}

// NewFailedSendRepository creates a new failed channel send repository
func NewFailedSendRepository(client *mongodb.MongoClient) *FailedSendRepository {
	return &FailedSendRepository{client: client}
}

// EnsureIndexes creates necessary indexes for optimal query performance
func (r *FailedSendRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "failedAt", Value: -1},
			},
			Options: options.Index().SetName("user_failed_at_idx"),
		},
		{
			Keys: bson.D{
				{Key: "failedAt", Value: -1},
			},
			Options: options.Index().SetName("failed_at_idx"),
		},
	}

	return r.client.CreateIndexes(ctx, failedChannelSendsCollection, indexes)
}

// Create creates a new failed channel send record
func (r *FailedSendRepository) Create(ctx context.Context, failed *domain.FailedChannelSend) error {
	failed.ID = primitive.NewObjectID()
	if failed.FailedAt.IsZero() {
		failed.FailedAt = time.Now().UTC()
	}

	_, err := r.client.Collection(failedChannelSendsCollection).InsertOne(ctx, failed)
	return err
}

// FindByID finds a failed channel send by ID
func (r *FailedSendRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.FailedChannelSend, error) {
	var failed domain.FailedChannelSend
	err := r.client.Collection(failedChannelSendsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&failed)
	if err == mongo.ErrNoDocuments {
		return nil, errors.NewNotFoundError("failed send not found", err)
	}
	if err != nil {
		return nil, err
	}

	return &failed, nil
}

// FindAll retrieves failed channel sends with pagination using one aggregation
func (r *FailedSendRepository) FindAll(ctx context.Context, page, pageSize int) ([]*domain.FailedChannelSend, int64, error) {
	skip, limit := pageBounds(page, pageSize)

	// count and page in one round trip
	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"metadata": bson.A{bson.M{"$count": "total"}},
			"data": bson.A{
				bson.M{"$sort": bson.M{"failedAt": -1}},
				bson.M{"$skip": skip},
				bson.M{"$limit": limit},
			},
		}}},
	}

	cursor, err := r.client.Collection(failedChannelSendsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	type Result struct {
		Metadata []struct {
			Total int64 `bson:"total"`
		} `bson:"metadata"`
		Data []*domain.FailedChannelSend `bson:"data"`
	}

	var results []Result
	if err = cursor.All(ctx, &results); err != nil {
		return nil, 0, err
	}

	if len(results) == 0 || len(results[0].Data) == 0 {
		return []*domain.FailedChannelSend{}, 0, nil
	}

	total := int64(0)
	if len(results[0].Metadata) > 0 {
		total = results[0].Metadata[0].Total
	}

	return results[0].Data, total, nil
}

// RecordRetry stores the outcome of a failed retry
func (r *FailedSendRepository) RecordRetry(ctx context.Context, id primitive.ObjectID, errMsg string, at time.Time) error {
	update := bson.M{
		"$inc": bson.M{"retryCount": 1},
		"$set": bson.M{"error": errMsg, "lastRetryAt": at},
	}
	_, err := r.client.Collection(failedChannelSendsCollection).UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// Count returns the number of failed channel sends
func (r *FailedSendRepository) Count(ctx context.Context) (int64, error) {
	return r.client.Collection(failedChannelSendsCollection).EstimatedDocumentCount(ctx)
}

// Delete deletes a failed channel send by ID
func (r *FailedSendRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.client.Collection(failedChannelSendsCollection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}
