package repository

import (
	"context"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const detectorRunsCollection = "detector_runs"

// detector runs older than this are expired by a TTL index
const detectorRunRetentionSeconds = int32(30 * 24 * 60 * 60)

// DetectorRunRepository stores the history of detector ticks
type DetectorRunRepository struct {
	client *mongodb.MongoClient
}

// NewDetectorRunRepository creates a new detector run repository
func NewDetectorRunRepository(client *mongodb.MongoClient) *DetectorRunRepository {
	return &DetectorRunRepository{client: client}
}

// EnsureIndexes creates necessary indexes for optimal query performance
func (r *DetectorRunRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "detector", Value: 1},
				{Key: "startedAt", Value: -1},
			},
			Options: options.Index().SetName("detector_started_idx"),
		},
		{
			Keys:    bson.D{{Key: "startedAt", Value: 1}},
			Options: options.Index().SetName("started_ttl_idx").SetExpireAfterSeconds(detectorRunRetentionSeconds),
		},
	}

	return r.client.CreateIndexes(ctx, detectorRunsCollection, indexes)
}

// Create records a finished tick
func (r *DetectorRunRepository) Create(ctx context.Context, run *domain.DetectorRun) error {
	run.ID = primitive.NewObjectID()
	_, err := r.client.Collection(detectorRunsCollection).InsertOne(ctx, run)
	return err
}

// FindRecent returns the latest runs of one detector, newest first
func (r *DetectorRunRepository) FindRecent(ctx context.Context, detector string, limit int) ([]*domain.DetectorRun, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "startedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.client.Collection(detectorRunsCollection).Find(ctx, bson.M{"detector": detector}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	runs := []*domain.DetectorRun{}
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// LastRuns returns the most recent run of every detector keyed by name
func (r *DetectorRunRepository) LastRuns(ctx context.Context) (map[string]*domain.DetectorRun, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "startedAt", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":  "$detector",
			"last": bson.M{"$first": "$$ROOT"},
		}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$last"}}},
	}

	cursor, err := r.client.Collection(detectorRunsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []*domain.DetectorRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}

	out := make(map[string]*domain.DetectorRun, len(runs))
	for _, run := range runs {
		out[run.Detector] = run
	}
	return out, nil
}
