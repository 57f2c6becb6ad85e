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

const notificationsCollection = "notifications"

// NotificationRepository handles notification data operations
type NotificationRepository struct {
	client *mongodb.MongoClient
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(client *mongodb.MongoClient) *NotificationRepository {
	return &NotificationRepository{client: client}
}

// EnsureIndexes creates the indexes used by inbox listing and dedup lookups
func (r *NotificationRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("user_created_idx"),
		},
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "type", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("user_type_created_idx"),
		},
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "isRead", Value: 1},
			},
			Options: options.Index().SetName("user_unread_idx"),
		},
	}

	return r.client.CreateIndexes(ctx, notificationsCollection, indexes)
}

// Create creates a new notification
func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	_, err := r.client.Collection(notificationsCollection).InsertOne(ctx, notification)
	return err
}

// dedupFilter matches prior notifications of the same logical event
func dedupFilter(q domain.DedupQuery) bson.M {
	filter := bson.M{
		"userId": q.UserID,
		"type":   q.Type,
	}
	for k, v := range q.Match {
		filter["data."+k] = v
	}
	if !q.Since.IsZero() {
		filter["createdAt"] = bson.M{"$gte": q.Since}
	}
	return filter
}

// ExistsSince reports whether a notification matching q was created at or
// after q.Since
func (r *NotificationRepository) ExistsSince(ctx context.Context, q domain.DedupQuery) (bool, error) {
	opts := options.Count().SetLimit(1)
	n, err := r.client.Collection(notificationsCollection).CountDocuments(ctx, dedupFilter(q), opts)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindByID finds one of the user's notifications
func (r *NotificationRepository) FindByID(ctx context.Context, userID, id primitive.ObjectID) (*domain.Notification, error) {
	var notification domain.Notification
	filter := bson.M{"_id": id, "userId": userID}
	err := r.client.Collection(notificationsCollection).FindOne(ctx, filter).Decode(&notification)
	if err == mongo.ErrNoDocuments {
		return nil, errors.NewNotFoundError("notification not found", err)
	}
	if err != nil {
		return nil, err
	}

	return &notification, nil
}

// List finds a user's notifications, newest first, with pagination
func (r *NotificationRepository) List(ctx context.Context, f domain.InboxFilter) ([]*domain.Notification, int64, error) {
	filter := bson.M{"userId": f.UserID}
	if f.UnreadOnly {
		filter["isRead"] = false
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}

	total, err := r.client.Collection(notificationsCollection).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip, limit := pageBounds(f.Page, f.PageSize)
	opts := options.Find().
		SetSkip(skip).
		SetLimit(limit).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.client.Collection(notificationsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	notifications := []*domain.Notification{}
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkRead marks one notification read. Marking an already read
// notification is a no-op.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id primitive.ObjectID, at time.Time) error {
	filter := bson.M{"_id": id, "userId": userID, "isRead": false}
	update := bson.M{"$set": bson.M{"isRead": true, "readAt": at}}

	res, err := r.client.Collection(notificationsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		_, err = r.FindByID(ctx, userID, id)
		return err
	}
	return nil
}

// MarkAllRead marks every unread notification of the user read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID, at time.Time) (int64, error) {
	filter := bson.M{"userId": userID, "isRead": false}
	update := bson.M{"$set": bson.M{"isRead": true, "readAt": at}}

	res, err := r.client.Collection(notificationsCollection).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UnreadCount counts the user's unread notifications
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.client.Collection(notificationsCollection).CountDocuments(ctx, bson.M{"userId": userID, "isRead": false})
}
