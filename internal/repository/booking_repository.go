package repository

import (
	"context"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	bookingsCollection = "bookings"
	reviewsCollection  = "reviews"
)

// BookingRepository reads bookings and applies guarded status transitions
type BookingRepository struct {
	client *mongodb.MongoClient
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(client *mongodb.MongoClient) *BookingRepository {
	return &BookingRepository{client: client}
}

// FindBookings finds bookings by status and time range
func (r *BookingRepository) FindBookings(ctx context.Context, q domain.RangeQuery) ([]*domain.Booking, error) {
	cursor, err := r.client.Collection(bookingsCollection).Find(ctx, rangeFilter(q), rangeFindOptions(q))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bookings []*domain.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// FindCompletedWithoutReview finds bookings in range that have no review yet
func (r *BookingRepository) FindCompletedWithoutReview(ctx context.Context, q domain.RangeQuery) ([]*domain.Booking, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: rangeFilter(q)}},
		{{Key: "$lookup", Value: bson.M{
			"from":         reviewsCollection,
			"localField":   "_id",
			"foreignField": "bookingId",
			"as":           "reviews",
		}}},
		{{Key: "$match", Value: bson.M{"reviews": bson.M{"$size": 0}}}},
		{{Key: "$project", Value: bson.M{"reviews": 0}}},
	}
	if q.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: q.Limit}})
	}

	cursor, err := r.client.Collection(bookingsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bookings []*domain.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// FindPendingBookings finds pending bookings created before the cutoff with
// the given auto confirmation flag, oldest first
func (r *BookingRepository) FindPendingBookings(ctx context.Context, autoConfirm bool, createdBefore time.Time, limit int) ([]*domain.Booking, error) {
	q := domain.RangeQuery{
		Statuses: []string{string(domain.BookingPending)},
		Field:    "createdAt",
		To:       createdBefore,
		Limit:    limit,
	}
	filter := rangeFilter(q)
	if autoConfirm {
		filter["autoConfirm"] = true
	} else {
		// older documents have no autoConfirm field at all
		filter["autoConfirm"] = bson.M{"$ne": true}
	}

	cursor, err := r.client.Collection(bookingsCollection).Find(ctx, filter, rangeFindOptions(q))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bookings []*domain.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// TransitionStatus moves a booking from one status to another only if it is
// still in the from status. It reports whether this call made the change.
func (r *BookingRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to domain.BookingStatus, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": at}}

	res, err := r.client.Collection(bookingsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
