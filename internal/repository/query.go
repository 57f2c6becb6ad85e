package repository

import (
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultRangeField = "createdAt"

// rangeFilter translates a RangeQuery into a filter on status and one time field
func rangeFilter(q domain.RangeQuery) bson.M {
	filter := bson.M{}
	if len(q.Statuses) == 1 {
		filter["status"] = q.Statuses[0]
	} else if len(q.Statuses) > 1 {
		filter["status"] = bson.M{"$in": q.Statuses}
	}

	field := q.Field
	if field == "" {
		field = defaultRangeField
	}
	bounds := bson.M{}
	if !q.From.IsZero() {
		bounds["$gte"] = q.From
	}
	if !q.To.IsZero() {
		bounds["$lt"] = q.To
	}
	if len(bounds) > 0 {
		filter[field] = bounds
	}
	return filter
}

// rangeFindOptions sorts ascending on the range field and applies the limit
func rangeFindOptions(q domain.RangeQuery) *options.FindOptions {
	field := q.Field
	if field == "" {
		field = defaultRangeField
	}
	opts := options.Find().SetSort(bson.D{{Key: field, Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	return opts
}

func pageBounds(page, pageSize int) (skip, limit int64) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return int64((page - 1) * pageSize), int64(pageSize)
}
