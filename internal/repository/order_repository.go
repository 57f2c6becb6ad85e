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

const ordersCollection = "orders"

// OrderRepository reads orders and applies guarded status transitions
type OrderRepository struct {
	client *mongodb.MongoClient
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(client *mongodb.MongoClient) *OrderRepository {
	return &OrderRepository{client: client}
}

// FindOrders finds orders by status, kind, payment state and time range
func (r *OrderRepository) FindOrders(ctx context.Context, q domain.OrderQuery) ([]*domain.Order, error) {
	filter := rangeFilter(q.RangeQuery)
	if q.Kind != "" {
		filter["kind"] = q.Kind
	}
	if q.PaymentStatus != "" {
		filter["paymentStatus"] = q.PaymentStatus
	}
	if q.UnconfirmedOnly {
		filter["deliveryConfirmed"] = bson.M{"$ne": true}
	}

	cursor, err := r.client.Collection(ordersCollection).Find(ctx, filter, rangeFindOptions(q.RangeQuery))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// FindLatestDeliveredSupplies returns, per customer, the most recent
// delivered supplies order when that order was delivered before cutoff
func (r *OrderRepository) FindLatestDeliveredSupplies(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Order, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"kind":   domain.OrderKindSupplies,
			"status": domain.OrderDelivered,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "customerId", Value: 1}, {Key: "deliveredAt", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$customerId",
			"latest": bson.M{"$first": "$$ROOT"},
		}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$latest"}}},
		{{Key: "$match", Value: bson.M{"deliveredAt": bson.M{"$lt": cutoff}}}},
		{{Key: "$sort", Value: bson.D{{Key: "deliveredAt", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := r.client.Collection(ordersCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// TransitionStatus moves an order from one status to another only if it is
// still in the from status. It reports whether this call made the change.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to domain.OrderStatus, at time.Time) (bool, error) {
	set := bson.M{"status": to, "updatedAt": at}
	if to == domain.OrderDelivered {
		set["deliveredAt"] = at
	}

	res, err := r.client.Collection(ordersCollection).UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
