package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func orderPayload(o *domain.Order, now time.Time) *domain.OrderPayload {
	return &domain.OrderPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status),
		Total:       o.Total,
		AgeHours:    int(now.Sub(o.CreatedAt) / time.Hour),
	}
}

// SuppliesReorder nudges customers whose latest delivered supplies order
// is older than threshold. It is a heuristic: customers who restock
// elsewhere are nudged too.
type SuppliesReorder struct {
	base
	orders OrderStore
}

func NewSuppliesReorder(cfg Config, deps Deps, orders OrderStore) *SuppliesReorder {
	return &SuppliesReorder{base: newBase(NameSuppliesReorder, cfg, deps), orders: orders}
}

func (d *SuppliesReorder) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *SuppliesReorder) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()
	orders, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Order, error) {
		return d.orders.FindLatestDeliveredSupplies(ctx, now.Add(-d.cfg.Threshold), d.cfg.ResultLimit)
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(orders)

	for _, o := range orders {
		d.emit(ctx, stats, Candidate{
			UserID:  o.CustomerID,
			Type:    domain.TypeSuppliesReorder,
			Title:   "Time to restock?",
			Message: fmt.Sprintf("Your last supplies order %s was a while ago. Reorder in one tap.", o.OrderNumber),
			Payload: orderPayload(o, now),
			Match:   map[string]any{"orderId": o.ID},
		})
	}
	return nil
}

// OrderAbandonedPayment reminds customers of orders still waiting for
// payment between min_age and max_age after they were placed
type OrderAbandonedPayment struct {
	base
	orders OrderStore
}

func NewOrderAbandonedPayment(cfg Config, deps Deps, orders OrderStore) *OrderAbandonedPayment {
	return &OrderAbandonedPayment{base: newBase(NameOrderAbandonedPayment, cfg, deps), orders: orders}
}

func (d *OrderAbandonedPayment) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *OrderAbandonedPayment) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()
	orders, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Order, error) {
		return d.orders.FindOrders(ctx, domain.OrderQuery{RangeQuery: domain.RangeQuery{
			Statuses: []string{string(domain.OrderPendingPayment)},
			Field:    "createdAt",
			From:     now.Add(-d.cfg.MaxAge),
			To:       now.Add(-d.cfg.MinAge),
			Limit:    d.cfg.ResultLimit,
		}})
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(orders)

	for _, o := range orders {
		d.emit(ctx, stats, Candidate{
			UserID:  o.CustomerID,
			Type:    domain.TypeOrderAbandonedPayment,
			Title:   "Complete your order",
			Message: fmt.Sprintf("Order %s is waiting for payment.", o.OrderNumber),
			Payload: orderPayload(o, now),
			Match:   map[string]any{"orderId": o.ID},
		})
	}
	return nil
}

// OrderLateDelivery is the order SLA detector: orders processing longer
// than threshold or shipped longer than secondary_threshold ago
type OrderLateDelivery struct {
	base
	orders OrderStore
}

func NewOrderLateDelivery(cfg Config, deps Deps, orders OrderStore) *OrderLateDelivery {
	return &OrderLateDelivery{base: newBase(NameOrderLateDelivery, cfg, deps), orders: orders}
}

func (d *OrderLateDelivery) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *OrderLateDelivery) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()
	queries := []domain.RangeQuery{
		{Statuses: []string{string(domain.OrderProcessing)}, Field: "createdAt", To: now.Add(-d.cfg.Threshold), Limit: d.cfg.ResultLimit},
		{Statuses: []string{string(domain.OrderShipped)}, Field: "shippedAt", To: now.Add(-d.cfg.SecondaryThreshold), Limit: d.cfg.ResultLimit},
	}

	var late []*domain.Order
	for _, q := range queries {
		orders, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Order, error) {
			return d.orders.FindOrders(ctx, domain.OrderQuery{RangeQuery: q})
		})
		if err != nil {
			return err
		}
		late = append(late, orders...)
	}
	stats.Scanned = len(late)
	if len(late) == 0 {
		return nil
	}

	var admins []primitive.ObjectID
	if d.cfg.NotifyAdmins {
		ids, err := d.adminIDs(ctx)
		if err != nil {
			return err
		}
		admins = ids
	}

	for _, o := range late {
		match := map[string]any{"orderId": o.ID, "status": string(o.Status)}
		d.emit(ctx, stats, Candidate{
			UserID:  o.CustomerID,
			Type:    domain.TypeOrderLateDelivery,
			Title:   "Your order is delayed",
			Message: fmt.Sprintf("Order %s is taking longer than expected. We are looking into it.", o.OrderNumber),
			Payload: orderPayload(o, now),
			Match:   match,
		})
		if len(admins) > 0 {
			d.emitTo(ctx, stats, admins, Candidate{
				Type:    domain.TypeOrderSLABreach,
				Title:   "Order SLA breached",
				Message: fmt.Sprintf("Order %s has been %s for too long.", o.OrderNumber, o.Status),
				Payload: orderPayload(o, now),
				Match:   match,
			})
		}
	}
	return nil
}
