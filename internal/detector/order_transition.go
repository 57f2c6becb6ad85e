package detector

import (
	"context"
	"fmt"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
)

// OrderAutoDeliver is a state-transition detector: a paid order shipped
// more than threshold ago whose delivery was never confirmed is marked
// delivered. The write is guarded on the shipped status.
type OrderAutoDeliver struct {
	base
	orders OrderStore
}

func NewOrderAutoDeliver(cfg Config, deps Deps, orders OrderStore) *OrderAutoDeliver {
	return &OrderAutoDeliver{base: newBase(NameOrderAutoDeliver, cfg, deps), orders: orders}
}

func (d *OrderAutoDeliver) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *OrderAutoDeliver) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()
	orders, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Order, error) {
		return d.orders.FindOrders(ctx, domain.OrderQuery{
			RangeQuery: domain.RangeQuery{
				Statuses: []string{string(domain.OrderShipped)},
				Field:    "shippedAt",
				To:       now.Add(-d.cfg.Threshold),
				Limit:    d.cfg.ResultLimit,
			},
			PaymentStatus:   domain.PaymentPaid,
			UnconfirmedOnly: true,
		})
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(orders)

	for _, o := range orders {
		d.guard(stats, o.ID.Hex(), func() {
			changed, err := d.orders.TransitionStatus(ctx, o.ID, domain.OrderShipped, domain.OrderDelivered, now)
			if err != nil {
				stats.Failed++
				d.log.Error("Order transition failed", "order_id", o.ID.Hex(), "error", errors.NewStateTransitionError("order", err))
				return
			}
			if !changed {
				stats.Skipped++
				d.log.Debug("Order already left shipped", "order_id", o.ID.Hex())
				return
			}
			d.transitioned(stats, string(domain.OrderDelivered))

			payload := orderPayload(o, now)
			payload.Status = string(domain.OrderDelivered)
			d.emit(ctx, stats, Candidate{
				UserID:  o.CustomerID,
				Type:    domain.TypeOrderAutoDelivered,
				Title:   "Order marked as delivered",
				Message: fmt.Sprintf("Order %s was marked as delivered. Contact support if it has not arrived.", o.OrderNumber),
				Payload: payload,
				Match:   map[string]any{"orderId": o.ID},
			})
		})
	}
	return nil
}
