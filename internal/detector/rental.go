package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const rentalEndField = "rentalPeriod.endDate"

func rentalRecipients(r *domain.Rental, notifyOwner bool) []primitive.ObjectID {
	if notifyOwner && !r.OwnerID.IsZero() && r.OwnerID != r.RenterID {
		return []primitive.ObjectID{r.RenterID, r.OwnerID}
	}
	return []primitive.ObjectID{r.RenterID}
}

// RentalDueSoon reminds renters of active rentals ending in the one-day
// window that starts days_before days from now
type RentalDueSoon struct {
	base
	rentals RentalStore
}

func NewRentalDueSoon(cfg Config, deps Deps, rentals RentalStore) *RentalDueSoon {
	return &RentalDueSoon{base: newBase(NameRentalDueSoon, cfg, deps), rentals: rentals}
}

func (d *RentalDueSoon) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *RentalDueSoon) tick(ctx context.Context, stats *RunStats) error {
	from := d.now().Add(time.Duration(d.cfg.DaysBefore) * day)

	rentals, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Rental, error) {
		return d.rentals.FindRentals(ctx, domain.RangeQuery{
			Statuses: []string{string(domain.RentalActive)},
			Field:    rentalEndField,
			From:     from,
			To:       from.Add(day),
			Limit:    d.cfg.ResultLimit,
		})
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(rentals)

	for _, r := range rentals {
		end := r.RentalPeriod.EndDate
		d.emitTo(ctx, stats, rentalRecipients(r, d.cfg.NotifyOwner), Candidate{
			Type:    domain.TypeRentalDueSoon,
			Title:   "Rental ending soon",
			Message: fmt.Sprintf("The rental of %s ends on %s.", r.ItemName, humanDate(end)),
			Payload: &domain.RentalPayload{
				RentalID: r.ID,
				ItemName: r.ItemName,
				EndDate:  dateKey(end),
			},
			Match: map[string]any{"rentalId": r.ID, "endDate": dateKey(end)},
		})
	}
	return nil
}

// RentalOverdue warns about active rentals whose end date passed within
// the lookback window
type RentalOverdue struct {
	base
	rentals RentalStore
}

func NewRentalOverdue(cfg Config, deps Deps, rentals RentalStore) *RentalOverdue {
	return &RentalOverdue{base: newBase(NameRentalOverdue, cfg, deps), rentals: rentals}
}

func (d *RentalOverdue) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *RentalOverdue) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()

	rentals, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Rental, error) {
		return d.rentals.FindRentals(ctx, domain.RangeQuery{
			Statuses: []string{string(domain.RentalActive)},
			Field:    rentalEndField,
			From:     now.Add(-d.cfg.Lookback),
			To:       now,
			Limit:    d.cfg.ResultLimit,
		})
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(rentals)

	for _, r := range rentals {
		end := r.RentalPeriod.EndDate
		d.emitTo(ctx, stats, rentalRecipients(r, d.cfg.NotifyOwner), Candidate{
			Type:    domain.TypeRentalOverdue,
			Title:   "Rental overdue",
			Message: fmt.Sprintf("%s was due back on %s.", r.ItemName, humanDate(end)),
			Payload: &domain.RentalPayload{
				RentalID:    r.ID,
				ItemName:    r.ItemName,
				EndDate:     dateKey(end),
				DaysOverdue: int(now.Sub(end) / day),
			},
			Match: map[string]any{"rentalId": r.ID, "endDate": dateKey(end)},
		})
	}
	return nil
}
