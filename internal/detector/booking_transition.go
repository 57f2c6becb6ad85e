package detector

import (
	"context"
	"fmt"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
)

// BookingAutoTransition is a state-transition detector. A pending booking
// older than threshold that opted into auto confirmation is confirmed; one
// older than max_age that did not is cancelled. The write is guarded on the
// pending status and both parties are notified only when this tick made the
// change.
type BookingAutoTransition struct {
	base
	bookings BookingStore
}

func NewBookingAutoTransition(cfg Config, deps Deps, bookings BookingStore) *BookingAutoTransition {
	return &BookingAutoTransition{base: newBase(NameBookingAutoTransition, cfg, deps), bookings: bookings}
}

func (d *BookingAutoTransition) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

// bookingTransition is one of the two moves out of pending
type bookingTransition struct {
	to    domain.BookingStatus
	typ   domain.NotificationType
	title string
	body  string
}

var (
	bookingAutoConfirm = bookingTransition{
		to:    domain.BookingConfirmed,
		typ:   domain.TypeBookingAutoConfirmed,
		title: "Booking confirmed",
		body:  "Your booking for %s was confirmed automatically.",
	}
	bookingAutoCancel = bookingTransition{
		to:    domain.BookingCancelled,
		typ:   domain.TypeBookingAutoCancelled,
		title: "Booking cancelled",
		body:  "Your booking for %s was cancelled because it was not confirmed in time.",
	}
)

func (d *BookingAutoTransition) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()

	// Each move gets its own query so bookings waiting between threshold and
	// max_age never crowd the other move out of result_limit.
	confirmable, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Booking, error) {
		return d.bookings.FindPendingBookings(ctx, true, now.Add(-d.cfg.Threshold), d.cfg.ResultLimit)
	})
	if err != nil {
		return err
	}
	expired, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Booking, error) {
		return d.bookings.FindPendingBookings(ctx, false, now.Add(-d.cfg.MaxAge), d.cfg.ResultLimit)
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(confirmable) + len(expired)

	for _, b := range confirmable {
		d.transition(ctx, stats, b, bookingAutoConfirm)
	}
	for _, b := range expired {
		d.transition(ctx, stats, b, bookingAutoCancel)
	}
	return nil
}

func (d *BookingAutoTransition) transition(ctx context.Context, stats *RunStats, b *domain.Booking, t bookingTransition) {
	d.guard(stats, b.ID.Hex(), func() {
		changed, err := d.bookings.TransitionStatus(ctx, b.ID, domain.BookingPending, t.to, d.now())
		if err != nil {
			stats.Failed++
			d.log.Error("Booking transition failed", "booking_id", b.ID.Hex(), "to", t.to, "error", errors.NewStateTransitionError("booking", err))
			return
		}
		if !changed {
			stats.Skipped++
			d.log.Debug("Booking already left pending", "booking_id", b.ID.Hex())
			return
		}
		d.transitioned(stats, string(t.to))

		d.emitTo(ctx, stats, b.Participants(), Candidate{
			Type:    t.typ,
			Title:   t.title,
			Message: fmt.Sprintf(t.body, b.ServiceName),
			Payload: &domain.BookingPayload{
				BookingID:      b.ID,
				ServiceName:    b.ServiceName,
				BookingDate:    b.BookingDate,
				Status:         string(t.to),
				PreviousStatus: string(domain.BookingPending),
			},
			Match: map[string]any{"bookingId": b.ID},
		})
	})
}
