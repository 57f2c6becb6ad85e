package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
)

const defaultReminderWindow = 15 * time.Minute

var bookingReminders = []struct {
	kind string
	lead time.Duration
}{
	{kind: "24h", lead: 24 * time.Hour},
	{kind: "2h", lead: 2 * time.Hour},
}

// BookingReminder reminds both parties of a confirmed booking about 24
// hours and again about 2 hours before it starts
type BookingReminder struct {
	base
	bookings BookingStore
}

func NewBookingReminder(cfg Config, deps Deps, bookings BookingStore) *BookingReminder {
	return &BookingReminder{base: newBase(NameBookingReminder, cfg, deps), bookings: bookings}
}

func (d *BookingReminder) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *BookingReminder) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()
	window := d.cfg.Lookback
	if window <= 0 {
		window = defaultReminderWindow
	}

	for _, r := range bookingReminders {
		from := now.Add(r.lead)
		bookings, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Booking, error) {
			return d.bookings.FindBookings(ctx, domain.RangeQuery{
				Statuses: []string{string(domain.BookingConfirmed)},
				Field:    "bookingDate",
				From:     from,
				To:       from.Add(window),
				Limit:    d.cfg.ResultLimit,
			})
		})
		if err != nil {
			return err
		}
		stats.Scanned += len(bookings)

		for _, b := range bookings {
			d.emitTo(ctx, stats, b.Participants(), Candidate{
				Type:    domain.TypeBookingReminder,
				Title:   fmt.Sprintf("Upcoming booking in %s", r.kind),
				Message: fmt.Sprintf("%s starts at %s UTC.", b.ServiceName, b.BookingDate.UTC().Format("Jan 2 15:04")),
				Payload: &domain.BookingPayload{
					BookingID:    b.ID,
					ServiceName:  b.ServiceName,
					BookingDate:  b.BookingDate,
					Status:       string(b.Status),
					ReminderKind: r.kind,
				},
				Match: map[string]any{"bookingId": b.ID, "reminderKind": r.kind},
			})
		}
	}
	return nil
}

// BookingOverdue flags bookings still confirmed or in progress after their
// scheduled end plus a grace period
type BookingOverdue struct {
	base
	bookings BookingStore
}

func NewBookingOverdue(cfg Config, deps Deps, bookings BookingStore) *BookingOverdue {
	return &BookingOverdue{base: newBase(NameBookingOverdue, cfg, deps), bookings: bookings}
}

func (d *BookingOverdue) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *BookingOverdue) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()
	grace := d.cfg.Threshold

	// the start must be at least grace ago; duration is checked per booking
	bookings, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Booking, error) {
		return d.bookings.FindBookings(ctx, domain.RangeQuery{
			Statuses: []string{string(domain.BookingConfirmed), string(domain.BookingInProgress)},
			Field:    "bookingDate",
			To:       now.Add(-grace),
			Limit:    d.cfg.ResultLimit,
		})
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(bookings)

	for _, b := range bookings {
		if b.EndsAt().Add(grace).After(now) {
			continue
		}
		d.emitTo(ctx, stats, b.Participants(), Candidate{
			Type:    domain.TypeBookingOverdue,
			Title:   "Booking not completed",
			Message: fmt.Sprintf("%s was scheduled to end at %s UTC but is still %s.", b.ServiceName, b.EndsAt().UTC().Format("Jan 2 15:04"), b.Status),
			Payload: &domain.BookingPayload{
				BookingID:   b.ID,
				ServiceName: b.ServiceName,
				BookingDate: b.BookingDate,
				Status:      string(b.Status),
			},
			Match: map[string]any{"bookingId": b.ID},
		})
	}
	return nil
}

// ReviewRequest asks the client to review a booking completed between
// min_age and max_age ago that has no review yet
type ReviewRequest struct {
	base
	bookings BookingStore
}

func NewReviewRequest(cfg Config, deps Deps, bookings BookingStore) *ReviewRequest {
	return &ReviewRequest{base: newBase(NameReviewRequest, cfg, deps), bookings: bookings}
}

func (d *ReviewRequest) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *ReviewRequest) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()
	bookings, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Booking, error) {
		return d.bookings.FindCompletedWithoutReview(ctx, domain.RangeQuery{
			Statuses: []string{string(domain.BookingCompleted)},
			Field:    "completedAt",
			From:     now.Add(-d.cfg.MaxAge),
			To:       now.Add(-d.cfg.MinAge),
			Limit:    d.cfg.ResultLimit,
		})
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(bookings)

	for _, b := range bookings {
		d.emit(ctx, stats, Candidate{
			UserID:  b.ClientID,
			Type:    domain.TypeReviewRequest,
			Title:   "How did it go?",
			Message: fmt.Sprintf("Tell others about your experience with %s.", b.ServiceName),
			Payload: &domain.BookingPayload{
				BookingID:   b.ID,
				ServiceName: b.ServiceName,
				BookingDate: b.BookingDate,
				Status:      string(b.Status),
			},
			Match: map[string]any{"bookingId": b.ID},
		})
	}
	return nil
}
