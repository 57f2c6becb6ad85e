package detector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBookingReminder_BothLeadTimes(t *testing.T) {
	f := newFixture()
	dayAhead := confirmedBooking(testNow.Add(24*time.Hour+10*time.Minute), 60)
	soon := confirmedBooking(testNow.Add(2*time.Hour), 60)
	outside := confirmedBooking(testNow.Add(5*time.Hour), 60)
	pending := confirmedBooking(testNow.Add(2*time.Hour+time.Minute), 60)
	pending.Status = domain.BookingPending

	d := NewBookingReminder(DefaultConfigs()[NameBookingReminder], f.deps, &bookingStore{
		bookings: []*domain.Booking{dayAhead, soon, outside, pending},
	})
	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Emitted)

	kinds := map[primitive.ObjectID]string{}
	for _, n := range f.log.sent {
		kinds[n.UserID] = n.Data["reminderKind"].(string)
	}
	assert.Equal(t, "24h", kinds[dayAhead.ClientID])
	assert.Equal(t, "24h", kinds[dayAhead.ProviderID])
	assert.Equal(t, "2h", kinds[soon.ClientID])
	assert.Equal(t, "2h", kinds[soon.ProviderID])
}

func TestBookingOverdue_Scenario(t *testing.T) {
	f := newFixture()
	// started 2h ago for 1h: ended 1h ago, past the 30m grace
	overdue := confirmedBooking(testNow.Add(-2*time.Hour), 60)
	// in progress, ends in 20 minutes
	running := confirmedBooking(testNow.Add(-40*time.Minute), 60)
	running.Status = domain.BookingInProgress
	// ended 10 minutes ago, still inside the grace period
	grace := confirmedBooking(testNow.Add(-70*time.Minute), 60)
	completed := confirmedBooking(testNow.Add(-5*time.Hour), 60)
	completed.Status = domain.BookingCompleted

	d := NewBookingOverdue(DefaultConfigs()[NameBookingOverdue], f.deps, &bookingStore{
		bookings: []*domain.Booking{overdue, running, grace, completed},
	})
	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Emitted)
	assert.ElementsMatch(t, []primitive.ObjectID{overdue.ClientID, overdue.ProviderID}, f.log.recipients(domain.TypeBookingOverdue))

	f.clock.Advance(time.Hour)
	stats, err = d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 4, stats.Emitted, "the running and grace bookings are overdue an hour later")
}

func TestBookingOverdue_GraceDeadline(t *testing.T) {
	tests := []struct {
		name    string
		started time.Duration
		want    int
	}{
		{"deadline reached exactly", 3 * time.Hour, 2},
		{"one minute before deadline", 3*time.Hour - time.Minute, 0},
		{"well past deadline", 4 * time.Hour, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			cfg := DefaultConfigs()[NameBookingOverdue]
			cfg.Threshold = 120 * time.Minute
			b := confirmedBooking(testNow.Add(-tt.started), 60)

			d := NewBookingOverdue(cfg, f.deps, &bookingStore{bookings: []*domain.Booking{b}})
			stats, err := d.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, stats.Emitted)
			if tt.want > 0 {
				assert.ElementsMatch(t, []primitive.ObjectID{b.ClientID, b.ProviderID}, f.log.recipients(domain.TypeBookingOverdue))
			}
		})
	}
}

func TestReviewRequest_Window(t *testing.T) {
	f := newFixture()
	mk := func(completedAgo time.Duration) *domain.Booking {
		return &domain.Booking{
			ID:          primitive.NewObjectID(),
			ClientID:    primitive.NewObjectID(),
			ProviderID:  primitive.NewObjectID(),
			Status:      domain.BookingCompleted,
			CompletedAt: ptr(testNow.Add(-completedAgo)),
		}
	}
	tooRecent := mk(2 * day)
	due := mk(5 * day)
	tooOld := mk(8 * day)
	reviewed := mk(4 * day)

	store := &bookingStore{
		bookings: []*domain.Booking{tooRecent, due, tooOld, reviewed},
		reviewed: map[primitive.ObjectID]bool{reviewed.ID: true},
	}
	d := NewReviewRequest(DefaultConfigs()[NameReviewRequest], f.deps, store)

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{due.ClientID}, f.log.recipients(domain.TypeReviewRequest))

	_, err = d.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.log.sent, 1)
}

func pendingBooking(createdAgo time.Duration, autoConfirm bool) *domain.Booking {
	b := confirmedBooking(testNow.Add(72*time.Hour), 60)
	b.Status = domain.BookingPending
	b.AutoConfirm = autoConfirm
	b.CreatedAt = testNow.Add(-createdAgo)
	return b
}

func TestBookingAutoTransition(t *testing.T) {
	f := newFixture()
	confirmable := pendingBooking(25*time.Hour, true)
	cancellable := pendingBooking(49*time.Hour, false)
	waiting := pendingBooking(30*time.Hour, false)
	fresh := pendingBooking(2*time.Hour, true)

	store := &bookingStore{bookings: []*domain.Booking{confirmable, cancellable, waiting, fresh}}
	d := NewBookingAutoTransition(DefaultConfigs()[NameBookingAutoTransition], f.deps, store)

	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Transitioned)
	assert.Equal(t, 4, stats.Emitted)

	assert.Equal(t, domain.BookingConfirmed, store.status(confirmable.ID))
	assert.Equal(t, domain.BookingCancelled, store.status(cancellable.ID))
	assert.Equal(t, domain.BookingPending, store.status(waiting.ID))
	assert.Equal(t, domain.BookingPending, store.status(fresh.ID))

	assert.ElementsMatch(t, confirmable.Participants(), f.log.recipients(domain.TypeBookingAutoConfirmed))
	assert.ElementsMatch(t, cancellable.Participants(), f.log.recipients(domain.TypeBookingAutoCancelled))

	stats, err = d.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Transitioned)
	assert.Len(t, f.log.sent, 4)
}

func TestBookingAutoTransition_WaitingBookingsDoNotFillResultLimit(t *testing.T) {
	f := newFixture()
	waiting := []*domain.Booking{
		pendingBooking(47*time.Hour, false),
		pendingBooking(30*time.Hour, false),
		pendingBooking(26*time.Hour, false),
	}
	confirmable := pendingBooking(25*time.Hour, true)
	cancellable := pendingBooking(49*time.Hour, false)

	store := &bookingStore{bookings: append(waiting, confirmable, cancellable)}
	cfg := DefaultConfigs()[NameBookingAutoTransition]
	cfg.ResultLimit = 1
	d := NewBookingAutoTransition(cfg, f.deps, store)

	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 2, stats.Transitioned)
	assert.Equal(t, domain.BookingConfirmed, store.status(confirmable.ID))
	assert.Equal(t, domain.BookingCancelled, store.status(cancellable.ID))
	for _, b := range waiting {
		assert.Equal(t, domain.BookingPending, store.status(b.ID))
	}
}

func TestBookingAutoTransition_LostRaceDoesNotNotify(t *testing.T) {
	f := newFixture()
	store := &bookingStore{
		bookings:   []*domain.Booking{pendingBooking(25*time.Hour, true)},
		staleWrite: true,
	}
	d := NewBookingAutoTransition(DefaultConfigs()[NameBookingAutoTransition], f.deps, store)

	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunStats{Scanned: 1, Skipped: 1}, stats)
	assert.Empty(t, f.log.sent)
}
