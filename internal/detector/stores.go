package detector

import (
	"context"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookingStore reads bookings and applies guarded status transitions
type BookingStore interface {
	FindBookings(ctx context.Context, q domain.RangeQuery) ([]*domain.Booking, error)
	FindCompletedWithoutReview(ctx context.Context, q domain.RangeQuery) ([]*domain.Booking, error)
	FindPendingBookings(ctx context.Context, autoConfirm bool, createdBefore time.Time, limit int) ([]*domain.Booking, error)
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to domain.BookingStatus, at time.Time) (bool, error)
}

// OrderStore reads orders and applies guarded status transitions
type OrderStore interface {
	FindOrders(ctx context.Context, q domain.OrderQuery) ([]*domain.Order, error)
	FindLatestDeliveredSupplies(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Order, error)
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to domain.OrderStatus, at time.Time) (bool, error)
}

type LoanStore interface {
	FindLoansWithInstallmentsDue(ctx context.Context, from, to time.Time, limit int) ([]*domain.Loan, error)
}

type RentalStore interface {
	FindRentals(ctx context.Context, q domain.RangeQuery) ([]*domain.Rental, error)
}

type EnrollmentStore interface {
	FindCompletedWithoutCertificate(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Enrollment, error)
}

type ChatStore interface {
	FindChatSessions(ctx context.Context, q domain.RangeQuery) ([]*domain.LiveChatSession, error)
}

type MessageStore interface {
	FindMessages(ctx context.Context, q domain.RangeQuery) ([]*domain.Message, error)
	FindConversation(ctx context.Context, id primitive.ObjectID) (*domain.Conversation, error)
}

type ReferralStore interface {
	FindTierUpgrades(ctx context.Context, tiers []string, since time.Time, limit int) ([]*domain.ReferralProfile, error)
}

type SubscriptionStore interface {
	FindSubscriptions(ctx context.Context, q domain.RangeQuery) ([]*domain.Subscription, error)
}

type JobApplicationStore interface {
	FindJobApplications(ctx context.Context, q domain.RangeQuery) ([]*domain.JobApplication, error)
}

// Stores bundles every collaborator the detectors read
type Stores struct {
	Bookings        BookingStore
	Orders          OrderStore
	Loans           LoanStore
	Rentals         RentalStore
	Enrollments     EnrollmentStore
	Chats           ChatStore
	Messages        MessageStore
	Referrals       ReferralStore
	Subscriptions   SubscriptionStore
	JobApplications JobApplicationStore
}
