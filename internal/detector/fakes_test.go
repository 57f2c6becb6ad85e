package detector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/clock"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// notificationLog is an in-memory dispatcher that also answers dedup
// lookups against what it sent
type notificationLog struct {
	mu       sync.Mutex
	clock    clock.Clock
	sent     []*domain.Notification
	requests []*domain.SendRequest
	sendErr  error
	dedupErr error
	panicFor primitive.ObjectID
}

func (l *notificationLog) Send(ctx context.Context, req *domain.SendRequest) (*domain.SendResult, error) {
	if !l.panicFor.IsZero() && req.UserID == l.panicFor {
		panic("dispatcher exploded")
	}
	if l.sendErr != nil {
		return &domain.SendResult{Success: false, Error: l.sendErr.Error()}, l.sendErr
	}
	data, err := domain.PayloadToData(req.Data)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	n := &domain.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Data:      data,
		CreatedAt: l.clock.Now(),
	}
	l.sent = append(l.sent, n)
	l.requests = append(l.requests, req)
	return &domain.SendResult{Success: true, Notification: n}, nil
}

func (l *notificationLog) ExistsSince(ctx context.Context, q domain.DedupQuery) (bool, error) {
	if l.dedupErr != nil {
		return false, l.dedupErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, n := range l.sent {
		if n.UserID != q.UserID || n.Type != q.Type || n.CreatedAt.Before(q.Since) {
			continue
		}
		matched := true
		for k, v := range q.Match {
			if fmt.Sprint(n.Data[k]) != fmt.Sprint(v) {
				matched = false
				break
			}
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func (l *notificationLog) recipients(t domain.NotificationType) []primitive.ObjectID {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []primitive.ObjectID
	for _, n := range l.sent {
		if n.Type == t {
			out = append(out, n.UserID)
		}
	}
	return out
}

type adminList []*domain.User

func (a adminList) FindAdmins(ctx context.Context) ([]*domain.User, error) {
	return a, nil
}

type fixture struct {
	clock *clock.Fake
	log   *notificationLog
	deps  Deps
}

func newFixture(admins ...primitive.ObjectID) *fixture {
	clk := clock.NewFake(testNow)
	l := &notificationLog{clock: clk}
	var dir adminList
	for _, id := range admins {
		dir = append(dir, &domain.User{ID: id, Role: domain.RoleAdmin, IsActive: true})
	}
	return &fixture{
		clock: clk,
		log:   l,
		deps: Deps{
			Notifier: l,
			Log:      l,
			Admins:   dir,
			Clock:    clk,
			Logger:   logger.NewNop(),
		},
	}
}

func inRange(q domain.RangeQuery, status string, t *time.Time) bool {
	if len(q.Statuses) > 0 {
		found := false
		for _, s := range q.Statuses {
			if s == status {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if q.From.IsZero() && q.To.IsZero() {
		return true
	}
	if t == nil {
		return false
	}
	if !q.From.IsZero() && t.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !t.Before(q.To) {
		return false
	}
	return true
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

type bookingStore struct {
	mu         sync.Mutex
	bookings   []*domain.Booking
	reviewed   map[primitive.ObjectID]bool
	queryErr   error
	staleWrite bool
}

func bookingField(b *domain.Booking, field string) *time.Time {
	switch field {
	case "bookingDate":
		return &b.BookingDate
	case "completedAt":
		return b.CompletedAt
	default:
		return &b.CreatedAt
	}
}

func (s *bookingStore) FindBookings(ctx context.Context, q domain.RangeQuery) ([]*domain.Booking, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Booking
	for _, b := range s.bookings {
		if inRange(q, string(b.Status), bookingField(b, q.Field)) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return limit(out, q.Limit), nil
}

func (s *bookingStore) FindPendingBookings(ctx context.Context, autoConfirm bool, createdBefore time.Time, n int) ([]*domain.Booking, error) {
	all, err := s.FindBookings(ctx, domain.RangeQuery{
		Statuses: []string{string(domain.BookingPending)},
		Field:    "createdAt",
		To:       createdBefore,
	})
	if err != nil {
		return nil, err
	}
	var out []*domain.Booking
	for _, b := range all {
		if b.AutoConfirm == autoConfirm {
			out = append(out, b)
		}
	}
	return limit(out, n), nil
}

func (s *bookingStore) FindCompletedWithoutReview(ctx context.Context, q domain.RangeQuery) ([]*domain.Booking, error) {
	all, err := s.FindBookings(ctx, q)
	if err != nil {
		return nil, err
	}
	var out []*domain.Booking
	for _, b := range all {
		if !s.reviewed[b.ID] {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *bookingStore) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to domain.BookingStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleWrite {
		return false, nil
	}
	for _, b := range s.bookings {
		if b.ID == id && b.Status == from {
			b.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *bookingStore) status(id primitive.ObjectID) domain.BookingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ID == id {
			return b.Status
		}
	}
	return ""
}

type orderStore struct {
	mu     sync.Mutex
	orders []*domain.Order
}

func orderField(o *domain.Order, field string) *time.Time {
	switch field {
	case "shippedAt":
		return o.ShippedAt
	case "deliveredAt":
		return o.DeliveredAt
	default:
		return &o.CreatedAt
	}
}

func (s *orderStore) FindOrders(ctx context.Context, q domain.OrderQuery) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Order
	for _, o := range s.orders {
		if q.Kind != "" && o.Kind != q.Kind {
			continue
		}
		if q.PaymentStatus != "" && o.PaymentStatus != q.PaymentStatus {
			continue
		}
		if q.UnconfirmedOnly && o.DeliveryConfirmed {
			continue
		}
		if inRange(q.RangeQuery, string(o.Status), orderField(o, q.Field)) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return limit(out, q.Limit), nil
}

func (s *orderStore) FindLatestDeliveredSupplies(ctx context.Context, cutoff time.Time, n int) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := map[primitive.ObjectID]*domain.Order{}
	for _, o := range s.orders {
		if o.Kind != domain.OrderKindSupplies || o.Status != domain.OrderDelivered || o.DeliveredAt == nil {
			continue
		}
		if cur, ok := latest[o.CustomerID]; !ok || o.DeliveredAt.After(*cur.DeliveredAt) {
			latest[o.CustomerID] = o
		}
	}
	var out []*domain.Order
	for _, o := range latest {
		if o.DeliveredAt.Before(cutoff) {
			out = append(out, o)
		}
	}
	return limit(out, n), nil
}

func (s *orderStore) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to domain.OrderStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id && o.Status == from {
			o.Status = to
			o.DeliveredAt = &at
			return true, nil
		}
	}
	return false, nil
}

type marketplaceStore struct {
	loans         []*domain.Loan
	rentals       []*domain.Rental
	enrollments   []*domain.Enrollment
	sessions      []*domain.LiveChatSession
	messages      []*domain.Message
	conversations map[primitive.ObjectID]*domain.Conversation
	referrals     []*domain.ReferralProfile
	subscriptions []*domain.Subscription
	applications  []*domain.JobApplication
}

func (s *marketplaceStore) FindLoansWithInstallmentsDue(ctx context.Context, from, to time.Time, n int) ([]*domain.Loan, error) {
	var out []*domain.Loan
	for _, l := range s.loans {
		if len(l.UnpaidDueBetween(from, to)) > 0 {
			out = append(out, l)
		}
	}
	return limit(out, n), nil
}

func (s *marketplaceStore) FindRentals(ctx context.Context, q domain.RangeQuery) ([]*domain.Rental, error) {
	var out []*domain.Rental
	for _, r := range s.rentals {
		if inRange(q, string(r.Status), &r.RentalPeriod.EndDate) {
			out = append(out, r)
		}
	}
	return limit(out, q.Limit), nil
}

func (s *marketplaceStore) FindCompletedWithoutCertificate(ctx context.Context, cutoff time.Time, n int) ([]*domain.Enrollment, error) {
	var out []*domain.Enrollment
	for _, e := range s.enrollments {
		if e.Status == domain.EnrollmentCompleted && !e.CertificateIssued && e.CompletedAt != nil && e.CompletedAt.Before(cutoff) {
			out = append(out, e)
		}
	}
	return limit(out, n), nil
}

func (s *marketplaceStore) FindChatSessions(ctx context.Context, q domain.RangeQuery) ([]*domain.LiveChatSession, error) {
	var out []*domain.LiveChatSession
	for _, c := range s.sessions {
		if inRange(q, c.Status, &c.CreatedAt) {
			out = append(out, c)
		}
	}
	return limit(out, q.Limit), nil
}

func (s *marketplaceStore) FindMessages(ctx context.Context, q domain.RangeQuery) ([]*domain.Message, error) {
	var out []*domain.Message
	for _, m := range s.messages {
		if inRange(q, "", &m.CreatedAt) {
			out = append(out, m)
		}
	}
	return limit(out, q.Limit), nil
}

func (s *marketplaceStore) FindConversation(ctx context.Context, id primitive.ObjectID) (*domain.Conversation, error) {
	return s.conversations[id], nil
}

func (s *marketplaceStore) FindTierUpgrades(ctx context.Context, tiers []string, since time.Time, n int) ([]*domain.ReferralProfile, error) {
	var out []*domain.ReferralProfile
	for _, p := range s.referrals {
		if p.TierUpdatedAt == nil || p.TierUpdatedAt.Before(since) {
			continue
		}
		for _, t := range tiers {
			if p.Tier == t {
				out = append(out, p)
			}
		}
	}
	return limit(out, n), nil
}

func (s *marketplaceStore) FindSubscriptions(ctx context.Context, q domain.RangeQuery) ([]*domain.Subscription, error) {
	var out []*domain.Subscription
	for _, sub := range s.subscriptions {
		if inRange(q, sub.Status, sub.InactiveSince) {
			out = append(out, sub)
		}
	}
	return limit(out, q.Limit), nil
}

func (s *marketplaceStore) FindJobApplications(ctx context.Context, q domain.RangeQuery) ([]*domain.JobApplication, error) {
	var out []*domain.JobApplication
	for _, a := range s.applications {
		if inRange(q, a.Status, &a.CreatedAt) {
			out = append(out, a)
		}
	}
	return limit(out, q.Limit), nil
}

func ptr[T any](v T) *T { return &v }
