package repository

import (
	"context"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	loansCollection            = "loans"
	rentalsCollection          = "rentals"
	enrollmentsCollection      = "enrollments"
	liveChatSessionsCollection = "live_chat_sessions"
	conversationsCollection    = "conversations"
	messagesCollection         = "messages"
	referralProfilesCollection = "referral_profiles"
	subscriptionsCollection    = "subscriptions"
	jobApplicationsCollection  = "job_applications"
)

// MarketplaceRepository reads the remaining marketplace collections the
// detectors scan. It never writes.
type MarketplaceRepository struct {
	client *mongodb.MongoClient
}

// NewMarketplaceRepository creates a new marketplace repository
func NewMarketplaceRepository(client *mongodb.MongoClient) *MarketplaceRepository {
	return &MarketplaceRepository{client: client}
}

func findAll[T any](ctx context.Context, r *MarketplaceRepository, collection string, filter bson.M, opts *options.FindOptions) ([]*T, error) {
	cursor, err := r.client.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindLoansWithInstallmentsDue finds active loans with at least one unpaid
// installment due in [from, to)
func (r *MarketplaceRepository) FindLoansWithInstallmentsDue(ctx context.Context, from, to time.Time, limit int) ([]*domain.Loan, error) {
	filter := bson.M{
		"status": "active",
		"installments": bson.M{"$elemMatch": bson.M{
			"paid":    false,
			"dueDate": bson.M{"$gte": from, "$lt": to},
		}},
	}
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[domain.Loan](ctx, r, loansCollection, filter, opts)
}

// FindRentals finds rentals by status and time range
func (r *MarketplaceRepository) FindRentals(ctx context.Context, q domain.RangeQuery) ([]*domain.Rental, error) {
	return findAll[domain.Rental](ctx, r, rentalsCollection, rangeFilter(q), rangeFindOptions(q))
}

// FindCompletedWithoutCertificate finds completed enrollments finished
// before cutoff that still have no certificate
func (r *MarketplaceRepository) FindCompletedWithoutCertificate(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Enrollment, error) {
	filter := bson.M{
		"status":            domain.EnrollmentCompleted,
		"certificateIssued": bson.M{"$ne": true},
		"completedAt":       bson.M{"$lt": cutoff},
	}
	opts := options.Find().SetSort(bson.D{{Key: "completedAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[domain.Enrollment](ctx, r, enrollmentsCollection, filter, opts)
}

// FindChatSessions finds live chat sessions by status and time range
func (r *MarketplaceRepository) FindChatSessions(ctx context.Context, q domain.RangeQuery) ([]*domain.LiveChatSession, error) {
	return findAll[domain.LiveChatSession](ctx, r, liveChatSessionsCollection, rangeFilter(q), rangeFindOptions(q))
}

// FindMessages finds messages in a time range
func (r *MarketplaceRepository) FindMessages(ctx context.Context, q domain.RangeQuery) ([]*domain.Message, error) {
	return findAll[domain.Message](ctx, r, messagesCollection, rangeFilter(q), rangeFindOptions(q))
}

// FindConversation returns the conversation, or nil without error when absent
func (r *MarketplaceRepository) FindConversation(ctx context.Context, id primitive.ObjectID) (*domain.Conversation, error) {
	out, err := findAll[domain.Conversation](ctx, r, conversationsCollection, bson.M{"_id": id}, options.Find().SetLimit(1))
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

// FindTierUpgrades finds referral profiles whose tier changed at or after
// since and is one of tiers
func (r *MarketplaceRepository) FindTierUpgrades(ctx context.Context, tiers []string, since time.Time, limit int) ([]*domain.ReferralProfile, error) {
	filter := bson.M{
		"tier":          bson.M{"$in": tiers},
		"tierUpdatedAt": bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.D{{Key: "tierUpdatedAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[domain.ReferralProfile](ctx, r, referralProfilesCollection, filter, opts)
}

// FindSubscriptions finds subscriptions by status and time range
func (r *MarketplaceRepository) FindSubscriptions(ctx context.Context, q domain.RangeQuery) ([]*domain.Subscription, error) {
	return findAll[domain.Subscription](ctx, r, subscriptionsCollection, rangeFilter(q), rangeFindOptions(q))
}

// FindJobApplications finds job applications by status and time range
func (r *MarketplaceRepository) FindJobApplications(ctx context.Context, q domain.RangeQuery) ([]*domain.JobApplication, error) {
	return findAll[domain.JobApplication](ctx, r, jobApplicationsCollection, rangeFilter(q), rangeFindOptions(q))
}
