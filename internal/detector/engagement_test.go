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

func TestLiveChatSLA_ForcesChannelsToAllAdmins(t *testing.T) {
	a1, a2 := primitive.NewObjectID(), primitive.NewObjectID()
	f := newFixture(a1, a2)
	waiting := &domain.LiveChatSession{
		ID:        primitive.NewObjectID(),
		UserID:    primitive.NewObjectID(),
		Subject:   "Payment stuck",
		Status:    domain.LiveChatPending,
		CreatedAt: testNow.Add(-25 * time.Minute),
	}
	justOpened := &domain.LiveChatSession{
		ID:        primitive.NewObjectID(),
		Status:    domain.LiveChatPending,
		CreatedAt: testNow.Add(-2 * time.Minute),
	}

	d := NewLiveChatSLA(DefaultConfigs()[NameLiveChatSLA], f.deps, &marketplaceStore{
		sessions: []*domain.LiveChatSession{waiting, justOpened},
	})
	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunStats{Scanned: 1, Emitted: 2}, stats)
	assert.ElementsMatch(t, []primitive.ObjectID{a1, a2}, f.log.recipients(domain.TypeLiveChatSLABreach))
	for _, req := range f.log.requests {
		assert.True(t, req.ForceChannels)
	}
	assert.EqualValues(t, 25, f.log.sent[0].Data["waitingMinutes"])
}

func TestLiveChatSLA_NoAdmins(t *testing.T) {
	f := newFixture()
	d := NewLiveChatSLA(DefaultConfigs()[NameLiveChatSLA], f.deps, &marketplaceStore{
		sessions: []*domain.LiveChatSession{{ID: primitive.NewObjectID(), Status: domain.LiveChatPending, CreatedAt: testNow.Add(-time.Hour)}},
	})
	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scanned)
	assert.Empty(t, f.log.sent)
}

func TestMessageNudge_SkipsSenderAndReaders(t *testing.T) {
	f := newFixture()
	sender, reader, unread := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	conv := &domain.Conversation{ID: primitive.NewObjectID(), Participants: []primitive.ObjectID{sender, reader, unread}}
	msg := &domain.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: conv.ID,
		SenderID:       sender,
		Content:        "Is the bike still available?",
		ReadBy:         []primitive.ObjectID{sender, reader},
		CreatedAt:      testNow.Add(-2 * time.Hour),
	}
	tooRecent := &domain.Message{ID: primitive.NewObjectID(), ConversationID: conv.ID, SenderID: reader, CreatedAt: testNow.Add(-10 * time.Minute)}
	tooOld := &domain.Message{ID: primitive.NewObjectID(), ConversationID: conv.ID, SenderID: reader, CreatedAt: testNow.Add(-30 * time.Hour)}
	orphan := &domain.Message{ID: primitive.NewObjectID(), ConversationID: primitive.NewObjectID(), SenderID: reader, CreatedAt: testNow.Add(-90 * time.Minute)}

	d := NewMessageNudge(DefaultConfigs()[NameMessageNudge], f.deps, &marketplaceStore{
		messages:      []*domain.Message{msg, tooRecent, tooOld, orphan},
		conversations: map[primitive.ObjectID]*domain.Conversation{conv.ID: conv},
	})
	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunStats{Scanned: 2, Emitted: 1}, stats)
	assert.Equal(t, []primitive.ObjectID{unread}, f.log.recipients(domain.TypeMessageUnreadNudge))
	assert.Equal(t, "Is the bike still available?", f.log.sent[0].Data["preview"])
}

func TestContactReason(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"mail me at jane.doe@example.com", "email"},
		{"call +84 912 345 678 tonight", "phone"},
		{"my number is 0912-345-678", "phone"},
		{"price is 120000", ""},
		{"see you at 10:30 on 12/03", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			assert.Equal(t, tt.want, contactReason(tt.content))
		})
	}
}

func TestMessageModeration(t *testing.T) {
	admin := primitive.NewObjectID()
	f := newFixture(admin)
	flagged := &domain.Message{
		ID:        primitive.NewObjectID(),
		SenderID:  primitive.NewObjectID(),
		Content:   "text me on 0912 345 678 instead",
		CreatedAt: testNow.Add(-5 * time.Minute),
	}
	clean := &domain.Message{ID: primitive.NewObjectID(), SenderID: primitive.NewObjectID(), Content: "thanks!", CreatedAt: testNow.Add(-5 * time.Minute)}

	d := NewMessageModeration(DefaultConfigs()[NameMessageModeration], f.deps, &marketplaceStore{
		messages: []*domain.Message{flagged, clean},
	})
	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunStats{Scanned: 2, Emitted: 2}, stats)
	assert.Equal(t, []primitive.ObjectID{admin}, f.log.recipients(domain.TypeMessageFlagged))
	assert.Equal(t, []primitive.ObjectID{flagged.SenderID}, f.log.recipients(domain.TypeMessageWarning))
	assert.Equal(t, "phone", f.log.sent[0].Data["reason"])

	f.clock.Advance(time.Minute)
	stats, err = d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
}

func TestReferralMilestone(t *testing.T) {
	f := newFixture()
	gold := &domain.ReferralProfile{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Tier: domain.TierGold, TotalReferrals: 25, TierUpdatedAt: ptr(testNow.Add(-30 * time.Minute))}
	bronze := &domain.ReferralProfile{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Tier: domain.TierBronze, TierUpdatedAt: ptr(testNow.Add(-30 * time.Minute))}
	stale := &domain.ReferralProfile{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Tier: domain.TierSilver, TierUpdatedAt: ptr(testNow.Add(-5 * time.Hour))}

	d := NewReferralMilestone(DefaultConfigs()[NameReferralMilestone], f.deps, &marketplaceStore{
		referrals: []*domain.ReferralProfile{gold, bronze, stale},
	})
	_, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{gold.UserID}, f.log.recipients(domain.TypeReferralTierUpgraded))

	// a later run inside lookback must not congratulate twice
	f.clock.Advance(time.Hour)
	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
}

func TestSubscriptionDunning_ExactDays(t *testing.T) {
	f := newFixture()
	mk := func(inactive time.Duration) *domain.Subscription {
		return &domain.Subscription{
			ID:            primitive.NewObjectID(),
			UserID:        primitive.NewObjectID(),
			PlanName:      "Pro",
			Status:        domain.SubscriptionInactive,
			InactiveSince: ptr(testNow.Add(-inactive)),
		}
	}
	day1 := mk(day + 2*time.Hour)
	day2 := mk(2*day + time.Hour)
	day3 := mk(3*day + 5*time.Hour)
	day7 := mk(7*day + 23*time.Hour)
	day9 := mk(9 * day)

	d := NewSubscriptionDunning(DefaultConfigs()[NameSubscriptionDunning], f.deps, &marketplaceStore{
		subscriptions: []*domain.Subscription{day1, day2, day3, day7, day9},
	})
	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Emitted)
	assert.ElementsMatch(t, []primitive.ObjectID{day1.UserID, day3.UserID, day7.UserID}, f.log.recipients(domain.TypeSubscriptionDunning))
}

func TestCertificatePending_AllAdmins(t *testing.T) {
	a1, a2 := primitive.NewObjectID(), primitive.NewObjectID()
	f := newFixture(a1, a2)
	pending := &domain.Enrollment{
		ID:          primitive.NewObjectID(),
		StudentID:   primitive.NewObjectID(),
		CourseID:    primitive.NewObjectID(),
		CourseTitle: "Intro to Go",
		Status:      domain.EnrollmentCompleted,
		CompletedAt: ptr(testNow.Add(-2 * day)),
	}
	issued := &domain.Enrollment{ID: primitive.NewObjectID(), Status: domain.EnrollmentCompleted, CompletedAt: ptr(testNow.Add(-2 * day)), CertificateIssued: true}
	recent := &domain.Enrollment{ID: primitive.NewObjectID(), Status: domain.EnrollmentCompleted, CompletedAt: ptr(testNow.Add(-time.Hour))}

	d := NewCertificatePending(DefaultConfigs()[NameCertificatePending], f.deps, &marketplaceStore{
		enrollments: []*domain.Enrollment{pending, issued, recent},
	})
	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunStats{Scanned: 1, Emitted: 2}, stats)
	assert.ElementsMatch(t, []primitive.ObjectID{a1, a2}, f.log.recipients(domain.TypeCertificatePending))
}

func TestJobApplicationFollowUp(t *testing.T) {
	f := newFixture()
	stale := &domain.JobApplication{
		ID:          primitive.NewObjectID(),
		JobID:       primitive.NewObjectID(),
		JobTitle:    "Barista",
		EmployerID:  primitive.NewObjectID(),
		ApplicantID: primitive.NewObjectID(),
		Status:      domain.JobApplicationPending,
		CreatedAt:   testNow.Add(-4 * day),
	}
	reviewed := &domain.JobApplication{ID: primitive.NewObjectID(), EmployerID: primitive.NewObjectID(), Status: "reviewed", CreatedAt: testNow.Add(-4 * day)}
	fresh := &domain.JobApplication{ID: primitive.NewObjectID(), EmployerID: primitive.NewObjectID(), Status: domain.JobApplicationPending, CreatedAt: testNow.Add(-day)}

	d := NewJobApplicationFollowUp(DefaultConfigs()[NameJobApplicationFollowUp], f.deps, &marketplaceStore{
		applications: []*domain.JobApplication{stale, reviewed, fresh},
	})
	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunStats{Scanned: 1, Emitted: 1}, stats)
	assert.Equal(t, []primitive.ObjectID{stale.EmployerID}, f.log.recipients(domain.TypeJobApplicationFollowUp))
}
