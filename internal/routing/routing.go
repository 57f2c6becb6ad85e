// Package routing maps notification types to preference categories and
// decides which delivery channels a notification goes out on.
package routing

import (
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entry is the static routing policy of one notification type
type Entry struct {
	Category        string
	SMSCategory     string // empty when the type never goes out by SMS
	DefaultPriority domain.Priority
}

// Fallback is used for types missing from the table
var Fallback = Entry{Category: domain.CategorySystemUpdates, DefaultPriority: domain.PriorityMedium}

func entry(category, smsCategory string, priority domain.Priority) Entry {
	return Entry{Category: category, SMSCategory: smsCategory, DefaultPriority: priority}
}

var table = map[domain.NotificationType]Entry{
	domain.TypeBookingCreated:       entry(domain.CategoryBookingUpdates, "", domain.PriorityMedium),
	domain.TypeBookingConfirmed:     entry(domain.CategoryBookingUpdates, domain.SMSCategoryBookingReminders, domain.PriorityHigh),
	domain.TypeBookingCancelled:     entry(domain.CategoryBookingUpdates, domain.SMSCategoryBookingReminders, domain.PriorityHigh),
	domain.TypeBookingReminder:      entry(domain.CategoryBookingUpdates, domain.SMSCategoryBookingReminders, domain.PriorityHigh),
	domain.TypeBookingAutoConfirmed: entry(domain.CategoryBookingUpdates, domain.SMSCategoryBookingReminders, domain.PriorityMedium),
	domain.TypeBookingAutoCancelled: entry(domain.CategoryBookingUpdates, domain.SMSCategoryBookingReminders, domain.PriorityHigh),
	domain.TypeBookingOverdue:       entry(domain.CategoryBookingUpdates, domain.SMSCategoryBookingReminders, domain.PriorityHigh),
	domain.TypeReviewRequest:        entry(domain.CategoryReviewRequests, "", domain.PriorityLow),

	domain.TypePaymentReceived: entry(domain.CategoryPaymentUpdates, "", domain.PriorityMedium),
	domain.TypePaymentFailed:   entry(domain.CategoryPaymentUpdates, domain.SMSCategoryPaymentReminders, domain.PriorityHigh),
	domain.TypeLoanApproved:    entry(domain.CategoryLoanUpdates, "", domain.PriorityMedium),
	domain.TypeLoanDueSoon:     entry(domain.CategoryLoanUpdates, domain.SMSCategoryPaymentReminders, domain.PriorityHigh),
	domain.TypeLoanOverdue:     entry(domain.CategoryLoanUpdates, domain.SMSCategoryPaymentReminders, domain.PriorityUrgent),

	domain.TypeRentalConfirmed: entry(domain.CategoryRentalUpdates, "", domain.PriorityMedium),
	domain.TypeRentalDueSoon:   entry(domain.CategoryRentalUpdates, domain.SMSCategoryRentalReminders, domain.PriorityMedium),
	domain.TypeRentalOverdue:   entry(domain.CategoryRentalUpdates, domain.SMSCategoryRentalReminders, domain.PriorityHigh),

	domain.TypeOrderPlaced:           entry(domain.CategoryOrderUpdates, "", domain.PriorityMedium),
	domain.TypeOrderShipped:          entry(domain.CategoryOrderUpdates, domain.SMSCategoryOrderUpdates, domain.PriorityMedium),
	domain.TypeOrderDelivered:        entry(domain.CategoryOrderUpdates, domain.SMSCategoryOrderUpdates, domain.PriorityMedium),
	domain.TypeOrderAbandonedPayment: entry(domain.CategoryOrderUpdates, "", domain.PriorityLow),
	domain.TypeOrderLateDelivery:     entry(domain.CategoryOrderUpdates, domain.SMSCategoryOrderUpdates, domain.PriorityHigh),
	domain.TypeOrderAutoDelivered:    entry(domain.CategoryOrderUpdates, domain.SMSCategoryOrderUpdates, domain.PriorityMedium),
	domain.TypeSuppliesReorder:       entry(domain.CategoryOrderUpdates, "", domain.PriorityLow),

	domain.TypeJobApplicationReceived: entry(domain.CategoryJobUpdates, "", domain.PriorityMedium),
	domain.TypeJobApplicationFollowUp: entry(domain.CategoryJobUpdates, "", domain.PriorityMedium),

	domain.TypeCourseEnrollment:  entry(domain.CategoryCourseUpdates, "", domain.PriorityMedium),
	domain.TypeCertificateIssued: entry(domain.CategoryCourseUpdates, "", domain.PriorityMedium),

	domain.TypeMessageReceived:    entry(domain.CategoryMessages, "", domain.PriorityMedium),
	domain.TypeMessageUnreadNudge: entry(domain.CategoryMessages, "", domain.PriorityLow),
	domain.TypeMessageWarning:     entry(domain.CategoryMessages, "", domain.PriorityHigh),

	domain.TypeMessageFlagged:     entry(domain.CategoryAdminAlerts, "", domain.PriorityHigh),
	domain.TypeLiveChatSLABreach:  entry(domain.CategoryAdminAlerts, domain.SMSCategoryAdminAlerts, domain.PriorityUrgent),
	domain.TypeOrderSLABreach:     entry(domain.CategoryAdminAlerts, "", domain.PriorityHigh),
	domain.TypeCertificatePending: entry(domain.CategoryAdminAlerts, "", domain.PriorityMedium),

	domain.TypeReferralTierUpgraded: entry(domain.CategoryReferralUpdates, "", domain.PriorityMedium),
	domain.TypeSubscriptionDunning:  entry(domain.CategorySubscriptionUpdates, domain.SMSCategoryPaymentReminders, domain.PriorityHigh),
	domain.TypeSubscriptionRenewed:  entry(domain.CategorySubscriptionUpdates, "", domain.PriorityLow),

	domain.TypeAdApproved: entry(domain.CategoryListingUpdates, "", domain.PriorityMedium),
	domain.TypeAdRejected: entry(domain.CategoryListingUpdates, "", domain.PriorityMedium),

	domain.TypeSecurityAlert:      entry(domain.CategorySecurityAlerts, domain.SMSCategorySecurityAlerts, domain.PriorityUrgent),
	domain.TypeAccountUpdate:      entry(domain.CategorySecurityAlerts, "", domain.PriorityMedium),
	domain.TypeSystemUpdate:       entry(domain.CategorySystemUpdates, "", domain.PriorityLow),
	domain.TypeMarketingPromotion: entry(domain.CategoryMarketing, "", domain.PriorityLow),
}

// Lookup returns the routing entry for t, or Fallback
func Lookup(t domain.NotificationType) Entry {
	if e, ok := table[t]; ok {
		return e
	}
	return Fallback
}

// Has reports whether t has an explicit table entry
func Has(t domain.NotificationType) bool {
	_, ok := table[t]
	return ok
}

// ResolveChannels decides the enabled channels for one notification.
// In-app is always on; forceAll turns every channel on regardless of
// preferences.
func ResolveChannels(prefs *domain.NotificationPreferences, e Entry, forceAll bool) domain.Channels {
	if forceAll {
		return domain.Channels{InApp: true, Email: true, SMS: true, Push: true}
	}
	if prefs == nil {
		prefs = domain.DefaultPreferences(primitive.NilObjectID)
	}
	return domain.Channels{
		InApp: true,
		Email: prefs.Email.Allows(e.Category),
		SMS:   e.SMSCategory != "" && prefs.SMS.Allows(e.SMSCategory),
		Push:  prefs.Push.Allows(e.Category),
	}
}
