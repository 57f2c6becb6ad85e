package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Preference categories. Email and push use the notification category;
// SMS uses a narrower SMS category set.
const (
	CategoryBookingUpdates      = "bookingUpdates"
	CategoryPaymentUpdates      = "paymentUpdates"
	CategoryLoanUpdates         = "loanUpdates"
	CategoryRentalUpdates       = "rentalUpdates"
	CategoryOrderUpdates        = "orderUpdates"
	CategoryJobUpdates          = "jobUpdates"
	CategoryCourseUpdates       = "courseUpdates"
	CategoryMessages            = "messages"
	CategoryReviewRequests      = "reviewRequests"
	CategoryReferralUpdates     = "referralUpdates"
	CategorySubscriptionUpdates = "subscriptionUpdates"
	CategoryListingUpdates      = "listingUpdates"
	CategoryAdminAlerts         = "adminAlerts"
	CategorySecurityAlerts      = "securityAlerts"
	CategorySystemUpdates       = "systemUpdates"
	CategoryMarketing           = "marketing"

	SMSCategoryBookingReminders = "bookingReminders"
	SMSCategoryPaymentReminders = "paymentReminders"
	SMSCategoryRentalReminders  = "rentalReminders"
	SMSCategoryOrderUpdates     = "orderUpdates"
	SMSCategoryAdminAlerts      = "adminAlerts"
	SMSCategorySecurityAlerts   = "securityAlerts"
)

// Categories lists every email/push category
var Categories = []string{
	CategoryBookingUpdates, CategoryPaymentUpdates, CategoryLoanUpdates, CategoryRentalUpdates,
	CategoryOrderUpdates, CategoryJobUpdates, CategoryCourseUpdates, CategoryMessages,
	CategoryReviewRequests, CategoryReferralUpdates, CategorySubscriptionUpdates,
	CategoryListingUpdates, CategoryAdminAlerts, CategorySecurityAlerts, CategorySystemUpdates,
	CategoryMarketing,
}

// SMSCategories lists every SMS category
var SMSCategories = []string{
	SMSCategoryBookingReminders, SMSCategoryPaymentReminders, SMSCategoryRentalReminders,
	SMSCategoryOrderUpdates, SMSCategoryAdminAlerts, SMSCategorySecurityAlerts,
}

// ChannelPreference is one channel's switch plus per-category opt-ins
type ChannelPreference struct {
	Enabled    bool            `json:"enabled" bson:"enabled"`
	Categories map[string]bool `json:"categories" bson:"categories"`
}

// Allows reports whether the channel is on for category. A category the
// user never set falls back to the default policy.
func (c ChannelPreference) Allows(category string) bool {
	if !c.Enabled || category == "" {
		return false
	}
	if v, ok := c.Categories[category]; ok {
		return v
	}
	return DefaultCategoryValue(category)
}

// NotificationPreferences represents user notification preferences.
// In-app delivery has no preference.
type NotificationPreferences struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Email     ChannelPreference  `json:"email" bson:"email"`
	SMS       ChannelPreference  `json:"sms" bson:"sms"`
	Push      ChannelPreference  `json:"push" bson:"push"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// DefaultCategoryValue is the opt-in for a category with no explicit setting
func DefaultCategoryValue(category string) bool {
	return category != CategoryMarketing
}

func defaultCategories(keys []string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = DefaultCategoryValue(k)
	}
	return m
}

// DefaultPreferences returns the policy used when a user has no stored
// preferences: every channel on, every category on except marketing.
func DefaultPreferences(userID primitive.ObjectID) *NotificationPreferences {
	return &NotificationPreferences{
		UserID: userID,
		Email:  ChannelPreference{Enabled: true, Categories: defaultCategories(Categories)},
		SMS:    ChannelPreference{Enabled: true, Categories: defaultCategories(SMSCategories)},
		Push:   ChannelPreference{Enabled: true, Categories: defaultCategories(Categories)},
	}
}

// WithDefaults returns a copy whose category maps are filled in from the
// default policy for keys the user never set
func (p *NotificationPreferences) WithDefaults() *NotificationPreferences {
	out := *p
	out.Email.Categories = mergeCategories(p.Email.Categories, Categories)
	out.SMS.Categories = mergeCategories(p.SMS.Categories, SMSCategories)
	out.Push.Categories = mergeCategories(p.Push.Categories, Categories)
	return &out
}

func mergeCategories(set map[string]bool, keys []string) map[string]bool {
	m := defaultCategories(keys)
	for k, v := range set {
		m[k] = v
	}
	return m
}
