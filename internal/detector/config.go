package detector

import (
	"time"
)

// Detector names, also the configuration keys under "detectors"
const (
	NameBookingReminder        = "booking_reminder"
	NameBookingAutoTransition  = "booking_auto_transition"
	NameBookingOverdue         = "booking_overdue"
	NameReviewRequest          = "review_request"
	NameLoanDueSoon            = "loan_due_soon"
	NameLoanOverdue            = "loan_overdue"
	NameRentalDueSoon          = "rental_due_soon"
	NameRentalOverdue          = "rental_overdue"
	NameSuppliesReorder        = "supplies_reorder"
	NameOrderAbandonedPayment  = "order_abandoned_payment"
	NameOrderLateDelivery      = "order_late_delivery"
	NameOrderAutoDeliver       = "order_auto_deliver"
	NameJobApplicationFollowUp = "job_application_followup"
	NameLiveChatSLA            = "live_chat_sla"
	NameMessageNudge           = "message_nudge"
	NameMessageModeration      = "message_moderation"
	NameReferralMilestone      = "referral_milestone"
	NameSubscriptionDunning    = "subscription_dunning"
	NameCertificatePending     = "certificate_pending"
)

// Config is the per-detector configuration surface. Not every detector
// reads every field; unused fields are ignored.
type Config struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Schedule string `mapstructure:"schedule" json:"schedule" validate:"required_if=Enabled true"`
	// DedupWindow of zero suppresses a repeat forever
	DedupWindow        time.Duration `mapstructure:"dedup_window" json:"dedupWindow"`
	ResultLimit        int           `mapstructure:"result_limit" json:"resultLimit" validate:"gte=0"`
	Lookback           time.Duration `mapstructure:"lookback" json:"lookback"`
	Threshold          time.Duration `mapstructure:"threshold" json:"threshold"`
	SecondaryThreshold time.Duration `mapstructure:"secondary_threshold" json:"secondaryThreshold"`
	MinAge             time.Duration `mapstructure:"min_age" json:"minAge"`
	MaxAge             time.Duration `mapstructure:"max_age" json:"maxAge"`
	DaysBefore         int           `mapstructure:"days_before" json:"daysBefore" validate:"gte=0"`
	ReminderDays       []int         `mapstructure:"reminder_days" json:"reminderDays,omitempty"`
	NotifyAdmins       bool          `mapstructure:"notify_admins" json:"notifyAdmins"`
	NotifyOwner        bool          `mapstructure:"notify_owner" json:"notifyOwner"`
	WarnSender         bool          `mapstructure:"warn_sender" json:"warnSender"`
	QueryTimeout       time.Duration `mapstructure:"query_timeout" json:"queryTimeout"`
}

const (
	day                 = 24 * time.Hour
	defaultResultLimit  = 500
	defaultQueryTimeout = 30 * time.Second
)

func defaultConfig(schedule string, dedup time.Duration) Config {
	return Config{
		Enabled:      true,
		Schedule:     schedule,
		DedupWindow:  dedup,
		ResultLimit:  defaultResultLimit,
		QueryTimeout: defaultQueryTimeout,
	}
}

// DefaultConfigs returns the built-in configuration of every detector
func DefaultConfigs() map[string]Config {
	m := make(map[string]Config)

	c := defaultConfig("@every 15m", 26*time.Hour)
	c.Lookback = 15 * time.Minute
	m[NameBookingReminder] = c

	c = defaultConfig("@every 30m", 0)
	c.Threshold = day
	c.MaxAge = 2 * day
	m[NameBookingAutoTransition] = c

	c = defaultConfig("@every 10m", day)
	c.Threshold = 30 * time.Minute
	m[NameBookingOverdue] = c

	c = defaultConfig("0 10 * * *", 0)
	c.MinAge = 3 * day
	c.MaxAge = 7 * day
	m[NameReviewRequest] = c

	c = defaultConfig("0 8 * * *", day)
	c.DaysBefore = 3
	m[NameLoanDueSoon] = c

	c = defaultConfig("0 9 * * *", day)
	c.Lookback = 30 * day
	m[NameLoanOverdue] = c

	c = defaultConfig("0 8 * * *", day)
	c.DaysBefore = 1
	c.NotifyOwner = true
	m[NameRentalDueSoon] = c

	c = defaultConfig("0 9 * * *", day)
	c.Lookback = 14 * day
	c.NotifyOwner = true
	m[NameRentalOverdue] = c

	c = defaultConfig("0 11 * * 1", 30*day)
	c.Threshold = 30 * day
	m[NameSuppliesReorder] = c

	c = defaultConfig("@every 1h", 0)
	c.MinAge = time.Hour
	c.MaxAge = day
	m[NameOrderAbandonedPayment] = c

	c = defaultConfig("@every 1h", day)
	c.Threshold = 2 * day
	c.SecondaryThreshold = 7 * day
	c.NotifyAdmins = true
	m[NameOrderLateDelivery] = c

	c = defaultConfig("0 3 * * *", 0)
	c.Threshold = 14 * day
	m[NameOrderAutoDeliver] = c

	c = defaultConfig("0 10 * * *", 7*day)
	c.Threshold = 3 * day
	m[NameJobApplicationFollowUp] = c

	c = defaultConfig("@every 5m", day)
	c.Threshold = 10 * time.Minute
	m[NameLiveChatSLA] = c

	c = defaultConfig("@every 30m", 6*time.Hour)
	c.Threshold = time.Hour
	c.Lookback = day
	m[NameMessageNudge] = c

	c = defaultConfig("@every 10m", 0)
	c.Lookback = 15 * time.Minute
	c.WarnSender = true
	m[NameMessageModeration] = c

	c = defaultConfig("@every 1h", 0)
	c.Lookback = 2 * time.Hour
	m[NameReferralMilestone] = c

	c = defaultConfig("0 9 * * *", 0)
	c.ReminderDays = []int{1, 3, 7}
	m[NameSubscriptionDunning] = c

	c = defaultConfig("0 */6 * * *", 3*day)
	c.Threshold = day
	m[NameCertificatePending] = c

	return m
}
