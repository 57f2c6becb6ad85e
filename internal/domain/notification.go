package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType is the closed set of notification kinds the platform emits
type NotificationType string

const (
	// Bookings
	TypeBookingCreated       NotificationType = "booking_created"
	TypeBookingConfirmed     NotificationType = "booking_confirmed"
	TypeBookingCancelled     NotificationType = "booking_cancelled"
	TypeBookingReminder      NotificationType = "booking_reminder"
	TypeBookingAutoConfirmed NotificationType = "booking_auto_confirmed"
	TypeBookingAutoCancelled NotificationType = "booking_auto_cancelled"
	TypeBookingOverdue       NotificationType = "booking_overdue"
	TypeReviewRequest        NotificationType = "review_request"

	// Payments, loans and salary advances
	TypePaymentReceived NotificationType = "payment_received"
	TypePaymentFailed   NotificationType = "payment_failed"
	TypeLoanApproved    NotificationType = "loan_approved"
	TypeLoanDueSoon     NotificationType = "loan_due_soon"
	TypeLoanOverdue     NotificationType = "loan_overdue"

	// Rentals
	TypeRentalConfirmed NotificationType = "rental_confirmed"
	TypeRentalDueSoon   NotificationType = "rental_due_soon"
	TypeRentalOverdue   NotificationType = "rental_overdue"

	// Orders and supplies
	TypeOrderPlaced           NotificationType = "order_placed"
	TypeOrderShipped          NotificationType = "order_shipped"
	TypeOrderDelivered        NotificationType = "order_delivered"
	TypeOrderAbandonedPayment NotificationType = "order_abandoned_payment"
	TypeOrderLateDelivery     NotificationType = "order_late_delivery"
	TypeOrderAutoDelivered    NotificationType = "order_auto_delivered"
	TypeSuppliesReorder       NotificationType = "supplies_reorder"

	// Jobs
	TypeJobApplicationReceived NotificationType = "job_application_received"
	TypeJobApplicationFollowUp NotificationType = "job_application_followup"

	// Academy
	TypeCourseEnrollment  NotificationType = "course_enrollment"
	TypeCertificateIssued NotificationType = "certificate_issued"

	// Messaging
	TypeMessageReceived    NotificationType = "message_received"
	TypeMessageUnreadNudge NotificationType = "message_unread_nudge"
	TypeMessageWarning     NotificationType = "message_warning"

	// Admin-facing alerts
	TypeMessageFlagged     NotificationType = "message_flagged"
	TypeLiveChatSLABreach  NotificationType = "live_chat_sla_breach"
	TypeOrderSLABreach     NotificationType = "order_sla_breach"
	TypeCertificatePending NotificationType = "certificate_pending"

	// Referrals and subscriptions
	TypeReferralTierUpgraded NotificationType = "referral_tier_upgraded"
	TypeSubscriptionDunning  NotificationType = "subscription_dunning"
	TypeSubscriptionRenewed  NotificationType = "subscription_renewed"

	// Listings
	TypeAdApproved NotificationType = "ad_approved"
	TypeAdRejected NotificationType = "ad_rejected"

	// Account and platform
	TypeSecurityAlert      NotificationType = "security_alert"
	TypeAccountUpdate      NotificationType = "account_update"
	TypeSystemUpdate       NotificationType = "system_update"
	TypeMarketingPromotion NotificationType = "marketing_promotion"
)

var allNotificationTypes = []NotificationType{
	TypeBookingCreated, TypeBookingConfirmed, TypeBookingCancelled, TypeBookingReminder,
	TypeBookingAutoConfirmed, TypeBookingAutoCancelled, TypeBookingOverdue, TypeReviewRequest,
	TypePaymentReceived, TypePaymentFailed, TypeLoanApproved, TypeLoanDueSoon, TypeLoanOverdue,
	TypeRentalConfirmed, TypeRentalDueSoon, TypeRentalOverdue,
	TypeOrderPlaced, TypeOrderShipped, TypeOrderDelivered, TypeOrderAbandonedPayment,
	TypeOrderLateDelivery, TypeOrderAutoDelivered, TypeSuppliesReorder,
	TypeJobApplicationReceived, TypeJobApplicationFollowUp,
	TypeCourseEnrollment, TypeCertificateIssued,
	TypeMessageReceived, TypeMessageUnreadNudge, TypeMessageWarning,
	TypeMessageFlagged, TypeLiveChatSLABreach, TypeOrderSLABreach, TypeCertificatePending,
	TypeReferralTierUpgraded, TypeSubscriptionDunning, TypeSubscriptionRenewed,
	TypeAdApproved, TypeAdRejected,
	TypeSecurityAlert, TypeAccountUpdate, TypeSystemUpdate, TypeMarketingPromotion,
}

// AllNotificationTypes returns every known notification type
func AllNotificationTypes() []NotificationType {
	out := make([]NotificationType, len(allNotificationTypes))
	copy(out, allNotificationTypes)
	return out
}

// IsKnown reports whether t belongs to the closed enum
func (t NotificationType) IsKnown() bool {
	for _, known := range allNotificationTypes {
		if known == t {
			return true
		}
	}
	return false
}

// Priority is the urgency attached to a notification
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the four priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Channel names a delivery channel
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Channels records which channels are enabled or were attempted
type Channels struct {
	InApp bool `json:"inApp" bson:"inApp"`
	Email bool `json:"email" bson:"email"`
	SMS   bool `json:"sms" bson:"sms"`
	Push  bool `json:"push" bson:"push"`
}

// Notification is the persisted in-app record and the dedup source of truth
type Notification struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Type      NotificationType   `json:"type" bson:"type"`
	Title     string             `json:"title" bson:"title"`
	Message   string             `json:"message" bson:"message"`
	Data      map[string]any     `json:"data,omitempty" bson:"data,omitempty"`
	Priority  Priority           `json:"priority" bson:"priority"`
	Channels  Channels           `json:"channels" bson:"channels"`
	IsRead    bool               `json:"isRead" bson:"isRead"`
	ReadAt    *time.Time         `json:"readAt,omitempty" bson:"readAt,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// EmailOptions tunes the email channel for a single send
type EmailOptions struct {
	Subject  string   `json:"subject,omitempty"`
	ReplyTo  string   `json:"replyTo,omitempty"`
	CC       []string `json:"cc,omitempty"`
	Template string   `json:"template,omitempty"`
}

// SMSOptions tunes the SMS channel for a single send
type SMSOptions struct {
	SenderID string `json:"senderId,omitempty"`
	Body     string `json:"body,omitempty"`
}

// SendRequest is the dispatcher call contract
type SendRequest struct {
	UserID        primitive.ObjectID
	Type          NotificationType
	Title         string
	Message       string
	Data          Payload
	Priority      Priority
	ForceChannels bool
	EmailOptions  *EmailOptions
	SMSOptions    *SMSOptions
}

// ChannelResult is the outcome of one channel attempt
type ChannelResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ChannelResults holds per-channel outcomes; nil means the channel was not attempted
type ChannelResults struct {
	Email *ChannelResult `json:"email,omitempty"`
	SMS   *ChannelResult `json:"sms,omitempty"`
	Push  *ChannelResult `json:"push,omitempty"`
}

// SendResult is the structured outcome of a dispatcher call
type SendResult struct {
	Success        bool           `json:"success"`
	Notification   *Notification  `json:"notification,omitempty"`
	ChannelResults ChannelResults `json:"channelResults"`
	Error          string         `json:"error,omitempty"`
}

// BulkRequest fans one notification out to many recipients
type BulkRequest struct {
	UserIDs  []primitive.ObjectID
	Type     NotificationType
	Title    string
	Message  string
	Data     Payload
	Priority Priority
	// ForceChannels is applied to every recipient
	ForceChannels bool
}

// BulkRecipientResult is the per-recipient outcome of a bulk send
type BulkRecipientResult struct {
	UserID         primitive.ObjectID `json:"userId"`
	Success        bool               `json:"success"`
	NotificationID string             `json:"notificationId,omitempty"`
	ChannelResults ChannelResults     `json:"channelResults"`
	Error          string             `json:"error,omitempty"`
}

// BulkResult aggregates a bulk send; SuccessCount+FailedCount == Total
type BulkResult struct {
	BatchID      string                `json:"batchId"`
	Total        int                   `json:"total"`
	SuccessCount int                   `json:"successCount"`
	FailedCount  int                   `json:"failedCount"`
	Results      []BulkRecipientResult `json:"results"`
}

// DedupQuery looks for a prior notification of the same logical event.
// Match keys are payload fields compared for equality; a zero Since means
// any prior notification counts.
type DedupQuery struct {
	UserID primitive.ObjectID
	Type   NotificationType
	Match  map[string]any
	Since  time.Time
}

// InboxFilter selects a page of a user's notifications
type InboxFilter struct {
	UserID     primitive.ObjectID
	UnreadOnly bool
	Type       NotificationType
	Page       int
	PageSize   int
}
