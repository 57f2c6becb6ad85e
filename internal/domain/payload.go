package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payload is the typed data attached to a notification. Each notification
// type has one payload shape, registered in PayloadSchemas.
type Payload interface {
	Kind() string
}

// BookingPayload describes a booking event
type BookingPayload struct {
	BookingID      primitive.ObjectID `json:"bookingId" bson:"bookingId"`
	ServiceName    string             `json:"serviceName,omitempty" bson:"serviceName,omitempty"`
	BookingDate    time.Time          `json:"bookingDate" bson:"bookingDate"`
	Status         string             `json:"status,omitempty" bson:"status,omitempty"`
	PreviousStatus string             `json:"previousStatus,omitempty" bson:"previousStatus,omitempty"`
	ReminderKind   string             `json:"reminderKind,omitempty" bson:"reminderKind,omitempty"`
}

func (BookingPayload) Kind() string { return "booking" }

// OrderPayload describes an order event
type OrderPayload struct {
	OrderID     primitive.ObjectID `json:"orderId" bson:"orderId"`
	OrderNumber string             `json:"orderNumber,omitempty" bson:"orderNumber,omitempty"`
	Status      string             `json:"status,omitempty" bson:"status,omitempty"`
	Total       float64            `json:"total,omitempty" bson:"total,omitempty"`
	AgeHours    int                `json:"ageHours,omitempty" bson:"ageHours,omitempty"`
}

func (OrderPayload) Kind() string { return "order" }

// LoanPayload describes an installment event; DueDate is the calendar day
type LoanPayload struct {
	LoanID            primitive.ObjectID `json:"loanId" bson:"loanId"`
	LoanKind          string             `json:"loanKind,omitempty" bson:"loanKind,omitempty"`
	InstallmentNumber int                `json:"installmentNumber" bson:"installmentNumber"`
	DueDate           string             `json:"dueDate" bson:"dueDate"`
	Amount            float64            `json:"amount" bson:"amount"`
	DaysOverdue       int                `json:"daysOverdue,omitempty" bson:"daysOverdue,omitempty"`
}

func (LoanPayload) Kind() string { return "loan" }

// RentalPayload describes a rental event; EndDate is the calendar day
type RentalPayload struct {
	RentalID    primitive.ObjectID `json:"rentalId" bson:"rentalId"`
	ItemName    string             `json:"itemName,omitempty" bson:"itemName,omitempty"`
	EndDate     string             `json:"endDate" bson:"endDate"`
	DaysOverdue int                `json:"daysOverdue,omitempty" bson:"daysOverdue,omitempty"`
}

func (RentalPayload) Kind() string { return "rental" }

// EnrollmentPayload describes a course enrollment or certificate event
type EnrollmentPayload struct {
	EnrollmentID primitive.ObjectID `json:"enrollmentId" bson:"enrollmentId"`
	CourseID     primitive.ObjectID `json:"courseId" bson:"courseId"`
	CourseTitle  string             `json:"courseTitle,omitempty" bson:"courseTitle,omitempty"`
	StudentID    primitive.ObjectID `json:"studentId" bson:"studentId"`
}

func (EnrollmentPayload) Kind() string { return "enrollment" }

// ChatSessionPayload describes a live chat support session
type ChatSessionPayload struct {
	SessionID      primitive.ObjectID `json:"sessionId" bson:"sessionId"`
	UserID         primitive.ObjectID `json:"userId" bson:"userId"`
	Subject        string             `json:"subject,omitempty" bson:"subject,omitempty"`
	WaitingMinutes int                `json:"waitingMinutes" bson:"waitingMinutes"`
}

func (ChatSessionPayload) Kind() string { return "chat_session" }

// MessagePayload describes a direct message event
type MessagePayload struct {
	ConversationID primitive.ObjectID `json:"conversationId" bson:"conversationId"`
	MessageID      primitive.ObjectID `json:"messageId" bson:"messageId"`
	SenderID       primitive.ObjectID `json:"senderId" bson:"senderId"`
	Reason         string             `json:"reason,omitempty" bson:"reason,omitempty"`
	Preview        string             `json:"preview,omitempty" bson:"preview,omitempty"`
}

func (MessagePayload) Kind() string { return "message" }

// ReferralPayload describes a referral tier change
type ReferralPayload struct {
	Tier           string `json:"tier" bson:"tier"`
	TotalReferrals int    `json:"totalReferrals" bson:"totalReferrals"`
}

func (ReferralPayload) Kind() string { return "referral" }

// SubscriptionPayload describes a subscription event
type SubscriptionPayload struct {
	SubscriptionID primitive.ObjectID `json:"subscriptionId" bson:"subscriptionId"`
	PlanName       string             `json:"planName,omitempty" bson:"planName,omitempty"`
	DaysInactive   int                `json:"daysInactive,omitempty" bson:"daysInactive,omitempty"`
}

func (SubscriptionPayload) Kind() string { return "subscription" }

// JobApplicationPayload describes a job application event
type JobApplicationPayload struct {
	ApplicationID primitive.ObjectID `json:"applicationId" bson:"applicationId"`
	JobID         primitive.ObjectID `json:"jobId" bson:"jobId"`
	JobTitle      string             `json:"jobTitle,omitempty" bson:"jobTitle,omitempty"`
	ApplicantID   primitive.ObjectID `json:"applicantId" bson:"applicantId"`
}

func (JobApplicationPayload) Kind() string { return "job_application" }

// SecurityPayload describes an account or security event
type SecurityPayload struct {
	Event     string `json:"event" bson:"event"`
	IPAddress string `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	Device    string `json:"device,omitempty" bson:"device,omitempty"`
}

func (SecurityPayload) Kind() string { return "security" }

// RawPayload carries free-form data for types with no fixed shape
type RawPayload map[string]any

func (RawPayload) Kind() string { return "raw" }

// PayloadSchemas maps each notification type to the payload shape stored
// in its data field. Types not listed carry a RawPayload.
//
//	bookings, reviews           BookingPayload
//	orders, supplies, order SLA OrderPayload
//	loans, payments on loans    LoanPayload
//	rentals                     RentalPayload
//	courses, certificates       EnrollmentPayload
//	live chat SLA               ChatSessionPayload
//	messaging, moderation       MessagePayload
//	referral tiers              ReferralPayload
//	subscriptions               SubscriptionPayload
//	job applications            JobApplicationPayload
//	security, account           SecurityPayload
var PayloadSchemas = map[NotificationType]func() Payload{
	TypeBookingCreated:         func() Payload { return &BookingPayload{} },
	TypeBookingConfirmed:       func() Payload { return &BookingPayload{} },
	TypeBookingCancelled:       func() Payload { return &BookingPayload{} },
	TypeBookingReminder:        func() Payload { return &BookingPayload{} },
	TypeBookingAutoConfirmed:   func() Payload { return &BookingPayload{} },
	TypeBookingAutoCancelled:   func() Payload { return &BookingPayload{} },
	TypeBookingOverdue:         func() Payload { return &BookingPayload{} },
	TypeReviewRequest:          func() Payload { return &BookingPayload{} },
	TypeLoanApproved:           func() Payload { return &LoanPayload{} },
	TypeLoanDueSoon:            func() Payload { return &LoanPayload{} },
	TypeLoanOverdue:            func() Payload { return &LoanPayload{} },
	TypeRentalConfirmed:        func() Payload { return &RentalPayload{} },
	TypeRentalDueSoon:          func() Payload { return &RentalPayload{} },
	TypeRentalOverdue:          func() Payload { return &RentalPayload{} },
	TypeOrderPlaced:            func() Payload { return &OrderPayload{} },
	TypeOrderShipped:           func() Payload { return &OrderPayload{} },
	TypeOrderDelivered:         func() Payload { return &OrderPayload{} },
	TypeOrderAbandonedPayment:  func() Payload { return &OrderPayload{} },
	TypeOrderLateDelivery:      func() Payload { return &OrderPayload{} },
	TypeOrderAutoDelivered:     func() Payload { return &OrderPayload{} },
	TypeOrderSLABreach:         func() Payload { return &OrderPayload{} },
	TypeSuppliesReorder:        func() Payload { return &OrderPayload{} },
	TypeJobApplicationReceived: func() Payload { return &JobApplicationPayload{} },
	TypeJobApplicationFollowUp: func() Payload { return &JobApplicationPayload{} },
	TypeCourseEnrollment:       func() Payload { return &EnrollmentPayload{} },
	TypeCertificateIssued:      func() Payload { return &EnrollmentPayload{} },
	TypeCertificatePending:     func() Payload { return &EnrollmentPayload{} },
	TypeLiveChatSLABreach:      func() Payload { return &ChatSessionPayload{} },
	TypeMessageReceived:        func() Payload { return &MessagePayload{} },
	TypeMessageUnreadNudge:     func() Payload { return &MessagePayload{} },
	TypeMessageWarning:         func() Payload { return &MessagePayload{} },
	TypeMessageFlagged:         func() Payload { return &MessagePayload{} },
	TypeReferralTierUpgraded:   func() Payload { return &ReferralPayload{} },
	TypeSubscriptionDunning:    func() Payload { return &SubscriptionPayload{} },
	TypeSubscriptionRenewed:    func() Payload { return &SubscriptionPayload{} },
	TypeSecurityAlert:          func() Payload { return &SecurityPayload{} },
	TypeAccountUpdate:          func() Payload { return &SecurityPayload{} },
}

// PayloadToData converts a payload into the document persisted on the
// notification. A nil payload yields nil.
func PayloadToData(p Payload) (map[string]any, error) {
	switch v := p.(type) {
	case nil:
		return nil, nil
	case RawPayload:
		return map[string]any(v), nil
	case *RawPayload:
		if v == nil {
			return nil, nil
		}
		return map[string]any(*v), nil
	}

	raw, err := bson.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", p.Kind(), err)
	}
	var data map[string]any
	if err := bson.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", p.Kind(), err)
	}
	return data, nil
}

// DecodePayload converts a stored data document back into the payload
// registered for t
func DecodePayload(t NotificationType, data map[string]any) (Payload, error) {
	schema, ok := PayloadSchemas[t]
	if !ok {
		return RawPayload(data), nil
	}
	p := schema()
	if len(data) == 0 {
		return p, nil
	}
	raw, err := bson.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s data: %w", t, err)
	}
	if err := bson.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("failed to decode %s data: %w", t, err)
	}
	return p, nil
}

// DecodeJSONPayload converts event data received as JSON into the payload
// registered for t. ObjectIDs arrive as hex strings and times as RFC 3339.
func DecodeJSONPayload(t NotificationType, data map[string]any) (Payload, error) {
	schema, ok := PayloadSchemas[t]
	if !ok {
		return RawPayload(data), nil
	}
	p := schema()
	if len(data) == 0 {
		return p, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s data: %w", t, err)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("failed to decode %s data: %w", t, err)
	}
	return p, nil
}
