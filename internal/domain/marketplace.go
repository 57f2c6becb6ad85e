package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RangeQuery selects collaborator documents whose status is one of Statuses
// and whose time Field lies in [From, To). Zero bounds are open.
type RangeQuery struct {
	Statuses []string
	Field    string
	From     time.Time
	To       time.Time
	Limit    int
}

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
)

// Booking is a scheduled service appointment between a client and a provider
type Booking struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	ClientID    primitive.ObjectID `json:"clientId" bson:"clientId"`
	ProviderID  primitive.ObjectID `json:"providerId" bson:"providerId"`
	ServiceName string             `json:"serviceName" bson:"serviceName"`
	Status      BookingStatus      `json:"status" bson:"status"`
	BookingDate time.Time          `json:"bookingDate" bson:"bookingDate"`
	Duration    int                `json:"duration" bson:"duration"` // minutes
	AutoConfirm bool               `json:"autoConfirm" bson:"autoConfirm"`
	CompletedAt *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// EndsAt is the scheduled end of the appointment
func (b *Booking) EndsAt() time.Time {
	return b.BookingDate.Add(time.Duration(b.Duration) * time.Minute)
}

// Participants returns the client and the provider
func (b *Booking) Participants() []primitive.ObjectID {
	return []primitive.ObjectID{b.ClientID, b.ProviderID}
}

// Review is a client review left on a completed booking
type Review struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	BookingID primitive.ObjectID `json:"bookingId" bson:"bookingId"`
	Rating    int                `json:"rating" bson:"rating"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderProcessing     OrderStatus = "processing"
	OrderShipped        OrderStatus = "shipped"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

// Order kinds
const (
	OrderKindProduct  = "product"
	OrderKindSupplies = "supplies"
)

// Order is a marketplace purchase
type Order struct {
	ID                primitive.ObjectID `json:"id" bson:"_id"`
	CustomerID        primitive.ObjectID `json:"customerId" bson:"customerId"`
	OrderNumber       string             `json:"orderNumber" bson:"orderNumber"`
	Kind              string             `json:"kind" bson:"kind"`
	Status            OrderStatus        `json:"status" bson:"status"`
	PaymentStatus     string             `json:"paymentStatus" bson:"paymentStatus"`
	Total             float64            `json:"total" bson:"total"`
	ShippedAt         *time.Time         `json:"shippedAt,omitempty" bson:"shippedAt,omitempty"`
	DeliveredAt       *time.Time         `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	DeliveryConfirmed bool               `json:"deliveryConfirmed" bson:"deliveryConfirmed"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// PaymentPaid marks an order whose payment was captured
const PaymentPaid = "paid"

// OrderQuery narrows a RangeQuery over orders
type OrderQuery struct {
	RangeQuery
	Kind          string
	PaymentStatus string
	// UnconfirmedOnly excludes orders whose delivery was confirmed
	UnconfirmedOnly bool
}

// Loan kinds
const (
	LoanKindLoan          = "loan"
	LoanKindSalaryAdvance = "salary_advance"
)

// Installment is one scheduled repayment
type Installment struct {
	Number  int       `json:"number" bson:"number"`
	DueDate time.Time `json:"dueDate" bson:"dueDate"`
	Amount  float64   `json:"amount" bson:"amount"`
	Paid    bool      `json:"paid" bson:"paid"`
}

// Loan is a loan or salary advance with its repayment schedule
type Loan struct {
	ID           primitive.ObjectID `json:"id" bson:"_id"`
	BorrowerID   primitive.ObjectID `json:"borrowerId" bson:"borrowerId"`
	Kind         string             `json:"kind" bson:"kind"`
	Status       string             `json:"status" bson:"status"`
	Amount       float64            `json:"amount" bson:"amount"`
	Installments []Installment      `json:"installments" bson:"installments"`
}

// UnpaidDueBetween returns unpaid installments due in [from, to)
func (l *Loan) UnpaidDueBetween(from, to time.Time) []Installment {
	var out []Installment
	for _, in := range l.Installments {
		if in.Paid || in.DueDate.Before(from) || !in.DueDate.Before(to) {
			continue
		}
		out = append(out, in)
	}
	return out
}

// RentalStatus is the lifecycle state of a rental
type RentalStatus string

const (
	RentalActive   RentalStatus = "active"
	RentalReturned RentalStatus = "returned"
)

// RentalPeriod bounds a rental
type RentalPeriod struct {
	StartDate time.Time `json:"startDate" bson:"startDate"`
	EndDate   time.Time `json:"endDate" bson:"endDate"`
}

// Rental is an item rented from an owner
type Rental struct {
	ID           primitive.ObjectID `json:"id" bson:"_id"`
	RenterID     primitive.ObjectID `json:"renterId" bson:"renterId"`
	OwnerID      primitive.ObjectID `json:"ownerId" bson:"ownerId"`
	ItemName     string             `json:"itemName" bson:"itemName"`
	Status       RentalStatus       `json:"status" bson:"status"`
	RentalPeriod RentalPeriod       `json:"rentalPeriod" bson:"rentalPeriod"`
}

// Enrollment is a student's enrollment in a course
type Enrollment struct {
	ID                primitive.ObjectID `json:"id" bson:"_id"`
	StudentID         primitive.ObjectID `json:"studentId" bson:"studentId"`
	CourseID          primitive.ObjectID `json:"courseId" bson:"courseId"`
	CourseTitle       string             `json:"courseTitle" bson:"courseTitle"`
	Status            string             `json:"status" bson:"status"`
	CompletedAt       *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CertificateIssued bool               `json:"certificateIssued" bson:"certificateIssued"`
}

// EnrollmentCompleted is the status of a finished enrollment
const EnrollmentCompleted = "completed"

// LiveChatSession is a support chat waiting for or handled by an admin
type LiveChatSession struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Subject   string             `json:"subject" bson:"subject"`
	Status    string             `json:"status" bson:"status"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// LiveChatPending is the status of an unanswered session
const LiveChatPending = "pending"

// Conversation is a direct message thread
type Conversation struct {
	ID           primitive.ObjectID   `json:"id" bson:"_id"`
	Participants []primitive.ObjectID `json:"participants" bson:"participants"`
}

// Message is one message inside a conversation
type Message struct {
	ID             primitive.ObjectID   `json:"id" bson:"_id"`
	ConversationID primitive.ObjectID   `json:"conversationId" bson:"conversationId"`
	SenderID       primitive.ObjectID   `json:"senderId" bson:"senderId"`
	Content        string               `json:"content" bson:"content"`
	ReadBy         []primitive.ObjectID `json:"readBy" bson:"readBy"`
	CreatedAt      time.Time            `json:"createdAt" bson:"createdAt"`
}

// ReadByUser reports whether id is in ReadBy
func (m *Message) ReadByUser(id primitive.ObjectID) bool {
	for _, r := range m.ReadBy {
		if r == id {
			return true
		}
	}
	return false
}

// Referral tiers that earn a milestone notification
const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// ReferralProfile tracks a user's referral tier
type ReferralProfile struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	UserID         primitive.ObjectID `json:"userId" bson:"userId"`
	Tier           string             `json:"tier" bson:"tier"`
	TotalReferrals int                `json:"totalReferrals" bson:"totalReferrals"`
	TierUpdatedAt  *time.Time         `json:"tierUpdatedAt,omitempty" bson:"tierUpdatedAt,omitempty"`
}

// Subscription is a paid plan
type Subscription struct {
	ID            primitive.ObjectID `json:"id" bson:"_id"`
	UserID        primitive.ObjectID `json:"userId" bson:"userId"`
	PlanName      string             `json:"planName" bson:"planName"`
	Status        string             `json:"status" bson:"status"`
	InactiveSince *time.Time         `json:"inactiveSince,omitempty" bson:"inactiveSince,omitempty"`
}

// SubscriptionInactive is the status of a lapsed subscription
const SubscriptionInactive = "inactive"

// JobApplication is an applicant's application to an employer's job
type JobApplication struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	JobID       primitive.ObjectID `json:"jobId" bson:"jobId"`
	JobTitle    string             `json:"jobTitle" bson:"jobTitle"`
	EmployerID  primitive.ObjectID `json:"employerId" bson:"employerId"`
	ApplicantID primitive.ObjectID `json:"applicantId" bson:"applicantId"`
	Status      string             `json:"status" bson:"status"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// JobApplicationPending is the status of an application nobody reviewed yet
const JobApplicationPending = "pending"
