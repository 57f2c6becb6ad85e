package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is a user's platform role
type Role string

const (
	RoleUser     Role = "user"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// User is the recipient-facing slice of the users collection
type User struct {
	ID         primitive.ObjectID `json:"id" bson:"_id"`
	Name       string             `json:"name" bson:"name"`
	Email      string             `json:"email,omitempty" bson:"email,omitempty"`
	Phone      string             `json:"phone,omitempty" bson:"phone,omitempty"`
	PushTokens []string           `json:"pushTokens,omitempty" bson:"pushTokens,omitempty"`
	Role       Role               `json:"role" bson:"role"`
	IsActive   bool               `json:"isActive" bson:"isActive"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
}

// HasEmail reports whether the user can be reached by email
func (u *User) HasEmail() bool { return u.Email != "" }

// HasPhone reports whether the user can be reached by SMS
func (u *User) HasPhone() bool { return u.Phone != "" }

// HasPushTokens reports whether the user has at least one registered device
func (u *User) HasPushTokens() bool { return len(u.PushTokens) > 0 }
