package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FailedChannelSend records a channel attempt that failed so it can be retried
type FailedChannelSend struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	NotificationID primitive.ObjectID `json:"notificationId" bson:"notificationId"`
	UserID         primitive.ObjectID `json:"userId" bson:"userId"`
	Channel        Channel            `json:"channel" bson:"channel"`
	Type           NotificationType   `json:"type" bson:"type"`
	Title          string             `json:"title" bson:"title"`
	Message        string             `json:"message" bson:"message"`
	Data           map[string]any     `json:"data,omitempty" bson:"data,omitempty"`
	Error          string             `json:"error" bson:"error"`
	RetryCount     int                `json:"retryCount" bson:"retryCount"`
	FailedAt       time.Time          `json:"failedAt" bson:"failedAt"`
	LastRetryAt    *time.Time         `json:"lastRetryAt,omitempty" bson:"lastRetryAt,omitempty"`
}
