package domain

import (
	"time"
)

// EventType is the routing key family of inbound business events
type EventType string

const (
	EventNotificationSend EventType = "notification.send"
	EventNotificationBulk EventType = "notification.bulk"
)

// Event is a business event consumed from RabbitMQ
type Event struct {
	ID        string           `json:"id,omitempty"`
	Type      EventType        `json:"type"`
	UserIDs   []string         `json:"userIds" validate:"required,min=1,dive,len=24,hexadecimal"`
	Kind      NotificationType `json:"notificationType" validate:"required"`
	Title     string           `json:"title" validate:"required"`
	Message   string           `json:"message"`
	Priority  Priority         `json:"priority,omitempty"`
	Data      map[string]any   `json:"data,omitempty"`
	Force     bool             `json:"forceChannels,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
