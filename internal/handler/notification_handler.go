package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/middleware"
	"github.com/vhvplatform/go-marketplace-notifications/internal/service"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Inbox is the read side of a user's notifications
type Inbox interface {
	GetNotifications(ctx context.Context, f domain.InboxFilter) ([]*domain.Notification, int64, error)
	GetNotification(ctx context.Context, userID, id primitive.ObjectID) (*domain.Notification, error)
	MarkRead(ctx context.Context, userID, id primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// NotificationHandler handles HTTP requests for notifications
type NotificationHandler struct {
	inbox  Inbox
	sender service.NotificationSender
	log    *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(inbox Inbox, sender service.NotificationSender, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		inbox:  inbox,
		sender: sender,
		log:    log,
	}
}

// SendNotificationRequest is the JSON form of a dispatcher call
type SendNotificationRequest struct {
	UserID        string                  `json:"userId" binding:"required,len=24,hexadecimal"`
	Type          domain.NotificationType `json:"type" binding:"required"`
	Title         string                  `json:"title" binding:"required"`
	Message       string                  `json:"message"`
	Priority      domain.Priority         `json:"priority"`
	Data          map[string]any          `json:"data"`
	ForceChannels bool                    `json:"forceChannels"`
	EmailOptions  *domain.EmailOptions    `json:"emailOptions"`
	SMSOptions    *domain.SMSOptions      `json:"smsOptions"`
}

// Send dispatches one notification to one user
func (h *NotificationHandler) Send(c *gin.Context) {
	var req SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid userId", err))
		return
	}
	payload, err := domain.DecodeJSONPayload(req.Type, req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid data", err))
		return
	}

	result, err := h.sender.Send(c.Request.Context(), &domain.SendRequest{
		UserID:        userID,
		Type:          req.Type,
		Title:         req.Title,
		Message:       req.Message,
		Data:          payload,
		Priority:      req.Priority,
		ForceChannels: req.ForceChannels,
		EmailOptions:  req.EmailOptions,
		SMSOptions:    req.SMSOptions,
	})
	if err != nil {
		h.log.Error("Failed to send notification", "error", err, "user_id", req.UserID, "type", req.Type)
		respondError(c, "Failed to send notification", err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetNotifications lists the caller's notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	page, pageSize := pageParams(c)

	filter := domain.InboxFilter{
		UserID:   userID,
		Type:     domain.NotificationType(c.Query("type")),
		Page:     page,
		PageSize: pageSize,
	}
	if raw := c.Query("unread"); raw != "" {
		unread, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid unread flag", err))
			return
		}
		filter.UnreadOnly = unread
	}

	notifications, total, err := h.inbox.GetNotifications(c.Request.Context(), filter)
	if err != nil {
		h.log.Error("Failed to get notifications", "error", err, "user_id", userID.Hex())
		respondError(c, "Failed to get notifications", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      notifications,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetNotification retrieves a single notification by ID
func (h *NotificationHandler) GetNotification(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	notification, err := h.inbox.GetNotification(c.Request.Context(), userID, id)
	if err != nil {
		h.log.Error("Failed to get notification", "error", err, "id", id.Hex(), "user_id", userID.Hex())
		respondError(c, "Failed to get notification", err)
		return
	}

	c.JSON(http.StatusOK, notification)
}

// MarkRead marks one of the caller's notifications as read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.inbox.MarkRead(c.Request.Context(), userID, id); err != nil {
		h.log.Error("Failed to mark notification read", "error", err, "id", id.Hex(), "user_id", userID.Hex())
		respondError(c, "Failed to mark notification read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification marked as read",
	})
}

// MarkAllRead marks all of the caller's notifications as read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	updated, err := h.inbox.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to mark notifications read", "error", err, "user_id", userID.Hex())
		respondError(c, "Failed to mark notifications read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"updated": updated,
	})
}

// UnreadCount returns the caller's unread count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	count, err := h.inbox.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to count unread notifications", "error", err, "user_id", userID.Hex())
		respondError(c, "Failed to count unread notifications", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": count,
	})
}
