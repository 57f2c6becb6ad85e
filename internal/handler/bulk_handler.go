package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
)

// BulkSender fans one notification out to many users
type BulkSender interface {
	SendBulk(ctx context.Context, req *domain.BulkRequest) *domain.BulkResult
}

// BulkHandler handles bulk notification operations
type BulkHandler struct {
	bulk BulkSender
	log  *logger.Logger
}

// NewBulkHandler creates a new bulk handler
func NewBulkHandler(bulk BulkSender, log *logger.Logger) *BulkHandler {
	return &BulkHandler{
		bulk: bulk,
		log:  log,
	}
}

// BulkNotificationRequest is the JSON form of a bulk send
type BulkNotificationRequest struct {
	UserIDs  []string                `json:"userIds" binding:"required,min=1,max=1000,dive,len=24,hexadecimal"`
	Type     domain.NotificationType `json:"type" binding:"required"`
	Title    string                  `json:"title" binding:"required"`
	Message  string                  `json:"message"`
	Priority domain.Priority         `json:"priority"`
	Data     map[string]any          `json:"data"`
	// ForceChannels bypasses every recipient's preferences
	ForceChannels bool `json:"forceChannels"`
}

// SendBulk sends one notification to every listed user. Per-recipient
// failures are reported in the result, not as an error status.
func (h *BulkHandler) SendBulk(c *gin.Context) {
	var req BulkNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}
	if req.Priority != "" && !req.Priority.Valid() {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid priority", nil))
		return
	}

	userIDs, err := parseObjectIDs(req.UserIDs)
	if err != nil {
		respondError(c, "Invalid request", err)
		return
	}
	payload, err := domain.DecodeJSONPayload(req.Type, req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid data", err))
		return
	}

	result := h.bulk.SendBulk(c.Request.Context(), &domain.BulkRequest{
		UserIDs:       userIDs,
		Type:          req.Type,
		Title:         req.Title,
		Message:       req.Message,
		Data:          payload,
		Priority:      req.Priority,
		ForceChannels: req.ForceChannels,
	})

	h.log.Info("Bulk send finished", "batch_id", result.BatchID, "total", result.Total, "failed", result.FailedCount)
	c.JSON(http.StatusOK, result)
}
