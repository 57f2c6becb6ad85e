package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FailedSendQueue lists and retries failed channel sends
type FailedSendQueue interface {
	GetAll(ctx context.Context, page, pageSize int) ([]*domain.FailedChannelSend, int64, error)
	Retry(ctx context.Context, id primitive.ObjectID) error
}

// DLQHandler handles dead letter queue operations
type DLQHandler struct {
	dlq FailedSendQueue
	log *logger.Logger
}

// NewDLQHandler creates a new DLQ handler
func NewDLQHandler(dlq FailedSendQueue, log *logger.Logger) *DLQHandler {
	return &DLQHandler{
		dlq: dlq,
		log: log,
	}
}

// GetFailedNotifications retrieves failed channel sends from the DLQ
func (h *DLQHandler) GetFailedNotifications(c *gin.Context) {
	page, pageSize := pageParams(c)

	failed, total, err := h.dlq.GetAll(c.Request.Context(), page, pageSize)
	if err != nil {
		h.log.Error("Failed to get failed notifications", "error", err)
		respondError(c, "Failed to get failed notifications", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      failed,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// RetryNotification retries a failed channel send
func (h *DLQHandler) RetryNotification(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.dlq.Retry(c.Request.Context(), id); err != nil {
		h.log.Error("Failed to retry notification", "error", err, "id", id.Hex())
		respondError(c, "Failed to retry notification", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification retried successfully",
	})
}
