package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/metrics"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BulkDispatcher sends the same notification to many recipients
type BulkDispatcher struct {
	sender      NotificationSender
	concurrency int
	log         *logger.Logger
}

// NewBulkDispatcher creates a bulk dispatcher. concurrency <= 0 means no
// limit on in-flight recipients.
func NewBulkDispatcher(sender NotificationSender, concurrency int, log *logger.Logger) *BulkDispatcher {
	return &BulkDispatcher{sender: sender, concurrency: concurrency, log: log}
}

// SendBulk dispatches to every recipient independently. One recipient's
// failure never affects another's; results keep the order of req.UserIDs.
func (b *BulkDispatcher) SendBulk(ctx context.Context, req *domain.BulkRequest) *domain.BulkResult {
	result := &domain.BulkResult{
		BatchID: uuid.New().String(),
		Total:   len(req.UserIDs),
		Results: make([]domain.BulkRecipientResult, len(req.UserIDs)),
	}

	p := pool.New()
	if b.concurrency > 0 {
		p = p.WithMaxGoroutines(b.concurrency)
	}
	for i, userID := range req.UserIDs {
		p.Go(func() {
			result.Results[i] = b.sendOne(ctx, userID, req)
		})
	}
	p.Wait()

	for _, r := range result.Results {
		if r.Success {
			result.SuccessCount++
			metrics.BulkRecipients.WithLabelValues("success").Inc()
		} else {
			result.FailedCount++
			metrics.BulkRecipients.WithLabelValues("failed").Inc()
		}
	}

	b.log.Info("Bulk notification completed",
		"batch_id", result.BatchID,
		"type", req.Type,
		"total", result.Total,
		"success", result.SuccessCount,
		"failed", result.FailedCount,
	)
	return result
}

func (b *BulkDispatcher) sendOne(ctx context.Context, userID primitive.ObjectID, req *domain.BulkRequest) (out domain.BulkRecipientResult) {
	out.UserID = userID
	defer func() {
		if r := recover(); r != nil {
			out.Success = false
			out.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	res, err := b.sender.Send(ctx, &domain.SendRequest{
		UserID:        userID,
		Type:          req.Type,
		Title:         req.Title,
		Message:       req.Message,
		Data:          req.Data,
		Priority:      req.Priority,
		ForceChannels: req.ForceChannels,
	})
	if err != nil {
		out.Error = err.Error()
		return out
	}

	out.Success = res.Success
	out.Error = res.Error
	out.ChannelResults = res.ChannelResults
	if res.Notification != nil {
		out.NotificationID = res.Notification.ID.Hex()
	}
	return out
}
