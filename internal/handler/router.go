package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vhvplatform/go-marketplace-notifications/internal/middleware"
)

// Routes bundles the handlers mounted by NewRouter. Nil handlers leave
// their routes unmounted.
type Routes struct {
	Notifications *NotificationHandler
	Bulk          *BulkHandler
	Preferences   *PreferencesHandler
	DLQ           *DLQHandler
	Detectors     *DetectorHandler
	Realtime      *RealtimeHandler
	// Ready reports whether backing stores are reachable
	Ready func(ctx context.Context) error
}

// NewRouter builds the HTTP API
func NewRouter(r Routes, limiter *middleware.CallerRateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		if r.Ready != nil {
			if err := r.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.Realtime != nil {
		router.GET("/ws", middleware.IdentityMiddleware(), r.Realtime.Connect)
	}

	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(middleware.RateLimitMiddleware(limiter))
	}

	// Caller-scoped routes
	me := v1.Group("")
	me.Use(middleware.IdentityMiddleware())
	if r.Notifications != nil {
		me.GET("/notifications", r.Notifications.GetNotifications)
		me.GET("/notifications/unread-count", r.Notifications.UnreadCount)
		me.POST("/notifications/read-all", r.Notifications.MarkAllRead)
		me.GET("/notifications/:id", r.Notifications.GetNotification)
		me.PATCH("/notifications/:id/read", r.Notifications.MarkRead)
	}
	if r.Preferences != nil {
		me.GET("/preferences", r.Preferences.GetPreferences)
		me.PUT("/preferences", r.Preferences.UpdatePreferences)
	}

	// Service-to-service and operator routes
	internal := v1.Group("/internal")
	if r.Notifications != nil {
		internal.POST("/notifications", r.Notifications.Send)
	}
	if r.Bulk != nil {
		internal.POST("/notifications/bulk", r.Bulk.SendBulk)
	}
	if r.DLQ != nil {
		internal.GET("/dlq", r.DLQ.GetFailedNotifications)
		internal.POST("/dlq/:id/retry", r.DLQ.RetryNotification)
	}
	if r.Detectors != nil {
		internal.GET("/detectors", r.Detectors.ListDetectors)
		internal.GET("/detectors/:name/runs", r.Detectors.GetRuns)
		internal.POST("/detectors/:name/run", r.Detectors.RunDetector)
	}

	return router
}
