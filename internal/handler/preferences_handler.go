package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/middleware"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PreferenceManager reads and writes user notification preferences
type PreferenceManager interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*domain.NotificationPreferences, error)
	Update(ctx context.Context, prefs *domain.NotificationPreferences) error
}

// PreferencesHandler handles notification preferences requests
type PreferencesHandler struct {
	prefs PreferenceManager
	log   *logger.Logger
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(prefs PreferenceManager, log *logger.Logger) *PreferencesHandler {
	return &PreferencesHandler{
		prefs: prefs,
		log:   log,
	}
}

// GetPreferences returns the caller's effective preferences
func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	prefs, err := h.prefs.Get(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to get preferences", "error", err, "user_id", userID.Hex())
		respondError(c, "Failed to get preferences", err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences replaces the caller's preferences
func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	var prefs domain.NotificationPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	// the caller can only write their own document
	prefs.ID = primitive.NilObjectID
	prefs.UserID = userID

	if err := h.prefs.Update(c.Request.Context(), &prefs); err != nil {
		h.log.Error("Failed to update preferences", "error", err, "user_id", userID.Hex())
		respondError(c, "Failed to update preferences", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Preferences updated successfully",
		"data":    prefs.WithDefaults(),
	})
}
