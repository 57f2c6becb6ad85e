package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for the authenticated caller
	UserIDKey ContextKey = "user_id"

	// UserIDHeader carries the caller identity set by the API gateway
	UserIDHeader = "X-User-ID"
)

// IdentityMiddleware extracts the X-User-ID header set by the gateway.
// Returns 401 if the header is missing or is not an ObjectID.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				errors.NewUnauthorizedError(UserIDHeader+" header is required", nil))
			return
		}

		userID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				errors.NewUnauthorizedError("Invalid user identifier", err))
			return
		}

		c.Set(string(UserIDKey), userID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), UserIDKey, userID))
		c.Next()
	}
}

// GetUserID retrieves the caller from the gin context
func GetUserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, exists := c.Get(string(UserIDKey))
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}

// MustGetUserID retrieves the caller and panics if IdentityMiddleware was not
// applied to the route.
func MustGetUserID(c *gin.Context) primitive.ObjectID {
	id, ok := GetUserID(c)
	if !ok {
		panic("user ID not found in context - ensure IdentityMiddleware is applied to this route")
	}
	return id
}
