package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// statusFor maps an application error code to an HTTP status
func statusFor(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.CodeValidation:
		return http.StatusBadRequest
	case errors.CodeUnauthorized:
		return http.StatusUnauthorized
	case errors.CodeNotFound, errors.CodeUserNotFound:
		return http.StatusNotFound
	case errors.CodeChannelSend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Errors that are not AppErrors are
// reported as internal errors with message.
func respondError(c *gin.Context, message string, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		c.JSON(statusFor(appErr), appErr)
		return
	}
	c.JSON(http.StatusInternalServerError, errors.NewInternalError(message, err))
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid "+name, err))
		return primitive.NilObjectID, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}

func parseObjectIDs(hexes []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, errors.NewValidationError("Invalid user id "+h, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
