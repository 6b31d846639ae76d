package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"udin/platform/internal/api/middleware"
	"udin/platform/internal/gateway"
	"udin/platform/internal/services"
	"udin/platform/internal/storage"
)

// respondError maps service-layer sentinels onto HTTP statuses. Unrecognized
// errors become opaque 500s; the detail stays in the server log.
func respondError(c *gin.Context, err error) {
	var gwErr *gateway.GatewayError
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment signature verification failed"})
	case errors.Is(err, services.ErrAmountBelowMinimum):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrStatusRegression):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrRefundNotAllowed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateContent):
		c.JSON(http.StatusConflict, gin.H{"error": "Duplicate document content"})
	case errors.Is(err, storage.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage temporarily unavailable"})
	case errors.As(err, &gwErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway error: " + gwErr.Message})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// authedUserID pulls the authenticated user id out of the request context,
// aborting with 401 when it is absent.
func authedUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// pageParams parses page/limit query parameters with service-side clamping.
func pageParams(c *gin.Context) (int64, int64) {
	page := int64(1)
	limit := int64(20)
	if v, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64); err == nil {
		page = v
	}
	if v, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64); err == nil {
		limit = v
	}
	return page, limit
}
