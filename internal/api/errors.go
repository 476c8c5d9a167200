package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fitsnap/fitsnap/internal/service"
	"github.com/fitsnap/fitsnap/pkg/logging"
)

// respondError maps a service error onto an HTTP response. Validation
// and authorization messages pass through verbatim; anything else gets
// a generic message so store internals never leak to clients.
func respondError(c *gin.Context, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case service.KindValidation:
			c.JSON(http.StatusBadRequest, gin.H{"error": se.Message})
			return
		case service.KindAuthorization:
			c.JSON(http.StatusForbidden, gin.H{"error": se.Message})
			return
		case service.KindNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": se.Message})
			return
		case service.KindConflict:
			c.JSON(http.StatusConflict, gin.H{"error": se.Message})
			return
		case service.KindTransientStore:
			logging.GetLogger().Error("Store error", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporary failure, safe to retry"})
			return
		}
	}

	logging.GetLogger().Error("Unhandled error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
