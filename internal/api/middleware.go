package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fitsnap/fitsnap/internal/auth"
	"github.com/fitsnap/fitsnap/pkg/logging"
	"github.com/fitsnap/fitsnap/pkg/telemetry"
)

// actorKey and actorNameKey are the gin context keys holding the
// authenticated profile id and username.
const (
	actorKey     = "actor_id"
	actorNameKey = "actor_name"
)

// RequireAuth rejects requests without a valid bearer token and stores
// the actor id and username for handlers.
func RequireAuth(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, username, ok := bearerActor(c, tokens)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(actorKey, actorID)
		c.Set(actorNameKey, username)
		c.Next()
	}
}

// OptionalAuth stores the actor id and username when a valid token is
// present but lets anonymous requests through.
func OptionalAuth(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if actorID, username, ok := bearerActor(c, tokens); ok {
			c.Set(actorKey, actorID)
			c.Set(actorNameKey, username)
		}
		c.Next()
	}
}

func bearerActor(c *gin.Context, tokens *auth.Manager) (int64, string, bool) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return 0, "", false
	}
	actorID, username, err := tokens.Verify(strings.TrimPrefix(header, prefix))
	if err != nil {
		return 0, "", false
	}
	return actorID, username, true
}

// actor returns the authenticated profile id, zero when anonymous.
func actor(c *gin.Context) int64 {
	if v, ok := c.Get(actorKey); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// actorName returns the authenticated username, empty when anonymous.
func actorName(c *gin.Context) string {
	if v, ok := c.Get(actorNameKey); ok {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return ""
}

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	logger := logging.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// Traced wraps each request in a span named after the route.
func Traced() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), c.Request.Method+" "+c.FullPath())
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
