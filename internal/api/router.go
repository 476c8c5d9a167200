package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fitsnap/fitsnap/internal/auth"
	"github.com/fitsnap/fitsnap/internal/cache"
	"github.com/fitsnap/fitsnap/internal/db"
	"github.com/fitsnap/fitsnap/internal/service"
	"github.com/fitsnap/fitsnap/internal/storage"
	"github.com/fitsnap/fitsnap/pkg/logging"
)

// Router wires HTTP routes to the aggregation facade. Handlers never
// touch the stores directly; the facade is the only entry point.
type Router struct {
	social   *service.Social
	tokens   *auth.Manager
	images   *storage.ImageStore
	database *db.DB
	cache    *cache.Cache
	logger   *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(social *service.Social, tokens *auth.Manager, images *storage.ImageStore, database *db.DB, redisCache *cache.Cache) *Router {
	return &Router{
		social:   social,
		tokens:   tokens,
		images:   images,
		database: database,
		cache:    redisCache,
		logger:   logging.WithComponent("api-router"),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(RequestLogger(), Traced())

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// Auth
	engine.POST("/auth/register", r.register)
	engine.POST("/auth/login", r.login)

	// Public reads; a token, when present, personalizes them
	public := engine.Group("/", OptionalAuth(r.tokens))
	{
		public.GET("/photos", r.listPhotos)
		public.GET("/photos/:id", r.getPhoto)
		public.GET("/photos/:id/comments", r.listComments)
		public.GET("/profiles", r.searchProfiles)
		public.GET("/profiles/:username", r.getProfile)
		public.GET("/profiles/:username/photos", r.listUserPhotos)
		public.GET("/profiles/:username/followers", r.listFollowers)
		public.GET("/profiles/:username/following", r.listFollowing)
	}

	// Authenticated mutations and private reads
	authed := engine.Group("/", RequireAuth(r.tokens))
	{
		authed.PUT("/me", r.updateProfile)

		authed.POST("/photos", r.uploadPhoto)
		authed.DELETE("/photos/:id", r.deletePhoto)

		authed.PUT("/photos/:id/rating", r.ratePhoto)
		authed.GET("/photos/:id/rating", r.getUserRating)
		authed.POST("/photos/:id/like", r.likePhoto)
		authed.DELETE("/photos/:id/like", r.unlikePhoto)
		authed.POST("/photos/:id/comments", r.addComment)
		authed.DELETE("/comments/:id", r.deleteComment)

		authed.POST("/profiles/:username/follow", r.follow)
		authed.DELETE("/profiles/:username/follow", r.unfollow)

		authed.GET("/notifications", r.listNotifications)
		authed.GET("/notifications/unread", r.unreadNotifications)
		authed.POST("/notifications/:id/read", r.markNotificationRead)
		authed.POST("/notifications/read", r.markAllNotificationsRead)
	}
}

func (r *Router) healthHandler(c *gin.Context) {
	status := gin.H{
		"status":  "OK",
		"service": "fitsnap-api",
	}

	if err := r.database.Health(c.Request.Context()); err != nil {
		status["status"] = "DEGRADED"
		status["database"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	if r.cache != nil {
		if err := r.cache.Health(c.Request.Context()); err != nil && err != cache.ErrCacheDisabled {
			status["cache"] = err.Error()
		}
	}

	c.JSON(http.StatusOK, status)
}
