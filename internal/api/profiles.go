package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fitsnap/fitsnap/internal/cache"
	"github.com/fitsnap/fitsnap/internal/service"
)

// profileCacheTTL bounds staleness of the anonymous profile payload.
const profileCacheTTL = 30 * time.Second

func (r *Router) getProfile(c *gin.Context) {
	username := c.Param("username")
	ctx := c.Request.Context()
	viewerID := actor(c)

	cacheKey := profileCacheKey(username)
	if viewerID == 0 {
		if cached, err := r.cache.Get(cacheKey); err == nil {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}
	}

	view, err := r.social.GetProfile(ctx, username, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := profileDetailView{
		profileView: *r.profileView(ctx, view.Profile),
		IsFollowing: view.IsFollowing,
	}

	if viewerID == 0 {
		if payload, err := json.Marshal(resp); err == nil {
			if err := r.cache.Set(cacheKey, string(payload), profileCacheTTL); err != nil && err != cache.ErrCacheDisabled {
				r.logger.Warn("Failed to cache profile", zap.String("username", username), zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (r *Router) searchProfiles(c *gin.Context) {
	limit, offset := pagination(c)
	profiles, err := r.social.SearchProfiles(c.Request.Context(), c.Query("q"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": r.profileViews(c.Request.Context(), profiles)})
}

type updateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	AvatarKey   *string `json:"avatar_key"`
}

func (r *Router) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile update"})
		return
	}

	profile, err := r.social.UpdateProfile(c.Request.Context(), actor(c), service.ProfileUpdate{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarKey:   req.AvatarKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	r.invalidateProfile(profile.Username)

	c.JSON(http.StatusOK, r.profileView(c.Request.Context(), profile))
}

func (r *Router) follow(c *gin.Context) {
	target, err := r.social.GetProfile(c.Request.Context(), c.Param("username"), 0)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := r.social.Follow(c.Request.Context(), actor(c), target.Profile.ID); err != nil {
		respondError(c, err)
		return
	}
	// Both counters moved: the target's followers and the actor's
	// following.
	r.invalidateProfile(target.Profile.Username)
	r.invalidateProfile(actorName(c))

	c.JSON(http.StatusOK, gin.H{"following": true})
}

func (r *Router) unfollow(c *gin.Context) {
	target, err := r.social.GetProfile(c.Request.Context(), c.Param("username"), 0)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := r.social.Unfollow(c.Request.Context(), actor(c), target.Profile.ID); err != nil {
		respondError(c, err)
		return
	}
	r.invalidateProfile(target.Profile.Username)
	r.invalidateProfile(actorName(c))

	c.JSON(http.StatusOK, gin.H{"following": false})
}

func (r *Router) listFollowers(c *gin.Context) {
	target, err := r.social.GetProfile(c.Request.Context(), c.Param("username"), 0)
	if err != nil {
		respondError(c, err)
		return
	}

	profiles, err := r.social.ListFollowers(c.Request.Context(), target.Profile.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"followers": r.profileViews(c.Request.Context(), profiles)})
}

func (r *Router) listFollowing(c *gin.Context) {
	target, err := r.social.GetProfile(c.Request.Context(), c.Param("username"), 0)
	if err != nil {
		respondError(c, err)
		return
	}

	profiles, err := r.social.ListFollowing(c.Request.Context(), target.Profile.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": r.profileViews(c.Request.Context(), profiles)})
}

func (r *Router) listUserPhotos(c *gin.Context) {
	target, err := r.social.GetProfile(c.Request.Context(), c.Param("username"), 0)
	if err != nil {
		respondError(c, err)
		return
	}

	limit, offset := pagination(c)
	photos, err := r.social.ListUserPhotos(c.Request.Context(), target.Profile.ID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": r.photoViews(c.Request.Context(), photos)})
}

func profileCacheKey(username string) string {
	return "profile:" + username
}

func (r *Router) invalidateProfile(username string) {
	if username == "" {
		return
	}
	if err := r.cache.Delete(profileCacheKey(username)); err != nil && err != cache.ErrCacheDisabled {
		r.logger.Warn("Failed to invalidate profile cache", zap.String("username", username), zap.Error(err))
	}
}
