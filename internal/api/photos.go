package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fitsnap/fitsnap/internal/cache"
)

// photoCacheTTL bounds staleness of the anonymous photo detail payload.
const photoCacheTTL = 30 * time.Second

// maxImageSize caps uploaded image size at 10 MiB.
const maxImageSize = 10 << 20

func (r *Router) uploadPhoto(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if file.Size > maxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image exceeds the 10 MiB limit"})
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	key, err := r.images.Put(ctx, src, file.Size, file.Header.Get("Content-Type"), file.Filename)
	if err != nil {
		respondError(c, err)
		return
	}

	photo, err := r.social.CreatePhoto(ctx, actor(c), c.PostForm("title"), c.PostForm("description"), key)
	if err != nil {
		// The row never landed; drop the orphaned object.
		if rmErr := r.images.Remove(ctx, key); rmErr != nil {
			r.logger.Warn("Failed to remove orphaned image", zap.String("key", key), zap.Error(rmErr))
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, r.photoView(ctx, photo))
}

func (r *Router) listPhotos(c *gin.Context) {
	limit, offset := pagination(c)
	photos, err := r.social.ListPhotos(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": r.photoViews(c.Request.Context(), photos)})
}

func (r *Router) getPhoto(c *gin.Context) {
	photoID, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	viewerID := actor(c)

	// The anonymous detail payload is cacheable; viewer-specific fields
	// are not.
	cacheKey := photoCacheKey(photoID)
	if viewerID == 0 {
		if cached, err := r.cache.Get(cacheKey); err == nil {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}
	}

	photo, err := r.social.GetPhoto(ctx, photoID)
	if err != nil {
		respondError(c, err)
		return
	}

	view := photoDetailView{photoView: *r.photoView(ctx, photo)}
	if viewerID != 0 {
		rating, err := r.social.UserRating(ctx, viewerID, photoID)
		if err != nil {
			respondError(c, err)
			return
		}
		view.HasRated = rating.HasRated
		view.UserRating = rating.Value

		liked, err := r.social.HasLiked(ctx, viewerID, photoID)
		if err != nil {
			respondError(c, err)
			return
		}
		view.HasLiked = liked
	}

	if viewerID == 0 {
		if payload, err := json.Marshal(view); err == nil {
			if err := r.cache.Set(cacheKey, string(payload), photoCacheTTL); err != nil && err != cache.ErrCacheDisabled {
				r.logger.Warn("Failed to cache photo", zap.Int64("photo_id", photoID), zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, view)
}

func (r *Router) deletePhoto(c *gin.Context) {
	photoID, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	photo, err := r.social.GetPhoto(ctx, photoID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := r.social.DeletePhoto(ctx, actor(c), photoID); err != nil {
		respondError(c, err)
		return
	}
	r.invalidatePhoto(photoID)

	if err := r.images.Remove(ctx, photo.ImageKey); err != nil {
		r.logger.Warn("Failed to remove image for deleted photo",
			zap.Int64("photo_id", photoID), zap.Error(err))
	}

	c.Status(http.StatusNoContent)
}

type rateRequest struct {
	Value int16 `json:"value"`
}

func (r *Router) ratePhoto(c *gin.Context) {
	photoID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating value is required"})
		return
	}

	stats, err := r.social.Rate(c.Request.Context(), actor(c), photoID, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	r.invalidatePhoto(photoID)

	c.JSON(http.StatusOK, stats)
}

func (r *Router) getUserRating(c *gin.Context) {
	photoID, ok := paramID(c, "id")
	if !ok {
		return
	}
	rating, err := r.social.UserRating(c.Request.Context(), actor(c), photoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}

func (r *Router) likePhoto(c *gin.Context) {
	photoID, ok := paramID(c, "id")
	if !ok {
		return
	}
	stats, err := r.social.Like(c.Request.Context(), actor(c), photoID)
	if err != nil {
		respondError(c, err)
		return
	}
	r.invalidatePhoto(photoID)

	c.JSON(http.StatusOK, stats)
}

func (r *Router) unlikePhoto(c *gin.Context) {
	photoID, ok := paramID(c, "id")
	if !ok {
		return
	}
	stats, err := r.social.Unlike(c.Request.Context(), actor(c), photoID)
	if err != nil {
		respondError(c, err)
		return
	}
	r.invalidatePhoto(photoID)

	c.JSON(http.StatusOK, stats)
}

func photoCacheKey(photoID int64) string {
	return "photo:" + strconv.FormatInt(photoID, 10)
}

func (r *Router) invalidatePhoto(photoID int64) {
	if err := r.cache.Delete(photoCacheKey(photoID)); err != nil && err != cache.ErrCacheDisabled {
		r.logger.Warn("Failed to invalidate photo cache", zap.Int64("photo_id", photoID), zap.Error(err))
	}
}

// paramID parses a positive integer path parameter, responding 400
// itself when it cannot.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
