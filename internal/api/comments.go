package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type commentRequest struct {
	Body string `json:"body"`
}

func (r *Router) addComment(c *gin.Context) {
	photoID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comment body is required"})
		return
	}

	comment, stats, err := r.social.Comment(c.Request.Context(), actor(c), photoID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	r.invalidatePhoto(photoID)

	c.JSON(http.StatusCreated, gin.H{
		"comment": r.commentView(c.Request.Context(), comment),
		"stats":   stats,
	})
}

func (r *Router) listComments(c *gin.Context) {
	photoID, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, offset := pagination(c)

	comments, err := r.social.ListComments(c.Request.Context(), photoID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]*commentView, 0, len(comments))
	for _, comment := range comments {
		views = append(views, r.commentView(c.Request.Context(), comment))
	}
	c.JSON(http.StatusOK, gin.H{"comments": views})
}

func (r *Router) deleteComment(c *gin.Context) {
	commentID, ok := paramID(c, "id")
	if !ok {
		return
	}

	stats, err := r.social.DeleteComment(c.Request.Context(), actor(c), commentID)
	if err != nil {
		respondError(c, err)
		return
	}
	if stats.PhotoID != 0 {
		r.invalidatePhoto(stats.PhotoID)
	}

	c.JSON(http.StatusOK, stats)
}
