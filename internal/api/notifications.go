package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (r *Router) listNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	notifications, err := r.social.Notifications(c.Request.Context(), actor(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]*notificationView, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, r.notificationView(c.Request.Context(), n))
	}
	c.JSON(http.StatusOK, gin.H{"notifications": views})
}

func (r *Router) unreadNotifications(c *gin.Context) {
	count, err := r.social.UnreadNotifications(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (r *Router) markNotificationRead(c *gin.Context) {
	notificationID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := r.social.MarkNotificationRead(c.Request.Context(), actor(c), notificationID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) markAllNotificationsRead(c *gin.Context) {
	if err := r.social.MarkAllNotificationsRead(c.Request.Context(), actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
