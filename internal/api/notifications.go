package api

import (
	"net/http"
	"strconv"

	"resale-escrow-go/internal/notify"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) handleNotifications(c *gin.Context) {
	if s.notifications == nil {
		abortWithError(c, http.StatusServiceUnavailable, "unavailable", "notifications are not configured")
		return
	}
	limit := notify.DefaultFeedLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "invalid_request", "limit must be an integer")
			return
		}
		limit = n
	}

	userID := c.GetString(userIDKey)
	notifications, err := notify.Recent(c.Request.Context(), s.notifications, userID, limit)
	if err != nil {
		zap.L().Error("Listing notifications failed", zap.String("user_id", userID), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "internal", "unable to list notifications")
		return
	}

	items := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, gin.H{
			"id":         n.Id,
			"type":       n.Type,
			"title":      n.Title,
			"body":       n.Body,
			"order_id":   n.OrderId,
			"data":       n.Data,
			"created_at": n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}
