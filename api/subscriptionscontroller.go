package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"glasswire/types"
)

// RegisterSubscriptionRoutes registers push subscription management.
func RegisterSubscriptionRoutes(r *gin.Engine, deps *Deps) {
	r.POST("/api/subscriptions", func(c *gin.Context) { handleSubscribe(c, deps) })
	r.POST("/api/subscriptions/test",
		requireAdmin(deps),
		func(c *gin.Context) { handleTestNotification(c, deps) },
	)
}

// handleSubscribe upserts a browser push subscription.
func handleSubscribe(c *gin.Context, deps *Deps) {
	var sub types.Subscription
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint and keys are required"})
		return
	}

	if _, err := deps.Subscriptions.Save(c.Request.Context(), &sub); err != nil {
		internalError(c, err)
		return
	}

	count, _ := deps.Subscriptions.Count(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{
		"success":       true,
		"subscriptions": count,
	})
}

type testNotificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// handleTestNotification broadcasts a test push to every subscription.
func handleTestNotification(c *gin.Context, deps *Deps) {
	if deps.Push == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push is not configured (missing VAPID keys)"})
		return
	}
	var req testNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := deps.Push.SendTest(c.Request.Context(), req.Title, req.Message)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
