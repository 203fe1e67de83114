// Package api exposes the HTTP surface: public article reads, subscription
// management, and the authenticated admin operations.
package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"glasswire/config"
	"glasswire/pipeline"
	"glasswire/providers"
	"glasswire/push"
	"glasswire/scheduler"
	"glasswire/storage"
	"glasswire/transform"
)

// Deps carries everything the route handlers need. Push and Scheduler may be
// nil when those features are disabled.
type Deps struct {
	Config        *config.Config
	Articles      *storage.ArticleRepo
	Index         *storage.RecencyIndex
	Subscriptions *storage.SubscriptionRepo
	Limiter       *storage.RateLimiter
	Registry      *providers.Registry
	Transformer   *transform.Transformer
	Pipeline      *pipeline.Pipeline
	Push          *push.Service
	Scheduler     *scheduler.Scheduler
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(deps *Deps) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	// Register resource routers
	RegisterHealthRoutes(r, deps)
	RegisterArticleRoutes(r, deps)
	RegisterSubscriptionRoutes(r, deps)
	RegisterAdminRoutes(r, deps)
	return r
}

// internalError answers a 500 with a generic body. The underlying failure
// goes to the server log only, never to the client.
func internalError(c *gin.Context, err error) {
	log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
