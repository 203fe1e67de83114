package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes registers the liveness endpoint.
func RegisterHealthRoutes(r *gin.Engine, deps *Deps) {
	r.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"providers": len(deps.Registry.ProviderIDs()),
		}
		if deps.Scheduler != nil {
			body["nextCrawl"] = deps.Scheduler.NextCrawlTime()
		}
		c.JSON(http.StatusOK, body)
	})
}
