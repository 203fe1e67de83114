package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"glasswire/transform"
	"glasswire/types"
)

// RegisterAdminRoutes registers the authenticated operational endpoints.
func RegisterAdminRoutes(r *gin.Engine, deps *Deps) {
	admin := r.Group("/api/admin", requireAdmin(deps), rateLimit(deps, adminLimit))
	admin.POST("/crawl", func(c *gin.Context) { handleCrawl(c, deps) })
	admin.POST("/transform", rateLimit(deps, transformLimit), func(c *gin.Context) { handleTransform(c, deps) })
	admin.POST("/clean", func(c *gin.Context) { handleClean(c, deps) })
	admin.GET("/providers", func(c *gin.Context) { handleListProviders(c, deps) })
}

type crawlRequest struct {
	Sources []string `json:"sources"`
	Count   int      `json:"count"`
	Sync    bool     `json:"sync"`
}

// handleCrawl triggers a pipeline run. Sync requests block and return the
// run summary; async requests return 202 immediately and run in background.
func handleCrawl(c *gin.Context, deps *Deps) {
	var req crawlRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sources := make([]types.Source, 0, len(req.Sources))
	for _, s := range req.Sources {
		if !types.ValidSource(s) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source: " + s})
			return
		}
		sources = append(sources, types.Source(s))
	}

	if req.Sync {
		summary := deps.Pipeline.RunOnce(c.Request.Context(), sources, req.Count)
		c.JSON(http.StatusOK, summary)
		return
	}

	go deps.Pipeline.RunOnce(context.Background(), sources, req.Count)
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

type transformRequest struct {
	ArticleID  string   `json:"articleId"`
	ArticleIDs []string `json:"articleIds"`
	Source     string   `json:"source"`
	Variant    string   `json:"variant"`
	Variants   []string `json:"variants"`
	Style      string   `json:"style"`
}

// handleTransform regenerates transforms for one article, an explicit id
// list, or every indexed article of a source. With variants named it rebuilds
// and overwrites those variant records; without any it refreshes each
// article's inline transformed fields.
func handleTransform(c *gin.Context, deps *Deps) {
	var req transformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ids := req.ArticleIDs
	if req.ArticleID != "" {
		ids = append(ids, req.ArticleID)
	}
	if req.Source != "" {
		if !types.ValidSource(req.Source) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source: " + req.Source})
			return
		}
		indexed, err := deps.Index.Get(c.Request.Context(), types.Source(req.Source))
		if err != nil {
			internalError(c, err)
			return
		}
		ids = append(ids, indexed...)
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "articleId, articleIds or source is required"})
		return
	}

	variants := req.Variants
	if req.Variant != "" {
		variants = append(variants, req.Variant)
	}
	for _, v := range variants {
		if !types.ValidVariant(v) || types.VariantName(v) == types.VariantRaw {
			c.JSON(http.StatusBadRequest, gin.H{"error": "variant must be a transformable variant: " + v})
			return
		}
	}

	style := transform.Style(req.Style)
	processed := 0
	var failures []string
	for _, id := range ids {
		if err := transformOne(c.Request.Context(), deps, id, variants, style); err != nil {
			log.Printf("[API] Transform failed for %s: %v", id, err)
			failures = append(failures, id+": "+err.Error())
			continue
		}
		processed++
	}

	c.JSON(http.StatusOK, gin.H{
		"processed": processed,
		"failed":    len(failures),
		"errors":    failures,
	})
}

func transformOne(ctx context.Context, deps *Deps, id string, variants []string, style transform.Style) error {
	source, err := types.SourceFromID(id)
	if err != nil {
		return err
	}
	article, err := deps.Articles.FindByID(ctx, id, source)
	if err != nil {
		return err
	}

	if len(variants) == 0 {
		transformed := deps.Transformer.Transform(ctx, article, transform.Options{Style: style})
		return deps.Articles.Save(ctx, transformed)
	}
	for _, v := range variants {
		variant := deps.Transformer.TransformVariant(ctx, article, types.VariantName(v), style)
		if err := deps.Articles.SaveVariant(ctx, variant); err != nil {
			return err
		}
	}
	return nil
}

// handleClean drops the recency indexes. Stored articles are untouched.
func handleClean(c *gin.Context, deps *Deps) {
	keys, err := deps.Index.ClearAll(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedKeys": keys})
}

// handleListProviders reports every registered provider and which are
// currently able to run.
func handleListProviders(c *gin.Context, deps *Deps) {
	all := make([]gin.H, 0)
	enabled := make([]types.Source, 0)
	for _, id := range deps.Registry.ProviderIDs() {
		p, ok := deps.Registry.Get(id)
		if !ok {
			continue
		}
		cfg := p.Config()
		all = append(all, gin.H{
			"id":           cfg.ID,
			"name":         cfg.Name,
			"enabled":      cfg.Enabled,
			"canRun":       p.CanRun(),
			"language":     cfg.Language,
			"defaultLimit": cfg.DefaultLimit,
		})
	}
	enabled = append(enabled, deps.Registry.EnabledIDs()...)
	c.JSON(http.StatusOK, gin.H{"all": all, "enabled": enabled})
}
