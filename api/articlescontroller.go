package api

import (
	"errors"
	"log"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"glasswire/config"
	"glasswire/storage"
	"glasswire/types"
)

// RegisterArticleRoutes registers the public read endpoints.
func RegisterArticleRoutes(r *gin.Engine, deps *Deps) {
	r.GET("/api/articles", func(c *gin.Context) { handleListArticles(c, deps) })
	r.GET("/api/articles/:id", func(c *gin.Context) { handleGetArticle(c, deps) })
	r.GET("/api/articles/:id/variants", func(c *gin.Context) { handleListVariants(c, deps) })
	r.GET("/thumbnails/:file", func(c *gin.Context) { handleGetThumbnail(c, deps) })
}

// handleListArticles returns recent articles, newest first, from the global
// index or a single source's index.
func handleListArticles(c *gin.Context, deps *Deps) {
	source := c.Query("source")
	if source != "" && !types.ValidSource(source) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source: " + source})
		return
	}

	limit := config.DefaultArticleLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	ids, err := deps.Index.Get(c.Request.Context(), types.Source(source))
	if err != nil {
		internalError(c, err)
		return
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	articles := deps.Articles.FindMany(c.Request.Context(), ids)
	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"count":    len(articles),
	})
}

// handleGetArticle returns one article, or one named variant of it. A
// transformable variant that has not been generated yet is produced on the
// spot and persisted, so repeat reads hit storage.
func handleGetArticle(c *gin.Context, deps *Deps) {
	id := c.Param("id")
	source, err := types.SourceFromID(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	article, err := deps.Articles.FindByID(c.Request.Context(), id, source)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}

	variantName := c.Query("variant")
	if variantName == "" {
		c.JSON(http.StatusOK, article)
		return
	}
	if !types.ValidVariant(variantName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown variant: " + variantName})
		return
	}

	name := types.VariantName(variantName)
	if name == types.VariantRaw {
		c.JSON(http.StatusOK, types.RawVariant(article))
		return
	}

	variant, err := deps.Articles.GetVariant(c.Request.Context(), id, source, name)
	if err == nil {
		c.JSON(http.StatusOK, variant)
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		internalError(c, err)
		return
	}

	variant = deps.Transformer.TransformVariant(c.Request.Context(), article, name, "")
	if saveErr := deps.Articles.SaveVariant(c.Request.Context(), variant); saveErr != nil {
		// Serve the generated variant anyway; the next read regenerates.
		log.Printf("[API] Failed to persist variant %s for %s: %v", name, id, saveErr)
	}
	c.JSON(http.StatusOK, variant)
}

func handleListVariants(c *gin.Context, deps *Deps) {
	id := c.Param("id")
	source, err := types.SourceFromID(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	variants, err := deps.Articles.ListVariants(c.Request.Context(), id, source)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"articleId": id,
		"variants":  variants,
		"count":     len(variants),
	})
}

// handleGetThumbnail streams a stored thumbnail object.
func handleGetThumbnail(c *gin.Context, deps *Deps) {
	file := path.Base(c.Param("file"))
	data, err := deps.Articles.GetThumbnail(c.Request.Context(), "thumbnails/"+file)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "thumbnail not found"})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}

	contentType := "image/jpeg"
	if strings.HasSuffix(file, ".png") {
		contentType = "image/png"
	}
	c.Header("Cache-Control", config.ThumbnailCacheControl)
	c.Data(http.StatusOK, contentType, data)
}
