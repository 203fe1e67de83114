package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"

	"glasswire/config"
	"glasswire/types"
)

// ArticleRepo persists articles and their variants as JSON objects in the
// blob store, one object per article under articles/<source>/<id>.json and
// one per variant under articles/<source>/<id>/variants/<variant>.json.
type ArticleRepo struct {
	blob Blob
}

// NewArticleRepo creates a repository over the given blob store.
func NewArticleRepo(blob Blob) *ArticleRepo {
	return &ArticleRepo{blob: blob}
}

func articleKey(source types.Source, id string) string {
	return fmt.Sprintf("articles/%s/%s.json", source, id)
}

func variantKey(source types.Source, articleID string, variant types.VariantName) string {
	return fmt.Sprintf("articles/%s/%s/variants/%s.json", source, articleID, variant)
}

// Save writes the article as JSON. The article must carry a conforming ID.
func (r *ArticleRepo) Save(ctx context.Context, article *types.Article) error {
	if err := article.Validate(); err != nil {
		return fmt.Errorf("refusing to save article: %w", err)
	}
	data, err := json.MarshalIndent(article, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal article %s: %w", article.ID, err)
	}
	if err := r.blob.Put(ctx, articleKey(article.Source, article.ID), data, "application/json", ""); err != nil {
		return fmt.Errorf("failed to save article %s: %w", article.ID, err)
	}
	return nil
}

// FindByID returns the stored article, or ErrNotFound.
func (r *ArticleRepo) FindByID(ctx context.Context, id string, source types.Source) (*types.Article, error) {
	data, err := r.blob.Get(ctx, articleKey(source, id))
	if err != nil {
		return nil, err
	}
	var article types.Article
	if err := json.Unmarshal(data, &article); err != nil {
		return nil, fmt.Errorf("failed to parse article %s: %w", id, err)
	}
	return &article, nil
}

// FindMany fetches articles by ID, silently omitting any whose record is
// missing, whose ID is malformed, or whose JSON fails to parse.
func (r *ArticleRepo) FindMany(ctx context.Context, ids []string) []*types.Article {
	articles := make([]*types.Article, 0, len(ids))
	for _, id := range ids {
		source, err := types.SourceFromID(id)
		if err != nil {
			log.Printf("[ArticleRepo] Skipping %s: %v", id, err)
			continue
		}
		article, err := r.FindByID(ctx, id, source)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				log.Printf("[ArticleRepo] Skipping %s: %v", id, err)
			}
			continue
		}
		articles = append(articles, article)
	}
	return articles
}

// Delete removes the article, its variants, and its thumbnails.
func (r *ArticleRepo) Delete(ctx context.Context, id string, source types.Source) error {
	if err := r.blob.Delete(ctx, articleKey(source, id)); err != nil {
		return err
	}
	variants, _ := r.ListVariants(ctx, id, source)
	for _, v := range variants {
		if v == types.VariantRaw {
			continue
		}
		_ = r.blob.Delete(ctx, variantKey(source, id, v))
	}
	for _, ext := range []string{"png", "jpg"} {
		_ = r.blob.Delete(ctx, fmt.Sprintf("thumbnails/%s.%s", id, ext))
	}
	return nil
}

// SaveVariant writes one variant record, overwriting any previous record for
// the same (articleId, variant) pair. Raw is never persisted.
func (r *ArticleRepo) SaveVariant(ctx context.Context, variant *types.Variant) error {
	if variant.Variant == types.VariantRaw {
		return fmt.Errorf("raw variant is synthesized on read, not stored")
	}
	data, err := json.MarshalIndent(variant, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal variant: %w", err)
	}
	key := variantKey(variant.Source, variant.ArticleID, variant.Variant)
	if err := r.blob.Put(ctx, key, data, "application/json", ""); err != nil {
		return fmt.Errorf("failed to save variant %s for %s: %w", variant.Variant, variant.ArticleID, err)
	}
	return nil
}

// GetVariant returns a stored variant, or ErrNotFound.
func (r *ArticleRepo) GetVariant(ctx context.Context, articleID string, source types.Source, name types.VariantName) (*types.Variant, error) {
	data, err := r.blob.Get(ctx, variantKey(source, articleID, name))
	if err != nil {
		return nil, err
	}
	var variant types.Variant
	if err := json.Unmarshal(data, &variant); err != nil {
		return nil, fmt.Errorf("failed to parse variant %s for %s: %w", name, articleID, err)
	}
	return &variant, nil
}

// ListVariants returns every available variant name for an article. Raw is
// always included since it can be synthesized from the article itself.
func (r *ArticleRepo) ListVariants(ctx context.Context, articleID string, source types.Source) ([]types.VariantName, error) {
	prefix := fmt.Sprintf("articles/%s/%s/variants/", source, articleID)
	keys, err := r.blob.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	variants := []types.VariantName{types.VariantRaw}
	for _, key := range keys {
		name := strings.TrimSuffix(path.Base(key), ".json")
		if name != "" {
			variants = append(variants, types.VariantName(name))
		}
	}
	return variants, nil
}

// SaveThumbnail stores generated image bytes and returns the public path.
func (r *ArticleRepo) SaveThumbnail(ctx context.Context, articleID string, data []byte, contentType string) (string, error) {
	ext := "jpg"
	if strings.Contains(contentType, "png") {
		ext = "png"
	}
	key := fmt.Sprintf("thumbnails/%s.%s", articleID, ext)
	if err := r.blob.Put(ctx, key, data, contentType, config.ThumbnailCacheControl); err != nil {
		return "", fmt.Errorf("failed to upload thumbnail for %s: %w", articleID, err)
	}
	return "/" + key, nil
}

// GetThumbnail returns stored thumbnail bytes by object key.
func (r *ArticleRepo) GetThumbnail(ctx context.Context, key string) ([]byte, error) {
	return r.blob.Get(ctx, key)
}
