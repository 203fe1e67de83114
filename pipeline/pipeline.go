// Package pipeline runs the crawl-transform-store flow end to end.
package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"glasswire/config"
	"glasswire/events"
	"glasswire/images"
	"glasswire/providers"
	"glasswire/push"
	"glasswire/storage"
	"glasswire/transform"
	"glasswire/types"
)

// Summary reports one pipeline run.
type Summary struct {
	Crawled    int                   `json:"crawled"`
	Saved      int                   `json:"saved"`
	Failed     int                   `json:"failed"`
	DurationMs int64                 `json:"durationMs"`
	Providers  []types.ProviderResult `json:"providers"`
}

// Pipeline wires the crawl, transform, image, storage and notification
// stages. push and publisher may be nil (feature disabled).
type Pipeline struct {
	registry    *providers.Registry
	articles    *storage.ArticleRepo
	index       *storage.RecencyIndex
	transformer *transform.Transformer
	images      *images.Service
	push        *push.Service
	publisher   *events.Publisher
	style       transform.Style

	batchDelay time.Duration
}

// New assembles the pipeline.
func New(
	registry *providers.Registry,
	articles *storage.ArticleRepo,
	index *storage.RecencyIndex,
	transformer *transform.Transformer,
	imageService *images.Service,
	pushService *push.Service,
	publisher *events.Publisher,
	style transform.Style,
) *Pipeline {
	return &Pipeline{
		registry:    registry,
		articles:    articles,
		index:       index,
		transformer: transformer,
		images:      imageService,
		push:        pushService,
		publisher:   publisher,
		style:       style,
		batchDelay:  config.BatchDelay,
	}
}

// RunOnce crawls the given sources (all enabled sources when empty), stores
// the raw articles immediately, then transforms and decorates them in
// batches, re-saving each article as it improves. Articles survive every
// downstream failure: worst case they remain stored in raw form.
func (p *Pipeline) RunOnce(ctx context.Context, sources []types.Source, limit int) *Summary {
	start := time.Now()
	log.Printf("[Pipeline] Starting run (sources=%v, limit=%d)", sources, limit)

	var results []types.ProviderResult
	if len(sources) == 0 {
		results = p.registry.CrawlAll(ctx, limit)
	} else {
		results = p.registry.CrawlMultiple(ctx, sources, limit)
	}

	summary := &Summary{Providers: results}
	var fresh []*types.Article
	for _, result := range results {
		summary.Crawled += len(result.Articles)
		for _, article := range result.Articles {
			// Raw-first: the article is durable before any best-effort stage
			// runs against it.
			if err := p.saveAndIndex(ctx, article); err != nil {
				log.Printf("[Pipeline] Failed to save %s: %v", article.ID, err)
				summary.Failed++
				continue
			}
			p.publisher.ArticleSaved(events.EventArticleSaved, article)
			fresh = append(fresh, article)
		}
	}

	p.decorate(ctx, fresh, summary)

	if p.push != nil {
		p.push.NotifyNewArticles(ctx, fresh)
	}

	summary.DurationMs = time.Since(start).Milliseconds()
	log.Printf("[Pipeline] ✓ Run complete: %d crawled, %d saved, %d failed in %dms",
		summary.Crawled, summary.Saved, summary.Failed, summary.DurationMs)
	return summary
}

// decorate transforms and thumbnails articles in bounded parallel batches.
func (p *Pipeline) decorate(ctx context.Context, articles []*types.Article, summary *Summary) {
	var mu sync.Mutex
	for batchStart := 0; batchStart < len(articles); batchStart += config.BatchSize {
		end := batchStart + config.BatchSize
		if end > len(articles) {
			end = len(articles)
		}

		var wg sync.WaitGroup
		for _, article := range articles[batchStart:end] {
			wg.Add(1)
			go func(article *types.Article) {
				defer wg.Done()
				saved := p.decorateOne(ctx, article)
				mu.Lock()
				if saved {
					summary.Saved++
				} else {
					summary.Failed++
				}
				mu.Unlock()
			}(article)
		}
		wg.Wait()

		if end < len(articles) {
			time.Sleep(p.batchDelay)
		}
	}
}

// decorateOne runs the best-effort stages for one article and re-saves it.
// If the decorated save fails the original is re-saved once so a transform
// never costs us a stored article.
func (p *Pipeline) decorateOne(ctx context.Context, article *types.Article) bool {
	decorated := p.transformer.Transform(ctx, article, transform.Options{Style: p.style})

	if decorated.ThumbnailURL == "" && p.images != nil {
		decorated.ThumbnailURL = p.images.GenerateArticleImage(ctx, decorated)
	}

	if err := p.saveAndIndex(ctx, decorated); err != nil {
		log.Printf("[Pipeline] Failed to save decorated %s, retrying with original: %v", article.ID, err)
		if retryErr := p.saveAndIndex(ctx, article); retryErr != nil {
			log.Printf("[Pipeline] Retry save failed for %s: %v", article.ID, retryErr)
			return false
		}
		return true
	}
	p.publisher.ArticleSaved(events.EventArticleTransformed, decorated)
	return true
}

func (p *Pipeline) saveAndIndex(ctx context.Context, article *types.Article) error {
	if err := p.articles.Save(ctx, article); err != nil {
		return err
	}
	if err := p.index.Add(ctx, article.ID, article.Source); err != nil {
		// The blob write already succeeded; an index miss only delays
		// visibility until the next crawl touches the list.
		log.Printf("[Pipeline] Failed to index %s: %v", article.ID, err)
	}
	return nil
}
