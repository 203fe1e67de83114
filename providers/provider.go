// Package providers defines the pluggable news source interface and the
// registry that dispatches crawls across sources.
package providers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"glasswire/types"
)

// Config describes one provider.
type Config struct {
	ID           types.Source
	Name         string
	Enabled      bool
	Language     types.Language
	DefaultLimit int
}

// Provider is the adapter every news source implements. Crawl may return
// partial results with an error; the registry treats both independently.
type Provider interface {
	Config() Config
	Crawl(ctx context.Context, limit int) ([]*types.Article, error)
	// CanRun reports whether the provider has the configuration it needs
	// (API keys etc), letting the registry skip it proactively.
	CanRun() bool
}

// Enricher is implemented by providers that fetch full article content or
// third-party context after the initial crawl. Enrich mutates the article
// in place; a failure degrades the article rather than dropping it.
type Enricher interface {
	Enrich(ctx context.Context, article *types.Article) error
}

// Registry holds all providers and dispatches crawls. It is an explicit
// instance constructed at startup and threaded through, not a global.
type Registry struct {
	mu        sync.RWMutex
	providers map[types.Source]Provider
	order     []types.Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[types.Source]Provider)}
}

// Register adds a provider. Registering the same ID twice replaces the
// earlier provider but keeps its position.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := p.Config().ID
	if _, exists := r.providers[id]; !exists {
		r.order = append(r.order, id)
	}
	r.providers[id] = p
	log.Printf("[Registry] Registered provider: %s", id)
}

// Get returns a provider by ID.
func (r *Registry) Get(id types.Source) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// ProviderIDs returns all registered provider IDs in registration order.
func (r *Registry) ProviderIDs() []types.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]types.Source, len(r.order))
	copy(ids, r.order)
	return ids
}

// EnabledIDs returns the IDs of providers that are enabled and can run.
func (r *Registry) EnabledIDs() []types.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []types.Source
	for _, id := range r.order {
		p := r.providers[id]
		if p.Config().Enabled && p.CanRun() {
			ids = append(ids, id)
		}
	}
	return ids
}

// CrawlProvider crawls one provider. Failures never escape as errors: they
// are captured in the result's Errors list so one bad source cannot abort a
// batch. Articles failing ID validation are dropped, not saved broken.
func (r *Registry) CrawlProvider(ctx context.Context, id types.Source, limit int) types.ProviderResult {
	result := types.ProviderResult{ProviderID: string(id), Articles: []*types.Article{}}

	provider, ok := r.Get(id)
	if !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("provider %s not found", id))
		return result
	}
	cfg := provider.Config()
	if !cfg.Enabled {
		result.Errors = append(result.Errors, fmt.Sprintf("provider %s is disabled", id))
		return result
	}
	if !provider.CanRun() {
		result.Errors = append(result.Errors, fmt.Sprintf("provider %s cannot run (missing configuration)", id))
		return result
	}
	if limit <= 0 {
		limit = cfg.DefaultLimit
	}

	start := time.Now()
	articles, err := provider.Crawl(ctx, limit)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	valid := articles[:0]
	for _, article := range articles {
		if vErr := article.Validate(); vErr != nil {
			log.Printf("[Registry] Dropping article from %s: %v", id, vErr)
			result.Errors = append(result.Errors, vErr.Error())
			continue
		}
		valid = append(valid, article)
	}
	articles = valid

	if enricher, ok := provider.(Enricher); ok {
		for _, article := range articles {
			if eErr := enricher.Enrich(ctx, article); eErr != nil {
				// Enrichment failure keeps whatever content was present.
				log.Printf("[Registry] Enrichment failed for %s: %v", article.ID, eErr)
			}
		}
	}

	result.Articles = articles
	result.DurationMs = time.Since(start).Milliseconds()
	log.Printf("[Registry] Crawled %d articles from %s in %dms", len(articles), id, result.DurationMs)
	return result
}

// CrawlMultiple crawls the given providers in parallel. Results follow the
// input order, not completion order, so batch output stays deterministic.
func (r *Registry) CrawlMultiple(ctx context.Context, ids []types.Source, limit int) []types.ProviderResult {
	results := make([]types.ProviderResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id types.Source) {
			defer wg.Done()
			results[i] = r.CrawlProvider(ctx, id, limit)
		}(i, id)
	}
	wg.Wait()
	return results
}

// CrawlAll crawls every enabled provider that can run.
func (r *Registry) CrawlAll(ctx context.Context, limit int) []types.ProviderResult {
	ids := r.EnabledIDs()
	log.Printf("[Registry] Crawling all %d enabled providers: %v", len(ids), ids)
	return r.CrawlMultiple(ctx, ids, limit)
}
