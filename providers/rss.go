package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"glasswire/types"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

// RSSProvider adapts any RSS/Atom feed to the Provider interface. One
// instance is created per configured feed (bbc, webrazzi, t24).
type RSSProvider struct {
	cfg            Config
	feedURL        string
	fullContent    bool
	enrichTimeout  time.Duration
	parser         *gofeed.Parser
}

// NewRSS creates an RSS-backed provider for the given feed.
func NewRSS(cfg Config, feedURL string, fullContent bool, enrichTimeout time.Duration) *RSSProvider {
	return &RSSProvider{
		cfg:           cfg,
		feedURL:       feedURL,
		fullContent:   fullContent,
		enrichTimeout: enrichTimeout,
		parser:        gofeed.NewParser(),
	}
}

// NewBBC creates the BBC World News provider.
func NewBBC(enrichTimeout time.Duration) *RSSProvider {
	return NewRSS(Config{
		ID:           types.SourceBBC,
		Name:         "BBC News",
		Enabled:      true,
		Language:     types.LanguageEnglish,
		DefaultLimit: 10,
	}, "https://feeds.bbci.co.uk/news/world/rss.xml", true, enrichTimeout)
}

// NewWebrazzi creates the Webrazzi provider.
func NewWebrazzi(enrichTimeout time.Duration) *RSSProvider {
	return NewRSS(Config{
		ID:           types.SourceWebrazzi,
		Name:         "Webrazzi",
		Enabled:      true,
		Language:     types.LanguageTurkish,
		DefaultLimit: 10,
	}, "https://webrazzi.com/feed/", true, enrichTimeout)
}

// NewT24 creates the T24 provider.
func NewT24(enrichTimeout time.Duration) *RSSProvider {
	return NewRSS(Config{
		ID:           types.SourceT24,
		Name:         "T24",
		Enabled:      true,
		Language:     types.LanguageTurkish,
		DefaultLimit: 10,
	}, "https://t24.com.tr/rss", false, enrichTimeout)
}

func (p *RSSProvider) Config() Config { return p.cfg }

func (p *RSSProvider) CanRun() bool { return true }

func (p *RSSProvider) Crawl(ctx context.Context, limit int) ([]*types.Article, error) {
	feed, err := p.parser.ParseURLWithContext(p.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", p.feedURL, err)
	}

	count := len(feed.Items)
	if count > limit {
		count = limit
	}

	articles := make([]*types.Article, 0, count)
	for _, item := range feed.Items[:count] {
		if item.Title == "" || item.Link == "" {
			continue
		}
		id, idErr := types.NewArticleID(p.cfg.ID, shortHash(item.Link))
		if idErr != nil {
			continue
		}

		content := strings.TrimSpace(htmlTagRe.ReplaceAllString(item.Description, ""))
		if content == "" {
			content = strings.TrimSpace(htmlTagRe.ReplaceAllString(item.Content, ""))
		}
		if content == "" {
			content = item.Title
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = *item.UpdatedParsed
		}

		articles = append(articles, &types.Article{
			ID:              id,
			Source:          p.cfg.ID,
			OriginalTitle:   item.Title,
			OriginalContent: content,
			OriginalURL:     item.Link,
			Language:        p.cfg.Language,
			CrawledAt:       time.Now(),
			PublishedAt:     publishedAt,
			Tags:            item.Categories,
		})
	}
	return articles, nil
}

// Enrich replaces the feed excerpt with the full readable article body. A
// failed extraction keeps the excerpt.
func (p *RSSProvider) Enrich(_ context.Context, article *types.Article) error {
	if !p.fullContent || article.OriginalURL == "" {
		return nil
	}
	extracted, err := readability.FromURL(article.OriginalURL, p.enrichTimeout)
	if err != nil {
		return fmt.Errorf("readability extraction failed for %s: %w", article.OriginalURL, err)
	}
	if text := strings.TrimSpace(extracted.TextContent); text != "" {
		article.OriginalContent = text
	}
	if article.ThumbnailURL == "" && extracted.Image != "" {
		article.ThumbnailURL = extracted.Image
	}
	return nil
}

func shortHash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}
