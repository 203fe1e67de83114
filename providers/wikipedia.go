package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"glasswire/types"
)

// Wikipedia pulls today's featured article and "in the news" items from the
// Wikimedia REST feed.
type Wikipedia struct {
	client *http.Client
	base   string
}

// NewWikipedia creates the Wikipedia provider.
func NewWikipedia() *Wikipedia {
	return &Wikipedia{
		client: &http.Client{Timeout: 15 * time.Second},
		base:   "https://en.wikipedia.org/api/rest_v1",
	}
}

func (w *Wikipedia) Config() Config {
	return Config{
		ID:           types.SourceWikipedia,
		Name:         "Wikipedia",
		Enabled:      true,
		Language:     types.LanguageEnglish,
		DefaultLimit: 5,
	}
}

func (w *Wikipedia) CanRun() bool { return true }

type wikiPage struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

type wikiFeatured struct {
	TFA  *wikiPage `json:"tfa"`
	News []struct {
		Story string     `json:"story"`
		Links []wikiPage `json:"links"`
	} `json:"news"`
}

func (w *Wikipedia) Crawl(ctx context.Context, limit int) ([]*types.Article, error) {
	day := time.Now().UTC().Format("2006/01/02")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.base+"/feed/featured/"+day, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "glasswire/1.0 (news aggregation)")
	req.Header.Set("Api-User-Agent", "glasswire/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch featured feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("featured feed returned status %d", resp.StatusCode)
	}

	var feed wikiFeatured
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to parse featured feed: %w", err)
	}

	now := time.Now()
	var articles []*types.Article

	if feed.TFA != nil && feed.TFA.Extract != "" {
		id, idErr := types.NewArticleID(types.SourceWikipedia, fmt.Sprintf("featured-%d", now.Unix()))
		if idErr == nil {
			title := feed.TFA.Title
			if title == "" {
				title = "Today's Featured Article"
			}
			articles = append(articles, &types.Article{
				ID:              id,
				Source:          types.SourceWikipedia,
				OriginalTitle:   title,
				OriginalContent: feed.TFA.Extract,
				OriginalURL:     feed.TFA.ContentURLs.Desktop.Page,
				Language:        types.LanguageEnglish,
				CrawledAt:       now,
				Tags:            []string{"featured"},
			})
		}
	}

	for i, item := range feed.News {
		if len(articles) >= limit {
			break
		}
		story := strings.TrimSpace(htmlTagRe.ReplaceAllString(item.Story, ""))
		if story == "" {
			continue
		}
		id, idErr := types.NewArticleID(types.SourceWikipedia, fmt.Sprintf("news-%d-%d", now.Unix(), i))
		if idErr != nil {
			continue
		}
		url := "https://en.wikipedia.org/wiki/Portal:Current_events"
		if len(item.Links) > 0 && item.Links[0].ContentURLs.Desktop.Page != "" {
			url = item.Links[0].ContentURLs.Desktop.Page
		}
		articles = append(articles, &types.Article{
			ID:              id,
			Source:          types.SourceWikipedia,
			OriginalTitle:   story,
			OriginalContent: story,
			OriginalURL:     url,
			Language:        types.LanguageEnglish,
			CrawledAt:       now,
			Tags:            []string{"current-events"},
		})
	}

	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}
