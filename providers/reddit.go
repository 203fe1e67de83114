package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"glasswire/types"
)

// Reddit fetches hot posts from a set of news-oriented subreddits via the
// public JSON listing (no OAuth).
type Reddit struct {
	client     *http.Client
	subreddits []string
}

// NewReddit creates the Reddit provider.
func NewReddit() *Reddit {
	return &Reddit{
		client:     &http.Client{Timeout: 15 * time.Second},
		subreddits: []string{"worldnews", "technology"},
	}
}

func (r *Reddit) Config() Config {
	return Config{
		ID:           types.SourceReddit,
		Name:         "Reddit",
		Enabled:      true,
		Language:     types.LanguageEnglish,
		DefaultLimit: 10,
	}
}

func (r *Reddit) CanRun() bool { return true }

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID        string  `json:"id"`
				Title     string  `json:"title"`
				Selftext  string  `json:"selftext"`
				URL       string  `json:"url"`
				Permalink string  `json:"permalink"`
				Subreddit string  `json:"subreddit"`
				CreatedAt float64 `json:"created_utc"`
				Stickied  bool    `json:"stickied"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (r *Reddit) Crawl(ctx context.Context, limit int) ([]*types.Article, error) {
	var articles []*types.Article
	var lastErr error

	for _, subreddit := range r.subreddits {
		if len(articles) >= limit {
			break
		}
		listing, err := r.fetchHot(ctx, subreddit)
		if err != nil {
			lastErr = err
			continue
		}
		for _, child := range listing.Data.Children {
			if len(articles) >= limit {
				break
			}
			post := child.Data
			if post.Stickied || post.Title == "" {
				continue
			}
			id, idErr := types.NewArticleID(types.SourceReddit, post.ID)
			if idErr != nil {
				continue
			}
			content := post.Selftext
			if content == "" {
				content = post.Title
			}
			url := post.URL
			if url == "" {
				url = "https://reddit.com" + post.Permalink
			}
			articles = append(articles, &types.Article{
				ID:              id,
				Source:          types.SourceReddit,
				OriginalTitle:   post.Title,
				OriginalContent: content,
				OriginalURL:     url,
				Language:        types.LanguageEnglish,
				CrawledAt:       time.Now(),
				PublishedAt:     time.Unix(int64(post.CreatedAt), 0),
				Tags:            []string{post.Subreddit},
			})
		}
	}

	if len(articles) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all subreddits failed, last error: %w", lastErr)
	}
	return articles, nil
}

func (r *Reddit) fetchHot(ctx context.Context, subreddit string) (*redditListing, error) {
	url := fmt.Sprintf("https://www.reddit.com/r/%s/hot.json?limit=10", subreddit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "glasswire/1.0 (news aggregation)")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch r/%s: %w", subreddit, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("r/%s returned status %d", subreddit, resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to parse r/%s listing: %w", subreddit, err)
	}
	return &listing, nil
}
