package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"glasswire/types"
)

const hnBaseURL = "https://hacker-news.firebaseio.com/v0"

// HackerNews fetches top stories from the official Firebase API and
// enriches self-referential stories with their top comments.
type HackerNews struct {
	client *http.Client
	base   string
}

// NewHackerNews creates the Hacker News provider.
func NewHackerNews() *HackerNews {
	return &HackerNews{
		client: &http.Client{Timeout: 15 * time.Second},
		base:   hnBaseURL,
	}
}

func (h *HackerNews) Config() Config {
	return Config{
		ID:           types.SourceHackerNews,
		Name:         "Hacker News",
		Enabled:      true,
		Language:     types.LanguageEnglish,
		DefaultLimit: 15,
	}
}

// CanRun always reports true: the HN API needs no credentials.
func (h *HackerNews) CanRun() bool { return true }

type hnItem struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
	Time  int64  `json:"time"`
	Type  string `json:"type"`
	Kids  []int  `json:"kids"`
}

func (h *HackerNews) Crawl(ctx context.Context, limit int) ([]*types.Article, error) {
	var storyIDs []int
	if err := h.getJSON(ctx, h.base+"/topstories.json", &storyIDs); err != nil {
		return nil, fmt.Errorf("failed to fetch top stories: %w", err)
	}
	if len(storyIDs) > limit {
		storyIDs = storyIDs[:limit]
	}

	articles := make([]*types.Article, 0, len(storyIDs))
	for _, storyID := range storyIDs {
		var item hnItem
		if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.base, storyID), &item); err != nil {
			continue
		}
		if item.Title == "" {
			continue
		}

		id, err := types.NewArticleID(types.SourceHackerNews, strconv.Itoa(storyID))
		if err != nil {
			continue
		}
		content := item.Text
		if content == "" {
			content = item.Title
		}
		url := item.URL
		if url == "" {
			url = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", storyID)
		}
		var tags []string
		if item.Type != "" {
			tags = []string{item.Type}
		}

		articles = append(articles, &types.Article{
			ID:              id,
			Source:          types.SourceHackerNews,
			OriginalTitle:   item.Title,
			OriginalContent: content,
			OriginalURL:     url,
			Language:        types.LanguageEnglish,
			CrawledAt:       time.Now(),
			PublishedAt:     time.Unix(item.Time, 0),
			Tags:            tags,
		})
	}
	return articles, nil
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// Enrich appends the story's top comments to discussion-only posts so the
// transform step has something to work with beyond the title.
func (h *HackerNews) Enrich(ctx context.Context, article *types.Article) error {
	if !strings.Contains(article.OriginalURL, "news.ycombinator.com") {
		return nil
	}
	itemID := strings.TrimPrefix(article.ID, "hn-")

	var item hnItem
	if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%s.json", h.base, itemID), &item); err != nil {
		return fmt.Errorf("failed to fetch item %s: %w", itemID, err)
	}
	if len(item.Kids) == 0 {
		return nil
	}

	kids := item.Kids
	if len(kids) > 5 {
		kids = kids[:5]
	}
	var comments []string
	for _, kidID := range kids {
		var comment hnItem
		if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.base, kidID), &comment); err != nil {
			continue
		}
		text := strings.TrimSpace(htmlTagRe.ReplaceAllString(comment.Text, ""))
		if text != "" {
			comments = append(comments, text)
		}
	}
	if len(comments) > 0 {
		article.OriginalContent = article.OriginalTitle + "\n\n" + strings.Join(comments, "\n\n---\n\n")
	}
	return nil
}

func (h *HackerNews) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
