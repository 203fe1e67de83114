package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"glasswire/types"
)

// Eksisozluk scrapes trending topic titles from the gündem page. Topics
// carry no body text, so enrichment searches the web via the Serper API for
// context snippets; without a SERPER_API_KEY the provider cannot run.
type Eksisozluk struct {
	client       *http.Client
	serperAPIKey string
	gundemURL    string
	serperURL    string
}

// NewEksisozluk creates the Ekşi Sözlük provider.
func NewEksisozluk(serperAPIKey string) *Eksisozluk {
	return &Eksisozluk{
		client:       &http.Client{Timeout: 15 * time.Second},
		serperAPIKey: serperAPIKey,
		gundemURL:    "https://eksisozluk.com/basliklar/gundem",
		serperURL:    "https://google.serper.dev/search",
	}
}

func (e *Eksisozluk) Config() Config {
	return Config{
		ID:           types.SourceEksisozluk,
		Name:         "Ekşi Sözlük",
		Enabled:      true,
		Language:     types.LanguageTurkish,
		DefaultLimit: 5,
	}
}

func (e *Eksisozluk) CanRun() bool { return e.serperAPIKey != "" }

var (
	topicRe        = regexp.MustCompile(`(?i)<h1[^>]*data-title="([^"]*)"[^>]*data-slug="([^"]*)"`)
	htmlEntityRepl = strings.NewReplacer("&#x27;", "'", "&quot;", `"`, "&amp;", "&", "&#x2B;", "+")
)

func (e *Eksisozluk) Crawl(ctx context.Context, limit int) ([]*types.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.gundemURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gündem page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gündem page returned status %d", resp.StatusCode)
	}

	html, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var articles []*types.Article
	for i, match := range topicRe.FindAllStringSubmatch(string(html), -1) {
		if len(articles) >= limit {
			break
		}
		title := strings.TrimSpace(htmlEntityRepl.Replace(match[1]))
		slug := strings.TrimSpace(match[2])
		if title == "" || slug == "" {
			continue
		}
		id, idErr := types.NewArticleID(types.SourceEksisozluk, fmt.Sprintf("%d-%d", now.Unix(), i))
		if idErr != nil {
			continue
		}
		articles = append(articles, &types.Article{
			ID:            id,
			Source:        types.SourceEksisozluk,
			OriginalTitle: title,
			// Content is filled by enrichment.
			OriginalContent: "",
			OriginalURL:     "https://eksisozluk.com/" + slug,
			Language:        types.LanguageTurkish,
			CrawledAt:       now,
		})
	}
	return articles, nil
}

// Enrich searches the web for context snippets about the topic. Two
// attempts: the primary news-scoped query, then a plain fallback query. No
// further retries.
func (e *Eksisozluk) Enrich(ctx context.Context, article *types.Article) error {
	if e.serperAPIKey == "" {
		return fmt.Errorf("no serper api key configured")
	}

	primary := article.OriginalTitle + " haber -site:eksisozluk.com"
	snippets, err := e.search(ctx, primary)
	if err != nil || len(snippets) == 0 {
		snippets, err = e.search(ctx, article.OriginalTitle)
	}
	if err != nil {
		return fmt.Errorf("search failed for %q: %w", article.OriginalTitle, err)
	}
	if len(snippets) == 0 {
		return fmt.Errorf("no snippets found for %q", article.OriginalTitle)
	}

	article.OriginalContent = strings.Join(snippets, "\n\n")
	return nil
}

type serperResponse struct {
	AnswerBox struct {
		Snippet string `json:"snippet"`
		Answer  string `json:"answer"`
	} `json:"answerBox"`
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (e *Eksisozluk) search(ctx context.Context, query string) ([]string, error) {
	payload, err := json.Marshal(map[string]any{
		"q":   query,
		"num": 8,
		"gl":  "tr",
		"hl":  "tr",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serperURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", e.serperAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper returned status %d", resp.StatusCode)
	}

	var parsed serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	var snippets []string
	if parsed.AnswerBox.Snippet != "" {
		snippets = append(snippets, "Özet: "+parsed.AnswerBox.Snippet)
	}
	if parsed.AnswerBox.Answer != "" {
		snippets = append(snippets, "Cevap: "+parsed.AnswerBox.Answer)
	}
	for _, result := range parsed.Organic {
		if result.Snippet != "" {
			snippets = append(snippets, result.Title+": "+result.Snippet)
		}
	}
	return snippets, nil
}
