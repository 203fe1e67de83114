// Package images produces article thumbnails through a fallback ladder:
// AI generation, stock photos, deterministic placeholder, random photo.
// The ladder guarantees a resolvable URL; it never returns an error.
package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"glasswire/storage"
	"glasswire/types"
)

// Uploader stores generated image bytes and returns their public path.
// *storage.ArticleRepo satisfies it.
type Uploader interface {
	SaveThumbnail(ctx context.Context, articleID string, data []byte, contentType string) (string, error)
}

// Config holds the image service settings.
type Config struct {
	// EnableAI gates the Gemini generation step administratively, even
	// when a key is present.
	EnableAI       bool
	GeminiAPIKey   string
	UnsplashAPIKey string
}

// Service generates thumbnails for articles.
type Service struct {
	cfg      Config
	uploader Uploader
	client   *http.Client

	geminiURL   string
	unsplashURL string
}

// New creates the image service.
func New(cfg Config, uploader Uploader) *Service {
	return &Service{
		cfg:         cfg,
		uploader:    uploader,
		client:      &http.Client{Timeout: 60 * time.Second},
		geminiURL:   "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-image:generateContent",
		unsplashURL: "https://api.unsplash.com/photos/random",
	}
}

// themeTable maps keyword sets to coarse topic labels used in generation
// prompts. Scored by substring match count; ties go to the first declared.
var themeTable = []struct {
	theme    string
	keywords []string
}{
	{"technology and innovation", []string{"ai", "tech", "software", "computer", "digital", "innovation", "startup", "code"}},
	{"business and economy", []string{"business", "market", "economy", "finance", "trade", "company", "investment"}},
	{"science and discovery", []string{"science", "research", "study", "discovery", "space", "climate", "nature"}},
	{"culture and society", []string{"culture", "art", "music", "film", "book", "society", "people", "community"}},
	{"politics and governance", []string{"government", "politics", "election", "policy", "law", "democracy"}},
	{"global events", []string{"world", "international", "global", "country", "nation", "war", "peace"}},
	{"urban life and cities", []string{"city", "urban", "architecture", "building", "street", "neighborhood"}},
	{"knowledge and learning", []string{"education", "learning", "university", "school", "knowledge", "wisdom"}},
}

// extractTheme picks the best-matching theme for the article text.
func extractTheme(title, content string) string {
	text := strings.ToLower(title + " " + content)
	best := "abstract concepts and ideas"
	bestScore := 0
	for _, entry := range themeTable {
		score := 0
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = entry.theme
		}
	}
	return best
}

// GenerateArticleImage returns a thumbnail URL for the article. The ladder:
// AI generation uploaded to the blob store, Unsplash, DiceBear (offline,
// deterministic), Lorem Picsum. It always succeeds.
func (s *Service) GenerateArticleImage(ctx context.Context, article *types.Article) string {
	if s.cfg.EnableAI && s.cfg.GeminiAPIKey != "" {
		if thumbURL := s.generateAIThumbnail(ctx, article); thumbURL != "" {
			return thumbURL
		}
		log.Printf("[Image] AI generation failed for %s, falling back", article.ID)
	}

	if s.cfg.UnsplashAPIKey != "" {
		if stockURL := s.unsplashURLFor(ctx, article); stockURL != "" {
			return stockURL
		}
	}

	if placeholder := DicebearURL(article.ID); placeholder != "" {
		return placeholder
	}
	// Unreachable in practice: DiceBear URL synthesis cannot fail.
	return fmt.Sprintf("https://picsum.photos/seed/%d/800/600", rand.Intn(1000))
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData *struct {
					Data     string `json:"data"`
					MimeType string `json:"mime_type"`
				} `json:"inline_data"`
				InlineDataCamel *struct {
					Data     string `json:"data"`
					MimeType string `json:"mimeType"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// truncate caps s at max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func (s *Service) generateAIThumbnail(ctx context.Context, article *types.Article) string {
	title := article.DisplayTitle()
	content := truncate(article.DisplayContent(), 500)
	theme := extractTheme(title, content)

	prompt := fmt.Sprintf(`Create a premium, editorial-style illustration for a news article titled: %q.

Style Guide:
- Aesthetic: modern magazine cover style.
- Visuals: abstract, minimalist figures (NO realistic faces). Use silhouettes or soft shapes to represent people.
- Color Palette: sophisticated, muted tones with one vibrant accent color.
- Elements: symbolic metaphors related to %q.

Strict Constraints:
- NO TEXT. NO LOGOS. NO REALISTIC PHOTO ELEMENTS. NO CLUTTER.`, title, theme)

	payload, err := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	})
	if err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.geminiURL+"?key="+s.cfg.GeminiAPIKey, bytes.NewReader(payload))
	if err != nil {
		return ""
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Image] Gemini request failed for %s: %v", article.ID, err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("[Image] Gemini returned status %d for %s: %s", resp.StatusCode, article.ID, body)
		return ""
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Printf("[Image] Failed to parse Gemini response for %s: %v", article.ID, err)
		return ""
	}

	for _, candidate := range parsed.Candidates {
		for _, part := range candidate.Content.Parts {
			data, mimeType := "", ""
			if part.InlineData != nil {
				data, mimeType = part.InlineData.Data, part.InlineData.MimeType
			} else if part.InlineDataCamel != nil {
				data, mimeType = part.InlineDataCamel.Data, part.InlineDataCamel.MimeType
			}
			if data == "" {
				continue
			}
			decoded, decErr := base64.StdEncoding.DecodeString(data)
			if decErr != nil {
				log.Printf("[Image] Base64 decode failed for %s: %v", article.ID, decErr)
				continue
			}
			if mimeType == "" {
				mimeType = "image/png"
			}
			thumbURL, upErr := s.uploader.SaveThumbnail(ctx, article.ID, decoded, mimeType)
			if upErr != nil {
				log.Printf("[Image] Thumbnail upload failed for %s: %v", article.ID, upErr)
				return ""
			}
			log.Printf("[Image] ✓ AI thumbnail for %s (%d bytes)", article.ID, len(decoded))
			return thumbURL
		}
	}
	return ""
}

func (s *Service) unsplashURLFor(ctx context.Context, article *types.Article) string {
	title := strings.ToLower(article.DisplayTitle())
	var keywords []string
	for _, word := range strings.Fields(title) {
		if len(word) > 4 {
			keywords = append(keywords, word)
		}
		if len(keywords) == 3 {
			break
		}
	}
	query := strings.Join(keywords, ",")
	if query == "" {
		query = "technology,news"
	}

	reqURL := s.unsplashURL + "?orientation=landscape&query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Authorization", "Client-ID "+s.cfg.UnsplashAPIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Image] Unsplash request failed: %v", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("[Image] Unsplash returned status %d", resp.StatusCode)
		return ""
	}

	var parsed struct {
		URLs struct {
			Regular string `json:"regular"`
			Small   string `json:"small"`
		} `json:"urls"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ""
	}
	if parsed.URLs.Regular != "" {
		return parsed.URLs.Regular
	}
	return parsed.URLs.Small
}

// dicebearStyles are rotated deterministically by article ID hash.
var dicebearStyles = []string{"shapes", "rings", "pixel-art", "identicon", "thumbs"}

// DicebearURL synthesizes a deterministic placeholder URL from the article
// ID. No network round-trip is needed; the URL always resolves.
func DicebearURL(articleID string) string {
	style := dicebearStyles[types.HashString(articleID)%len(dicebearStyles)]
	return fmt.Sprintf(
		"https://api.dicebear.com/7.x/%s/png?seed=%s&size=512&backgroundColor=b6e3f4,c0aede,d1d4f9,ffd5dc,ffdfbf",
		style, url.QueryEscape(articleID),
	)
}

var _ Uploader = (*storage.ArticleRepo)(nil)
