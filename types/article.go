package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Source identifies a news provider.
type Source string

const (
	SourceHackerNews Source = "hackernews"
	SourceWikipedia  Source = "wikipedia"
	SourceReddit     Source = "reddit"
	SourceEksisozluk Source = "eksisozluk"
	SourceWebrazzi   Source = "webrazzi"
	SourceBBC        Source = "bbc"
	SourceT24        Source = "t24"
)

// AllSources lists every known source in registration order.
var AllSources = []Source{
	SourceHackerNews,
	SourceWikipedia,
	SourceReddit,
	SourceEksisozluk,
	SourceWebrazzi,
	SourceBBC,
	SourceT24,
}

// sourcePrefixes maps each source to the prefix used in article IDs.
// The table is bidirectional: prefixToSource is derived at init time so an
// ID alone is always enough to reconstruct its storage path.
var sourcePrefixes = map[Source]string{
	SourceHackerNews: "hn",
	SourceWikipedia:  "wiki",
	SourceReddit:     "reddit",
	SourceEksisozluk: "eksisozluk",
	SourceWebrazzi:   "webrazzi",
	SourceBBC:        "bbc",
	SourceT24:        "t24",
}

var prefixToSource = func() map[string]Source {
	m := make(map[string]Source, len(sourcePrefixes))
	for src, prefix := range sourcePrefixes {
		m[prefix] = src
	}
	return m
}()

// ValidSource reports whether s names a known source.
func ValidSource(s string) bool {
	_, ok := sourcePrefixes[Source(s)]
	return ok
}

// NewArticleID builds a conforming article ID from a source and an opaque
// per-source identifier. The opaque part may not be empty.
func NewArticleID(source Source, opaque string) (string, error) {
	prefix, ok := sourcePrefixes[source]
	if !ok {
		return "", fmt.Errorf("unknown source %q", source)
	}
	if strings.TrimSpace(opaque) == "" {
		return "", fmt.Errorf("empty opaque id for source %q", source)
	}
	return prefix + "-" + opaque, nil
}

// SourceFromID recovers the source from an article ID prefix. IDs that do
// not carry a known prefix are rejected rather than guessed at.
func SourceFromID(id string) (Source, error) {
	prefix, rest, found := strings.Cut(id, "-")
	if !found || rest == "" {
		return "", fmt.Errorf("malformed article id %q", id)
	}
	source, ok := prefixToSource[prefix]
	if !ok {
		return "", fmt.Errorf("unknown source prefix %q in article id %q", prefix, id)
	}
	return source, nil
}

// Language of an article's original content.
type Language string

const (
	LanguageTurkish Language = "tr"
	LanguageEnglish Language = "en"
)

// Article is the raw crawl result for one news item. The original* fields
// are immutable after creation; ThumbnailURL is set once by the image step.
type Article struct {
	ID              string    `json:"id"`
	Source          Source    `json:"source"`
	OriginalTitle   string    `json:"originalTitle"`
	OriginalContent string    `json:"originalContent"`
	OriginalURL     string    `json:"originalUrl"`
	Language        Language  `json:"language"`
	CrawledAt       time.Time `json:"crawledAt"`
	PublishedAt     time.Time `json:"publishedAt,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`

	// Legacy single-variant fields, superseded by Variant records but kept
	// for older stored articles and the default pipeline pass.
	TransformedTitle   string `json:"transformedTitle,omitempty"`
	TransformedContent string `json:"transformedContent,omitempty"`
}

// Validate checks the article's ID against its declared source.
func (a *Article) Validate() error {
	source, err := SourceFromID(a.ID)
	if err != nil {
		return err
	}
	if source != a.Source {
		return fmt.Errorf("article id %q maps to source %q, not %q", a.ID, source, a.Source)
	}
	return nil
}

// DisplayTitle returns the transformed title when available.
func (a *Article) DisplayTitle() string {
	if a.TransformedTitle != "" {
		return a.TransformedTitle
	}
	return a.OriginalTitle
}

// DisplayContent returns the transformed content when available.
func (a *Article) DisplayContent() string {
	if a.TransformedContent != "" {
		return a.TransformedContent
	}
	return a.OriginalContent
}

// VariantName names one transformed rendering of an article.
type VariantName string

const (
	VariantRaw       VariantName = "raw"
	VariantDefault   VariantName = "default"
	VariantTechnical VariantName = "technical"
	VariantCasual    VariantName = "casual"
	VariantFormal    VariantName = "formal"
	VariantBrief     VariantName = "brief"
)

// TransformableVariants lists every variant that is produced by the
// transform step. Raw is excluded: it is synthesized on read and never stored.
var TransformableVariants = []VariantName{
	VariantDefault,
	VariantTechnical,
	VariantCasual,
	VariantFormal,
	VariantBrief,
}

// ValidVariant reports whether v names a known variant, raw included.
func ValidVariant(v string) bool {
	if VariantName(v) == VariantRaw {
		return true
	}
	for _, known := range TransformableVariants {
		if VariantName(v) == known {
			return true
		}
	}
	return false
}

// VariantMetadata records how a variant was produced.
type VariantMetadata struct {
	Variant       VariantName `json:"variant"`
	Model         string      `json:"model"`
	PromptStyle   string      `json:"promptStyle,omitempty"`
	TransformedAt time.Time   `json:"transformedAt"`
}

// Variant is one stored transformed rendering of an article. At most one
// variant exists per (articleId, variant) pair; a second write overwrites.
type Variant struct {
	ArticleID    string          `json:"articleId"`
	Source       Source          `json:"source"`
	Variant      VariantName     `json:"variant"`
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Metadata     VariantMetadata `json:"metadata"`
}

// RawVariant synthesizes the raw variant directly from the article.
func RawVariant(a *Article) *Variant {
	return &Variant{
		ArticleID:    a.ID,
		Source:       a.Source,
		Variant:      VariantRaw,
		Title:        a.OriginalTitle,
		Content:      a.OriginalContent,
		ThumbnailURL: a.ThumbnailURL,
		Tags:         a.Tags,
		Metadata: VariantMetadata{
			Variant:       VariantRaw,
			Model:         "none",
			TransformedAt: a.CrawledAt,
		},
	}
}

// SubscriptionKeys holds the client encryption keys of a push subscription.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is one browser push endpoint plus its encryption keys.
type Subscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

// Hash returns the short stable identifier used as the subscription's
// storage key, derived from the endpoint URL.
func (s *Subscription) Hash() string {
	sum := sha256.Sum256([]byte(s.Endpoint))
	return hex.EncodeToString(sum[:])[:32]
}

// ProviderResult aggregates the outcome of crawling one provider. Errors are
// carried as strings so a failing provider never aborts the batch.
type ProviderResult struct {
	ProviderID string     `json:"providerId"`
	Articles   []*Article `json:"articles"`
	Errors     []string   `json:"errors,omitempty"`
	DurationMs int64      `json:"durationMs"`
}

// HashString maps a string to a stable non-negative integer, used to pick
// deterministic placeholder thumbnails.
func HashString(s string) int {
	sum := sha256.Sum256([]byte(s))
	n := 0
	for _, b := range sum[:4] {
		n = n<<8 | int(b)
	}
	if n < 0 {
		n = -n
	}
	return n
}
