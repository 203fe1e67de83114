// Package transform rewrites article text through an external chat model.
// Its contract is total: Transform never fails, it degrades to identity.
package transform

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"glasswire/config"
	"glasswire/types"
)

// minContentLen is the threshold below which non-Turkish articles are not
// worth transforming. Turkish sources are exempt so that very short snippets
// still get a title rewrite and translation.
const minContentLen = 50

// Generator abstracts the chat-completion backend. GenerateJSON returns the
// raw model reply, expected to be a JSON object.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Options tweak a single transformation.
type Options struct {
	// Style overrides the transformer's default prompt style.
	Style Style
	// customPrompt, when set, replaces style selection entirely.
	customPrompt string
}

// Transformer drives best-effort article transformations. A nil generator
// means no credential is configured and every call takes the identity path.
type Transformer struct {
	generator    Generator
	defaultStyle Style
}

// New creates a transformer. generator may be nil.
func New(generator Generator, defaultStyle Style) *Transformer {
	if defaultStyle == "" {
		defaultStyle = StyleRandom
	}
	return &Transformer{
		generator:    generator,
		defaultStyle: defaultStyle,
	}
}

// Configured reports whether a generation backend is available.
func (t *Transformer) Configured() bool { return t.generator != nil }

type modelReply struct {
	TransformedTitle   string   `json:"transformedTitle"`
	TransformedContent string   `json:"transformedContent"`
	Tags               []string `json:"tags"`
}

// Transform returns a copy of the article with the transformed fields set.
// On any failure (missing credential, short content, API error, malformed
// JSON) the transformed fields are the original fields verbatim; the caller
// always receives a usable article.
func (t *Transformer) Transform(ctx context.Context, article *types.Article, opts Options) *types.Article {
	result := *article

	if t.generator == nil {
		log.Printf("[Transform] No generation credential for %s - skipping", article.ID)
		return identity(&result)
	}
	if article.Language != types.LanguageTurkish && len(article.OriginalContent) < minContentLen {
		log.Printf("[Transform] Content too short for %s (%d chars) - skipping", article.ID, len(article.OriginalContent))
		return identity(&result)
	}

	prompt := opts.customPrompt
	styleName := "custom"
	if prompt == "" {
		style := opts.Style
		if style == "" {
			style = t.defaultStyle
		}
		style = t.resolveStyle(style)
		prompt = buildPrompt(stylePrompts[style], article, config.MaxTransformContentLen)
		styleName = string(style)
	} else {
		prompt = buildPrompt(prompt, article, config.MaxTransformContentLen)
	}
	log.Printf("[Transform] Transforming %s with style %s", article.ID, styleName)

	raw, err := t.generator.GenerateJSON(ctx, prompt)
	if err != nil {
		log.Printf("[Transform] Generation failed for %s: %v", article.ID, err)
		return identity(&result)
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &reply); err != nil {
		log.Printf("[Transform] Malformed reply for %s: %v", article.ID, err)
		return identity(&result)
	}
	if reply.TransformedContent == "" {
		reply.TransformedContent = article.OriginalContent
	}

	result.TransformedTitle = cleanTitle(reply.TransformedTitle, article.OriginalTitle)
	result.TransformedContent = reply.TransformedContent
	if len(reply.Tags) > 0 {
		result.Tags = reply.Tags
	}
	log.Printf("[Transform] ✓ Transformed %s: %q", article.ID, result.TransformedTitle)
	return &result
}

// TransformVariant produces one named variant of the article. Like
// Transform, it is total: on failure the variant carries the original title
// and content. The caller persists the result.
func (t *Transformer) TransformVariant(ctx context.Context, article *types.Article, variant types.VariantName, style Style) *types.Variant {
	transformed := t.Transform(ctx, article, Options{
		Style:        style,
		customPrompt: buildVariantPrompt(variant, article, config.MaxTransformContentLen),
	})

	model := "none"
	promptStyle := ""
	if t.generator != nil {
		model = t.generator.Model()
		promptStyle = string(style)
	}

	return &types.Variant{
		ArticleID:    article.ID,
		Source:       article.Source,
		Variant:      variant,
		Title:        transformed.DisplayTitle(),
		Content:      transformed.DisplayContent(),
		ThumbnailURL: article.ThumbnailURL,
		Tags:         transformed.Tags,
		Metadata: types.VariantMetadata{
			Variant:       variant,
			Model:         model,
			PromptStyle:   promptStyle,
			TransformedAt: time.Now(),
		},
	}
}

func (t *Transformer) resolveStyle(style Style) Style {
	if style == StyleRandom {
		// Top-level rand is safe for the pipeline's concurrent batches.
		return selectableStyles[rand.Intn(len(selectableStyles))]
	}
	if _, ok := stylePrompts[style]; !ok {
		return StyleDirect
	}
	return style
}

func identity(article *types.Article) *types.Article {
	article.TransformedTitle = article.OriginalTitle
	article.TransformedContent = article.OriginalContent
	if article.Tags == nil {
		article.Tags = []string{}
	}
	return article
}

var charCountRe = regexp.MustCompile(`(?i)\(\d+\s*characters?\)`)

// cleanTitle strips the trailing character-count annotation and surrounding
// quotes some models echo into the title.
func cleanTitle(title, fallback string) string {
	title = strings.TrimSpace(charCountRe.ReplaceAllString(title, ""))
	title = strings.Trim(title, `"'`)
	if title == "" {
		return fallback
	}
	return title
}

// extractJSONObject trims any prose or code fences around the first JSON
// object in the reply.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
