package transform

import (
	"strings"
	"unicode/utf8"

	"glasswire/types"
)

// Style names a prompt voice for the default transformation pass.
type Style string

const (
	StylePamuk     Style = "pamuk"
	StyleDirect    Style = "direct"
	StyleGreentext Style = "greentext"
	StyleRandom    Style = "random"
)

const jsonReplyInstructions = `Respond with a JSON object containing:
{
  "transformedTitle": "An English title (maximum 80 characters, DO NOT include the character count in the output)",
  "transformedContent": "The transformed article in English (300-500 words)",
  "tags": ["3-5 relevant English tags"]
}`

const pamukPrompt = `You are a literary journalist combining introspective, layered storytelling with sharp, elegant magazine prose.

Transform this news article into a compelling English narrative that:
- Opens with a vivid scene or detail that draws readers in
- Finds the human story within the news
- Uses rich, sensory language while remaining clear and accessible
- Keeps the essence and facts of the original story

CRITICAL: Output MUST be in English only. If the source article is in Turkish or any other language, translate it while transforming it into literary prose.

Original Title: {title}
Original Content: {content}
Source: {source}

` + jsonReplyInstructions

const directPrompt = `You are a bold, no-nonsense writer with a direct, punchy, minimalist style.

Transform this news article into a hard-hitting narrative that:
- Uses short, punchy sentences. No fluff.
- Cuts through the noise to the raw truth.
- Avoids flowery adjectives and passive voice.
- Keeps the facts but delivers them with impact.

CRITICAL: Output MUST be in English only. Translate if the source is in another language.

Original Title: {title}
Original Content: {content}
Source: {source}

` + jsonReplyInstructions

const greentextPrompt = `You are an anonymous user on an image board. Write a greentext story about the events in this news article.

Formatting rules:
- Every line MUST start with >
- First line MUST be > be [someone/something related to the story]
- Present tense, super concise, dry humor
- Keep it readable for someone who doesn't know image board culture
- STRICTLY follow the > format in the transformedContent field

Original Title: {title}
Original Content: {content}
Source: {source}

` + jsonReplyInstructions

var stylePrompts = map[Style]string{
	StylePamuk:     pamukPrompt,
	StyleDirect:    directPrompt,
	StyleGreentext: greentextPrompt,
}

// selectableStyles is the pool StyleRandom draws from.
var selectableStyles = []Style{StylePamuk, StyleDirect, StyleGreentext}

// variantInstructions is the per-variant instruction block substituted into
// the variant prompt. Raw has no entry: it is never transformed.
var variantInstructions = map[types.VariantName]string{
	types.VariantDefault:   "Transform this article into an engaging, informative summary suitable for general readers. Maintain the core message while making it accessible.",
	types.VariantTechnical: "Transform this into a technical deep-dive. Focus on implementation details, technical concepts, and insights for experts in the field.",
	types.VariantCasual:    "Rewrite this in a friendly, conversational tone. Make it fun and easy to read, like explaining to a friend over coffee.",
	types.VariantFormal:    "Present this information in a professional, formal manner suitable for business or academic contexts.",
	types.VariantBrief:     "Create an ultra-concise summary. Capture only the most essential points in 2-3 sentences maximum.",
}

const variantPromptTemplate = `{instructions}

CRITICAL: Output MUST be in English only. Translate if the source is in another language.

Original Title: {title}
Original Content: {content}
Source: {source}

` + jsonReplyInstructions

// truncate caps s at max bytes without splitting a UTF-8 rune. Turkish
// content carries multi-byte characters that a plain byte slice would cut
// in half.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func buildPrompt(template string, article *types.Article, maxContentLen int) string {
	content := truncate(article.OriginalContent, maxContentLen)
	prompt := strings.Replace(template, "{title}", article.OriginalTitle, 1)
	prompt = strings.Replace(prompt, "{content}", content, 1)
	return strings.Replace(prompt, "{source}", string(article.Source), 1)
}

func buildVariantPrompt(variant types.VariantName, article *types.Article, maxContentLen int) string {
	template := strings.Replace(variantPromptTemplate, "{instructions}", variantInstructions[variant], 1)
	return buildPrompt(template, article, maxContentLen)
}
