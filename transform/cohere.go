package transform

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// CohereGenerator implements Generator using the Cohere Chat API (v2).
// Docs: https://docs.cohere.com/reference/chat
type CohereGenerator struct {
	client *cohereclient.Client
	model  string
}

// NewCohereGenerator returns a generator, or nil when no API key is
// configured so the transformer takes its identity path.
func NewCohereGenerator(apiKey, model string) *CohereGenerator {
	if apiKey == "" {
		return nil
	}
	// Force HTTP/1.1: the Cohere endpoint intermittently fails with HTTP/2
	// protocol errors on long-lived connections.
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereGenerator{client: client, model: model}
}

func (g *CohereGenerator) Model() string { return g.model }

// GenerateJSON sends the prompt in JSON mode and returns the raw reply text.
func (g *CohereGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := g.client.V2.Chat(reqCtx, &cohere.V2ChatRequest{
		Model: g.model,
		Messages: cohere.ChatMessages{
			{
				Role: "user",
				User: &cohere.UserMessageV2{
					Content: &cohere.UserMessageV2Content{String: prompt},
				},
			},
		},
		ResponseFormat: &cohere.ResponseFormatV2{
			Type:       "json_object",
			JsonObject: &cohere.JsonResponseFormatV2{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || resp.Message == nil {
		return "", errors.New("cohere chat returned empty response")
	}

	var sb strings.Builder
	for _, item := range resp.Message.Content {
		if item != nil && item.Text != nil {
			sb.WriteString(item.Text.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("cohere chat returned no text content")
	}
	return sb.String(), nil
}
