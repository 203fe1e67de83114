package images

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"glasswire/types"
)

type fakeUploader struct {
	uploads map[string][]byte
	err     error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploads: make(map[string][]byte)}
}

func (f *fakeUploader) SaveThumbnail(_ context.Context, articleID string, data []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads[articleID] = data
	return "/thumbnails/" + articleID + ".png", nil
}

func imageArticle(title string) *types.Article {
	return &types.Article{
		ID:            "hn-1",
		Source:        types.SourceHackerNews,
		OriginalTitle: title,
	}
}

func TestExtractTheme(t *testing.T) {
	cases := []struct {
		title, content, want string
	}{
		{"New AI software startup raises funding", "tech innovation", "technology and innovation"},
		{"Stock market rally continues", "finance and trade news", "business and economy"},
		{"Nothing matches here", "xyzzy", "abstract concepts and ideas"},
		{"Election results and government policy", "democracy in action", "politics and governance"},
	}
	for _, tc := range cases {
		if got := extractTheme(tc.title, tc.content); got != tc.want {
			t.Errorf("extractTheme(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestTruncateKeepsUTF8Boundaries(t *testing.T) {
	// Two-byte characters make every odd cap land mid-rune.
	s := strings.Repeat("ü", 300)
	got := truncate(s, 501)
	if len(got) > 501 {
		t.Errorf("expected at most 501 bytes, got %d", len(got))
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncation split a rune: %q", got[len(got)-4:])
	}
}

func TestDicebearURLIsDeterministic(t *testing.T) {
	a := DicebearURL("hn-1")
	b := DicebearURL("hn-1")
	if a != b {
		t.Error("same id must give the same URL")
	}
	if a == DicebearURL("hn-2") {
		t.Error("different ids should usually differ")
	}
	if !strings.Contains(a, "api.dicebear.com") {
		t.Errorf("unexpected URL: %s", a)
	}
}

func TestLadderFallsThroughToDicebearWithoutKeys(t *testing.T) {
	svc := New(Config{}, newFakeUploader())
	url := svc.GenerateArticleImage(context.Background(), imageArticle("anything"))
	if !strings.Contains(url, "api.dicebear.com") {
		t.Errorf("expected dicebear fallback, got %s", url)
	}
}

func TestAIThumbnailUploadsDecodedImage(t *testing.T) {
	imageBytes := []byte{0x89, 0x50, 0x4e, 0x47}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{
						"inlineData": map[string]string{
							"data":     base64.StdEncoding.EncodeToString(imageBytes),
							"mimeType": "image/png",
						},
					}},
				},
			}},
		})
	}))
	defer server.Close()

	uploader := newFakeUploader()
	svc := New(Config{EnableAI: true, GeminiAPIKey: "key"}, uploader)
	svc.geminiURL = server.URL

	url := svc.GenerateArticleImage(context.Background(), imageArticle("AI breakthrough"))
	if url != "/thumbnails/hn-1.png" {
		t.Errorf("expected uploaded thumbnail path, got %s", url)
	}
	if string(uploader.uploads["hn-1"]) != string(imageBytes) {
		t.Error("decoded bytes did not reach the uploader")
	}
}

func TestAIFailureFallsDownTheLadder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := New(Config{EnableAI: true, GeminiAPIKey: "key"}, newFakeUploader())
	svc.geminiURL = server.URL

	url := svc.GenerateArticleImage(context.Background(), imageArticle("whatever"))
	if !strings.Contains(url, "api.dicebear.com") {
		t.Errorf("expected fallback past the failing AI step, got %s", url)
	}
}

func TestUploadFailureFallsDownTheLadder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{
						"inlineData": map[string]string{
							"data": base64.StdEncoding.EncodeToString([]byte{1}),
						},
					}},
				},
			}},
		})
	}))
	defer server.Close()

	uploader := newFakeUploader()
	uploader.err = errors.New("bucket unavailable")
	svc := New(Config{EnableAI: true, GeminiAPIKey: "key"}, uploader)
	svc.geminiURL = server.URL

	url := svc.GenerateArticleImage(context.Background(), imageArticle("whatever"))
	if !strings.Contains(url, "api.dicebear.com") {
		t.Errorf("expected fallback when upload fails, got %s", url)
	}
}

func TestUnsplashStepUsedWhenConfigured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Client-ID ") {
			http.Error(w, "no auth", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"urls": map[string]string{"regular": "https://images.unsplash.com/photo-123"},
		})
	}))
	defer server.Close()

	svc := New(Config{UnsplashAPIKey: "key"}, newFakeUploader())
	svc.unsplashURL = server.URL

	url := svc.GenerateArticleImage(context.Background(), imageArticle("interesting longform article"))
	if url != "https://images.unsplash.com/photo-123" {
		t.Errorf("expected unsplash URL, got %s", url)
	}
}
