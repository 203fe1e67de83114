package types

import (
	"strings"
	"testing"
)

func TestNewArticleID(t *testing.T) {
	id, err := NewArticleID(SourceHackerNews, "12345")
	if err != nil {
		t.Fatalf("NewArticleID failed: %v", err)
	}
	if id != "hn-12345" {
		t.Errorf("expected hn-12345, got %s", id)
	}

	if _, err := NewArticleID(Source("mystery"), "1"); err == nil {
		t.Error("expected error for unknown source")
	}
	if _, err := NewArticleID(SourceReddit, "   "); err == nil {
		t.Error("expected error for blank opaque id")
	}
}

func TestSourceFromID(t *testing.T) {
	cases := []struct {
		id      string
		want    Source
		wantErr bool
	}{
		{"hn-12345", SourceHackerNews, false},
		{"wiki-featured-1700000000", SourceWikipedia, false},
		{"reddit-abc123", SourceReddit, false},
		{"bbc-deadbeef", SourceBBC, false},
		{"t24-cafe", SourceT24, false},
		{"eksisozluk-some-slug", SourceEksisozluk, false},
		{"unknown-123", "", true},
		{"noseparator", "", true},
		{"hn-", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := SourceFromID(tc.id)
		if tc.wantErr {
			if err == nil {
				t.Errorf("SourceFromID(%q): expected error, got %q", tc.id, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("SourceFromID(%q): unexpected error: %v", tc.id, err)
			continue
		}
		if got != tc.want {
			t.Errorf("SourceFromID(%q) = %q, want %q", tc.id, got, tc.want)
		}
	}
}

func TestRoundTripAllSources(t *testing.T) {
	for _, source := range AllSources {
		id, err := NewArticleID(source, "opaque-part")
		if err != nil {
			t.Fatalf("NewArticleID(%s) failed: %v", source, err)
		}
		recovered, err := SourceFromID(id)
		if err != nil {
			t.Fatalf("SourceFromID(%s) failed: %v", id, err)
		}
		if recovered != source {
			t.Errorf("round trip for %s gave %s", source, recovered)
		}
	}
}

func TestArticleValidate(t *testing.T) {
	good := &Article{ID: "hn-1", Source: SourceHackerNews}
	if err := good.Validate(); err != nil {
		t.Errorf("expected valid article, got %v", err)
	}

	mismatched := &Article{ID: "hn-1", Source: SourceReddit}
	if err := mismatched.Validate(); err == nil {
		t.Error("expected error for source mismatch")
	}

	malformed := &Article{ID: "bogus", Source: SourceHackerNews}
	if err := malformed.Validate(); err == nil {
		t.Error("expected error for malformed id")
	}
}

func TestDisplayFieldsFallBackToOriginal(t *testing.T) {
	a := &Article{OriginalTitle: "orig title", OriginalContent: "orig content"}
	if a.DisplayTitle() != "orig title" || a.DisplayContent() != "orig content" {
		t.Error("expected originals when no transform is present")
	}

	a.TransformedTitle = "new title"
	a.TransformedContent = "new content"
	if a.DisplayTitle() != "new title" || a.DisplayContent() != "new content" {
		t.Error("expected transformed fields to win")
	}
}

func TestValidVariant(t *testing.T) {
	for _, v := range []string{"raw", "default", "technical", "casual", "formal", "brief"} {
		if !ValidVariant(v) {
			t.Errorf("expected %s to be valid", v)
		}
	}
	for _, v := range []string{"", "RAW", "shakespeare"} {
		if ValidVariant(v) {
			t.Errorf("expected %s to be invalid", v)
		}
	}
}

func TestRawVariantMirrorsOriginals(t *testing.T) {
	a := &Article{
		ID:                 "hn-1",
		Source:             SourceHackerNews,
		OriginalTitle:      "original",
		OriginalContent:    "body",
		TransformedTitle:   "shiny",
		TransformedContent: "rewritten",
	}
	v := RawVariant(a)
	if v.Title != "original" || v.Content != "body" {
		t.Error("raw variant must carry the untransformed fields")
	}
	if v.Variant != VariantRaw {
		t.Errorf("expected raw variant name, got %s", v.Variant)
	}
}

func TestSubscriptionHash(t *testing.T) {
	a := &Subscription{Endpoint: "https://push.example.com/ep/one"}
	b := &Subscription{Endpoint: "https://push.example.com/ep/two"}

	if a.Hash() != a.Hash() {
		t.Error("hash must be stable")
	}
	if a.Hash() == b.Hash() {
		t.Error("different endpoints must hash differently")
	}
	if len(a.Hash()) != 32 {
		t.Errorf("expected 32-char hash, got %d", len(a.Hash()))
	}
	if strings.ContainsAny(a.Hash(), ":/") {
		t.Error("hash must be key-safe")
	}
}
