package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"glasswire/providers"
	"glasswire/storage"
	"glasswire/transform"
	"glasswire/types"
)

type scriptedProvider struct {
	id       types.Source
	articles []*types.Article
	err      error
}

func (p *scriptedProvider) Config() providers.Config {
	return providers.Config{
		ID:           p.id,
		Name:         string(p.id),
		Enabled:      true,
		Language:     types.LanguageEnglish,
		DefaultLimit: 10,
	}
}
func (p *scriptedProvider) CanRun() bool { return true }
func (p *scriptedProvider) Crawl(context.Context, int) ([]*types.Article, error) {
	return p.articles, p.err
}

type scriptedGenerator struct {
	calls int
}

func (g *scriptedGenerator) GenerateJSON(context.Context, string) (string, error) {
	g.calls++
	return `{"transformedTitle":"Rewritten","transformedContent":"Rewritten body.","tags":["test"]}`, nil
}
func (g *scriptedGenerator) Model() string { return "scripted" }

func crawledArticle(t *testing.T, source types.Source, opaque string) *types.Article {
	t.Helper()
	id, err := types.NewArticleID(source, opaque)
	if err != nil {
		t.Fatal(err)
	}
	return &types.Article{
		ID:              id,
		Source:          source,
		OriginalTitle:   "title " + opaque,
		OriginalContent: "original content long enough for the transform threshold " + opaque,
		Language:        types.LanguageEnglish,
		CrawledAt:       time.Now(),
	}
}

func newTestPipeline(t *testing.T, gen transform.Generator, provs ...providers.Provider) (*Pipeline, *storage.ArticleRepo, *storage.RecencyIndex) {
	t.Helper()
	registry := providers.NewRegistry()
	for _, p := range provs {
		registry.Register(p)
	}
	articles := storage.NewArticleRepo(storage.NewMemoryBlob())
	index := storage.NewRecencyIndex(storage.NewMemoryKV())
	transformer := transform.New(gen, transform.StyleDirect)

	pipe := New(registry, articles, index, transformer, nil, nil, nil, transform.StyleDirect)
	pipe.batchDelay = 0
	return pipe, articles, index
}

func TestRunOnceStoresTransformsAndIndexes(t *testing.T) {
	gen := &scriptedGenerator{}
	provider := &scriptedProvider{
		id: types.SourceHackerNews,
		articles: []*types.Article{
			crawledArticle(t, types.SourceHackerNews, "1"),
			crawledArticle(t, types.SourceHackerNews, "2"),
		},
	}
	pipe, articles, index := newTestPipeline(t, gen, provider)

	summary := pipe.RunOnce(context.Background(), nil, 5)
	if summary.Crawled != 2 || summary.Saved != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if gen.calls != 2 {
		t.Errorf("expected one transform per article, got %d", gen.calls)
	}

	ids, _ := index.Get(context.Background(), types.SourceHackerNews)
	if len(ids) != 2 {
		t.Errorf("expected 2 indexed ids, got %v", ids)
	}

	stored, err := articles.FindByID(context.Background(), "hn-1", types.SourceHackerNews)
	if err != nil {
		t.Fatal(err)
	}
	if stored.TransformedTitle != "Rewritten" {
		t.Errorf("stored article missing transform: %q", stored.TransformedTitle)
	}
}

func TestRunOnceWithoutGeneratorStoresRaw(t *testing.T) {
	provider := &scriptedProvider{
		id:       types.SourceHackerNews,
		articles: []*types.Article{crawledArticle(t, types.SourceHackerNews, "1")},
	}
	pipe, articles, _ := newTestPipeline(t, nil, provider)

	summary := pipe.RunOnce(context.Background(), nil, 5)
	if summary.Saved != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	stored, err := articles.FindByID(context.Background(), "hn-1", types.SourceHackerNews)
	if err != nil {
		t.Fatal(err)
	}
	if stored.TransformedTitle != stored.OriginalTitle {
		t.Errorf("identity transform expected, got %q", stored.TransformedTitle)
	}
}

// vetoBlob rejects writes whose payload contains a marker string and
// delegates everything else to an in-memory store. It simulates a blob
// store that goes bad partway through a run.
type vetoBlob struct {
	*storage.MemoryBlob
	marker string
}

func (b *vetoBlob) Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) error {
	if strings.Contains(string(data), b.marker) {
		return errors.New("blob store rejected write")
	}
	return b.MemoryBlob.Put(ctx, key, data, contentType, cacheControl)
}

func TestRunOnceFallsBackToRawWhenDecoratedSaveFails(t *testing.T) {
	provider := &scriptedProvider{
		id:       types.SourceHackerNews,
		articles: []*types.Article{crawledArticle(t, types.SourceHackerNews, "1")},
	}
	registry := providers.NewRegistry()
	registry.Register(provider)

	// The raw save succeeds; only the decorated re-save trips the veto.
	blob := &vetoBlob{MemoryBlob: storage.NewMemoryBlob(), marker: "Rewritten"}
	articles := storage.NewArticleRepo(blob)
	index := storage.NewRecencyIndex(storage.NewMemoryKV())
	transformer := transform.New(&scriptedGenerator{}, transform.StyleDirect)

	pipe := New(registry, articles, index, transformer, nil, nil, nil, transform.StyleDirect)
	pipe.batchDelay = 0

	summary := pipe.RunOnce(context.Background(), nil, 5)
	if summary.Saved != 1 || summary.Failed != 0 {
		t.Fatalf("raw fallback should still count as saved: %+v", summary)
	}

	stored, err := articles.FindByID(context.Background(), "hn-1", types.SourceHackerNews)
	if err != nil {
		t.Fatal(err)
	}
	if stored.TransformedTitle == "Rewritten" {
		t.Error("decorated article should not have landed")
	}
	if stored.OriginalTitle != "title 1" {
		t.Errorf("raw article should survive the failed decoration, got %q", stored.OriginalTitle)
	}
}

func TestRunOnceSurvivesFailingProvider(t *testing.T) {
	healthy := &scriptedProvider{
		id:       types.SourceHackerNews,
		articles: []*types.Article{crawledArticle(t, types.SourceHackerNews, "1")},
	}
	broken := &scriptedProvider{id: types.SourceReddit, err: errors.New("upstream down")}
	pipe, _, _ := newTestPipeline(t, nil, healthy, broken)

	summary := pipe.RunOnce(context.Background(), nil, 5)
	if summary.Saved != 1 {
		t.Errorf("healthy provider's article should land: %+v", summary)
	}
	foundError := false
	for _, pr := range summary.Providers {
		if pr.ProviderID == string(types.SourceReddit) && len(pr.Errors) > 0 {
			foundError = true
		}
	}
	if !foundError {
		t.Error("broken provider's error should appear in the summary")
	}
}

func TestRunOnceRespectsSourceSelection(t *testing.T) {
	hn := &scriptedProvider{
		id:       types.SourceHackerNews,
		articles: []*types.Article{crawledArticle(t, types.SourceHackerNews, "1")},
	}
	reddit := &scriptedProvider{
		id:       types.SourceReddit,
		articles: []*types.Article{crawledArticle(t, types.SourceReddit, "1")},
	}
	pipe, _, index := newTestPipeline(t, nil, hn, reddit)

	summary := pipe.RunOnce(context.Background(), []types.Source{types.SourceReddit}, 5)
	if summary.Crawled != 1 {
		t.Fatalf("expected only reddit crawled: %+v", summary)
	}

	hnIDs, _ := index.Get(context.Background(), types.SourceHackerNews)
	if len(hnIDs) != 0 {
		t.Errorf("unselected source should stay untouched: %v", hnIDs)
	}
}
