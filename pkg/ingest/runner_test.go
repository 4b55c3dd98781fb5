package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/pkg/config"
	"github.com/archon-core/archon/pkg/crawler"
	"github.com/archon-core/archon/pkg/database"
	"github.com/archon-core/archon/pkg/embedcache"
	"github.com/archon-core/archon/pkg/provider"
	"github.com/archon-core/archon/pkg/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// fakeProviderServer serves OpenAI-compatible /embeddings and
// /chat/completions, returning a deterministic vector keyed off input
// length and a fixed one-sentence summary, so the extraction pipeline has
// something real to store without calling an actual model provider.
func fakeProviderServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		for i, text := range req.Input {
			vec := make([]float32, 1536)
			for j := range vec {
				vec[j] = float32(len(text)%7) / float32(j+1)
			}
			data[i] = item{Embedding: vec, Index: i}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Prints a greeting."}},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestStoreForIngest(t *testing.T) *storage.Store {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts("../../deploy/postgres-init/01-init.sql"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	drv, err := sql.Open(dialect.Postgres, connStr)
	require.NoError(t, err)
	db := drv.DB()

	entClient := ent.NewClient(ent.Driver(drv))
	require.NoError(t, entClient.Schema.Create(ctx))

	dbc := database.NewClientFromEnt(entClient, db)
	t.Cleanup(func() { dbc.Close() })

	return storage.New(dbc, entClient)
}

func TestRunner_SmallSiteCrawlEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>` + strings.Repeat("Root page content. ", 60) +
			`</p><a href="/docs/page2">page2</a><pre><code class="language-python">print("hi")</code></pre></body></html>`))
	})
	mux.HandleFunc("/docs/page2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>` + strings.Repeat("Unique page two content. ", 60) +
			`</p><pre><code class="language-python">print("bye")</code></pre></body></html>`))
	})
	site := httptest.NewServer(mux)
	t.Cleanup(site.Close)

	providerServer := fakeProviderServer(t)

	store := newTestStoreForIngest(t)
	ctx := context.Background()

	src, err := store.CreateSource(ctx, storage.CreateSourceParams{
		DisplayName:         "example docs",
		Origin:              site.URL + "/docs/",
		KnowledgeType:       "technical",
		ExtractCodeExamples: true,
	})
	require.NoError(t, err)

	pl, err := store.CreatePipeline(ctx, storage.CreatePipelineParams{
		SourceID:            src.ID,
		URL:                 site.URL + "/docs/",
		KnowledgeType:       "technical",
		Tags:                []string{"docs"},
		MaxDepth:            1,
		ExtractCodeExamples: true,
	})
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cache, err := embedcache.New("redis://" + mr.Addr())
	require.NoError(t, err)

	registry := config.NewProviderRegistry(map[string]*config.ProviderConfig{
		"test-embed": {Name: "test-embed", Kind: config.ProviderKindEmbedding, Model: "test-embed-model", Dimension: 1536, BaseURL: providerServer.URL},
		"test-chat":  {Name: "test-chat", Kind: config.ProviderKindChat, Model: "test-chat-model", BaseURL: providerServer.URL},
	})
	resolver := provider.NewResolver(registry)

	ingestionCfg := config.DefaultIngestionConfig()

	runner := NewRunner(store, crawler.New(), cache, resolver, NewProgressStore(), ingestionCfg,
		mustGet(registry, "test-chat"), mustGet(registry, "test-embed"))

	runner.Execute(ctx, pl)

	final, err := store.GetPipeline(ctx, pl.ID)
	require.NoError(t, err)
	require.Equal(t, "completed", string(final.Status))
	require.Equal(t, 100, final.Percent)
	require.Equal(t, 2, final.PagesFetched)
	require.GreaterOrEqual(t, final.ChunksStored, 2)
	require.Equal(t, 2, final.CodeExamplesExtracted)

	pages, err := store.GetPagesBySource(ctx, src.ID)
	require.NoError(t, err)
	require.NotEmpty(t, pages)

	examples, err := store.GetCodeExamplesBySource(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, examples, 2)
}

func mustGet(r *config.ProviderRegistry, name string) *config.ProviderConfig {
	pc, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return pc
}

// TestRunner_ReingestSkipsUnchangedChunks runs the same source twice and
// asserts the second pass re-embeds nothing, since every chunk's
// content_hash is unchanged.
func TestRunner_ReingestSkipsUnchangedChunks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>` + strings.Repeat("Stable page content. ", 60) + `</p></body></html>`))
	})
	site := httptest.NewServer(mux)
	t.Cleanup(site.Close)

	providerServer := fakeProviderServer(t)
	store := newTestStoreForIngest(t)
	ctx := context.Background()

	src, err := store.CreateSource(ctx, storage.CreateSourceParams{
		DisplayName: "stable docs",
		Origin:      site.URL + "/docs/",
	})
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cache, err := embedcache.New("redis://" + mr.Addr())
	require.NoError(t, err)

	registry := config.NewProviderRegistry(map[string]*config.ProviderConfig{
		"test-embed": {Name: "test-embed", Kind: config.ProviderKindEmbedding, Model: "test-embed-model", Dimension: 1536, BaseURL: providerServer.URL},
		"test-chat":  {Name: "test-chat", Kind: config.ProviderKindChat, Model: "test-chat-model", BaseURL: providerServer.URL},
	})
	resolver := provider.NewResolver(registry)
	runner := NewRunner(store, crawler.New(), cache, resolver, NewProgressStore(), config.DefaultIngestionConfig(),
		mustGet(registry, "test-chat"), mustGet(registry, "test-embed"))

	firstPipeline, err := store.CreatePipeline(ctx, storage.CreatePipelineParams{
		SourceID: src.ID,
		URL:      site.URL + "/docs/",
		MaxDepth: 1,
	})
	require.NoError(t, err)
	runner.Execute(ctx, firstPipeline)

	first, err := store.GetPipeline(ctx, firstPipeline.ID)
	require.NoError(t, err)
	require.Equal(t, "completed", string(first.Status))
	require.Greater(t, first.ChunksStored, 0)

	secondPipeline, err := store.CreatePipeline(ctx, storage.CreatePipelineParams{
		SourceID: src.ID,
		URL:      site.URL + "/docs/",
		MaxDepth: 1,
	})
	require.NoError(t, err)
	runner.Execute(ctx, secondPipeline)

	second, err := store.GetPipeline(ctx, secondPipeline.ID)
	require.NoError(t, err)
	require.Equal(t, "completed", string(second.Status))
	require.Equal(t, 0, second.ChunksStored)
}

// TestRunner_FinalizePromotesSendToKBSource asserts the finalize phase
// promotes a project-private source to global when the pipeline was
// queued with send_to_kb, crediting whichever subject requested the crawl.
func TestRunner_FinalizePromotesSendToKBSource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>` + strings.Repeat("Promotable page content. ", 60) + `</p></body></html>`))
	})
	site := httptest.NewServer(mux)
	t.Cleanup(site.Close)

	providerServer := fakeProviderServer(t)
	store := newTestStoreForIngest(t)
	ctx := context.Background()

	projectID := "proj-" + t.Name()
	src, err := store.CreateSource(ctx, storage.CreateSourceParams{
		DisplayName:      "private docs",
		Origin:           site.URL + "/docs/",
		ProjectID:        &projectID,
		IsProjectPrivate: true,
	})
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cache, err := embedcache.New("redis://" + mr.Addr())
	require.NoError(t, err)

	registry := config.NewProviderRegistry(map[string]*config.ProviderConfig{
		"test-embed": {Name: "test-embed", Kind: config.ProviderKindEmbedding, Model: "test-embed-model", Dimension: 1536, BaseURL: providerServer.URL},
		"test-chat":  {Name: "test-chat", Kind: config.ProviderKindChat, Model: "test-chat-model", BaseURL: providerServer.URL},
	})
	resolver := provider.NewResolver(registry)
	runner := NewRunner(store, crawler.New(), cache, resolver, NewProgressStore(), config.DefaultIngestionConfig(),
		mustGet(registry, "test-chat"), mustGet(registry, "test-embed"))

	pl, err := store.CreatePipeline(ctx, storage.CreatePipelineParams{
		SourceID:         src.ID,
		URL:              site.URL + "/docs/",
		MaxDepth:         1,
		ProjectID:        &projectID,
		IsProjectPrivate: true,
		SendToKB:         true,
		RequestedBy:      "subj-requester",
	})
	require.NoError(t, err)
	runner.Execute(ctx, pl)

	final, err := store.GetPipeline(ctx, pl.ID)
	require.NoError(t, err)
	require.Equal(t, "completed", string(final.Status))

	promoted, err := store.GetSource(ctx, src.ID)
	require.NoError(t, err)
	require.False(t, promoted.IsProjectPrivate)
	require.Nil(t, promoted.ProjectID)
	require.NotNil(t, promoted.PromotedAt)
	require.Equal(t, "subj-requester", promoted.PromotedBy)
}
