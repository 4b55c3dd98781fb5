package documents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/alicebob/miniredis/v2"
	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/source"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/archon-core/archon/pkg/config"
	"github.com/archon-core/archon/pkg/database"
	"github.com/archon-core/archon/pkg/embedcache"
	"github.com/archon-core/archon/pkg/provider"
	"github.com/archon-core/archon/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// fakeEmbeddingServer serves an OpenAI-compatible /embeddings endpoint so
// Upload has a real gateway to call without reaching an actual provider.
func fakeEmbeddingServer(t *testing.T) *httptest.Server {
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
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestService(t *testing.T) *Service {
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

	store := storage.New(dbc, entClient)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cache, err := embedcache.New("redis://" + mr.Addr())
	require.NoError(t, err)

	providerServer := fakeEmbeddingServer(t)
	registry := config.NewProviderRegistry(map[string]*config.ProviderConfig{
		"test-embed": {Name: "test-embed", Kind: config.ProviderKindEmbedding, Model: "test-embed-model", Dimension: 1536, BaseURL: providerServer.URL},
	})
	resolver := provider.NewResolver(registry)
	embedCfg, err := registry.Get("test-embed")
	require.NoError(t, err)

	ingestionCfg := config.DefaultIngestionConfig()

	return New(store, cache, resolver, ingestionCfg, embedCfg)
}

func TestService_UploadChunksEmbedsAndStoresSynchronously(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	projectID := "proj-1"
	content := "Archon lets a small team plan work across nested projects.\n\n" +
		"Each project has its own workflow with custom stages and transitions."

	result, err := svc.Upload(ctx, &projectID, "handbook.md", content, Metadata{
		DisplayName:   "handbook",
		KnowledgeType: source.KnowledgeTypeTechnical,
	}, true, false)
	require.NoError(t, err)
	assert.Greater(t, result.ChunksStored, 0)

	list, err := svc.List(ctx, ListParams{ProjectID: &projectID, IncludePrivate: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, result.SourceID, list[0].ID)
	assert.Equal(t, result.ChunksStored, list[0].ChunksStored)
}

func TestService_UploadWithSendToKBPromotesImmediately(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	projectID := "proj-1"
	result, err := svc.Upload(ctx, &projectID, "notes.md", "short note content for a single chunk.",
		Metadata{DisplayName: "notes", KnowledgeType: source.KnowledgeTypeTechnical}, true, true)
	require.NoError(t, err)

	global, err := svc.List(ctx, ListParams{ProjectID: nil, IncludePrivate: false, Limit: 10})
	require.NoError(t, err)
	found := false
	for _, src := range global {
		if src.ID == result.SourceID {
			found = true
		}
	}
	assert.True(t, found, "a send_to_kb upload must be promoted to global visibility")
}

func TestService_CrawlQueuesPipelineWithoutFetching(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	projectID := "proj-1"
	progressID, err := svc.Crawl(ctx, &projectID, "https://docs.example.com/", Metadata{
		DisplayName:   "example docs",
		KnowledgeType: source.KnowledgeTypeTechnical,
	}, true, false, "subj-1")
	require.NoError(t, err)
	assert.NotEmpty(t, progressID)
}

func TestService_DeleteRejectsCrossProjectSource(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	projectID := "proj-1"
	result, err := svc.Upload(ctx, &projectID, "a.md", "content belonging to proj-1 only.",
		Metadata{DisplayName: "a", KnowledgeType: source.KnowledgeTypeTechnical}, true, false)
	require.NoError(t, err)

	err = svc.Delete(ctx, "other-project", result.SourceID)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	require.NoError(t, svc.Delete(ctx, projectID, result.SourceID))
}

func TestService_PromoteAlreadyGlobalSourceConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, nil, "global.md", "a globally visible document.",
		Metadata{DisplayName: "global", KnowledgeType: source.KnowledgeTypeTechnical}, false, false)
	require.NoError(t, err)

	err = svc.Promote(ctx, result.SourceID, "admin")
	assert.True(t, apperrors.Is(err, apperrors.KindAlreadyGlobal))
}
