package storage

import (
	"context"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/knowledgelink"
	"github.com/archon-core/archon/ent/permissiongrant"
	"github.com/archon-core/archon/ent/source"
	"github.com/archon-core/archon/ent/subject"
	"github.com/archon-core/archon/pkg/database"
	"github.com/archon-core/archon/pkg/pgvector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestStore(t *testing.T) *Store {
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
	require.NoError(t, database.CreateSearchIndexes(ctx, drv))

	dbc := database.NewClientFromEnt(entClient, db)
	t.Cleanup(func() { dbc.Close() })

	return New(dbc, entClient)
}

func TestSourceLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	projectID := "proj-1"

	src, err := store.CreateSource(ctx, CreateSourceParams{
		DisplayName:      "kubernetes docs",
		Origin:           "https://kubernetes.io/docs",
		KnowledgeType:    source.KnowledgeTypeTechnical,
		ProjectID:        &projectID,
		IsProjectPrivate: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "kubernetes docs", src.DisplayName)

	fetched, err := store.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, src.ID, fetched.ID)

	sources, err := store.ListSources(ctx, ListSourcesParams{ProjectID: &projectID})
	require.NoError(t, err)
	assert.Len(t, sources, 1)

	promoted, err := store.PromoteSource(ctx, src.ID, "subject-1")
	require.NoError(t, err)
	assert.Nil(t, promoted.ProjectID)
	assert.False(t, promoted.IsProjectPrivate)

	_, err = store.PromoteSource(ctx, src.ID, "subject-1")
	assert.Error(t, err)

	require.NoError(t, store.IncrementCounts(ctx, src.ID, 3, 10, 2))
	updated, err := store.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.PagesFetched)
	assert.Equal(t, 10, updated.ChunksStored)
	assert.Equal(t, 2, updated.CodeExamplesCount)

	require.NoError(t, store.DeleteSource(ctx, src.ID))
	_, err = store.GetSource(ctx, src.ID)
	assert.Error(t, err)
}

func TestPageUpsertAndTextSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	src, err := store.CreateSource(ctx, CreateSourceParams{
		DisplayName: "docs",
		Origin:      "https://example.com",
	})
	require.NoError(t, err)

	n, err := store.UpsertPages(ctx, []UpsertPageParams{
		{SourceID: src.ID, URL: "https://example.com/a", ChunkNumber: 0, Content: "critical pod failure in production cluster", ContentHash: "h1"},
		{SourceID: src.ID, URL: "https://example.com/b", ChunkNumber: 0, Content: "routine maintenance notice", ContentHash: "h2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-ingesting the same (source_id, url, chunk_number) overwrites
	// rather than duplicating.
	_, err = store.UpsertPages(ctx, []UpsertPageParams{
		{SourceID: src.ID, URL: "https://example.com/a", ChunkNumber: 0, Content: "updated pod failure details", ContentHash: "h1b"},
	})
	require.NoError(t, err)

	pages, err := store.GetPagesBySource(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	results, err := store.TextSearch(ctx, "pod failure", nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "updated pod failure details", results[0].Page.Content)
}

func TestEmbeddingVectorSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	src, err := store.CreateSource(ctx, CreateSourceParams{DisplayName: "docs", Origin: "https://example.com"})
	require.NoError(t, err)

	_, err = store.UpsertPages(ctx, []UpsertPageParams{
		{SourceID: src.ID, URL: "https://example.com/a", ChunkNumber: 0, Content: "near", ContentHash: "h1"},
		{SourceID: src.ID, URL: "https://example.com/b", ChunkNumber: 0, Content: "far", ContentHash: "h2"},
	})
	require.NoError(t, err)
	pages, err := store.GetPagesBySource(ctx, src.ID)
	require.NoError(t, err)

	var nearPage, farPage string
	for _, p := range pages {
		if p.Content == "near" {
			nearPage = p.ID
		} else {
			farPage = p.ID
		}
	}

	nearVec := make(pgvector.Vector, 384)
	nearVec[0] = 1
	farVec := make(pgvector.Vector, 384)
	farVec[1] = 1

	_, err = store.PutEmbedding(ctx, PutEmbeddingParams{
		PageID: nearPage, Model: "test-model", Dimension: 384,
		Vector: nearVec,
	})
	require.NoError(t, err)
	_, err = store.PutEmbedding(ctx, PutEmbeddingParams{
		PageID: farPage, Model: "test-model", Dimension: 384,
		Vector: farVec,
	})
	require.NoError(t, err)

	results, err := store.VectorSearch(ctx, 384, nearVec, nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, nearPage, results[0].EntityID)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestKnowledgeLinkLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	src, err := store.CreateSource(ctx, CreateSourceParams{DisplayName: "docs", Origin: "https://example.com"})
	require.NoError(t, err)

	score := 0.87
	link, err := store.CreateLink(ctx, CreateLinkParams{
		EntityType:     knowledgelink.EntityTypeTask,
		EntityID:       "task-1",
		KnowledgeType:  knowledgelink.KnowledgeTypeSource,
		KnowledgeID:    src.ID,
		RelevanceScore: &score,
	})
	require.NoError(t, err)

	links, err := store.ListLinksForEntity(ctx, knowledgelink.EntityTypeTask, "task-1")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, src.ID, links[0].KnowledgeID)

	backLinks, err := store.ListLinksForKnowledgeItem(ctx, knowledgelink.KnowledgeTypeSource, src.ID)
	require.NoError(t, err)
	require.Len(t, backLinks, 1)

	require.NoError(t, store.DeleteLink(ctx, link.ID))
	links, err = store.ListLinksForEntity(ctx, knowledgelink.EntityTypeTask, "task-1")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestSubjectLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	email := "ops@example.com"
	hash := "bcrypt-hash"
	subj, err := store.CreateSubject(ctx, CreateSubjectParams{
		Email:        &email,
		PasswordHash: &hash,
		Role:         subject.RoleMember,
	})
	require.NoError(t, err)
	assert.Equal(t, subject.RoleMember, subj.Role)

	_, err = store.CreateSubject(ctx, CreateSubjectParams{Email: &email, Role: subject.RoleMember})
	assert.Error(t, err, "duplicate email should conflict")

	fetched, err := store.GetSubject(ctx, subj.ID)
	require.NoError(t, err)
	assert.Equal(t, subj.ID, fetched.ID)

	byEmail, err := store.GetSubjectByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, subj.ID, byEmail.ID)

	active, err := store.ListActiveSubjects(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestGrantLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	subj, err := store.CreateSubject(ctx, CreateSubjectParams{Role: subject.RoleMember})
	require.NoError(t, err)
	subjectID := subj.ID

	role := permissiongrant.RoleMember
	grant, err := store.CreateGrant(ctx, CreateGrantParams{
		Role:         &role,
		ResourceType: "knowledge",
		Action:       "knowledge:read",
		Scope:        "*",
	})
	require.NoError(t, err)
	assert.Equal(t, "knowledge", grant.ResourceType)

	_, err = store.CreateGrant(ctx, CreateGrantParams{
		SubjectID:    &subjectID,
		ResourceType: "task",
		Action:       "task:assign",
		Scope:        "proj-1",
	})
	require.NoError(t, err)

	grants, err := store.ListGrants(ctx)
	require.NoError(t, err)
	assert.Len(t, grants, 2)

	require.NoError(t, store.DeleteGrant(ctx, grant.ID))
	grants, err = store.ListGrants(ctx)
	require.NoError(t, err)
	assert.Len(t, grants, 1)

	err = store.DeleteGrant(ctx, "missing")
	assert.Error(t, err)
}
