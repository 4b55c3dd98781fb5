package mcpsession

import (
	"context"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/mcprequest"
	"github.com/archon-core/archon/ent/mcpsession"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/archon-core/archon/pkg/config"
	"github.com/archon-core/archon/pkg/database"
	"github.com/archon-core/archon/pkg/storage"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestStoreForSessions(t *testing.T) *storage.Store {
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

func testSessionConfig() *config.SessionConfig {
	return &config.SessionConfig{
		IdleTimeout:       50 * time.Millisecond,
		ReaperInterval:    10 * time.Millisecond,
		ReconnectTokenTTL: 15 * time.Minute,
	}
}

func TestManager_EnsureSession_LazyCreateAndReuse(t *testing.T) {
	ctx := context.Background()
	store := newTestStoreForSessions(t)
	mgr := New(store, testSessionConfig(), []byte("test-secret"), nil)

	id, err := mgr.EnsureSession(ctx, "", ClientInfo{Name: "Claude Code", Version: "1.0"}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sess, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "claude-code", sess.ClientType)
	firstActivity := sess.LastActivityAt

	time.Sleep(5 * time.Millisecond)
	id2, err := mgr.EnsureSession(ctx, id, ClientInfo{Name: "Claude Code", Version: "1.0"}, nil)
	require.NoError(t, err)
	require.Equal(t, id, id2)

	sess2, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	require.True(t, sess2.LastActivityAt.After(firstActivity))
}

func TestManager_EnsureSession_StaleIDGetsFreshSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStoreForSessions(t)
	mgr := New(store, testSessionConfig(), []byte("test-secret"), nil)

	id, err := mgr.EnsureSession(ctx, "some-forgotten-id-from-a-prior-process", ClientInfo{Name: "Cursor"}, nil)
	require.NoError(t, err)
	require.NotEqual(t, "some-forgotten-id-from-a-prior-process", id)
}

func TestManager_WrapToolCall_RecordsRequestAndCost(t *testing.T) {
	ctx := context.Background()
	store := newTestStoreForSessions(t)

	prices := config.NewProviderRegistry(map[string]*config.ProviderConfig{
		"test-chat": {Name: "test-chat", Kind: config.ProviderKindChat, Model: "test-model", PriceInput: 1.0, PriceOutput: 2.0},
	})
	mgr := New(store, testSessionConfig(), []byte("test-secret"), prices)

	sessionID, err := mgr.EnsureSession(ctx, "", ClientInfo{Name: "Cline"}, nil)
	require.NoError(t, err)

	toolName := "rag_search_knowledge_base"
	result := mgr.WrapToolCall(ctx, sessionID, "req-1", "tools/call", &toolName, func(ctx context.Context) ToolResult {
		return ToolResult{
			Status: mcprequest.StatusSuccess,
			Usage:  Usage{ProviderName: "test-chat", PromptTokens: 1000, CompletionTokens: 500},
		}
	})
	require.NoError(t, result.Err)

	// 1000/1000*1.0 + 500/1000*2.0 = 1.0 + 1.0 = 2.0
	require.InDelta(t, 2.0, mgr.EstimateCost(result.Usage), 1e-9)
}

func TestManager_ReconnectFlow(t *testing.T) {
	ctx := context.Background()
	store := newTestStoreForSessions(t)
	mgr := New(store, testSessionConfig(), []byte("test-secret"), nil)

	sessionID, err := mgr.EnsureSession(ctx, "", ClientInfo{Name: "Kiro"}, nil)
	require.NoError(t, err)

	token, err := mgr.IssueReconnectToken(ctx, sessionID)
	require.NoError(t, err)

	require.NoError(t, mgr.Disconnect(ctx, sessionID, mcpsession.DisconnectReasonIdleTimeout))

	reconnectedID, err := mgr.Reconnect(ctx, sessionID, token)
	require.NoError(t, err)
	require.Equal(t, sessionID, reconnectedID)

	sess, err := store.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, mcpsession.StatusActive, sess.Status)
	require.Equal(t, 1, sess.ReconnectCount)

	_, err = mgr.Reconnect(ctx, sessionID, "garbage-token")
	require.Error(t, err)
	require.Equal(t, apperrors.KindInvalidToken, apperrors.KindOf(err))
}

func TestManager_Reconnect_RevokedSessionRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStoreForSessions(t)
	mgr := New(store, testSessionConfig(), []byte("test-secret"), nil)

	sessionID, err := mgr.EnsureSession(ctx, "", ClientInfo{Name: "Gemini"}, nil)
	require.NoError(t, err)

	token, err := mgr.IssueReconnectToken(ctx, sessionID)
	require.NoError(t, err)
	require.NoError(t, mgr.Disconnect(ctx, sessionID, mcpsession.DisconnectReasonRevoked))

	_, err = mgr.Reconnect(ctx, sessionID, token)
	require.Error(t, err)
	require.Equal(t, apperrors.KindSessionAlreadyDisconnected, apperrors.KindOf(err))
}

func TestManager_Reconnect_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	store := newTestStoreForSessions(t)
	cfg := testSessionConfig()
	cfg.ReconnectTokenTTL = 5 * time.Millisecond
	mgr := New(store, cfg, []byte("test-secret"), nil)

	sessionID, err := mgr.EnsureSession(ctx, "", ClientInfo{Name: "Augment"}, nil)
	require.NoError(t, err)

	token, err := mgr.IssueReconnectToken(ctx, sessionID)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = mgr.Reconnect(ctx, sessionID, token)
	require.Error(t, err)
	require.Equal(t, apperrors.KindTokenExpired, apperrors.KindOf(err))
}

func TestManager_RunReaper_DisconnectsIdleSessions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	store := newTestStoreForSessions(t)
	mgr := New(store, testSessionConfig(), []byte("test-secret"), nil)

	sessionID, err := mgr.EnsureSession(ctx, "", ClientInfo{Name: "unknown tool"}, nil)
	require.NoError(t, err)

	go mgr.RunReaper(ctx)

	require.Eventually(t, func() bool {
		sess, err := store.GetSession(ctx, sessionID)
		return err == nil && sess.Status == mcpsession.StatusDisconnected
	}, 400*time.Millisecond, 10*time.Millisecond)
}
