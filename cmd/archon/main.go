// Archon orchestrates ingestion, retrieval, and project management behind
// an HTTP API and an MCP tool server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/archon-core/archon/pkg/api"
	"github.com/archon-core/archon/pkg/config"
	"github.com/archon-core/archon/pkg/crawler"
	"github.com/archon-core/archon/pkg/database"
	"github.com/archon-core/archon/pkg/documents"
	"github.com/archon-core/archon/pkg/embedcache"
	"github.com/archon-core/archon/pkg/ingest"
	"github.com/archon-core/archon/pkg/mcpsession"
	"github.com/archon-core/archon/pkg/provider"
	"github.com/archon-core/archon/pkg/rbac"
	"github.com/archon-core/archon/pkg/reportcache"
	"github.com/archon-core/archon/pkg/retrieval"
	"github.com/archon-core/archon/pkg/services"
	"github.com/archon-core/archon/pkg/storage"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	slog.Info("starting archon", "http_port", httpPort, "config_dir", *configDir)

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(2)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("failed to load database config", "error", err)
		os.Exit(2)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(3)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("error closing database client", "error", err)
		}
	}()
	slog.Info("connected to postgres")

	store := storage.New(dbClient, dbClient.Client)

	embedRedisURL := getEnv("EMBED_CACHE_REDIS_URL", "redis://localhost:6379/0")
	cache, err := embedcache.New(embedRedisURL)
	if err != nil {
		slog.Error("failed to connect embedding cache", "error", err)
		os.Exit(3)
	}

	reportRedisURL := getEnv("REPORT_CACHE_REDIS_URL", "redis://localhost:6379/1")
	reportRedisOpts, err := redis.ParseURL(reportRedisURL)
	if err != nil {
		slog.Error("invalid report cache redis url", "error", err)
		os.Exit(2)
	}
	reportRedisClient := redis.NewClient(reportRedisOpts)
	reports := reportcache.NewFromClient(reportRedisClient)

	resultRedisURL := getEnv("RETRIEVAL_RESULT_CACHE_REDIS_URL", "redis://localhost:6379/2")
	resultRedisOpts, err := redis.ParseURL(resultRedisURL)
	if err != nil {
		slog.Error("invalid retrieval result cache redis url", "error", err)
		os.Exit(2)
	}
	resultRedisClient := redis.NewClient(resultRedisOpts)

	gateways := provider.NewResolver(cfg.ProviderRegistry)

	chatProvider, err := cfg.GetChatProvider()
	if err != nil {
		slog.Error("failed to resolve chat provider", "error", err)
		os.Exit(2)
	}
	embedProvider, err := cfg.GetEmbeddingProvider()
	if err != nil {
		slog.Error("failed to resolve embedding provider", "error", err)
		os.Exit(2)
	}
	rerankProvider, _ := cfg.GetRerankProvider()

	progress := ingest.NewProgressStore()
	crawl := crawler.New()
	runner := ingest.NewRunner(store, crawl, cache, gateways, progress, cfg.Ingestion, chatProvider, embedProvider)
	pipelines := ingest.NewPipelinePool(getEnv("POD_ID", "archon-0"), runner, cfg.Ingestion.MaxConcurrentPipelines)
	pipelines.Start(ctx)
	defer pipelines.Stop()

	retrievalEngine := retrieval.New(store, cache, gateways, resultRedisClient, cfg.Retrieval, embedProvider, rerankProvider)

	docs := documents.New(store, cache, gateways, cfg.Ingestion, embedProvider)

	authEngine := rbac.New(cfg.RBAC)
	persistedGrants, err := store.ListGrants(ctx)
	if err != nil {
		slog.Error("failed to load permission grants", "error", err)
		os.Exit(3)
	}
	grants := append(rbac.FromEntGrants(persistedGrants), rbac.FromSeedGrants(cfg.RBAC.SeedGrants)...)
	authEngine.LoadGrants(grants)

	sessionSecret := []byte(os.Getenv(cfg.Session.SessionSecretEnv))
	sessions := mcpsession.New(store, cfg.Session, sessionSecret, cfg.ProviderRegistry)
	reaperCtx, cancelReaper := context.WithCancel(ctx)
	defer cancelReaper()
	go sessions.RunReaper(reaperCtx)

	projectSvc := services.NewProjectService(dbClient.Client)
	workflowSvc := services.NewWorkflowService(dbClient.Client)
	taskSvc := services.NewTaskService(dbClient.Client, projectSvc, workflowSvc)
	sprintSvc := services.NewSprintService(dbClient.Client, projectSvc, workflowSvc)
	reportSvc := services.NewReportService(dbClient.Client, projectSvc, workflowSvc, reports)

	bearerSecret := []byte(os.Getenv(cfg.System.BearerSecretEnv))
	server := api.NewServer(
		cfg, store, bearerSecret, authEngine, sessions, progress, pipelines,
		retrievalEngine, gateways, docs, projectSvc, workflowSvc, taskSvc, sprintSvc, reportSvc,
	)
	if err := server.ValidateWiring(); err != nil {
		slog.Error("server wiring incomplete", "error", err)
		os.Exit(2)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "port", httpPort)
		if err := server.Start(":" + httpPort); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during graceful shutdown", "error", err)
	}
}
