// Package api provides HTTP and MCP bindings for Archon.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"github.com/archon-core/archon/pkg/config"
	"github.com/archon-core/archon/pkg/documents"
	"github.com/archon-core/archon/pkg/ingest"
	"github.com/archon-core/archon/pkg/mcpsession"
	"github.com/archon-core/archon/pkg/provider"
	"github.com/archon-core/archon/pkg/rbac"
	"github.com/archon-core/archon/pkg/retrieval"
	"github.com/archon-core/archon/pkg/services"
	"github.com/archon-core/archon/pkg/storage"
	"github.com/archon-core/archon/pkg/version"
)

// Server is the HTTP API server. Every dependency is supplied to NewServer;
// ValidateWiring confirms none of the required ones came back nil before
// Start is called, catching composition-root mistakes early.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	cfg         *config.Config
	store       *storage.Store
	jwtSecret   []byte
	authEngine  *rbac.Engine
	sessions    *mcpsession.Manager
	progress    *ingest.ProgressStore
	pipelines   *ingest.PipelinePool
	retrieval   *retrieval.Engine
	gateways    *provider.Resolver
	documents   *documents.Service
	projects    *services.ProjectService
	workflows   *services.WorkflowService
	tasks       *services.TaskService
	sprints     *services.SprintService
	reports     *services.ReportService
	mcpServer   *server.MCPServer
}

// NewServer creates the Echo-backed API server, builds its MCP tool
// server, and registers every HTTP and MCP route.
func NewServer(
	cfg *config.Config,
	store *storage.Store,
	jwtSecret []byte,
	authEngine *rbac.Engine,
	sessions *mcpsession.Manager,
	progress *ingest.ProgressStore,
	pipelines *ingest.PipelinePool,
	retrievalEngine *retrieval.Engine,
	gateways *provider.Resolver,
	docs *documents.Service,
	projects *services.ProjectService,
	workflows *services.WorkflowService,
	tasks *services.TaskService,
	sprints *services.SprintService,
	reports *services.ReportService,
) *Server {
	e := echo.New()

	s := &Server{
		echo:       e,
		cfg:        cfg,
		store:      store,
		jwtSecret:  jwtSecret,
		authEngine: authEngine,
		sessions:   sessions,
		progress:   progress,
		pipelines:  pipelines,
		retrieval:  retrievalEngine,
		gateways:   gateways,
		documents:  docs,
		projects:   projects,
		workflows:  workflows,
		tasks:      tasks,
		sprints:    sprints,
		reports:    reports,
	}

	s.mcpServer = s.newMCPServer()
	s.setupRoutes()
	return s
}

// ValidateWiring confirms every service this server depends on was
// provided to NewServer, catching composition-root mistakes at startup
// instead of as a nil-pointer panic on first request.
func (s *Server) ValidateWiring() error {
	var missing []string
	if s.store == nil {
		missing = append(missing, "store")
	}
	if s.authEngine == nil {
		missing = append(missing, "authEngine")
	}
	if s.sessions == nil {
		missing = append(missing, "sessions")
	}
	if s.retrieval == nil {
		missing = append(missing, "retrieval")
	}
	if s.documents == nil {
		missing = append(missing, "documents")
	}
	if s.projects == nil || s.workflows == nil || s.tasks == nil || s.sprints == nil || s.reports == nil {
		missing = append(missing, "project/workflow/task/sprint/report services")
	}
	if len(missing) > 0 {
		return &wiringError{missing: missing}
	}
	return nil
}

// setupRoutes registers every HTTP route.
func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit("10M"))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)

	mcpHandler := server.NewStreamableHTTPServer(s.mcpServer)
	s.echo.Any("/mcp", echo.WrapHandler(mcpHandler))
	s.echo.Any("/mcp/*", echo.WrapHandler(mcpHandler))

	api := s.echo.Group("/api")
	api.POST("/auth/login", s.loginHandler)

	protected := api.Group("", s.authMiddleware())
	protected.GET("/auth/users/me", s.meHandler)

	protected.POST("/knowledge-items/crawl", s.crawlHandler)
	protected.POST("/documents/upload", s.uploadHandler)
	protected.GET("/progress/:progress_id", s.getProgressHandler)
	protected.POST("/progress/:progress_id/cancel", s.cancelProgressHandler)
	protected.POST("/knowledge/search", s.searchHandler)

	protected.POST("/projects/:project_id/documents/upload", s.projectUploadHandler)
	protected.POST("/projects/:project_id/documents/crawl", s.projectCrawlHandler)
	protected.GET("/projects/:project_id/documents", s.listProjectDocumentsHandler)
	protected.POST("/documents/:source_id/promote", s.promoteDocumentHandler)
	protected.DELETE("/projects/:project_id/documents/:source_id", s.deleteProjectDocumentHandler)

	protected.POST("/projects", s.createProjectHandler)
	protected.GET("/projects", s.listProjectsHandler)
	protected.GET("/projects/:project_id", s.getProjectHandler)
	protected.POST("/projects/:project_id/archive", s.archiveProjectHandler)
	protected.POST("/projects/:project_id/unarchive", s.unarchiveProjectHandler)
	protected.PUT("/projects/:project_id/parent", s.setProjectParentHandler)

	protected.POST("/workflows", s.createWorkflowHandler)
	protected.GET("/workflows/:workflow_id", s.getWorkflowHandler)

	protected.POST("/projects/:project_id/tasks", s.createTaskHandler)
	protected.GET("/projects/:project_id/tasks", s.listTasksHandler)
	protected.GET("/tasks/:task_id", s.getTaskHandler)
	protected.POST("/tasks/:task_id/move", s.moveTaskHandler)
	protected.POST("/tasks/:task_id/reorder", s.reorderTaskHandler)
	protected.POST("/tasks/:task_id/assign", s.assignTaskHandler)

	protected.POST("/projects/:project_id/sprints", s.createSprintHandler)
	protected.GET("/projects/:project_id/sprints", s.listSprintsHandler)
	protected.POST("/sprints/:sprint_id/start", s.startSprintHandler)
	protected.POST("/sprints/:sprint_id/complete", s.completeSprintHandler)
	protected.POST("/sprints/:sprint_id/cancel", s.cancelSprintHandler)

	protected.GET("/projects/:project_id/reports/health", s.projectHealthHandler)
	protected.GET("/sprints/:sprint_id/report", s.sprintReportHandler)
	protected.GET("/projects/:project_id/reports/task-metrics", s.taskMetricsHandler)
	protected.GET("/projects/:project_id/reports/team-performance", s.teamPerformanceHandler)

	protected.GET("/mcp/clients", s.mcpClientsHandler)
	protected.GET("/mcp/sessions", s.mcpSessionsHandler)
	protected.GET("/mcp/sessions/:id", s.mcpSessionHandler)
	protected.GET("/mcp/sessions/health", s.mcpHealthHandler)
	protected.POST("/mcp/sessions/:id/reconnect", s.mcpReconnectHandler)
	protected.GET("/mcp/sessions/:id/token", s.mcpTokenHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener,
// used by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles GET /health. Checks only Archon's own storage
// dependency — external providers are intentionally excluded so a flaky
// embedding provider does not flip the orchestrator's liveness probe.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	checks := map[string]string{}
	dbStatus, err := s.store.HealthStatus(reqCtx)
	if err != nil {
		status = "unhealthy"
		checks["storage"] = err.Error()
	} else {
		checks["storage"] = "ok"
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, HealthResponse{
		Status:   status,
		Version:  version.Full(),
		Checks:   checks,
		Database: dbStatus,
	})
}

type wiringError struct{ missing []string }

func (e *wiringError) Error() string {
	msg := "server wiring incomplete, missing:"
	for _, m := range e.missing {
		msg += " " + m
	}
	return msg
}
