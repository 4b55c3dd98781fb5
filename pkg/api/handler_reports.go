package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// projectHealthHandler handles GET /api/projects/:project_id/reports/health.
func (s *Server) projectHealthHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "report", "report:read", projectID); err != nil {
		return err
	}
	report, err := s.reports.ProjectHealth(c.Request().Context(), projectID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, report)
}

// sprintReportHandler handles GET /api/sprints/:sprint_id/report.
func (s *Server) sprintReportHandler(c *echo.Context) error {
	report, err := s.reports.SprintReport(c.Request().Context(), c.Param("sprint_id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, report)
}

// taskMetricsHandler handles GET /api/projects/:project_id/reports/task-metrics.
func (s *Server) taskMetricsHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "report", "report:read", projectID); err != nil {
		return err
	}
	metrics, err := s.reports.TaskMetrics(c.Request().Context(), projectID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, metrics)
}

// teamPerformanceHandler handles GET /api/projects/:project_id/reports/team-performance.
func (s *Server) teamPerformanceHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "report", "report:read", projectID); err != nil {
		return err
	}
	perf, err := s.reports.TeamPerformance(c.Request().Context(), projectID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, perf)
}
