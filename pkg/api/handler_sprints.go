package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/archon-core/archon/pkg/services"
)

const sprintDateLayout = "2006-01-02"

// createSprintHandler handles POST /api/projects/:project_id/sprints.
func (s *Server) createSprintHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "sprint", "sprint:write", projectID); err != nil {
		return err
	}
	var req CreateSprintRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	start, err := time.Parse(sprintDateLayout, req.StartDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(sprintDateLayout, req.EndDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date must be YYYY-MM-DD")
	}

	sprint, err := s.sprints.CreateSprint(c.Request().Context(), services.CreateSprintParams{
		ProjectID: projectID, Name: req.Name, Goal: req.Goal, StartDate: start, EndDate: end,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, sprint)
}

// listSprintsHandler handles GET /api/projects/:project_id/sprints.
func (s *Server) listSprintsHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "sprint", "sprint:read", projectID); err != nil {
		return err
	}
	sprints, err := s.sprints.ListSprints(c.Request().Context(), projectID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, sprints)
}

// startSprintHandler handles POST /api/sprints/:sprint_id/start.
func (s *Server) startSprintHandler(c *echo.Context) error {
	sprint, err := s.sprints.Start(c.Request().Context(), c.Param("sprint_id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, sprint)
}

// completeSprintHandler handles POST /api/sprints/:sprint_id/complete.
func (s *Server) completeSprintHandler(c *echo.Context) error {
	sprint, err := s.sprints.Complete(c.Request().Context(), c.Param("sprint_id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, sprint)
}

// cancelSprintHandler handles POST /api/sprints/:sprint_id/cancel.
func (s *Server) cancelSprintHandler(c *echo.Context) error {
	sprint, err := s.sprints.Cancel(c.Request().Context(), c.Param("sprint_id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, sprint)
}
