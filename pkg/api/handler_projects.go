package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/archon-core/archon/ent/project"
	"github.com/archon-core/archon/pkg/services"
)

// createProjectHandler handles POST /api/projects.
func (s *Server) createProjectHandler(c *echo.Context) error {
	if err := s.requirePermission(c, "project", "project:write", "*"); err != nil {
		return err
	}
	var req CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	subj := subjectFrom(c)
	typ := req.Type
	if typ == "" {
		typ = string(project.TypeSoftware)
	}

	proj, err := s.projects.CreateProject(c.Request().Context(), services.CreateProjectParams{
		Title: req.Title, Description: req.Description, ParentID: req.ParentID,
		WorkflowID: req.WorkflowID, Type: project.Type(typ), OwnerSubjectID: subj.ID,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, proj)
}

// getProjectHandler handles GET /api/projects/:project_id.
func (s *Server) getProjectHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "project", "project:read", projectID); err != nil {
		return err
	}
	proj, err := s.projects.GetProject(c.Request().Context(), projectID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, proj)
}

// listProjectsHandler handles GET /api/projects.
func (s *Server) listProjectsHandler(c *echo.Context) error {
	if err := s.requirePermission(c, "project", "project:read", "*"); err != nil {
		return err
	}
	var parentID *string
	if p := c.QueryParam("parent_id"); p != "" {
		parentID = &p
	}
	projects, err := s.projects.ListProjects(c.Request().Context(), services.ListProjectsParams{
		ParentID:        parentID,
		IncludeArchived: c.QueryParam("include_archived") == "true",
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, projects)
}

// archiveProjectHandler handles POST /api/projects/:project_id/archive.
func (s *Server) archiveProjectHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "project", "project:write", projectID); err != nil {
		return err
	}
	if err := s.projects.Archive(c.Request().Context(), projectID); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// unarchiveProjectHandler handles POST /api/projects/:project_id/unarchive.
func (s *Server) unarchiveProjectHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "project", "project:write", projectID); err != nil {
		return err
	}
	if err := s.projects.Unarchive(c.Request().Context(), projectID); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// setProjectParentHandler handles PUT /api/projects/:project_id/parent.
func (s *Server) setProjectParentHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "project", "project:write", projectID); err != nil {
		return err
	}
	var req SetParentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.projects.SetParent(c.Request().Context(), projectID, req.ParentID); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// createWorkflowHandler handles POST /api/workflows.
func (s *Server) createWorkflowHandler(c *echo.Context) error {
	if err := s.requirePermission(c, "project", "project:write", "*"); err != nil {
		return err
	}
	var req CreateWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	wf, err := s.workflows.CreateWorkflow(c.Request().Context(), services.CreateWorkflowParams{
		Name: req.Name, Stages: req.Stages, InitialStage: req.InitialStage, TerminalStages: req.TerminalStages,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, wf)
}

// getWorkflowHandler handles GET /api/workflows/:workflow_id.
func (s *Server) getWorkflowHandler(c *echo.Context) error {
	if err := s.requirePermission(c, "project", "project:read", "*"); err != nil {
		return err
	}
	wf, err := s.workflows.GetWorkflow(c.Request().Context(), c.Param("workflow_id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, wf)
}
