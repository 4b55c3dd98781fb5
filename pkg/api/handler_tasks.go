package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/archon-core/archon/ent/task"
	"github.com/archon-core/archon/pkg/services"
)

// createTaskHandler handles POST /api/projects/:project_id/tasks.
func (s *Server) createTaskHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "task", "task:write", projectID); err != nil {
		return err
	}
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	priority := req.Priority
	if priority == "" {
		priority = string(task.PriorityMedium)
	}

	t, err := s.tasks.CreateTask(c.Request().Context(), services.CreateTaskParams{
		ProjectID: projectID, WorkflowStageID: req.WorkflowStageID, Title: req.Title,
		Description: req.Description, AssigneeSubjectID: req.AssigneeSubjectID,
		Priority: task.Priority(priority), EstimatedHours: req.EstimatedHours, Feature: req.Feature,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

// listTasksHandler handles GET /api/projects/:project_id/tasks.
func (s *Server) listTasksHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "task", "task:read", projectID); err != nil {
		return err
	}
	var sprintID *string
	if sp := c.QueryParam("sprint_id"); sp != "" {
		sprintID = &sp
	}
	tasks, err := s.tasks.ListTasks(c.Request().Context(), services.ListTasksParams{
		ProjectID: projectID, SprintID: sprintID,
		IncludeArchived: c.QueryParam("include_archived") == "true",
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// getTaskHandler handles GET /api/tasks/:task_id.
func (s *Server) getTaskHandler(c *echo.Context) error {
	t, err := s.tasks.GetTask(c.Request().Context(), c.Param("task_id"))
	if err != nil {
		return mapServiceError(err)
	}
	if err := s.requirePermission(c, "task", "task:read", t.ProjectID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// moveTaskHandler handles POST /api/tasks/:task_id/move.
func (s *Server) moveTaskHandler(c *echo.Context) error {
	taskID := c.Param("task_id")
	var req MoveTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	subj := subjectFrom(c)
	t, err := s.tasks.MoveStage(c.Request().Context(), taskID, req.NewStageID, &subj.ID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, t)
}

// reorderTaskHandler handles POST /api/tasks/:task_id/reorder.
func (s *Server) reorderTaskHandler(c *echo.Context) error {
	taskID := c.Param("task_id")
	var req ReorderTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.tasks.Reorder(c.Request().Context(), taskID, req.Before, req.After); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// assignTaskHandler handles POST /api/tasks/:task_id/assign.
func (s *Server) assignTaskHandler(c *echo.Context) error {
	taskID := c.Param("task_id")
	var req AssignTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.tasks.Assign(c.Request().Context(), taskID, req.AssigneeSubjectID); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func atoiOrZero(v string) int {
	n, _ := strconv.Atoi(v)
	return n
}
