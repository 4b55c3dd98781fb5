package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/archon-core/archon/ent/project"
	"github.com/archon-core/archon/ent/task"
	"github.com/archon-core/archon/pkg/mcpsession"
	"github.com/archon-core/archon/pkg/retrieval"
	"github.com/archon-core/archon/pkg/services"
)

// newMCPServer builds the MCP tool surface: health_check,
// rag_search_knowledge_base, find_projects, find_tasks, manage_project,
// manage_task, manage_sprint, and reconnect_session. Every call is routed
// through the session manager's wrapper so tool usage is tracked the same
// way regardless of which tool was invoked.
func (s *Server) newMCPServer() *server.MCPServer {
	srv := server.NewMCPServer("archon", "1.0.0")

	srv.AddTool(mcp.NewTool("health_check",
		mcp.WithDescription("Check that Archon is reachable and establish or resume an MCP session."),
		mcp.WithString("session_id", mcp.Description("Existing session id, if resuming one. Omit to create a new session.")),
	), s.wrapTool("health_check", s.toolHealthCheck))

	srv.AddTool(mcp.NewTool("rag_search_knowledge_base",
		mcp.WithDescription("Semantic and lexical search over the knowledge base."),
		mcp.WithString("session_id", mcp.Description("Existing session id.")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language search query.")),
		mcp.WithString("source_id", mcp.Description("Restrict results to one source.")),
		mcp.WithString("project_id", mcp.Description("Restrict results to one project's private sources plus global sources.")),
		mcp.WithNumber("match_count", mcp.Description("Maximum number of results, default 5.")),
	), s.wrapTool("rag_search_knowledge_base", s.toolSearch))

	srv.AddTool(mcp.NewTool("find_projects",
		mcp.WithDescription("List projects, optionally filtered by parent."),
		mcp.WithString("session_id", mcp.Description("Existing session id.")),
		mcp.WithString("parent_id", mcp.Description("Only children of this project.")),
		mcp.WithBoolean("include_archived", mcp.Description("Include archived projects, default false.")),
	), s.wrapTool("find_projects", s.toolFindProjects))

	srv.AddTool(mcp.NewTool("find_tasks",
		mcp.WithDescription("List tasks within a project, optionally scoped to a sprint."),
		mcp.WithString("session_id", mcp.Description("Existing session id.")),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project to list tasks for.")),
		mcp.WithString("sprint_id", mcp.Description("Restrict to one sprint.")),
	), s.wrapTool("find_tasks", s.toolFindTasks))

	srv.AddTool(mcp.NewTool("manage_project",
		mcp.WithDescription("Create, archive, or unarchive a project."),
		mcp.WithString("session_id", mcp.Description("Existing session id.")),
		mcp.WithString("action", mcp.Required(), mcp.Description("One of: create, archive, unarchive.")),
		mcp.WithString("project_id", mcp.Description("Required for archive/unarchive.")),
		mcp.WithString("title", mcp.Description("Required for create.")),
		mcp.WithString("description", mcp.Description("Optional project description.")),
		mcp.WithString("workflow_id", mcp.Description("Required for create.")),
		mcp.WithString("type", mcp.Description("One of: software, marketing, research, bug-tracking, custom.")),
		mcp.WithString("owner_subject_id", mcp.Description("Subject id of the project owner, required for create.")),
	), s.wrapTool("manage_project", s.toolManageProject))

	srv.AddTool(mcp.NewTool("manage_task",
		mcp.WithDescription("Create a task or move/assign an existing one."),
		mcp.WithString("session_id", mcp.Description("Existing session id.")),
		mcp.WithString("action", mcp.Required(), mcp.Description("One of: create, move, assign.")),
		mcp.WithString("project_id", mcp.Description("Required for create.")),
		mcp.WithString("task_id", mcp.Description("Required for move/assign.")),
		mcp.WithString("title", mcp.Description("Required for create.")),
		mcp.WithString("workflow_stage_id", mcp.Description("Required for create, or the new stage for move.")),
		mcp.WithString("priority", mcp.Description("One of: low, medium, high, critical.")),
		mcp.WithString("assignee_subject_id", mcp.Description("Subject id to assign the task to.")),
	), s.wrapTool("manage_task", s.toolManageTask))

	srv.AddTool(mcp.NewTool("manage_sprint",
		mcp.WithDescription("Create a sprint or transition its status."),
		mcp.WithString("session_id", mcp.Description("Existing session id.")),
		mcp.WithString("action", mcp.Required(), mcp.Description("One of: create, start, complete, cancel.")),
		mcp.WithString("project_id", mcp.Description("Required for create.")),
		mcp.WithString("sprint_id", mcp.Description("Required for start/complete/cancel.")),
		mcp.WithString("name", mcp.Description("Required for create.")),
		mcp.WithString("start_date", mcp.Description("Required for create, YYYY-MM-DD.")),
		mcp.WithString("end_date", mcp.Description("Required for create, YYYY-MM-DD.")),
	), s.wrapTool("manage_sprint", s.toolManageSprint))

	srv.AddTool(mcp.NewTool("reconnect_session",
		mcp.WithDescription("Resume a session that was disconnected by the idle reaper."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session id to resume.")),
		mcp.WithString("reconnect_token", mcp.Required(), mcp.Description("Token issued for this session before disconnect.")),
	), s.toolReconnectSession)

	return srv
}

// wrapTool adapts a tool body to mcpsession.Manager.WrapToolCall: it resolves
// or creates the session, runs the body, and records the call regardless of
// outcome.
func (s *Server) wrapTool(name string, body func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := req.GetString("session_id", "")
		resolvedID, err := s.sessions.EnsureSession(ctx, sessionID, mcpsession.ClientInfo{Name: "mcp-client"}, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		toolName := name
		var result *mcp.CallToolResult
		s.sessions.WrapToolCall(ctx, resolvedID, uuid.NewString(), "tools/call", &toolName, func(ctx context.Context) mcpsession.ToolResult {
			r, callErr := body(ctx, req)
			result = r
			return mcpsession.ToolResult{Err: callErr}
		})
		if result == nil {
			return mcp.NewToolResultError("tool call produced no result"), nil
		}
		return result, nil
	}
}

func (s *Server) toolHealthCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.store.Ping(ctx); err != nil {
		return mcp.NewToolResultError("storage unavailable: " + err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Server) toolSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	matchCount := int(req.GetFloat("match_count", 5))

	resp, err := s.retrieval.Search(ctx, query, retrieval.Filters{
		SourceID:  req.GetString("source_id", ""),
		ProjectID: req.GetString("project_id", ""),
	}, matchCount)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("%d result(s), degraded=%v\n", len(resp.Results), resp.Degraded)
	for _, r := range resp.Results {
		text += fmt.Sprintf("- [%s] %s (score %.3f, match=%s): %s\n", r.SourceID, r.URL, r.Score, r.MatchType, r.Content)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) toolFindProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var parentID *string
	if p := req.GetString("parent_id", ""); p != "" {
		parentID = &p
	}
	projects, err := s.projects.ListProjects(ctx, services.ListProjectsParams{
		ParentID:        parentID,
		IncludeArchived: req.GetBool("include_archived", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := fmt.Sprintf("%d project(s)\n", len(projects))
	for _, p := range projects {
		text += fmt.Sprintf("- %s: %s (%s)\n", p.ID, p.Title, p.Type)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) toolFindTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("project_id is required"), nil
	}
	var sprintID *string
	if sp := req.GetString("sprint_id", ""); sp != "" {
		sprintID = &sp
	}
	tasks, err := s.tasks.ListTasks(ctx, services.ListTasksParams{ProjectID: projectID, SprintID: sprintID})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := fmt.Sprintf("%d task(s)\n", len(tasks))
	for _, t := range tasks {
		text += fmt.Sprintf("- %s: %s [%s]\n", t.ID, t.Title, t.Priority)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) toolManageProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch req.GetString("action", "") {
	case "create":
		typ := req.GetString("type", string(project.TypeSoftware))
		proj, err := s.projects.CreateProject(ctx, services.CreateProjectParams{
			Title: req.GetString("title", ""), Description: req.GetString("description", ""),
			WorkflowID: req.GetString("workflow_id", ""), Type: project.Type(typ),
			OwnerSubjectID: req.GetString("owner_subject_id", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("created project " + proj.ID), nil
	case "archive":
		if err := s.projects.Archive(ctx, req.GetString("project_id", "")); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("archived"), nil
	case "unarchive":
		if err := s.projects.Unarchive(ctx, req.GetString("project_id", "")); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("unarchived"), nil
	default:
		return mcp.NewToolResultError("action must be one of: create, archive, unarchive"), nil
	}
}

func (s *Server) toolManageTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch req.GetString("action", "") {
	case "create":
		priority := req.GetString("priority", string(task.PriorityMedium))
		t, err := s.tasks.CreateTask(ctx, services.CreateTaskParams{
			ProjectID: req.GetString("project_id", ""), WorkflowStageID: req.GetString("workflow_stage_id", ""),
			Title: req.GetString("title", ""), Priority: task.Priority(priority),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("created task " + t.ID), nil
	case "move":
		t, err := s.tasks.MoveStage(ctx, req.GetString("task_id", ""), req.GetString("workflow_stage_id", ""), nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("moved task " + t.ID), nil
	case "assign":
		var assignee *string
		if a := req.GetString("assignee_subject_id", ""); a != "" {
			assignee = &a
		}
		if err := s.tasks.Assign(ctx, req.GetString("task_id", ""), assignee); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("assigned"), nil
	default:
		return mcp.NewToolResultError("action must be one of: create, move, assign"), nil
	}
}

func (s *Server) toolManageSprint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch req.GetString("action", "") {
	case "create":
		start, err := parseSprintDate(req.GetString("start_date", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		end, err := parseSprintDate(req.GetString("end_date", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sprint, err := s.sprints.CreateSprint(ctx, services.CreateSprintParams{
			ProjectID: req.GetString("project_id", ""), Name: req.GetString("name", ""),
			StartDate: start, EndDate: end,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("created sprint " + sprint.ID), nil
	case "start":
		sprint, err := s.sprints.Start(ctx, req.GetString("sprint_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("started sprint " + sprint.ID), nil
	case "complete":
		sprint, err := s.sprints.Complete(ctx, req.GetString("sprint_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("completed sprint " + sprint.ID), nil
	case "cancel":
		sprint, err := s.sprints.Cancel(ctx, req.GetString("sprint_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("cancelled sprint " + sprint.ID), nil
	default:
		return mcp.NewToolResultError("action must be one of: create, start, complete, cancel"), nil
	}
}

func parseSprintDate(v string) (time.Time, error) {
	return time.Parse(sprintDateLayout, v)
}

func (s *Server) toolReconnectSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := s.sessions.Reconnect(ctx, req.GetString("session_id", ""), req.GetString("reconnect_token", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("reconnected as " + sessionID), nil
}
