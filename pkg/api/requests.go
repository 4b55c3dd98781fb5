package api

import "github.com/archon-core/archon/ent/schema"

// CreateWorkflowRequest is the body of POST /api/workflows.
type CreateWorkflowRequest struct {
	Name           string                    `json:"name"`
	Stages         []schema.WorkflowStageDef `json:"stages"`
	InitialStage   string                    `json:"initial_stage"`
	TerminalStages []string                  `json:"terminal_stages"`
}

// CrawlRequest is the body of POST /api/knowledge-items/crawl and its
// project-scoped variant.
type CrawlRequest struct {
	URL                 string   `json:"url"`
	KnowledgeType       string   `json:"knowledge_type"`
	Tags                []string `json:"tags,omitempty"`
	MaxDepth            int      `json:"max_depth,omitempty"`
	ExtractCodeExamples bool     `json:"extract_code_examples,omitempty"`
	IsProjectPrivate    bool     `json:"is_project_private,omitempty"`
	SendToKB            bool     `json:"send_to_kb,omitempty"`
}

// SearchRequest is the body of POST /api/knowledge/search.
type SearchRequest struct {
	Query         string   `json:"query"`
	MatchCount    int      `json:"match_count"`
	SourceID      string   `json:"source_id,omitempty"`
	KnowledgeType string   `json:"knowledge_type,omitempty"`
	ProjectID     string   `json:"project_id,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	ParentID    *string `json:"parent_id,omitempty"`
	WorkflowID  string  `json:"workflow_id"`
	Type        string  `json:"type,omitempty"`
}

// SetParentRequest is the body of PUT /api/projects/:project_id/parent.
type SetParentRequest struct {
	ParentID *string `json:"parent_id"`
}

// CreateTaskRequest is the body of POST /api/projects/:project_id/tasks.
type CreateTaskRequest struct {
	WorkflowStageID   string   `json:"workflow_stage_id"`
	Title             string   `json:"title"`
	Description       string   `json:"description,omitempty"`
	AssigneeSubjectID *string  `json:"assignee_subject_id,omitempty"`
	Priority          string   `json:"priority,omitempty"`
	EstimatedHours    *float64 `json:"estimated_hours,omitempty"`
	Feature           string   `json:"feature,omitempty"`
}

// MoveTaskRequest is the body of POST /api/tasks/:task_id/move.
type MoveTaskRequest struct {
	NewStageID string `json:"new_stage_id"`
}

// ReorderTaskRequest is the body of POST /api/tasks/:task_id/reorder.
type ReorderTaskRequest struct {
	Before *float64 `json:"before,omitempty"`
	After  *float64 `json:"after,omitempty"`
}

// AssignTaskRequest is the body of POST /api/tasks/:task_id/assign.
type AssignTaskRequest struct {
	AssigneeSubjectID *string `json:"assignee_subject_id"`
}

// CreateSprintRequest is the body of POST /api/projects/:project_id/sprints.
type CreateSprintRequest struct {
	Name      string `json:"name"`
	Goal      string `json:"goal,omitempty"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ReconnectRequest is the body of POST /api/mcp/sessions/:id/reconnect.
type ReconnectRequest struct {
	Token string `json:"token"`
}
