package services

import (
	"context"
	"fmt"
	"time"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/task"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/google/uuid"
)

// TaskService manages task creation, stage transitions, ordering within a
// stage, and archival.
type TaskService struct {
	client    *ent.Client
	projects  *ProjectService
	workflows *WorkflowService
}

// NewTaskService creates a new TaskService.
func NewTaskService(client *ent.Client, projects *ProjectService, workflows *WorkflowService) *TaskService {
	return &TaskService{client: client, projects: projects, workflows: workflows}
}

// CreateTaskParams describes a new task.
type CreateTaskParams struct {
	ProjectID         string
	WorkflowStageID   string
	Title             string
	Description       string
	AssigneeSubjectID *string
	Priority          task.Priority
	EstimatedHours    *float64
	Feature           string
}

// CreateTask creates a task, rejecting a workflow_stage_id that doesn't
// belong to the project's workflow. The new task is placed last in its
// stage: order = max(existing order in stage) + 1.
func (s *TaskService) CreateTask(ctx context.Context, p CreateTaskParams) (*ent.Task, error) {
	if p.ProjectID == "" {
		return nil, apperrors.Validation("project_id", "required")
	}
	if p.Title == "" {
		return nil, apperrors.Validation("title", "required")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	proj, err := s.projects.GetProject(ctx, p.ProjectID)
	if err != nil {
		return nil, err
	}
	wf, err := s.workflows.GetWorkflow(ctx, proj.WorkflowID)
	if err != nil {
		return nil, err
	}
	if _, ok := StageByID(wf, p.WorkflowStageID); !ok {
		return nil, apperrors.New(apperrors.KindValidation, "workflow_stage_id does not belong to the project's workflow")
	}

	last, err := s.client.Task.Query().
		Where(task.ProjectIDEQ(p.ProjectID), task.WorkflowStageIDEQ(p.WorkflowStageID)).
		Order(ent.Desc(task.FieldOrder)).
		First(ctx)
	order := 1.0
	if err == nil {
		order = last.Order + 1
	} else if !ent.IsNotFound(err) {
		return nil, fmt.Errorf("query stage tasks: %w", err)
	}

	create := s.client.Task.Create().
		SetID(uuid.NewString()).
		SetProjectID(p.ProjectID).
		SetWorkflowStageID(p.WorkflowStageID).
		SetTitle(p.Title).
		SetOrder(order)
	if p.Description != "" {
		create = create.SetDescription(p.Description)
	}
	if p.AssigneeSubjectID != nil {
		create = create.SetAssigneeSubjectID(*p.AssigneeSubjectID)
	}
	if p.Priority != "" {
		create = create.SetPriority(p.Priority)
	}
	if p.EstimatedHours != nil {
		create = create.SetEstimatedHours(*p.EstimatedHours)
	}
	if p.Feature != "" {
		create = create.SetFeature(p.Feature)
	}

	t, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// GetTask fetches a task by id.
func (s *TaskService) GetTask(ctx context.Context, id string) (*ent.Task, error) {
	t, err := s.client.Task.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "task not found", err)
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// MoveStage moves a task to a new workflow stage, permitted only when the
// new stage is listed in the old stage's allowed_transitions. Records a
// TaskHistory row.
func (s *TaskService) MoveStage(ctx context.Context, taskID, newStageID string, changedBy *string) (*ent.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.WorkflowStageID == newStageID {
		return t, nil
	}

	proj, err := s.projects.GetProject(ctx, t.ProjectID)
	if err != nil {
		return nil, err
	}
	wf, err := s.workflows.GetWorkflow(ctx, proj.WorkflowID)
	if err != nil {
		return nil, err
	}
	oldStage, ok := StageByID(wf, t.WorkflowStageID)
	if !ok {
		return nil, apperrors.New(apperrors.KindInternal, "task's current stage is not defined in its workflow")
	}
	allowed := false
	for _, to := range oldStage.AllowedTransitions {
		if to == newStageID {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.New(apperrors.KindValidation, fmt.Sprintf("transition from %q to %q is not allowed", oldStage.ID, newStageID))
	}

	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin move tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	updated, err := tx.Task.UpdateOneID(taskID).SetWorkflowStageID(newStageID).Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("update task stage: %w", err)
	}
	historyCreate := tx.TaskHistory.Create().
		SetID(uuid.NewString()).
		SetTaskID(taskID).
		SetOldStageID(oldStage.ID).
		SetNewStageID(newStageID)
	if changedBy != nil {
		historyCreate = historyCreate.SetChangedBy(*changedBy)
	}
	if _, err := historyCreate.Save(ctx); err != nil {
		return nil, fmt.Errorf("record task history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit move: %w", err)
	}
	return updated, nil
}

// Reorder moves a task to sit between two neighboring orders within its
// stage, using the fractional midpoint of the two bounds. Either bound may
// be nil to mean "no neighbor on that side".
func (s *TaskService) Reorder(ctx context.Context, taskID string, before, after *float64) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var newOrder float64
	switch {
	case before != nil && after != nil:
		newOrder = (*before + *after) / 2
	case before != nil:
		newOrder = *before + 1
	case after != nil:
		newOrder = *after / 2
	default:
		newOrder = 1
	}

	if err := s.client.Task.UpdateOneID(taskID).SetOrder(newOrder).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return apperrors.Wrap(apperrors.KindNotFound, "task not found", err)
		}
		return fmt.Errorf("reorder task: %w", err)
	}
	return nil
}

// minOrderGap is the smallest fractional difference Renormalize tolerates
// before re-spacing a stage's task orders back to dense integers. Repeated
// midpoint bisection halves the remaining gap each time; this is the point
// where float64 precision starts to matter more than ordering intent.
const minOrderGap = 1e-6

// Renormalize reassigns dense integer orders (1, 2, 3, ...) to every task in
// a stage, preserving relative order. Call this opportunistically once
// repeated reordering has exhausted fractional precision.
func (s *TaskService) Renormalize(ctx context.Context, projectID, stageID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tasks, err := s.client.Task.Query().
		Where(task.ProjectIDEQ(projectID), task.WorkflowStageIDEQ(stageID)).
		Order(ent.Asc(task.FieldOrder)).
		All(ctx)
	if err != nil {
		return fmt.Errorf("list stage tasks: %w", err)
	}

	tx, err := s.client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin renormalize tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, t := range tasks {
		if err := tx.Task.UpdateOneID(t.ID).SetOrder(float64(i + 1)).Exec(ctx); err != nil {
			return fmt.Errorf("renormalize task order: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit renormalize: %w", err)
	}
	return nil
}

// NeedsRenormalize reports whether two adjacent orders have grown too close
// together for another fractional bisection to remain meaningful.
func NeedsRenormalize(a, b float64) bool {
	gap := b - a
	if gap < 0 {
		gap = -gap
	}
	return gap < minOrderGap
}

// Assign sets or clears a task's assignee.
func (s *TaskService) Assign(ctx context.Context, taskID string, assigneeSubjectID *string) error {
	update := s.client.Task.UpdateOneID(taskID)
	if assigneeSubjectID != nil {
		update = update.SetAssigneeSubjectID(*assigneeSubjectID)
	} else {
		update = update.ClearAssigneeSubjectID()
	}
	if err := update.Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return apperrors.Wrap(apperrors.KindNotFound, "task not found", err)
		}
		return fmt.Errorf("assign task: %w", err)
	}
	return nil
}

// SetArchived archives or unarchives a single task.
func (s *TaskService) SetArchived(ctx context.Context, taskID string, archived bool) error {
	if err := s.client.Task.UpdateOneID(taskID).SetArchived(archived).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return apperrors.Wrap(apperrors.KindNotFound, "task not found", err)
		}
		return fmt.Errorf("set task archived: %w", err)
	}
	return nil
}

// ListTasksParams filters the task listing.
type ListTasksParams struct {
	ProjectID       string
	SprintID        *string
	IncludeArchived bool
}

// ListTasks lists tasks for a project, optionally scoped to a sprint.
func (s *TaskService) ListTasks(ctx context.Context, p ListTasksParams) ([]*ent.Task, error) {
	q := s.client.Task.Query().Where(task.ProjectIDEQ(p.ProjectID))
	if p.SprintID != nil {
		q = q.Where(task.SprintIDEQ(*p.SprintID))
	}
	if !p.IncludeArchived {
		q = q.Where(task.ArchivedEQ(false))
	}
	tasks, err := q.Order(ent.Asc(task.FieldWorkflowStageID), ent.Asc(task.FieldOrder)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}
