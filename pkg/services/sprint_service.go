package services

import (
	"context"
	"fmt"
	"time"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/sprint"
	"github.com/archon-core/archon/ent/task"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/google/uuid"
)

// SprintService manages the sprint lifecycle: planned, active, completed,
// cancelled.
type SprintService struct {
	client    *ent.Client
	workflows *WorkflowService
	projects  *ProjectService
}

// NewSprintService creates a new SprintService.
func NewSprintService(client *ent.Client, projects *ProjectService, workflows *WorkflowService) *SprintService {
	return &SprintService{client: client, projects: projects, workflows: workflows}
}

// CreateSprintParams describes a new sprint.
type CreateSprintParams struct {
	ProjectID string
	Name      string
	Goal      string
	StartDate time.Time
	EndDate   time.Time
}

// CreateSprint creates a sprint in the planned state.
func (s *SprintService) CreateSprint(ctx context.Context, p CreateSprintParams) (*ent.Sprint, error) {
	if p.Name == "" {
		return nil, apperrors.Validation("name", "required")
	}
	if p.EndDate.Before(p.StartDate) {
		return nil, apperrors.Validation("end_date", "must not be before start_date")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	create := s.client.Sprint.Create().
		SetID(uuid.NewString()).
		SetProjectID(p.ProjectID).
		SetName(p.Name).
		SetStartDate(p.StartDate).
		SetEndDate(p.EndDate)
	if p.Goal != "" {
		create = create.SetGoal(p.Goal)
	}

	spr, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create sprint: %w", err)
	}
	return spr, nil
}

// GetSprint fetches a sprint by id.
func (s *SprintService) GetSprint(ctx context.Context, id string) (*ent.Sprint, error) {
	spr, err := s.client.Sprint.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "sprint not found", err)
		}
		return nil, fmt.Errorf("get sprint: %w", err)
	}
	return spr, nil
}

// Start transitions a planned sprint to active, rejecting the transition if
// another sprint in the same project is already active, and snapshots the
// task ids currently assigned to it.
func (s *SprintService) Start(ctx context.Context, sprintID string) (*ent.Sprint, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	spr, err := s.GetSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if spr.Status != sprint.StatusPlanned {
		return nil, apperrors.New(apperrors.KindValidation, "only a planned sprint can be started")
	}

	active, err := s.client.Sprint.Query().
		Where(sprint.ProjectIDEQ(spr.ProjectID), sprint.StatusEQ(sprint.StatusActive)).
		Exist(ctx)
	if err != nil {
		return nil, fmt.Errorf("check active sprint: %w", err)
	}
	if active {
		return nil, apperrors.New(apperrors.KindConflict, "another sprint in this project is already active")
	}

	tasks, err := s.client.Task.Query().Where(task.SprintIDEQ(sprintID)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sprint tasks: %w", err)
	}
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	updated, err := s.client.Sprint.UpdateOneID(sprintID).
		SetStatus(sprint.StatusActive).
		SetTaskSnapshot(ids).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("start sprint: %w", err)
	}
	return updated, nil
}

// Complete transitions an active sprint to completed, computing velocity as
// the sum of estimated_hours across tasks in the snapshot that currently sit
// in one of the project's workflow terminal stages, and freezing
// completed_at.
func (s *SprintService) Complete(ctx context.Context, sprintID string) (*ent.Sprint, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	spr, err := s.GetSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if spr.Status != sprint.StatusActive {
		return nil, apperrors.New(apperrors.KindValidation, "only an active sprint can be completed")
	}

	proj, err := s.projects.GetProject(ctx, spr.ProjectID)
	if err != nil {
		return nil, err
	}
	wf, err := s.workflows.GetWorkflow(ctx, proj.WorkflowID)
	if err != nil {
		return nil, err
	}

	var velocity float64
	if len(spr.TaskSnapshot) > 0 {
		tasks, err := s.client.Task.Query().Where(task.IDIn(spr.TaskSnapshot...)).All(ctx)
		if err != nil {
			return nil, fmt.Errorf("query snapshot tasks: %w", err)
		}
		for _, t := range tasks {
			if IsTerminal(wf, t.WorkflowStageID) && t.EstimatedHours != nil {
				velocity += *t.EstimatedHours
			}
		}
	}

	now := time.Now()
	updated, err := s.client.Sprint.UpdateOneID(sprintID).
		SetStatus(sprint.StatusCompleted).
		SetVelocity(velocity).
		SetCompletedAt(now).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("complete sprint: %w", err)
	}
	return updated, nil
}

// Cancel transitions a sprint to cancelled without computing velocity.
func (s *SprintService) Cancel(ctx context.Context, sprintID string) (*ent.Sprint, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	spr, err := s.GetSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if spr.Status == sprint.StatusCompleted || spr.Status == sprint.StatusCancelled {
		return nil, apperrors.New(apperrors.KindValidation, "sprint has already reached a terminal state")
	}

	updated, err := s.client.Sprint.UpdateOneID(sprintID).SetStatus(sprint.StatusCancelled).Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("cancel sprint: %w", err)
	}
	return updated, nil
}

// ListSprints lists every sprint for a project.
func (s *SprintService) ListSprints(ctx context.Context, projectID string) ([]*ent.Sprint, error) {
	sprints, err := s.client.Sprint.Query().Where(sprint.ProjectIDEQ(projectID)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}
	return sprints, nil
}
