package services

import (
	"context"
	"fmt"
	"time"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/schema"
	"github.com/archon-core/archon/ent/task"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/google/uuid"
)

// WorkflowService manages workflow definitions: ordered stages and the
// transitions allowed between them.
type WorkflowService struct {
	client *ent.Client
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(client *ent.Client) *WorkflowService {
	return &WorkflowService{client: client}
}

// CreateWorkflowParams describes a new workflow.
type CreateWorkflowParams struct {
	Name           string
	Stages         []schema.WorkflowStageDef
	InitialStage   string
	TerminalStages []string
}

func stageIDs(stages []schema.WorkflowStageDef) map[string]bool {
	ids := make(map[string]bool, len(stages))
	for _, st := range stages {
		ids[st.ID] = true
	}
	return ids
}

// CreateWorkflow creates a new workflow, validating that the initial stage
// and every terminal stage are members of the stage list.
func (s *WorkflowService) CreateWorkflow(ctx context.Context, p CreateWorkflowParams) (*ent.Workflow, error) {
	if p.Name == "" {
		return nil, apperrors.Validation("name", "required")
	}
	if len(p.Stages) == 0 {
		return nil, apperrors.Validation("stages", "must not be empty")
	}
	ids := stageIDs(p.Stages)
	if !ids[p.InitialStage] {
		return nil, apperrors.Validation("initial_stage", "must reference a defined stage")
	}
	for _, ts := range p.TerminalStages {
		if !ids[ts] {
			return nil, apperrors.Validation("terminal_stages", "must reference defined stages")
		}
	}
	for _, st := range p.Stages {
		for _, to := range st.AllowedTransitions {
			if !ids[to] {
				return nil, apperrors.Validation("stages", fmt.Sprintf("stage %q has a transition to undefined stage %q", st.ID, to))
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	wf, err := s.client.Workflow.Create().
		SetID(uuid.NewString()).
		SetName(p.Name).
		SetStages(p.Stages).
		SetInitialStage(p.InitialStage).
		SetTerminalStages(p.TerminalStages).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}
	return wf, nil
}

// GetWorkflow fetches a workflow by id.
func (s *WorkflowService) GetWorkflow(ctx context.Context, id string) (*ent.Workflow, error) {
	wf, err := s.client.Workflow.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "workflow not found", err)
		}
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return wf, nil
}

// StageByID returns the stage definition with the given id, or false if the
// workflow has no such stage.
func StageByID(wf *ent.Workflow, stageID string) (schema.WorkflowStageDef, bool) {
	for _, st := range wf.Stages {
		if st.ID == stageID {
			return st, true
		}
	}
	return schema.WorkflowStageDef{}, false
}

// IsTerminal reports whether stageID is one of the workflow's terminal
// stages.
func IsTerminal(wf *ent.Workflow, stageID string) bool {
	for _, ts := range wf.TerminalStages {
		if ts == stageID {
			return true
		}
	}
	return false
}

// Remap transactionally moves every task in a project from stages of its
// old workflow to stages of a new workflow per stageMapping (old stage id ->
// new stage id), recording a TaskHistory row per moved task, then updates
// the project's workflow_id.
func (s *WorkflowService) Remap(ctx context.Context, projectID, newWorkflowID string, stageMapping map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	newWf, err := s.client.Workflow.Get(ctx, newWorkflowID)
	if err != nil {
		if ent.IsNotFound(err) {
			return apperrors.New(apperrors.KindValidation, "target workflow does not exist")
		}
		return fmt.Errorf("get target workflow: %w", err)
	}
	newIDs := stageIDs(newWf.Stages)
	for _, to := range stageMapping {
		if !newIDs[to] {
			return apperrors.New(apperrors.KindValidation, fmt.Sprintf("stage mapping targets undefined stage %q", to))
		}
	}

	tx, err := s.client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin remap tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tasks, err := tx.Task.Query().Where(task.ProjectIDEQ(projectID)).All(ctx)
	if err != nil {
		return fmt.Errorf("list project tasks: %w", err)
	}
	for _, t := range tasks {
		newStage, ok := stageMapping[t.WorkflowStageID]
		if !ok {
			return apperrors.New(apperrors.KindValidation, fmt.Sprintf("no mapping provided for stage %q", t.WorkflowStageID))
		}
		if newStage == t.WorkflowStageID {
			continue
		}
		if err := tx.Task.UpdateOneID(t.ID).SetWorkflowStageID(newStage).Exec(ctx); err != nil {
			return fmt.Errorf("update task stage: %w", err)
		}
		if _, err := tx.TaskHistory.Create().
			SetID(uuid.NewString()).
			SetTaskID(t.ID).
			SetOldStageID(t.WorkflowStageID).
			SetNewStageID(newStage).
			Save(ctx); err != nil {
			return fmt.Errorf("record task history: %w", err)
		}
	}

	if err := tx.Project.UpdateOneID(projectID).SetWorkflowID(newWorkflowID).Exec(ctx); err != nil {
		return fmt.Errorf("update project workflow: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remap: %w", err)
	}
	return nil
}
