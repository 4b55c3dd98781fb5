package services

import (
	"context"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/schema"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestClient(t *testing.T) *ent.Client {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts("../../deploy/postgres-init/01-init.sql"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	drv, err := sql.Open(dialect.Postgres, connStr)
	require.NoError(t, err)

	entClient := ent.NewClient(ent.Driver(drv))
	require.NoError(t, entClient.Schema.Create(ctx))
	t.Cleanup(func() { entClient.Close() })

	return entClient
}

func basicWorkflowParams() CreateWorkflowParams {
	return CreateWorkflowParams{
		Name: "kanban",
		Stages: []schema.WorkflowStageDef{
			{ID: "todo", Name: "To Do", AllowedTransitions: []string{"doing"}},
			{ID: "doing", Name: "Doing", AllowedTransitions: []string{"done", "todo"}},
			{ID: "done", Name: "Done", AllowedTransitions: []string{}},
		},
		InitialStage:   "todo",
		TerminalStages: []string{"done"},
	}
}

func TestWorkflowService_CreateValidatesStageReferences(t *testing.T) {
	client := newTestClient(t)
	wfs := NewWorkflowService(client)
	ctx := context.Background()

	_, err := wfs.CreateWorkflow(ctx, CreateWorkflowParams{
		Name:         "broken",
		Stages:       []schema.WorkflowStageDef{{ID: "a", Name: "A"}},
		InitialStage: "missing",
	})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	wf, err := wfs.CreateWorkflow(ctx, basicWorkflowParams())
	require.NoError(t, err)
	assert.Equal(t, "todo", wf.InitialStage)
}

func TestProjectService_SetParentRejectsCycles(t *testing.T) {
	client := newTestClient(t)
	projects := NewProjectService(client)
	workflows := NewWorkflowService(client)
	ctx := context.Background()

	wf, err := workflows.CreateWorkflow(ctx, basicWorkflowParams())
	require.NoError(t, err)

	root, err := projects.CreateProject(ctx, CreateProjectParams{Title: "root", WorkflowID: wf.ID, OwnerSubjectID: "u1"})
	require.NoError(t, err)

	childID := root.ID
	child, err := projects.CreateProject(ctx, CreateProjectParams{Title: "child", WorkflowID: wf.ID, OwnerSubjectID: "u1", ParentID: &childID})
	require.NoError(t, err)

	err = projects.SetParent(ctx, root.ID, &child.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation), "reassigning root under its own child must be rejected")
}

func TestProjectService_ArchiveCascadesToDescendantsAndTasks(t *testing.T) {
	client := newTestClient(t)
	projects := NewProjectService(client)
	workflows := NewWorkflowService(client)
	tasks := NewTaskService(client, projects, workflows)
	ctx := context.Background()

	wf, err := workflows.CreateWorkflow(ctx, basicWorkflowParams())
	require.NoError(t, err)

	root, err := projects.CreateProject(ctx, CreateProjectParams{Title: "root", WorkflowID: wf.ID, OwnerSubjectID: "u1"})
	require.NoError(t, err)

	parentID := root.ID
	child, err := projects.CreateProject(ctx, CreateProjectParams{Title: "child", WorkflowID: wf.ID, OwnerSubjectID: "u1", ParentID: &parentID})
	require.NoError(t, err)

	tk, err := tasks.CreateTask(ctx, CreateTaskParams{ProjectID: child.ID, WorkflowStageID: "todo", Title: "t1"})
	require.NoError(t, err)

	require.NoError(t, projects.Archive(ctx, root.ID))

	reloadedChild, err := projects.GetProject(ctx, child.ID)
	require.NoError(t, err)
	assert.True(t, reloadedChild.Archived)

	reloadedTask, err := tasks.GetTask(ctx, tk.ID)
	require.NoError(t, err)
	assert.True(t, reloadedTask.Archived)
}

func TestTaskService_MoveStageEnforcesAllowedTransitions(t *testing.T) {
	client := newTestClient(t)
	projects := NewProjectService(client)
	workflows := NewWorkflowService(client)
	tasks := NewTaskService(client, projects, workflows)
	ctx := context.Background()

	wf, err := workflows.CreateWorkflow(ctx, basicWorkflowParams())
	require.NoError(t, err)
	proj, err := projects.CreateProject(ctx, CreateProjectParams{Title: "p", WorkflowID: wf.ID, OwnerSubjectID: "u1"})
	require.NoError(t, err)

	tk, err := tasks.CreateTask(ctx, CreateTaskParams{ProjectID: proj.ID, WorkflowStageID: "todo", Title: "t1"})
	require.NoError(t, err)

	_, err = tasks.MoveStage(ctx, tk.ID, "done", nil)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation), "todo cannot jump straight to done")

	moved, err := tasks.MoveStage(ctx, tk.ID, "doing", nil)
	require.NoError(t, err)
	assert.Equal(t, "doing", moved.WorkflowStageID)
}

func TestTaskService_ReorderComputesFractionalMidpoint(t *testing.T) {
	client := newTestClient(t)
	projects := NewProjectService(client)
	workflows := NewWorkflowService(client)
	tasks := NewTaskService(client, projects, workflows)
	ctx := context.Background()

	wf, err := workflows.CreateWorkflow(ctx, basicWorkflowParams())
	require.NoError(t, err)
	proj, err := projects.CreateProject(ctx, CreateProjectParams{Title: "p", WorkflowID: wf.ID, OwnerSubjectID: "u1"})
	require.NoError(t, err)

	first, err := tasks.CreateTask(ctx, CreateTaskParams{ProjectID: proj.ID, WorkflowStageID: "todo", Title: "first"})
	require.NoError(t, err)
	second, err := tasks.CreateTask(ctx, CreateTaskParams{ProjectID: proj.ID, WorkflowStageID: "todo", Title: "second"})
	require.NoError(t, err)

	before := first.Order
	after := second.Order
	require.NoError(t, tasks.Reorder(ctx, second.ID, &before, nil))

	reloadedSecond, err := tasks.GetTask(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, reloadedSecond.Order)

	require.NoError(t, tasks.Reorder(ctx, first.ID, nil, &after))
	reloadedFirst, err := tasks.GetTask(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, reloadedFirst.Order < after)
}

func TestSprintService_Lifecycle(t *testing.T) {
	client := newTestClient(t)
	projects := NewProjectService(client)
	workflows := NewWorkflowService(client)
	tasksSvc := NewTaskService(client, projects, workflows)
	sprints := NewSprintService(client, projects, workflows)
	ctx := context.Background()

	wf, err := workflows.CreateWorkflow(ctx, basicWorkflowParams())
	require.NoError(t, err)
	proj, err := projects.CreateProject(ctx, CreateProjectParams{Title: "p", WorkflowID: wf.ID, OwnerSubjectID: "u1"})
	require.NoError(t, err)

	s1, err := sprints.CreateSprint(ctx, CreateSprintParams{
		ProjectID: proj.ID, Name: "S1",
		StartDate: time.Now(), EndDate: time.Now().Add(14 * 24 * time.Hour),
	})
	require.NoError(t, err)

	hours := 5.0
	var taskIDs []string
	for i := 0; i < 3; i++ {
		tk, err := tasksSvc.CreateTask(ctx, CreateTaskParams{
			ProjectID: proj.ID, WorkflowStageID: "todo", Title: "t",
			EstimatedHours: &hours,
		})
		require.NoError(t, err)
		require.NoError(t, client.Task.UpdateOneID(tk.ID).SetSprintID(s1.ID).Exec(ctx))
		taskIDs = append(taskIDs, tk.ID)
	}

	s2, err := sprints.CreateSprint(ctx, CreateSprintParams{
		ProjectID: proj.ID, Name: "S2",
		StartDate: time.Now(), EndDate: time.Now().Add(14 * 24 * time.Hour),
	})
	require.NoError(t, err)

	started, err := sprints.Start(ctx, s1.ID)
	require.NoError(t, err)
	assert.Len(t, started.TaskSnapshot, 3)

	_, err = sprints.Start(ctx, s2.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict), "a second active sprint in the same project must conflict")

	for _, id := range taskIDs {
		_, err := tasksSvc.MoveStage(ctx, id, "doing", nil)
		require.NoError(t, err)
		_, err = tasksSvc.MoveStage(ctx, id, "done", nil)
		require.NoError(t, err)
	}

	completed, err := sprints.Complete(ctx, s1.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.Velocity)
	assert.Equal(t, 15.0, *completed.Velocity)
	assert.Equal(t, "completed", string(completed.Status))

	_, err = sprints.Start(ctx, s2.ID)
	require.NoError(t, err, "starting S2 now that S1 is no longer active must succeed")
}
