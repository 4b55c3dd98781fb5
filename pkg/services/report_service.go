package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/sprint"
	"github.com/archon-core/archon/ent/task"
	"github.com/archon-core/archon/ent/taskhistory"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/archon-core/archon/pkg/reportcache"
)

// staleAfter is how long a non-terminal task can go without an update
// before it counts toward a project's stale-task ratio.
const staleAfter = 7 * 24 * time.Hour

// ReportService computes project and sprint reports, serving them from a
// 5-minute cache keyed by (project_id, report_name).
type ReportService struct {
	client    *ent.Client
	projects  *ProjectService
	workflows *WorkflowService
	cache     *reportcache.Cache
}

// NewReportService creates a new ReportService.
func NewReportService(client *ent.Client, projects *ProjectService, workflows *WorkflowService, cache *reportcache.Cache) *ReportService {
	return &ReportService{client: client, projects: projects, workflows: workflows, cache: cache}
}

// ProjectHealth is the per-project health composite.
type ProjectHealth struct {
	StaleTaskRatio   float64 `json:"stale_task_ratio"`
	OverdueTaskRatio float64 `json:"overdue_task_ratio"`
	VelocityTrend    float64 `json:"velocity_trend"`
}

// ProjectHealth computes stale-task ratio, overdue-task ratio, and velocity
// trend (the delta between the two most recently completed sprints'
// velocity) for a project.
func (s *ReportService) ProjectHealth(ctx context.Context, projectID string) (*ProjectHealth, error) {
	var out ProjectHealth
	if s.cache.Get(ctx, projectID, "project_health", &out) {
		return &out, nil
	}

	proj, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	wf, err := s.workflows.GetWorkflow(ctx, proj.WorkflowID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.client.Task.Query().Where(task.ProjectIDEQ(projectID), task.ArchivedEQ(false)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	var stale, overdue, trackedForOverdue int
	now := time.Now()
	sprintEndDates := make(map[string]time.Time)
	for _, t := range tasks {
		if IsTerminal(wf, t.WorkflowStageID) {
			continue
		}
		if now.Sub(t.UpdatedAt) > staleAfter {
			stale++
		}
		if t.SprintID == nil {
			continue
		}
		end, ok := sprintEndDates[*t.SprintID]
		if !ok {
			spr, err := s.client.Sprint.Get(ctx, *t.SprintID)
			if err != nil {
				continue
			}
			end = spr.EndDate
			sprintEndDates[*t.SprintID] = end
		}
		trackedForOverdue++
		if now.After(end) {
			overdue++
		}
	}

	total := len(tasks)
	out = ProjectHealth{}
	if total > 0 {
		out.StaleTaskRatio = float64(stale) / float64(total)
	}
	if trackedForOverdue > 0 {
		out.OverdueTaskRatio = float64(overdue) / float64(trackedForOverdue)
	}

	completed, err := s.client.Sprint.Query().
		Where(sprint.ProjectIDEQ(projectID), sprint.StatusEQ(sprint.StatusCompleted)).
		Order(ent.Desc(sprint.FieldCompletedAt)).
		Limit(2).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list completed sprints: %w", err)
	}
	if len(completed) == 2 && completed[0].Velocity != nil && completed[1].Velocity != nil {
		out.VelocityTrend = *completed[0].Velocity - *completed[1].Velocity
	}

	s.cache.Put(ctx, projectID, "project_health", out)
	return &out, nil
}

// BurndownPoint is one day of a sprint burndown series.
type BurndownPoint struct {
	Date      string `json:"date"`
	Remaining int    `json:"remaining"`
}

// SprintReport is the per-sprint report: burndown, velocity, blocked count.
type SprintReport struct {
	Burndown     []BurndownPoint `json:"burndown"`
	Velocity     *float64        `json:"velocity"`
	BlockedCount int             `json:"blocked_count"`
}

// SprintReport computes a burndown series from task_history, the sprint's
// frozen velocity, and the count of tasks currently sitting in a stage
// whose name looks like a blocked state.
func (s *ReportService) SprintReport(ctx context.Context, sprintID string) (*SprintReport, error) {
	spr, err := s.client.Sprint.Get(ctx, sprintID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "sprint not found", err)
		}
		return nil, fmt.Errorf("get sprint: %w", err)
	}

	var out SprintReport
	if s.cache.Get(ctx, spr.ProjectID, "sprint_report:"+sprintID, &out) {
		return &out, nil
	}

	proj, err := s.projects.GetProject(ctx, spr.ProjectID)
	if err != nil {
		return nil, err
	}
	wf, err := s.workflows.GetWorkflow(ctx, proj.WorkflowID)
	if err != nil {
		return nil, err
	}

	remaining := make(map[string]bool, len(spr.TaskSnapshot))
	for _, id := range spr.TaskSnapshot {
		remaining[id] = true
	}

	var transitions []*ent.TaskHistory
	if len(spr.TaskSnapshot) > 0 {
		transitions, err = s.client.TaskHistory.Query().
			Where(taskhistory.TaskIDIn(spr.TaskSnapshot...)).
			Order(ent.Asc(taskhistory.FieldCreatedAt)).
			All(ctx)
		if err != nil {
			return nil, fmt.Errorf("list task history: %w", err)
		}
	}

	perDay := make(map[string]int)
	for _, th := range transitions {
		if IsTerminal(wf, th.NewStageID) && remaining[th.TaskID] {
			remaining[th.TaskID] = false
			perDay[th.CreatedAt.Format("2006-01-02")]++
		}
	}

	days := make([]string, 0, len(perDay))
	for d := range perDay {
		days = append(days, d)
	}
	sort.Strings(days)

	left := len(spr.TaskSnapshot)
	burndown := make([]BurndownPoint, 0, len(days)+1)
	burndown = append(burndown, BurndownPoint{Date: spr.StartDate.Format("2006-01-02"), Remaining: left})
	for _, d := range days {
		left -= perDay[d]
		burndown = append(burndown, BurndownPoint{Date: d, Remaining: left})
	}

	blocked := 0
	if len(spr.TaskSnapshot) > 0 {
		tasks, err := s.client.Task.Query().Where(task.IDIn(spr.TaskSnapshot...)).All(ctx)
		if err != nil {
			return nil, fmt.Errorf("list snapshot tasks: %w", err)
		}
		for _, t := range tasks {
			st, ok := StageByID(wf, t.WorkflowStageID)
			if ok && strings.Contains(strings.ToLower(st.Name), "block") {
				blocked++
			}
		}
	}

	out = SprintReport{Burndown: burndown, Velocity: spr.Velocity, BlockedCount: blocked}
	s.cache.Put(ctx, spr.ProjectID, "sprint_report:"+sprintID, out)
	return &out, nil
}

// TaskMetrics is the distribution of a project's tasks across a few axes.
type TaskMetrics struct {
	ByStage    map[string]int `json:"by_stage"`
	ByAssignee map[string]int `json:"by_assignee"`
	ByPriority map[string]int `json:"by_priority"`
}

// TaskMetrics computes status/assignee/priority distributions for a
// project's non-archived tasks.
func (s *ReportService) TaskMetrics(ctx context.Context, projectID string) (*TaskMetrics, error) {
	var out TaskMetrics
	if s.cache.Get(ctx, projectID, "task_metrics", &out) {
		return &out, nil
	}

	tasks, err := s.client.Task.Query().Where(task.ProjectIDEQ(projectID), task.ArchivedEQ(false)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	out = TaskMetrics{
		ByStage:    make(map[string]int),
		ByAssignee: make(map[string]int),
		ByPriority: make(map[string]int),
	}
	for _, t := range tasks {
		out.ByStage[t.WorkflowStageID]++
		out.ByPriority[string(t.Priority)]++
		assignee := "unassigned"
		if t.AssigneeSubjectID != nil {
			assignee = *t.AssigneeSubjectID
		}
		out.ByAssignee[assignee]++
	}

	s.cache.Put(ctx, projectID, "task_metrics", out)
	return &out, nil
}

// TeamPerformance is per-member throughput: tasks moved into a terminal
// stage within the lookback window.
type TeamPerformance struct {
	CompletedBySubject map[string]int `json:"completed_by_subject"`
}

const teamPerformanceLookback = 30 * 24 * time.Hour

// TeamPerformance computes, for every subject who has moved a task into a
// terminal stage within the lookback window, how many such transitions they
// made.
func (s *ReportService) TeamPerformance(ctx context.Context, projectID string) (*TeamPerformance, error) {
	var out TeamPerformance
	if s.cache.Get(ctx, projectID, "team_performance", &out) {
		return &out, nil
	}

	proj, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	wf, err := s.workflows.GetWorkflow(ctx, proj.WorkflowID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.client.Task.Query().Where(task.ProjectIDEQ(projectID)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	taskIDs := make([]string, len(tasks))
	for i, t := range tasks {
		taskIDs[i] = t.ID
	}

	out = TeamPerformance{CompletedBySubject: make(map[string]int)}
	if len(taskIDs) == 0 {
		s.cache.Put(ctx, projectID, "team_performance", out)
		return &out, nil
	}

	since := time.Now().Add(-teamPerformanceLookback)
	transitions, err := s.client.TaskHistory.Query().
		Where(
			taskhistory.TaskIDIn(taskIDs...),
			taskhistory.CreatedAtGTE(since),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list task history: %w", err)
	}

	for _, th := range transitions {
		if !IsTerminal(wf, th.NewStageID) || th.ChangedBy == nil {
			continue
		}
		out.CompletedBySubject[*th.ChangedBy]++
	}

	s.cache.Put(ctx, projectID, "team_performance", out)
	return &out, nil
}
