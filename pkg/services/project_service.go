package services

import (
	"context"
	"fmt"
	"time"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/project"
	"github.com/archon-core/archon/ent/task"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/google/uuid"
)

// ProjectService manages project lifecycle: creation, the parent/child tree,
// archiving, and workflow reassignment.
type ProjectService struct {
	client *ent.Client
}

// NewProjectService creates a new ProjectService.
func NewProjectService(client *ent.Client) *ProjectService {
	return &ProjectService{client: client}
}

// CreateProjectParams describes a new project.
type CreateProjectParams struct {
	Title          string
	Description    string
	ParentID       *string
	WorkflowID     string
	Type           project.Type
	OwnerSubjectID string
}

// CreateProject creates a new project under an optional parent.
func (s *ProjectService) CreateProject(ctx context.Context, p CreateProjectParams) (*ent.Project, error) {
	if p.Title == "" {
		return nil, apperrors.Validation("title", "required")
	}
	if p.WorkflowID == "" {
		return nil, apperrors.Validation("workflow_id", "required")
	}
	if p.OwnerSubjectID == "" {
		return nil, apperrors.Validation("owner_subject_id", "required")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	create := s.client.Project.Create().
		SetID(uuid.NewString()).
		SetTitle(p.Title).
		SetWorkflowID(p.WorkflowID).
		SetOwnerSubjectID(p.OwnerSubjectID)
	if p.Description != "" {
		create = create.SetDescription(p.Description)
	}
	if p.Type != "" {
		create = create.SetType(p.Type)
	}
	if p.ParentID != nil {
		if _, err := s.client.Project.Get(ctx, *p.ParentID); err != nil {
			if ent.IsNotFound(err) {
				return nil, apperrors.New(apperrors.KindValidation, "parent project does not exist")
			}
			return nil, fmt.Errorf("get parent project: %w", err)
		}
		create = create.SetParentID(*p.ParentID)
	}

	proj, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return proj, nil
}

// GetProject fetches a project by id.
func (s *ProjectService) GetProject(ctx context.Context, id string) (*ent.Project, error) {
	proj, err := s.client.Project.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "project not found", err)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return proj, nil
}

// ListProjectsParams filters the project listing.
type ListProjectsParams struct {
	ParentID        *string
	IncludeArchived bool
}

// ListProjects lists projects, optionally scoped to direct children of a
// parent. Archived projects are excluded unless explicitly requested.
func (s *ProjectService) ListProjects(ctx context.Context, p ListProjectsParams) ([]*ent.Project, error) {
	q := s.client.Project.Query()
	if p.ParentID != nil {
		q = q.Where(project.ParentIDEQ(*p.ParentID))
	}
	if !p.IncludeArchived {
		q = q.Where(project.ArchivedEQ(false))
	}
	projects, err := q.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// SetParent reassigns a project's parent, rejecting any change that would
// place the project within its own subtree.
func (s *ProjectService) SetParent(ctx context.Context, projectID string, newParentID *string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if newParentID != nil {
		if *newParentID == projectID {
			return apperrors.New(apperrors.KindValidation, "project cannot be its own parent")
		}
		ancestor := *newParentID
		for {
			p, err := s.client.Project.Get(ctx, ancestor)
			if err != nil {
				if ent.IsNotFound(err) {
					return apperrors.New(apperrors.KindValidation, "parent project does not exist")
				}
				return fmt.Errorf("walk ancestry: %w", err)
			}
			if p.ParentID == nil {
				break
			}
			if *p.ParentID == projectID {
				return apperrors.New(apperrors.KindValidation, "reassignment would create a cycle")
			}
			ancestor = *p.ParentID
		}
	}

	update := s.client.Project.UpdateOneID(projectID)
	if newParentID != nil {
		update = update.SetParentID(*newParentID)
	} else {
		update = update.ClearParentID()
	}
	if err := update.Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return apperrors.Wrap(apperrors.KindNotFound, "project not found", err)
		}
		return fmt.Errorf("set parent: %w", err)
	}
	return nil
}

// descendantIDs returns every project id reachable from root via parent_id,
// root excluded.
func (s *ProjectService) descendantIDs(ctx context.Context, root string) ([]string, error) {
	var out []string
	frontier := []string{root}
	for len(frontier) > 0 {
		children, err := s.client.Project.Query().
			Where(project.ParentIDIn(frontier...)).
			All(ctx)
		if err != nil {
			return nil, fmt.Errorf("query children: %w", err)
		}
		frontier = frontier[:0]
		for _, c := range children {
			out = append(out, c.ID)
			frontier = append(frontier, c.ID)
		}
	}
	return out, nil
}

// Archive archives a project and recursively archives its descendants and
// their tasks. Idempotent: archiving an already-archived project is a no-op.
func (s *ProjectService) Archive(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	descendants, err := s.descendantIDs(ctx, id)
	if err != nil {
		return err
	}
	ids := append([]string{id}, descendants...)

	tx, err := s.client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Project.Update().Where(project.IDIn(ids...)).SetArchived(true).Save(ctx); err != nil {
		return fmt.Errorf("archive projects: %w", err)
	}
	if _, err := tx.Task.Update().Where(task.ProjectIDIn(ids...)).SetArchived(true).Save(ctx); err != nil {
		return fmt.Errorf("archive tasks: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive: %w", err)
	}
	return nil
}

// Unarchive un-archives a single project, not its descendants.
func (s *ProjectService) Unarchive(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.client.Project.UpdateOneID(id).SetArchived(false).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return apperrors.Wrap(apperrors.KindNotFound, "project not found", err)
		}
		return fmt.Errorf("unarchive project: %w", err)
	}
	return nil
}
