package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/source"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/google/uuid"
)

// CreateSourceParams describes a new ingestible origin.
type CreateSourceParams struct {
	DisplayName         string
	Origin              string
	KnowledgeType       source.KnowledgeType
	Tags                []string
	ExtractCodeExamples bool
	ProjectID           *string
	IsProjectPrivate    bool
}

// CreateSource inserts a new Source row. ProjectID nil implies the source
// is global (is_project_private must be false in that case; the caller —
// the ingestion orchestrator — enforces that invariant before calling in).
func (s *Store) CreateSource(ctx context.Context, p CreateSourceParams) (*ent.Source, error) {
	create := s.client.Source.Create().
		SetID(uuid.NewString()).
		SetDisplayName(p.DisplayName).
		SetOrigin(p.Origin).
		SetKnowledgeType(p.KnowledgeType).
		SetTags(p.Tags).
		SetExtractCodeExamples(p.ExtractCodeExamples).
		SetIsProjectPrivate(p.IsProjectPrivate)

	if p.ProjectID != nil {
		create = create.SetProjectID(*p.ProjectID)
	}

	src, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}
	return src, nil
}

// GetSource fetches a Source by id.
func (s *Store) GetSource(ctx context.Context, id string) (*ent.Source, error) {
	src, err := s.client.Source.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "source not found", err)
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	return src, nil
}

// ListSourcesParams filters the source listing. A nil ProjectID lists
// global sources; IncludePrivate controls whether project-private sources
// from other projects leak into a global listing (they never should when
// ProjectID is nil, but the flag exists so RBAC-denied callers get an
// explicit false rather than relying on filter omission).
type ListSourcesParams struct {
	ProjectID      *string
	KnowledgeType  *source.KnowledgeType
	IncludePrivate bool
}

// ListSources returns sources matching the given filter.
func (s *Store) ListSources(ctx context.Context, p ListSourcesParams) ([]*ent.Source, error) {
	q := s.client.Source.Query()

	if p.ProjectID != nil {
		q = q.Where(source.ProjectIDEQ(*p.ProjectID))
	} else if !p.IncludePrivate {
		q = q.Where(source.IsProjectPrivateEQ(false))
	}

	if p.KnowledgeType != nil {
		q = q.Where(source.KnowledgeTypeEQ(*p.KnowledgeType))
	}

	sources, err := q.Order(ent.Desc(source.FieldCreatedAt)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

// PromoteSource marks a project-private source as global. Returns
// apperrors.ErrAlreadyGlobal if the source has no project (it is already
// global).
func (s *Store) PromoteSource(ctx context.Context, id, promotedBy string) (*ent.Source, error) {
	src, err := s.GetSource(ctx, id)
	if err != nil {
		return nil, err
	}
	if src.ProjectID == nil {
		return nil, apperrors.ErrAlreadyGlobal
	}

	updated, err := src.Update().
		ClearProjectID().
		SetIsProjectPrivate(false).
		SetPromotedAt(time.Now()).
		SetPromotedBy(promotedBy).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("promote source: %w", err)
	}
	return updated, nil
}

// IncrementCounts bumps the source's running totals after an ingestion
// pass stores new pages/code examples.
func (s *Store) IncrementCounts(ctx context.Context, id string, pages, chunks, codeExamples int) error {
	_, err := s.client.Source.UpdateOneID(id).
		AddPagesFetched(pages).
		AddChunksStored(chunks).
		AddCodeExamplesCount(codeExamples).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("increment source counts: %w", err)
	}
	return nil
}

// DeleteSource deletes a source and, via cascade, its pages, embeddings,
// and code examples.
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	err := s.client.Source.DeleteOneID(id).Exec(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return apperrors.Wrap(apperrors.KindNotFound, "source not found", err)
		}
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}
