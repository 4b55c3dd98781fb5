package storage

import (
	"context"
	"fmt"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/knowledgelink"
	"github.com/google/uuid"
)

// CreateLinkParams describes a polymorphic association between a project
// management entity and a knowledge item. RelevanceScore is nil for links
// created directly by a user and set for links created from a suggestion.
type CreateLinkParams struct {
	EntityType     knowledgelink.EntityType
	EntityID       string
	KnowledgeType  knowledgelink.KnowledgeType
	KnowledgeID    string
	RelevanceScore *float64
}

// CreateLink inserts a knowledge link.
func (s *Store) CreateLink(ctx context.Context, p CreateLinkParams) (*ent.KnowledgeLink, error) {
	create := s.client.KnowledgeLink.Create().
		SetID(uuid.NewString()).
		SetEntityType(p.EntityType).
		SetEntityID(p.EntityID).
		SetKnowledgeType(p.KnowledgeType).
		SetKnowledgeID(p.KnowledgeID)

	if p.RelevanceScore != nil {
		create = create.SetRelevanceScore(*p.RelevanceScore)
	}

	link, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create knowledge link: %w", err)
	}
	return link, nil
}

// ListLinksForEntity returns every knowledge item linked to a project
// management entity (a task, sprint, or project).
func (s *Store) ListLinksForEntity(ctx context.Context, entityType knowledgelink.EntityType, entityID string) ([]*ent.KnowledgeLink, error) {
	links, err := s.client.KnowledgeLink.Query().
		Where(
			knowledgelink.EntityTypeEQ(entityType),
			knowledgelink.EntityIDEQ(entityID),
		).
		Order(ent.Desc(knowledgelink.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list links for entity: %w", err)
	}
	return links, nil
}

// ListLinksForKnowledgeItem returns every project management entity linked
// to a given knowledge item (used when deleting a source, to warn about
// or cascade-clean dangling links).
func (s *Store) ListLinksForKnowledgeItem(ctx context.Context, knowledgeType knowledgelink.KnowledgeType, knowledgeID string) ([]*ent.KnowledgeLink, error) {
	links, err := s.client.KnowledgeLink.Query().
		Where(
			knowledgelink.KnowledgeTypeEQ(knowledgeType),
			knowledgelink.KnowledgeIDEQ(knowledgeID),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list links for knowledge item: %w", err)
	}
	return links, nil
}

// DeleteLink removes a knowledge link.
func (s *Store) DeleteLink(ctx context.Context, id string) error {
	if err := s.client.KnowledgeLink.DeleteOneID(id).Exec(ctx); err != nil {
		return fmt.Errorf("delete knowledge link: %w", err)
	}
	return nil
}
