package storage

import (
	"context"
	"fmt"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/permissiongrant"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/google/uuid"
)

// CreateGrantParams describes a new RBAC grant. Exactly one of SubjectID or
// Role must be set.
type CreateGrantParams struct {
	SubjectID    *string
	Role         *permissiongrant.Role
	ResourceType string
	Action       string
	Scope        string
}

// CreateGrant inserts a new PermissionGrant row.
func (s *Store) CreateGrant(ctx context.Context, p CreateGrantParams) (*ent.PermissionGrant, error) {
	create := s.client.PermissionGrant.Create().
		SetID(uuid.NewString()).
		SetResourceType(p.ResourceType).
		SetAction(p.Action).
		SetScope(p.Scope)

	if p.SubjectID != nil {
		create = create.SetSubjectID(*p.SubjectID)
	}
	if p.Role != nil {
		create = create.SetRole(*p.Role)
	}

	grant, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create grant: %w", err)
	}
	return grant, nil
}

// ListGrants returns every grant, used to rebuild the RBAC engine's
// in-memory policy table at startup.
func (s *Store) ListGrants(ctx context.Context) ([]*ent.PermissionGrant, error) {
	grants, err := s.client.PermissionGrant.Query().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	return grants, nil
}

// DeleteGrant removes a grant by id.
func (s *Store) DeleteGrant(ctx context.Context, id string) error {
	if err := s.client.PermissionGrant.DeleteOneID(id).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return apperrors.Wrap(apperrors.KindNotFound, "grant not found", err)
		}
		return fmt.Errorf("delete grant: %w", err)
	}
	return nil
}
