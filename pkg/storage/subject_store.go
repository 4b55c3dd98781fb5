package storage

import (
	"context"
	"fmt"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/subject"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/google/uuid"
)

// CreateSubjectParams describes a new authenticated principal.
type CreateSubjectParams struct {
	Email         *string
	PasswordHash  *string
	Role          subject.Role
	IsServiceRole bool
}

// CreateSubject inserts a new Subject row.
func (s *Store) CreateSubject(ctx context.Context, p CreateSubjectParams) (*ent.Subject, error) {
	create := s.client.Subject.Create().
		SetID(uuid.NewString()).
		SetRole(p.Role).
		SetIsServiceRole(p.IsServiceRole)

	if p.Email != nil {
		create = create.SetEmail(*p.Email)
	}
	if p.PasswordHash != nil {
		create = create.SetPasswordHash(*p.PasswordHash)
	}

	subj, err := create.Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, apperrors.Wrap(apperrors.KindConflict, "subject already exists", err)
		}
		return nil, fmt.Errorf("create subject: %w", err)
	}
	return subj, nil
}

// GetSubject fetches a Subject by id.
func (s *Store) GetSubject(ctx context.Context, id string) (*ent.Subject, error) {
	subj, err := s.client.Subject.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "subject not found", err)
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return subj, nil
}

// GetSubjectByEmail fetches a Subject by its unique email.
func (s *Store) GetSubjectByEmail(ctx context.Context, email string) (*ent.Subject, error) {
	subj, err := s.client.Subject.Query().Where(subject.EmailEQ(email)).Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "subject not found", err)
		}
		return nil, fmt.Errorf("get subject by email: %w", err)
	}
	return subj, nil
}

// ListActiveSubjects returns every active Subject, used to rebuild the RBAC
// engine's view of roles at startup.
func (s *Store) ListActiveSubjects(ctx context.Context) ([]*ent.Subject, error) {
	subjects, err := s.client.Subject.Query().Where(subject.ActiveEQ(true)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active subjects: %w", err)
	}
	return subjects, nil
}
