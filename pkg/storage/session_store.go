package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/mcprequest"
	"github.com/archon-core/archon/ent/mcpsession"
	"github.com/archon-core/archon/pkg/apperrors"
)

// CreateSessionParams describes a newly observed MCP client connection.
type CreateSessionParams struct {
	ID              string
	ClientType      string
	ClientVersion   string
	SubjectID       *string
	UserEmail       *string
	UserDisplayName *string
}

// CreateSession inserts a new active MCPSession row.
func (s *Store) CreateSession(ctx context.Context, p CreateSessionParams) (*ent.MCPSession, error) {
	create := s.client.MCPSession.Create().
		SetID(p.ID).
		SetClientType(p.ClientType).
		SetClientVersion(p.ClientVersion)

	if p.SubjectID != nil {
		create = create.SetSubjectID(*p.SubjectID)
	}
	if p.UserEmail != nil {
		create = create.SetUserEmail(*p.UserEmail)
	}
	if p.UserDisplayName != nil {
		create = create.SetUserDisplayName(*p.UserDisplayName)
	}

	sess, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// GetSession fetches an MCPSession by id.
func (s *Store) GetSession(ctx context.Context, id string) (*ent.MCPSession, error) {
	sess, err := s.client.MCPSession.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.Wrap(apperrors.KindSessionNotFound, "session not found", err)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// TouchSession advances last_activity_at, e.g. on every tool call and on a
// successful reconnect.
func (s *Store) TouchSession(ctx context.Context, id string) error {
	err := s.client.MCPSession.UpdateOneID(id).
		SetLastActivityAt(time.Now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// DisconnectSession marks a session disconnected with a reason, leaving it
// reconnectable unless the reason is revoked or replaced.
func (s *Store) DisconnectSession(ctx context.Context, id string, reason mcpsession.DisconnectReason) error {
	err := s.client.MCPSession.UpdateOneID(id).
		SetStatus(mcpsession.StatusDisconnected).
		SetDisconnectReason(reason).
		SetDisconnectedAt(time.Now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("disconnect session: %w", err)
	}
	return nil
}

// SetReconnectToken stores the sha256 hash of a freshly issued reconnect
// token and its expiry on the session row.
func (s *Store) SetReconnectToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	err := s.client.MCPSession.UpdateOneID(id).
		SetReconnectTokenHash(tokenHash).
		SetReconnectExpiresAt(expiresAt).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set reconnect token: %w", err)
	}
	return nil
}

// ReconnectSession transitions a disconnected session back to active,
// updating last_activity_at and incrementing reconnect_count. Callers
// validate the token and disconnect_reason before calling in.
func (s *Store) ReconnectSession(ctx context.Context, id string) (*ent.MCPSession, error) {
	sess, err := s.client.MCPSession.UpdateOneID(id).
		SetStatus(mcpsession.StatusActive).
		SetLastActivityAt(time.Now()).
		AddReconnectCount(1).
		ClearDisconnectReason().
		ClearDisconnectedAt().
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconnect session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all MCPSession rows ordered by most recently active,
// optionally filtered to active-only.
func (s *Store) ListSessions(ctx context.Context, activeOnly bool) ([]*ent.MCPSession, error) {
	q := s.client.MCPSession.Query().Order(ent.Desc(mcpsession.FieldLastActivityAt))
	if activeOnly {
		q = q.Where(mcpsession.StatusEQ(mcpsession.StatusActive))
	}
	sessions, err := q.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// ListIdleSessions returns active sessions whose last_activity_at is older
// than threshold, candidates for the reaper to mark disconnected.
func (s *Store) ListIdleSessions(ctx context.Context, threshold time.Time) ([]*ent.MCPSession, error) {
	sessions, err := s.client.MCPSession.Query().
		Where(
			mcpsession.StatusEQ(mcpsession.StatusActive),
			mcpsession.LastActivityAtLT(threshold),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}
	return sessions, nil
}

// RecordRequestParams describes one tracked tool invocation.
type RecordRequestParams struct {
	ID               string
	SessionID        string
	Method           string
	ToolName         *string
	Status           mcprequest.Status
	DurationMS       int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	EstimatedCost    float64
	ErrorMessage     *string
}

// RecordRequest inserts a Request row, idempotent on request.id: a retried
// wrapper call for the same id is a no-op rather than a duplicate or an
// error.
func (s *Store) RecordRequest(ctx context.Context, p RecordRequestParams) error {
	create := s.client.MCPRequest.Create().
		SetID(p.ID).
		SetSessionID(p.SessionID).
		SetMethod(p.Method).
		SetStatus(p.Status).
		SetDurationMS(p.DurationMS).
		SetPromptTokens(p.PromptTokens).
		SetCompletionTokens(p.CompletionTokens).
		SetTotalTokens(p.TotalTokens).
		SetEstimatedCost(p.EstimatedCost)

	if p.ToolName != nil {
		create = create.SetToolName(*p.ToolName)
	}
	if p.ErrorMessage != nil {
		create = create.SetErrorMessage(*p.ErrorMessage)
	}

	if err := create.OnConflictColumns(mcprequest.FieldID).DoNothing().Exec(ctx); err != nil {
		return fmt.Errorf("record request: %w", err)
	}
	return nil
}
