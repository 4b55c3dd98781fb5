// Package mcpsession tracks inbound MCP client connections and the tool
// calls made within them. It is Archon's inverse of an outbound MCP
// client: instead of dialing out to tool servers and managing the
// sessions that result, it is dialed into by MCP clients and manages the
// sessions they create.
package mcpsession

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/archon-core/archon/ent/mcprequest"
	"github.com/archon-core/archon/ent/mcpsession"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/archon-core/archon/pkg/config"
	"github.com/archon-core/archon/pkg/storage"
	"github.com/google/uuid"
)

// Manager is the single point of contact for the MCP binding: it creates
// sessions lazily, wraps every tool call with request tracking, and
// issues/validates reconnection tokens. One Manager per process, built in
// the composition root and threaded through the MCP tool binding.
type Manager struct {
	store  *storage.Store
	cfg    *config.SessionConfig
	secret []byte
	prices *config.ProviderRegistry
}

// New builds a Manager. secret signs and validates reconnect tokens; prices
// is consulted by EstimateCost and may be nil if cost tracking is disabled.
func New(store *storage.Store, cfg *config.SessionConfig, secret []byte, prices *config.ProviderRegistry) *Manager {
	return &Manager{store: store, cfg: cfg, secret: secret, prices: prices}
}

// ClientInfo is what an MCP client declares about itself on first contact,
// the raw material DeriveClientType works from.
type ClientInfo struct {
	Name    string
	Version string
}

// Subject is the optional authenticated principal attached to a session.
type Subject struct {
	ID          string
	Email       string
	DisplayName string
}

// EnsureSession implements lazy session creation: if sessionID is empty, a
// new session is created and its id returned; if sessionID is non-empty and
// found, its activity timestamp is refreshed; if non-empty but not found (a
// stale or forged id), a new session is created under a fresh id rather
// than erroring, since tool calls must not fail merely because the caller
// forgot an id across a restart.
func (m *Manager) EnsureSession(ctx context.Context, sessionID string, info ClientInfo, subj *Subject) (string, error) {
	if sessionID != "" {
		if _, err := m.store.GetSession(ctx, sessionID); err == nil {
			if err := m.store.TouchSession(ctx, sessionID); err != nil {
				return "", err
			}
			return sessionID, nil
		}
	}

	params := storage.CreateSessionParams{
		ID:            uuid.NewString(),
		ClientType:    DeriveClientType(info.Name),
		ClientVersion: info.Version,
	}
	if subj != nil {
		if subj.ID != "" {
			params.SubjectID = &subj.ID
		}
		if subj.Email != "" {
			params.UserEmail = &subj.Email
		}
		if subj.DisplayName != "" {
			params.UserDisplayName = &subj.DisplayName
		}
	}

	sess, err := m.store.CreateSession(ctx, params)
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// Usage carries the token accounting a wrapped tool call reports, used to
// compute estimated_cost via the per-model price table.
type Usage struct {
	ProviderName     string
	PromptTokens     int
	CompletionTokens int
}

// ToolResult is what a wrapped tool call reports back to WrapToolCall for
// request tracking.
type ToolResult struct {
	Status mcprequest.Status
	Usage  Usage
	Err    error
}

// WrapToolCall tracks one tool invocation: it times the call, runs it, and
// writes a Request row recording status, duration, token counts, and
// estimated cost. requestID is supplied by the caller so retried
// deliveries of the same logical request dedupe via RecordRequest's
// idempotency rather than double-counting cost.
func (m *Manager) WrapToolCall(ctx context.Context, sessionID, requestID, method string, toolName *string, call func(ctx context.Context) ToolResult) ToolResult {
	start := time.Now()
	result := call(ctx)
	duration := time.Since(start)

	status := result.Status
	if status == "" {
		if result.Err != nil {
			status = mcprequest.StatusError
		} else {
			status = mcprequest.StatusSuccess
		}
	}

	var errMsg *string
	if result.Err != nil {
		msg := result.Err.Error()
		errMsg = &msg
	}

	cost := m.EstimateCost(result.Usage)
	params := storage.RecordRequestParams{
		ID:               requestID,
		SessionID:        sessionID,
		Method:           method,
		ToolName:         toolName,
		Status:           status,
		DurationMS:       int(duration.Milliseconds()),
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TotalTokens:      result.Usage.PromptTokens + result.Usage.CompletionTokens,
		EstimatedCost:    cost,
		ErrorMessage:     errMsg,
	}
	if err := m.store.RecordRequest(ctx, params); err != nil {
		slog.Warn("failed to record MCP request", "session_id", sessionID, "request_id", requestID, "error", err)
	}

	return result
}

// EstimateCost looks up u.ProviderName in the price table and applies its
// per-1k-token input/output rates. Returns 0 if no price table is
// configured or the provider isn't found (cost tracking degrades silently
// rather than failing the tool call).
func (m *Manager) EstimateCost(u Usage) float64 {
	if m.prices == nil || u.ProviderName == "" {
		return 0
	}
	p, err := m.prices.Get(u.ProviderName)
	if err != nil {
		return 0
	}
	return float64(u.PromptTokens)/1000*p.PriceInput + float64(u.CompletionTokens)/1000*p.PriceOutput
}

// IssueReconnectToken signs a fresh reconnect token for sessionID and
// persists its hash and expiry on the session row.
func (m *Manager) IssueReconnectToken(ctx context.Context, sessionID string) (string, error) {
	if _, err := m.store.GetSession(ctx, sessionID); err != nil {
		return "", err
	}

	token, hash, expiresAt, err := issueReconnectToken(m.secret, sessionID, m.cfg.ReconnectTokenTTL)
	if err != nil {
		return "", err
	}
	if err := m.store.SetReconnectToken(ctx, sessionID, hash, expiresAt); err != nil {
		return "", err
	}
	return token, nil
}

// Reconnect validates a reconnect token against the session it claims to be
// for and, if valid, transitions the session back to active. Failure
// reasons are reported via apperrors.Kind.
func (m *Manager) Reconnect(ctx context.Context, claimedSessionID, token string) (string, error) {
	tokenSessionID, expired, err := parseReconnectToken(m.secret, token)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindInvalidToken, "reconnect token is invalid", err)
	}
	if tokenSessionID != claimedSessionID {
		return "", apperrors.New(apperrors.KindSessionIDMismatch, "reconnect token was not issued for this session")
	}

	sess, err := m.store.GetSession(ctx, claimedSessionID)
	if err != nil {
		return "", apperrors.New(apperrors.KindSessionNotFound, "session not found")
	}

	if expired {
		return "", apperrors.New(apperrors.KindTokenExpired, "reconnect token has expired")
	}
	if sess.ReconnectTokenHash == nil || hashToken(token) != *sess.ReconnectTokenHash {
		return "", apperrors.New(apperrors.KindInvalidToken, "reconnect token does not match session")
	}
	if sess.ReconnectExpiresAt != nil && time.Now().After(*sess.ReconnectExpiresAt) {
		return "", apperrors.New(apperrors.KindTokenExpired, "reconnect token has expired")
	}
	if sess.Status == mcpsession.StatusDisconnected && sess.DisconnectReason != nil {
		switch *sess.DisconnectReason {
		case mcpsession.DisconnectReasonRevoked, mcpsession.DisconnectReasonReplaced:
			return "", apperrors.New(apperrors.KindSessionAlreadyDisconnected, fmt.Sprintf("session was %s and cannot be reconnected", *sess.DisconnectReason))
		}
	}

	reconnected, err := m.store.ReconnectSession(ctx, claimedSessionID)
	if err != nil {
		return "", err
	}
	return reconnected.ID, nil
}

// Disconnect marks a session disconnected for an explicit reason (e.g. a
// client-initiated close, or a replacement session taking over).
func (m *Manager) Disconnect(ctx context.Context, sessionID string, reason mcpsession.DisconnectReason) error {
	return m.store.DisconnectSession(ctx, sessionID, reason)
}
