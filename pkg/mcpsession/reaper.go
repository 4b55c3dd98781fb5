package mcpsession

import (
	"context"
	"log/slog"
	"time"

	"github.com/archon-core/archon/ent/mcpsession"
)

// RunReaper periodically scans for active sessions that have gone idle
// longer than the configured idle timeout and marks them disconnected.
// One ticker-driven scan per interval; a failed pass is logged and the
// next tick tries again.
// Blocks until ctx is cancelled; run it in its own goroutine.
func (m *Manager) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.reapIdleSessions(ctx); err != nil {
				slog.Error("session reaper pass failed", "error", err)
			}
		}
	}
}

func (m *Manager) reapIdleSessions(ctx context.Context) error {
	threshold := time.Now().Add(-m.cfg.IdleTimeout)

	idle, err := m.store.ListIdleSessions(ctx, threshold)
	if err != nil {
		return err
	}
	if len(idle) == 0 {
		return nil
	}

	for _, sess := range idle {
		if err := m.store.DisconnectSession(ctx, sess.ID, mcpsession.DisconnectReasonIdleTimeout); err != nil {
			slog.Error("failed to disconnect idle session", "session_id", sess.ID, "error", err)
			continue
		}
		slog.Info("session disconnected for idle timeout", "session_id", sess.ID, "idle_since", sess.LastActivityAt)
	}
	return nil
}
