package rbac

import (
	"log/slog"
	"sync"

	"github.com/archon-core/archon/pkg/config"
)

// Engine holds the current grant table in memory and answers authorization
// checks against it. Safe for concurrent use.
type Engine struct {
	mu                 sync.RWMutex
	bySubject          map[string][]Grant
	byRole             map[string][]Grant
	permissiveFallback bool
}

// New builds an Engine from configuration. LoadGrants must be called once
// (with persisted grants plus any configured seed grants) before Authorize
// reflects anything beyond the admin short-circuit and service-role bypass.
func New(cfg *config.RBACConfig) *Engine {
	e := &Engine{
		bySubject:          make(map[string][]Grant),
		byRole:             make(map[string][]Grant),
		permissiveFallback: cfg.PermissiveFallback,
	}
	if e.permissiveFallback {
		slog.Warn("RBAC engine started in permissive-authenticated fallback mode: every authenticated subject is allowed every action with no matching grant")
	}
	return e
}

// LoadGrants replaces the in-memory grant table. Called once at startup
// after reading persisted grants and merging in configured seed grants; the
// two sources don't need to be distinguished once loaded, since both are
// plain Grant values.
func (e *Engine) LoadGrants(grants []Grant) {
	bySubject := make(map[string][]Grant)
	byRole := make(map[string][]Grant)
	for _, g := range grants {
		switch {
		case g.SubjectID != "":
			bySubject[g.SubjectID] = append(bySubject[g.SubjectID], g)
		case g.Role != "":
			byRole[g.Role] = append(byRole[g.Role], g)
		}
	}

	e.mu.Lock()
	e.bySubject = bySubject
	e.byRole = byRole
	e.mu.Unlock()
}

// Authorize reports whether subj may perform action on resourceType within
// scope. Admin role and service-role principals always pass. Otherwise the
// engine checks grants addressed directly to the subject, then grants
// addressed to any role the subject holds; a grant's scope "*" matches any
// requested scope. Absent a matching grant, the result is deny unless the
// engine is running in permissive fallback mode.
func (e *Engine) Authorize(subj Subject, resourceType, action, scope string) bool {
	if subj.IsServiceRole {
		return true
	}
	if subj.Role == "admin" {
		return true
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, g := range e.bySubject[subj.ID] {
		if g.matches(resourceType, action, scope) {
			return true
		}
	}
	for _, g := range e.byRole[subj.Role] {
		if g.matches(resourceType, action, scope) {
			return true
		}
	}

	return e.permissiveFallback
}
