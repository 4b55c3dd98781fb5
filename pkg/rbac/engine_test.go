package rbac

import (
	"testing"

	"github.com/archon-core/archon/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestEngine_AdminShortCircuits(t *testing.T) {
	e := New(config.DefaultRBACConfig())
	admin := Subject{ID: "u1", Role: "admin"}
	assert.True(t, e.Authorize(admin, "sprint", "sprint:manage", "proj-1"))
}

func TestEngine_ServiceRoleBypassesChecks(t *testing.T) {
	e := New(config.DefaultRBACConfig())
	svc := Subject{ID: "backend", IsServiceRole: true}
	assert.True(t, e.Authorize(svc, "task", "task:assign", "proj-1"))
}

func TestEngine_SubjectGrantMatchesExactScope(t *testing.T) {
	e := New(config.DefaultRBACConfig())
	e.LoadGrants([]Grant{
		{SubjectID: "u1", ResourceType: "document", Action: "document:manage", Scope: "proj-1"},
	})
	member := Subject{ID: "u1", Role: "member"}

	assert.True(t, e.Authorize(member, "document", "document:manage", "proj-1"))
	assert.False(t, e.Authorize(member, "document", "document:manage", "proj-2"))
	assert.False(t, e.Authorize(member, "document", "reports:read", "proj-1"))
}

func TestEngine_RoleGrantAppliesToEveryHolder(t *testing.T) {
	e := New(config.DefaultRBACConfig())
	e.LoadGrants([]Grant{
		{Role: "member", ResourceType: "knowledge", Action: "knowledge:read", Scope: AnyScope},
	})

	assert.True(t, e.Authorize(Subject{ID: "u1", Role: "member"}, "knowledge", "knowledge:read", "proj-1"))
	assert.True(t, e.Authorize(Subject{ID: "u2", Role: "member"}, "knowledge", "knowledge:read", "anything"))
}

func TestEngine_WildcardScopeGrant(t *testing.T) {
	e := New(config.DefaultRBACConfig())
	e.LoadGrants([]Grant{
		{SubjectID: "u1", ResourceType: "reports", Action: "reports:read", Scope: AnyScope},
	})
	member := Subject{ID: "u1", Role: "member"}

	assert.True(t, e.Authorize(member, "reports", "reports:read", "proj-1"))
	assert.True(t, e.Authorize(member, "reports", "reports:read", "proj-999"))
}

func TestEngine_NoMatchingGrantDeniesByDefault(t *testing.T) {
	e := New(config.DefaultRBACConfig())
	member := Subject{ID: "u1", Role: "member"}
	assert.False(t, e.Authorize(member, "team", "team:manage", "proj-1"))
}

func TestEngine_PermissiveFallbackAllowsUnmatchedActions(t *testing.T) {
	cfg := config.DefaultRBACConfig()
	cfg.PermissiveFallback = true
	e := New(cfg)

	member := Subject{ID: "u1", Role: "member"}
	assert.True(t, e.Authorize(member, "team", "team:manage", "proj-1"))
}

func TestFromSeedGrants_ConvertsConfigShape(t *testing.T) {
	seeds := []config.SeedGrant{
		{Role: "member", ResourceType: "knowledge", Action: "knowledge:read", Scope: "*"},
		{SubjectID: "u1", ResourceType: "task", Action: "task:assign", Scope: "proj-1"},
	}
	grants := FromSeedGrants(seeds)
	if assertLen := len(grants); assertLen != 2 {
		t.Fatalf("expected 2 grants, got %d", assertLen)
	}
	assert.Equal(t, "member", grants[0].Role)
	assert.Equal(t, "u1", grants[1].SubjectID)
}
