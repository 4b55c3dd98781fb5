package rbac

import (
	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/pkg/config"
)

// FromEntGrants converts persisted PermissionGrant rows into the Engine's
// plain Grant shape.
func FromEntGrants(rows []*ent.PermissionGrant) []Grant {
	grants := make([]Grant, 0, len(rows))
	for _, r := range rows {
		g := Grant{ResourceType: r.ResourceType, Action: r.Action, Scope: r.Scope}
		if r.SubjectID != nil {
			g.SubjectID = *r.SubjectID
		}
		if r.Role != nil {
			g.Role = string(*r.Role)
		}
		grants = append(grants, g)
	}
	return grants
}

// FromSeedGrants converts the configured startup seed grants into the
// Engine's plain Grant shape.
func FromSeedGrants(seeds []config.SeedGrant) []Grant {
	grants := make([]Grant, 0, len(seeds))
	for _, s := range seeds {
		grants = append(grants, Grant{
			SubjectID:    s.SubjectID,
			Role:         s.Role,
			ResourceType: s.ResourceType,
			Action:       s.Action,
			Scope:        s.Scope,
		})
	}
	return grants
}
