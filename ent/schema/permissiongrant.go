package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PermissionGrant holds the schema definition for a (subject_or_role,
// resource_type, action, scope) RBAC grant.
type PermissionGrant struct {
	ent.Schema
}

func (PermissionGrant) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("grant_id").
			Unique().
			Immutable(),
		field.String("subject_id").
			Optional().
			Nillable().
			Comment("Null when the grant targets a role rather than a specific subject"),
		field.Enum("role").
			Values("admin", "member").
			Optional().
			Nillable(),
		field.String("resource_type"),
		field.String("action"),
		field.String("scope").
			Comment("'*' or a specific project_id"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// scope is a free-form string ('*', an org id, or a project id) rather than
// a foreign key, since a grant's scope need not reference a live project.
func (PermissionGrant) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("subject", Subject.Type).
			Ref("permission_grants").
			Field("subject_id").
			Unique(),
	}
}

func (PermissionGrant) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("subject_id", "resource_type", "action", "scope"),
		index.Fields("role", "resource_type", "action", "scope"),
	}
}
