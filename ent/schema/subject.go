package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Subject holds the schema definition for an authenticated principal: a
// user, a service-role, or (represented without a row) anonymous.
type Subject struct {
	ent.Schema
}

func (Subject) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("subject_id").
			Unique().
			Immutable(),
		field.String("email").
			Optional().
			Nillable(),
		field.String("password_hash").
			Optional().
			Nillable().
			Sensitive(),
		field.Enum("role").
			Values("admin", "member").
			Default("member"),
		field.Bool("is_service_role").
			Default(false),
		field.Bool("active").
			Default(true),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (Subject) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("permission_grants", PermissionGrant.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (Subject) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("email").
			Unique().
			Annotations(entsql.IndexWhere("email IS NOT NULL")),
	}
}
