package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Invitation holds the schema definition for an organization-scoped
// invitation: (org_id, email, role, token_hash, status, expires_at).
type Invitation struct {
	ent.Schema
}

func (Invitation) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("invitation_id").
			Unique().
			Immutable(),
		field.String("org_id").
			Immutable(),
		field.String("email").
			Immutable(),
		field.Enum("role").
			Values("admin", "member"),
		field.String("token_hash"),
		field.Enum("status").
			Values("pending", "accepted", "expired", "revoked").
			Default("pending"),
		field.Time("expires_at"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (Invitation) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("org_id", "email").
			Unique().
			Annotations(entsql.IndexWhere("status = 'pending'")),
	}
}
