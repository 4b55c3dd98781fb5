package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MCPSession holds the schema definition for an MCP client connection as
// tracked by the core (distinct from any transport-layer session).
type MCPSession struct {
	ent.Schema
}

func (MCPSession) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("mcp_session_id").
			Unique().
			Immutable(),
		field.String("client_type").
			Comment("Derived from declared client_info, e.g. 'claude-code', 'cursor', 'unknown-client'"),
		field.String("client_version").
			Optional(),
		field.Time("connected_at").
			Default(time.Now).
			Immutable(),
		field.Time("last_activity_at").
			Default(time.Now),
		field.Enum("status").
			Values("active", "disconnected").
			Default("active"),
		field.Enum("disconnect_reason").
			Values("idle_timeout", "revoked", "replaced", "client_closed").
			Optional().
			Nillable(),
		field.Time("disconnected_at").
			Optional().
			Nillable(),
		field.String("reconnect_token_hash").
			Optional().
			Nillable(),
		field.Time("reconnect_expires_at").
			Optional().
			Nillable(),
		field.Int("reconnect_count").
			Default(0),
		field.String("subject_id").
			Optional().
			Nillable(),
		field.String("user_email").
			Optional().
			Nillable(),
		field.String("user_display_name").
			Optional().
			Nillable(),
	}
}

func (MCPSession) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("requests", MCPRequest.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (MCPSession) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status", "last_activity_at"),
		index.Fields("subject_id"),
	}
}
