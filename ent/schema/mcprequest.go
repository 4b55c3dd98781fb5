package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MCPRequest holds the schema definition for a single tracked tool
// invocation within an MCPSession.
type MCPRequest struct {
	ent.Schema
}

func (MCPRequest) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("request_id").
			Unique().
			Immutable(),
		field.String("session_id").
			Immutable(),
		field.String("method"),
		field.String("tool_name").
			Optional().
			Nillable(),
		field.Enum("status").
			Values("success", "error", "timeout"),
		field.Int("duration_ms"),
		field.Int("prompt_tokens").
			Default(0),
		field.Int("completion_tokens").
			Default(0),
		field.Int("total_tokens").
			Default(0),
		field.Float("estimated_cost").
			Default(0),
		field.String("error_message").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (MCPRequest) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("session", MCPSession.Type).
			Ref("requests").
			Field("session_id").
			Unique().
			Required().
			Immutable(),
	}
}

func (MCPRequest) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id", "created_at"),
		index.Fields("status"),
	}
}
