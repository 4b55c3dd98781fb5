package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/archon-core/archon/pkg/pgvector"
)

// CodeExample holds the schema definition for a fenced-code span extracted
// from a Page, stored with a short LLM-generated summary.
type CodeExample struct {
	ent.Schema
}

func (CodeExample) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("code_example_id").
			Unique().
			Immutable(),
		field.String("source_id").
			Immutable(),
		field.String("language").
			Optional().
			Nillable(),
		field.Text("content"),
		field.Text("summary"),
		field.Int("dimension").
			Optional(),
		field.Other("embedding", pgvector.Vector{}).
			SchemaType(map[string]string{dialect.Postgres: "vector(1536)"}).
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (CodeExample) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("source", Source.Type).
			Ref("code_examples").
			Field("source_id").
			Unique().
			Required().
			Immutable(),
	}
}

func (CodeExample) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("source_id"),
		index.Fields("language"),
	}
}
