package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// KnowledgeLink holds the schema definition for a polymorphic association
// between an entity in {project, task, sprint} and a knowledge item in
// {page, code_example, source}. Modeled as a single table with two
// discriminator columns rather than a join table per direction pair,
// since Postgres supports the partial indexes needed to keep each
// direction efficient.
type KnowledgeLink struct {
	ent.Schema
}

func (KnowledgeLink) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("knowledge_link_id").
			Unique().
			Immutable(),
		field.Enum("entity_type").
			Values("project", "task", "sprint"),
		field.String("entity_id"),
		field.Enum("knowledge_type").
			Values("page", "code_example", "source"),
		field.String("knowledge_id"),
		field.Float("relevance_score").
			Optional().
			Nillable().
			Comment("Set only when the link was created by suggestion"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (KnowledgeLink) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("entity_type", "entity_id"),
		index.Fields("knowledge_type", "knowledge_id"),
	}
}
