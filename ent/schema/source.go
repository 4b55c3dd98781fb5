package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Source holds the schema definition for the Source entity: an ingestible
// origin (URL, sitemap, or uploaded file) that owns pages and code examples.
type Source struct {
	ent.Schema
}

func (Source) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("source_id").
			Unique().
			Immutable(),
		field.String("display_name"),
		field.String("origin").
			Comment("Origin URL or file reference"),
		field.Enum("knowledge_type").
			Values("technical", "business").
			Default("technical"),
		field.Strings("tags").
			Optional().
			Comment("Deduplicated at write time"),
		field.Bool("extract_code_examples").
			Default(false),
		field.String("project_id").
			Optional().
			Nillable(),
		field.Bool("is_project_private").
			Default(false),
		field.Time("promoted_at").
			Optional().
			Nillable(),
		field.String("promoted_by").
			Optional().
			Nillable(),
		field.Int("pages_fetched").
			Default(0),
		field.Int("chunks_stored").
			Default(0),
		field.Int("code_examples_count").
			Default(0),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (Source) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("pages", Page.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("code_examples", CodeExample.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.From("project", Project.Type).
			Ref("sources").
			Field("project_id").
			Unique(),
	}
}

func (Source) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("project_id"),
		index.Fields("is_project_private"),
		index.Fields("knowledge_type"),
	}
}

// Annotations: invariants enforced in pkg/storage, not the schema layer:
// project_id == nil implies is_project_private == false; promoted_at != nil
// implies is_project_private == false.
func (Source) Annotations() []schema.Annotation {
	return []schema.Annotation{}
}
