package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Page holds the schema definition for the Page entity: one stored chunk of
// an ingested document or web page within a Source.
type Page struct {
	ent.Schema
}

func (Page) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("page_id").
			Unique().
			Immutable(),
		field.String("source_id").
			Immutable(),
		field.String("url").
			Comment("Canonical URL or file path of the parent document"),
		field.Int("chunk_number").
			Comment("0-based position among chunks of the same url"),
		field.Text("content"),
		field.String("content_hash").
			Comment("sha256 of normalized content"),
		field.JSON("metadata", map[string]interface{}{}).
			Optional().
			Comment("section path, title, token_count, ..."),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (Page) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("source", Source.Type).
			Ref("pages").
			Field("source_id").
			Unique().
			Required().
			Immutable(),
		edge.To("embeddings", Embedding.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (Page) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("source_id", "url", "chunk_number").
			Unique(),
		index.Fields("content_hash"),
	}
}
