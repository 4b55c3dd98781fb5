package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Project holds the schema definition for the Project entity: a unit of work
// organization, arranged in a tree via parent_id.
type Project struct {
	ent.Schema
}

func (Project) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("project_id").
			Unique().
			Immutable(),
		field.String("title"),
		field.Text("description").
			Optional(),
		field.String("parent_id").
			Optional().
			Nillable(),
		field.String("workflow_id"),
		field.Enum("type").
			Values("software", "marketing", "research", "bug-tracking", "custom").
			Default("software"),
		field.String("owner_subject_id"),
		field.Bool("archived").
			Default(false),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (Project) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("children", Project.Type),
		edge.From("parent", Project.Type).
			Ref("children").
			Field("parent_id").
			Unique(),
		edge.From("workflow", Workflow.Type).
			Ref("projects").
			Field("workflow_id").
			Unique().
			Required(),
		edge.To("tasks", Task.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("sprints", Sprint.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("sources", Source.Type),
	}
}

func (Project) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("parent_id"),
		index.Fields("owner_subject_id"),
		index.Fields("archived"),
	}
}
