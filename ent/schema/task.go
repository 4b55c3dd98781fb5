package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Task holds the schema definition for the Task entity: a work item living
// in exactly one workflow stage of a Project.
type Task struct {
	ent.Schema
}

func (Task) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("task_id").
			Unique().
			Immutable(),
		field.String("project_id").
			Immutable(),
		field.String("workflow_stage_id"),
		field.String("sprint_id").
			Optional().
			Nillable(),
		field.String("title"),
		field.Text("description").
			Optional(),
		field.String("assignee_subject_id").
			Optional().
			Nillable(),
		field.Enum("priority").
			Values("low", "medium", "high", "critical").
			Default("medium"),
		field.Float("estimated_hours").
			Optional().
			Nillable(),
		field.String("feature").
			Optional(),
		field.Bool("archived").
			Default(false),
		field.Float("order").
			Comment("Fractional order within its stage"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (Task) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("project", Project.Type).
			Ref("tasks").
			Field("project_id").
			Unique().
			Required().
			Immutable(),
		edge.From("sprint", Sprint.Type).
			Ref("tasks").
			Field("sprint_id").
			Unique(),
		edge.To("history", TaskHistory.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (Task) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("project_id", "workflow_stage_id"),
		index.Fields("sprint_id"),
		index.Fields("archived"),
		index.Fields("assignee_subject_id"),
	}
}
