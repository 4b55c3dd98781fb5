package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Sprint holds the schema definition for the Sprint entity: a time-boxed
// task grouping with a planned→active→completed|cancelled lifecycle.
type Sprint struct {
	ent.Schema
}

func (Sprint) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("sprint_id").
			Unique().
			Immutable(),
		field.String("project_id").
			Immutable(),
		field.String("name"),
		field.Text("goal").
			Optional(),
		field.Time("start_date"),
		field.Time("end_date"),
		field.Enum("status").
			Values("planned", "active", "completed", "cancelled").
			Default("planned"),
		field.Float("velocity").
			Optional().
			Nillable().
			Comment("Frozen at completion time"),
		field.JSON("task_snapshot", []string{}).
			Optional().
			Comment("Task ids captured at start(); authoritative for reports after completion"),
		field.Time("completed_at").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (Sprint) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("project", Project.Type).
			Ref("sprints").
			Field("project_id").
			Unique().
			Required().
			Immutable(),
		edge.To("tasks", Task.Type),
	}
}

func (Sprint) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("project_id", "status"),
	}
}
