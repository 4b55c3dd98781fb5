package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TaskHistory holds the schema definition for a single recorded stage
// transition of a Task, used to compute burndown series and to replay a
// workflow re-mapping.
type TaskHistory struct {
	ent.Schema
}

func (TaskHistory) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("task_history_id").
			Unique().
			Immutable(),
		field.String("task_id").
			Immutable(),
		field.String("old_stage_id"),
		field.String("new_stage_id"),
		field.String("changed_by").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (TaskHistory) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("task", Task.Type).
			Ref("history").
			Field("task_id").
			Unique().
			Required().
			Immutable(),
	}
}

func (TaskHistory) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("task_id", "created_at"),
	}
}
