package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// WorkflowStageDef is one stage of a Workflow. Stages have no independent
// lifecycle outside their owning workflow, so they are stored as an ordered
// JSON list rather than a joined table — Task references a stage only by
// its id (workflow_stage_id), never by a foreign key into a stage table.
type WorkflowStageDef struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Color              string   `json:"color"`
	DefaultAssignee    string   `json:"default_assignee,omitempty"`
	AllowedTransitions []string `json:"allowed_transitions"`
}

// Workflow holds the schema definition for the Workflow entity: an ordered
// set of stages applied to a project's tasks.
type Workflow struct {
	ent.Schema
}

func (Workflow) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("workflow_id").
			Unique().
			Immutable(),
		field.String("name"),
		field.JSON("stages", []WorkflowStageDef{}).
			Comment("Ordered list of stage definitions"),
		field.String("initial_stage"),
		field.Strings("terminal_stages"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (Workflow) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("projects", Project.Type).
			Annotations(entsql.OnDelete(entsql.Restrict)),
	}
}
