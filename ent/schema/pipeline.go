package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Pipeline holds the schema definition for one ingestion run: the claimed,
// phase-driven row a PipelineWorker takes from pending to a terminal status.
type Pipeline struct {
	ent.Schema
}

func (Pipeline) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("progress_id").
			Unique().
			Immutable(),
		field.String("source_id"),
		field.String("url"),
		field.Enum("knowledge_type").
			Values("technical", "business").
			Default("technical"),
		field.Strings("tags").
			Optional(),
		field.Int("max_depth").
			Default(2),
		field.Bool("extract_code_examples").
			Default(false),
		field.String("project_id").
			Optional().
			Nillable(),
		field.Bool("is_project_private").
			Default(false),
		field.Bool("send_to_kb").
			Default(false),
		field.String("requested_by").
			Optional(),
		field.Enum("phase").
			Values("pending", "discovery", "crawl", "chunk_and_store", "code_extract", "finalize", "done").
			Default("pending"),
		field.Enum("status").
			Values("pending", "in_progress", "completed", "failed", "cancelled").
			Default("pending"),
		field.Int("percent").
			Default(0),
		field.Int("pages_fetched").
			Default(0),
		field.Int("pages_failed").
			Default(0),
		field.Int("chunks_stored").
			Default(0),
		field.Int("code_examples_extracted").
			Default(0),
		field.String("pod_id").
			Optional(),
		field.String("error_message").
			Optional(),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
		field.Time("last_heartbeat_at").
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

func (Pipeline) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("source_id"),
	}
}

// Annotations: the per-run ring-buffer of log lines is process-local state
// owned by a ProgressHandle, not persisted on this row.
func (Pipeline) Annotations() []schema.Annotation {
	return []schema.Annotation{}
}
