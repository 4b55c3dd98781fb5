package schema

import (
	"strconv"
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/archon-core/archon/pkg/pgvector"
)

// supportedDimensions lists every embedding model dimension Archon can
// store. Only the vector column matching a row's configured model
// dimension is populated; the rest stay null, so multiple dimensions can
// coexist on the table without migrating when a provider changes models.
var supportedDimensions = []int{384, 768, 1024, 1536, 3072, 3584}

// Embedding holds the schema definition for the Embedding entity: a vector
// representation of one Page chunk at one dimension.
type Embedding struct {
	ent.Schema
}

func (Embedding) Fields() []ent.Field {
	fields := []ent.Field{
		field.String("id").
			StorageKey("embedding_id").
			Unique().
			Immutable(),
		field.String("page_id").
			Immutable(),
		field.String("model").
			Comment("Provider model identifier that produced this vector"),
		field.Int("dimension"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
	for _, dim := range supportedDimensions {
		fields = append(fields, field.Other(vectorColumn(dim), pgvector.Vector{}).
			SchemaType(map[string]string{
				dialect.Postgres: vectorColumnType(dim),
			}).
			Optional().
			Nillable())
	}
	return fields
}

func vectorColumn(dim int) string {
	switch dim {
	case 384:
		return "vector_384"
	case 768:
		return "vector_768"
	case 1024:
		return "vector_1024"
	case 1536:
		return "vector_1536"
	case 3072:
		return "vector_3072"
	case 3584:
		return "vector_3584"
	default:
		panic("pgvector: unsupported dimension")
	}
}

func vectorColumnType(dim int) string {
	return "vector(" + strconv.Itoa(dim) + ")"
}

func (Embedding) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("page", Page.Type).
			Ref("embeddings").
			Field("page_id").
			Unique().
			Required().
			Immutable(),
	}
}

func (Embedding) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("page_id", "dimension").
			Unique(),
		index.Fields("model"),
	}
}
