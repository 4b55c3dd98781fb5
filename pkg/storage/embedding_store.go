package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/pkg/pgvector"
	"github.com/google/uuid"
)

// supportedDimensions mirrors the dimension set the Embedding schema
// carries a vector_{dim} column for. Kept in sync with ent/schema/embedding.go.
var supportedDimensions = map[int]string{
	384:  "vector_384",
	768:  "vector_768",
	1024: "vector_1024",
	1536: "vector_1536",
	3072: "vector_3072",
	3584: "vector_3584",
}

// PutEmbeddingParams describes one vector to store against a page chunk.
// Only the column matching Dimension is written; the rest of the row's
// vector columns stay null, so re-embedding a page at a different
// dimension (a provider swap) never collides with the previous vector.
type PutEmbeddingParams struct {
	PageID    string
	Model     string
	Dimension int
	Vector    pgvector.Vector
}

// PutEmbedding inserts an embedding row, writing the vector into the
// column for its dimension.
func (s *Store) PutEmbedding(ctx context.Context, p PutEmbeddingParams) (*ent.Embedding, error) {
	if _, ok := supportedDimensions[p.Dimension]; !ok {
		return nil, fmt.Errorf("put embedding: unsupported dimension %d", p.Dimension)
	}

	create := s.client.Embedding.Create().
		SetID(uuid.NewString()).
		SetPageID(p.PageID).
		SetModel(p.Model).
		SetDimension(p.Dimension)

	switch p.Dimension {
	case 384:
		create = create.SetVector384(p.Vector)
	case 768:
		create = create.SetVector768(p.Vector)
	case 1024:
		create = create.SetVector1024(p.Vector)
	case 1536:
		create = create.SetVector1536(p.Vector)
	case 3072:
		create = create.SetVector3072(p.Vector)
	case 3584:
		create = create.SetVector3584(p.Vector)
	}

	emb, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("put embedding: %w", err)
	}
	return emb, nil
}

// VectorSearchResult is one nearest-neighbor hit, carrying the distance
// so the retrieval layer can fold it into reciprocal-rank fusion. EntityID
// is a page id for VectorSearch, a code example id for
// VectorSearchCodeExamples.
type VectorSearchResult struct {
	EntityID string
	Distance float64
}

// VectorSearch finds the nearest embeddings to queryVec at the given
// dimension using cosine distance (the <=> pgvector operator), scoped to
// the supplied source ids. Dimension selects which vector_{dim} column
// to compare against, since a single row only ever populates one.
func (s *Store) VectorSearch(ctx context.Context, dimension int, queryVec pgvector.Vector, sourceIDs []string, limit int) ([]VectorSearchResult, error) {
	column, ok := supportedDimensions[dimension]
	if !ok {
		return nil, fmt.Errorf("vector search: unsupported dimension %d", dimension)
	}
	if limit <= 0 {
		limit = 20
	}

	queryLiteral, err := queryVec.Value()
	if err != nil {
		return nil, fmt.Errorf("vector search: encode query vector: %w", err)
	}

	args := []any{queryLiteral}
	stmt := fmt.Sprintf(`SELECT e.page_id, e.%s <=> $1 AS distance
		FROM embeddings e
		JOIN pages p ON p.page_id = e.page_id
		WHERE e.%s IS NOT NULL`, column, column)

	if len(sourceIDs) > 0 {
		placeholders := make([]string, len(sourceIDs))
		for i, id := range sourceIDs {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		stmt += fmt.Sprintf(" AND p.source_id IN (%s)", strings.Join(placeholders, ","))
	}

	args = append(args, limit)
	stmt += fmt.Sprintf(" ORDER BY distance ASC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []VectorSearchResult
	for rows.Next() {
		var r VectorSearchResult
		if err := rows.Scan(&r.EntityID, &r.Distance); err != nil {
			return nil, fmt.Errorf("scan vector search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search rows: %w", err)
	}
	return results, nil
}
