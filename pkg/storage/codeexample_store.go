package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/codeexample"
	"github.com/archon-core/archon/pkg/pgvector"
	"github.com/google/uuid"
)

// PutCodeExampleParams describes one extracted fenced-code span.
type PutCodeExampleParams struct {
	SourceID  string
	Language  string
	Content   string
	Summary   string
	Dimension int
	Embedding pgvector.Vector
}

// PutCodeExample inserts a code example row.
func (s *Store) PutCodeExample(ctx context.Context, p PutCodeExampleParams) (*ent.CodeExample, error) {
	create := s.client.CodeExample.Create().
		SetID(uuid.NewString()).
		SetSourceID(p.SourceID).
		SetContent(p.Content).
		SetSummary(p.Summary)

	if p.Language != "" {
		create = create.SetLanguage(p.Language)
	}
	if p.Embedding != nil {
		create = create.SetDimension(p.Dimension).SetEmbedding(p.Embedding)
	}

	ex, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("put code example: %w", err)
	}
	return ex, nil
}

// GetCodeExamplesBySource returns every code example extracted from a source.
func (s *Store) GetCodeExamplesBySource(ctx context.Context, sourceID string) ([]*ent.CodeExample, error) {
	examples, err := s.client.CodeExample.Query().
		Where(codeexample.SourceIDEQ(sourceID)).
		Order(ent.Asc(codeexample.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list code examples: %w", err)
	}
	return examples, nil
}

// VectorSearchCodeExamples finds the nearest code examples to queryVec by
// cosine distance, scoped to the supplied source ids. Code examples are
// always embedded at a single fixed dimension (1536), unlike page
// embeddings, so there is no per-dimension column to select.
func (s *Store) VectorSearchCodeExamples(ctx context.Context, queryVec pgvector.Vector, sourceIDs []string, limit int) ([]VectorSearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	queryLiteral, err := queryVec.Value()
	if err != nil {
		return nil, fmt.Errorf("vector search code examples: encode query vector: %w", err)
	}

	args := []any{queryLiteral}
	stmt := `SELECT code_example_id, embedding <=> $1 AS distance
		FROM code_examples
		WHERE embedding IS NOT NULL`

	if len(sourceIDs) > 0 {
		placeholders := make([]string, len(sourceIDs))
		for i, id := range sourceIDs {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		stmt += fmt.Sprintf(" AND source_id IN (%s)", strings.Join(placeholders, ","))
	}

	args = append(args, limit)
	stmt += fmt.Sprintf(" ORDER BY distance ASC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search code examples: %w", err)
	}
	defer rows.Close()

	var results []VectorSearchResult
	for rows.Next() {
		var r VectorSearchResult
		if err := rows.Scan(&r.EntityID, &r.Distance); err != nil {
			return nil, fmt.Errorf("scan code example search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search code examples rows: %w", err)
	}
	return results, nil
}
