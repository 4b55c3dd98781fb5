package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateSearchIndexes creates the search indexes ent's schema DSL can't
// express directly: a GIN trigram index for lexical page search, and an
// IVF-Flat index per populated embedding dimension for vector search.
// Run once after migrations apply; all statements are idempotent.
func CreateSearchIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_pages_content_trgm
		ON pages USING gin (content gin_trgm_ops)`); err != nil {
		return fmt.Errorf("failed to create pages content trigram index: %w", err)
	}

	for _, dim := range []int{384, 768, 1024, 1536, 3072, 3584} {
		col := fmt.Sprintf("vector_%d", dim)
		idx := fmt.Sprintf("idx_embeddings_%s_ivfflat", col)
		stmt := fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON embeddings USING ivfflat (%s vector_cosine_ops) WITH (lists = 100)`,
			idx, col,
		)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create ivfflat index on %s: %w", col, err)
		}
	}

	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_code_examples_embedding_ivfflat
		ON code_examples USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`); err != nil {
		return fmt.Errorf("failed to create code_examples ivfflat index: %w", err)
	}

	return nil
}
