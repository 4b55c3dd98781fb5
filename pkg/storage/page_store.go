package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/page"
	"github.com/google/uuid"
)

// UpsertPageParams describes one chunked page of a source. Re-ingesting the
// same (source_id, url, chunk_number) overwrites content, content_hash,
// and metadata rather than creating a duplicate row.
type UpsertPageParams struct {
	SourceID    string
	URL         string
	ChunkNumber int
	Content     string
	ContentHash string
	Metadata    map[string]any
}

// UpsertPages bulk-inserts pages, overwriting on (source_id, url,
// chunk_number) conflict. Returns the number of rows affected.
func (s *Store) UpsertPages(ctx context.Context, pages []UpsertPageParams) (int, error) {
	if len(pages) == 0 {
		return 0, nil
	}

	builders := make([]*ent.PageCreate, 0, len(pages))
	for _, p := range pages {
		builders = append(builders, s.client.Page.Create().
			SetID(uuid.NewString()).
			SetSourceID(p.SourceID).
			SetURL(p.URL).
			SetChunkNumber(p.ChunkNumber).
			SetContent(p.Content).
			SetContentHash(p.ContentHash).
			SetMetadata(p.Metadata))
	}

	err := s.client.Page.CreateBulk(builders...).
		OnConflictColumns(page.FieldSourceID, page.FieldURL, page.FieldChunkNumber).
		Update(func(u *ent.PageUpsert) {
			u.UpdateContent()
			u.UpdateContentHash()
			u.UpdateMetadata()
			u.UpdateUpdatedAt()
		}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert pages: %w", err)
	}
	return len(pages), nil
}

// GetPagesBySource returns every page belonging to a source, ordered for
// deterministic reassembly (chunk concatenation, diffing on re-ingest).
func (s *Store) GetPagesBySource(ctx context.Context, sourceID string) ([]*ent.Page, error) {
	pages, err := s.client.Page.Query().
		Where(page.SourceIDEQ(sourceID)).
		Order(ent.Asc(page.FieldURL), ent.Asc(page.FieldChunkNumber)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

// GetPagesByIDs hydrates a set of page ids, e.g. to attach content/url to
// vector search hits (which only carry an id and a distance).
func (s *Store) GetPagesByIDs(ctx context.Context, ids []string) ([]*ent.Page, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pages, err := s.client.Page.Query().Where(page.IDIn(ids...)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("hydrate pages: %w", err)
	}
	return pages, nil
}

// TextSearchResult is one lexical-search hit.
type TextSearchResult struct {
	Page *ent.Page
	Rank float64
}

// TextSearch performs tsvector-ranked full-text search over page content,
// optionally scoped to a set of source ids (the caller resolves which
// sources a subject may read before calling in). Ranking needs a raw
// ts_rank ORDER BY that Ent's query builder can't express, so this goes
// straight to the underlying connection and hydrates ids back through Ent.
func (s *Store) TextSearch(ctx context.Context, query string, sourceIDs []string, limit int) ([]TextSearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	args := []any{query}
	stmt := `SELECT page_id, ts_rank(to_tsvector('english', content), plainto_tsquery('english', $1)) AS rank
		FROM pages
		WHERE to_tsvector('english', content) @@ plainto_tsquery('english', $1)`
	if len(sourceIDs) > 0 {
		placeholders := make([]string, len(sourceIDs))
		for i, id := range sourceIDs {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		stmt += fmt.Sprintf(" AND source_id IN (%s)", strings.Join(placeholders, ","))
	}
	args = append(args, limit)
	stmt += fmt.Sprintf(" ORDER BY rank DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	defer rows.Close()

	type hit struct {
		id   string
		rank float64
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.id, &h.rank); err != nil {
			return nil, fmt.Errorf("scan text search row: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("text search rows: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	found, err := s.client.Page.Query().Where(page.IDIn(ids...)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("hydrate text search pages: %w", err)
	}
	byID := make(map[string]*ent.Page, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	results := make([]TextSearchResult, 0, len(hits))
	for _, h := range hits {
		if p, ok := byID[h.id]; ok {
			results = append(results, TextSearchResult{Page: p, Rank: h.rank})
		}
	}
	return results, nil
}
