// Package documents is a thin, project-scoped wrapper over sources: it
// creates the Source row and hands crawl requests to the ingestion
// orchestrator's pipeline queue, runs small uploads synchronously, and
// applies the promotion/privacy invariants that govern a source
// independent of how it arrived.
package documents

import (
	"context"
	"fmt"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/pipeline"
	"github.com/archon-core/archon/ent/source"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/archon-core/archon/pkg/chunker"
	"github.com/archon-core/archon/pkg/config"
	"github.com/archon-core/archon/pkg/embedcache"
	"github.com/archon-core/archon/pkg/pgvector"
	"github.com/archon-core/archon/pkg/provider"
	"github.com/archon-core/archon/pkg/storage"
)

// Service wraps the storage adapter with project-scoped document
// operations.
type Service struct {
	store    *storage.Store
	cache    *embedcache.Cache
	gateways *provider.Resolver
	cfg      *config.IngestionConfig
	embed    *config.ProviderConfig
}

// New creates a Service.
func New(store *storage.Store, cache *embedcache.Cache, gateways *provider.Resolver, cfg *config.IngestionConfig, embedProvider *config.ProviderConfig) *Service {
	return &Service{store: store, cache: cache, gateways: gateways, cfg: cfg, embed: embedProvider}
}

// Metadata carries the shared knobs a crawl or upload request supplies.
type Metadata struct {
	DisplayName         string
	KnowledgeType       source.KnowledgeType
	Tags                []string
	ExtractCodeExamples bool
}

// Crawl creates the source row and a queued pipeline for the ingestion
// worker pool to pick up, returning its progress_id.
func (s *Service) Crawl(ctx context.Context, projectID *string, url string, meta Metadata, isProjectPrivate, sendToKB bool, requestedBy string) (progressID string, err error) {
	if projectID == nil {
		isProjectPrivate = false
	}

	src, err := s.store.CreateSource(ctx, storage.CreateSourceParams{
		DisplayName:         meta.DisplayName,
		Origin:              url,
		KnowledgeType:       meta.KnowledgeType,
		Tags:                meta.Tags,
		ExtractCodeExamples: meta.ExtractCodeExamples,
		ProjectID:           projectID,
		IsProjectPrivate:    isProjectPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("create source: %w", err)
	}

	pl, err := s.store.CreatePipeline(ctx, storage.CreatePipelineParams{
		SourceID:            src.ID,
		URL:                 url,
		KnowledgeType:       pipeline.KnowledgeType(meta.KnowledgeType),
		Tags:                meta.Tags,
		MaxDepth:            s.cfg.DefaultMaxDepth,
		ExtractCodeExamples: meta.ExtractCodeExamples,
		ProjectID:           projectID,
		IsProjectPrivate:    isProjectPrivate,
		SendToKB:            sendToKB,
		RequestedBy:         requestedBy,
	})
	if err != nil {
		return "", fmt.Errorf("queue pipeline: %w", err)
	}
	return pl.ID, nil
}

// UploadResult summarizes a synchronously completed upload.
type UploadResult struct {
	SourceID     string
	ChunksStored int
}

// Upload reads file content already held in memory, chunks it with the
// upload chunk size, embeds and stores every chunk, and applies the
// finalize-phase privacy/promotion rules — all synchronously, since an
// upload has no crawl phase to run in the background.
func (s *Service) Upload(ctx context.Context, projectID *string, origin, content string, meta Metadata, isProjectPrivate, sendToKB bool) (*UploadResult, error) {
	if projectID == nil {
		isProjectPrivate = false
	}

	src, err := s.store.CreateSource(ctx, storage.CreateSourceParams{
		DisplayName:         meta.DisplayName,
		Origin:              origin,
		KnowledgeType:       meta.KnowledgeType,
		Tags:                meta.Tags,
		ExtractCodeExamples: meta.ExtractCodeExamples,
		ProjectID:           projectID,
		IsProjectPrivate:    isProjectPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}

	normalized := chunker.Normalize(content)
	chunks := chunker.Split(normalized, chunker.Options{
		MaxChunkSize: s.cfg.UploadChunkSize,
		Overlap:      s.cfg.ChunkOverlap,
	})

	gw, providerCfg, err := s.gateways.Gateway(s.embed.Name)
	if err != nil {
		return nil, fmt.Errorf("resolve embedding gateway: %w", err)
	}

	pages := make([]storage.UpsertPageParams, len(chunks))
	for i, c := range chunks {
		pages[i] = storage.UpsertPageParams{
			SourceID:    src.ID,
			URL:         origin,
			ChunkNumber: c.Number,
			Content:     c.Content,
			ContentHash: c.ContentHash,
		}
	}
	if _, err := s.store.UpsertPages(ctx, pages); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	storedPages, err := s.store.GetPagesBySource(ctx, src.ID)
	if err != nil {
		return nil, fmt.Errorf("reload stored pages: %w", err)
	}
	byChunkNumber := make(map[int]string, len(storedPages))
	for _, p := range storedPages {
		if p.URL == origin {
			byChunkNumber[p.ChunkNumber] = p.ID
		}
	}

	for _, c := range chunks {
		pageID, ok := byChunkNumber[c.Number]
		if !ok {
			continue
		}
		vec, cached := s.cache.Get(ctx, providerCfg.Model, c.Content)
		if !cached {
			vec, err = gw.EmbedOne(ctx, providerCfg.Model, c.Content)
			if err != nil {
				return nil, fmt.Errorf("embed chunk %d: %w", c.Number, err)
			}
			s.cache.Put(ctx, providerCfg.Model, c.Content, vec)
		}
		if _, err := s.store.PutEmbedding(ctx, storage.PutEmbeddingParams{
			PageID:    pageID,
			Model:     providerCfg.Model,
			Dimension: providerCfg.Dimension,
			Vector:    pgvector.Vector(vec),
		}); err != nil {
			return nil, fmt.Errorf("store embedding for chunk %d: %w", c.Number, err)
		}
	}

	if err := s.store.IncrementCounts(ctx, src.ID, 1, len(chunks), 0); err != nil {
		return nil, fmt.Errorf("update source counters: %w", err)
	}
	if sendToKB {
		if _, err := s.store.PromoteSource(ctx, src.ID, "system"); err != nil && !apperrors.Is(err, apperrors.KindAlreadyGlobal) {
			return nil, fmt.Errorf("promote source: %w", err)
		}
	}

	return &UploadResult{SourceID: src.ID, ChunksStored: len(chunks)}, nil
}

// ListParams filters and paginates a project's documents.
type ListParams struct {
	ProjectID      *string
	IncludePrivate bool
	Limit          int
	Offset         int
}

// List returns a page of sources visible to the caller, privacy filter
// applied before pagination.
func (s *Service) List(ctx context.Context, p ListParams) ([]*ent.Source, error) {
	all, err := s.store.ListSources(ctx, storage.ListSourcesParams{
		ProjectID:      p.ProjectID,
		IncludePrivate: p.IncludePrivate,
	})
	if err != nil {
		return nil, err
	}

	start := p.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + p.Limit
	if p.Limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

// Promote sets a project-private source global, rejecting a source that is
// already global with apperrors.KindAlreadyGlobal.
func (s *Service) Promote(ctx context.Context, sourceID, promotedBy string) error {
	_, err := s.store.PromoteSource(ctx, sourceID, promotedBy)
	return err
}

// Delete removes a source after verifying it belongs to the given project.
func (s *Service) Delete(ctx context.Context, projectID, sourceID string) error {
	src, err := s.store.GetSource(ctx, sourceID)
	if err != nil {
		return err
	}
	if src.ProjectID == nil || *src.ProjectID != projectID {
		return apperrors.New(apperrors.KindForbidden, "source does not belong to this project")
	}
	return s.store.DeleteSource(ctx, sourceID)
}
