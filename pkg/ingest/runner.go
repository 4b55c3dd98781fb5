package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/pipeline"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/archon-core/archon/pkg/chunker"
	"github.com/archon-core/archon/pkg/config"
	"github.com/archon-core/archon/pkg/crawler"
	"github.com/archon-core/archon/pkg/embedcache"
	"github.com/archon-core/archon/pkg/pgvector"
	"github.com/archon-core/archon/pkg/provider"
	"github.com/archon-core/archon/pkg/storage"
)

// Runner drives one Pipeline row through its five phases. It is shared
// read-only state across every PipelineWorker; the mutable per-run state
// lives in the ProgressHandle each Execute call creates.
type Runner struct {
	store    *storage.Store
	crawler  *crawler.Crawler
	cache    *embedcache.Cache
	gateways *provider.Resolver
	progress *ProgressStore
	cfg      *config.IngestionConfig
	chat     *config.ProviderConfig
	embed    *config.ProviderConfig

	embedSem chan struct{}
}

// NewRunner builds a Runner. chatProvider/embeddingProvider are the
// resolved default provider descriptors (config.Config.GetChatProvider /
// GetEmbeddingProvider).
func NewRunner(
	store *storage.Store,
	crawl *crawler.Crawler,
	cache *embedcache.Cache,
	gateways *provider.Resolver,
	progress *ProgressStore,
	cfg *config.IngestionConfig,
	chatProvider, embeddingProvider *config.ProviderConfig,
) *Runner {
	return &Runner{
		store:    store,
		crawler:  crawl,
		cache:    cache,
		gateways: gateways,
		progress: progress,
		cfg:      cfg,
		chat:     chatProvider,
		embed:    embeddingProvider,
		embedSem: make(chan struct{}, cfg.EmbeddingBatchConcurrency),
	}
}

type fetchedPage struct {
	url      string
	markdown string
}

// Execute runs pl through discovery, crawl, chunk-and-store, code-extract,
// and finalize, writing progress to a ProgressHandle and the Pipeline row
// as it goes. Errors inside a phase are recorded on the pipeline and
// terminate the run; per-URL/per-page failures inside crawl do not.
func (r *Runner) Execute(ctx context.Context, pl *ent.Pipeline) {
	handle := r.progress.Create(pl.ID)
	log := slog.With("progress_id", pl.ID, "source_id", pl.SourceID)

	status, errMessage := r.run(ctx, pl, handle, log)
	handle.Finish(string(status))

	if err := r.store.CompletePipeline(context.Background(), pl.ID, status, errMessage); err != nil {
		log.Error("failed to write terminal pipeline status", "error", err)
	}
}

func (r *Runner) run(ctx context.Context, pl *ent.Pipeline, handle *ProgressHandle, log *slog.Logger) (pipeline.Status, string) {
	if ctx.Err() != nil {
		return pipeline.StatusCancelled, "cancelled before pipeline started"
	}

	// Phase 1: discovery (non-fatal on failure; falls back to recursive).
	handle.SetPhase(PhaseDiscovery)
	r.updatePhase(ctx, pl.ID, pipeline.PhaseDiscovery, handle)
	strategy, err := r.crawler.Discover(ctx, pl.URL)
	if err != nil {
		handle.Log(fmt.Sprintf("discovery failed, falling back to recursive crawl: %v", err))
		strategy = crawler.StrategyRecursive
	}

	// Phase 2: crawl.
	handle.SetPhase(PhaseCrawl)
	r.updatePhase(ctx, pl.ID, pipeline.PhaseCrawl, handle)
	pages, fetched, failed := r.crawl(ctx, pl, strategy, handle)
	r.updateCounters(ctx, pl.ID, &fetched, &failed, nil, nil)

	if ctx.Err() != nil {
		return pipeline.StatusCancelled, "cancelled during crawl"
	}
	if fetched == 0 {
		return pipeline.StatusFailed, "empty result: no pages were successfully fetched"
	}

	// Phase 3: chunk and store.
	handle.SetPhase(PhaseChunkAndStore)
	r.updatePhase(ctx, pl.ID, pipeline.PhaseChunkAndStore, handle)
	stored, err := r.chunkAndStore(ctx, pl, pages, handle)
	r.updateCounters(ctx, pl.ID, nil, nil, &stored, nil)
	if err != nil {
		if ctx.Err() != nil {
			return pipeline.StatusCancelled, "cancelled during chunk-and-store"
		}
		return pipeline.StatusFailed, err.Error()
	}

	// Phase 4: code extraction, only if requested and at least one chunk
	// was stored.
	codeExamples := 0
	if pl.ExtractCodeExamples && stored > 0 {
		handle.SetPhase(PhaseCodeExtract)
		r.updatePhase(ctx, pl.ID, pipeline.PhaseCodeExtract, handle)
		codeExamples, err = r.extractCode(ctx, pl, pages, handle)
		r.updateCounters(ctx, pl.ID, nil, nil, nil, &codeExamples)
		if err != nil {
			if ctx.Err() != nil {
				return pipeline.StatusCancelled, "cancelled during code extraction"
			}
			handle.Log(fmt.Sprintf("code extraction incomplete: %v", err))
		}
	}

	// Phase 5: finalize.
	handle.SetPhase(PhaseFinalize)
	r.updatePhase(ctx, pl.ID, pipeline.PhaseFinalize, handle)
	if err := r.store.IncrementCounts(ctx, pl.SourceID, fetched, stored, codeExamples); err != nil {
		log.Error("failed to update source counters", "error", err)
	}
	if pl.SendToKB {
		promotedBy := pl.RequestedBy
		if promotedBy == "" {
			promotedBy = "system"
		}
		if _, err := r.store.PromoteSource(ctx, pl.SourceID, promotedBy); err != nil && !apperrors.Is(err, apperrors.KindAlreadyGlobal) {
			log.Error("failed to promote source to knowledge base", "error", err)
		}
	}

	handle.SetPhase(PhaseDone)
	return pipeline.StatusCompleted, ""
}

func (r *Runner) updatePhase(ctx context.Context, progressID string, phase pipeline.Phase, handle *ProgressHandle) {
	snap := handle.Snapshot()
	if err := r.store.UpdatePipelineProgress(ctx, progressID, storage.PipelineProgressUpdate{
		Phase:   &phase,
		Percent: &snap.Percent,
	}); err != nil {
		slog.Warn("failed to persist pipeline phase", "progress_id", progressID, "error", err)
	}
}

func (r *Runner) updateCounters(ctx context.Context, progressID string, pagesFetched, pagesFailed, chunksStored, codeExamples *int) {
	if err := r.store.UpdatePipelineProgress(ctx, progressID, storage.PipelineProgressUpdate{
		PagesFetched:          pagesFetched,
		PagesFailed:           pagesFailed,
		ChunksStored:          chunksStored,
		CodeExamplesExtracted: codeExamples,
	}); err != nil {
		slog.Warn("failed to persist pipeline counters", "progress_id", progressID, "error", err)
	}
}

// crawl resolves strategy into a set of fetched pages, logging per-URL
// failures to the progress handle without aborting the run.
func (r *Runner) crawl(ctx context.Context, pl *ent.Pipeline, strategy crawler.Strategy, handle *ProgressHandle) ([]fetchedPage, int, int) {
	var pages []fetchedPage
	fetched, failed := 0, 0

	switch strategy {
	case crawler.StrategySitemap:
		urls, err := r.crawler.FetchSitemap(ctx, pl.URL)
		if err != nil {
			handle.Log(fmt.Sprintf("sitemap fetch failed: %v", err))
			return pages, fetched, failed
		}
		for _, u := range urls {
			if ctx.Err() != nil {
				return pages, fetched, failed
			}
			page, err := r.crawler.FetchPage(ctx, u)
			if err != nil {
				failed++
				handle.Log(fmt.Sprintf("fetch failed for %s: %v", u, err))
				continue
			}
			fetched++
			handle.IncCounter("pages_fetched", 1)
			pages = append(pages, fetchedPage{url: page.URL, markdown: page.Markdown})
		}

	case crawler.StrategyLLMsTxt:
		text, err := r.crawler.FetchLLMsTxt(ctx, pl.URL)
		if err != nil {
			handle.Log(fmt.Sprintf("llms.txt fetch failed: %v", err))
			return pages, fetched, failed
		}
		for _, section := range chunker.SplitLLMsTxt(text) {
			fetched++
			handle.IncCounter("pages_fetched", 1)
			pages = append(pages, fetchedPage{
				url:      pl.URL + "#" + section.Title,
				markdown: section.Content,
			})
		}

	default: // StrategyRecursive
		results := r.crawler.Crawl(ctx, pl.URL, crawler.SpiderConfig{
			MaxDepth:      pl.MaxDepth,
			RespectRobots: true,
		})
		for result := range results {
			if result.Err != nil {
				failed++
				handle.Log(fmt.Sprintf("crawl error: %v", result.Err))
				continue
			}
			fetched++
			handle.IncCounter("pages_fetched", 1)
			pages = append(pages, fetchedPage{url: result.Page.URL, markdown: result.Page.Markdown})
		}
	}

	return pages, fetched, failed
}

// chunkAndStore splits every fetched page into chunks, upserts them, and
// embeds only chunks whose content changed (a fresh insert, or an existing
// (source_id, url, chunk_number) row whose content_hash differs).
func (r *Runner) chunkAndStore(ctx context.Context, pl *ent.Pipeline, pages []fetchedPage, handle *ProgressHandle) (int, error) {
	existing, err := r.store.GetPagesBySource(ctx, pl.SourceID)
	if err != nil {
		return 0, fmt.Errorf("load existing pages: %w", err)
	}
	priorHash := make(map[string]string, len(existing))
	for _, p := range existing {
		priorHash[p.URL+"\x00"+strconv.Itoa(p.ChunkNumber)] = p.ContentHash
	}

	var upserts []storage.UpsertPageParams
	for _, page := range pages {
		chunks := chunker.Split(page.markdown, chunker.Options{
			MaxChunkSize: r.cfg.CrawlChunkSize,
			Overlap:      r.cfg.ChunkOverlap,
		})
		for _, c := range chunks {
			upserts = append(upserts, storage.UpsertPageParams{
				SourceID:    pl.SourceID,
				URL:         page.url,
				ChunkNumber: c.Number,
				Content:     c.Content,
				ContentHash: c.ContentHash,
				Metadata:    map[string]any{"token_count": c.TokenCount},
			})
		}
	}

	if len(upserts) == 0 {
		return 0, nil
	}
	if _, err := r.store.UpsertPages(ctx, upserts); err != nil {
		return 0, fmt.Errorf("upsert pages: %w", err)
	}

	stored, err := r.embedChangedChunks(ctx, pl, priorHash, handle)
	if err != nil {
		return stored, err
	}
	return stored, nil
}

func (r *Runner) embedChangedChunks(ctx context.Context, pl *ent.Pipeline, priorHash map[string]string, handle *ProgressHandle) (int, error) {
	current, err := r.store.GetPagesBySource(ctx, pl.SourceID)
	if err != nil {
		return 0, fmt.Errorf("reload pages after upsert: %w", err)
	}

	if r.embed == nil {
		return 0, apperrors.New(apperrors.KindProviderUnavailable, "no embedding provider configured")
	}
	gw, _, err := r.gateways.Gateway(r.embed.Name)
	if err != nil {
		return 0, fmt.Errorf("resolve embedding provider: %w", err)
	}

	stored := 0
	processed := 0
	for _, p := range current {
		key := p.URL + "\x00" + strconv.Itoa(p.ChunkNumber)
		if prev, ok := priorHash[key]; ok && prev == p.ContentHash {
			continue // unchanged chunk, skip re-embedding
		}

		vec, err := r.embedOneCached(ctx, gw, p.Content)
		if err != nil {
			handle.Log(fmt.Sprintf("embed failed for %s chunk %d: %v", p.URL, p.ChunkNumber, err))
			continue
		}

		if _, err := r.store.PutEmbedding(ctx, storage.PutEmbeddingParams{
			PageID:    p.ID,
			Model:     r.embed.Model,
			Dimension: r.embed.Dimension,
			Vector:    pgvector.Vector(vec),
		}); err != nil {
			handle.Log(fmt.Sprintf("store embedding failed for %s chunk %d: %v", p.URL, p.ChunkNumber, err))
			continue
		}

		stored++
		handle.IncCounter("chunks_stored", 1)
		processed++
		if processed%r.cfg.CancellationCheckInterval == 0 && ctx.Err() != nil {
			return stored, ctx.Err()
		}
	}

	return stored, nil
}

func (r *Runner) embedOneCached(ctx context.Context, gw provider.Gateway, text string) ([]float32, error) {
	if vec, ok := r.cache.Get(ctx, r.embed.Model, text); ok {
		return vec, nil
	}

	r.embedSem <- struct{}{}
	defer func() { <-r.embedSem }()

	vec, err := gw.EmbedOne(ctx, r.embed.Model, text)
	if err != nil {
		return nil, err
	}
	r.cache.Put(ctx, r.embed.Model, text, vec)
	return vec, nil
}

var fencedCodeBlock = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\\n(.*?)```")

// extractCode scans every fetched page's markdown for fenced code blocks,
// summarizes each with the chat provider, embeds the code+summary text, and
// stores a CodeExample row. Cancellation is checked every
// CancellationCheckInterval extractions.
func (r *Runner) extractCode(ctx context.Context, pl *ent.Pipeline, pages []fetchedPage, handle *ProgressHandle) (int, error) {
	if r.chat == nil || r.embed == nil {
		return 0, apperrors.New(apperrors.KindProviderUnavailable, "code extraction requires both a chat and an embedding provider")
	}

	chatGW, _, err := r.gateways.Gateway(r.chat.Name)
	if err != nil {
		return 0, fmt.Errorf("resolve chat provider: %w", err)
	}
	embedGW, _, err := r.gateways.Gateway(r.embed.Name)
	if err != nil {
		return 0, fmt.Errorf("resolve embedding provider: %w", err)
	}

	count := 0
	for _, page := range pages {
		matches := fencedCodeBlock.FindAllStringSubmatch(page.markdown, -1)
		for _, m := range matches {
			language, code := m[1], strings.TrimSpace(m[2])
			if code == "" {
				continue
			}

			summary, err := r.summarizeCode(ctx, chatGW, code, language)
			if err != nil {
				handle.Log(fmt.Sprintf("summarize failed for code block in %s: %v", page.url, err))
				summary = ""
			}

			vec, err := r.embedOneCached(ctx, embedGW, summary+"\n\n"+code)
			if err != nil {
				handle.Log(fmt.Sprintf("embed failed for code block in %s: %v", page.url, err))
				continue
			}

			if _, err := r.store.PutCodeExample(ctx, storage.PutCodeExampleParams{
				SourceID:  pl.SourceID,
				Language:  language,
				Content:   code,
				Summary:   summary,
				Dimension: r.embed.Dimension,
				Embedding: pgvector.Vector(vec),
			}); err != nil {
				handle.Log(fmt.Sprintf("store code example failed for %s: %v", page.url, err))
				continue
			}

			count++
			handle.IncCounter("code_examples", 1)
			if count%r.cfg.CancellationCheckInterval == 0 && ctx.Err() != nil {
				return count, ctx.Err()
			}
		}
	}

	return count, nil
}

func (r *Runner) summarizeCode(ctx context.Context, gw provider.Gateway, code, language string) (string, error) {
	prompt := fmt.Sprintf("Summarize in one short sentence what this %s code example does:\n\n%s", language, code)
	completion, err := gw.Chat(ctx, r.chat.Model, []provider.Message{
		{Role: "user", Content: prompt},
	}, provider.ChatOptions{Temperature: 0.2, MaxTokens: 100})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(completion.Content), nil
}
