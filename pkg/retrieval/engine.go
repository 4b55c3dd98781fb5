package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/source"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/archon-core/archon/pkg/config"
	"github.com/archon-core/archon/pkg/embedcache"
	"github.com/archon-core/archon/pkg/pgvector"
	"github.com/archon-core/archon/pkg/provider"
	"github.com/archon-core/archon/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// Engine answers search queries against the storage adapter's vector and
// lexical indexes.
type Engine struct {
	store    *storage.Store
	cache    *embedcache.Cache
	gateways *provider.Resolver
	resultC  *redis.Client
	cfg      *config.RetrievalConfig
	embed    *config.ProviderConfig
	rerank   *config.ProviderConfig // nil if no reranker configured
}

// New builds an Engine. rerankProvider may be nil, in which case step 6
// (optional rerank) is always skipped.
func New(
	store *storage.Store,
	cache *embedcache.Cache,
	gateways *provider.Resolver,
	resultCache *redis.Client,
	cfg *config.RetrievalConfig,
	embedProvider, rerankProvider *config.ProviderConfig,
) *Engine {
	return &Engine{
		store:    store,
		cache:    cache,
		gateways: gateways,
		resultC:  resultCache,
		cfg:      cfg,
		embed:    embedProvider,
		rerank:   rerankProvider,
	}
}

// Search runs the full query path: short-query guard, embed, parallel
// vector/lexical candidate fetch, RRF fusion, optional rerank, result
// cache.
func (e *Engine) Search(ctx context.Context, query string, filters Filters, k int) (Response, error) {
	if k <= 0 {
		k = 10
	}
	trimmed := strings.TrimSpace(query)

	cacheKey := resultCacheKey(trimmed, filters, e.embed.Dimension, e.embed.Model, k)
	if cached, ok := e.getCachedResponse(ctx, cacheKey); ok {
		return cached, nil
	}

	resp, err := e.search(ctx, trimmed, filters, k)
	if err != nil {
		return Response{}, err
	}

	e.putCachedResponse(ctx, cacheKey, resp)
	return resp, nil
}

func (e *Engine) search(ctx context.Context, query string, filters Filters, k int) (Response, error) {
	sourceIDs, filtered, err := e.resolveSourceIDs(ctx, filters)
	if err != nil {
		return Response{}, err
	}
	if filtered && len(sourceIDs) == 0 {
		// Filters matched zero sources: an empty id slice means
		// "unrestricted" to VectorSearch/TextSearch, so this must
		// short-circuit rather than fall through to an unfiltered query.
		return Response{}, nil
	}

	queryVec, embedErr := e.embedQuery(ctx, query)

	shortQuery := len(query) < e.cfg.ShortQueryMinLength
	candidateLimit := max(k*e.cfg.VectorCandidateMult, e.cfg.MinCandidates)

	var vectorHits []storage.VectorSearchResult
	var textHits []storage.TextSearchResult
	var vectorErr, textErr error

	g, gctx := errgroup.WithContext(ctx)
	if embedErr == nil {
		g.Go(func() error {
			vectorHits, vectorErr = e.store.VectorSearch(gctx, e.embed.Dimension, queryVec, sourceIDs, candidateLimit)
			return nil
		})
	} else {
		vectorErr = embedErr
	}
	if !shortQuery {
		g.Go(func() error {
			textHits, textErr = e.store.TextSearch(gctx, query, sourceIDs, candidateLimit)
			return nil
		})
	}
	_ = g.Wait()

	vectorOK := vectorErr == nil
	textOK := shortQuery || textErr == nil

	if !vectorOK && (shortQuery || !textOK) {
		return Response{}, apperrors.Wrap(apperrors.KindStorageUnavailable, "both vector and lexical backends unavailable", firstNonNil(vectorErr, textErr))
	}

	degraded := false
	if !vectorOK {
		slog.Warn("vector search unavailable, falling back to lexical-only", "error", vectorErr)
		degraded = true
		vectorHits = nil
	}
	if shortQuery {
		results, err := e.hydrateVectorOnly(ctx, vectorHits, k)
		if err != nil {
			return Response{}, err
		}
		return Response{Results: results, Degraded: degraded}, nil
	}
	if !textOK {
		slog.Warn("lexical search unavailable, falling back to vector-only", "error", textErr)
		degraded = true
		textHits = nil
	}

	if len(vectorHits) == 0 && len(textHits) == 0 {
		return Response{Results: nil, Degraded: degraded && e.cfg.DegradedOnEmptyCandidates}, nil
	}

	vectorRanked := make([]rankedHit, len(vectorHits))
	for i, h := range vectorHits {
		vectorRanked[i] = rankedHit{id: h.EntityID, score: h.Distance}
	}
	textRanked := make([]rankedHit, len(textHits))
	textPages := make(map[string]*ent.Page, len(textHits))
	for i, h := range textHits {
		textRanked[i] = rankedHit{id: h.Page.ID, score: h.Rank}
		textPages[h.Page.ID] = h.Page
	}

	fused := fuseRRF(vectorRanked, textRanked, e.cfg.RRFK, e.cfg.RRFMissingRank)
	if err := e.hydrate(ctx, fused, textPages); err != nil {
		return Response{}, err
	}
	sortFused(fused)

	if e.rerank != nil && len(fused) >= k {
		fused = e.applyRerank(ctx, query, fused)
	}

	if len(fused) > k {
		fused = fused[:k]
	}

	return Response{Results: toResults(fused), Degraded: degraded}, nil
}

// hydrate attaches source_id/url/chunk_number/content to each fused
// candidate, reusing page data text search already fetched and loading the
// rest (vector-only hits) in one batch.
func (e *Engine) hydrate(ctx context.Context, fused []fusedCandidate, known map[string]*ent.Page) error {
	var need []string
	for _, c := range fused {
		if _, ok := known[c.pageID]; !ok {
			need = append(need, c.pageID)
		}
	}
	if len(need) > 0 {
		pages, err := e.store.GetPagesByIDs(ctx, need)
		if err != nil {
			return fmt.Errorf("hydrate search candidates: %w", err)
		}
		for _, p := range pages {
			known[p.ID] = p
		}
	}

	for i, c := range fused {
		if p, ok := known[c.pageID]; ok {
			fused[i].sourceID = p.SourceID
			fused[i].url = p.URL
			fused[i].chunkNumber = p.ChunkNumber
			fused[i].content = p.Content
		}
	}
	return nil
}

func (e *Engine) hydrateVectorOnly(ctx context.Context, hits []storage.VectorSearchResult, k int) ([]Result, error) {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.EntityID
	}
	pages, err := e.store.GetPagesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate vector-only candidates: %w", err)
	}
	byID := make(map[string]*ent.Page, len(pages))
	for _, p := range pages {
		byID[p.ID] = p
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		p, ok := byID[h.EntityID]
		if !ok {
			continue
		}
		results = append(results, Result{
			PageID:      p.ID,
			SourceID:    p.SourceID,
			URL:         p.URL,
			ChunkNumber: p.ChunkNumber,
			Content:     p.Content,
			Score:       1 - h.Distance,
			MatchType:   MatchVector,
		})
	}
	return results, nil
}

func toResults(fused []fusedCandidate) []Result {
	results := make([]Result, len(fused))
	for i, c := range fused {
		results[i] = Result{
			PageID:      c.pageID,
			SourceID:    c.sourceID,
			URL:         c.url,
			ChunkNumber: c.chunkNumber,
			Content:     c.content,
			Score:       c.score,
			MatchType:   c.matchType(),
		}
	}
	return results
}

func (e *Engine) embedQuery(ctx context.Context, query string) (pgvector.Vector, error) {
	if e.embed == nil {
		return nil, apperrors.New(apperrors.KindProviderUnavailable, "no embedding provider configured")
	}
	if vec, ok := e.cache.Get(ctx, e.embed.Model, query); ok {
		return pgvector.Vector(vec), nil
	}

	gw, _, err := e.gateways.Gateway(e.embed.Name)
	if err != nil {
		return nil, err
	}
	vec, err := gw.EmbedOne(ctx, e.embed.Model, query)
	if err != nil {
		return nil, err
	}
	e.cache.Put(ctx, e.embed.Model, query, vec)
	return pgvector.Vector(vec), nil
}

func (e *Engine) applyRerank(ctx context.Context, query string, fused []fusedCandidate) []fusedCandidate {
	topN := min(e.cfg.RerankTopNCap, e.cfg.RerankMultiplier*len(fused))
	if topN > len(fused) {
		topN = len(fused)
	}

	gw, _, err := e.gateways.Gateway(e.rerank.Name)
	if err != nil {
		slog.Warn("rerank provider unavailable, keeping fused order", "error", err)
		return fused
	}

	docs := make([]string, topN)
	for i := 0; i < topN; i++ {
		docs[i] = fused[i].content
	}

	scored, err := gw.Rerank(ctx, e.rerank.Model, query, docs)
	if err != nil {
		slog.Warn("rerank call failed, keeping fused order", "error", err)
		return fused
	}

	for _, s := range scored {
		if s.Index >= 0 && s.Index < topN {
			fused[s.Index].score = s.Score
			fused[s.Index].rerank = true
		}
	}

	sortFused(fused)
	return fused
}

// resolveSourceIDs turns Filters into a concrete list of source ids to
// scope the candidate search to. The second return reports whether any
// source-level filtering was actually requested (an explicit source_id, or
// a knowledge_type/project_id/tags filter) — callers use it to tell "no
// filter" (nil ids, unrestricted) apart from "filter matched nothing"
// (empty ids, must not fall back to unrestricted).
func (e *Engine) resolveSourceIDs(ctx context.Context, f Filters) (ids []string, filtered bool, err error) {
	if f.SourceID != "" {
		return []string{f.SourceID}, true, nil
	}
	if f.KnowledgeType == "" && f.ProjectID == "" && len(f.Tags) == 0 {
		return nil, false, nil
	}

	params := storage.ListSourcesParams{IncludePrivate: true}
	if f.ProjectID != "" {
		params.ProjectID = &f.ProjectID
	}
	if f.KnowledgeType != "" {
		kt := source.KnowledgeType(f.KnowledgeType)
		params.KnowledgeType = &kt
	}

	sources, err := e.store.ListSources(ctx, params)
	if err != nil {
		return nil, true, fmt.Errorf("resolve source filters: %w", err)
	}

	ids = make([]string, 0, len(sources))
	for _, src := range sources {
		if len(f.Tags) > 0 && !hasAnyTag(src.Tags, f.Tags) {
			continue
		}
		ids = append(ids, src.ID)
	}
	return ids, true, nil
}

func hasAnyTag(sourceTags, want []string) bool {
	set := make(map[string]bool, len(sourceTags))
	for _, t := range sourceTags {
		set[t] = true
	}
	for _, t := range want {
		if set[t] {
			return true
		}
	}
	return false
}

func firstNonNil(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// resultCacheKey builds the sha256-keyed cache key for one query shape.
func resultCacheKey(query string, f Filters, dimension int, model string, k int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%v\x00%s\x00%d\x00%s\x00%d",
		query, f.SourceID, f.KnowledgeType, f.Tags, f.ProjectID, dimension, model, k)
	return "retrieval:" + hex.EncodeToString(h.Sum(nil))
}

func (e *Engine) getCachedResponse(ctx context.Context, key string) (Response, bool) {
	if e.resultC == nil {
		return Response{}, false
	}
	raw, err := e.resultC.Get(ctx, key).Bytes()
	if err != nil {
		return Response{}, false
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, false
	}
	return resp, true
}

func (e *Engine) putCachedResponse(ctx context.Context, key string, resp Response) {
	if e.resultC == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := e.resultC.Set(ctx, key, raw, e.cfg.ResultCacheTTL).Err(); err != nil {
		slog.Warn("result cache write failed", "error", err)
	}
}
