// Package ingest drives the discovery → crawl → chunk-and-store →
// code-extract → finalize pipeline that turns one ingestion request into
// stored pages, embeddings, and (optionally) code examples: one claimed
// row driven through phases by a pool of worker goroutines, with a
// claim/heartbeat/cancel-registry/terminal-status-update loop.
package ingest

import (
	"github.com/archon-core/archon/ent/pipeline"
)

// Request is one ingestion run request, matching start_crawl's parameters.
type Request struct {
	URL                 string
	KnowledgeType       pipeline.KnowledgeType
	Tags                []string
	MaxDepth            int
	ExtractCodeExamples bool
	ProjectID           *string
	IsProjectPrivate    bool
	SendToKB            bool
}
