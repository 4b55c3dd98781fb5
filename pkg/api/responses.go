package api

import "github.com/archon-core/archon/pkg/database"

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string                 `json:"status"`
	Version  string                 `json:"version"`
	Checks   map[string]string      `json:"checks,omitempty"`
	Database *database.HealthStatus `json:"database,omitempty"`
}

// ProgressIDResponse is returned by every endpoint that hands off to an
// asynchronous pipeline.
type ProgressIDResponse struct {
	ProgressID string `json:"progress_id"`
}

// UploadResponse is returned by a completed synchronous upload.
type UploadResponse struct {
	SourceID     string `json:"source_id"`
	Filename     string `json:"filename"`
	ChunksStored int    `json:"chunks_stored"`
}

// SearchResultDTO is one ranked search hit.
type SearchResultDTO struct {
	PageID      string  `json:"page_id"`
	SourceID    string  `json:"source_id"`
	URL         string  `json:"url"`
	ChunkNumber int     `json:"chunk_number"`
	Content     string  `json:"content"`
	Score       float64 `json:"score"`
	MatchType   string  `json:"match_type"`
}

// SearchResponse is returned by POST /api/knowledge/search.
type SearchResponse struct {
	Results  []SearchResultDTO `json:"results"`
	Degraded bool              `json:"degraded"`
}

// TokenResponse carries a freshly issued bearer or reconnect token.
type TokenResponse struct {
	Token string `json:"token"`
}
