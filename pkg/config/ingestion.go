package config

import "time"

// IngestionConfig controls the ingestion orchestrator's concurrency caps,
// chunking defaults, and crawl behavior.
type IngestionConfig struct {
	// MaxConcurrentPipelines bounds how many ingestion pipelines run at once.
	MaxConcurrentPipelines int `yaml:"max_concurrent_pipelines"`

	// EmbeddingBatchConcurrency bounds outstanding provider embedding calls.
	EmbeddingBatchConcurrency int `yaml:"embedding_batch_concurrency"`

	// CrawlChunkSize / UploadChunkSize are the chunker's max_chunk_size for
	// each input path, exposed as config rather than a single hardcoded
	// constant since crawled and uploaded content differ in density.
	CrawlChunkSize  int `yaml:"crawl_chunk_size"`
	UploadChunkSize int `yaml:"upload_chunk_size"`
	ChunkOverlap    int `yaml:"chunk_overlap"`

	// DefaultMaxDepth / MaxDepthCeiling bound recursive crawl depth.
	DefaultMaxDepth int `yaml:"default_max_depth"`
	MaxDepthCeiling int `yaml:"max_depth_ceiling"`

	// PerHostConcurrency / PolitenessDelay throttle the crawler per origin.
	PerHostConcurrency  int           `yaml:"per_host_concurrency"`
	PolitenessDelay     time.Duration `yaml:"politeness_delay"`
	CrawlRequestTimeout time.Duration `yaml:"crawl_request_timeout"`

	// CancellationCheckInterval is how many stored chunks/extractions pass
	// between cooperative-cancellation checks.
	CancellationCheckInterval int `yaml:"cancellation_check_interval"`
}

// DefaultIngestionConfig returns the built-in ingestion defaults.
func DefaultIngestionConfig() *IngestionConfig {
	return &IngestionConfig{
		MaxConcurrentPipelines:    4,
		EmbeddingBatchConcurrency: 8,
		CrawlChunkSize:            600,
		UploadChunkSize:           1500,
		ChunkOverlap:              200,
		DefaultMaxDepth:           2,
		MaxDepthCeiling:           5,
		PerHostConcurrency:        2,
		PolitenessDelay:           500 * time.Millisecond,
		CrawlRequestTimeout:       30 * time.Second,
		CancellationCheckInterval: 10,
	}
}
