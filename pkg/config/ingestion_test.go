package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIngestionConfig(t *testing.T) {
	cfg := DefaultIngestionConfig()

	assert.Equal(t, 4, cfg.MaxConcurrentPipelines)
	assert.Equal(t, 8, cfg.EmbeddingBatchConcurrency)
	assert.Equal(t, 600, cfg.CrawlChunkSize)
	assert.Equal(t, 1500, cfg.UploadChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 2, cfg.DefaultMaxDepth)
	assert.Equal(t, 5, cfg.MaxDepthCeiling)
	assert.LessOrEqual(t, cfg.DefaultMaxDepth, cfg.MaxDepthCeiling)
	assert.Equal(t, 10, cfg.CancellationCheckInterval)
}
