package config

import (
	"fmt"
	"os"
)

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error).
func (v *Validator) ValidateAll() error {
	if err := v.validateProviders(); err != nil {
		return fmt.Errorf("provider validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	if err := v.validateIngestion(); err != nil {
		return fmt.Errorf("ingestion validation failed: %w", err)
	}
	if err := v.validateRetrieval(); err != nil {
		return fmt.Errorf("retrieval validation failed: %w", err)
	}
	if err := v.validateSession(); err != nil {
		return fmt.Errorf("session validation failed: %w", err)
	}
	if err := v.validateSystem(); err != nil {
		return fmt.Errorf("system validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateProviders() error {
	validDims := map[int]bool{0: true, 384: true, 768: true, 1024: true, 1536: true, 3072: true, 3584: true}
	for name, p := range v.cfg.ProviderRegistry.GetAll() {
		if p.Kind != ProviderKindChat && p.Kind != ProviderKindEmbedding && p.Kind != ProviderKindRerank {
			return NewValidationError("provider", name, "kind", fmt.Errorf("unknown provider kind: %s", p.Kind))
		}
		if p.Model == "" {
			return NewValidationError("provider", name, "model", fmt.Errorf("model is required"))
		}
		if p.Kind == ProviderKindEmbedding && !validDims[p.Dimension] {
			return NewValidationError("provider", name, "dimension", fmt.Errorf("unsupported embedding dimension: %d", p.Dimension))
		}
		if p.RequiresKey && p.APIKeyEnv == "" {
			return NewValidationError("provider", name, "api_key_env", fmt.Errorf("api_key_env is required when requires_key is true"))
		}
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d.ChatProvider != "" && !v.cfg.ProviderRegistry.Has(d.ChatProvider) {
		return NewValidationError("defaults", "", "chat_provider", fmt.Errorf("provider '%s' not found", d.ChatProvider))
	}
	if d.EmbeddingProvider != "" && !v.cfg.ProviderRegistry.Has(d.EmbeddingProvider) {
		return NewValidationError("defaults", "", "embedding_provider", fmt.Errorf("provider '%s' not found", d.EmbeddingProvider))
	}
	if d.RerankProvider != "" && !v.cfg.ProviderRegistry.Has(d.RerankProvider) {
		return NewValidationError("defaults", "", "rerank_provider", fmt.Errorf("provider '%s' not found", d.RerankProvider))
	}
	return nil
}

func (v *Validator) validateIngestion() error {
	i := v.cfg.Ingestion
	if i.MaxConcurrentPipelines < 1 {
		return fmt.Errorf("max_concurrent_pipelines must be at least 1, got %d", i.MaxConcurrentPipelines)
	}
	if i.EmbeddingBatchConcurrency < 1 {
		return fmt.Errorf("embedding_batch_concurrency must be at least 1, got %d", i.EmbeddingBatchConcurrency)
	}
	if i.CrawlChunkSize < 1 || i.UploadChunkSize < 1 {
		return fmt.Errorf("chunk sizes must be positive, got crawl=%d upload=%d", i.CrawlChunkSize, i.UploadChunkSize)
	}
	if i.DefaultMaxDepth > i.MaxDepthCeiling {
		return fmt.Errorf("default_max_depth (%d) cannot exceed max_depth_ceiling (%d)", i.DefaultMaxDepth, i.MaxDepthCeiling)
	}
	if i.MaxDepthCeiling > 5 {
		return fmt.Errorf("max_depth_ceiling cannot exceed the hard ceiling of 5, got %d", i.MaxDepthCeiling)
	}
	if i.PerHostConcurrency < 1 {
		return fmt.Errorf("per_host_concurrency must be at least 1, got %d", i.PerHostConcurrency)
	}
	return nil
}

func (v *Validator) validateRetrieval() error {
	r := v.cfg.Retrieval
	if r.MinCandidates < 1 {
		return fmt.Errorf("min_candidates must be at least 1, got %d", r.MinCandidates)
	}
	if r.RRFK < 1 {
		return fmt.Errorf("rrf_k must be at least 1, got %d", r.RRFK)
	}
	if r.RerankTopNCap < 1 {
		return fmt.Errorf("rerank_top_n_cap must be at least 1, got %d", r.RerankTopNCap)
	}
	return nil
}

func (v *Validator) validateSession() error {
	s := v.cfg.Session
	if s.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive, got %v", s.IdleTimeout)
	}
	if s.ReaperInterval <= 0 {
		return fmt.Errorf("reaper_interval must be positive, got %v", s.ReaperInterval)
	}
	if s.ReaperInterval >= s.IdleTimeout {
		return fmt.Errorf("reaper_interval must be less than idle_timeout to reap promptly, got reaper=%v idle=%v", s.ReaperInterval, s.IdleTimeout)
	}
	if s.SessionSecretEnv == "" {
		return fmt.Errorf("session_secret_env must be set")
	}
	if !s.AllowDevAutoSecret && os.Getenv(s.SessionSecretEnv) == "" {
		return NewValidationError("session", "", "session_secret_env",
			fmt.Errorf("%s is not set and allow_dev_auto_secret is false", s.SessionSecretEnv))
	}
	return nil
}

func (v *Validator) validateSystem() error {
	sys := v.cfg.System
	if sys.Mode != "local" && sys.Mode != "remote" {
		return NewValidationError("system", "", "mode", fmt.Errorf("mode must be 'local' or 'remote', got %q", sys.Mode))
	}
	if sys.BearerSecretEnv == "" {
		return fmt.Errorf("bearer_secret_env must be set")
	}
	return nil
}
