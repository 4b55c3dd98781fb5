package config

import "time"

// RetrievalConfig controls the retrieval engine's fusion constants and
// caching.
type RetrievalConfig struct {
	ShortQueryMinLength int           `yaml:"short_query_min_length"`
	VectorCandidateMult int           `yaml:"vector_candidate_multiplier"`
	MinCandidates       int           `yaml:"min_candidates"`
	RRFK                int           `yaml:"rrf_k"`
	RRFMissingRank      int           `yaml:"rrf_missing_rank"`
	RerankTopNCap       int           `yaml:"rerank_top_n_cap"`
	RerankMultiplier    int           `yaml:"rerank_multiplier"`
	ResultCacheTTL      time.Duration `yaml:"result_cache_ttl"`

	// RerankOperatesOnFusedCandidates: when true (default) the reranker
	// receives RRF-fused candidates; when false it reranks raw vector
	// candidates and bypasses fusion entirely.
	RerankOperatesOnFusedCandidates bool `yaml:"rerank_operates_on_fused_candidates"`

	// DegradedOnEmptyCandidates: when both backends return zero candidates,
	// mark the (empty) result degraded instead of returning it as healthy.
	DegradedOnEmptyCandidates bool `yaml:"degraded_on_empty_candidates"`
}

// DefaultRetrievalConfig returns the built-in retrieval defaults.
func DefaultRetrievalConfig() *RetrievalConfig {
	return &RetrievalConfig{
		ShortQueryMinLength:             4,
		VectorCandidateMult:             4,
		MinCandidates:                   50,
		RRFK:                            60,
		RRFMissingRank:                  999,
		RerankTopNCap:                   30,
		RerankMultiplier:                3,
		ResultCacheTTL:                  7 * time.Minute,
		RerankOperatesOnFusedCandidates: true,
		DegradedOnEmptyCandidates:       false,
	}
}
