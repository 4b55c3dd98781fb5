package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// JinaClient talks to Jina AI's reranker API. It only implements Rerank:
// Jina is wired solely as a reranking provider in Archon's default
// configuration, so Chat/Embed calls against it are a configuration
// error, reported rather than silently routed elsewhere.
type JinaClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewJinaClient creates a client against baseURL (defaults to
// "https://api.jina.ai/v1" when empty).
func NewJinaClient(baseURL, apiKey string) *JinaClient {
	if baseURL == "" {
		baseURL = "https://api.jina.ai/v1"
	}
	return &JinaClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type jinaRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type jinaRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores docs against query, returning results in the order the
// API returns them; they are not sorted here.
func (c *JinaClient) Rerank(ctx context.Context, model, query string, docs []string) ([]ScoredDoc, error) {
	var out []ScoredDoc
	err := withRetry(ctx, func() error {
		payload, err := json.Marshal(jinaRerankRequest{Model: model, Query: query, Documents: docs})
		if err != nil {
			return fmt.Errorf("encode rerank request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build rerank request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return fmt.Errorf("rerank request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return readStatusError(resp)
		}

		var parsed jinaRerankResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("decode rerank response: %w", err)
		}

		scored := make([]ScoredDoc, len(parsed.Results))
		for i, r := range parsed.Results {
			scored[i] = ScoredDoc{Index: r.Index, Score: r.RelevanceScore}
		}
		out = scored
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	return out, nil
}

// EmbedOne is not supported by the Jina reranker client.
func (c *JinaClient) EmbedOne(ctx context.Context, model, text string) ([]float32, error) {
	return nil, fmt.Errorf("jina reranker client does not support embeddings")
}

// EmbedBatch is not supported by the Jina reranker client.
func (c *JinaClient) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("jina reranker client does not support embeddings")
}

// Chat is not supported by the Jina reranker client.
func (c *JinaClient) Chat(ctx context.Context, model string, messages []Message, opts ChatOptions) (*Completion, error) {
	return nil, fmt.Errorf("jina reranker client does not support chat")
}
