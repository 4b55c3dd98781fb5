package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIClient talks to any OpenAI-compatible chat/embeddings HTTP API
// (OpenAI itself, or a local Ollama server exposing the same surface).
// Reranking is not part of this API family; callers configuring an
// OpenAI-compatible provider for rerank get a clear error instead of a
// silent no-op.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewOpenAIClient creates a client against baseURL (e.g.
// "https://api.openai.com/v1" or "http://localhost:11434/v1"). apiKey may
// be empty for providers that don't require one (local Ollama).
func NewOpenAIClient(baseURL, apiKey string) *OpenAIClient {
	return &OpenAIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// EmbedOne embeds a single text.
func (c *OpenAIClient) EmbedOne(ctx context.Context, model, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, model, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds multiple texts in one request, retrying transient
// failures with backoff.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	var out [][]float32
	err := withRetry(ctx, func() error {
		resp, err := c.post(ctx, "/embeddings", embeddingsRequest{Model: model, Input: texts})
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return readStatusError(resp)
		}

		var parsed embeddingsResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("decode embeddings response: %w", err)
		}

		vectors := make([][]float32, len(texts))
		for _, d := range parsed.Data {
			if d.Index < len(vectors) {
				vectors[d.Index] = d.Embedding
			}
		}
		out = vectors
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	return out, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Chat sends a conversation to a chat-completions endpoint.
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []Message, opts ChatOptions) (*Completion, error) {
	req := chatRequest{
		Model:       model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	var completion *Completion
	err := withRetry(ctx, func() error {
		resp, err := c.post(ctx, "/chat/completions", req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return readStatusError(resp)
		}

		var parsed chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("decode chat response: %w", err)
		}
		if len(parsed.Choices) == 0 {
			return fmt.Errorf("chat response had no choices")
		}
		completion = &Completion{
			Content:      parsed.Choices[0].Message.Content,
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	return completion, nil
}

// Rerank is not supported by the OpenAI-compatible API family.
func (c *OpenAIClient) Rerank(ctx context.Context, model, query string, docs []string) ([]ScoredDoc, error) {
	return nil, fmt.Errorf("openai-compatible provider does not support rerank")
}

func (c *OpenAIClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	return resp, nil
}

func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
}
