package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/chakravarthigit/law-backend/internal/observability"
)

const DefaultTogetherURL = "https://api.together.xyz/v1"

// TogetherClient talks to an OpenAI-style /chat/completions endpoint.
type TogetherClient struct {
	baseURL    string
	apiKey     string
	params     Params
	httpClient *http.Client
	timeout    time.Duration // applied only when the caller sets no deadline
	debug      bool
}

type completionRequest struct {
	Model             string    `json:"model"`
	MaxTokens         int       `json:"max_tokens"`
	Temperature       float64   `json:"temperature"`
	TopP              float64   `json:"top_p"`
	TopK              int       `json:"top_k"`
	RepetitionPenalty float64   `json:"repetition_penalty"`
	Messages          []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func NewTogetherClient(baseURL, apiKey string, params Params, debug bool) *TogetherClient {
	if baseURL == "" {
		baseURL = DefaultTogetherURL
	}
	return &TogetherClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		params:     params,
		httpClient: &http.Client{},
		timeout:    DefaultRequestTimeout,
		debug:      debug,
	}
}

func (c *TogetherClient) Name() string { return "together" }

func (c *TogetherClient) Complete(ctx context.Context, messages []Message, opts ...Option) string {
	start := time.Now()
	callCtx, cancel := withDefaultDeadline(ctx, c.timeout)
	defer cancel()

	text, err := c.complete(callCtx, messages, Resolve(c.params, opts...))
	if err != nil {
		log.Printf("Together API error: %v", err)
		if callerTimedOut(ctx) {
			return FallbackResponse()
		}
		observability.ObserveCompletion(c.Name(), observability.OutcomeFallback, time.Since(start))
		return FallbackResponse()
	}
	observability.ObserveCompletion(c.Name(), observability.OutcomeOK, time.Since(start))
	return text
}

func (c *TogetherClient) complete(ctx context.Context, messages []Message, p Params) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("together API key is not configured")
	}

	body, err := json.Marshal(completionRequest{
		Model:             p.Model,
		MaxTokens:         p.MaxTokens,
		Temperature:       p.Temperature,
		TopP:              p.TopP,
		TopK:              p.TopK,
		RepetitionPenalty: p.RepetitionPenalty,
		Messages:          messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	if c.debug {
		log.Printf("Together API request: model=%s messages=%d", p.Model, len(messages))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d: %.200s", resp.StatusCode, string(raw))
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}
