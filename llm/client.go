package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

// Client is the minimal contract for an LLM backend. Judge metrics and the
// evaluator agent depend only on this interface.
type Client interface {
	// Complete performs a single chat completion request.
	Complete(ctx context.Context, messages []Message, opts ...CompletionOption) (*CompletionResponse, error)

	// Model returns the model identifier this client talks to.
	Model() string
}

// HTTPClientOptions configures an OpenAI-compatible HTTP client.
type HTTPClientOptions struct {
	// BaseURL is the API base, e.g. "https://api.openai.com/v1".
	BaseURL string

	// APIKey authenticates requests (sent as a bearer token).
	APIKey string

	// Model is the model identifier. Identifiers of the form
	// "provider/model" keep only the part after the first slash on the wire.
	Model string

	// MaxRetries bounds retry attempts on transient failures (default 3).
	MaxRetries int

	// Timeout bounds each HTTP request (default 120s).
	Timeout time.Duration

	// HTTPClient overrides the underlying http.Client.
	HTTPClient *http.Client

	// Logger records retry warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// HTTPClient is an OpenAI-compatible chat-completions client with
// exponential-backoff retry on transient failures.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	model      string
	wireModel  string
	maxRetries int
	client     *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a new OpenAI-compatible client.
func NewHTTPClient(opts HTTPClientOptions) (*HTTPClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("HTTPClientOptions.BaseURL is required")
	}

	if opts.Model == "" {
		return nil, fmt.Errorf("HTTPClientOptions.Model is required")
	}

	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}

	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	wireModel := opts.Model
	if idx := strings.Index(wireModel, "/"); idx > 0 {
		wireModel = wireModel[idx+1:]
	}

	return &HTTPClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		model:      opts.Model,
		wireModel:  wireModel,
		maxRetries: opts.MaxRetries,
		client:     httpClient,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *HTTPClient) Model() string {
	return c.model
}

// Wire types for the chat-completions endpoint.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete performs a chat completion against /chat/completions, retrying
// transient failures with exponential backoff.
func (c *HTTPClient) Complete(ctx context.Context, messages []Message, opts ...CompletionOption) (*CompletionResponse, error) {
	req := NewCompletionRequest(messages, opts...)

	body, err := json.Marshal(chatRequest{
		Model:       c.wireModel,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 500 * time.Millisecond
			c.logger.Warn("retrying LLM completion",
				"model", c.model,
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr,
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, retryable, err := c.attempt(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, fmt.Errorf("completion failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *HTTPClient) attempt(ctx context.Context, body []byte) (*CompletionResponse, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		// Network errors are retryable unless the context is done.
		return nil, ctx.Err() == nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 10<<20))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		retryable := httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("completion request returned status %d: %s", httpResp.StatusCode, truncate(string(data), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, false, fmt.Errorf("failed to decode completion response: %w", err)
	}

	if parsed.Error != nil {
		return nil, false, fmt.Errorf("completion API error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}

	if len(parsed.Choices) == 0 {
		return nil, false, fmt.Errorf("completion response contained no choices")
	}

	return &CompletionResponse{
		Content:      parsed.Choices[0].Message.Content,
		FinishReason: parsed.Choices[0].FinishReason,
		Usage: TokenUsage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		},
	}, false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
