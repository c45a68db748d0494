// Package llm provides a lightweight facade over a hosted chat-completion
// API so that the translation, analysis and subtitle adapters can focus on
// turning domain requests into prompts.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"videogen/internal/infra"
)

// Options controls how the client is configured.
type Options struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	HTTPClient    *http.Client
	Logger        *infra.Logger
}

// Client issues chat-completion requests against a hosted inference router.
type Client struct {
	apiKey        string
	baseURL       string
	model         string
	fallbackModel string
	httpClient    *http.Client
	logger        *infra.Logger
}

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompleteRequest carries the parameters of one completion call.
type CompleteRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a chat client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("llm: api key is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://router.huggingface.co/v1"
	}

	model := opts.Model
	if model == "" {
		model = "Qwen/Qwen2.5-72B-Instruct"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:        strings.TrimSpace(opts.APIKey),
		baseURL:       baseURL,
		model:         model,
		fallbackModel: opts.FallbackModel,
		httpClient:    client,
		logger:        logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete runs one chat completion and returns the first choice's content.
// When the primary model is rejected and a fallback model is configured, the
// call is retried once against the fallback.
func (c *Client) Complete(ctx context.Context, req CompleteRequest) (string, error) {
	text, err := c.complete(ctx, c.model, req)
	if err != nil && c.fallbackModel != "" && c.fallbackModel != c.model {
		c.logger.Warn().
			Err(err).
			Str("model", c.model).
			Str("fallback_model", c.fallbackModel).
			Msg("llm: primary model failed; retrying with fallback")
		return c.complete(ctx, c.fallbackModel, req)
	}
	return text, err
}

func (c *Client) complete(ctx context.Context, model string, req CompleteRequest) (string, error) {
	payload := chatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("invoke llm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("llm status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return "", fmt.Errorf("llm status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return "", fmt.Errorf("llm status %d", resp.StatusCode)
	}

	var response chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode llm response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
