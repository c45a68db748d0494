// Package inference calls a hosted text-to-video inference API. Hosted
// models are cold-started on demand, so the client polls through "model
// loading" responses before giving up.
package inference

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

	"videogen/internal/domain"
	"videogen/internal/infra"
)

// DefaultNegativePrompt is applied when a request does not carry one.
const DefaultNegativePrompt = "blurry, low quality, distorted, pixelated, ugly, bad anatomy, deformed, noisy, grainy, watermark, text"

const (
	// maxRequests bounds the total number of HTTP requests per generation,
	// including the ones answered with a loading status.
	maxRequests = 30

	// defaultWait is the pause between polls when the API gives no hint.
	defaultWait = 10 * time.Second

	// maxWait caps the API's estimated_time hint so a single bad estimate
	// cannot stall the worker.
	maxWait = 30 * time.Second

	// attemptTimeout bounds one HTTP round trip; video inference responses
	// can take minutes to stream back.
	attemptTimeout = 300 * time.Second
)

// Hosted APIs reject oversized requests, so parameters are clamped to the
// largest values the serverless tier accepts.
const (
	maxFrames    = 48
	maxSteps     = 50
	maxDimension = 512
)

// Params are the generation parameters forwarded to the hosted model.
type Params struct {
	NumFrames      int
	NumSteps       int
	Width          int
	Height         int
	NegativePrompt string
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Model      string
	Token      string
	HTTPClient *http.Client
	Logger     *infra.Logger

	// Sleep is swapped out in tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

// Client generates videos through a hosted inference endpoint.
type Client struct {
	baseURL    string
	model      string
	token      string
	httpClient *http.Client
	logger     *infra.Logger
	sleep      func(time.Duration)
}

// NewClient builds a hosted inference client. The token is required since the
// endpoint rejects anonymous video generation.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, domain.ErrMissingCredentials
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co"
	}
	model := opts.Model
	if model == "" {
		model = "damo-vilab/text-to-video-ms-1.7b"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: attemptTimeout}
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	return &Client{
		baseURL:    baseURL,
		model:      model,
		token:      strings.TrimSpace(opts.Token),
		httpClient: httpClient,
		logger:     logger,
		sleep:      sleep,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

type generateParameters struct {
	NumFrames         int    `json:"num_frames"`
	NumInferenceSteps int    `json:"num_inference_steps"`
	Height            int    `json:"height"`
	Width             int    `json:"width"`
	NegativePrompt    string `json:"negative_prompt"`
}

type loadingResponse struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// Generate requests a video for prompt and returns the raw video bytes. A
// loading response is retried with a bounded wait; any other failure is
// terminal, since retrying a rejected request would only repeat the
// rejection.
func (c *Client) Generate(ctx context.Context, prompt string, p Params, onProgress func(string)) ([]byte, error) {
	p = clampParams(p.normalize())

	body, err := json.Marshal(generateRequest{
		Inputs: EnrichPrompt(prompt),
		Parameters: generateParameters{
			NumFrames:         p.NumFrames,
			NumInferenceSteps: p.NumSteps,
			Height:            p.Height,
			Width:             p.Width,
			NegativePrompt:    p.NegativePrompt,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("inference: marshal request: %w", err)
	}

	endpoint := c.baseURL + "/models/" + c.model

	for attempt := 1; ; attempt++ {
		if onProgress != nil {
			onProgress(fmt.Sprintf("Requesting video (attempt %d)...", attempt))
		}

		data, retryAfter, err := c.doRequest(ctx, endpoint, body)
		if err == nil {
			return data, nil
		}
		if retryAfter <= 0 {
			return nil, err
		}
		if attempt >= maxRequests {
			c.logger.Warn().
				Str("model", c.model).
				Int("requests", attempt).
				Msg("inference: model never became ready")
			return nil, fmt.Errorf("inference: model %s still loading after %d requests: %w", c.model, attempt, domain.ErrUnavailable)
		}

		c.logger.Info().
			Str("model", c.model).
			Dur("wait", retryAfter).
			Int("attempt", attempt).
			Msg("inference: model loading; waiting")
		if onProgress != nil {
			onProgress(fmt.Sprintf("Model loading, waiting %s...", retryAfter))
		}
		c.sleep(retryAfter)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// doRequest performs one HTTP round trip. A positive retryAfter means the
// model was still loading and the caller may retry after that long.
func (c *Client) doRequest(ctx context.Context, endpoint string, body []byte) (data []byte, retryAfter time.Duration, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("inference: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("inference: invoke api: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, 0, fmt.Errorf("inference: read response: %w", err)
		}
		return data, 0, nil

	case http.StatusServiceUnavailable:
		wait := defaultWait
		var loading loadingResponse
		if err := json.NewDecoder(resp.Body).Decode(&loading); err == nil && loading.EstimatedTime > 0 {
			wait = time.Duration(loading.EstimatedTime * float64(time.Second))
			if wait > maxWait {
				wait = maxWait
			}
		}
		return nil, wait, fmt.Errorf("inference: model loading: %w", domain.ErrUnavailable)

	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, 0, fmt.Errorf("inference: api status %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(msg)), domain.ErrProviderFailure)
	}
}

// EnrichPrompt prepends quality terms unless the prompt already mentions
// quality, mirroring what the hosted model's examples are tuned for.
func EnrichPrompt(prompt string) string {
	if strings.Contains(strings.ToLower(prompt), "quality") {
		return prompt
	}
	return "high quality, 4k, detailed, photorealistic, " + prompt
}

func (p Params) normalize() Params {
	d := domain.DefaultSettings()
	if p.NumFrames <= 0 {
		p.NumFrames = d.NumFrames
	}
	if p.NumSteps <= 0 {
		p.NumSteps = d.NumSteps
	}
	if p.Width <= 0 {
		p.Width = d.Width
	}
	if p.Height <= 0 {
		p.Height = d.Height
	}
	if p.NegativePrompt == "" {
		p.NegativePrompt = DefaultNegativePrompt
	}
	return p
}

func clampParams(p Params) Params {
	if p.NumFrames > maxFrames {
		p.NumFrames = maxFrames
	}
	if p.NumSteps > maxSteps {
		p.NumSteps = maxSteps
	}
	if p.Width > maxDimension {
		p.Width = maxDimension
	}
	if p.Height > maxDimension {
		p.Height = maxDimension
	}
	return p
}
