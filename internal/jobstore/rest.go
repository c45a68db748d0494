package jobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"videogen/internal/domain"
)

const queueCollection = "video_queue"

// RESTClient talks to a document REST endpoint holding the job queue. It
// covers only the operations the submitting side needs: enqueue and status
// lookup. Claiming stays on the primary store, which can do it atomically.
type RESTClient struct {
	baseURL    string
	tokens     *tokenSource
	httpClient *http.Client
}

// NewRESTClient builds a REST fallback from a base URL and a credential.
func NewRESTClient(baseURL string, cred *ServiceCredential, httpClient *http.Client) (*RESTClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("jobstore: rest base url is required")
	}
	if cred == nil {
		return nil, domain.ErrMissingCredentials
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &RESTClient{
		baseURL:    baseURL,
		tokens:     newTokenSource(cred, httpClient),
		httpClient: httpClient,
	}, nil
}

// Document field values use the endpoint's typed encoding.
type typedValue struct {
	StringValue    *string `json:"stringValue,omitempty"`
	TimestampValue *string `json:"timestampValue,omitempty"`
}

type document struct {
	Fields map[string]typedValue `json:"fields"`
}

func stringValue(s string) typedValue { return typedValue{StringValue: &s} }

func timestampValue(t time.Time) typedValue {
	s := t.UTC().Format(time.RFC3339Nano)
	return typedValue{TimestampValue: &s}
}

func (d document) str(key string) string {
	if v, ok := d.Fields[key]; ok && v.StringValue != nil {
		return *v.StringValue
	}
	return ""
}

func (d document) timestamp(key string) time.Time {
	if v, ok := d.Fields[key]; ok && v.TimestampValue != nil {
		if t, err := time.Parse(time.RFC3339Nano, *v.TimestampValue); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CreateJob enqueues a pending job document and returns its id.
func (c *RESTClient) CreateJob(ctx context.Context, prompt string, settings domain.Settings) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", domain.ErrInvalidPrompt
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("jobstore: marshal settings: %w", err)
	}

	id := uuid.NewString()
	doc := document{Fields: map[string]typedValue{
		"prompt":     stringValue(prompt),
		"settings":   stringValue(string(settingsJSON)),
		"status":     stringValue(string(domain.JobStatusPending)),
		"video_url":  stringValue(""),
		"error":      stringValue(""),
		"created_at": timestampValue(time.Now()),
	}}

	endpoint := fmt.Sprintf("%s/documents/%s?documentId=%s", c.baseURL, queueCollection, id)
	if err := c.do(ctx, http.MethodPost, endpoint, doc, nil); err != nil {
		return "", err
	}
	return id, nil
}

// GetJob fetches a job document by id.
func (c *RESTClient) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	endpoint := fmt.Sprintf("%s/documents/%s/%s", c.baseURL, queueCollection, id)
	var doc document
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &doc); err != nil {
		return nil, err
	}

	job := &domain.Job{
		ID:         id,
		Prompt:     doc.str("prompt"),
		Status:     domain.JobStatus(doc.str("status")),
		VideoURL:   doc.str("video_url"),
		Error:      doc.str("error"),
		ModelUsed:  doc.str("model_used"),
		Resolution: doc.str("resolution"),
		CreatedAt:  doc.timestamp("created_at"),
	}
	if raw := doc.str("settings"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &job.Settings); err != nil {
			return nil, fmt.Errorf("jobstore: decode settings: %w", err)
		}
	}
	if t := doc.timestamp("completed_at"); !t.IsZero() {
		job.CompletedAt = t
	}
	return job, nil
}

func (c *RESTClient) do(ctx context.Context, method, endpoint string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("jobstore: marshal document: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("jobstore: create rest request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("jobstore: rest request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("jobstore: rest status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("jobstore: decode rest response: %w", err)
		}
	}
	return nil
}
