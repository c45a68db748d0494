package jobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"videogen/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// memStore is an in-memory Store for exercising the fallback composition.
type memStore struct {
	mu       sync.Mutex
	jobs     map[string]*domain.Job
	nextID   int
	failNext error
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]*domain.Job)}
}

func (m *memStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memStore) CreateJob(ctx context.Context, prompt string, settings domain.Settings) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return "", err
	}
	if strings.TrimSpace(prompt) == "" {
		return "", domain.ErrInvalidPrompt
	}
	m.nextID++
	id := fmt.Sprintf("job-%d", m.nextID)
	m.jobs[id] = &domain.Job{
		ID: id, Prompt: prompt, Settings: settings,
		Status: domain.JobStatusPending, CreatedAt: time.Now(),
	}
	return id, nil
}

func (m *memStore) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memStore) UpdateJob(ctx context.Context, id string, upd Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.VideoURL != nil {
		job.VideoURL = *upd.VideoURL
	}
	if upd.Error != nil {
		job.Error = *upd.Error
	}
	if upd.ModelUsed != nil {
		job.ModelUsed = *upd.ModelUsed
	}
	if upd.Resolution != nil {
		job.Resolution = *upd.Resolution
	}
	if upd.CompletedAt != nil {
		job.CompletedAt = *upd.CompletedAt
	}
	return nil
}

func (m *memStore) ClaimPendingJob(ctx context.Context, modelUsed string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *domain.Job
	for _, job := range m.jobs {
		if job.Status != domain.JobStatusPending {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}
	oldest.Status = domain.JobStatusProcessing
	oldest.ModelUsed = modelUsed
	copied := *oldest
	return &copied, nil
}

func newTestRESTClient(t *testing.T, rt roundTripFunc) *RESTClient {
	t.Helper()
	cred := &ServiceCredential{
		ClientEmail:  "svc@example.test",
		ClientSecret: "secret",
		TokenURI:     "https://auth.example.test/token",
	}
	client, err := NewRESTClient("https://docs.example.test/v1", cred, &http.Client{Transport: rt})
	if err != nil {
		t.Fatalf("NewRESTClient: %v", err)
	}
	return client
}

func restRoundTripper(t *testing.T, docs map[string]string) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(r.URL.Host, "auth."):
			return jsonResponse(http.StatusOK, `{"access_token":"tok","expires_in":3600}`), nil
		case r.Method == http.MethodPost:
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("missing bearer token, got %q", got)
			}
			id := r.URL.Query().Get("documentId")
			body, _ := io.ReadAll(r.Body)
			docs[id] = string(body)
			return jsonResponse(http.StatusOK, `{}`), nil
		case r.Method == http.MethodGet:
			parts := strings.Split(r.URL.Path, "/")
			id := parts[len(parts)-1]
			doc, ok := docs[id]
			if !ok {
				return jsonResponse(http.StatusNotFound, `{}`), nil
			}
			return jsonResponse(http.StatusOK, doc), nil
		}
		return jsonResponse(http.StatusMethodNotAllowed, `{}`), nil
	}
}

func TestRESTCreateAndGetRoundTrip(t *testing.T) {
	docs := make(map[string]string)
	client := newTestRESTClient(t, restRoundTripper(t, docs))

	settings := domain.DefaultSettings()
	settings.Mode = domain.ModeCloud

	id, err := client.CreateJob(context.Background(), "a lighthouse at dusk", settings)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty job id")
	}

	job, err := client.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Prompt != "a lighthouse at dusk" {
		t.Errorf("prompt = %q", job.Prompt)
	}
	if job.Status != domain.JobStatusPending {
		t.Errorf("status = %q", job.Status)
	}
	if job.Settings.Mode != domain.ModeCloud {
		t.Errorf("settings mode = %q", job.Settings.Mode)
	}
}

func TestRESTGetMissingJob(t *testing.T) {
	client := newTestRESTClient(t, restRoundTripper(t, map[string]string{}))
	if _, err := client.GetJob(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFallbackCreateUsesRESTWhenPrimaryDown(t *testing.T) {
	docs := make(map[string]string)
	rest := newTestRESTClient(t, restRoundTripper(t, docs))
	primary := newMemStore()
	primary.failNext = errors.New("connection refused")

	store := NewFallbackStore(primary, rest, nil)
	id, err := store.CreateJob(context.Background(), "a lighthouse", domain.DefaultSettings())
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if id == "" {
		t.Fatal("expected a job id from the rest fallback")
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 rest document, got %d", len(docs))
	}
}

func TestFallbackCreateSurfacesPrimaryErrorWhenRESTFails(t *testing.T) {
	rest := newTestRESTClient(t, func(r *http.Request) (*http.Response, error) {
		if strings.Contains(r.URL.Host, "auth.") {
			return jsonResponse(http.StatusOK, `{"access_token":"tok","expires_in":3600}`), nil
		}
		return jsonResponse(http.StatusInternalServerError, `{}`), nil
	})
	primary := newMemStore()
	primaryErr := errors.New("connection refused")
	primary.failNext = primaryErr

	store := NewFallbackStore(primary, rest, nil)
	if _, err := store.CreateJob(context.Background(), "a lighthouse", domain.DefaultSettings()); !errors.Is(err, primaryErr) {
		t.Fatalf("expected primary error, got %v", err)
	}
}

func TestFallbackInvalidPromptNotRetried(t *testing.T) {
	restCalls := 0
	rest := newTestRESTClient(t, func(r *http.Request) (*http.Response, error) {
		restCalls++
		return jsonResponse(http.StatusOK, `{"access_token":"tok","expires_in":3600}`), nil
	})
	store := NewFallbackStore(newMemStore(), rest, nil)

	if _, err := store.CreateJob(context.Background(), "  ", domain.DefaultSettings()); !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("expected ErrInvalidPrompt, got %v", err)
	}
	if restCalls != 0 {
		t.Fatalf("rest fallback should not run for invalid input, saw %d calls", restCalls)
	}
}

func TestFallbackGetPrefersPrimary(t *testing.T) {
	primary := newMemStore()
	id, err := primary.CreateJob(context.Background(), "a fox", domain.DefaultSettings())
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	store := NewFallbackStore(primary, nil, nil)
	job, err := store.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Prompt != "a fox" {
		t.Errorf("prompt = %q", job.Prompt)
	}
}

func TestMemStoreSatisfiesStore(t *testing.T) {
	var _ Store = newMemStore()
	var _ Store = &PostgresStore{}
	var _ Store = &FallbackStore{}
}
