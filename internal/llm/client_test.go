package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
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

func TestCompleteReturnsFirstChoice(t *testing.T) {
	client, err := NewClient(Options{
		APIKey: "key",
		Model:  "primary-model",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if got := r.Header.Get("Authorization"); got != "Bearer key" {
				t.Errorf("authorization = %q", got)
			}
			var req chatCompletionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if req.Model != "primary-model" {
				t.Errorf("model = %q", req.Model)
			}
			return jsonResponse(http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  hello  "}}]}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := client.Complete(context.Background(), CompleteRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hello" {
		t.Fatalf("content = %q", got)
	}
}

func TestCompleteRetriesWithFallbackModel(t *testing.T) {
	var models []string
	client, err := NewClient(Options{
		APIKey:        "key",
		Model:         "primary-model",
		FallbackModel: "fallback-model",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			var req chatCompletionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			models = append(models, req.Model)
			if req.Model == "primary-model" {
				return jsonResponse(http.StatusForbidden, `{"error":{"message":"model requires pro"}}`), nil
			}
			return jsonResponse(http.StatusOK, `{"choices":[{"message":{"content":"from fallback"}}]}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := client.Complete(context.Background(), CompleteRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "from fallback" {
		t.Fatalf("content = %q", got)
	}
	if len(models) != 2 || models[0] != "primary-model" || models[1] != "fallback-model" {
		t.Fatalf("models tried = %v", models)
	}
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	client, err := NewClient(Options{
		APIKey: "key",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusUnauthorized, `{"error":{"message":"bad token"}}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Complete(context.Background(), CompleteRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil || !strings.Contains(err.Error(), "bad token") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
