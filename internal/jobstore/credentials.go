package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ServiceCredential is the on-disk credential used to authenticate against
// the document REST endpoint when the primary store is down.
type ServiceCredential struct {
	ProjectID    string `json:"project_id"`
	ClientEmail  string `json:"client_email"`
	ClientSecret string `json:"client_secret"`
	TokenURI     string `json:"token_uri"`
}

// LoadServiceCredential reads and validates a credential file.
func LoadServiceCredential(path string) (*ServiceCredential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jobstore: read credential file: %w", err)
	}
	var cred ServiceCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("jobstore: parse credential file: %w", err)
	}
	if cred.ClientEmail == "" || cred.ClientSecret == "" || cred.TokenURI == "" {
		return nil, fmt.Errorf("jobstore: credential file missing client_email, client_secret or token_uri")
	}
	return &cred, nil
}

// tokenSource mints short-lived access tokens from a service credential and
// caches them until shortly before expiry.
type tokenSource struct {
	cred       *ServiceCredential
	httpClient *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newTokenSource(cred *ServiceCredential, httpClient *http.Client) *tokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &tokenSource{cred: cred, httpClient: httpClient}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns a valid access token, minting a fresh one when the cached
// token is within a minute of expiring.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Until(ts.expires) > time.Minute {
		return ts.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {ts.cred.ClientEmail},
		"client_secret": {ts.cred.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.cred.TokenURI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("jobstore: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("jobstore: mint token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("jobstore: token endpoint status %d", resp.StatusCode)
	}
	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("jobstore: decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("jobstore: token endpoint returned empty token")
	}

	ts.token = tok.AccessToken
	lifetime := time.Duration(tok.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	ts.expires = time.Now().Add(lifetime)
	return ts.token, nil
}
