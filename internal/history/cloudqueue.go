package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxCloudEntries bounds the local snapshot of recent cloud submissions.
const maxCloudEntries = 10

// CloudSubmission is what the interactive side remembers about a job it
// pushed to the shared queue, so the UI can re-poll after a restart.
type CloudSubmission struct {
	JobID       string    `json:"job_id"`
	Prompt      string    `json:"prompt"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// CloudQueue is the JSON-backed ring of recent cloud submissions, newest
// first.
type CloudQueue struct {
	mu      sync.Mutex
	path    string
	entries []CloudSubmission
}

// NewCloudQueue loads (or initializes) the submissions file at path.
func NewCloudQueue(path string) (*CloudQueue, error) {
	q := &CloudQueue{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &q.entries); err != nil {
			return nil, fmt.Errorf("history: parse %s: %w", path, err)
		}
	}
	return q, nil
}

// Add prepends a submission and trims the ring.
func (q *CloudQueue) Add(sub CloudSubmission) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}
	q.entries = append([]CloudSubmission{sub}, q.entries...)
	if len(q.entries) > maxCloudEntries {
		q.entries = q.entries[:maxCloudEntries]
	}
	return q.persist()
}

// List returns all submissions, newest first.
func (q *CloudQueue) List() []CloudSubmission {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]CloudSubmission, len(q.entries))
	copy(out, q.entries)
	return out
}

// Latest returns the most recent submission, if any.
func (q *CloudQueue) Latest() (CloudSubmission, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return CloudSubmission{}, false
	}
	return q.entries[0], true
}

func (q *CloudQueue) persist() error {
	data, err := json.MarshalIndent(q.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal submissions: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("history: ensure directory: %w", err)
	}
	if err := os.WriteFile(q.path, data, 0o644); err != nil {
		return fmt.Errorf("history: write %s: %w", q.path, err)
	}
	return nil
}
