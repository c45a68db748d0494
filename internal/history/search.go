package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"videogen/internal/domain"
)

// maxSearchEntries bounds the prompt analysis ring.
const maxSearchEntries = 100

// SearchStore is the JSON-backed ring of analyzed prompts, newest first. It
// records what users asked for and how the pipeline understood it.
type SearchStore struct {
	mu      sync.Mutex
	path    string
	entries []domain.SearchEntry
}

// NewSearchStore loads (or initializes) the search history file at path.
func NewSearchStore(path string) (*SearchStore, error) {
	s := &SearchStore{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, fmt.Errorf("history: parse %s: %w", path, err)
		}
	}
	return s, nil
}

// Add prepends an entry and trims the ring.
func (s *SearchStore) Add(entry domain.SearchEntry) (domain.SearchEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := 1
	for _, e := range s.entries {
		if e.ID >= next {
			next = e.ID + 1
		}
	}
	entry.ID = next
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.entries = append([]domain.SearchEntry{entry}, s.entries...)
	if len(s.entries) > maxSearchEntries {
		s.entries = s.entries[:maxSearchEntries]
	}
	if err := s.persist(); err != nil {
		return domain.SearchEntry{}, err
	}
	return entry, nil
}

// List returns all entries, newest first.
func (s *SearchStore) List() []domain.SearchEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SearchEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear drops every entry.
func (s *SearchStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.persist()
}

func (s *SearchStore) persist() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal search entries: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("history: ensure directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("history: write %s: %w", s.path, err)
	}
	return nil
}
