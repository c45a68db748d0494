// Package history keeps the local side stores of the application: a JSON
// ring of recent generations, a JSON ring of analyzed prompts, a bounded
// cloud-submission queue snapshot and a CSV metadata export. All of them are
// best-effort; losing one never fails a generation.
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

// maxEntries bounds the generation history ring.
const maxEntries = 50

// Store is the JSON-backed ring of recent generations, newest first.
type Store struct {
	mu      sync.Mutex
	path    string
	entries []domain.HistoryEntry
}

// NewStore loads (or initializes) the history file at path.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("history: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return fmt.Errorf("history: parse %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal entries: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("history: ensure directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("history: write %s: %w", s.path, err)
	}
	return nil
}

// Add prepends an entry, assigns it the next id and trims the ring to its
// maximum size.
func (s *Store) Add(entry domain.HistoryEntry) (domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.nextIDLocked()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.entries = append([]domain.HistoryEntry{entry}, s.entries...)
	if len(s.entries) > maxEntries {
		s.entries = s.entries[:maxEntries]
	}
	if err := s.persist(); err != nil {
		return domain.HistoryEntry{}, err
	}
	return entry, nil
}

func (s *Store) nextIDLocked() int {
	next := 1
	for _, e := range s.entries {
		if e.ID >= next {
			next = e.ID + 1
		}
	}
	return next
}

// List returns all entries, newest first.
func (s *Store) List() []domain.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the entry with the given id, or domain.ErrNotFound.
func (s *Store) Get(id int) (domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.HistoryEntry{}, domain.ErrNotFound
}

// Delete removes an entry and its video file. A missing video file is not an
// error; the entry is what matters.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID != id {
			continue
		}
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		if err := s.persist(); err != nil {
			return err
		}
		if e.VideoPath != "" {
			if err := os.Remove(e.VideoPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("history: remove video: %w", err)
			}
		}
		return nil
	}
	return domain.ErrNotFound
}

// Clear drops every entry. Video files are left in place.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.persist()
}
