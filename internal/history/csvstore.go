package history

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"videogen/internal/domain"
)

// csvHeader is the fixed column order of the metadata export. Existing files
// with a different header are rewritten from scratch rather than guessed at.
var csvHeader = []string{"id", "prompt", "model", "settings_json", "video_path", "source", "created_at"}

// CSVStore appends one row per generated video to a CSV file so the library
// survives outside the application and stays greppable.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Append writes a record, creating the file with its header on first use.
// The record id is assigned as one past the highest id in the file.
func (c *CSVStore) Append(rec domain.VideoRecord) (domain.VideoRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.loadLocked()
	if err != nil {
		return domain.VideoRecord{}, err
	}

	if rec.ID == 0 {
		rec.ID = 1
		for _, r := range existing {
			if r.ID >= rec.ID {
				rec.ID = r.ID + 1
			}
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Source == "" {
		rec.Source = "local"
	}

	writeHeader := len(existing) == 0
	if !writeHeader {
		if _, statErr := os.Stat(c.path); statErr != nil {
			writeHeader = true
		}
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return domain.VideoRecord{}, fmt.Errorf("history: ensure directory: %w", err)
	}
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return domain.VideoRecord{}, fmt.Errorf("history: open csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return domain.VideoRecord{}, fmt.Errorf("history: write csv header: %w", err)
		}
	}

	settingsJSON, err := json.Marshal(rec.Settings)
	if err != nil {
		return domain.VideoRecord{}, fmt.Errorf("history: marshal settings: %w", err)
	}
	row := []string{
		strconv.Itoa(rec.ID),
		rec.Prompt,
		rec.Model,
		string(settingsJSON),
		rec.VideoPath,
		rec.Source,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := w.Write(row); err != nil {
		return domain.VideoRecord{}, fmt.Errorf("history: write csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return domain.VideoRecord{}, fmt.Errorf("history: flush csv: %w", err)
	}
	return rec, nil
}

// Load returns records newest first. A limit of zero or less returns all of
// them.
func (c *CSVStore) Load(limit int) ([]domain.VideoRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	records, err := c.loadLocked()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ID > records[j].ID
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Path returns the CSV file location, for download handlers.
func (c *CSVStore) Path() string {
	return c.path
}

func (c *CSVStore) loadLocked() ([]domain.VideoRecord, error) {
	f, err := os.Open(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("history: read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var out []domain.VideoRecord
	for i, row := range rows {
		if i == 0 && row[0] == csvHeader[0] {
			continue
		}
		id, err := strconv.Atoi(row[0])
		if err != nil {
			continue
		}
		rec := domain.VideoRecord{
			ID:        id,
			Prompt:    row[1],
			Model:     row[2],
			VideoPath: row[4],
			Source:    row[5],
		}
		if row[3] != "" {
			if err := json.Unmarshal([]byte(row[3]), &rec.Settings); err != nil {
				continue
			}
		}
		if t, err := time.Parse(time.RFC3339, row[6]); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	return out, nil
}
