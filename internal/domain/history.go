package domain

import "time"

// HistoryEntry records a completed generation in the local history store.
type HistoryEntry struct {
	ID        int       `json:"id"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	VideoPath string    `json:"video_path"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchEntry records a user prompt with the language and analysis metadata
// gathered while it was processed.
type SearchEntry struct {
	ID               int       `json:"id"`
	OriginalPrompt   string    `json:"original_prompt"`
	LanguageDetected string    `json:"language_detected"`
	TranslatedPrompt string    `json:"translated_prompt,omitempty"`
	Intent           string    `json:"intent,omitempty"`
	Topic            string    `json:"topic,omitempty"`
	Emotions         []string  `json:"emotions,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// VideoRecord is the row shape of the CSV metadata export.
type VideoRecord struct {
	ID        int
	Prompt    string
	Model     string
	Settings  Settings
	VideoPath string
	Source    string // "local" or "cloud"
	CreatedAt time.Time
}
