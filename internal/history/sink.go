package history

import (
	"io"

	"github.com/rs/zerolog"

	"videogen/internal/domain"
	"videogen/internal/infra"
)

// EventSink receives pipeline events destined for the side stores. Every
// method is best-effort: implementations log failures instead of returning
// them, so a broken side store never fails a generation.
type EventSink interface {
	VideoGenerated(entry domain.HistoryEntry, rec domain.VideoRecord)
	PromptAnalyzed(entry domain.SearchEntry)
	CloudSubmitted(sub CloudSubmission)
}

// Sink fans pipeline events out to the local side stores.
type Sink struct {
	store  *Store
	search *SearchStore
	csv    *CSVStore
	queue  *CloudQueue
	logger *infra.Logger
}

// NewSink builds a Sink. Any store may be nil; its events are dropped.
func NewSink(store *Store, search *SearchStore, csv *CSVStore, queue *CloudQueue, logger *infra.Logger) *Sink {
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Sink{store: store, search: search, csv: csv, queue: queue, logger: logger}
}

func (s *Sink) VideoGenerated(entry domain.HistoryEntry, rec domain.VideoRecord) {
	if s.store != nil {
		if _, err := s.store.Add(entry); err != nil {
			s.logger.Warn().Err(err).Msg("history: record generation failed")
		}
	}
	if s.csv != nil {
		if _, err := s.csv.Append(rec); err != nil {
			s.logger.Warn().Err(err).Msg("history: csv append failed")
		}
	}
}

func (s *Sink) PromptAnalyzed(entry domain.SearchEntry) {
	if s.search == nil {
		return
	}
	if _, err := s.search.Add(entry); err != nil {
		s.logger.Warn().Err(err).Msg("history: record analysis failed")
	}
}

func (s *Sink) CloudSubmitted(sub CloudSubmission) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Add(sub); err != nil {
		s.logger.Warn().Err(err).Msg("history: record submission failed")
	}
}

// NopSink drops every event. Useful for the worker, which writes results to
// the job store only.
type NopSink struct{}

func (NopSink) VideoGenerated(domain.HistoryEntry, domain.VideoRecord) {}
func (NopSink) PromptAnalyzed(domain.SearchEntry)                      {}
func (NopSink) CloudSubmitted(CloudSubmission)                         {}
