package orchestrator

import (
	"context"
	"sync"

	"videogen/internal/domain"
)

// MaxRegenerate bounds how many times one prompt may be re-run.
const MaxRegenerate = 2

// pipelineRunner is the slice of Orchestrator the session drives.
type pipelineRunner interface {
	Generate(ctx context.Context, prompt string, settings domain.Settings, onProgress func(string)) (*Result, error)
}

// Session tracks the current prompt and its regeneration budget. A new
// prompt resets the budget; regeneration always re-runs the original prompt,
// not any refined rewrite of it.
type Session struct {
	mu            sync.Mutex
	orch          pipelineRunner
	prompt        string
	settings      domain.Settings
	regenerations int
}

func NewSession(orch pipelineRunner) *Session {
	return &Session{orch: orch}
}

// Start runs the pipeline for a fresh prompt and resets the regeneration
// counter.
func (s *Session) Start(ctx context.Context, prompt string, settings domain.Settings, onProgress func(string)) (*Result, error) {
	result, err := s.orch.Generate(ctx, prompt, settings, onProgress)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.prompt = prompt
	s.settings = settings
	s.regenerations = 0
	s.mu.Unlock()
	return result, nil
}

// Regenerate re-runs the pipeline with the session's original prompt. Each
// regenerate attempt spends one unit of the budget whether or not the run
// succeeds; after MaxRegenerate attempts the budget is exhausted until a new
// prompt arrives.
func (s *Session) Regenerate(ctx context.Context, onProgress func(string)) (*Result, error) {
	s.mu.Lock()
	prompt := s.prompt
	settings := s.settings
	if prompt == "" {
		s.mu.Unlock()
		return nil, domain.ErrInvalidPrompt
	}
	if s.regenerations >= MaxRegenerate {
		s.mu.Unlock()
		return nil, domain.ErrRegenerateExhausted
	}
	s.regenerations++
	s.mu.Unlock()

	return s.orch.Generate(ctx, prompt, settings, onProgress)
}

// Remaining reports how many regenerations are left for the current prompt.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prompt == "" {
		return 0
	}
	return MaxRegenerate - s.regenerations
}
