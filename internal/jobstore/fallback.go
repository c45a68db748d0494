package jobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"videogen/internal/domain"
	"videogen/internal/infra"
)

// FallbackStore wraps the primary store with a REST fallback for the
// submit-and-poll operations. The fallback is tried exactly once per call;
// its own failure surfaces the primary error, since that is the one worth
// fixing.
type FallbackStore struct {
	primary Store
	rest    *RESTClient
	logger  *infra.Logger
}

func NewFallbackStore(primary Store, rest *RESTClient, logger *infra.Logger) *FallbackStore {
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &FallbackStore{primary: primary, rest: rest, logger: logger}
}

func (s *FallbackStore) CreateJob(ctx context.Context, prompt string, settings domain.Settings) (string, error) {
	id, err := s.primary.CreateJob(ctx, prompt, settings)
	if err == nil || s.rest == nil || errors.Is(err, domain.ErrInvalidPrompt) {
		return id, err
	}

	s.logger.Warn().Err(err).Msg("jobstore: primary create failed; trying rest fallback")
	restID, restErr := s.rest.CreateJob(ctx, prompt, settings)
	if restErr != nil {
		s.logger.Error().Err(restErr).Msg("jobstore: rest fallback create failed")
		return "", fmt.Errorf("jobstore: create job: %w", err)
	}
	return restID, nil
}

func (s *FallbackStore) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	job, err := s.primary.GetJob(ctx, id)
	if err == nil || s.rest == nil || errors.Is(err, domain.ErrNotFound) {
		return job, err
	}

	s.logger.Warn().Err(err).Str("job_id", id).Msg("jobstore: primary get failed; trying rest fallback")
	restJob, restErr := s.rest.GetJob(ctx, id)
	if restErr != nil {
		if errors.Is(restErr, domain.ErrNotFound) {
			return nil, restErr
		}
		s.logger.Error().Err(restErr).Str("job_id", id).Msg("jobstore: rest fallback get failed")
		return nil, fmt.Errorf("jobstore: get job: %w", err)
	}
	return restJob, nil
}

// UpdateJob and ClaimPendingJob stay on the primary store. The REST queue
// cannot claim atomically, and a worker without its database has no business
// taking jobs.
func (s *FallbackStore) UpdateJob(ctx context.Context, id string, upd Update) error {
	return s.primary.UpdateJob(ctx, id, upd)
}

func (s *FallbackStore) ClaimPendingJob(ctx context.Context, modelUsed string) (*domain.Job, error) {
	return s.primary.ClaimPendingJob(ctx, modelUsed)
}
