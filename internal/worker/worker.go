// Package worker drains the shared job queue on a machine with generation
// capacity. It claims one pending job at a time, renders it and writes the
// outcome back to the job store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"videogen/internal/domain"
	"videogen/internal/generator"
	"videogen/internal/infra"
	"videogen/internal/jobstore"
	"videogen/internal/storage"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultErrorBackoff = 10 * time.Second
)

// Options wires a Worker.
type Options struct {
	Store     jobstore.Store
	Generator *generator.Generator
	Videos    *storage.VideoStore
	Logger    *infra.Logger

	// PollInterval is the sleep after an empty queue; ErrorBackoff the sleep
	// after a store failure. Zero means the defaults.
	PollInterval time.Duration
	ErrorBackoff time.Duration
}

// Worker runs the claim-render-report loop.
type Worker struct {
	store        jobstore.Store
	generator    *generator.Generator
	videos       *storage.VideoStore
	logger       *infra.Logger
	pollInterval time.Duration
	errorBackoff time.Duration
}

func New(opts Options) (*Worker, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("worker: job store is required")
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("worker: generator is required")
	}
	if opts.Videos == nil {
		return nil, fmt.Errorf("worker: video store is required")
	}

	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	errorBackoff := opts.ErrorBackoff
	if errorBackoff <= 0 {
		errorBackoff = defaultErrorBackoff
	}

	return &Worker{
		store:        opts.Store,
		generator:    opts.Generator,
		videos:       opts.Videos,
		logger:       logger,
		pollInterval: pollInterval,
		errorBackoff: errorBackoff,
	}, nil
}

// Run polls the queue until ctx is cancelled. A failing job never stops the
// loop; its failure is recorded on the job itself.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Str("model", w.generator.ModelID()).Msg("worker: started")
	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info().Msg("worker: stopping")
			return err
		}

		job, err := w.store.ClaimPendingJob(ctx, w.generator.ModelID())
		switch {
		case errors.Is(err, domain.ErrNotFound):
			w.wait(ctx, w.pollInterval)
			continue
		case err != nil:
			w.logger.Error().Err(err).Msg("worker: claim failed")
			w.wait(ctx, w.errorBackoff)
			continue
		}

		w.logger.Info().Str("job_id", job.ID).Msg("worker: processing job")
		if err := w.Process(ctx, job); err != nil {
			w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: job failed")
		} else {
			w.logger.Info().Str("job_id", job.ID).Msg("worker: job completed")
		}
	}
}

// Process renders one claimed job and records the terminal state. The
// returned error mirrors what was written to the job.
func (w *Worker) Process(ctx context.Context, job *domain.Job) error {
	s := job.Settings.Normalize()
	prompt := s.StylePrefix() + job.Prompt

	data, err := w.generator.Generate(ctx, prompt, s, nil)
	if err != nil {
		w.fail(ctx, job.ID, err)
		return err
	}

	videoPath, err := w.videos.Write(ctx, job.ID+".mp4", data)
	if err != nil {
		w.fail(ctx, job.ID, err)
		return err
	}

	resolution := fmt.Sprintf("%dx%d", s.Width, s.Height)
	if err := jobstore.CompleteJob(ctx, w.store, job.ID, videoPath, resolution); err != nil {
		return fmt.Errorf("worker: record completion: %w", err)
	}
	return nil
}

func (w *Worker) fail(ctx context.Context, jobID string, cause error) {
	if err := jobstore.FailJob(ctx, w.store, jobID, cause.Error()); err != nil {
		w.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: record failure failed")
	}
}

func (w *Worker) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
