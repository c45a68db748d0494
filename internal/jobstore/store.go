// Package jobstore persists the shared queue of deferred generation jobs.
// Postgres is the primary store; a document REST endpoint serves as a
// best-effort fallback for submissions when the database is unreachable.
package jobstore

import (
	"context"
	"time"

	"videogen/internal/domain"
)

// Update is a partial job update. Nil fields are left untouched.
type Update struct {
	Status      *domain.JobStatus
	VideoURL    *string
	Error       *string
	ModelUsed   *string
	Resolution  *string
	CompletedAt *time.Time
}

// Store is the job queue contract shared by the API and the worker.
type Store interface {
	// CreateJob enqueues a pending job and returns its id.
	CreateJob(ctx context.Context, prompt string, settings domain.Settings) (string, error)

	// GetJob returns the job by id, or domain.ErrNotFound.
	GetJob(ctx context.Context, id string) (*domain.Job, error)

	// UpdateJob applies a partial update to the job.
	UpdateJob(ctx context.Context, id string, upd Update) error

	// ClaimPendingJob atomically takes ownership of the oldest pending job,
	// moving it to processing and stamping the model that will run it.
	// domain.ErrNotFound means the queue is empty.
	ClaimPendingJob(ctx context.Context, modelUsed string) (*domain.Job, error)
}

func statusPtr(s domain.JobStatus) *domain.JobStatus { return &s }
func strPtr(s string) *string                        { return &s }
func timePtr(t time.Time) *time.Time                 { return &t }

// CompleteJob marks a job finished with its video location and resolution.
func CompleteJob(ctx context.Context, s Store, id, videoURL, resolution string) error {
	return s.UpdateJob(ctx, id, Update{
		Status:      statusPtr(domain.JobStatusCompleted),
		VideoURL:    strPtr(videoURL),
		Resolution:  strPtr(resolution),
		CompletedAt: timePtr(time.Now().UTC()),
	})
}

// FailJob marks a job failed with a message. Failed jobs stay failed; a
// retry is a fresh submission.
func FailJob(ctx context.Context, s Store, id, message string) error {
	return s.UpdateJob(ctx, id, Update{
		Status:      statusPtr(domain.JobStatusError),
		Error:       strPtr(message),
		CompletedAt: timePtr(time.Now().UTC()),
	})
}
