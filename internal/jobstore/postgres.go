package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"videogen/internal/domain"
)

// PostgresStore is the primary job queue backed by a video_jobs table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the video_jobs table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS video_jobs (
    id           UUID PRIMARY KEY,
    prompt       TEXT NOT NULL,
    settings     JSONB NOT NULL DEFAULT '{}'::jsonb,
    status       TEXT NOT NULL DEFAULT 'pending',
    video_url    TEXT NOT NULL DEFAULT '',
    error        TEXT NOT NULL DEFAULT '',
    model_used   TEXT NOT NULL DEFAULT '',
    resolution   TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_video_jobs_pending
    ON video_jobs (created_at) WHERE status = 'pending';
`)
	if err != nil {
		return fmt.Errorf("jobstore: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, prompt string, settings domain.Settings) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", domain.ErrInvalidPrompt
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("jobstore: marshal settings: %w", err)
	}

	id := uuid.NewString()
	_, err = s.pool.Exec(ctx, `
INSERT INTO video_jobs (id, prompt, settings, status, created_at)
VALUES ($1, $2, $3, $4, now())`,
		id, prompt, settingsJSON, domain.JobStatusPending)
	if err != nil {
		return "", fmt.Errorf("jobstore: create job: %w", err)
	}
	return id, nil
}

const jobColumns = `id, prompt, settings, status, video_url, error, model_used, resolution, created_at, completed_at`

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM video_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("jobstore: get job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, id string, upd Update) error {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.VideoURL != nil {
		add("video_url", *upd.VideoURL)
	}
	if upd.Error != nil {
		add("error", *upd.Error)
	}
	if upd.ModelUsed != nil {
		add("model_used", *upd.ModelUsed)
	}
	if upd.Resolution != nil {
		add("resolution", *upd.Resolution)
	}
	if upd.CompletedAt != nil {
		add("completed_at", *upd.CompletedAt)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE video_jobs SET %s WHERE id = $%d",
		strings.Join(sets, ", "), len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("jobstore: update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimPendingJob flips the oldest pending job to processing in a single
// statement. SKIP LOCKED keeps concurrent workers from fighting over the
// same row.
func (s *PostgresStore) ClaimPendingJob(ctx context.Context, modelUsed string) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx, `
WITH next_job AS (
    SELECT id FROM video_jobs
    WHERE status = $1
    ORDER BY created_at
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
UPDATE video_jobs j
SET status = $2, model_used = $3
FROM next_job
WHERE j.id = next_job.id
RETURNING j.`+strings.ReplaceAll(jobColumns, ", ", ", j."),
		domain.JobStatusPending, domain.JobStatusProcessing, modelUsed)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("jobstore: claim job: %w", err)
	}
	return job, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job          domain.Job
		settingsJSON []byte
		completedAt  *time.Time
	)
	err := row.Scan(
		&job.ID, &job.Prompt, &settingsJSON, &job.Status,
		&job.VideoURL, &job.Error, &job.ModelUsed, &job.Resolution,
		&job.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &job.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}
	if completedAt != nil {
		job.CompletedAt = *completedAt
	}
	return &job, nil
}
