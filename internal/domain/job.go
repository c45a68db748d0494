package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// Job is a unit of deferred video-generation work shared between the
// interactive process and the worker through the job store. The submitter
// creates it in state pending; only the worker that claims it moves it to
// processing and then to a terminal state. Failed jobs are never re-queued;
// resubmission is a new job.
type Job struct {
	ID          string
	Prompt      string
	Settings    Settings
	Status      JobStatus
	VideoURL    string
	Error       string
	ModelUsed   string
	Resolution  string
	CreatedAt   time.Time
	CompletedAt time.Time
}

// Terminal reports whether the job reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusError
}
