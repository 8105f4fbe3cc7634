package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
)

var ErrJobNotFound = errors.New("deployment not found")

// Store persists deployment records and the log lines surfaced for them
type Store interface {
	// SaveJob inserts the job or overwrites the stored record with the same id
	SaveJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	// ListJobs returns up to PageSize+1 jobs, newest first, so callers can
	// tell whether another page exists
	ListJobs(ctx context.Context, filter JobFilter) ([]*domain.Job, error)
	AppendLogLines(ctx context.Context, jobID string, lines []string) error
	// ListLogLines returns up to limit+1 lines with Seq greater than afterSeq
	ListLogLines(ctx context.Context, jobID string, afterSeq int64, limit int) ([]LogLine, error)
}

type JobFilter struct {
	Workload string
	Status   string
	BatchID  string
	PageSize int
	Cursor   *JobCursor
}

type JobCursor struct {
	SubmittedAt time.Time
	JobID       string
}

// LogLine is one stored log line. Seq increases in the order lines were
// appended.
type LogLine struct {
	Seq       int64     `db:"seq" json:"seq"`
	JobID     string    `db:"job_id" json:"job_id"`
	Line      string    `db:"line" json:"line"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func cloneJob(job *domain.Job) *domain.Job {
	c := *job
	if job.Cursor != nil {
		cursor := *job.Cursor
		c.Cursor = &cursor
	}
	if job.CompletedAt != nil {
		completed := *job.CompletedAt
		c.CompletedAt = &completed
	}
	return &c
}

// before reports whether a sorts after b in newest-first order
func before(a *domain.Job, b JobCursor) bool {
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.ID < b.JobID
}
