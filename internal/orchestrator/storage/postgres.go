package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/cuongbtq/deploy-orchestrator/shared/postgresql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS deployments (
		job_id       TEXT PRIMARY KEY,
		batch_id     TEXT NOT NULL DEFAULT '',
		workload     TEXT NOT NULL,
		operation    TEXT NOT NULL,
		target       TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT '',
		console_url  TEXT NOT NULL DEFAULT '',
		degraded     BOOLEAN NOT NULL DEFAULT FALSE,
		last_error   TEXT NOT NULL DEFAULT '',
		submitted_at TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deployments_submitted
		ON deployments (submitted_at DESC, job_id DESC)`,
	`CREATE TABLE IF NOT EXISTS deployment_logs (
		seq        BIGSERIAL PRIMARY KEY,
		job_id     TEXT NOT NULL REFERENCES deployments (job_id) ON DELETE CASCADE,
		line       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deployment_logs_job ON deployment_logs (job_id, seq)`,
}

// PostgresStore persists deployments with sqlx
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStore creates the store and makes sure its tables exist
func NewPostgresStore(ctx context.Context, pg *postgresql.Client, logger *slog.Logger) (*PostgresStore, error) {
	if err := pg.Migrate(ctx, schema...); err != nil {
		return nil, fmt.Errorf("failed to prepare deployment schema: %w", err)
	}

	return &PostgresStore{
		db:     pg.GetDB(),
		logger: logger,
	}, nil
}

type deploymentRow struct {
	JobID       string       `db:"job_id"`
	BatchID     string       `db:"batch_id"`
	Workload    string       `db:"workload"`
	Operation   string       `db:"operation"`
	Target      string       `db:"target"`
	Status      string       `db:"status"`
	ConsoleURL  string       `db:"console_url"`
	Degraded    bool         `db:"degraded"`
	LastError   string       `db:"last_error"`
	SubmittedAt time.Time    `db:"submitted_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
	CompletedAt sql.NullTime `db:"completed_at"`
}

func toRow(job *domain.Job) deploymentRow {
	row := deploymentRow{
		JobID:       job.ID,
		BatchID:     job.BatchID,
		Workload:    string(job.Workload),
		Operation:   string(job.Operation),
		Target:      job.Target,
		Status:      job.Status,
		ConsoleURL:  job.ConsoleURL,
		Degraded:    job.Degraded,
		LastError:   job.LastError,
		SubmittedAt: job.SubmittedAt,
		UpdatedAt:   job.UpdatedAt,
	}
	if job.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: *job.CompletedAt, Valid: true}
	}
	return row
}

func (r deploymentRow) toJob() *domain.Job {
	job := &domain.Job{
		ID:          r.JobID,
		BatchID:     r.BatchID,
		Workload:    domain.WorkloadKind(r.Workload),
		Operation:   domain.Operation(r.Operation),
		Target:      r.Target,
		Status:      r.Status,
		ConsoleURL:  r.ConsoleURL,
		Degraded:    r.Degraded,
		LastError:   r.LastError,
		SubmittedAt: r.SubmittedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.CompletedAt.Valid {
		completed := r.CompletedAt.Time
		job.CompletedAt = &completed
	}
	return job
}

const deploymentColumns = `
	job_id, batch_id, workload, operation, target, status, console_url,
	degraded, last_error, submitted_at, updated_at, completed_at
`

func (s *PostgresStore) SaveJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO deployments (` + deploymentColumns + `)
		VALUES (
			:job_id, :batch_id, :workload, :operation, :target, :status, :console_url,
			:degraded, :last_error, :submitted_at, :updated_at, :completed_at
		)
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			console_url = EXCLUDED.console_url,
			degraded = EXCLUDED.degraded,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at
	`

	if _, err := s.db.NamedExecContext(ctx, query, toRow(job)); err != nil {
		return fmt.Errorf("failed to save deployment: %w", err)
	}

	s.logger.Debug("Deployment saved",
		slog.String("job_id", job.ID),
		slog.String("status", job.Status),
	)
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE job_id = $1`

	var row deploymentRow
	if err := s.db.GetContext(ctx, &row, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}

	return row.toJob(), nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*domain.Job, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE 1=1`
	args := []any{}
	argIdx := 1

	if filter.Workload != "" {
		query += fmt.Sprintf(" AND workload = $%d", argIdx)
		args = append(args, filter.Workload)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.BatchID != "" {
		query += fmt.Sprintf(" AND batch_id = $%d", argIdx)
		args = append(args, filter.BatchID)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (submitted_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.SubmittedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY submitted_at DESC, job_id DESC"

	if filter.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.PageSize+1)
	}

	var rows []deploymentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	jobs := make([]*domain.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, row.toJob())
	}
	return jobs, nil
}

func (s *PostgresStore) AppendLogLines(ctx context.Context, jobID string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	query := `
		INSERT INTO deployment_logs (job_id, line)
		SELECT $1, l FROM unnest($2::text[]) WITH ORDINALITY AS t(l, ord)
		ORDER BY ord
	`

	if _, err := s.db.ExecContext(ctx, query, jobID, pq.Array(lines)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return ErrJobNotFound
		}
		return fmt.Errorf("failed to append log lines: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListLogLines(ctx context.Context, jobID string, afterSeq int64, limit int) ([]LogLine, error) {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}

	query := `
		SELECT seq, job_id, line, created_at
		FROM deployment_logs
		WHERE job_id = $1 AND seq > $2
		ORDER BY seq
	`
	args := []any{jobID, afterSeq}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit+1)
	}

	var lines []LogLine
	if err := s.db.SelectContext(ctx, &lines, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list log lines: %w", err)
	}

	return lines, nil
}
