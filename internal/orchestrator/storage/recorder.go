package storage

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
)

// Recorder mirrors job lifecycle notifications into a Store
type Recorder struct {
	logger *slog.Logger
	store  Store
}

func NewRecorder(logger *slog.Logger, store Store) *Recorder {
	return &Recorder{logger: logger, store: store}
}

func (r *Recorder) JobSubmitted(ctx context.Context, job *domain.Job) {
	r.save(ctx, job)
}

func (r *Recorder) StatusChanged(ctx context.Context, job *domain.Job, _ string) {
	r.save(ctx, job)
}

func (r *Recorder) LinesFetched(ctx context.Context, job *domain.Job, lines []string) {
	if err := r.store.AppendLogLines(ctx, job.ID, lines); err != nil {
		r.logger.Error("Failed to record log lines",
			slog.String("job_id", job.ID),
			slog.Int("lines", len(lines)),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Recorder) JobFinished(ctx context.Context, job *domain.Job) {
	r.save(ctx, job)
}

func (r *Recorder) save(ctx context.Context, job *domain.Job) {
	if err := r.store.SaveJob(ctx, job); err != nil {
		r.logger.Error("Failed to record deployment",
			slog.String("job_id", job.ID),
			slog.String("status", job.Status),
			slog.String("error", err.Error()),
		)
	}
}
