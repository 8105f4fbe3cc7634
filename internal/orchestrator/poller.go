package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/deploy-orchestrator/internal/metrics"
	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/cuongbtq/deploy-orchestrator/shared/deployapi"
)

type statusFetcher interface {
	GetDeployment(ctx context.Context, ref deployapi.StackRef, id string) (*deployapi.DeploymentStatus, error)
}

// DeploymentAPI is the slice of the deployment service the engine uses
type DeploymentAPI interface {
	deploymentCreator
	statusFetcher
	logPager
}

// Poller refreshes one job's status and pulls its new log lines
type Poller struct {
	logger   *slog.Logger
	api      statusFetcher
	fetcher  *LogFetcher
	org      string
	observer Observer
	metrics  *metrics.Metrics
}

func NewPoller(logger *slog.Logger, api DeploymentAPI, org string, observer Observer) *Poller {
	if observer == nil {
		observer = Observers{}
	}
	return &Poller{
		logger:   logger,
		api:      api,
		fetcher:  NewLogFetcher(logger, api, org),
		org:      org,
		observer: observer,
		metrics:  metrics.Get(),
	}
}

// Poll updates job.Status from the service and, once logs are queryable,
// surfaces new log lines to the observer. It reports whether the job is
// terminal. Failures are returned as-is; there is no retry here.
func (p *Poller) Poll(ctx context.Context, job *domain.Job) (bool, error) {
	terminal, err := p.poll(ctx, job)
	p.metrics.RecordPoll(err)
	return terminal, err
}

func (p *Poller) poll(ctx context.Context, job *domain.Job) (bool, error) {
	ref := deployapi.StackRef{Org: p.org, Project: string(job.Workload), Stack: job.Target}

	status, err := p.api.GetDeployment(ctx, ref, job.ID)
	if err != nil {
		return false, fmt.Errorf("failed to get deployment status: %w", err)
	}

	previous := job.Status
	job.Status = status.Status
	job.UpdatedAt = time.Now().UTC()
	terminal := domain.IsTerminal(job.Status)

	if previous != job.Status {
		p.logger.Info("Deployment status changed",
			slog.String("job_id", job.ID),
			slog.String("from", previous),
			slog.String("to", job.Status),
		)
		p.observer.StatusChanged(ctx, job, previous)
	}

	if !domain.LogsQueryable(job.Status) {
		p.logger.Debug("Logs not queryable yet",
			slog.String("job_id", job.ID),
			slog.String("status", job.Status),
		)
		return terminal, nil
	}

	lines, err := p.fetcher.FetchNewLines(ctx, job, status)
	if len(lines) > 0 {
		p.metrics.RecordLogLines(len(lines))
		p.observer.LinesFetched(ctx, job, lines)
	}

	var noProgress *domain.NoProgressError
	switch {
	case err == nil:
		return terminal, nil
	case errors.As(err, &noProgress):
		p.metrics.RecordNoProgress()
		level := slog.LevelDebug
		if terminal {
			level = slog.LevelWarn
		}
		p.logger.Log(ctx, level, "Log fetch stopped without progress",
			slog.String("job_id", job.ID),
			slog.Int("step", noProgress.Step),
			slog.Int("offset", noProgress.Offset),
		)
		return terminal, nil
	default:
		return terminal, err
	}
}
