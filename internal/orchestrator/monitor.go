package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/deploy-orchestrator/internal/metrics"
	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/hashicorp/go-multierror"
)

// DefaultPollInterval is used when MonitorConfig.Interval is not set
const DefaultPollInterval = 2 * time.Second

type jobPoller interface {
	Poll(ctx context.Context, job *domain.Job) (bool, error)
}

// CycleReport summarizes one polling cycle
type CycleReport struct {
	Cycle     int
	Completed int
	Remaining int
}

// MonitorResult is what MonitorAll hands back to its caller
type MonitorResult struct {
	Cycles    int
	Completed []*domain.Job
	Degraded  []*domain.Job
	// Pending holds jobs still non-terminal when monitoring was canceled
	Pending []*domain.Job
	// Errors aggregates every per-job poll failure seen along the way
	Errors error
}

// MonitorConfig holds monitor configuration
type MonitorConfig struct {
	Logger   *slog.Logger
	Poller   jobPoller
	Interval time.Duration
	// MaxConsecutiveFailures drops a job after this many failed polls in a
	// row. Zero keeps polling forever.
	MaxConsecutiveFailures int
	Observer               Observer
	OnCycle                func(CycleReport)
}

// Monitor drives a set of jobs through polling cycles until all are terminal.
// Jobs are polled one at a time in submission order.
type Monitor struct {
	logger      *slog.Logger
	poller      jobPoller
	interval    time.Duration
	maxFailures int
	observer    Observer
	onCycle     func(CycleReport)
	metrics     *metrics.Metrics
}

func NewMonitor(cfg *MonitorConfig) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	observer := cfg.Observer
	if observer == nil {
		observer = Observers{}
	}

	return &Monitor{
		logger:      cfg.Logger,
		poller:      cfg.Poller,
		interval:    interval,
		maxFailures: cfg.MaxConsecutiveFailures,
		observer:    observer,
		onCycle:     cfg.OnCycle,
		metrics:     metrics.Get(),
	}
}

// MonitorAll polls jobs until every one is terminal (or degraded). Jobs
// without an id are skipped. When ctx is canceled the partial result is
// returned together with ctx.Err().
func (m *Monitor) MonitorAll(ctx context.Context, jobs []*domain.Job) (*MonitorResult, error) {
	byID := make(map[string]*domain.Job, len(jobs))
	working := make([]string, 0, len(jobs))
	for _, job := range jobs {
		if job == nil || job.ID == "" {
			m.logger.Warn("Skipping job without id")
			continue
		}
		if _, dup := byID[job.ID]; dup {
			continue
		}
		byID[job.ID] = job
		working = append(working, job.ID)
	}

	result := &MonitorResult{}
	var errs *multierror.Error
	failures := make(map[string]int, len(working))

	m.metrics.AddActiveJobs(len(working))
	defer func() {
		m.metrics.AddActiveJobs(-len(working))
	}()

	m.logger.Info("Monitoring deployments",
		slog.Int("jobs", len(working)),
		slog.Duration("interval", m.interval),
	)

	for len(working) > 0 {
		if err := ctx.Err(); err != nil {
			return m.abort(result, errs, working, byID, err)
		}

		result.Cycles++
		done := make(map[string]bool)

		for _, id := range working {
			job := byID[id]

			terminal, err := m.poller.Poll(ctx, job)
			if err != nil {
				errs = multierror.Append(errs, &domain.PollError{JobID: id, Err: err})
				job.LastError = err.Error()
				failures[id]++
				m.logger.Error("Failed to poll deployment",
					slog.String("job_id", id),
					slog.Int("consecutive_failures", failures[id]),
					slog.String("error", err.Error()),
				)
			} else {
				failures[id] = 0
			}

			switch {
			case terminal:
				now := time.Now().UTC()
				job.CompletedAt = &now
				done[id] = true
				result.Completed = append(result.Completed, job)
				m.metrics.RecordFinished(job.Status)
				m.observer.JobFinished(ctx, job)
			case m.maxFailures > 0 && failures[id] >= m.maxFailures:
				job.Degraded = true
				done[id] = true
				result.Degraded = append(result.Degraded, job)
				errs = multierror.Append(errs, &domain.PollError{JobID: id, Err: domain.ErrJobDegraded})
				m.metrics.RecordFinished("degraded")
				m.observer.JobFinished(ctx, job)
			}

			if ctx.Err() != nil {
				break
			}
		}

		remaining := working[:0]
		for _, id := range working {
			if !done[id] {
				remaining = append(remaining, id)
			}
		}
		m.metrics.AddActiveJobs(len(remaining) - len(working))
		working = remaining
		m.metrics.RecordCycle()

		report := CycleReport{Cycle: result.Cycles, Completed: len(done), Remaining: len(working)}
		m.logger.Info("Finished polling deployments",
			slog.Int("cycle", report.Cycle),
			slog.Int("completed", report.Completed),
			slog.Int("remaining", report.Remaining),
		)
		if m.onCycle != nil {
			m.onCycle(report)
		}

		if len(working) == 0 {
			break
		}

		if err := m.sleep(ctx); err != nil {
			return m.abort(result, errs, working, byID, err)
		}
	}

	result.Errors = errs.ErrorOrNil()
	return result, nil
}

func (m *Monitor) abort(result *MonitorResult, errs *multierror.Error, working []string, byID map[string]*domain.Job, err error) (*MonitorResult, error) {
	for _, id := range working {
		result.Pending = append(result.Pending, byID[id])
	}
	result.Errors = errs.ErrorOrNil()

	m.logger.Warn("Monitoring canceled",
		slog.Int("pending", len(result.Pending)),
		slog.String("error", err.Error()),
	)
	return result, err
}

func (m *Monitor) sleep(ctx context.Context) error {
	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
