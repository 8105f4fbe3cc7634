package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
)

// Config holds orchestrator configuration
type Config struct {
	Logger                 *slog.Logger
	API                    DeploymentAPI
	Org                    string
	DefaultTarget          string
	Source                 SourceDefaults
	PollInterval           time.Duration
	MaxConsecutiveFailures int
	Observer               Observer
	OnCycle                func(CycleReport)
}

// Orchestrator submits deployment batches and monitors them to completion
type Orchestrator struct {
	logger    *slog.Logger
	submitter *Submitter
	poller    *Poller
	monitor   *Monitor
	wg        sync.WaitGroup
}

// RunResult reports the outcome of a submit-and-monitor run
type RunResult struct {
	Jobs []*domain.Job
	// SubmitErrors aggregates requests that never became jobs
	SubmitErrors error
	Monitor      *MonitorResult
}

// New creates a new orchestrator instance
func New(cfg *Config) *Orchestrator {
	observer := cfg.Observer
	if observer == nil {
		observer = Observers{}
	}

	poller := NewPoller(cfg.Logger, cfg.API, cfg.Org, observer)

	return &Orchestrator{
		logger: cfg.Logger,
		submitter: NewSubmitter(&SubmitterConfig{
			Logger:        cfg.Logger,
			API:           cfg.API,
			Org:           cfg.Org,
			DefaultTarget: cfg.DefaultTarget,
			Source:        cfg.Source,
			Observer:      observer,
		}),
		poller: poller,
		monitor: NewMonitor(&MonitorConfig{
			Logger:                 cfg.Logger,
			Poller:                 poller,
			Interval:               cfg.PollInterval,
			MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
			Observer:               observer,
			OnCycle:                cfg.OnCycle,
		}),
	}
}

// Submit submits a batch of requests without monitoring them
func (o *Orchestrator) Submit(ctx context.Context, reqs []domain.Request) ([]*domain.Job, error) {
	return o.submitter.SubmitBatch(ctx, reqs)
}

// Run submits every request and monitors the accepted ones until they are
// all terminal. The returned error is non-nil only when ctx ends the run.
func (o *Orchestrator) Run(ctx context.Context, reqs []domain.Request) (*RunResult, error) {
	jobs, submitErr := o.submitter.SubmitBatch(ctx, reqs)
	result := &RunResult{Jobs: jobs, SubmitErrors: submitErr}

	if len(jobs) == 0 {
		o.logger.Warn("No deployments were submitted", slog.Int("requested", len(reqs)))
		result.Monitor = &MonitorResult{}
		return result, ctx.Err()
	}

	monitorResult, err := o.monitor.MonitorAll(ctx, jobs)
	result.Monitor = monitorResult
	return result, err
}

// Watch monitors jobs that were submitted elsewhere
func (o *Orchestrator) Watch(ctx context.Context, jobs []*domain.Job) (*MonitorResult, error) {
	return o.monitor.MonitorAll(ctx, jobs)
}

// PollOnce refreshes a job once and surfaces whatever logs are available
func (o *Orchestrator) PollOnce(ctx context.Context, job *domain.Job) (bool, error) {
	return o.poller.Poll(ctx, job)
}

// Launch monitors jobs on a background goroutine. Each launch gets its own
// working set, so a slow batch does not stretch the polling period of
// others.
func (o *Orchestrator) Launch(ctx context.Context, jobs []*domain.Job) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		result, err := o.monitor.MonitorAll(ctx, jobs)
		if err != nil {
			o.logger.Warn("Background monitor stopped",
				slog.String("error", err.Error()),
			)
			return
		}
		if result.Errors != nil {
			o.logger.Warn("Background monitor finished with errors",
				slog.Int("completed", len(result.Completed)),
				slog.Int("degraded", len(result.Degraded)),
				slog.String("error", result.Errors.Error()),
			)
			return
		}
		o.logger.Info("Background monitor finished",
			slog.Int("completed", len(result.Completed)),
			slog.Int("cycles", result.Cycles),
		)
	}()
}

// Wait blocks until every launched monitor has returned
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
