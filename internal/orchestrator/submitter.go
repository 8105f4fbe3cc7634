package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/deploy-orchestrator/internal/metrics"
	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/cuongbtq/deploy-orchestrator/shared/deployapi"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

type deploymentCreator interface {
	CreateDeployment(ctx context.Context, ref deployapi.StackRef, req *deployapi.CreateDeploymentRequest) (*deployapi.CreateDeploymentResponse, error)
}

// SubmitterConfig holds submitter dependencies
type SubmitterConfig struct {
	Logger        *slog.Logger
	API           deploymentCreator
	Org           string
	DefaultTarget string
	Source        SourceDefaults
	// Strategies defaults to DefaultStrategies()
	Strategies map[domain.WorkloadKind]PayloadStrategy
	Observer   Observer
}

// Submitter turns deployment requests into remote jobs
type Submitter struct {
	logger        *slog.Logger
	api           deploymentCreator
	org           string
	defaultTarget string
	source        SourceDefaults
	strategies    map[domain.WorkloadKind]PayloadStrategy
	observer      Observer
	metrics       *metrics.Metrics
}

// NewSubmitter creates a new submitter instance
func NewSubmitter(cfg *SubmitterConfig) *Submitter {
	strategies := cfg.Strategies
	if strategies == nil {
		strategies = DefaultStrategies()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = Observers{}
	}

	return &Submitter{
		logger:        cfg.Logger,
		api:           cfg.API,
		org:           cfg.Org,
		defaultTarget: cfg.DefaultTarget,
		source:        cfg.Source,
		strategies:    strategies,
		observer:      observer,
		metrics:       metrics.Get(),
	}
}

// Submit builds the payload for kind and posts it, returning the id the
// service assigned. It does not wait for the deployment to progress.
func (s *Submitter) Submit(ctx context.Context, kind domain.WorkloadKind, op domain.Operation, sc domain.SubmitContext) (string, error) {
	job, err := s.submit(ctx, "", domain.Request{Workload: kind, Operation: op, Context: sc})
	if err != nil {
		return "", err
	}
	return job.ID, nil
}

// SubmitBatch submits every request in order. A failed request does not
// stop the rest and never yields a Job; failures are aggregated into the
// returned error.
func (s *Submitter) SubmitBatch(ctx context.Context, reqs []domain.Request) ([]*domain.Job, error) {
	batchID := uuid.NewString()
	jobs := make([]*domain.Job, 0, len(reqs))
	var result *multierror.Error

	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}

		s.logger.Info("Submitting deployment",
			slog.Int("number", i+1),
			slog.Int("total", len(reqs)),
			slog.String("workload", string(req.Workload)),
			slog.String("operation", string(req.Operation)),
		)

		job, err := s.submit(ctx, batchID, req)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, result.ErrorOrNil()
}

func (s *Submitter) submit(ctx context.Context, batchID string, req domain.Request) (*domain.Job, error) {
	job, err := s.create(ctx, batchID, req)
	s.metrics.RecordSubmission(string(req.Workload), string(req.Operation), err)
	if err != nil {
		s.logger.Error("Failed to submit deployment",
			slog.String("workload", string(req.Workload)),
			slog.String("operation", string(req.Operation)),
			slog.String("error", err.Error()),
		)
		return nil, &domain.SubmitError{Workload: req.Workload, Operation: req.Operation, Err: err}
	}

	s.logger.Info("Deployment submitted",
		slog.String("job_id", job.ID),
		slog.String("workload", string(job.Workload)),
		slog.String("target", job.Target),
		slog.String("console_url", job.ConsoleURL),
	)
	s.observer.JobSubmitted(ctx, job)

	return job, nil
}

func (s *Submitter) create(ctx context.Context, batchID string, req domain.Request) (*domain.Job, error) {
	if !req.Operation.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedOperation, req.Operation)
	}

	strategy, ok := s.strategies[req.Workload]
	if !ok {
		return nil, &domain.UnsupportedWorkloadError{Kind: req.Workload}
	}

	target := req.Context.Target
	if target == "" {
		target = s.defaultTarget
	}
	sc := req.Context
	sc.Target = target

	payload, err := strategy.Build(req.Operation, sc, s.source)
	if err != nil {
		return nil, fmt.Errorf("failed to build payload: %w", err)
	}

	ref := deployapi.StackRef{Org: s.org, Project: string(req.Workload), Stack: target}
	resp, err := s.api.CreateDeployment(ctx, ref, payload)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, domain.ErrMissingJobID
	}

	now := time.Now().UTC()
	return &domain.Job{
		ID:          resp.ID,
		BatchID:     batchID,
		Workload:    req.Workload,
		Operation:   req.Operation,
		Target:      target,
		ConsoleURL:  resp.ConsoleURL,
		SubmittedAt: now,
		UpdatedAt:   now,
	}, nil
}
