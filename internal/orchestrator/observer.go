package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
)

// Observer receives job lifecycle notifications. Implementations handle
// their own failures; the engine never waits on an observer's outcome.
type Observer interface {
	JobSubmitted(ctx context.Context, job *domain.Job)
	StatusChanged(ctx context.Context, job *domain.Job, previous string)
	LinesFetched(ctx context.Context, job *domain.Job, lines []string)
	JobFinished(ctx context.Context, job *domain.Job)
}

// Observers fans notifications out in order
type Observers []Observer

func (o Observers) JobSubmitted(ctx context.Context, job *domain.Job) {
	for _, obs := range o {
		obs.JobSubmitted(ctx, job)
	}
}

func (o Observers) StatusChanged(ctx context.Context, job *domain.Job, previous string) {
	for _, obs := range o {
		obs.StatusChanged(ctx, job, previous)
	}
}

func (o Observers) LinesFetched(ctx context.Context, job *domain.Job, lines []string) {
	for _, obs := range o {
		obs.LinesFetched(ctx, job, lines)
	}
}

func (o Observers) JobFinished(ctx context.Context, job *domain.Job) {
	for _, obs := range o {
		obs.JobFinished(ctx, job)
	}
}

// ConsolePrinter writes fetched log lines, prefixed with the job id, to an
// io.Writer
type ConsolePrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsolePrinter(out io.Writer) *ConsolePrinter {
	return &ConsolePrinter{out: out}
}

func (p *ConsolePrinter) JobSubmitted(context.Context, *domain.Job) {}

func (p *ConsolePrinter) StatusChanged(_ context.Context, job *domain.Job, previous string) {
	p.printf("[%s] status %s -> %s\n", job.ID, displayStatus(previous), displayStatus(job.Status))
}

func (p *ConsolePrinter) LinesFetched(_ context.Context, job *domain.Job, lines []string) {
	for _, line := range lines {
		p.printf("[%s] %s\n", job.ID, line)
	}
}

func (p *ConsolePrinter) JobFinished(_ context.Context, job *domain.Job) {
	if job.Degraded {
		p.printf("[%s] gave up: %s\n", job.ID, job.LastError)
		return
	}
	p.printf("[%s] finished: %s\n", job.ID, job.Status)
}

func (p *ConsolePrinter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, format, args...)
}

func displayStatus(status string) string {
	if status == "" {
		return "<none>"
	}
	return status
}
