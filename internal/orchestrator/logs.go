package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/cuongbtq/deploy-orchestrator/shared/deployapi"
)

type logPager interface {
	GetDeploymentLogs(ctx context.Context, ref deployapi.StackRef, id string, query deployapi.LogQuery) (*deployapi.LogPage, error)
}

// LogFetcher pulls log lines for a job from where its cursor left off
type LogFetcher struct {
	logger *slog.Logger
	api    logPager
	org    string
}

func NewLogFetcher(logger *slog.Logger, api logPager, org string) *LogFetcher {
	return &LogFetcher{logger: logger, api: api, org: org}
}

// FetchNewLines returns every line that became available since the previous
// call, in server order, with a "step: <n>" marker before the first line of
// each step after the first. It may issue several page requests.
//
// Lines gathered before an error are returned alongside it; the cursor
// always reflects exactly what was returned, so the next call resumes
// without repeating or skipping lines.
func (f *LogFetcher) FetchNewLines(ctx context.Context, job *domain.Job, status *deployapi.DeploymentStatus) ([]string, error) {
	if job.Cursor == nil {
		job.Cursor = &domain.LogCursor{}
	}
	cursor := job.Cursor
	cursor.TotalSteps = status.TotalSteps(cursor.JobIndex)

	ref := deployapi.StackRef{Org: f.org, Project: string(job.Workload), Stack: job.Target}
	var lines []string

	for !cursor.Exhausted() {
		if err := ctx.Err(); err != nil {
			return lines, err
		}

		if cursor.StepIndex > cursor.AnnouncedStep {
			lines = append(lines, fmt.Sprintf("step: %d", cursor.StepIndex))
			cursor.AnnouncedStep = cursor.StepIndex
		}

		page, err := f.api.GetDeploymentLogs(ctx, ref, job.ID, deployapi.LogQuery{
			Job:    cursor.JobIndex,
			Step:   cursor.StepIndex,
			Offset: cursor.Offset,
		})
		if err != nil {
			return lines, fmt.Errorf("failed to fetch logs for step %d: %w", cursor.StepIndex, err)
		}

		if page.NextOffset != nil && *page.NextOffset <= cursor.Offset {
			return lines, &domain.NoProgressError{
				JobID:      job.ID,
				Step:       cursor.StepIndex,
				Offset:     cursor.Offset,
				NextOffset: *page.NextOffset,
			}
		}

		for _, l := range page.Lines {
			lines = append(lines, l.Timestamp+": "+l.Line)
		}

		if page.NextOffset != nil {
			cursor.Offset = *page.NextOffset
			continue
		}

		f.logger.Debug("Log step exhausted",
			slog.String("job_id", job.ID),
			slog.Int("step", cursor.StepIndex),
			slog.Int("total_steps", cursor.TotalSteps),
		)
		cursor.Offset = 0
		cursor.StepIndex++
	}

	return lines, nil
}
