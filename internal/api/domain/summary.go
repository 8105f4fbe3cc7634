package domain

import orchestrator "github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"

// Summary values shown to API clients
const (
	SummaryDeploying = "DEPLOYING"
	SummaryReady     = "READY"
	SummaryFailed    = "FAILED"
)

// Summarize collapses a deployment's state into a summary value. A job the
// monitor gave up on is reported as failed.
func Summarize(job *orchestrator.Job) string {
	switch {
	case job.Degraded:
		return SummaryFailed
	case !job.Terminal():
		return SummaryDeploying
	case job.Status == orchestrator.StatusSucceeded:
		return SummaryReady
	default:
		return SummaryFailed
	}
}
