package domain

import (
	"testing"

	orchestrator "github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		job  orchestrator.Job
		want string
	}{
		{name: "no status yet", job: orchestrator.Job{}, want: SummaryDeploying},
		{name: "accepted", job: orchestrator.Job{Status: orchestrator.StatusAccepted}, want: SummaryDeploying},
		{name: "running", job: orchestrator.Job{Status: orchestrator.StatusRunning}, want: SummaryDeploying},
		{name: "succeeded", job: orchestrator.Job{Status: orchestrator.StatusSucceeded}, want: SummaryReady},
		{name: "failed", job: orchestrator.Job{Status: orchestrator.StatusFailed}, want: SummaryFailed},
		{name: "unknown terminal status", job: orchestrator.Job{Status: "skipped"}, want: SummaryFailed},
		{name: "degraded while running", job: orchestrator.Job{Status: orchestrator.StatusRunning, Degraded: true}, want: SummaryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(&tt.job))
		})
	}
}
