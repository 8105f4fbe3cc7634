package dto

import "github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"

type CreateDeploymentsRequest struct {
	Deployments []domain.Request `json:"deployments" binding:"required,min=1"`
}

type CreateDeploymentsResponse struct {
	Deployments []DeploymentDTO `json:"deployments"`
	// Errors lists requests that were not accepted by the service
	Errors []string `json:"errors,omitempty"`
}

type ListDeploymentsRequest struct {
	Workload string `form:"workload"`
	Status   string `form:"status"`
	BatchID  string `form:"batch_id"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListDeploymentsResponse struct {
	Deployments []DeploymentDTO `json:"deployments"`
	NextCursor  string          `json:"next_cursor,omitempty"`
}

type DeploymentDTO struct {
	JobID       string `json:"job_id"`
	BatchID     string `json:"batch_id,omitempty"`
	Workload    string `json:"workload"`
	Operation   string `json:"operation"`
	Target      string `json:"target"`
	Status      string `json:"status"`
	Summary     string `json:"summary"`
	ConsoleURL  string `json:"console_url,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	SubmittedAt string `json:"submitted_at"`
	UpdatedAt   string `json:"updated_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

type ListLogsRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListLogsResponse struct {
	JobID      string   `json:"job_id"`
	Lines      []string `json:"lines"`
	NextCursor string   `json:"next_cursor,omitempty"`
}
