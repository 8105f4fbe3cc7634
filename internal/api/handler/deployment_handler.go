package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	apidomain "github.com/cuongbtq/deploy-orchestrator/internal/api/domain"
	"github.com/cuongbtq/deploy-orchestrator/internal/api/dto"
	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/storage"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	defaultLogPage  = 500
	maxLogPage      = 5000
)

// CreateDeployments handles POST /api/v1/deployments
// Submits a batch and monitors it in the background
func (h *DeploymentHandler) CreateDeployments(c *gin.Context) {
	var req dto.CreateDeploymentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	jobs, err := h.orchestrator.Submit(c.Request.Context(), req.Deployments)
	errs := errorMessages(err)

	if len(jobs) == 0 {
		h.logger.Error("No deployments were submitted", slog.Int("requested", len(req.Deployments)))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  "No deployments were submitted",
			"errors": errs,
		})
		return
	}

	// Render before launching; the monitor owns the jobs from then on.
	resp := dto.CreateDeploymentsResponse{
		Deployments: make([]dto.DeploymentDTO, len(jobs)),
		Errors:      errs,
	}
	for i, job := range jobs {
		resp.Deployments[i] = toDeploymentDTO(job)
	}

	h.orchestrator.Launch(h.monitorCtx, jobs)

	c.JSON(http.StatusAccepted, resp)
}

// GetDeployment handles GET /api/v1/deployments/:job_id
func (h *DeploymentHandler) GetDeployment(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.store.GetJob(c.Request.Context(), jobID)
	if err != nil {
		h.storeError(c, "Failed to get deployment", jobID, err)
		return
	}

	c.JSON(http.StatusOK, toDeploymentDTO(job))
}

// ListDeployments handles GET /api/v1/deployments
// Lists deployments newest first with cursor pagination
func (h *DeploymentHandler) ListDeployments(c *gin.Context) {
	var req dto.ListDeploymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	req.PageSize = clampPageSize(req.PageSize, defaultPageSize, maxPageSize)

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), storage.JobFilter{
		Workload: req.Workload,
		Status:   req.Status,
		BatchID:  req.BatchID,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list deployments", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list deployments",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	resp := dto.ListDeploymentsResponse{
		Deployments: make([]dto.DeploymentDTO, len(jobs)),
	}
	for i, job := range jobs {
		resp.Deployments[i] = toDeploymentDTO(job)
	}

	if hasMore {
		last := jobs[len(jobs)-1]
		resp.NextCursor = EncodeJobCursor(&storage.JobCursor{
			SubmittedAt: last.SubmittedAt,
			JobID:       last.ID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// GetDeploymentLogs handles GET /api/v1/deployments/:job_id/logs
// Returns stored log lines in the order they were fetched
func (h *DeploymentHandler) GetDeploymentLogs(c *gin.Context) {
	jobID := c.Param("job_id")

	var req dto.ListLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	req.PageSize = clampPageSize(req.PageSize, defaultLogPage, maxLogPage)

	afterSeq, err := DecodeLogCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	lines, err := h.store.ListLogLines(c.Request.Context(), jobID, afterSeq, req.PageSize)
	if err != nil {
		h.storeError(c, "Failed to list log lines", jobID, err)
		return
	}

	hasMore := len(lines) > req.PageSize
	if hasMore {
		lines = lines[:req.PageSize]
	}

	resp := dto.ListLogsResponse{
		JobID: jobID,
		Lines: make([]string, len(lines)),
	}
	for i, l := range lines {
		resp.Lines[i] = l.Line
	}
	if hasMore {
		resp.NextCursor = EncodeLogCursor(lines[len(lines)-1].Seq)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *DeploymentHandler) storeError(c *gin.Context, msg, jobID string, err error) {
	if errors.Is(err, storage.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Deployment not found",
		})
		return
	}

	h.logger.Error(msg,
		slog.String("job_id", jobID),
		slog.String("error", err.Error()),
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": msg,
	})
}

func clampPageSize(size, fallback, limit int) int {
	if size <= 0 {
		return fallback
	}
	if size > limit {
		return limit
	}
	return size
}

func errorMessages(err error) []string {
	if err == nil {
		return nil
	}

	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return []string{err.Error()}
	}

	msgs := make([]string, len(merr.Errors))
	for i, e := range merr.Errors {
		msgs[i] = e.Error()
	}
	return msgs
}

func toDeploymentDTO(job *domain.Job) dto.DeploymentDTO {
	d := dto.DeploymentDTO{
		JobID:       job.ID,
		BatchID:     job.BatchID,
		Workload:    string(job.Workload),
		Operation:   string(job.Operation),
		Target:      job.Target,
		Status:      job.Status,
		Summary:     apidomain.Summarize(job),
		ConsoleURL:  job.ConsoleURL,
		LastError:   job.LastError,
		SubmittedAt: job.SubmittedAt.Format(time.RFC3339),
		UpdatedAt:   job.UpdatedAt.Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		d.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return d
}
