package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/storage"
)

// Orchestrator is the part of the engine the handlers drive
type Orchestrator interface {
	Submit(ctx context.Context, reqs []domain.Request) ([]*domain.Job, error)
	Launch(ctx context.Context, jobs []*domain.Job)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Store        storage.Store
	Orchestrator Orchestrator
	// MonitorContext bounds background monitors started by submissions. It
	// outlives any single request.
	MonitorContext context.Context
	// HealthCheck is optional and reports backing-service health
	HealthCheck func(ctx context.Context) error
	ServiceName string
}

// DeploymentHandler handles deployment-related HTTP requests
type DeploymentHandler struct {
	logger       *slog.Logger
	store        storage.Store
	orchestrator Orchestrator
	monitorCtx   context.Context
}

// NewDeploymentHandler creates a new DeploymentHandler instance
func NewDeploymentHandler(deps *Dependencies) *DeploymentHandler {
	monitorCtx := deps.MonitorContext
	if monitorCtx == nil {
		monitorCtx = context.Background()
	}

	return &DeploymentHandler{
		logger:       deps.Logger,
		store:        deps.Store,
		orchestrator: deps.Orchestrator,
		monitorCtx:   monitorCtx,
	}
}
