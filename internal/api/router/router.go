package router

import (
	"net/http"

	"github.com/cuongbtq/deploy-orchestrator/internal/api/handler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": deps.ServiceName,
					"error":   err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": deps.ServiceName,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	deploymentHandler := handler.NewDeploymentHandler(deps)

	v1 := r.Group("/api/v1")
	{
		deployments := v1.Group("/deployments")
		{
			// POST /api/v1/deployments - Submit a batch of deployments
			deployments.POST("", deploymentHandler.CreateDeployments)

			// GET /api/v1/deployments - List deployments with filtering and pagination
			deployments.GET("", deploymentHandler.ListDeployments)

			// GET /api/v1/deployments/:job_id - Get deployment details
			deployments.GET("/:job_id", deploymentHandler.GetDeployment)

			// GET /api/v1/deployments/:job_id/logs - Read stored log lines
			deployments.GET("/:job_id/logs", deploymentHandler.GetDeploymentLogs)
		}
	}

	return r
}
