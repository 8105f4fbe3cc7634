package deployapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, r *gin.Engine, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return NewClient(&Config{BaseURL: srv.URL, Token: token}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestClient_CreateDeployment(t *testing.T) {
	var gotAuth string
	var gotBody CreateDeploymentRequest

	r := gin.New()
	r.POST("/acme/bucket-time/dev/deployments", func(c *gin.Context) {
		gotAuth = c.GetHeader("Authorization")
		assert.NoError(t, c.ShouldBindJSON(&gotBody))
		c.JSON(http.StatusAccepted, gin.H{"id": "dep-1", "consoleUrl": "https://console/dep-1"})
	})

	client := newTestClient(t, r, "secret")
	resp, err := client.CreateDeployment(context.Background(), StackRef{Org: "acme", Project: "bucket-time", Stack: "dev"}, &CreateDeploymentRequest{
		OperationContext: OperationContext{
			Operation:            "update",
			PreRunCommands:       []string{},
			EnvironmentVariables: map[string]string{"AWS_REGION": "us-west-2"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "dep-1", resp.ID)
	assert.Equal(t, "https://console/dep-1", resp.ConsoleURL)
	assert.Equal(t, "token secret", gotAuth)
	assert.Equal(t, "update", gotBody.OperationContext.Operation)
	assert.Equal(t, "us-west-2", gotBody.OperationContext.EnvironmentVariables["AWS_REGION"])
}

func TestClient_GetDeploymentLogs(t *testing.T) {
	var gotQuery map[string]string

	r := gin.New()
	r.GET("/acme/web/prod/deployments/dep-2/logs", func(c *gin.Context) {
		gotQuery = map[string]string{
			"job":    c.Query("job"),
			"step":   c.Query("step"),
			"offset": c.Query("offset"),
		}
		c.JSON(http.StatusOK, gin.H{
			"lines":      []gin.H{{"timestamp": "t1", "line": "hello"}},
			"nextOffset": 7,
		})
	})

	client := newTestClient(t, r, "secret")
	page, err := client.GetDeploymentLogs(context.Background(), StackRef{Org: "acme", Project: "web", Stack: "prod"}, "dep-2", LogQuery{Job: 0, Step: 3, Offset: 5})

	require.NoError(t, err)
	require.Len(t, page.Lines, 1)
	assert.Equal(t, "hello", page.Lines[0].Line)
	require.NotNil(t, page.NextOffset)
	assert.Equal(t, 7, *page.NextOffset)
	assert.Equal(t, map[string]string{"job": "0", "step": "3", "offset": "5"}, gotQuery)
}

func TestClient_GetDeployment(t *testing.T) {
	r := gin.New()
	r.GET("/acme/web/prod/deployments/dep-3", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "running",
			"jobs":   []gin.H{{"steps": []gin.H{{"name": "clone"}, {"name": "up"}}}},
		})
	})

	client := newTestClient(t, r, "")
	status, err := client.GetDeployment(context.Background(), StackRef{Org: "acme", Project: "web", Stack: "prod"}, "dep-3")

	require.NoError(t, err)
	assert.Equal(t, "running", status.Status)
	assert.Equal(t, 2, status.TotalSteps(0))
	assert.Equal(t, 0, status.TotalSteps(1))
}

func TestClient_RemoteCallError(t *testing.T) {
	r := gin.New()
	r.GET("/acme/web/prod/deployments/missing", func(c *gin.Context) {
		c.String(http.StatusNotFound, "deployment not found")
	})

	client := newTestClient(t, r, "secret")
	_, err := client.GetDeployment(context.Background(), StackRef{Org: "acme", Project: "web", Stack: "prod"}, "missing")

	require.Error(t, err)
	var remoteErr *RemoteCallError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusNotFound, remoteErr.StatusCode)
	assert.Equal(t, "/acme/web/prod/deployments/missing", remoteErr.Path)
	assert.Equal(t, "deployment not found", remoteErr.Body)
	assert.True(t, IsNotFound(err))
}

func TestClient_CallDecodeError(t *testing.T) {
	r := gin.New()
	r.GET("/broken", func(c *gin.Context) {
		c.String(http.StatusOK, "not json")
	})

	client := newTestClient(t, r, "secret")
	var out map[string]any
	err := client.Call(context.Background(), http.MethodGet, "/broken", nil, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
	assert.False(t, IsNotFound(err))
}

func TestDeploymentStatus_TotalStepsNil(t *testing.T) {
	var status *DeploymentStatus
	assert.Equal(t, 0, status.TotalSteps(0))
}
