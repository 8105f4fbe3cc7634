package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/deploy-orchestrator/internal/api/dto"
	"github.com/cuongbtq/deploy-orchestrator/internal/api/handler"
	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/storage"
	"github.com/cuongbtq/deploy-orchestrator/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeOrchestrator struct {
	mu       sync.Mutex
	jobs     []*domain.Job
	err      error
	requests []domain.Request
	launched [][]*domain.Job
}

func (f *fakeOrchestrator) Submit(_ context.Context, reqs []domain.Request) ([]*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, reqs...)
	return f.jobs, f.err
}

func (f *fakeOrchestrator) Launch(_ context.Context, jobs []*domain.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launched = append(f.launched, jobs)
}

type testServer struct {
	router *gin.Engine
	store  *storage.MemoryStore
	orch   *fakeOrchestrator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := storage.NewMemoryStore()
	orch := &fakeOrchestrator{}
	r := SetupRouter(&handler.Dependencies{
		Logger:       logger.NewDiscard().Logger,
		Store:        store,
		Orchestrator: orch,
		ServiceName:  "deploy-orchestrator",
	})

	return &testServer{router: r, store: store, orch: orch}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func seedJob(t *testing.T, store storage.Store, id string, submittedAt time.Time, status string) *domain.Job {
	t.Helper()

	job := &domain.Job{
		ID:          id,
		BatchID:     "batch-1",
		Workload:    domain.WorkloadSimpleResource,
		Operation:   domain.OperationUpdate,
		Target:      "dev",
		Status:      status,
		SubmittedAt: submittedAt,
		UpdatedAt:   submittedAt,
	}
	require.NoError(t, store.SaveJob(context.Background(), job))
	return job
}

func TestHealth(t *testing.T) {
	t.Run("healthy without checks", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"healthy"`)
	})

	t.Run("unhealthy when check fails", func(t *testing.T) {
		r := SetupRouter(&handler.Dependencies{
			Logger:      logger.NewDiscard().Logger,
			Store:       storage.NewMemoryStore(),
			HealthCheck: func(context.Context) error { return errors.New("db down") },
		})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "db down")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestCreateDeployments(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name         string
		body         string
		jobs         []*domain.Job
		err          error
		wantStatus   int
		wantLaunched int
		wantErrors   int
	}{
		{
			name:       "invalid body",
			body:       `{"deployments": "nope"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty batch",
			body:       `{"deployments": []}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "all accepted",
			body: `{"deployments": [{"workload": "simple-resource", "operation": "update"}]}`,
			jobs: []*domain.Job{
				{ID: "job-1", Workload: domain.WorkloadSimpleResource, Operation: domain.OperationUpdate, Target: "dev", SubmittedAt: now, UpdatedAt: now},
			},
			wantStatus:   http.StatusAccepted,
			wantLaunched: 1,
		},
		{
			name: "partially accepted",
			body: `{"deployments": [{"workload": "simple-resource"}, {"workload": "nope"}]}`,
			jobs: []*domain.Job{
				{ID: "job-1", Workload: domain.WorkloadSimpleResource, SubmittedAt: now, UpdatedAt: now},
			},
			err:          multierror.Append(nil, &domain.UnsupportedWorkloadError{Kind: "nope"}),
			wantStatus:   http.StatusAccepted,
			wantLaunched: 1,
			wantErrors:   1,
		},
		{
			name:       "nothing accepted",
			body:       `{"deployments": [{"workload": "nope"}]}`,
			err:        multierror.Append(nil, &domain.UnsupportedWorkloadError{Kind: "nope"}),
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.orch.jobs = tt.jobs
			s.orch.err = tt.err

			w := s.do(t, http.MethodPost, "/api/v1/deployments", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Len(t, s.orch.launched, tt.wantLaunched)

			if tt.wantStatus != http.StatusAccepted {
				return
			}

			var resp dto.CreateDeploymentsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Len(t, resp.Deployments, len(tt.jobs))
			assert.Equal(t, "job-1", resp.Deployments[0].JobID)
			assert.Equal(t, "DEPLOYING", resp.Deployments[0].Summary)
			assert.Len(t, resp.Errors, tt.wantErrors)
		})
	}
}

func TestGetDeployment(t *testing.T) {
	s := newTestServer(t)
	seedJob(t, s.store, "job-1", time.Now().UTC(), domain.StatusSucceeded)

	t.Run("found", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/deployments/job-1", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.DeploymentDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "job-1", resp.JobID)
		assert.Equal(t, domain.StatusSucceeded, resp.Status)
		assert.Equal(t, "READY", resp.Summary)
	})

	t.Run("not found", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/deployments/missing", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListDeployments_Pagination(t *testing.T) {
	s := newTestServer(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"job-a", "job-b", "job-c"} {
		seedJob(t, s.store, id, base.Add(time.Duration(i)*time.Minute), domain.StatusRunning)
	}

	w := s.do(t, http.MethodGet, "/api/v1/deployments?page_size=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var first dto.ListDeploymentsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.Len(t, first.Deployments, 2)
	assert.Equal(t, "job-c", first.Deployments[0].JobID)
	assert.Equal(t, "job-b", first.Deployments[1].JobID)
	require.NotEmpty(t, first.NextCursor)

	w = s.do(t, http.MethodGet, "/api/v1/deployments?page_size=2&cursor="+first.NextCursor, "")
	require.Equal(t, http.StatusOK, w.Code)

	var second dto.ListDeploymentsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	require.Len(t, second.Deployments, 1)
	assert.Equal(t, "job-a", second.Deployments[0].JobID)
	assert.Empty(t, second.NextCursor)
}

func TestListDeployments_InvalidCursor(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/deployments?cursor=not-base64!!", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDeploymentLogs(t *testing.T) {
	s := newTestServer(t)
	seedJob(t, s.store, "job-1", time.Now().UTC(), domain.StatusRunning)
	require.NoError(t, s.store.AppendLogLines(context.Background(), "job-1", []string{"t1: a", "t2: b", "step: 1", "t3: c"}))

	w := s.do(t, http.MethodGet, "/api/v1/deployments/job-1/logs?page_size=3", "")
	require.Equal(t, http.StatusOK, w.Code)

	var first dto.ListLogsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, []string{"t1: a", "t2: b", "step: 1"}, first.Lines)
	require.NotEmpty(t, first.NextCursor)

	w = s.do(t, http.MethodGet, "/api/v1/deployments/job-1/logs?page_size=3&cursor="+first.NextCursor, "")
	require.Equal(t, http.StatusOK, w.Code)

	var second dto.ListLogsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, []string{"t3: c"}, second.Lines)
	assert.Empty(t, second.NextCursor)

	w = s.do(t, http.MethodGet, "/api/v1/deployments/missing/logs", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodOptions, "/api/v1/deployments", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
