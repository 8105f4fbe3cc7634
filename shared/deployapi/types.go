package deployapi

import (
	"fmt"
	"net/url"
	"strconv"
)

// StackRef addresses one workload/target pair inside an organization
type StackRef struct {
	Org     string
	Project string
	Stack   string
}

func (r StackRef) String() string {
	return r.Org + "/" + r.Project + "/" + r.Stack
}

func (r StackRef) deploymentsPath() string {
	return "/" + url.PathEscape(r.Org) + "/" + url.PathEscape(r.Project) + "/" + url.PathEscape(r.Stack) + "/deployments"
}

func (r StackRef) deploymentPath(id string) string {
	return r.deploymentsPath() + "/" + url.PathEscape(id)
}

// CreateDeploymentRequest defines the body of a request to the "create deployment" API
type CreateDeploymentRequest struct {
	SourceContext    SourceContext    `json:"sourceContext"`
	OperationContext OperationContext `json:"operationContext"`
}

// SourceContext holds source-control configuration
type SourceContext struct {
	Git GitSource `json:"git"`
}

// GitSource points at the program to deploy
type GitSource struct {
	RepoURL string   `json:"repoURL,omitempty"`
	Branch  string   `json:"branch,omitempty"`
	RepoDir string   `json:"repoDir,omitempty"`
	GitAuth *GitAuth `json:"gitAuth,omitempty"`
}

// GitAuth holds credentials for private repositories
type GitAuth struct {
	AccessToken string `json:"accessToken,omitempty"`
}

// OperationContext holds the operation and its runtime environment
type OperationContext struct {
	// One of "update", "preview", "destroy" or "refresh".
	Operation            string            `json:"operation"`
	PreRunCommands       []string          `json:"preRunCommands"`
	EnvironmentVariables map[string]string `json:"environmentVariables"`
}

// CreateDeploymentResponse defines the body of a "create deployment" response
type CreateDeploymentResponse struct {
	ID         string `json:"id"`
	ConsoleURL string `json:"consoleUrl,omitempty"`
	Version    int    `json:"version,omitempty"`
}

// DeploymentStatus defines the body of a "get deployment" response
type DeploymentStatus struct {
	ID     string          `json:"id,omitempty"`
	Status string          `json:"status"`
	Jobs   []DeploymentJob `json:"jobs"`
}

// DeploymentJob is one execution unit of a deployment
type DeploymentJob struct {
	Status string           `json:"status,omitempty"`
	Steps  []DeploymentStep `json:"steps"`
}

// DeploymentStep is one step of an execution unit
type DeploymentStep struct {
	Name   string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
}

// TotalSteps returns the number of steps the service exposes for job
// jobIndex, or 0 when the job is not enumerable yet.
func (s *DeploymentStatus) TotalSteps(jobIndex int) int {
	if s == nil || jobIndex < 0 || jobIndex >= len(s.Jobs) {
		return 0
	}
	return len(s.Jobs[jobIndex].Steps)
}

// LogQuery selects a page of log lines
type LogQuery struct {
	Job    int
	Step   int
	Offset int
}

// Encode renders the query string in job, step, offset order
func (q LogQuery) Encode() string {
	return fmt.Sprintf("job=%s&step=%s&offset=%s",
		strconv.Itoa(q.Job), strconv.Itoa(q.Step), strconv.Itoa(q.Offset))
}

// LogPage defines the body of a "get deployment logs" response. A nil
// NextOffset means the step has no more lines.
type LogPage struct {
	Lines      []LogLine `json:"lines"`
	NextOffset *int      `json:"nextOffset,omitempty"`
}

// LogLine is a single timestamped log line
type LogLine struct {
	Timestamp string `json:"timestamp"`
	Line      string `json:"line"`
}
