package deployapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config holds deployment service connection configuration
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Debug   bool
}

// Client issues authenticated JSON calls against the deployment service
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient creates a new deployment service client. The token is captured
// once; an empty token is sent as-is and rejected by the service.
func NewClient(config *Config, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(config.BaseURL).
		SetAuthScheme("token").
		SetAuthToken(config.Token).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetDebug(config.Debug)

	if config.Timeout > 0 {
		httpClient.SetTimeout(config.Timeout)
	}

	logger.Debug("Deployment service client created",
		slog.String("base_url", config.BaseURL),
		slog.Bool("has_token", config.Token != ""),
	)

	return &Client{
		http:   httpClient,
		logger: logger,
	}
}

// Call sends payload (if non-nil) to path and decodes the JSON response into
// out (if non-nil). Any non-2xx response becomes a *RemoteCallError.
func (c *Client) Call(ctx context.Context, method, path string, payload, out any) error {
	req := c.http.R().SetContext(ctx)
	if payload != nil {
		req.SetBody(payload)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}

	c.logger.Debug("Deployment service call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode()),
		slog.Duration("latency", resp.Time()),
	)

	if !resp.IsSuccess() {
		return &RemoteCallError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode(),
			Body:       string(resp.Body()),
		}
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}

// CreateDeployment starts a deployment for the stack and returns its id
func (c *Client) CreateDeployment(ctx context.Context, ref StackRef, req *CreateDeploymentRequest) (*CreateDeploymentResponse, error) {
	var resp CreateDeploymentResponse
	if err := c.Call(ctx, http.MethodPost, ref.deploymentsPath(), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDeployment fetches the current status of a deployment
func (c *Client) GetDeployment(ctx context.Context, ref StackRef, id string) (*DeploymentStatus, error) {
	var resp DeploymentStatus
	if err := c.Call(ctx, http.MethodGet, ref.deploymentPath(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDeploymentLogs fetches one page of log lines for a step of a deployment
func (c *Client) GetDeploymentLogs(ctx context.Context, ref StackRef, id string, query LogQuery) (*LogPage, error) {
	path := fmt.Sprintf("%s/logs?%s", ref.deploymentPath(id), query.Encode())

	var resp LogPage
	if err := c.Call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
