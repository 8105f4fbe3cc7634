package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	DefaultBaseURL                = "https://api.pulumi.com/api/preview"
	DefaultTarget                 = "dev"
	DefaultMaxConsecutiveFailures = 10
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig          `yaml:"app"`
	Backend     BackendConfig      `yaml:"backend"`
	Source      SourceConfig       `yaml:"source"`
	Monitor     MonitorConfig      `yaml:"monitor"`
	Deployments []DeploymentConfig `yaml:"deployments"`
	Server      ServerConfig       `yaml:"server"`
	Database    DatabaseConfig     `yaml:"database"`
	RabbitMQ    RabbitMQConfig     `yaml:"rabbitmq"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// BackendConfig describes the remote deployment service
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Org     string        `yaml:"org"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	Debug   bool          `yaml:"debug"`
}

// SourceConfig describes where workload programs are checked out from
type SourceConfig struct {
	RepoURL       string    `yaml:"repo_url"`
	Branch        string    `yaml:"branch"`
	ProgramsDir   string    `yaml:"programs_dir"`
	GitHubToken   string    `yaml:"github_token"`
	DefaultTarget string    `yaml:"default_target"`
	AWS           AWSConfig `yaml:"aws"`
}

// AWSConfig holds cloud credentials forwarded to workloads that need them
type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// MonitorConfig holds polling settings
type MonitorConfig struct {
	PollInterval           time.Duration `yaml:"poll_interval"`
	MaxConsecutiveFailures *int          `yaml:"max_consecutive_failures"`
	PublishLogLines        bool          `yaml:"publish_log_lines"`
}

// DeploymentConfig is one entry of the default batch
type DeploymentConfig struct {
	Workload  string            `yaml:"workload"`
	Operation string            `yaml:"operation"`
	Target    string            `yaml:"target"`
	Env       map[string]string `yaml:"env"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange configuration
type RabbitMQConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Durable bool   `yaml:"durable"`
}

// QueueConfig holds the optional queue that retains lifecycle events
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	BindingKey string `yaml:"binding_key"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
	NoColor      bool   `yaml:"no_color"`
}

// Load reads and parses the configuration file, then applies defaults and
// environment overrides
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	config.applyEnv()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = DefaultBaseURL
	}
	if c.Source.DefaultTarget == "" {
		c.Source.DefaultTarget = DefaultTarget
	}
	if c.Monitor.MaxConsecutiveFailures == nil {
		n := DefaultMaxConsecutiveFailures
		c.Monitor.MaxConsecutiveFailures = &n
	}
}

// applyEnv lets credentials and naming come from the environment (or a
// .env file loaded by the binary) instead of the config file
func (c *Config) applyEnv() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"PULUMI_ACCESS_TOKEN", &c.Backend.Token},
		{"ORG_NAME", &c.Backend.Org},
		{"STACK_NAME", &c.Source.DefaultTarget},
		{"GITHUB_ACCESS_TOKEN", &c.Source.GitHubToken},
		{"AWS_REGION", &c.Source.AWS.Region},
		{"AWS_ACCESS_KEY_ID", &c.Source.AWS.AccessKeyID},
		{"AWS_SECRET_ACCESS_KEY", &c.Source.AWS.SecretAccessKey},
		{"AWS_SESSION_TOKEN", &c.Source.AWS.SessionToken},
	}

	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.target = v
		}
	}
}

// ValidateClientConfig checks what every binary needs to reach the backend
func (c *Config) ValidateClientConfig() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url is required")
	}

	if c.Backend.Org == "" {
		return fmt.Errorf("backend org is required")
	}

	if c.Backend.Token == "" {
		return fmt.Errorf("backend token is required")
	}

	if c.Monitor.PollInterval < 0 {
		return fmt.Errorf("monitor poll_interval must not be negative")
	}

	if c.MaxConsecutiveFailures() < 0 {
		return fmt.Errorf("monitor max_consecutive_failures must not be negative")
	}

	for i, d := range c.Deployments {
		if d.Workload == "" {
			return fmt.Errorf("deployment %d: workload is required", i)
		}
		if d.Operation != "" && !domain.Operation(d.Operation).Valid() {
			return fmt.Errorf("deployment %d: %w: %q", i, domain.ErrUnsupportedOperation, d.Operation)
		}
	}

	return nil
}

// ValidateServerConfig checks the HTTP API configuration
func (c *Config) ValidateServerConfig() error {
	if err := c.ValidateClientConfig(); err != nil {
		return err
	}

	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.RabbitMQ.Enabled {
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq host is required")
		}
		if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
			return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
		}
		if c.RabbitMQ.Exchange.Name == "" {
			return fmt.Errorf("rabbitmq exchange name is required")
		}
	}

	return nil
}

// MaxConsecutiveFailures returns the configured limit, or the default when
// the file did not set one
func (c *Config) MaxConsecutiveFailures() int {
	if c.Monitor.MaxConsecutiveFailures == nil {
		return DefaultMaxConsecutiveFailures
	}
	return *c.Monitor.MaxConsecutiveFailures
}

// CloudEnv returns the AWS credentials as deployment environment variables.
// Unset values are left out.
func (c *Config) CloudEnv() map[string]string {
	env := map[string]string{}
	for key, value := range map[string]string{
		"AWS_REGION":            c.Source.AWS.Region,
		"AWS_ACCESS_KEY_ID":     c.Source.AWS.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY": c.Source.AWS.SecretAccessKey,
		"AWS_SESSION_TOKEN":     c.Source.AWS.SessionToken,
	} {
		if value != "" {
			env[key] = value
		}
	}
	return env
}

// DefaultRequests converts the configured batch into deployment requests
func (c *Config) DefaultRequests() []domain.Request {
	reqs := make([]domain.Request, 0, len(c.Deployments))
	for _, d := range c.Deployments {
		op := domain.Operation(d.Operation)
		if op == "" {
			op = domain.OperationUpdate
		}
		reqs = append(reqs, domain.Request{
			Workload:  domain.WorkloadKind(d.Workload),
			Operation: op,
			Context: domain.SubmitContext{
				Target: d.Target,
				Env:    d.Env,
			},
		})
	}
	return reqs
}

// ParseRequest parses "workload[:operation]" into a request. The operation
// defaults to update.
func ParseRequest(arg string) (domain.Request, error) {
	workload, op, _ := strings.Cut(arg, ":")
	if workload == "" {
		return domain.Request{}, fmt.Errorf("invalid deployment %q: workload is required", arg)
	}
	if op == "" {
		op = string(domain.OperationUpdate)
	}
	if !domain.Operation(op).Valid() {
		return domain.Request{}, fmt.Errorf("invalid deployment %q: %w", arg, domain.ErrUnsupportedOperation)
	}

	return domain.Request{
		Workload:  domain.WorkloadKind(workload),
		Operation: domain.Operation(op),
	}, nil
}
