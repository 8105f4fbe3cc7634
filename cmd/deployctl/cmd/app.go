package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cuongbtq/deploy-orchestrator/internal/config"
	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator"
	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/cuongbtq/deploy-orchestrator/shared/deployapi"
	"github.com/cuongbtq/deploy-orchestrator/shared/logger"
	"github.com/cuongbtq/deploy-orchestrator/shared/rabbitmq"
	"github.com/spf13/cobra"
)

// app bundles what every subcommand needs once the config is loaded
type app struct {
	cfg    *config.Config
	logger *logger.Logger
	rabbit *rabbitmq.Client
	orch   *orchestrator.Orchestrator
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateClientConfig(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
		NoColor:      cfg.Logging.NoColor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, logger: appLogger}

	observers := orchestrator.Observers{orchestrator.NewConsolePrinter(cmd.OutOrStdout())}
	if cfg.RabbitMQ.Enabled {
		a.rabbit, err = rabbitmq.NewClient(ctx, rabbitConfig(&cfg.RabbitMQ), appLogger.Logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		observers = append(observers, orchestrator.NewEventPublisher(appLogger.Logger, a.rabbit, cfg.Monitor.PublishLogLines))
	}

	client := deployapi.NewClient(&deployapi.Config{
		BaseURL: cfg.Backend.BaseURL,
		Token:   cfg.Backend.Token,
		Timeout: cfg.Backend.Timeout,
		Debug:   cfg.Backend.Debug,
	}, appLogger.Logger)

	a.orch = orchestrator.New(&orchestrator.Config{
		Logger:        appLogger.Logger,
		API:           client,
		Org:           cfg.Backend.Org,
		DefaultTarget: cfg.Source.DefaultTarget,
		Source: orchestrator.SourceDefaults{
			RepoURL:     cfg.Source.RepoURL,
			Branch:      cfg.Source.Branch,
			ProgramsDir: cfg.Source.ProgramsDir,
			GitHubToken: cfg.Source.GitHubToken,
			CloudEnv:    cfg.CloudEnv(),
		},
		PollInterval:           cfg.Monitor.PollInterval,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures(),
		Observer:               observers,
	})

	appLogger.Debug("deployctl initialized",
		slog.String("org", cfg.Backend.Org),
		slog.String("base_url", cfg.Backend.BaseURL),
		slog.Bool("events", cfg.RabbitMQ.Enabled),
	)

	return a, nil
}

func (a *app) Close() {
	if a.rabbit != nil {
		if err := a.rabbit.Close(); err != nil {
			a.logger.Warn("Failed to close RabbitMQ client", slog.String("error", err.Error()))
		}
	}
	_ = a.logger.Close()
}

// jobsFromArgs builds monitorable jobs for deployments submitted elsewhere
func (a *app) jobsFromArgs(cmd *cobra.Command, ids []string) ([]*domain.Job, error) {
	workload, err := cmd.Flags().GetString("workload")
	if err != nil {
		return nil, fmt.Errorf("error reading workload: %w", err)
	}
	target, err := cmd.Flags().GetString("target")
	if err != nil {
		return nil, fmt.Errorf("error reading target: %w", err)
	}
	if target == "" {
		target = a.cfg.Source.DefaultTarget
	}

	jobs := make([]*domain.Job, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, &domain.Job{
			ID:       id,
			Workload: domain.WorkloadKind(workload),
			Target:   target,
		})
	}
	return jobs, nil
}

func rabbitConfig(cfg *config.RabbitMQConfig) *rabbitmq.Config {
	return &rabbitmq.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		VHost:             cfg.VHost,
		ExchangeName:      cfg.Exchange.Name,
		ExchangeType:      cfg.Exchange.Type,
		ExchangeDurable:   cfg.Exchange.Durable,
		QueueName:         cfg.Queue.Name,
		QueueDurable:      cfg.Queue.Durable,
		QueueBindingKey:   cfg.Queue.BindingKey,
		RetryAttempts:     cfg.Connection.RetryAttempts,
		RetryInterval:     cfg.Connection.RetryInterval,
		Heartbeat:         cfg.Connection.Heartbeat,
		PublishRetries:    cfg.Publish.RetryAttempts,
		PublishRetryDelay: cfg.Publish.RetryInterval,
	}
}

func addJobFlags(cmd *cobra.Command) {
	cmd.Flags().String("workload", "", "Workload kind the deployments belong to")
	cmd.Flags().String("target", "", "Target stack (defaults to the configured default target)")
	_ = cmd.MarkFlagRequired("workload")
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
