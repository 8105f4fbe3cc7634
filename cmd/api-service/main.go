package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/deploy-orchestrator/internal/api/handler"
	"github.com/cuongbtq/deploy-orchestrator/internal/api/router"
	"github.com/cuongbtq/deploy-orchestrator/internal/config"
	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator"
	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/storage"
	"github.com/cuongbtq/deploy-orchestrator/shared/deployapi"
	"github.com/cuongbtq/deploy-orchestrator/shared/logger"
	"github.com/cuongbtq/deploy-orchestrator/shared/postgresql"
	"github.com/cuongbtq/deploy-orchestrator/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateServerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Background monitors run until shutdown, independent of any request
	monitorCtx, stopMonitors := context.WithCancel(context.Background())
	defer stopMonitors()

	var (
		dbClient     *postgresql.Client
		rabbitClient *rabbitmq.Client
		store        storage.Store
	)

	if cfg.Database.Enabled {
		dbClient, err = initPostgreSQL(monitorCtx, &cfg.Database, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer dbClient.Close()

		store, err = storage.NewPostgresStore(monitorCtx, dbClient, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize deployment store: %w", err)
		}
		appLogger.Info("Database connection established")
	} else {
		store = storage.NewMemoryStore()
		appLogger.Warn("Database disabled, deployment records are kept in memory")
	}

	observers := orchestrator.Observers{storage.NewRecorder(appLogger.Logger, store)}

	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = initRabbitMQ(monitorCtx, &cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()

		observers = append(observers, orchestrator.NewEventPublisher(appLogger.Logger, rabbitClient, cfg.Monitor.PublishLogLines))
		appLogger.Info("RabbitMQ connection established")
	}

	orch := initOrchestrator(cfg, appLogger.Logger, observers)

	r := initRouter(cfg.App.Environment, &handler.Dependencies{
		Logger:         appLogger.Logger,
		Store:          store,
		Orchestrator:   orch,
		MonitorContext: monitorCtx,
		HealthCheck:    healthCheck(dbClient, rabbitClient),
		ServiceName:    cfg.App.Name,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		appLogger.Error("Server failed to start", slog.Any("error", err))
		return err
	}

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", slog.Any("error", err))
		return err
	}

	stopMonitors()
	orch.Wait()

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		NoColor:      cfg.NoColor,
	})
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(ctx, dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ event publisher client
func initRabbitMQ(ctx context.Context, cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
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

	return rabbitmq.NewClient(ctx, rabbitConfig, logger)
}

// initOrchestrator wires the deployment service client into the engine
func initOrchestrator(cfg *config.Config, logger *slog.Logger, observer orchestrator.Observer) *orchestrator.Orchestrator {
	client := deployapi.NewClient(&deployapi.Config{
		BaseURL: cfg.Backend.BaseURL,
		Token:   cfg.Backend.Token,
		Timeout: cfg.Backend.Timeout,
		Debug:   cfg.Backend.Debug,
	}, logger)

	return orchestrator.New(&orchestrator.Config{
		Logger:        logger,
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
		Observer:               observer,
	})
}

func healthCheck(dbClient *postgresql.Client, rabbitClient *rabbitmq.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if dbClient != nil {
			if err := dbClient.HealthCheck(ctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
		}
		if rabbitClient != nil && !rabbitClient.IsConnected() {
			return fmt.Errorf("rabbitmq: %w", rabbitmq.ErrNotConnected)
		}
		return nil
	}
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}
