package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"netstate-agent/internal/application/polling"
	"netstate-agent/internal/application/usecases"
	"netstate-agent/internal/infrastructure/config"
	"netstate-agent/internal/infrastructure/container"
	"netstate-agent/internal/infrastructure/metrics"
)

const version = "0.1.0"

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logLevelStr := os.Getenv("LOG_LEVEL")
	if logLevelStr != "" {
		logLevel, err := logrus.ParseLevel(logLevelStr)
		if err != nil {
			logger.WithError(err).Warnf("Unknown LOG_LEVEL value: %s. Using default Info level.", logLevelStr)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(logLevel)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	configLoader := config.NewEnvironmentConfigLoader()
	cfg, err := configLoader.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appContainer, err := container.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create dependency injection container")
	}
	defer func() {
		if err := appContainer.Close(); err != nil {
			logger.WithError(err).Error("Failed to cleanup container")
		}
	}()

	app := NewApplication(appContainer, logger)
	if err := app.Run(ctx, cancel); err != nil && err != context.Canceled {
		logger.WithError(err).Fatal("Failed to run application")
	}
}

// Application runs the agent loop and the health endpoint
type Application struct {
	container    *container.Container
	logger       *logrus.Logger
	applyUseCase *usecases.ApplyNetworkStateUseCase
	healthServer *http.Server
}

// NewApplication creates a new Application
func NewApplication(container *container.Container, logger *logrus.Logger) *Application {
	return &Application{
		container:    container,
		logger:       logger,
		applyUseCase: container.GetApplyNetworkStateUseCase(),
	}
}

// Run polls until the context is cancelled or a termination signal arrives
func (a *Application) Run(ctx context.Context, cancel context.CancelFunc) error {
	cfg := a.container.GetConfig()
	defer a.shutdown()

	osType := a.container.GetOSType()
	a.logger.WithField("os_type", osType).Info("Operating system detected")
	metrics.SetAgentInfo(version, string(osType), cfg.Agent.NodeName)

	a.startHealthServer(cfg.Health.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var strategy polling.Strategy
	if cfg.Agent.Backoff.Enabled {
		strategy = polling.NewExponentialBackoffStrategy(
			cfg.Agent.PollInterval,
			cfg.Agent.Backoff.MaxInterval,
			cfg.Agent.Backoff.Multiplier,
			a.logger,
		)
		a.logger.WithFields(logrus.Fields{
			"base_interval": cfg.Agent.PollInterval,
			"max_interval":  cfg.Agent.Backoff.MaxInterval,
			"multiplier":    cfg.Agent.Backoff.Multiplier,
		}).Info("Exponential backoff polling enabled")
	} else {
		strategy = &fixedIntervalStrategy{interval: cfg.Agent.PollInterval}
		a.logger.WithField("interval", cfg.Agent.PollInterval).Info("Fixed interval polling enabled")
	}

	pollingController := polling.NewPollingController(strategy, a.logger)

	a.logger.WithField("node_name", cfg.Agent.NodeName).Info("netstate agent started")

	go func() {
		select {
		case <-sigChan:
			a.logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return pollingController.Start(ctx, a.applyOnce)
}

// applyOnce runs one apply pass and feeds the outcome to health and metrics
func (a *Application) applyOnce(ctx context.Context) error {
	healthService := a.container.GetHealthService()
	if err := a.container.PingStore(ctx); err != nil {
		a.logger.WithError(err).Error("Profile store unreachable")
		healthService.UpdateStoreHealth(false, err)
		metrics.SetDBConnectionStatus(false)
		metrics.RecordError("store")
		return err
	}
	healthService.UpdateStoreHealth(true, nil)
	metrics.SetDBConnectionStatus(true)

	output, err := a.applyUseCase.Execute(ctx, usecases.ApplyNetworkStateInput{
		NodeName: a.container.GetConfig().Agent.NodeName,
	})
	healthService.RecordPass(err)
	if err != nil {
		a.logger.WithError(err).Error("Failed to apply network state")
		metrics.RecordError("apply")
		return err
	}

	if len(output.Applied) > 0 || len(output.Deleted) > 0 {
		a.logger.WithFields(logrus.Fields{
			"changed":   output.Changed,
			"applied":   len(output.Applied),
			"deleted":   len(output.Deleted),
			"unchanged": output.Unchanged,
			"ignored":   output.Ignored,
		}).Info("Network processing completed")
	}
	return nil
}

func (a *Application) startHealthServer(port string) {
	mux := http.NewServeMux()
	mux.Handle("/", a.container.GetHealthService())
	mux.Handle("/metrics", promhttp.Handler())

	a.healthServer = &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.WithField("port", port).Info("Health check server started (with /metrics)")
		if err := a.healthServer.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.WithError(err).Error("Health check server failed")
		}
	}()
}

func (a *Application) shutdown() {
	if a.healthServer == nil {
		return
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := a.healthServer.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("Failed to shutdown health check server")
	}
}

// fixedIntervalStrategy polls at a constant interval
type fixedIntervalStrategy struct {
	interval time.Duration
}

func (s *fixedIntervalStrategy) NextInterval(success bool) time.Duration {
	return s.interval
}

func (s *fixedIntervalStrategy) Reset() {}
