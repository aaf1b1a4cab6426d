package container

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"netstate-agent/internal/application/usecases"
	"netstate-agent/internal/domain/interfaces"
	"netstate-agent/internal/domain/services"
	"netstate-agent/internal/infrastructure/adapters"
	"netstate-agent/internal/infrastructure/config"
	"netstate-agent/internal/infrastructure/health"
	"netstate-agent/internal/infrastructure/network"
	"netstate-agent/internal/infrastructure/persistence"
	infraServices "netstate-agent/internal/infrastructure/services"
)

// Container wires the agent dependencies
type Container struct {
	config *config.Config
	logger *logrus.Logger

	// adapters
	fileSystem      interfaces.FileSystem
	commandExecutor interfaces.CommandExecutor
	clock           interfaces.Clock
	osDetector      interfaces.OSDetector

	// services
	healthService  *health.HealthService
	networkFactory *network.NetworkManagerFactory
	backupService  interfaces.BackupService
	osType         interfaces.OSType

	repository interfaces.ProfileRepository

	applyUseCase *usecases.ApplyNetworkStateUseCase

	db *sql.DB
}

// NewContainer creates a new Container
func NewContainer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	container := &Container{
		config: cfg,
		logger: logger,
	}

	if err := container.initializeInfrastructure(ctx); err != nil {
		container.Close()
		return nil, err
	}

	if err := container.initializeServices(); err != nil {
		container.Close()
		return nil, err
	}

	if err := container.initializeUseCases(); err != nil {
		container.Close()
		return nil, err
	}

	return container, nil
}

func (c *Container) initializeInfrastructure(ctx context.Context) error {
	c.fileSystem = adapters.NewRealFileSystem()
	c.commandExecutor = adapters.NewRealCommandExecutor(c.logger)
	c.clock = adapters.NewRealClock()
	c.osDetector = adapters.NewRealOSDetector(c.fileSystem)

	db, err := persistence.OpenDatabase(ctx, c.config.Database)
	if err != nil {
		return err
	}
	c.db = db

	repository := persistence.NewSQLProfileRepository(c.db, c.clock, c.logger)
	if err := repository.Migrate(ctx); err != nil {
		return err
	}
	c.repository = repository

	return nil
}

func (c *Container) initializeServices() error {
	c.healthService = health.NewHealthService(c.clock, c.logger)
	c.backupService = infraServices.NewBackupService(c.fileSystem, c.clock, c.logger, c.config.Agent.BackupDirectory)

	c.networkFactory = network.NewNetworkManagerFactory(
		c.osDetector,
		c.commandExecutor,
		c.fileSystem,
		c.logger,
	)

	osType, err := c.networkFactory.CheckHost()
	if err != nil {
		return err
	}
	c.osType = osType
	c.healthService.SetOSType(string(osType))

	return nil
}

func (c *Container) initializeUseCases() error {
	agent := c.config.Agent

	applier, err := c.networkFactory.CreateProfileApplier(c.backupService, network.KeyfileApplierConfig{
		Directory:      agent.KeyfileDirectory,
		CommandTimeout: agent.CommandTimeout,
		MaxRetries:     agent.MaxRetries,
		RetryDelay:     agent.RetryDelay,
		KeepBackups:    agent.KeepBackups,
	})
	if err != nil {
		return err
	}

	c.applyUseCase = usecases.NewApplyNetworkStateUseCase(
		network.NewFileStateSource(c.fileSystem, agent.DesiredStatePath, c.logger),
		c.networkFactory.CreateStateProvider(agent.CommandTimeout),
		c.repository,
		applier,
		services.NewStateReconciler(c.logger),
		services.NewStateVerifier(c.logger),
		usecases.ApplyOptions{
			StableUUID:     agent.StableUUID,
			Verify:         agent.Verify,
			VerifyRetries:  agent.VerifyRetries,
			VerifyInterval: agent.VerifyInterval,
		},
		c.logger,
	)

	return nil
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetHealthService returns the health service
func (c *Container) GetHealthService() *health.HealthService {
	return c.healthService
}

// GetOSType returns the detected host distribution
func (c *Container) GetOSType() interfaces.OSType {
	return c.osType
}

// GetApplyNetworkStateUseCase returns the apply use case
func (c *Container) GetApplyNetworkStateUseCase() *usecases.ApplyNetworkStateUseCase {
	return c.applyUseCase
}

// PingStore checks the profile store connection
func (c *Container) PingStore(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close releases the container resources
func (c *Container) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
