package config

import (
	"os"
	"strconv"
	"time"

	"netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/scalar"
	"netstate-agent/pkg/utils"
)

// Config is a struct that holds application configuration
type Config struct {
	Database DatabaseConfig
	Agent    AgentConfig
	Health   HealthConfig
}

// DatabaseConfig is a struct that holds profile store configuration
type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// AgentConfig is a struct that holds agent configuration
type AgentConfig struct {
	NodeName         string
	PollInterval     time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	CommandTimeout   time.Duration
	DesiredStatePath string
	KeyfileDirectory string
	BackupDirectory  string
	KeepBackups      int
	StableUUID       bool
	Verify           bool
	VerifyRetries    int
	VerifyInterval   time.Duration
	Backoff          BackoffConfig
}

// BackoffConfig holds polling backoff configuration
type BackoffConfig struct {
	Enabled     bool
	MaxInterval time.Duration
	Multiplier  float64
}

// HealthConfig is a struct that holds health check configuration
type HealthConfig struct {
	Port string
}

// ConfigLoader is an interface for loading configuration
type ConfigLoader interface {
	Load() (*Config, error)
}

// EnvironmentConfigLoader is an implementation that loads configuration from environment variables
type EnvironmentConfigLoader struct{}

// NewEnvironmentConfigLoader creates a new EnvironmentConfigLoader
func NewEnvironmentConfigLoader() ConfigLoader {
	return &EnvironmentConfigLoader{}
}

// Load loads configuration from environment variables
func (l *EnvironmentConfigLoader) Load() (*Config, error) {
	hostname, _ := os.Hostname()

	stableUUID, err := getEnvBoolOrDefault("STABLE_UUID", false)
	if err != nil {
		return nil, err
	}
	verify, err := getEnvBoolOrDefault("VERIFY", true)
	if err != nil {
		return nil, err
	}
	backoffEnabled, err := getEnvBoolOrDefault("BACKOFF_ENABLED", true)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Database: DatabaseConfig{
			Driver:       getEnvOrDefault("DB_DRIVER", "mysql"),
			Host:         getEnvOrDefault("DB_HOST", "localhost"),
			Port:         getEnvOrDefault("DB_PORT", "3306"),
			User:         getEnvOrDefault("DB_USER", "root"),
			Password:     getEnvOrDefault("DB_PASSWORD", ""),
			Database:     getEnvOrDefault("DB_NAME", "netstate"),
			SQLitePath:   getEnvOrDefault("DB_SQLITE_PATH", "/var/lib/netstate/profiles.db"),
			MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvDurationOrDefault("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Agent: AgentConfig{
			NodeName:         getEnvOrDefault("NODE_NAME", hostname),
			PollInterval:     getEnvDurationOrDefault("POLL_INTERVAL", 30*time.Second),
			MaxRetries:       getEnvIntOrDefault("MAX_RETRIES", 3),
			RetryDelay:       getEnvDurationOrDefault("RETRY_DELAY", 2*time.Second),
			CommandTimeout:   getEnvDurationOrDefault("COMMAND_TIMEOUT", 30*time.Second),
			DesiredStatePath: getEnvOrDefault("DESIRED_STATE_PATH", "/etc/netstate/desired.yaml"),
			KeyfileDirectory: getEnvOrDefault("KEYFILE_DIR", "/etc/NetworkManager/system-connections"),
			BackupDirectory:  getEnvOrDefault("BACKUP_DIR", "/var/lib/netstate/backups"),
			KeepBackups:      getEnvIntOrDefault("KEEP_BACKUPS", 5),
			StableUUID:       stableUUID,
			Verify:           verify,
			VerifyRetries:    getEnvIntOrDefault("VERIFY_RETRIES", 5),
			VerifyInterval:   getEnvDurationOrDefault("VERIFY_INTERVAL", time.Second),
			Backoff: BackoffConfig{
				Enabled:     backoffEnabled,
				MaxInterval: getEnvDurationOrDefault("BACKOFF_MAX_INTERVAL", 5*time.Minute),
				Multiplier:  getEnvFloatOrDefault("BACKOFF_MULTIPLIER", 2.0),
			},
		},
		Health: HealthConfig{
			Port: getEnvOrDefault("HEALTH_PORT", "8080"),
		},
	}

	// Validate configuration
	if err := l.validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validate validates the configuration
func (l *EnvironmentConfigLoader) validate(config *Config) error {
	switch config.Database.Driver {
	case "mysql":
		if config.Database.Host == "" {
			return errors.NewValidationError("database host not configured", nil)
		}
		if config.Database.Port == "" {
			return errors.NewValidationError("database port not configured", nil)
		}
		if config.Database.User == "" {
			return errors.NewValidationError("database user not configured", nil)
		}
		if config.Database.Database == "" {
			return errors.NewValidationError("database name not configured", nil)
		}
	case "sqlite":
		if config.Database.SQLitePath == "" {
			return errors.NewValidationError("sqlite path not configured", nil)
		}
	default:
		return errors.NewValidationError("unsupported database driver: "+config.Database.Driver, nil)
	}

	if err := utils.ValidateHostname(config.Agent.NodeName); err != nil {
		return errors.NewValidationError("invalid node name", err)
	}
	if config.Agent.PollInterval <= 0 {
		return errors.NewValidationError("invalid polling interval", nil)
	}
	if config.Agent.MaxRetries < 0 {
		return errors.NewValidationError("invalid max retry count", nil)
	}
	if config.Agent.DesiredStatePath == "" {
		return errors.NewValidationError("desired state path not configured", nil)
	}
	if config.Agent.KeyfileDirectory == "" {
		return errors.NewValidationError("keyfile directory not configured", nil)
	}
	if config.Agent.VerifyRetries < 1 {
		return errors.NewValidationError("invalid verify retry count", nil)
	}
	if config.Agent.Backoff.Enabled && config.Agent.Backoff.MaxInterval < config.Agent.PollInterval {
		return errors.NewValidationError("backoff max interval is shorter than the polling interval", nil)
	}

	if config.Health.Port == "" {
		return errors.NewValidationError("health check port not configured", nil)
	}

	return nil
}

// Environment variable helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// booleans accept the same spellings as the desired state documents
func getEnvBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := scalar.ParseBool(key, value)
	if err != nil {
		return false, errors.NewValidationError("invalid boolean in "+key, err)
	}
	return b, nil
}
