package network

import (
	"time"

	"github.com/sirupsen/logrus"

	"netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/interfaces"
)

// NetworkManagerFactory creates the NetworkManager backed collaborators
// after checking the host distribution
type NetworkManagerFactory struct {
	osDetector      interfaces.OSDetector
	commandExecutor interfaces.CommandExecutor
	fileSystem      interfaces.FileSystem
	logger          *logrus.Logger
}

// NewNetworkManagerFactory creates a new NetworkManagerFactory
func NewNetworkManagerFactory(
	osDetector interfaces.OSDetector,
	executor interfaces.CommandExecutor,
	fs interfaces.FileSystem,
	logger *logrus.Logger,
) *NetworkManagerFactory {
	return &NetworkManagerFactory{
		osDetector:      osDetector,
		commandExecutor: executor,
		fileSystem:      fs,
		logger:          logger,
	}
}

// CheckHost fails on distributions whose NetworkManager does not read
// keyfiles from the system connection directory
func (f *NetworkManagerFactory) CheckHost() (interfaces.OSType, error) {
	osType, err := f.osDetector.DetectOS()
	if err != nil {
		return "", errors.NewSystemError("failed to detect OS", err)
	}

	f.logger.WithField("os_type", osType).Debug("OS type detected")

	switch osType {
	case interfaces.OSTypeUbuntu, interfaces.OSTypeRHEL, interfaces.OSTypeSUSE:
		return osType, nil
	default:
		return "", errors.NewSystemError("unsupported OS type: "+string(osType), nil)
	}
}

// CreateProfileApplier creates the keyfile based ProfileApplier
func (f *NetworkManagerFactory) CreateProfileApplier(backupService interfaces.BackupService, config KeyfileApplierConfig) (interfaces.ProfileApplier, error) {
	if _, err := f.CheckHost(); err != nil {
		return nil, err
	}
	return NewKeyfileApplier(f.fileSystem, f.commandExecutor, backupService, config, f.logger), nil
}

// CreateStateProvider creates the nmstatectl based StateProvider
func (f *NetworkManagerFactory) CreateStateProvider(timeout time.Duration) interfaces.StateProvider {
	return NewNmstatectlStateProvider(f.commandExecutor, timeout, f.logger)
}
