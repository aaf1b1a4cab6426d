package network

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"netstate-agent/internal/domain/entities"
	"netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/interfaces"
)

// FileStateSource reads the desired state from a YAML or JSON file
type FileStateSource struct {
	fileSystem interfaces.FileSystem
	path       string
	logger     *logrus.Logger
}

// NewFileStateSource creates a new FileStateSource
func NewFileStateSource(fs interfaces.FileSystem, path string, logger *logrus.Logger) *FileStateSource {
	return &FileStateSource{
		fileSystem: fs,
		path:       path,
		logger:     logger,
	}
}

// Load reads and parses the desired state file
func (s *FileStateSource) Load(ctx context.Context) (*entities.NetworkState, error) {
	if !s.fileSystem.Exists(s.path) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("desired state file %s not found", s.path))
	}

	data, err := s.fileSystem.ReadFile(s.path)
	if err != nil {
		return nil, errors.NewSystemError("failed to read desired state file", err)
	}

	state, err := entities.ParseDesiredState(data)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"path":       s.path,
		"interfaces": len(state.Interfaces),
	}).Debug("Desired state loaded")
	return state, nil
}

var _ interfaces.DesiredStateSource = (*FileStateSource)(nil)

// FileStateProvider reads a current state snapshot, as printed by
// nmstatectl show, from a file
type FileStateProvider struct {
	fileSystem interfaces.FileSystem
	path       string
}

// NewFileStateProvider creates a new FileStateProvider
func NewFileStateProvider(fs interfaces.FileSystem, path string) *FileStateProvider {
	return &FileStateProvider{fileSystem: fs, path: path}
}

// CurrentState reads and parses the snapshot. An empty path yields an
// empty state.
func (p *FileStateProvider) CurrentState(ctx context.Context) (entities.Interfaces, error) {
	if p.path == "" {
		return entities.Interfaces{}, nil
	}
	data, err := p.fileSystem.ReadFile(p.path)
	if err != nil {
		return nil, errors.NewSystemError("failed to read current state file", err)
	}
	state, err := entities.ParseCurrentState(data)
	if err != nil {
		return nil, err
	}
	return state.Interfaces, nil
}

var _ interfaces.StateProvider = (*FileStateProvider)(nil)
