package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/interfaces"
)

// keyfiles may hold secrets
const backupFileMode = 0600

// BackupService keeps timestamped copies of keyfiles
type BackupService struct {
	fileSystem interfaces.FileSystem
	clock      interfaces.Clock
	logger     *logrus.Logger
	backupDir  string
}

// NewBackupService creates a new BackupService
func NewBackupService(
	fs interfaces.FileSystem,
	clock interfaces.Clock,
	logger *logrus.Logger,
	backupDir string,
) *BackupService {
	return &BackupService{
		fileSystem: fs,
		clock:      clock,
		logger:     logger,
		backupDir:  backupDir,
	}
}

// CreateBackup copies configPath to <backupDir>/<name>_<timestamp><ext>
func (s *BackupService) CreateBackup(ctx context.Context, name string, configPath string) (string, error) {
	if !s.fileSystem.Exists(configPath) {
		s.logger.WithFields(logrus.Fields{
			"name": name,
			"path": configPath,
		}).Debug("No configuration file to back up")
		return "", nil
	}

	if err := s.fileSystem.MkdirAll(s.backupDir, 0700); err != nil {
		return "", errors.NewSystemError("failed to create backup directory", err)
	}

	content, err := s.fileSystem.ReadFile(configPath)
	if err != nil {
		return "", errors.NewSystemError("failed to read configuration file", err)
	}

	timestamp := s.clock.Now().UTC().Format("20060102_150405.000")
	backupPath := filepath.Join(s.backupDir, fmt.Sprintf("%s_%s%s", name, timestamp, filepath.Ext(configPath)))

	if err := s.fileSystem.WriteFile(backupPath, content, backupFileMode); err != nil {
		return "", errors.NewSystemError("failed to write backup file", err)
	}

	s.logger.WithFields(logrus.Fields{
		"name":        name,
		"backup_path": backupPath,
	}).Debug("Configuration backup created")

	return backupPath, nil
}

// RestoreBackup writes backupPath back to configPath
func (s *BackupService) RestoreBackup(ctx context.Context, backupPath string, configPath string) error {
	content, err := s.fileSystem.ReadFile(backupPath)
	if err != nil {
		return errors.NewNotFoundError(fmt.Sprintf("backup %s is not readable: %v", backupPath, err))
	}
	if err := s.fileSystem.WriteFile(configPath, content, backupFileMode); err != nil {
		return errors.NewSystemError("failed to restore configuration file", err)
	}

	s.logger.WithFields(logrus.Fields{
		"backup_path": backupPath,
		"path":        configPath,
	}).Info("Configuration restored from backup")
	return nil
}

// PruneBackups removes all but the newest keep backups of name
func (s *BackupService) PruneBackups(ctx context.Context, name string, keep int) error {
	backupFiles, err := s.findBackupFiles(name)
	if err != nil {
		return err
	}
	if len(backupFiles) <= keep {
		return nil
	}

	for _, file := range backupFiles[:len(backupFiles)-keep] {
		if err := s.fileSystem.Remove(filepath.Join(s.backupDir, file)); err != nil {
			return errors.NewSystemError("failed to remove old backup", err)
		}
	}
	return nil
}

// findBackupFiles returns the backups of name, oldest first
func (s *BackupService) findBackupFiles(name string) ([]string, error) {
	if !s.fileSystem.Exists(s.backupDir) {
		return []string{}, nil
	}

	files, err := s.fileSystem.ListFiles(s.backupDir)
	if err != nil {
		return nil, errors.NewSystemError("failed to read backup directory", err)
	}

	var backupFiles []string
	prefix := name + "_"
	for _, file := range files {
		if strings.HasPrefix(file, prefix) {
			backupFiles = append(backupFiles, file)
		}
	}

	// timestamps sort lexically
	sort.Strings(backupFiles)

	return backupFiles, nil
}

var _ interfaces.BackupService = (*BackupService)(nil)
