package interfaces

import "context"

// BackupService keeps copies of configuration files replaced or removed by the agent
type BackupService interface {
	// CreateBackup copies configPath into the backup directory and returns the
	// backup path, or "" when there is nothing to back up
	CreateBackup(ctx context.Context, name string, configPath string) (string, error)

	// RestoreBackup writes a backup back to its original location
	RestoreBackup(ctx context.Context, backupPath string, configPath string) error

	// PruneBackups keeps only the newest keep backups of name
	PruneBackups(ctx context.Context, name string, keep int) error
}
