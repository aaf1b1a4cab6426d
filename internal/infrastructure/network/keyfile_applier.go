package network

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/interfaces"
	"netstate-agent/internal/domain/nm"
	"netstate-agent/pkg/utils"
)

// NetworkManager refuses keyfiles readable by others
const keyfileMode = 0600

// KeyfileApplierConfig holds the keyfile applier settings
type KeyfileApplierConfig struct {
	Directory      string
	CommandTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	KeepBackups    int
}

// keyfileChange records one file touched since the last Commit.
// backupPath is empty when the file did not exist before.
type keyfileChange struct {
	path       string
	backupPath string
}

// KeyfileApplier writes profiles as NetworkManager keyfiles and activates
// them with nmcli
type KeyfileApplier struct {
	fileSystem      interfaces.FileSystem
	commandExecutor interfaces.CommandExecutor
	backupService   interfaces.BackupService
	config          KeyfileApplierConfig
	logger          *logrus.Logger

	mu      sync.Mutex
	journal []keyfileChange
}

// NewKeyfileApplier creates a new KeyfileApplier
func NewKeyfileApplier(
	fs interfaces.FileSystem,
	executor interfaces.CommandExecutor,
	backupService interfaces.BackupService,
	config KeyfileApplierConfig,
	logger *logrus.Logger,
) *KeyfileApplier {
	return &KeyfileApplier{
		fileSystem:      fs,
		commandExecutor: executor,
		backupService:   backupService,
		config:          config,
		logger:          logger,
	}
}

// Apply writes every profile, reloads NetworkManager and activates the
// profiles controllers first. Profiles with autoconnect disabled are brought
// down instead.
func (a *KeyfileApplier) Apply(ctx context.Context, profiles []*nm.Connection) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, conn := range profiles {
		name := conn.Connection.InterfaceName
		if name == "" {
			continue
		}
		if err := utils.ValidateInterfaceName(name); err != nil {
			return errors.NewValidationError(fmt.Sprintf("profile %s", conn.Key()), err)
		}
	}

	for _, conn := range profiles {
		if err := a.writeProfile(ctx, conn); err != nil {
			return err
		}
	}

	if err := a.nmcli(ctx, "connection", "reload"); err != nil {
		return err
	}

	for _, conn := range activationOrder(profiles) {
		setting := conn.Connection
		if setting.Autoconnect != nil && !*setting.Autoconnect {
			if _, err := a.commandExecutor.ExecuteWithTimeout(ctx, a.config.CommandTimeout,
				"nmcli", "connection", "down", "uuid", setting.UUID); err != nil {
				a.logger.WithError(err).WithField("profile", conn.Key().String()).
					Debug("nmcli connection down failed (ignorable)")
			}
			continue
		}
		if err := a.nmcli(ctx, "connection", "up", "uuid", setting.UUID); err != nil {
			return errors.NewNetworkError(fmt.Sprintf("failed to activate profile %s", conn.Key()), err)
		}
	}

	a.logger.WithField("profiles", len(profiles)).Info("Profiles applied")
	return nil
}

// Delete removes the keyfiles of the given profiles and reloads NetworkManager
func (a *KeyfileApplier) Delete(ctx context.Context, keys []nm.ProfileKey) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for _, key := range keys {
		path := a.keyfilePath(key)
		if !a.fileSystem.Exists(path) {
			a.logger.WithField("profile", key.String()).Debug("Keyfile already gone")
			continue
		}
		backupPath, err := a.backupService.CreateBackup(ctx, keyfileStem(key), path)
		if err != nil {
			return err
		}
		if err := a.fileSystem.Remove(path); err != nil {
			return errors.NewSystemError(fmt.Sprintf("failed to remove keyfile of %s", key), err)
		}
		a.journal = append(a.journal, keyfileChange{path: path, backupPath: backupPath})
		removed++
	}

	if removed == 0 {
		return nil
	}
	if err := a.nmcli(ctx, "connection", "reload"); err != nil {
		return err
	}

	a.logger.WithField("profiles", removed).Info("Profiles deleted")
	return nil
}

// Rollback undoes the file changes made since the last Commit in reverse
// order and reloads NetworkManager
func (a *KeyfileApplier) Rollback(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.journal) == 0 {
		return nil
	}

	for i := len(a.journal) - 1; i >= 0; i-- {
		change := a.journal[i]
		if change.backupPath == "" {
			if err := a.fileSystem.Remove(change.path); err != nil && a.fileSystem.Exists(change.path) {
				return errors.NewSystemError("failed to remove new keyfile during rollback", err)
			}
			continue
		}
		if err := a.backupService.RestoreBackup(ctx, change.backupPath, change.path); err != nil {
			return err
		}
	}
	a.journal = nil

	if err := a.nmcli(ctx, "connection", "reload"); err != nil {
		return err
	}
	a.logger.Warn("Keyfile changes rolled back")
	return nil
}

// Commit drops the rollback journal
func (a *KeyfileApplier) Commit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.journal = nil
}

func (a *KeyfileApplier) writeProfile(ctx context.Context, conn *nm.Connection) error {
	key := conn.Key()
	data, err := nm.RenderKeyfile(conn)
	if err != nil {
		return err
	}

	path := a.keyfilePath(key)
	backupPath, err := a.backupService.CreateBackup(ctx, keyfileStem(key), path)
	if err != nil {
		return err
	}
	if err := a.fileSystem.WriteFile(path, data, keyfileMode); err != nil {
		return errors.NewSystemError(fmt.Sprintf("failed to write keyfile of %s", key), err)
	}
	a.journal = append(a.journal, keyfileChange{path: path, backupPath: backupPath})

	if backupPath != "" && a.config.KeepBackups > 0 {
		if err := a.backupService.PruneBackups(ctx, keyfileStem(key), a.config.KeepBackups); err != nil {
			a.logger.WithError(err).WithField("profile", key.String()).Warn("Failed to prune old backups")
		}
	}

	a.logger.WithFields(logrus.Fields{
		"profile": key.String(),
		"path":    path,
	}).Debug("Keyfile written")
	return nil
}

// nmcli runs nmcli, retrying with a constant delay
func (a *KeyfileApplier) nmcli(ctx context.Context, args ...string) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(a.config.RetryDelay), uint64(a.config.MaxRetries)),
		ctx,
	)

	operation := func() error {
		_, err := a.commandExecutor.ExecuteWithTimeout(ctx, a.config.CommandTimeout, "nmcli", args...)
		return err
	}
	notify := func(err error, next time.Duration) {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"command": "nmcli " + strings.Join(args, " "),
			"next":    next,
		}).Warn("nmcli failed, retrying")
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if errors.IsTimeoutError(err) {
			return err
		}
		return errors.NewNetworkError("nmcli "+strings.Join(args, " ")+" failed", err)
	}
	return nil
}

func (a *KeyfileApplier) keyfilePath(key nm.ProfileKey) string {
	return filepath.Join(a.config.Directory, key.FileName())
}

func keyfileStem(key nm.ProfileKey) string {
	return strings.TrimSuffix(key.FileName(), ".nmconnection")
}

// activationOrder puts profiles without a controller first, then OVS ports,
// then everything else. Ties keep the compile order.
func activationOrder(profiles []*nm.Connection) []*nm.Connection {
	rank := func(conn *nm.Connection) int {
		switch {
		case conn.Connection.Controller == "":
			return 0
		case conn.Connection.Type == nm.TypeOvsPort:
			return 1
		}
		return 2
	}
	ordered := append([]*nm.Connection(nil), profiles...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank(ordered[i]) < rank(ordered[j])
	})
	return ordered
}

var _ interfaces.ProfileApplier = (*KeyfileApplier)(nil)
