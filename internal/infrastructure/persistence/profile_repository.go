package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/interfaces"
	"netstate-agent/internal/domain/nm"
)

const profileSchema = `
CREATE TABLE IF NOT EXISTS network_profile (
	node_name    VARCHAR(191) NOT NULL,
	profile_id   VARCHAR(191) NOT NULL,
	profile_type VARCHAR(64)  NOT NULL,
	uuid         VARCHAR(36)  NOT NULL,
	content      TEXT         NOT NULL,
	updated_at   VARCHAR(40)  NOT NULL,
	PRIMARY KEY (node_name, profile_id, profile_type)
)`

// SQLProfileRepository stores compiled profiles as YAML documents, one row
// per node and profile key. It works on mysql and sqlite.
type SQLProfileRepository struct {
	db     *sql.DB
	clock  interfaces.Clock
	logger *logrus.Logger
}

// NewSQLProfileRepository creates a new SQLProfileRepository
func NewSQLProfileRepository(db *sql.DB, clock interfaces.Clock, logger *logrus.Logger) *SQLProfileRepository {
	return &SQLProfileRepository{
		db:     db,
		clock:  clock,
		logger: logger,
	}
}

// Migrate creates the profile table when missing
func (r *SQLProfileRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, profileSchema); err != nil {
		return errors.NewSystemError("failed to migrate profile store", err)
	}
	return nil
}

// ListProfiles returns the profiles of a node ordered by key
func (r *SQLProfileRepository) ListProfiles(ctx context.Context, nodeName string) ([]*nm.Connection, error) {
	query := `
		SELECT profile_id, profile_type, content
		FROM network_profile
		WHERE node_name = ?
		ORDER BY profile_id, profile_type
	`

	rows, err := r.db.QueryContext(ctx, query, nodeName)
	if err != nil {
		return nil, errors.NewSystemError("failed to query profiles", err)
	}
	defer rows.Close()

	var profiles []*nm.Connection
	for rows.Next() {
		var id, profileType, content string
		if err := rows.Scan(&id, &profileType, &content); err != nil {
			return nil, errors.NewSystemError("failed to scan profile row", err)
		}

		conn, err := nm.DecodeProfile([]byte(content))
		if err != nil {
			// a broken row must not block the node; the profile is recompiled
			r.logger.WithError(err).WithFields(logrus.Fields{
				"node":    nodeName,
				"profile": id,
				"type":    profileType,
			}).Warn("Skipping undecodable stored profile")
			continue
		}
		profiles = append(profiles, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewSystemError("failed to read profile rows", err)
	}

	return profiles, nil
}

// SaveProfiles replaces the stored rows of the given profiles in one transaction
func (r *SQLProfileRepository) SaveProfiles(ctx context.Context, nodeName string, profiles []*nm.Connection) error {
	if len(profiles) == 0 {
		return nil
	}

	now := r.clock.Now().UTC().Format("2006-01-02T15:04:05Z07:00")
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, conn := range profiles {
			key := conn.Key()
			content, err := nm.EncodeProfile(conn)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM network_profile WHERE node_name = ? AND profile_id = ? AND profile_type = ?",
				nodeName, key.ID, key.Type); err != nil {
				return errors.NewSystemError(fmt.Sprintf("failed to replace profile %s", key), err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO network_profile (node_name, profile_id, profile_type, uuid, content, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
				nodeName, key.ID, key.Type, conn.Connection.UUID, string(content), now); err != nil {
				return errors.NewSystemError(fmt.Sprintf("failed to store profile %s", key), err)
			}
		}
		return nil
	})
}

// DeleteProfiles removes the given profiles of a node
func (r *SQLProfileRepository) DeleteProfiles(ctx context.Context, nodeName string, keys []nm.ProfileKey) error {
	if len(keys) == 0 {
		return nil
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM network_profile WHERE node_name = ? AND profile_id = ? AND profile_type = ?",
				nodeName, key.ID, key.Type); err != nil {
				return errors.NewSystemError(fmt.Sprintf("failed to delete profile %s", key), err)
			}
		}
		return nil
	})
}

func (r *SQLProfileRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewSystemError("failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.WithError(rbErr).Error("Failed to roll back profile transaction")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewSystemError("failed to commit profile transaction", err)
	}
	return nil
}

var _ interfaces.ProfileRepository = (*SQLProfileRepository)(nil)
