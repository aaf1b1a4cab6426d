package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"netstate-agent/internal/domain/errors"
	"netstate-agent/internal/infrastructure/config"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// OpenDatabase opens and pings the profile store configured in cfg
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	var dsn string
	switch cfg.Driver {
	case DriverMySQL:
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, errors.NewSystemError("failed to create database directory", err)
		}
		dsn = sqliteDSN(cfg.SQLitePath)
	default:
		return nil, errors.NewValidationError("unsupported database driver: "+cfg.Driver, nil)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, errors.NewSystemError("failed to open database", err)
	}

	if cfg.Driver == DriverSQLite {
		// sqlite serializes writers anyway
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewSystemError("failed to connect to database", err)
	}
	return db, nil
}

// OpenInMemory opens an in-memory sqlite store. Used by tests and by
// profilectl when no store is configured.
func OpenInMemory() (*sql.DB, error) {
	db, err := sql.Open(DriverSQLite, ":memory:")
	if err != nil {
		return nil, errors.NewSystemError("failed to open in-memory database", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	return db, nil
}

func sqliteDSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
