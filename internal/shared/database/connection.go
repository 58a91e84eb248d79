package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"hexmap-server/internal/shared/config"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names the SQL dialect behind a connection
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

type DB struct {
	*sql.DB
	driver Driver
}

type Tx struct {
	*sql.Tx
	driver Driver
}

type Executor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	Driver() Driver
}

func (db *DB) Driver() Driver {
	return db.driver
}

func (tx *Tx) Driver() Driver {
	return tx.driver
}

func (db *DB) BeginTxContext(ctx context.Context) (*Tx, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{Tx: tx, driver: db.driver}, nil
}

// RollbackUnlessCommitted is meant to be deferred right after BeginTxContext
func (tx *Tx) RollbackUnlessCommitted(logger *slog.Logger) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		logger.Error("Failed to rollback transaction", "error", err)
	}
}

func Connect() (*DB, error) {
	cfg := config.GlobalConfig
	logger := slog.With("component", "database", "operation", "connect")
	logger.Debug("Initializing database connection")

	driver := Driver(cfg.Database.Driver)
	if driver == DriverSQLite {
		logger.Info("Connecting to database",
			"driver", driver,
			"path", cfg.Database.SQLitePath,
		)
	} else {
		logger.Info("Connecting to database",
			"driver", driver,
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"user", cfg.Database.User,
			"database", cfg.Database.Name,
			"sslmode", cfg.Database.SSLMode,
			"max_open_conns", cfg.Database.MaxOpenConns,
			"max_idle_conns", cfg.Database.MaxIdleConns,
		)
	}

	db, err := Open(driver, cfg.ConnectionString())
	if err != nil {
		logger.Error("Failed to open database connection", "error", err, "driver", driver)
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	logger.Info("Database connection established successfully", "driver", driver)
	return db, nil
}

// Open connects with the given driver and DSN and verifies the connection with a ping
func Open(driver Driver, dsn string) (*DB, error) {
	logger := slog.With("component", "database", "operation", "open", "driver", driver)

	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger.Debug("Testing database connection with ping")
	if err := sqlDB.Ping(); err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			logger.Error("Failed to close database after ping failure", "close_error", closeErr, "ping_error", err)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: sqlDB, driver: driver}, nil
}
