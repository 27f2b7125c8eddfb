// Package postgres provides the GORM-backed Postgres storage backend, for
// deployments where the embedded SQLite store is not enough.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/procrastino/procrastino/internal/db"
)

// StoreConfig holds Postgres store configuration.
type StoreConfig struct {
	DSN      string
	MaxConns int
}

// Store is the Postgres implementation of db.Store.
type Store struct {
	gdb   *gorm.DB
	sqlDB *sql.DB
}

// NewStore connects through pgx, applies pool limits and runs migrations.
func NewStore(cfg StoreConfig) (*Store, error) {
	sqlDB, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	if err := runMigrations(gdb); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{gdb: gdb, sqlDB: sqlDB}, nil
}

// Users returns the user store view.
func (s *Store) Users() db.UserStore { return &UserStore{store: s} }

// Tasks returns the task store view.
func (s *Store) Tasks() db.TaskStore { return &TaskStore{store: s} }

// Sessions returns the session store view.
func (s *Store) Sessions() db.SessionStore { return &SessionStore{store: s} }

// InTx runs fn inside a transaction. GORM turns nested calls into
// savepoints, so re-entry is safe.
func (s *Store) InTx(ctx context.Context, fn func(db.Store) error) error {
	err := s.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{gdb: tx, sqlDB: s.sqlDB})
	})
	return wrapBusy(err)
}

// Ping verifies connectivity.
func (s *Store) Ping() error {
	return s.sqlDB.Ping()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// wrapBusy maps retryable Postgres failures (serialization, deadlock, lock
// timeout) onto db.ErrBusy.
func wrapBusy(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %v", db.ErrBusy, err)
		}
	}
	return err
}
