// Package sqlite provides the embedded SQLite storage backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/procrastino/procrastino/internal/db"
)

// StoreConfig holds SQLite store configuration.
type StoreConfig struct {
	Path     string
	MaxConns int
	WALMode  bool
}

// querier abstracts *sql.DB and *sql.Tx so the entity stores work both
// inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// stmtCache holds prepared statements keyed by query text. Shared between a
// store and the transaction-scoped stores it spawns so hot queries are
// prepared once per process.
type stmtCache struct {
	mu    sync.RWMutex
	stmts map[string]*sql.Stmt
}

// Store is the SQLite-backed implementation of db.Store.
type Store struct {
	db    *sql.DB
	q     querier
	cache *stmtCache
}

// NewStore opens the database, applies pragmas and runs migrations.
func NewStore(cfg StoreConfig) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(0)

	if cfg.WALMode {
		if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
		if _, err := sqlDB.Exec("PRAGMA synchronous=NORMAL"); err != nil {
			return nil, fmt.Errorf("set synchronous mode: %w", err)
		}
	}
	// Retry instead of failing immediately when a writer holds the database.
	if _, err := sqlDB.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrations(sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newStoreFromDB(sqlDB), nil
}

// newStoreFromDB wraps an existing connection. Used by tests.
func newStoreFromDB(sqlDB *sql.DB) *Store {
	return &Store{
		db:    sqlDB,
		q:     sqlDB,
		cache: &stmtCache{stmts: make(map[string]*sql.Stmt)},
	}
}

// Users returns the user store view.
func (s *Store) Users() db.UserStore { return &UserStore{store: s} }

// Tasks returns the task store view.
func (s *Store) Tasks() db.TaskStore { return &TaskStore{store: s} }

// Sessions returns the session store view.
func (s *Store) Sessions() db.SessionStore { return &SessionStore{store: s} }

// InTx runs fn inside a transaction. Nested calls reuse the outer
// transaction.
func (s *Store) InTx(ctx context.Context, fn func(db.Store) error) error {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapBusy(fmt.Errorf("begin tx: %w", err))
	}

	txStore := &Store{db: s.db, q: tx, cache: s.cache}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapBusy(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// wrapBusy maps SQLite lock contention onto db.ErrBusy so callers can treat
// it as retryable.
func wrapBusy(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return fmt.Errorf("%w: %v", db.ErrBusy, err)
	}
	return err
}

// GetStmt returns a cached prepared statement for the query.
func (s *Store) GetStmt(query string) (*sql.Stmt, error) {
	c := s.cache
	c.mu.RLock()
	stmt, ok := c.stmts[query]
	c.mu.RUnlock()
	if ok {
		return stmt, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if stmt, ok := c.stmts[query]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	if c.stmts == nil {
		c.stmts = make(map[string]*sql.Stmt)
	}
	c.stmts[query] = stmt
	return stmt, nil
}

// prepared resolves a cached statement for the current querier. Inside a
// transaction the statement is rebound to the transaction; the returned
// cleanup closes only that binding, never the cached statement.
func (s *Store) prepared(ctx context.Context, query string) (*sql.Stmt, func(), error) {
	stmt, err := s.GetStmt(query)
	if err != nil {
		return nil, nil, err
	}
	if tx, ok := s.q.(*sql.Tx); ok {
		txStmt := tx.StmtContext(ctx, stmt)
		return txStmt, func() { _ = txStmt.Close() }, nil
	}
	return stmt, func() {}, nil
}

// queryRowPrepared runs a single-row query through the statement cache.
func (s *Store) queryRowPrepared(ctx context.Context, query string, args ...interface{}) (*sql.Row, func(), error) {
	stmt, cleanup, err := s.prepared(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	return stmt.QueryRowContext(ctx, args...), cleanup, nil
}

// execPrepared executes a statement through the statement cache.
func (s *Store) execPrepared(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	stmt, cleanup, err := s.prepared(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	res, err := stmt.ExecContext(ctx, args...)
	return res, wrapBusy(err)
}

// ExecContext executes a query through the current querier.
func (s *Store) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	res, err := s.q.ExecContext(ctx, query, args...)
	return res, wrapBusy(err)
}

// QueryContext executes a query returning rows.
func (s *Store) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a single-row query.
func (s *Store) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.q.QueryRowContext(ctx, query, args...)
}

// Ping verifies the connection is alive.
func (s *Store) Ping() error { return s.db.Ping() }

// DB exposes the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes cached statements and the connection.
func (s *Store) Close() error {
	c := s.cache
	c.mu.Lock()
	for _, stmt := range c.stmts {
		_ = stmt.Close()
	}
	c.stmts = make(map[string]*sql.Stmt)
	c.mu.Unlock()
	return s.db.Close()
}
