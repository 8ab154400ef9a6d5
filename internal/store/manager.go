// Package store owns the database connection and implements every query
// the application runs. The same SQL serves PostgreSQL in production and
// SQLite in development and tests; the dialect is picked from the URL.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/olegiv/newsdesk/internal/retry"
)

// ErrClosed is returned by operations on a closed Manager.
var ErrClosed = errors.New("store: manager is closed")

// minResetInterval stops a burst of failing requests from recreating the
// pool once per request.
const minResetInterval = time.Second

// PoolConfig holds database connection pool options.
type PoolConfig struct {
	// MaxOpenConns is the maximum number of open connections to the database.
	MaxOpenConns int
	// MaxIdleConns is the maximum number of connections in the idle connection pool.
	MaxIdleConns int
	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	ConnMaxIdleTime time.Duration
	// ConnectTimeout bounds establishing a single connection (PostgreSQL only).
	ConnectTimeout time.Duration
}

// DefaultPoolConfig returns pool sizing for the dialect and environment.
func DefaultPoolConfig(d Dialect, production bool) PoolConfig {
	if d == DialectSQLite {
		// SQLite allows a single writer; one connection also keeps
		// :memory: databases alive for the life of the pool.
		return PoolConfig{
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		}
	}
	if production {
		return PoolConfig{
			MaxOpenConns:    5,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 30 * time.Second,
			ConnectTimeout:  15 * time.Second,
		}
	}
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    1,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// Options configures a Manager.
type Options struct {
	URL        string
	Production bool
	// Policy bounds every Execute call; a zero Timeout selects
	// retry.DefaultPolicy(Production).
	Policy retry.Policy
	// Pool overrides DefaultPoolConfig when non-nil.
	Pool   *PoolConfig
	Logger *slog.Logger
}

// Manager owns the pooled database handle. It is safe for concurrent use.
type Manager struct {
	target target
	pool   PoolConfig
	policy retry.Policy
	logger *slog.Logger

	mu        sync.RWMutex
	db        *sql.DB
	lastReset time.Time
	closed    bool

	resets singleflight.Group
}

// Open validates the URL and opens a pool. It does not contact the server;
// call Ping to verify connectivity.
func Open(opts Options) (*Manager, error) {
	t, err := parseTarget(opts.URL)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pool := DefaultPoolConfig(t.dialect, opts.Production)
	if opts.Pool != nil {
		pool = *opts.Pool
	}

	policy := opts.Policy
	if policy.Timeout == 0 {
		policy = retry.DefaultPolicy(opts.Production)
	}

	m := &Manager{
		target: t,
		pool:   pool,
		policy: policy,
		logger: logger.With("component", "store"),
	}
	m.policy.OnTransient = m.onTransient

	db, err := m.open()
	if err != nil {
		return nil, err
	}
	m.db = db

	m.logger.Info("database pool opened",
		"dialect", t.dialect,
		"target", t.redacted,
		"tls", t.tlsMode,
		"max_open_conns", pool.MaxOpenConns,
	)
	return m, nil
}

// Dialect returns the SQL dialect of the underlying database.
func (m *Manager) Dialect() Dialect {
	return m.target.dialect
}

// Policy returns the retry policy applied by Execute.
func (m *Manager) Policy() retry.Policy {
	return m.policy
}

// DB returns the current pool. The handle may be replaced by Reset, so
// callers should not keep it beyond a single operation.
func (m *Manager) DB() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// Execute runs fn against the pool under the retry policy. It is the only
// path by which queries reach the database.
func (m *Manager) Execute(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	return retry.Run(ctx, m.policy, func(ctx context.Context) error {
		db, err := m.current()
		if err != nil {
			return err
		}
		err = fn(ctx, db)
		if err != nil && m.replaced(db) && retry.Classify(err) == retry.CauseNone && !isResult(err) {
			// The pool was swapped by a concurrent Reset and closed under
			// this call; the next attempt runs on the new pool.
			return fmt.Errorf("%w: %w", errPoolReplaced, err)
		}
		return err
	})
}

// errPoolReplaced marks a failure caused by the pool being closed by Reset
// while an operation was using it. It wraps driver.ErrBadConn so that it
// classifies as a terminated connection.
var errPoolReplaced = fmt.Errorf("store: pool replaced during operation: %w", driver.ErrBadConn)

// replaced reports whether db is no longer the live pool of an open manager.
func (m *Manager) replaced(db *sql.DB) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closed && m.db != db
}

// isResult reports whether err is an answer from the database rather than
// a failure to reach it.
func isResult(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrInvalidForeign) ||
		errors.Is(err, context.Canceled) ||
		isUniqueViolation(err) ||
		isForeignKeyViolation(err)
}

// ExecuteTx runs fn inside a transaction under the retry policy. The whole
// transaction is retried as a unit.
func (m *Manager) ExecuteTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// Ping verifies that the database is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	return m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.PingContext(ctx)
	})
}

// Stats returns pool statistics.
func (m *Manager) Stats() sql.DBStats {
	return m.DB().Stats()
}

// Reset discards the pool and opens a new one. Concurrent calls share a
// single reset.
func (m *Manager) Reset(ctx context.Context) error {
	_, err, _ := m.resets.Do("reset", func() (any, error) {
		m.mu.RLock()
		recent := time.Since(m.lastReset) < minResetInterval
		closed := m.closed
		m.mu.RUnlock()
		if closed {
			return nil, ErrClosed
		}
		if recent {
			return nil, nil
		}

		db, err := m.open()
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		old := m.db
		m.db = db
		m.lastReset = time.Now()
		m.mu.Unlock()

		// Close waits for in-flight queries on the old pool.
		go func() {
			if err := old.Close(); err != nil {
				m.logger.Debug("closing replaced pool", "error", err)
			}
		}()

		m.logger.Warn("database pool recreated", "target", m.target.redacted)
		return nil, nil
	})
	return err
}

// Close closes the pool.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}

func (m *Manager) current() (*sql.DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.db, nil
}

// onTransient logs a transient failure and recreates the pool when the
// failure suggests its connections are dead.
func (m *Manager) onTransient(ctx context.Context, cause retry.Cause, err error) {
	m.logger.Warn("transient database failure, retrying", "cause", cause, "error", err)
	if !cause.PoisonsPool() {
		return
	}
	if rerr := m.Reset(ctx); rerr != nil {
		m.logger.Warn("database pool reset failed", "error", rerr)
	}
}

func (m *Manager) open() (*sql.DB, error) {
	db, err := m.target.open(m.pool)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(m.pool.MaxOpenConns)
	db.SetMaxIdleConns(m.pool.MaxIdleConns)
	db.SetConnMaxLifetime(m.pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(m.pool.ConnMaxIdleTime)
	return db, nil
}
