package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Sentinel errors returned by Queries.
var (
	ErrNotFound       = errors.New("store: record not found")
	ErrDuplicate      = errors.New("store: duplicate key")
	ErrInvalidForeign = errors.New("store: referenced record does not exist")
)

// Queries implements every read and write the application performs.
// All calls go through Manager.Execute and so share its timeout and
// retry policy.
type Queries struct {
	m   *Manager
	now func() time.Time
}

// New creates a Queries bound to m.
func New(m *Manager) *Queries {
	return &Queries{m: m, now: time.Now}
}

// Manager returns the connection manager behind q.
func (q *Queries) Manager() *Manager {
	return q.m
}

// timestamp returns the current time at the precision both dialects store.
func (q *Queries) timestamp() time.Time {
	return q.now().UTC().Truncate(time.Microsecond)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// params numbers positional placeholders. Placeholders must be added in
// the order they appear in the statement text; SQLite assigns parameter
// indexes by first appearance.
type params struct {
	args []any
}

func (p *params) add(v any) string {
	p.args = append(p.args, v)
	return fmt.Sprintf("$%d", len(p.args))
}

// in returns a parenthesized placeholder list for values.
func (p *params) in(values []int64) string {
	ph := make([]string, len(values))
	for i, v := range values {
		ph[i] = p.add(v)
	}
	return "(" + strings.Join(ph, ", ") + ")"
}

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// mapError translates driver constraint errors into store sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %w", ErrInvalidForeign, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		code := sqErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}
