package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Supported SQL drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS session_kv (
		session_key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		expires_at BIGINT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS session_kv_expires_at_idx ON session_kv (expires_at)`,
}

// SQLBackend stores entries in the session_kv table. Expiry times are unix
// milliseconds; a NULL expiry never expires.
type SQLBackend struct {
	db     *sql.DB
	driver string
	ttl    time.Duration
	now    func() time.Time
}

// OpenSQL opens and pings a database for the given driver
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported session driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	if driver == DriverSQLite {
		// sqlite serializes writers and every :memory: connection is a new database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping session database: %w", err)
	}
	return db, nil
}

// NewSQLBackend wraps db. Call Migrate before first use.
func NewSQLBackend(db *sql.DB, driver string, ttl time.Duration) *SQLBackend {
	return &SQLBackend{db: db, driver: driver, ttl: ttl, now: time.Now}
}

// Migrate creates the session table if it does not exist
func (s *SQLBackend) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate session table: %w", err)
		}
	}
	return nil
}

// DB returns the underlying database
func (s *SQLBackend) DB() *sql.DB {
	return s.db
}

func (s *SQLBackend) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLBackend) Get(ctx context.Context, key string) ([]byte, error) {
	query := "SELECT value, expires_at FROM session_kv WHERE session_key = " + s.placeholder(1)

	var (
		value     string
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	if expiresAt.Valid && expiresAt.Int64 <= s.now().UnixMilli() {
		return nil, ErrNotFound
	}
	return []byte(value), nil
}

func (s *SQLBackend) Set(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`INSERT INTO session_kv (session_key, value, expires_at) VALUES (%s, %s, %s)
		ON CONFLICT (session_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3))

	var expiresAt sql.NullInt64
	if s.ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(s.ttl).UnixMilli(), Valid: true}
	}

	if _, err := s.db.ExecContext(ctx, query, key, string(value), expiresAt); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *SQLBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		placeholders[i] = s.placeholder(i + 1)
		args[i] = k
	}
	query := "DELETE FROM session_kv WHERE session_key IN (" + strings.Join(placeholders, ", ") + ")"

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpired deletes rows whose expiry has passed
func (s *SQLBackend) PurgeExpired(ctx context.Context) (int64, error) {
	query := "DELETE FROM session_kv WHERE expires_at IS NOT NULL AND expires_at <= " + s.placeholder(1)

	res, err := s.db.ExecContext(ctx, query, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged sessions: %w", err)
	}
	return n, nil
}
