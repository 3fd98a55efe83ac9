package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Dialect names the SQL driver a SQLStore talks to
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

const createTableQuery = `CREATE TABLE IF NOT EXISTS schema_sources (
	cache_key  TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const (
	putQuery    = `INSERT INTO schema_sources (cache_key, source) VALUES (?, ?) ON CONFLICT (cache_key) DO NOTHING`
	getQuery    = `SELECT source FROM schema_sources WHERE cache_key = ?`
	deleteQuery = `DELETE FROM schema_sources WHERE cache_key = ?`
)

// SQLStore keeps sources in a schema_sources table
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore uses an already opened database. Call Migrate before use
// unless the table exists.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// OpenPostgres connects to cfg.URL, checks the connection and creates the table
func OpenPostgres(ctx context.Context, cfg Config) (*SQLStore, error) {
	db, err := sql.Open(string(Postgres), cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
		db.SetMaxIdleConns(cfg.MaxConns / 2)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	return connect(ctx, db, Postgres, cfg.connectTimeout())
}

// OpenSQLite opens the database file at cfg.URL and creates the table
func OpenSQLite(ctx context.Context, cfg Config) (*SQLStore, error) {
	db, err := sql.Open(string(SQLite), cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	return connect(ctx, db, SQLite, cfg.connectTimeout())
}

func connect(ctx context.Context, db *sql.DB, dialect Dialect, timeout time.Duration) (*SQLStore, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}
	s := NewSQLStore(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the schema_sources table when missing
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("failed to create schema_sources table: %w", err)
	}
	return nil
}

func (s *SQLStore) Put(ctx context.Context, key, source string) error {
	if _, err := s.db.ExecContext(ctx, s.bind(putQuery), key, source); err != nil {
		return fmt.Errorf("failed to store source %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var source string
	err := s.db.QueryRowContext(ctx, s.bind(getQuery), key).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load source %s: %w", key, err)
	}
	return source, nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.bind(deleteQuery), key); err != nil {
		return fmt.Errorf("failed to delete source %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// bind rewrites ? placeholders to $n for PostgreSQL
func (s *SQLStore) bind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
