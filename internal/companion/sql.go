package companion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// SQLConfig holds the sql backend settings
type SQLConfig struct {
	// Driver is "sqlite3" or "pgx"
	Driver string
	// DSN is the driver-specific data source name
	DSN string
}

// DefaultSQLConfig returns a file-backed sqlite configuration
func DefaultSQLConfig() SQLConfig {
	return SQLConfig{
		Driver: "sqlite3",
		DSN:    "file:.weave/registry.db?cache=shared",
	}
}

const (
	sqlGet    = `SELECT value FROM weave_registry WHERE key = $1`
	sqlUpsert = `INSERT INTO weave_registry (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	sqlList   = `SELECT key FROM weave_registry WHERE key LIKE $1 ESCAPE '\' ORDER BY key`
)

func schemaFor(driver string) string {
	blob := "BLOB"
	if driver == "pgx" {
		blob = "BYTEA"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS weave_registry (key TEXT PRIMARY KEY, value %s NOT NULL)`, blob)
}

// SQLStore keeps entries in a single weave_registry table.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens the database and creates the registry table
func OpenSQLStore(ctx context.Context, cfg SQLConfig) (*SQLStore, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s registry store: %w", cfg.Driver, err)
	}
	if cfg.Driver == "sqlite3" {
		// sqlite serializes writers; a single connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	store, err := NewSQLStore(ctx, db, cfg.Driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an open database and ensures the schema exists
func NewSQLStore(ctx context.Context, db *sql.DB, driver string) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, schemaFor(driver)); err != nil {
		return nil, fmt.Errorf("create registry table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Get retrieves a value
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, sqlGet, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Key: key}
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts a value in a single statement
func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, sqlUpsert, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// List returns keys with the given prefix
func (s *SQLStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, sqlList, likePattern(prefix))
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("list %q: %w", prefix, err)
		}
		// sqlite LIKE ignores ASCII case
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func likePattern(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
