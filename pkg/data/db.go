// Package data persists imported training transactions and the scoring
// audit log in sqlite or postgres.
package data

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DataFileName   string = "data.db"
	DriverSQLite   string = "sqlite"
	DriverPostgres string = "postgres"

	schemaVersion = 1
)

var (
	//go:embed sql/*
	f embed.FS

	// ErrDBNotInitialized is returned by every Store method on a nil or
	// closed store.
	ErrDBNotInitialized = errors.New("database not initialized")
)

// Store wraps a database handle and the dialect its queries are written in.
type Store struct {
	db     *sql.DB
	driver string
}

// Drivers lists the supported storage drivers.
func Drivers() []string {
	return []string{DriverSQLite, DriverPostgres}
}

// Open connects to the database and applies the schema. For sqlite the dsn
// is a file path whose parent directory is created when missing.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("dsn not specified")
	}

	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return nil, errors.Wrapf(err, "error creating data dir: %s", dir)
			}
		}
	case DriverPostgres:
	default:
		return nil, errors.Errorf("unsupported storage driver: %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}
	if driver == DriverSQLite {
		// sqlite allows one writer
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s database", driver)
	}

	s := &Store{db: db, driver: driver}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	slog.Debug("applying db schema", "driver", s.driver)
	b, err := f.ReadFile("sql/ddl.sql")
	if err != nil {
		return errors.Wrap(err, "failed to read the schema creation file")
	}

	for _, stmt := range strings.Split(string(b), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to create database schema: %s", strings.TrimSpace(stmt))
		}
	}

	if _, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO schema_version (version, applied_at) VALUES (?, ?) ON CONFLICT (version) DO NOTHING"),
		schemaVersion, time.Now().UTC().Unix()); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	slog.Debug("db schema applied", "version", schemaVersion)
	return nil
}

// Driver returns the dialect the store was opened with.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// SchemaVersion returns the highest applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var v int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, errors.Wrap(err, "failed to read schema version")
	}
	return v, nil
}

// Close releases the connection pool. Closing a nil store is a no-op.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return ErrDBNotInitialized
	}
	return nil
}

// rebind rewrites ? placeholders to $1..$n for postgres.
func (s *Store) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func rollbackTransaction(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Error("error rolling back transaction", "error", err)
	}
}
