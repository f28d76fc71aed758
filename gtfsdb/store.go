// Package gtfsdb writes datasets to SQLite or Postgres tables named after
// the GTFS files.
package gtfsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/theoremus-urban-solutions/gtfs-transformer/gtfs"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

var (
	// ErrUnsupportedDriver is returned by Open for drivers other than sqlite and pgx.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	// ErrUnknownTable is returned by Count for tables the store does not manage.
	ErrUnknownTable = errors.New("unknown table")
)

// Store is a SQL sink for datasets.
type Store struct {
	db          *sql.DB
	driver      string
	placeholder func(n int) string
}

// Open connects to dsn and pings the database.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	s := &Store{driver: driver}
	switch driver {
	case DriverSQLite:
		s.placeholder = sqlitePlaceholder
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
	case DriverPostgres:
		s.placeholder = postgresPlaceholder
	default:
		return nil, fmt.Errorf("%q: %w", driver, ErrUnsupportedDriver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s.db = db
	return s, nil
}

func sqlitePlaceholder(int) string { return "?" }

func postgresPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

func ensureDir(dsn string) error {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create dirs: %w", err)
	}
	return nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// Write replaces the content of every table with ds in one transaction.
func (s *Store) Write(ctx context.Context, ds *gtfs.Dataset) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, t := range tables {
		if _, err = tx.ExecContext(ctx, t.createSQL()); err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+t.name); err != nil {
			return fmt.Errorf("clear %s: %w", t.name, err)
		}
		if err = s.insertRows(ctx, tx, t, t.rows(ds)); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) insertRows(ctx context.Context, tx *sql.Tx, t table, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, t.insertSQL(s.placeholder))
	if err != nil {
		return fmt.Errorf("prepare %s: %w", t.name, err)
	}
	defer func() { _ = stmt.Close() }()
	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert %s row %d: %w", t.name, i, err)
		}
	}
	return nil
}

// Count returns the number of rows in one of the managed tables.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	if _, ok := lookupTable(name); !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownTable)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}
